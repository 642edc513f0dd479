//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

// Package logging configures the process-wide structured logger used
// by the dlt tools.
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dlt/pkg/cfg"
	"dlt/pkg/proto"
)

// Initialize sets up the global logger from the Log config section.
// Pretty switches to the human console writer for interactive tools;
// daemons keep JSON lines.
func Initialize(c cfg.LogConfig, component string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerolog.SetGlobalLevel(c.ZerologLevel())

	var logger zerolog.Logger
	if c.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	log.Logger = logger.With().Timestamp().Str("component", component).Logger()
}

// MessageEvent annotates ev with the identity and shape of a decoded
// message, keeping field names consistent across the tools.
func MessageEvent(ev *zerolog.Event, m *proto.Message) *zerolog.Event {
	ev = ev.Int("size", m.TotalSize()).
		Uint8("counter", m.GetCounter())
	if m.HasEcuID() {
		ev = ev.Str("ecu", proto.IDToString(m.GetEcuID()))
	}
	if m.HasExtendedHeader() {
		ext := m.GetExtendedHeader()
		ev = ev.Str("app", proto.IDToString(ext.GetAppID())).
			Str("ctx", proto.IDToString(ext.GetContextID())).
			Stringer("mstp", ext.GetMessageType())
		if ext.GetMessageType() == proto.MessageTypeLog {
			ev = ev.Stringer("level", ext.GetLogLevel())
		}
	}
	if m.HasTimestamp() {
		ev = ev.Uint32("tmsp", m.GetTimestamp())
	}
	return ev
}
