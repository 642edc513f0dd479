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

package main

import (
	"dlt/pkg/cfg"
)

type Config struct {
	Identity cfg.IdentityConfig
	Listener cfg.ListenerConfig
	Capture  cfg.CaptureConfig
	Log      cfg.LogConfig
	Stats    cfg.StatsConfig

	// CaptureEnabled turns on file captures of all forwarded traffic.
	CaptureEnabled bool
	// DefaultLogLevel is what GetDefaultLogLevel requests are answered
	// with.
	DefaultLogLevel int
	// MaxConnections bounds concurrent clients; 0 means unlimited.
	MaxConnections int
}

var Conf = Config{
	Identity:        cfg.DefaultIdentity,
	Listener:        cfg.ListenerConfig{Addr: "0.0.0.0", Port: 3490},
	Capture:         cfg.DefaultCapture,
	Log:             cfg.DefaultLog,
	Stats:           cfg.DefaultStats,
	DefaultLogLevel: 4,
}

func loadConfig(file string) error {
	if file == "" {
		return Conf.Identity.Validate()
	}
	if err := cfg.ReadFromTomlFile(file, &Conf); err != nil {
		return err
	}
	if err := Conf.Identity.Validate(); err != nil {
		return err
	}
	return Conf.Listener.Validate()
}
