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

// Package cfg holds the TOML configuration sections shared by the dlt
// tools.
package cfg

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// IdentityConfig is the sender identity stamped into generated
// messages. Ids longer than 4 bytes are truncated by the codec, so
// Validate rejects them up front.
type IdentityConfig struct {
	Ecu string
	App string
	Ctx string
}

var DefaultIdentity = IdentityConfig{
	Ecu: "ECU1",
	App: "APP1",
	Ctx: "CTX1",
}

func (c *IdentityConfig) Validate() error {
	for _, id := range []string{c.Ecu, c.App, c.Ctx} {
		if len(id) > 4 {
			return fmt.Errorf("id %q longer than 4 bytes", id)
		}
	}
	return nil
}

type ListenerConfig struct {
	Addr string
	Port int
}

func (c *ListenerConfig) Endpoint() string {
	return fmt.Sprintf("%s:%d", c.Addr, c.Port)
}

func (c *ListenerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("bad listener port %d", c.Port)
	}
	return nil
}

// CaptureConfig controls file captures written by the daemon and the
// generator.
type CaptureConfig struct {
	Dir        string
	FilePrefix string
	Compress   bool
	// RotateSize is the capture rotation threshold in bytes; 0 disables
	// rotation.
	RotateSize int64
}

var DefaultCapture = CaptureConfig{
	Dir:        "./",
	FilePrefix: "capture",
}

type LogConfig struct {
	Level  string
	Pretty bool
}

var DefaultLog = LogConfig{
	Level: "info",
}

func (c *LogConfig) ZerologLevel() zerolog.Level {
	l, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

type StatsConfig struct {
	Enabled bool
	// Interval between state log lines, in seconds.
	Interval int
	HttpAddr string
}

var DefaultStats = StatsConfig{
	Enabled:  true,
	Interval: 10,
}

// ReadFromTomlFile decodes file into v and rejects keys that do not
// match any field, so typos in config files fail loudly.
func ReadFromTomlFile(file string, v interface{}) error {
	md, err := toml.DecodeFile(file, v)
	if err != nil {
		return fmt.Errorf("config %s: %w", file, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return fmt.Errorf("config %s: unknown key %q", file, undecoded[0].String())
	}
	return nil
}

func WriteToTomlFile(file string, v interface{}) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(v)
}
