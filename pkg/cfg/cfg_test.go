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

package cfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

type testConfig struct {
	Identity IdentityConfig
	Listener ListenerConfig
	Log      LogConfig
}

func TestTomlRoundTrip(t *testing.T) {
	in := testConfig{
		Identity: IdentityConfig{Ecu: "ECUX", App: "LOGR", Ctx: "MAIN"},
		Listener: ListenerConfig{Addr: "127.0.0.1", Port: 3490},
		Log:      LogConfig{Level: "debug"},
	}
	file := filepath.Join(t.TempDir(), "dlt.toml")
	if err := WriteToTomlFile(file, &in); err != nil {
		t.Fatal(err)
	}
	var out testConfig
	if err := ReadFromTomlFile(file, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if out.Listener.Endpoint() != "127.0.0.1:3490" {
		t.Errorf("endpoint: %s", out.Listener.Endpoint())
	}
}

func TestUnknownKeyRejected(t *testing.T) {
	file := filepath.Join(t.TempDir(), "dlt.toml")
	if err := os.WriteFile(file, []byte("[Identity]\nEcuu = \"ECU1\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var out testConfig
	if err := ReadFromTomlFile(file, &out); err == nil {
		t.Error("misspelled key must be rejected")
	}
}

func TestIdentityValidate(t *testing.T) {
	id := DefaultIdentity
	if err := id.Validate(); err != nil {
		t.Fatal(err)
	}
	id.App = "TOOLONG"
	if err := id.Validate(); err == nil {
		t.Error("oversized id must be rejected")
	}
}

func TestLogLevelMapping(t *testing.T) {
	c := LogConfig{Level: "warn"}
	if c.ZerologLevel() != zerolog.WarnLevel {
		t.Errorf("level: %v", c.ZerologLevel())
	}
	c.Level = "nonsense"
	if c.ZerologLevel() != zerolog.InfoLevel {
		t.Error("bad level must fall back to info")
	}
}

func TestListenerValidate(t *testing.T) {
	l := ListenerConfig{Addr: "0.0.0.0", Port: 0}
	if err := l.Validate(); err == nil {
		t.Error("port 0 must be rejected")
	}
	l.Port = 3490
	if err := l.Validate(); err != nil {
		t.Error(err)
	}
}
