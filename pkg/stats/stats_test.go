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

package stats

import (
	"strings"
	"testing"
	"time"

	"dlt/pkg/proto"
)

func decodeOne(t *testing.T, gen func([]byte) (int, error)) *proto.Message {
	t.Helper()
	buf := make([]byte, 256)
	n, err := gen(buf)
	if err != nil {
		t.Fatal(err)
	}
	var m proto.Message
	if _, err = m.DecodeCopy(buf[:n]); err != nil {
		t.Fatal(err)
	}
	return &m
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	b := proto.NewBuilder().WithEcuID("ECU1")
	for i := 0; i < 5; i++ {
		m := decodeOne(t, func(buf []byte) (int, error) {
			return b.LogText(buf, proto.LogLevelInfo, []byte("hello"))
		})
		c.OnMessage(m, 50*time.Microsecond)
	}
	c.OnBadInput()
	c.OnSent(100)

	s := c.Snapshot()
	if s.Messages != 5 {
		t.Errorf("messages: %d", s.Messages)
	}
	if s.ByType["Log"] != 5 {
		t.Errorf("log count: %d", s.ByType["Log"])
	}
	if s.BadInput != 1 || s.BytesOut != 100 {
		t.Errorf("bad/out: %d %d", s.BadInput, s.BytesOut)
	}
	if s.SizeP50 == 0 {
		t.Error("size histogram empty")
	}
	if s.LatencyP99 < 50 {
		t.Errorf("latency p99: %d", s.LatencyP99)
	}

	var sb strings.Builder
	s.WriteTo(&sb)
	if !strings.Contains(sb.String(), "messages  : 5") {
		t.Errorf("render: %q", sb.String())
	}
}

func TestStateLogStops(t *testing.T) {
	s := NewStateLog(NewCollector(), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	s.Stop()
}
