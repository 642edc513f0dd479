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

// Package stats tracks message traffic for the dlt tools: per-type
// counters plus size and handling-latency distributions.
package stats

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"dlt/pkg/proto"
)

const (
	kMaxSize      = 1 << 16
	kMaxLatencyUs = 10 * 1000 * 1000
)

type Collector struct {
	mu sync.Mutex

	byType   [proto.MessageTypeControl + 1]uint64
	badInput uint64
	bytesIn  uint64
	bytesOut uint64

	size    *hdrhistogram.Histogram
	latency *hdrhistogram.Histogram
}

func NewCollector() *Collector {
	return &Collector{
		size:    hdrhistogram.New(1, kMaxSize, 3),
		latency: hdrhistogram.New(1, kMaxLatencyUs, 3),
	}
}

// OnMessage records one decoded message and the time spent handling it.
func (c *Collector) OnMessage(m *proto.Message, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mstp := proto.MessageTypeLog
	if m.HasExtendedHeader() {
		mstp = m.GetExtendedHeader().GetMessageType()
	}
	if int(mstp) < len(c.byType) {
		c.byType[mstp]++
	}
	c.bytesIn += uint64(m.TotalSize())
	c.size.RecordValue(int64(m.TotalSize()))
	c.latency.RecordValue(elapsed.Microseconds())
}

// OnBadInput records input that failed to decode.
func (c *Collector) OnBadInput() {
	c.mu.Lock()
	c.badInput++
	c.mu.Unlock()
}

// OnSent records bytes written to a downstream consumer.
func (c *Collector) OnSent(n int) {
	c.mu.Lock()
	c.bytesOut += uint64(n)
	c.mu.Unlock()
}

type Snapshot struct {
	Messages   uint64
	ByType     map[string]uint64
	BadInput   uint64
	BytesIn    uint64
	BytesOut   uint64
	SizeP50    int64
	SizeP99    int64
	LatencyP50 int64
	LatencyP99 int64
	LatencyMax int64
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		ByType:     make(map[string]uint64),
		BadInput:   c.badInput,
		BytesIn:    c.bytesIn,
		BytesOut:   c.bytesOut,
		SizeP50:    c.size.ValueAtQuantile(50),
		SizeP99:    c.size.ValueAtQuantile(99),
		LatencyP50: c.latency.ValueAtQuantile(50),
		LatencyP99: c.latency.ValueAtQuantile(99),
		LatencyMax: c.latency.Max(),
	}
	for t, n := range c.byType {
		if n != 0 {
			s.ByType[proto.MessageType(t).String()] = n
			s.Messages += n
		}
	}
	return s
}

func (s Snapshot) WriteTo(w io.Writer) {
	fmt.Fprintf(w, "messages  : %d\n", s.Messages)
	for t, n := range s.ByType {
		fmt.Fprintf(w, "  %-8s: %d\n", t, n)
	}
	fmt.Fprintf(w, "bad input : %d\n", s.BadInput)
	fmt.Fprintf(w, "bytes in  : %d\nbytes out : %d\n", s.BytesIn, s.BytesOut)
	fmt.Fprintf(w, "size p50/p99      : %d/%d B\n", s.SizeP50, s.SizeP99)
	fmt.Fprintf(w, "latency p50/p99/max: %d/%d/%d us\n",
		s.LatencyP50, s.LatencyP99, s.LatencyMax)
}

// HttpHandler serves the current snapshot as plain text.
func (c *Collector) HttpHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	c.Snapshot().WriteTo(w)
}
