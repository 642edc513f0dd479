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
	"time"

	"github.com/rs/zerolog/log"
)

// StateLog emits a snapshot line at a fixed interval until Stop.
type StateLog struct {
	collector *Collector
	interval  time.Duration
	done      chan struct{}
}

func NewStateLog(c *Collector, interval time.Duration) *StateLog {
	s := &StateLog{
		collector: c,
		interval:  interval,
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *StateLog) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			snap := s.collector.Snapshot()
			log.Info().
				Uint64("messages", snap.Messages).
				Uint64("bad_input", snap.BadInput).
				Uint64("bytes_in", snap.BytesIn).
				Uint64("bytes_out", snap.BytesOut).
				Int64("size_p99", snap.SizeP99).
				Int64("latency_p99_us", snap.LatencyP99).
				Msg("state")
		}
	}
}

func (s *StateLog) Stop() {
	close(s.done)
}
