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
	"net"
	"testing"

	"dlt/pkg/service"
	"dlt/pkg/stats"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	conf := Conf
	s, err := NewServer(&conf, stats.NewCollector())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func testConn(s *Server) *clientConn {
	client, server := net.Pipe()
	go func() {
		// drain whatever the server writes
		buf := make([]byte, 1024)
		for {
			if _, err := client.Read(buf); err != nil {
				return
			}
		}
	}()
	c := &clientConn{id: "test-conn", conn: server, out: make(chan []byte, kConnWriteQueue)}
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	return c
}

func TestAnswerQueuesResponse(t *testing.T) {
	s := testServer(t)
	c := testConn(s)
	defer s.dropConn(c)

	s.answer(c, &service.Record{ServiceID: service.ServiceGetSoftwareVersion})
	select {
	case frame := <-c.out:
		if len(frame) == 0 {
			t.Fatal("empty response frame")
		}
	default:
		t.Fatal("no response queued")
	}
}

func TestAnswerAfterDrop(t *testing.T) {
	s := testServer(t)
	c := testConn(s)

	s.dropConn(c)
	// c.out is closed now; answering must notice the conn is gone
	// instead of sending on the closed channel.
	s.answer(c, &service.Record{ServiceID: service.ServiceGetSoftwareVersion})

	if _, ok := <-c.out; ok {
		t.Fatal("response sent to dropped connection")
	}
}
