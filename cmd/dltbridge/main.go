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

// dltbridge exposes a daemon's message stream to WebSocket clients, so
// browser tooling can follow live traffic. Frames from clients are
// forwarded back to the daemon, which lets them issue control requests.
package main

import (
	"flag"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/net/websocket"

	"dlt/pkg/cfg"
	"dlt/pkg/logging"
	"dlt/pkg/proto"
	"dlt/pkg/version"
)

type bridge struct {
	daemonAddr string

	mu      sync.Mutex
	daemon  net.Conn
	clients map[string]*websocket.Conn
}

func newBridge(daemonAddr string) *bridge {
	return &bridge{
		daemonAddr: daemonAddr,
		clients:    make(map[string]*websocket.Conn),
	}
}

// run keeps a connection to the daemon open, re-dialing on failure, and
// broadcasts every frame to the connected WebSocket clients.
func (b *bridge) run() {
	for {
		conn, err := net.Dial("tcp", b.daemonAddr)
		if err != nil {
			log.Warn().Str("daemon", b.daemonAddr).Err(err).Msg("dial failed, retrying")
			time.Sleep(2 * time.Second)
			continue
		}
		b.mu.Lock()
		b.daemon = conn
		b.mu.Unlock()
		log.Info().Str("daemon", b.daemonAddr).Msg("connected")

		dec := proto.NewDecoder(conn)
		for {
			var m proto.Message
			if err := dec.Decode(&m); err != nil {
				log.Warn().Err(err).Msg("daemon stream ended")
				break
			}
			b.broadcast(dec.FrameBytes())
		}
		b.mu.Lock()
		b.daemon = nil
		b.mu.Unlock()
		conn.Close()
	}
}

func (b *bridge) broadcast(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ws := range b.clients {
		if err := websocket.Message.Send(ws, frame); err != nil {
			log.Debug().Str("client", id).Err(err).Msg("send failed, dropping client")
			ws.Close()
			delete(b.clients, id)
		}
	}
}

// handle serves one WebSocket client: registers it for the broadcast
// stream and forwards its binary frames to the daemon.
func (b *bridge) handle(ws *websocket.Conn) {
	id := uuid.NewV4().String()
	b.mu.Lock()
	b.clients[id] = ws
	b.mu.Unlock()
	log.Info().Str("client", id).Msg("websocket client connected")

	for {
		var frame []byte
		if err := websocket.Message.Receive(ws, &frame); err != nil {
			break
		}
		b.mu.Lock()
		daemon := b.daemon
		b.mu.Unlock()
		if daemon == nil {
			continue
		}
		if _, err := daemon.Write(frame); err != nil {
			log.Warn().Err(err).Msg("forward to daemon failed")
		}
	}

	b.mu.Lock()
	delete(b.clients, id)
	b.mu.Unlock()
	ws.Close()
	log.Info().Str("client", id).Msg("websocket client disconnected")
}

func main() {
	var (
		daemonAddr  string
		listenAddr  string
		wsPath      string
		logLevel    string
		versionFlag bool
	)
	flag.StringVar(&daemonAddr, "daemon", "127.0.0.1:3490", "daemon address")
	flag.StringVar(&listenAddr, "listen", "127.0.0.1:8080", "websocket listen address")
	flag.StringVar(&wsPath, "path", "/dlt", "websocket endpoint path")
	flag.StringVar(&logLevel, "loglevel", "info", "log level")
	flag.BoolVar(&versionFlag, "version", false, "display version information")
	flag.Parse()

	if versionFlag {
		version.PrintVersionInfo()
		return
	}
	logging.Initialize(cfg.LogConfig{Level: logLevel}, "dltbridge")

	b := newBridge(daemonAddr)
	go b.run()

	http.Handle(wsPath, websocket.Handler(b.handle))
	http.HandleFunc("/version", version.HttpHandler)
	log.Info().Str("listen", listenAddr).Str("path", wsPath).Msg("serving")
	if err := http.ListenAndServe(listenAddr, nil); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
