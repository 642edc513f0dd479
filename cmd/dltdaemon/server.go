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
	"io"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	uuid "github.com/satori/go.uuid"

	"dlt/pkg/logging"
	"dlt/pkg/proto"
	"dlt/pkg/service"
	"dlt/pkg/stats"
	"dlt/pkg/util"
	"dlt/pkg/version"
)

const (
	kConnWriteQueue  = 256
	kResponseBufSize = 4096
)

// Server accepts client connections, fans every received message out to
// the other clients, answers control requests, and optionally appends
// traffic to a capture file.
type Server struct {
	conf      *Config
	collector *stats.Collector
	capture   *captureWriter
	svc       *service.Builder
	listener  net.Listener
	respPool  util.BytePool
	dropped   util.AtomicCounter

	mu       sync.Mutex
	conns    map[string]*clientConn
	contexts map[[4]byte]map[[4]byte]proto.LogLevel
	shutdown bool
}

type clientConn struct {
	id   string
	conn net.Conn
	out  chan []byte
}

func NewServer(conf *Config, collector *stats.Collector) (*Server, error) {
	s := &Server{
		conf:      conf,
		collector: collector,
		svc: service.NewBuilder().
			WithEcuID(conf.Identity.Ecu).
			WithAppID(conf.Identity.App).
			WithContextID(conf.Identity.Ctx).
			WithSerialHeader(),
		respPool: util.NewSyncBytePool(kResponseBufSize),
		conns:    make(map[string]*clientConn),
		contexts: make(map[[4]byte]map[[4]byte]proto.LogLevel),
	}
	if conf.CaptureEnabled {
		capture, err := newCaptureWriter(conf.Capture)
		if err != nil {
			return nil, err
		}
		s.capture = capture
	}
	return s, nil
}

func (s *Server) Run() error {
	l, err := net.Listen("tcp", s.conf.Listener.Endpoint())
	if err != nil {
		return err
	}
	s.listener = l
	log.Info().Str("endpoint", s.conf.Listener.Endpoint()).Msg("listening")

	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.shutdown
			s.mu.Unlock()
			if closing {
				return nil
			}
			return err
		}
		c := &clientConn{
			id:   uuid.NewV4().String(),
			conn: conn,
			out:  make(chan []byte, kConnWriteQueue),
		}
		s.mu.Lock()
		if s.conf.MaxConnections > 0 && len(s.conns) >= s.conf.MaxConnections {
			s.mu.Unlock()
			log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("connection limit reached")
			conn.Close()
			continue
		}
		s.conns[c.id] = c
		s.mu.Unlock()

		log.Info().Str("conn", c.id).Str("remote", conn.RemoteAddr().String()).Msg("client connected")
		go s.writeLoop(c)
		go s.readLoop(c)
	}
}

func (s *Server) Shutdown() {
	s.mu.Lock()
	s.shutdown = true
	conns := make([]*clientConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	for _, c := range conns {
		c.conn.Close()
	}
	if s.capture != nil {
		s.capture.Close()
	}
	if n := s.dropped.Get(); n > 0 {
		log.Warn().Int32("dropped_frames", n).Msg("slow consumers dropped frames")
	}
}

func (s *Server) dropConn(c *clientConn) {
	s.mu.Lock()
	if _, ok := s.conns[c.id]; ok {
		delete(s.conns, c.id)
		close(c.out)
	}
	s.mu.Unlock()
	c.conn.Close()
	log.Info().Str("conn", c.id).Msg("client disconnected")
}

func (s *Server) writeLoop(c *clientConn) {
	for frame := range c.out {
		if _, err := c.conn.Write(frame); err != nil {
			log.Debug().Str("conn", c.id).Err(err).Msg("write failed")
			s.dropConn(c)
			return
		}
		s.collector.OnSent(len(frame))
	}
}

func (s *Server) readLoop(c *clientConn) {
	defer s.dropConn(c)
	dec := proto.NewDecoder(c.conn)
	for {
		var m proto.Message
		start := time.Now()
		if err := dec.Decode(&m); err != nil {
			if err != io.EOF && !s.isShutdown() {
				s.collector.OnBadInput()
				log.Debug().Str("conn", c.id).Err(err).Msg("stream ended")
			}
			return
		}
		s.collector.OnMessage(&m, time.Since(start))
		logging.MessageEvent(log.Trace(), &m).Str("conn", c.id).Msg("message")

		if rec, err := service.Parse(&m); err == nil && !rec.Response {
			s.answer(c, rec)
			continue
		}
		s.trackContext(&m)
		s.fanOut(c, dec.FrameBytes())
		if s.capture != nil {
			ecu := m.GetEcuID()
			if err := s.capture.Write(dec.MessageBytes(), ecu); err != nil {
				log.Error().Err(err).Msg("capture write failed")
			}
		}
	}
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// fanOut forwards one raw frame to every client except the sender.
// Slow clients get dropped frames rather than blocking the sender.
func (s *Server) fanOut(from *clientConn, frame []byte) {
	copied := make([]byte, len(frame))
	copy(copied, frame)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.conns {
		if id == from.id {
			continue
		}
		select {
		case c.out <- copied:
		default:
			s.dropped.Add(1)
			log.Warn().Str("conn", id).Msg("write queue full, frame dropped")
		}
	}
}

// trackContext remembers app/context pairs seen in log traffic so
// GetLogInfo can enumerate them.
func (s *Server) trackContext(m *proto.Message) {
	if !m.HasExtendedHeader() {
		return
	}
	ext := m.GetExtendedHeader()
	if ext.GetMessageType() != proto.MessageTypeLog {
		return
	}
	app := ext.GetAppID()
	ctx := ext.GetContextID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contexts[app] == nil {
		s.contexts[app] = make(map[[4]byte]proto.LogLevel)
	}
	s.contexts[app][ctx] = ext.GetLogLevel()
}

// setContextLevel applies a SetLogLevel request to the tracked contexts
// matching the requested app and context; zero ids match everything.
func (s *Server) setContextLevel(app, ctx [4]byte, level proto.LogLevel) {
	var zero [4]byte
	s.mu.Lock()
	defer s.mu.Unlock()
	for a, ctxs := range s.contexts {
		if app != zero && a != app {
			continue
		}
		for c := range ctxs {
			if ctx != zero && c != ctx {
				continue
			}
			ctxs[c] = level
		}
	}
}

func (s *Server) answer(c *clientConn, rec *service.Record) {
	buf := s.respPool.Get()
	defer s.respPool.Put(buf)
	var n int
	var err error

	switch rec.ServiceID {
	case service.ServiceGetSoftwareVersion:
		n, err = s.svc.GetSoftwareVersionResponse(buf, service.StatusOK, version.OnelineVersionString())
	case service.ServiceGetDefaultLogLevel:
		s.mu.Lock()
		level := proto.LogLevel(s.conf.DefaultLogLevel)
		s.mu.Unlock()
		n, err = s.svc.GetDefaultLogLevelResponse(buf, service.StatusOK, level)
	case service.ServiceGetLogInfo:
		n, err = s.logInfoResponse(buf, rec)
	case service.ServiceSetLogLevel:
		s.setContextLevel(service.IDFromParam(rec.Param1), service.IDFromParam(rec.Param2),
			proto.LogLevel(rec.Param3))
		n, err = s.svc.StatusResponse(buf, rec.ServiceID, service.StatusOK)
	case service.ServiceSetDefaultLogLevel:
		s.mu.Lock()
		s.conf.DefaultLogLevel = int(rec.Param3)
		s.mu.Unlock()
		n, err = s.svc.StatusResponse(buf, rec.ServiceID, service.StatusOK)
	default:
		n, err = s.svc.StatusResponse(buf, rec.ServiceID, service.StatusNotSupported)
	}
	if err != nil {
		log.Error().Stringer("service", rec.ServiceID).Err(err).Msg("response generation failed")
		return
	}
	// the scratch buffer goes back to the pool, the queue gets a
	// right-sized copy
	frame := make([]byte, n)
	copy(frame, buf[:n])

	// dropConn closes c.out under the mutex, so the send must hold it
	// too and re-check registration first.
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[c.id]; !ok {
		return
	}
	select {
	case c.out <- frame:
	default:
		s.dropped.Add(1)
		log.Warn().Str("conn", c.id).Msg("write queue full, response dropped")
	}
}

func (s *Server) logInfoResponse(buf []byte, rec *service.Record) (int, error) {
	appFilter := service.IDFromParam(rec.Param1)
	ctxFilter := service.IDFromParam(rec.Param2)
	wildcard := [4]byte{}

	s.mu.Lock()
	apps := make([]service.AppInfo, 0, len(s.contexts))
	for app, ctxs := range s.contexts {
		if appFilter != wildcard && app != appFilter {
			continue
		}
		info := service.AppInfo{ID: app}
		for ctx, level := range ctxs {
			if ctxFilter != wildcard && ctx != ctxFilter {
				continue
			}
			info.Contexts = append(info.Contexts, service.ContextInfo{
				ID:          ctx,
				LogLevel:    level,
				TraceStatus: 0,
			})
		}
		if len(info.Contexts) > 0 {
			apps = append(apps, info)
		}
	}
	s.mu.Unlock()

	if len(apps) == 0 {
		return s.svc.GetLogInfoResponse(buf, service.StatusNoMatchingContexts, nil)
	}
	sort.Slice(apps, func(i, j int) bool {
		return string(apps[i].ID[:]) < string(apps[j].ID[:])
	})

	body := make([]byte, 2048)
	w := service.NewLogInfoWriter(body, false)
	status := service.StatusWithLogLevelAndTraceStatus
	for _, app := range apps {
		if err := w.AddApp(app); err == service.ErrLogInfoOverflow {
			status = service.StatusOverflow
			break
		} else if err != nil {
			return 0, err
		}
	}
	return s.svc.GetLogInfoResponse(buf, status, w.Bytes())
}
