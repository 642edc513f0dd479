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

// Package provider holds the process-wide timestamp and session-id
// sources. Each slot binds at most once, at startup; reads after a bind
// are lock-free. An unbound slot is not an error -- the message builder
// simply omits the corresponding header field.
package provider

import (
	"errors"
	"sync/atomic"
)

type (
	TimestampProvider interface {
		// GetTimestamp returns the current time in 0.1 ms units.
		GetTimestamp() uint32
	}
	SessionIDProvider interface {
		GetSessionID() uint32
	}

	TimestampFunc func() uint32
	SessionIDFunc func() uint32
)

func (f TimestampFunc) GetTimestamp() uint32 { return f() }
func (f SessionIDFunc) GetSessionID() uint32 { return f() }

// ErrAlreadyBound is returned on a second bind attempt. A re-bind is a
// startup misconfiguration, not a data-path condition; the original
// binding stays in place.
var ErrAlreadyBound = errors.New("provider: slot already bound")

// slotT is a first-writer-wins one-shot cell. claimed guards the single
// bind; ready publishes the value for lock-free readers.
type slotT struct {
	claimed uint32
	ready   uint32
	p       interface{}
}

func (s *slotT) bind(p interface{}) error {
	if !atomic.CompareAndSwapUint32(&s.claimed, 0, 1) {
		return ErrAlreadyBound
	}
	s.p = p
	atomic.StoreUint32(&s.ready, 1)
	return nil
}

func (s *slotT) load() (interface{}, bool) {
	if atomic.LoadUint32(&s.ready) == 0 {
		return nil, false
	}
	return s.p, true
}

// Registry carries the two capability slots. The zero value is ready to
// use with both slots unbound.
type Registry struct {
	timestamp slotT
	session   slotT
}

func (r *Registry) BindTimestamp(p TimestampProvider) error {
	if p == nil {
		return errors.New("provider: nil timestamp provider")
	}
	return r.timestamp.bind(p)
}

func (r *Registry) BindSessionID(p SessionIDProvider) error {
	if p == nil {
		return errors.New("provider: nil session id provider")
	}
	return r.session.bind(p)
}

// Timestamp returns the bound provider, or false while unbound.
func (r *Registry) Timestamp() (TimestampProvider, bool) {
	if p, ok := r.timestamp.load(); ok {
		return p.(TimestampProvider), true
	}
	return nil, false
}

// SessionID returns the bound provider, or false while unbound.
func (r *Registry) SessionID() (SessionIDProvider, bool) {
	if p, ok := r.session.load(); ok {
		return p.(SessionIDProvider), true
	}
	return nil, false
}

// Default is the shared registry used by the foreign-call boundary.
// Library callers are expected to inject their own Registry instead.
var Default Registry
