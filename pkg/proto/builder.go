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

package proto

import (
	"dlt/pkg/provider"
	"dlt/pkg/util"
)

// Builder accumulates sender identity and framing choices, then turns
// payloads into complete wire messages over caller-owned buffers. A
// Builder is safe for concurrent use; the message counter is shared and
// advances once per successful generation.
type Builder struct {
	ecu [kIDSize]byte
	app [kIDSize]byte
	ctx [kIDSize]byte

	withEcu       bool
	withSession   bool
	withTimestamp bool
	serial        bool
	storage       bool
	msbf          bool

	sessionID    uint32
	sessionSet   bool
	timestamp    uint32
	timestampSet bool

	providers *provider.Registry
	counter   *util.WrapCounter8
}

func NewBuilder() *Builder {
	return &Builder{
		ecu:     MakeID("ECU1"),
		app:     MakeID("APP1"),
		ctx:     MakeID("CTX1"),
		counter: &util.WrapCounter8{},
	}
}

func (b *Builder) WithEcuID(id string) *Builder {
	b.ecu = MakeID(id)
	b.withEcu = true
	return b
}

func (b *Builder) WithAppID(id string) *Builder {
	b.app = MakeID(id)
	return b
}

func (b *Builder) WithContextID(id string) *Builder {
	b.ctx = MakeID(id)
	return b
}

// WithSessionID pins the session id; without it the builder asks the
// provider registry, and omits the field when no provider is bound.
func (b *Builder) WithSessionID(id uint32) *Builder {
	b.sessionID = id
	b.sessionSet = true
	b.withSession = true
	return b
}

// WithTimestamp pins the header timestamp (0.1 ms units).
func (b *Builder) WithTimestamp(tmsp uint32) *Builder {
	b.timestamp = tmsp
	b.timestampSet = true
	b.withTimestamp = true
	return b
}

// WithProviders supplies the registry consulted for session id and
// timestamp values that were not pinned explicitly.
func (b *Builder) WithProviders(r *provider.Registry) *Builder {
	b.providers = r
	if r != nil {
		b.withSession = true
		b.withTimestamp = true
	}
	return b
}

// WithSerialHeader prefixes every generated message with the 4-byte
// stream marker.
func (b *Builder) WithSerialHeader() *Builder {
	b.serial = true
	return b
}

// WithStorageHeader prefixes every generated message with the 16-byte
// file-capture marker carrying the builder's ECU id.
func (b *Builder) WithStorageHeader() *Builder {
	b.storage = true
	return b
}

// WithBigEndianPayload sets the MSBF bit; payload integers are then
// encoded big-endian. Header integers are big-endian either way.
func (b *Builder) WithBigEndianPayload() *Builder {
	b.msbf = true
	return b
}

// WithCounter shares a message counter with another builder.
func (b *Builder) WithCounter(c *util.WrapCounter8) *Builder {
	if c != nil {
		b.counter = c
	}
	return b
}

func (b *Builder) GetCounter() uint8 {
	return b.counter.Peek()
}

func (b *Builder) ResetCounter() {
	b.counter.Reset()
}

func (b *Builder) PayloadBigEndian() bool {
	return b.msbf
}

// HeaderSize returns the header length the next generation will
// produce, excluding framing prefixes. Callers of BuildAround place
// their payload at FramingSize()+HeaderSize().
func (b *Builder) HeaderSize() int {
	return b.headerType().HeaderSize()
}

// FramingSize returns the framing prefix length the next generation
// will produce.
func (b *Builder) FramingSize() int {
	size := 0
	if b.storage {
		size += kStorageHeaderSize
	}
	if b.serial {
		size += kSerialHeaderSize
	}
	return size
}

func (b *Builder) headerType() HeaderType {
	htyp := kVersion1 | kUEHMask
	if b.msbf {
		htyp |= kMSBFMask
	}
	if b.withEcu || b.storage {
		htyp |= kWEIDMask
	}
	if b.sessionSet || (b.withSession && b.boundSession()) {
		htyp |= kWSIDMask
	}
	if b.timestampSet || (b.withTimestamp && b.boundTimestamp()) {
		htyp |= kWTMSMask
	}
	return htyp
}

func (b *Builder) boundSession() bool {
	if b.providers == nil {
		return false
	}
	_, ok := b.providers.SessionID()
	return ok
}

func (b *Builder) boundTimestamp() bool {
	if b.providers == nil {
		return false
	}
	_, ok := b.providers.Timestamp()
	return ok
}

func (b *Builder) spec(payloadLen int, mstp MessageType, mtin uint8, verbose bool, noar uint8) headerSpecT {
	htyp := b.headerType()
	s := headerSpecT{
		htyp:   htyp,
		msgLen: uint16(htyp.HeaderSize() + payloadLen),
		serial: b.serial,
		ecu:    b.ecu,
		msin:   encodeMsin(verbose, mstp, mtin),
		noar:   noar,
		apid:   b.app,
		ctid:   b.ctx,
	}
	if b.storage {
		s.storage = &StorageHeader{Ecu: b.ecu}
		if p, ok := b.registryTimestamp(); ok {
			// storage seconds are wall-clock for real captures; the
			// provider value is the best stand-in available here.
			s.storage.Seconds = p / 10000
			s.storage.Microseconds = (p % 10000) * 100
		}
	}
	if htyp.HasSession() {
		s.seid = b.sessionID
		if !b.sessionSet {
			if p, ok := b.providers.SessionID(); ok {
				s.seid = p.GetSessionID()
			}
		}
	}
	if htyp.HasTimestamp() {
		s.tmsp = b.timestamp
		if !b.timestampSet {
			if p, ok := b.registryTimestamp(); ok {
				s.tmsp = p
			}
		}
	}
	return s
}

func (b *Builder) registryTimestamp() (uint32, bool) {
	if b.providers == nil {
		return 0, false
	}
	if p, ok := b.providers.Timestamp(); ok {
		return p.GetTimestamp(), true
	}
	return 0, false
}

// Build writes framing, header and a copy of payload into dst, returning
// the total number of bytes written. The message counter advances once
// on success only.
func (b *Builder) Build(dst []byte, payload []byte, mstp MessageType, mtin uint8, verbose bool, noar uint8) (int, error) {
	s := b.spec(len(payload), mstp, mtin, verbose, noar)
	total := s.framingSize() + int(s.msgLen)
	if len(dst) < total {
		return 0, ErrBufferTooSmall
	}
	s.mcnt = b.counter.Next()
	n, err := s.write(dst)
	if err != nil {
		return 0, err
	}
	copy(dst[n:], payload)
	return total, nil
}

// BuildAround writes framing and header in front of a payload the
// caller already placed at dst[FramingSize()+HeaderSize() :
// FramingSize()+HeaderSize()+payloadLen], producing one contiguous
// message with no payload copy.
func (b *Builder) BuildAround(dst []byte, payloadLen int, mstp MessageType, mtin uint8, verbose bool, noar uint8) (int, error) {
	s := b.spec(payloadLen, mstp, mtin, verbose, noar)
	total := s.framingSize() + int(s.msgLen)
	if len(dst) < total {
		return 0, ErrBufferTooSmall
	}
	s.mcnt = b.counter.Next()
	if _, err := s.write(dst); err != nil {
		return 0, err
	}
	return total, nil
}

// Log generates a log message; verbose payloads carry noar typed
// arguments, non-verbose payloads pass through untouched.
func (b *Builder) Log(dst []byte, level LogLevel, payload []byte, verbose bool, noar uint8) (int, error) {
	if verbose && noar == 0 {
		return 0, ErrInvalidFormat
	}
	if !verbose {
		noar = 0
	}
	return b.Build(dst, payload, MessageTypeLog, uint8(level), verbose, noar)
}

// LogText generates a non-verbose log message with a raw text payload.
func (b *Builder) LogText(dst []byte, level LogLevel, text []byte) (int, error) {
	return b.Log(dst, level, text, false, 0)
}
