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
	"bytes"
	"testing"

	"dlt/pkg/provider"
)

func TestBuildDecodeRoundTrip(t *testing.T) {
	b := NewBuilder().
		WithEcuID("ECU1").
		WithAppID("APP1").
		WithContextID("CTX1").
		WithSessionID(0x1234).
		WithTimestamp(50000)

	payload := []byte("hello dlt")
	buf := make([]byte, 256)
	n, err := b.Log(buf, LogLevelInfo, payload, false, 0)
	if err != nil {
		t.Fatal(err)
	}

	var msg Message
	consumed, err := msg.Decode(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if consumed != n {
		t.Errorf("expect consumed %d, got %d", n, consumed)
	}
	if msg.HasStorageHeader() || msg.HasSerialHeader() {
		t.Error("no framing was requested")
	}
	if !msg.HasEcuID() || IDToString(msg.GetEcuID()) != "ECU1" {
		t.Errorf("bad ecu id: %v", msg.GetEcuID())
	}
	if !msg.HasSessionID() || msg.GetSessionID() != 0x1234 {
		t.Errorf("bad session id: %d", msg.GetSessionID())
	}
	if !msg.HasTimestamp() || msg.GetTimestamp() != 50000 {
		t.Errorf("bad timestamp: %d", msg.GetTimestamp())
	}
	ext := msg.GetExtendedHeader()
	if ext == nil {
		t.Fatal("expect extended header")
	}
	if ext.GetMessageType() != MessageTypeLog || ext.GetLogLevel() != LogLevelInfo {
		t.Error("bad msin")
	}
	if IDToString(ext.GetAppID()) != "APP1" || IDToString(ext.GetContextID()) != "CTX1" {
		t.Error("bad app/context id")
	}
	if !bytes.Equal(msg.GetPayload(), payload) {
		t.Errorf("payload mismatch: %q", msg.GetPayload())
	}
}

// The length field counts header plus payload and never the framing, so
// the same logical message grows by exactly the prefix sizes when
// framing is added while len stays put.
func TestLengthExcludesFraming(t *testing.T) {
	payload := []byte("payload")
	buf := make([]byte, 256)

	plain := NewBuilder()
	n1, err := plain.LogText(buf, LogLevelDebug, payload)
	if err != nil {
		t.Fatal(err)
	}
	var m1 Message
	if _, err = m1.DecodeCopy(buf[:n1]); err != nil {
		t.Fatal(err)
	}

	framed := NewBuilder().WithStorageHeader().WithSerialHeader()
	n2, err := framed.LogText(buf, LogLevelDebug, payload)
	if err != nil {
		t.Fatal(err)
	}
	var m2 Message
	if _, err = m2.DecodeCopy(buf[:n2]); err != nil {
		t.Fatal(err)
	}

	if !m2.HasStorageHeader() || !m2.HasSerialHeader() {
		t.Fatal("expect both framing prefixes")
	}
	// framed builder also carries the ECU id in the standard header
	want := n1 + kStorageHeaderSize + kSerialHeaderSize + kIDSize
	if n2 != want {
		t.Errorf("expect total %d, got %d", want, n2)
	}
	if m2.GetStandardHeader().GetLength() != m1.GetStandardHeader().GetLength()+kIDSize {
		t.Errorf("len field must not count framing: %d vs %d",
			m2.GetStandardHeader().GetLength(), m1.GetStandardHeader().GetLength())
	}
}

// Byte-offset check against a hand-laid wire image.
func TestStorageFramingOffsets(t *testing.T) {
	b := NewBuilder().
		WithStorageHeader().
		WithEcuID("ECU1").
		WithAppID("TEST").
		WithContextID("CON1")

	buf := make([]byte, 128)
	n, err := b.LogText(buf, LogLevelInfo, []byte{0xAB})
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(buf[0:4], []byte("DLT\x01")) {
		t.Errorf("bad storage magic: %v", buf[0:4])
	}
	if !bytes.Equal(buf[8:12], []byte("ECU1")) {
		t.Errorf("bad storage ecu: %q", buf[8:12])
	}
	// standard header at 16: htyp, mcnt, len
	htyp := HeaderType(buf[16])
	if !htyp.HasExtended() || !htyp.HasEcu() || htyp.HasSession() || htyp.HasTimestamp() {
		t.Errorf("bad htyp 0x%02x", buf[16])
	}
	if htyp.Version() != 1 {
		t.Errorf("bad version in htyp 0x%02x", buf[16])
	}
	msgLen := int(HdrByteOrder.Uint16(buf[18:20]))
	// 4 standard + 4 ecu + 10 extended + 1 payload
	if msgLen != 19 {
		t.Errorf("expect len 19, got %d", msgLen)
	}
	if n != kStorageHeaderSize+msgLen {
		t.Errorf("expect total %d, got %d", kStorageHeaderSize+msgLen, n)
	}
	if !bytes.Equal(buf[20:24], []byte("ECU1")) {
		t.Errorf("bad header ecu: %q", buf[20:24])
	}
	// extended header at 24: msin, noar, apid, ctid
	if !bytes.Equal(buf[26:30], []byte("TEST")) {
		t.Errorf("bad apid: %q", buf[26:30])
	}
	if !bytes.Equal(buf[30:34], []byte("CON1")) {
		t.Errorf("bad ctid: %q", buf[30:34])
	}
	if buf[34] != 0xAB {
		t.Errorf("bad payload byte: 0x%02x", buf[34])
	}
}

func TestDecodeIncompleteVsInvalid(t *testing.T) {
	b := NewBuilder().WithTimestamp(1000)
	buf := make([]byte, 128)
	n, err := b.LogText(buf, LogLevelInfo, []byte("0123456789"))
	if err != nil {
		t.Fatal(err)
	}

	// every truncation of a valid message is incomplete, not invalid
	for i := 0; i < n; i++ {
		var m Message
		if _, err = m.Decode(buf[:i]); !IsIncomplete(err) {
			t.Fatalf("truncated to %d bytes: expect incomplete, got %v", i, err)
		}
	}

	// length field below the header size is a hard error
	bad := make([]byte, n)
	copy(bad, buf[:n])
	HdrByteOrder.PutUint16(bad[2:4], 3)
	var m Message
	if _, err = m.Decode(bad); err != ErrInvalidLength {
		t.Errorf("expect ErrInvalidLength, got %v", err)
	}

	// a storage magic with a truncated fixed body is a hard error too
	var m2 Message
	if _, err = m2.Decode([]byte("DLT\x01abcd")); err != ErrInvalidFraming {
		t.Errorf("expect ErrInvalidFraming, got %v", err)
	}
}

func TestCounterWraps(t *testing.T) {
	b := NewBuilder()
	buf := make([]byte, 64)
	for i := 0; i < 300; i++ {
		n, err := b.LogText(buf, LogLevelInfo, nil)
		if err != nil {
			t.Fatal(err)
		}
		var m Message
		if _, err = m.Decode(buf[:n]); err != nil {
			t.Fatal(err)
		}
		if m.GetCounter() != uint8(i) {
			t.Fatalf("at %d: expect counter %d, got %d", i, uint8(i), m.GetCounter())
		}
	}
}

func TestCounterNotAdvancedOnFailure(t *testing.T) {
	b := NewBuilder()
	small := make([]byte, 2)
	if _, err := b.LogText(small, LogLevelInfo, []byte("xx")); err != ErrBufferTooSmall {
		t.Fatalf("expect ErrBufferTooSmall, got %v", err)
	}
	if b.GetCounter() != 0 {
		t.Errorf("failed build must not advance the counter, got %d", b.GetCounter())
	}
}

func TestBuilderProviders(t *testing.T) {
	var reg provider.Registry
	if err := reg.BindTimestamp(provider.TimestampFunc(func() uint32 { return 777 })); err != nil {
		t.Fatal(err)
	}
	if err := reg.BindSessionID(provider.SessionIDFunc(func() uint32 { return 42 })); err != nil {
		t.Fatal(err)
	}

	b := NewBuilder().WithProviders(&reg)
	buf := make([]byte, 64)
	n, err := b.LogText(buf, LogLevelInfo, nil)
	if err != nil {
		t.Fatal(err)
	}
	var m Message
	if _, err = m.Decode(buf[:n]); err != nil {
		t.Fatal(err)
	}
	if !m.HasTimestamp() || m.GetTimestamp() != 777 {
		t.Errorf("expect provider timestamp 777, got %d", m.GetTimestamp())
	}
	if !m.HasSessionID() || m.GetSessionID() != 42 {
		t.Errorf("expect provider session 42, got %d", m.GetSessionID())
	}

	// explicit values win over the registry
	b2 := NewBuilder().WithProviders(&reg).WithTimestamp(5)
	n, err = b2.LogText(buf, LogLevelInfo, nil)
	if err != nil {
		t.Fatal(err)
	}
	var m2 Message
	if _, err = m2.Decode(buf[:n]); err != nil {
		t.Fatal(err)
	}
	if m2.GetTimestamp() != 5 {
		t.Errorf("expect pinned timestamp 5, got %d", m2.GetTimestamp())
	}
}

func TestBuildAround(t *testing.T) {
	b := NewBuilder().WithSerialHeader()
	buf := make([]byte, 128)
	payload := []byte("in place")
	off := b.FramingSize() + b.HeaderSize()
	copy(buf[off:], payload)

	n, err := b.BuildAround(buf, len(payload), MessageTypeLog, uint8(LogLevelInfo), false, 0)
	if err != nil {
		t.Fatal(err)
	}
	var m Message
	if _, err = m.Decode(buf[:n]); err != nil {
		t.Fatal(err)
	}
	if !m.HasSerialHeader() {
		t.Error("expect serial framing")
	}
	if !bytes.Equal(m.GetPayload(), payload) {
		t.Errorf("payload mismatch: %q", m.GetPayload())
	}
	if m.GetPayloadOffset() != off {
		t.Errorf("expect payload at %d, got %d", off, m.GetPayloadOffset())
	}
}

func TestStreamDecoder(t *testing.T) {
	b := NewBuilder().WithSerialHeader().WithAppID("STRM")
	var stream bytes.Buffer
	buf := make([]byte, 128)
	for i := 0; i < 10; i++ {
		n, err := b.LogText(buf, LogLevelInfo, []byte{byte(i)})
		if err != nil {
			t.Fatal(err)
		}
		stream.Write(buf[:n])
	}

	dec := NewDecoder(&stream)
	for i := 0; i < 10; i++ {
		var m Message
		if err := dec.Decode(&m); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if m.GetCounter() != uint8(i) {
			t.Errorf("expect counter %d, got %d", i, m.GetCounter())
		}
		if !bytes.Equal(m.GetPayload(), []byte{byte(i)}) {
			t.Errorf("payload mismatch at %d", i)
		}
	}
	var m Message
	if err := dec.Decode(&m); err == nil {
		t.Error("expect error at end of stream")
	}

	// unframed stream is rejected outright
	dec = NewDecoder(bytes.NewReader([]byte{0x21, 0x00, 0x00, 0x04, 0xde, 0xad, 0xbe, 0xef}))
	if err := dec.Decode(&m); err != ErrInvalidFraming {
		t.Errorf("expect ErrInvalidFraming, got %v", err)
	}
}

func BenchmarkDecode(b *testing.B) {
	bd := NewBuilder().WithTimestamp(100).WithSessionID(7)
	buf := make([]byte, 256)
	n, err := bd.LogText(buf, LogLevelInfo, []byte("benchmark payload bytes"))
	if err != nil {
		b.Fatal(err)
	}
	raw := buf[:n]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var m Message
		if _, err := m.Decode(raw); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuild(b *testing.B) {
	bd := NewBuilder().WithTimestamp(100)
	buf := make([]byte, 256)
	payload := []byte("benchmark payload bytes")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := bd.LogText(buf, LogLevelInfo, payload); err != nil {
			b.Fatal(err)
		}
	}
}
