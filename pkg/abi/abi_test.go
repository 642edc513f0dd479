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

package abi

import (
	"bytes"
	"encoding/binary"
	"testing"

	"dlt/pkg/proto"
	"dlt/pkg/service"
	"dlt/pkg/verbose"
)

// place copies b into freshly allocated linear memory and returns its
// offset.
func place(t *testing.T, e *Env, b []byte) int32 {
	t.Helper()
	off := e.Allocate(int32(len(b)))
	if off <= 0 {
		t.Fatalf("allocate %d: %d", len(b), off)
	}
	copy(e.Memory()[off:], b)
	return off
}

func TestHeapOperations(t *testing.T) {
	e := NewEnv()
	if e.GetHeapCapacity() != 16*1024 {
		t.Fatalf("capacity: %d", e.GetHeapCapacity())
	}
	off := e.Allocate(100)
	if off <= 0 || off%8 != 0 {
		t.Fatalf("bad offset: %d", off)
	}
	if e.Allocate(1<<20) != StatusOutOfMemory {
		t.Error("oversized alloc must report OutOfMemory")
	}
	used := e.GetHeapUsage()
	e.Deallocate(off)
	if e.GetHeapUsage() != used {
		t.Error("deallocate must not reclaim")
	}
	e.ResetAllocator()
	if e.GetHeapUsage() >= used {
		t.Error("reset must rewind usage")
	}
}

func TestAnalyzeMessageRecord(t *testing.T) {
	raw := make([]byte, 256)
	b := proto.NewBuilder().WithEcuID("ECU1").WithAppID("APP1").WithContextID("CTX1")
	n, err := b.LogText(raw, proto.LogLevelInfo, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}

	e := NewEnv()
	ptr := place(t, e, raw[:n])
	recOff := e.AnalyzeMessage(ptr, int32(n))
	if recOff <= 0 {
		t.Fatalf("analyze: %d", recOff)
	}
	rec := e.Memory()[recOff : recOff+AnalysisRecordSize]

	// htyp+mcnt+len + ecu + extended header
	const headerLen = 4 + 4 + 10
	if got := binary.LittleEndian.Uint16(rec[0:2]); got != uint16(n) {
		t.Errorf("total_len: %d", got)
	}
	if got := binary.LittleEndian.Uint16(rec[2:4]); got != headerLen {
		t.Errorf("header_len: %d", got)
	}
	if got := binary.LittleEndian.Uint16(rec[4:6]); got != 5 {
		t.Errorf("payload_len: %d", got)
	}
	if got := binary.LittleEndian.Uint16(rec[6:8]); got != headerLen {
		t.Errorf("payload_offset: %d", got)
	}
	if rec[8] != uint8(proto.LogLevelInfo) || rec[9] != uint8(proto.LogLevelInfo) {
		t.Errorf("subtype/log_level: %d %d", rec[8], rec[9])
	}
	if rec[10] != 0 || rec[11] != 1 {
		t.Errorf("has_serial/has_ecu: %d %d", rec[10], rec[11])
	}
	if string(rec[12:16]) != "ECU1" || string(rec[16:20]) != "APP1" || string(rec[20:24]) != "CTX1" {
		t.Errorf("ids: %q %q %q", rec[12:16], rec[16:20], rec[20:24])
	}
	if rec[24] != uint8(proto.MessageTypeLog) || rec[25] != 0 {
		t.Errorf("mstp/is_verbose: %d %d", rec[24], rec[25])
	}
	for i := 26; i < 32; i++ {
		if rec[i] != 0 {
			t.Fatalf("reserved byte %d set", i)
		}
	}
}

func TestAnalyzeSerialFramedRecord(t *testing.T) {
	raw := make([]byte, 256)
	b := proto.NewBuilder().WithEcuID("ECU1").WithSerialHeader()
	n, err := b.LogText(raw, proto.LogLevelInfo, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}

	e := NewEnv()
	ptr := place(t, e, raw[:n])
	recOff := e.AnalyzeMessage(ptr, int32(n))
	if recOff <= 0 {
		t.Fatalf("analyze: %d", recOff)
	}
	rec := e.Memory()[recOff : recOff+AnalysisRecordSize]

	// total_len is the header len field, so the 4-byte serial marker is
	// not counted.
	if got := binary.LittleEndian.Uint16(rec[0:2]); got != uint16(n-4) {
		t.Errorf("total_len: %d, want %d", got, n-4)
	}
	if rec[10] != 1 {
		t.Errorf("has_serial: %d", rec[10])
	}
	const headerLen = 4 + 4 + 10
	if got := binary.LittleEndian.Uint16(rec[2:4]); got != headerLen {
		t.Errorf("header_len: %d", got)
	}
	if got := binary.LittleEndian.Uint16(rec[4:6]); got != 5 {
		t.Errorf("payload_len: %d", got)
	}
}

func TestAnalyzeMessageErrors(t *testing.T) {
	e := NewEnv()
	if got := e.AnalyzeMessage(0, 10); got != StatusNullPointer {
		t.Errorf("null ptr: %d", got)
	}
	ptr := place(t, e, []byte("DLT\x01abcd"))
	if got := e.AnalyzeMessage(ptr, 8); got != StatusInvalidFormat {
		t.Errorf("bad framing: %d", got)
	}
	// a valid start of a message, cut short
	raw := make([]byte, 64)
	n, _ := proto.NewBuilder().LogText(raw, proto.LogLevelInfo, []byte("x"))
	ptr = place(t, e, raw[:n-1])
	if got := e.AnalyzeMessage(ptr, int32(n-1)); got != StatusBufferTooSmall {
		t.Errorf("truncated: %d", got)
	}
}

func logConfig(ecu, app, ctx string, level, verbose, noar, fileHeader uint8, ts uint32) []byte {
	cfg := make([]byte, LogConfigSize)
	ecuID, appID, ctxID := proto.MakeID(ecu), proto.MakeID(app), proto.MakeID(ctx)
	copy(cfg[0:4], ecuID[:])
	copy(cfg[4:8], appID[:])
	copy(cfg[8:12], ctxID[:])
	cfg[12] = level
	cfg[13] = verbose
	cfg[14] = noar
	cfg[15] = fileHeader
	binary.LittleEndian.PutUint32(cfg[16:20], ts)
	return cfg
}

func TestGenerateLogMessage(t *testing.T) {
	e := NewEnv()
	cfgPtr := place(t, e, logConfig("ECUX", "LOGR", "MAIN", uint8(proto.LogLevelWarn), 0, 0, 0, 5000))
	payloadPtr := place(t, e, []byte("alert"))
	outPtr := e.Allocate(256)

	n := e.GenerateLogMessage(cfgPtr, payloadPtr, 5, outPtr, 256)
	if n <= 0 {
		t.Fatalf("generate: %d", n)
	}
	var m proto.Message
	if _, err := m.Decode(e.Memory()[outPtr : outPtr+n]); err != nil {
		t.Fatal(err)
	}
	if m.GetEcuID() != proto.MakeID("ECUX") {
		t.Error("bad ecu")
	}
	ext := m.GetExtendedHeader()
	if ext.GetAppID() != proto.MakeID("LOGR") || ext.GetContextID() != proto.MakeID("MAIN") {
		t.Error("bad app/ctx")
	}
	if ext.GetLogLevel() != proto.LogLevelWarn {
		t.Error("bad level")
	}
	if !m.HasTimestamp() || m.GetTimestamp() != 5000 {
		t.Error("timestamp not carried")
	}
	if !bytes.Equal(m.GetPayload(), []byte("alert")) {
		t.Errorf("bad payload: %q", m.GetPayload())
	}
	if m.GetCounter() != 0 {
		t.Errorf("first counter: %d", m.GetCounter())
	}

	// the env counter is shared across calls
	n = e.GenerateLogMessage(cfgPtr, payloadPtr, 5, outPtr, 256)
	if n <= 0 {
		t.Fatal(n)
	}
	m.Decode(e.Memory()[outPtr : outPtr+n])
	if m.GetCounter() != 1 {
		t.Errorf("second counter: %d", m.GetCounter())
	}
}

func TestGenerateLogMessageValidation(t *testing.T) {
	e := NewEnv()
	cfgPtr := place(t, e, logConfig("ECU1", "APP1", "CTX1", 99, 0, 0, 0, 0))
	outPtr := e.Allocate(256)
	if got := e.GenerateLogMessage(cfgPtr, 0, 0, outPtr, 256); got != StatusInvalidFormat {
		t.Errorf("bad level: %d", got)
	}
	if got := e.GenerateLogMessage(0, 0, 0, outPtr, 256); got != StatusNullPointer {
		t.Errorf("null config: %d", got)
	}
	cfgPtr = place(t, e, logConfig("ECU1", "APP1", "CTX1", uint8(proto.LogLevelInfo), 0, 0, 0, 0))
	if got := e.GenerateLogMessage(cfgPtr, 0, 0, outPtr, 8); got != StatusBufferTooSmall {
		t.Errorf("small out: %d", got)
	}
}

func TestServiceGenerateAndParse(t *testing.T) {
	e := NewEnv()
	identity := make([]byte, IdentityConfigSize)
	copy(identity[0:4], "ECU1")
	copy(identity[4:8], "SYS\x00")
	copy(identity[8:12], "MGMT")
	cfgPtr := place(t, e, identity)
	appPtr := place(t, e, []byte("APP1"))
	ctxPtr := place(t, e, []byte("CTX1"))
	outPtr := e.Allocate(256)

	n := e.GenerateSetLogLevel(cfgPtr, appPtr, ctxPtr, 3, outPtr, 256)
	if n <= 0 {
		t.Fatalf("generate: %d", n)
	}

	recPtr := e.Allocate(ServiceRecordSize)
	if got := e.ParseServiceMessage(outPtr, n, recPtr); got != ServiceRecordSize {
		t.Fatalf("parse: %d", got)
	}
	rec := e.Memory()[recPtr : recPtr+ServiceRecordSize]
	if binary.LittleEndian.Uint32(rec[0:4]) != uint32(service.ServiceSetLogLevel) {
		t.Errorf("service id: %x", rec[0:4])
	}
	if rec[4] != 0 {
		t.Error("request flagged as response")
	}
	if rec[6] != uint8(proto.MessageTypeControl) || rec[7] != uint8(proto.ControlTypeRequest) {
		t.Errorf("mstp/mtin: %d %d", rec[6], rec[7])
	}
	if string(rec[8:12]) != "ECU1" || string(rec[12:16]) != "SYS\x00" || string(rec[16:20]) != "MGMT" {
		t.Errorf("identity: %q %q %q", rec[8:12], rec[12:16], rec[16:20])
	}
	if binary.LittleEndian.Uint16(rec[20:22]) != 17 {
		t.Errorf("payload_len: %d", binary.LittleEndian.Uint16(rec[20:22]))
	}
	if binary.LittleEndian.Uint32(rec[24:28]) != binary.BigEndian.Uint32([]byte("APP1")) {
		t.Error("param1 must carry the target app id")
	}
	if binary.LittleEndian.Uint32(rec[28:32]) != binary.BigEndian.Uint32([]byte("CTX1")) {
		t.Error("param2 must carry the target context id")
	}
	if rec[32] != 3 {
		t.Errorf("param3: %d", rec[32])
	}
}

func TestServiceWildcardTargets(t *testing.T) {
	e := NewEnv()
	cfgPtr := place(t, e, make([]byte, IdentityConfigSize))
	outPtr := e.Allocate(256)
	// null target pointers mean the empty (wildcard) id
	n := e.GenerateGetLogInfo(cfgPtr, 6, 0, 0, outPtr, 256)
	if n <= 0 {
		t.Fatalf("generate: %d", n)
	}
	recPtr := e.Allocate(ServiceRecordSize)
	if got := e.ParseServiceMessage(outPtr, n, recPtr); got != ServiceRecordSize {
		t.Fatalf("parse: %d", got)
	}
	rec := e.Memory()[recPtr : recPtr+ServiceRecordSize]
	if binary.LittleEndian.Uint32(rec[0:4]) != uint32(service.ServiceGetLogInfo) {
		t.Errorf("service id: %x", rec[0:4])
	}
	if rec[32] != 6 {
		t.Errorf("options param: %d", rec[32])
	}
}

func TestFormatVerbosePayload(t *testing.T) {
	payload := make([]byte, 256)
	enc := verbose.NewEncoder(payload, false)
	if err := enc.Add(verbose.Uint8(25).Named("temperature").WithUnit("Celsius")); err != nil {
		t.Fatal(err)
	}
	if err := enc.Add(verbose.Bool(true).Named("alarm")); err != nil {
		t.Fatal(err)
	}

	raw := make([]byte, 512)
	b := proto.NewBuilder().WithEcuID("ECU1")
	n, err := b.Log(raw, proto.LogLevelInfo, enc.Bytes(), true, uint8(enc.Count()))
	if err != nil {
		t.Fatal(err)
	}

	e := NewEnv()
	ptr := place(t, e, raw[:n])
	textLen := e.FormatVerbosePayload(ptr, int32(n))
	if textLen <= 0 {
		t.Fatalf("format: %d", textLen)
	}
	textPtr := e.GetFormattedPayloadPtr()
	if textPtr == 0 {
		t.Fatal("no formatted pointer")
	}
	text := string(e.Memory()[textPtr : textPtr+textLen])
	if text != "temperature=25 Celsius alarm=true" {
		t.Errorf("formatted: %q", text)
	}
}

func TestFormatRejectsNonVerbose(t *testing.T) {
	raw := make([]byte, 64)
	n, _ := proto.NewBuilder().LogText(raw, proto.LogLevelInfo, []byte("plain"))
	e := NewEnv()
	ptr := place(t, e, raw[:n])
	if got := e.FormatVerbosePayload(ptr, int32(n)); got != StatusInvalidFormat {
		t.Errorf("non-verbose must be rejected: %d", got)
	}
}

func TestGetVersion(t *testing.T) {
	e := NewEnv()
	v := e.GetVersion()
	if v>>16 == 0 {
		t.Errorf("bad packed version: %#x", v)
	}
}
