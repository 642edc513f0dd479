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

// Package abi is the flat-memory boundary: every operation takes and
// returns integer offsets into a shared linear region instead of Go
// pointers, so a sandboxed host can drive the codec without sharing the
// Go heap. Record and config layouts are fixed little-endian structures
// consumed byte-for-byte by external tooling.
package abi

import (
	"bytes"
	"encoding/binary"

	"dlt/pkg/arena"
	"dlt/pkg/proto"
	"dlt/pkg/service"
	"dlt/pkg/util"
	"dlt/pkg/verbose"
	"dlt/pkg/version"
)

// Negative return codes. Positive returns are byte counts or offsets.
const (
	StatusNullPointer    = -1
	StatusBufferTooSmall = -2
	StatusInvalidFormat  = -3
	StatusOutOfMemory    = -4
)

const (
	// AnalysisRecordSize is the record AnalyzeMessage writes:
	//   0:2  total_len       u16 LE
	//   2:4  header_len      u16 LE
	//   4:6  payload_len     u16 LE
	//   6:8  payload_offset  u16 LE
	//   8    msg_subtype     (mtin)
	//   9    log_level       (0 unless a Log message)
	//   10   has_serial
	//   11   has_ecu
	//   12:24 ecu, app, ctx ids (4 bytes each)
	//   24   mstp
	//   25   is_verbose
	//   26:32 reserved
	AnalysisRecordSize = 32

	// LogConfigSize is GenerateLogMessage's config block:
	//   0:12  ecu, app, ctx ids (4 bytes each)
	//   12    log_level
	//   13    verbose
	//   14    noar
	//   15    file_header
	//   16:20 timestamp u32 LE
	//   20:24 reserved
	LogConfigSize = 24

	// IdentityConfigSize is the sender identity block the service
	// generators take: ecu, app, ctx ids, 4 bytes each.
	IdentityConfigSize = 12

	// ServiceRecordSize is the record ParseServiceMessage writes:
	//   0:4   service_id  u32 LE
	//   4     is_response
	//   5     status
	//   6     mstp
	//   7     mtin
	//   8:20  ecu, app, ctx ids (4 bytes each)
	//   20:22 payload_len u16 LE
	//   22:24 payload_off u16 LE
	//   24:28 param1 u32 LE
	//   28:32 param2 u32 LE
	//   32    param3
	//   33:48 reserved
	ServiceRecordSize = 48
)

var recOrder = binary.LittleEndian

// Env binds a linear memory region to the codec. All offsets handed to
// the operations below refer to this region; offset 0 is the null
// pointer. Not safe for concurrent use.
type Env struct {
	heap    *arena.Arena
	counter util.WrapCounter8

	formattedPtr int32
	formattedLen int32
}

func NewEnv() *Env {
	return &Env{heap: arena.NewDefault()}
}

func NewEnvWithCapacity(capacity int) *Env {
	return &Env{heap: arena.New(capacity)}
}

// Memory exposes the backing region, so a host can copy data in and out.
func (e *Env) Memory() []byte {
	return e.heap.Buffer()
}

func (e *Env) Allocate(size int32) int32 {
	off := e.heap.Allocate(int(size))
	if off == arena.NullOffset {
		return StatusOutOfMemory
	}
	return int32(off)
}

func (e *Env) Deallocate(ptr int32) {
	e.heap.Deallocate(int(ptr))
}

func (e *Env) ResetAllocator() {
	e.heap.Reset()
	e.formattedPtr = 0
	e.formattedLen = 0
}

func (e *Env) GetHeapUsage() int32 {
	return int32(e.heap.Usage())
}

func (e *Env) GetHeapCapacity() int32 {
	return int32(e.heap.Capacity())
}

func (e *Env) GetVersion() int32 {
	return version.Packed()
}

func (e *Env) load(ptr, size int32) []byte {
	if ptr == 0 {
		return nil
	}
	return e.heap.Bytes(int(ptr), int(size))
}

func errCode(err error) int32 {
	if proto.IsIncomplete(err) || err == proto.ErrBufferTooSmall {
		return StatusBufferTooSmall
	}
	return StatusInvalidFormat
}

func idString(id []byte) string {
	return string(bytes.TrimRight(id[:4], "\x00"))
}

// AnalyzeMessage decodes the message at [ptr, ptr+length), allocates a
// 32-byte analysis record in the heap and returns its offset.
func (e *Env) AnalyzeMessage(ptr, length int32) int32 {
	buf := e.load(ptr, length)
	if buf == nil {
		return StatusNullPointer
	}
	var m proto.Message
	if _, err := m.Decode(buf); err != nil {
		return errCode(err)
	}

	off := e.heap.Allocate(AnalysisRecordSize)
	if off == arena.NullOffset {
		return StatusOutOfMemory
	}
	rec := e.heap.Bytes(off, AnalysisRecordSize)

	framing := 0
	if m.HasStorageHeader() {
		framing += 16
	}
	if m.HasSerialHeader() {
		framing += 4
	}
	payloadLen := len(m.GetPayload())
	headerLen := m.TotalSize() - framing - payloadLen

	// total_len is the standard header len field: headers plus payload,
	// excluding any framing prefix.
	recOrder.PutUint16(rec[0:2], m.GetStandardHeader().GetLength())
	recOrder.PutUint16(rec[2:4], uint16(headerLen))
	recOrder.PutUint16(rec[4:6], uint16(payloadLen))
	recOrder.PutUint16(rec[6:8], uint16(m.GetPayloadOffset()))
	if m.HasSerialHeader() {
		rec[10] = 1
	}
	if m.HasEcuID() {
		rec[11] = 1
		ecu := m.GetEcuID()
		copy(rec[12:16], ecu[:])
	}
	if m.HasExtendedHeader() {
		ext := m.GetExtendedHeader()
		rec[8] = ext.GetTypeInfo()
		if ext.GetMessageType() == proto.MessageTypeLog {
			rec[9] = uint8(ext.GetLogLevel())
		}
		app := ext.GetAppID()
		ctx := ext.GetContextID()
		copy(rec[16:20], app[:])
		copy(rec[20:24], ctx[:])
		rec[24] = uint8(ext.GetMessageType())
		if ext.IsVerbose() {
			rec[25] = 1
		}
	}
	return int32(off)
}

// GenerateLogMessage emits a Log message configured by the 24-byte
// block at cfgPtr, carrying the payload at payloadPtr, into the buffer
// at [outPtr, outPtr+outCap). Returns the size of the message.
func (e *Env) GenerateLogMessage(cfgPtr, payloadPtr, payloadLen, outPtr, outCap int32) int32 {
	cfg := e.load(cfgPtr, LogConfigSize)
	if cfg == nil {
		return StatusNullPointer
	}
	out := e.load(outPtr, outCap)
	if out == nil {
		return StatusNullPointer
	}
	var payload []byte
	if payloadLen > 0 {
		if payload = e.load(payloadPtr, payloadLen); payload == nil {
			return StatusNullPointer
		}
	}

	level := proto.LogLevel(cfg[12])
	if !level.IsValid() {
		return StatusInvalidFormat
	}
	b := proto.NewBuilder().
		WithEcuID(idString(cfg[0:4])).
		WithAppID(idString(cfg[4:8])).
		WithContextID(idString(cfg[8:12])).
		WithCounter(&e.counter)
	if ts := recOrder.Uint32(cfg[16:20]); ts != 0 {
		b = b.WithTimestamp(ts)
	}
	if cfg[15] != 0 {
		b = b.WithStorageHeader()
	}

	n, err := b.Log(out, level, payload, cfg[13] != 0, cfg[14])
	if err != nil {
		return errCode(err)
	}
	return int32(n)
}

func (e *Env) serviceBuilder(cfgPtr int32) (*service.Builder, int32) {
	cfg := e.load(cfgPtr, IdentityConfigSize)
	if cfg == nil {
		return nil, StatusNullPointer
	}
	b := service.NewBuilder().
		WithEcuID(idString(cfg[0:4])).
		WithAppID(idString(cfg[4:8])).
		WithContextID(idString(cfg[8:12]))
	b.MessageBuilder().WithCounter(&e.counter)
	return b, 0
}

// id at targetPtr, or the empty (wildcard) id when targetPtr is 0.
func (e *Env) targetID(targetPtr int32) (string, int32) {
	if targetPtr == 0 {
		return "", 0
	}
	id := e.load(targetPtr, 4)
	if id == nil {
		return "", StatusNullPointer
	}
	return idString(id), 0
}

func (e *Env) GenerateSetLogLevel(cfgPtr, appPtr, ctxPtr, level, outPtr, outCap int32) int32 {
	b, code := e.serviceBuilder(cfgPtr)
	if code != 0 {
		return code
	}
	out := e.load(outPtr, outCap)
	if out == nil {
		return StatusNullPointer
	}
	app, code := e.targetID(appPtr)
	if code != 0 {
		return code
	}
	ctx, code := e.targetID(ctxPtr)
	if code != 0 {
		return code
	}
	n, err := b.SetLogLevelRequest(out, app, ctx, int8(level))
	if err != nil {
		return errCode(err)
	}
	return int32(n)
}

func (e *Env) GenerateGetLogInfo(cfgPtr, options, appPtr, ctxPtr, outPtr, outCap int32) int32 {
	b, code := e.serviceBuilder(cfgPtr)
	if code != 0 {
		return code
	}
	out := e.load(outPtr, outCap)
	if out == nil {
		return StatusNullPointer
	}
	app, code := e.targetID(appPtr)
	if code != 0 {
		return code
	}
	ctx, code := e.targetID(ctxPtr)
	if code != 0 {
		return code
	}
	n, err := b.GetLogInfoRequest(out, uint8(options), app, ctx)
	if err != nil {
		return errCode(err)
	}
	return int32(n)
}

func (e *Env) GenerateSetDefaultLogLevel(cfgPtr, level, outPtr, outCap int32) int32 {
	b, code := e.serviceBuilder(cfgPtr)
	if code != 0 {
		return code
	}
	out := e.load(outPtr, outCap)
	if out == nil {
		return StatusNullPointer
	}
	n, err := b.SetDefaultLogLevelRequest(out, int8(level))
	if err != nil {
		return errCode(err)
	}
	return int32(n)
}

func (e *Env) GenerateGetDefaultLogLevel(cfgPtr, outPtr, outCap int32) int32 {
	return e.idOnlyService(cfgPtr, outPtr, outCap, (*service.Builder).GetDefaultLogLevelRequest)
}

func (e *Env) GenerateGetSoftwareVersion(cfgPtr, outPtr, outCap int32) int32 {
	return e.idOnlyService(cfgPtr, outPtr, outCap, (*service.Builder).GetSoftwareVersionRequest)
}

func (e *Env) idOnlyService(cfgPtr, outPtr, outCap int32, gen func(*service.Builder, []byte) (int, error)) int32 {
	b, code := e.serviceBuilder(cfgPtr)
	if code != 0 {
		return code
	}
	out := e.load(outPtr, outCap)
	if out == nil {
		return StatusNullPointer
	}
	n, err := gen(b, out)
	if err != nil {
		return errCode(err)
	}
	return int32(n)
}

// ParseServiceMessage decodes the control message at [ptr, ptr+length)
// and writes the 48-byte service record at outPtr.
func (e *Env) ParseServiceMessage(ptr, length, outPtr int32) int32 {
	buf := e.load(ptr, length)
	if buf == nil {
		return StatusNullPointer
	}
	out := e.load(outPtr, ServiceRecordSize)
	if out == nil {
		return StatusNullPointer
	}
	var m proto.Message
	if _, err := m.Decode(buf); err != nil {
		return errCode(err)
	}
	rec, err := service.Parse(&m)
	if err != nil {
		return errCode(err)
	}

	for i := range out {
		out[i] = 0
	}
	recOrder.PutUint32(out[0:4], uint32(rec.ServiceID))
	if rec.Response {
		out[4] = 1
	}
	out[5] = uint8(rec.Status)
	ext := m.GetExtendedHeader()
	out[6] = uint8(ext.GetMessageType())
	out[7] = ext.GetTypeInfo()
	if m.HasEcuID() {
		ecu := m.GetEcuID()
		copy(out[8:12], ecu[:])
	}
	app := ext.GetAppID()
	ctx := ext.GetContextID()
	copy(out[12:16], app[:])
	copy(out[16:20], ctx[:])
	recOrder.PutUint16(out[20:22], uint16(len(m.GetPayload())))
	recOrder.PutUint16(out[22:24], uint16(m.GetPayloadOffset()))
	recOrder.PutUint32(out[24:28], rec.Param1)
	recOrder.PutUint32(out[28:32], rec.Param2)
	out[32] = rec.Param3
	return ServiceRecordSize
}

// FormatVerbosePayload renders the verbose payload of the Log message
// at [ptr, ptr+length) into heap-resident text and returns its length;
// the text offset is read back with GetFormattedPayloadPtr.
func (e *Env) FormatVerbosePayload(ptr, length int32) int32 {
	buf := e.load(ptr, length)
	if buf == nil {
		return StatusNullPointer
	}
	var m proto.Message
	if _, err := m.Decode(buf); err != nil {
		return errCode(err)
	}
	if !m.IsVerboseLog() {
		return StatusInvalidFormat
	}
	text, err := verbose.Format(m.GetPayload(), m.GetHeaderType().PayloadBigEndian())
	if err != nil {
		return StatusInvalidFormat
	}
	if len(text) == 0 {
		e.formattedPtr = 0
		e.formattedLen = 0
		return 0
	}
	off := e.heap.Allocate(len(text))
	if off == arena.NullOffset {
		return StatusOutOfMemory
	}
	copy(e.heap.Bytes(off, len(text)), text)
	e.formattedPtr = int32(off)
	e.formattedLen = int32(len(text))
	return e.formattedLen
}

// GetFormattedPayloadPtr returns the heap offset of the text produced
// by the last FormatVerbosePayload call, or 0 when there is none.
func (e *Env) GetFormattedPayloadPtr() int32 {
	return e.formattedPtr
}
