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

package service

import (
	"bytes"
	"testing"

	"dlt/pkg/proto"
)

func generate(t *testing.T, gen func(*Builder, []byte) (int, error)) *proto.Message {
	t.Helper()
	b := NewBuilder().WithEcuID("ECU1").WithAppID("SYS").WithContextID("MGMT")
	buf := make([]byte, 2048)
	n, err := gen(b, buf)
	if err != nil {
		t.Fatal(err)
	}
	var m proto.Message
	if _, err = m.DecodeCopy(buf[:n]); err != nil {
		t.Fatal(err)
	}
	return &m
}

func TestSetLogLevelRequestLayout(t *testing.T) {
	m := generate(t, func(b *Builder, buf []byte) (int, error) {
		return b.SetLogLevelRequest(buf, "APP1", "CTX1", 4)
	})
	if !m.IsControl() {
		t.Fatal("expect control message")
	}
	ext := m.GetExtendedHeader()
	if ext.GetControlType() != proto.ControlTypeRequest {
		t.Error("expect request mtin")
	}
	if ext.IsVerbose() || ext.GetArgCount() != 0 {
		t.Error("control messages are non-verbose with noar 0")
	}

	p := m.GetPayload()
	if len(p) != 17 {
		t.Fatalf("expect 17-byte payload, got %d", len(p))
	}
	if SvcByteOrder.Uint32(p[0:4]) != uint32(ServiceSetLogLevel) {
		t.Errorf("bad service id: %x", p[0:4])
	}
	if string(p[4:8]) != "APP1" || string(p[8:12]) != "CTX1" {
		t.Errorf("bad target ids: %q %q", p[4:8], p[8:12])
	}
	if p[12] != 4 {
		t.Errorf("bad level byte: %d", p[12])
	}
	if !bytes.Equal(p[13:17], []byte{0x72, 0x65, 0x6D, 0x6F}) {
		t.Errorf("bad reserved sentinel: %x", p[13:17])
	}

	rec, err := Parse(m)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ServiceID != ServiceSetLogLevel || rec.Response {
		t.Error("bad record identity")
	}
	if IDFromParam(rec.Param1) != proto.MakeID("APP1") ||
		IDFromParam(rec.Param2) != proto.MakeID("CTX1") {
		t.Error("bad id params")
	}
	if rec.Param3 != 4 {
		t.Errorf("expect level 4, got %d", rec.Param3)
	}
}

// Every sentinel-bearing layout must carry "remo" exactly at its
// documented offset.
func TestReservedSentinelOffsets(t *testing.T) {
	cases := []struct {
		name string
		id   ServiceID
		gen  func(*Builder, []byte) (int, error)
	}{
		{"SetLogLevel", ServiceSetLogLevel, func(b *Builder, buf []byte) (int, error) {
			return b.SetLogLevelRequest(buf, "APP1", "CTX1", -1)
		}},
		{"SetTraceStatus", ServiceSetTraceStatus, func(b *Builder, buf []byte) (int, error) {
			return b.SetTraceStatusRequest(buf, "", "", 1)
		}},
		{"GetLogInfo", ServiceGetLogInfo, func(b *Builder, buf []byte) (int, error) {
			return b.GetLogInfoRequest(buf, 6, "APP1", "")
		}},
		{"SetDefaultLogLevel", ServiceSetDefaultLogLevel, func(b *Builder, buf []byte) (int, error) {
			return b.SetDefaultLogLevelRequest(buf, 3)
		}},
		{"SetDefaultTraceStatus", ServiceSetDefaultTraceStatus, func(b *Builder, buf []byte) (int, error) {
			return b.SetDefaultTraceStatusRequest(buf, 0)
		}},
	}
	for _, c := range cases {
		m := generate(t, c.gen)
		off := ReservedOffset(c.id, false)
		if off < 0 {
			t.Fatalf("%s: expected a documented offset", c.name)
		}
		p := m.GetPayload()
		if !bytes.Equal(p[off:off+4], ReservedSentinel[:]) {
			t.Errorf("%s: sentinel missing at offset %d: %x", c.name, off, p[off:off+4])
		}
	}
}

// A tampered sentinel is opaque data: structurally present, content
// never used to reject.
func TestSentinelContentOpaque(t *testing.T) {
	b := NewBuilder()
	buf := make([]byte, 256)
	n, err := b.SetLogLevelRequest(buf, "APP1", "CTX1", 2)
	if err != nil {
		t.Fatal(err)
	}
	var m proto.Message
	if _, err = m.Decode(buf[:n]); err != nil {
		t.Fatal(err)
	}
	p := m.GetPayload()
	copy(p[13:17], []byte("XXXX"))
	if _, err = Parse(&m); err != nil {
		t.Errorf("tampered sentinel must still parse: %v", err)
	}
}

func TestIDOnlyRequests(t *testing.T) {
	gens := map[ServiceID]func(*Builder, []byte) (int, error){
		ServiceGetDefaultLogLevel:    (*Builder).GetDefaultLogLevelRequest,
		ServiceStoreConfiguration:    (*Builder).StoreConfigurationRequest,
		ServiceResetToFactoryDefault: (*Builder).ResetToFactoryDefaultRequest,
		ServiceGetSoftwareVersion:    (*Builder).GetSoftwareVersionRequest,
		ServiceGetDefaultTraceStatus: (*Builder).GetDefaultTraceStatusRequest,
		ServiceGetLogChannelNames:    (*Builder).GetLogChannelNamesRequest,
		ServiceSyncTimeStamp:         (*Builder).SyncTimeStampRequest,
	}
	for id, gen := range gens {
		m := generate(t, gen)
		if len(m.GetPayload()) != 4 {
			t.Errorf("%s: expect id-only payload", id)
		}
		rec, err := Parse(m)
		if err != nil {
			t.Fatal(err)
		}
		if rec.ServiceID != id {
			t.Errorf("expect %s, got %s", id, rec.ServiceID)
		}
	}
}

func TestStatusResponse(t *testing.T) {
	m := generate(t, func(b *Builder, buf []byte) (int, error) {
		return b.StatusResponse(buf, ServiceSetLogLevel, StatusNotSupported)
	})
	rec, err := Parse(m)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Response || rec.Status != StatusNotSupported {
		t.Errorf("bad response record: %+v", rec)
	}
}

func TestGetSoftwareVersionResponse(t *testing.T) {
	m := generate(t, func(b *Builder, buf []byte) (int, error) {
		return b.GetSoftwareVersionResponse(buf, StatusOK, "dlt 1.2.3")
	})
	p := m.GetPayload()
	// length counts the terminator
	if SvcByteOrder.Uint32(p[5:9]) != uint32(len("dlt 1.2.3")+1) {
		t.Errorf("bad version length: %d", SvcByteOrder.Uint32(p[5:9]))
	}
	if p[len(p)-1] != 0 {
		t.Error("version must be terminated")
	}
	rec, err := Parse(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(rec.Data) != "dlt 1.2.3" {
		t.Errorf("bad version: %q", rec.Data)
	}
}

func TestBufferOverflowResponse(t *testing.T) {
	m := generate(t, func(b *Builder, buf []byte) (int, error) {
		return b.BufferOverflowResponse(buf, StatusOK, 1234)
	})
	rec, err := Parse(m)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Param1 != 1234 {
		t.Errorf("expect counter 1234, got %d", rec.Param1)
	}
}

func TestInjectionRequest(t *testing.T) {
	data := []byte("custom command")
	m := generate(t, func(b *Builder, buf []byte) (int, error) {
		return b.InjectionRequest(buf, 0x1001, data)
	})
	rec, err := Parse(m)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.ServiceID.IsInjection() {
		t.Error("expect injection id")
	}
	if rec.Param1 != uint32(len(data)) || !bytes.Equal(rec.Data, data) {
		t.Errorf("bad injection data: %q", rec.Data)
	}

	b := NewBuilder()
	if _, err = b.InjectionRequest(make([]byte, 64), ServiceSetLogLevel, nil); err == nil {
		t.Error("ids below the injection range must be rejected")
	}
}

func TestUnknownServiceID(t *testing.T) {
	var payload [4]byte
	SvcByteOrder.PutUint32(payload[:], 0x99)
	if _, err := ParsePayload(payload[:], false); err != ErrUnknownService {
		t.Errorf("expect ErrUnknownService, got %v", err)
	}
	if _, err := ParsePayload([]byte{0x00, 0x00}, false); err != ErrShortPayload {
		t.Errorf("expect ErrShortPayload, got %v", err)
	}
}

func TestLogInfoRoundTrip(t *testing.T) {
	apps := []AppInfo{
		{
			ID: proto.MakeID("APP1"),
			Contexts: []ContextInfo{
				{ID: proto.MakeID("CTX1"), LogLevel: proto.LogLevelInfo, TraceStatus: 1},
				{ID: proto.MakeID("CTX2"), LogLevel: proto.LogLevelDebug, TraceStatus: 0},
			},
		},
		{
			ID: proto.MakeID("APP2"),
			Contexts: []ContextInfo{
				{ID: proto.MakeID("CTX3"), LogLevel: proto.LogLevelWarn, TraceStatus: 1},
			},
		},
	}

	body := make([]byte, 1024)
	w := NewLogInfoWriter(body, false)
	for _, app := range apps {
		if err := w.AddApp(app); err != nil {
			t.Fatal(err)
		}
	}

	m := generate(t, func(b *Builder, buf []byte) (int, error) {
		return b.GetLogInfoResponse(buf, StatusWithLogLevelAndTraceStatus, w.Bytes())
	})
	rec, err := Parse(m)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != StatusWithLogLevelAndTraceStatus {
		t.Errorf("bad status: %s", rec.Status)
	}
	// the sentinel closes the payload after the body
	p := m.GetPayload()
	if !bytes.Equal(p[len(p)-4:], ReservedSentinel[:]) {
		t.Error("expect sentinel at payload tail")
	}

	got, err := NewLogInfoParser(rec.Data, false).Apps()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expect 2 apps, got %d", len(got))
	}
	if got[0].ID != apps[0].ID || len(got[0].Contexts) != 2 {
		t.Errorf("bad first app: %+v", got[0])
	}
	if got[0].Contexts[1].LogLevel != proto.LogLevelDebug {
		t.Error("bad context level")
	}
	if got[1].Contexts[0].ID != proto.MakeID("CTX3") {
		t.Error("bad second app context")
	}
}

func TestLogInfoWithDescriptions(t *testing.T) {
	app := AppInfo{
		ID:          proto.MakeID("APP1"),
		Description: "demo app",
		Contexts: []ContextInfo{
			{ID: proto.MakeID("CTX1"), LogLevel: proto.LogLevelInfo, TraceStatus: 0, Description: "main"},
		},
	}
	body := make([]byte, 1024)
	w := NewLogInfoWriter(body, true)
	if err := w.AddApp(app); err != nil {
		t.Fatal(err)
	}

	got, err := NewLogInfoParser(w.Bytes(), true).Apps()
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Description != "demo app" || got[0].Contexts[0].Description != "main" {
		t.Errorf("descriptions lost: %+v", got[0])
	}
}

func TestLogInfoZeroMatches(t *testing.T) {
	m := generate(t, func(b *Builder, buf []byte) (int, error) {
		return b.GetLogInfoResponse(buf, StatusNoMatchingContexts, nil)
	})
	rec, err := Parse(m)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != StatusNoMatchingContexts {
		t.Errorf("expect no-matching-contexts, got %s", rec.Status)
	}
	if len(rec.Data) != 0 {
		t.Errorf("expect empty body, got %d bytes", len(rec.Data))
	}
}

func TestLogInfoOverflowRollback(t *testing.T) {
	small := make([]byte, 20)
	w := NewLogInfoWriter(small, false)
	first := AppInfo{ID: proto.MakeID("APP1"), Contexts: []ContextInfo{
		{ID: proto.MakeID("CTX1"), LogLevel: proto.LogLevelInfo},
	}}
	if err := w.AddApp(first); err != nil {
		t.Fatal(err)
	}
	lenBefore := w.Len()

	big := AppInfo{ID: proto.MakeID("APP2"), Contexts: make([]ContextInfo, 10)}
	if err := w.AddApp(big); err != ErrLogInfoOverflow {
		t.Fatalf("expect overflow, got %v", err)
	}
	if w.Len() != lenBefore {
		t.Error("failed add must roll back")
	}

	// the partial body still parses: one complete app
	got, err := NewLogInfoParser(w.Bytes(), false).Apps()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != proto.MakeID("APP1") {
		t.Errorf("bad partial body: %+v", got)
	}
}

func TestParamMeaningTable(t *testing.T) {
	p1, p2, p3 := ParamMeaning(ServiceSetLogLevel, false)
	if p1 != "app id" || p2 != "context id" || p3 != "log level" {
		t.Errorf("bad meanings: %q %q %q", p1, p2, p3)
	}
	p1, _, _ = ParamMeaning(0x2000, false)
	if p1 != "data length" {
		t.Errorf("injection ids share one entry, got %q", p1)
	}
}
