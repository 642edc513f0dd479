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
	"errors"

	"dlt/pkg/proto"
)

// GetLogInfo response body layout:
//
//	app_count u16
//	per app:  app_id(4)  ctx_count u16
//	  per context: ctx_id(4) log_level(1) trace_status(1)
//	               [options=7: desc_len u16, desc]
//	  [options=7: app_desc_len u16, app_desc]
//
// The body sits between the status byte and the closing reserved field.

var ErrLogInfoOverflow = proto.NewProtocolError(errors.New("log info body overflow"))

type ContextInfo struct {
	ID          [4]byte
	LogLevel    proto.LogLevel
	TraceStatus uint8
	Description string
}

type AppInfo struct {
	ID          [4]byte
	Contexts    []ContextInfo
	Description string
}

// LogInfoWriter builds a response body incrementally into a caller
// buffer. When an entry does not fit it reports ErrLogInfoOverflow and
// keeps the body consistent up to the last complete application, so the
// caller can still send what fits under StatusOverflow.
type LogInfoWriter struct {
	buf              []byte
	pos              int
	withDescriptions bool

	appCountPos int
	appCount    uint16
}

func NewLogInfoWriter(buf []byte, withDescriptions bool) *LogInfoWriter {
	return &LogInfoWriter{buf: buf, withDescriptions: withDescriptions, appCountPos: -1}
}

func (w *LogInfoWriter) Len() int {
	return w.pos
}

func (w *LogInfoWriter) Bytes() []byte {
	return w.buf[:w.pos]
}

// AddApp writes one application with all of its contexts. On overflow
// the writer rolls back to the previous complete application.
func (w *LogInfoWriter) AddApp(app AppInfo) error {
	if w.appCountPos < 0 {
		if len(w.buf) < 2 {
			return ErrLogInfoOverflow
		}
		w.appCountPos = w.pos
		w.pos += 2
		SvcByteOrder.PutUint16(w.buf[w.appCountPos:], 0)
	}

	mark := w.pos
	err := w.writeApp(app)
	if err != nil {
		w.pos = mark
		return err
	}
	w.appCount++
	SvcByteOrder.PutUint16(w.buf[w.appCountPos:], w.appCount)
	return nil
}

func (w *LogInfoWriter) writeApp(app AppInfo) error {
	if err := w.writeBytes(app.ID[:]); err != nil {
		return err
	}
	if len(app.Contexts) > 0xFFFF {
		return ErrLogInfoOverflow
	}
	if err := w.writeU16(uint16(len(app.Contexts))); err != nil {
		return err
	}
	for i := range app.Contexts {
		ctx := &app.Contexts[i]
		if err := w.writeBytes(ctx.ID[:]); err != nil {
			return err
		}
		if err := w.writeBytes([]byte{uint8(ctx.LogLevel), ctx.TraceStatus}); err != nil {
			return err
		}
		if w.withDescriptions {
			if err := w.writeDescription(ctx.Description); err != nil {
				return err
			}
		}
	}
	if w.withDescriptions {
		return w.writeDescription(app.Description)
	}
	return nil
}

func (w *LogInfoWriter) writeDescription(desc string) error {
	if len(desc) > 0xFFFF {
		return ErrLogInfoOverflow
	}
	if err := w.writeU16(uint16(len(desc))); err != nil {
		return err
	}
	return w.writeBytes([]byte(desc))
}

func (w *LogInfoWriter) writeU16(v uint16) error {
	if w.pos+2 > len(w.buf) {
		return ErrLogInfoOverflow
	}
	SvcByteOrder.PutUint16(w.buf[w.pos:], v)
	w.pos += 2
	return nil
}

func (w *LogInfoWriter) writeBytes(b []byte) error {
	if w.pos+len(b) > len(w.buf) {
		return ErrLogInfoOverflow
	}
	copy(w.buf[w.pos:], b)
	w.pos += len(b)
	return nil
}

// LogInfoParser decodes a response body incrementally.
type LogInfoParser struct {
	data             []byte
	pos              int
	withDescriptions bool
}

func NewLogInfoParser(data []byte, withDescriptions bool) *LogInfoParser {
	return &LogInfoParser{data: data, withDescriptions: withDescriptions}
}

func (p *LogInfoParser) More() bool {
	return p.pos < len(p.data)
}

func (p *LogInfoParser) AppCount() (uint16, error) {
	return p.readU16()
}

// NextApp reads one application and its contexts.
func (p *LogInfoParser) NextApp() (AppInfo, error) {
	var app AppInfo
	id, err := p.readBytes(4)
	if err != nil {
		return app, err
	}
	copy(app.ID[:], id)
	ctxCount, err := p.readU16()
	if err != nil {
		return app, err
	}
	app.Contexts = make([]ContextInfo, 0, ctxCount)
	for i := 0; i < int(ctxCount); i++ {
		var ctx ContextInfo
		cid, err := p.readBytes(4)
		if err != nil {
			return app, err
		}
		copy(ctx.ID[:], cid)
		lv, err := p.readBytes(2)
		if err != nil {
			return app, err
		}
		ctx.LogLevel = proto.LogLevel(lv[0])
		ctx.TraceStatus = lv[1]
		if p.withDescriptions {
			if ctx.Description, err = p.readDescription(); err != nil {
				return app, err
			}
		}
		app.Contexts = append(app.Contexts, ctx)
	}
	if p.withDescriptions {
		if app.Description, err = p.readDescription(); err != nil {
			return app, err
		}
	}
	return app, nil
}

// Apps decodes the whole body at once.
func (p *LogInfoParser) Apps() ([]AppInfo, error) {
	count, err := p.AppCount()
	if err != nil {
		return nil, err
	}
	apps := make([]AppInfo, 0, count)
	for i := 0; i < int(count); i++ {
		app, err := p.NextApp()
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}

func (p *LogInfoParser) readDescription() (string, error) {
	n, err := p.readU16()
	if err != nil {
		return "", err
	}
	b, err := p.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *LogInfoParser) readU16() (uint16, error) {
	if p.pos+2 > len(p.data) {
		return 0, ErrShortPayload
	}
	v := SvcByteOrder.Uint16(p.data[p.pos:])
	p.pos += 2
	return v, nil
}

func (p *LogInfoParser) readBytes(n int) ([]byte, error) {
	if p.pos+n > len(p.data) {
		return nil, ErrShortPayload
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}
