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
	"fmt"
	"time"

	"dlt/pkg/provider"
	"dlt/pkg/proto"
	"dlt/pkg/service"
	"dlt/pkg/util"
	"dlt/pkg/verbose"
)

// generator produces one synthetic message per Next call, cycling
// through text logs, typed verbose logs, network traces and control
// requests so captures exercise every message type.
type generator struct {
	builder *proto.Builder
	svc     *service.Builder
	enc     *verbose.Encoder
	payload []byte
	seq     int
}

func newGenerator(ecu, app, ctx string, storage bool) (*generator, error) {
	start := time.Now()
	reg := &provider.Registry{}
	err := reg.BindTimestamp(provider.TimestampFunc(func() uint32 {
		// header timestamps are in 0.1 ms units
		return uint32(time.Since(start).Microseconds() / 100)
	}))
	if err != nil {
		return nil, err
	}
	counter := &util.WrapCounter8{}

	b := proto.NewBuilder().
		WithEcuID(ecu).
		WithAppID(app).
		WithContextID(ctx).
		WithProviders(reg).
		WithCounter(counter)
	svc := service.NewBuilder().
		WithEcuID(ecu).
		WithAppID(app).
		WithContextID(ctx)
	svc.MessageBuilder().WithProviders(reg).WithCounter(counter)
	if storage {
		b.WithStorageHeader()
		svc.WithStorageHeader()
	} else {
		b.WithSerialHeader()
		svc.WithSerialHeader()
	}

	payload := make([]byte, 512)
	return &generator{
		builder: b,
		svc:     svc,
		enc:     verbose.NewEncoder(payload, false),
		payload: payload,
	}, nil
}

// Next writes the next message into dst and returns its size.
func (g *generator) Next(dst []byte) (int, error) {
	seq := g.seq
	g.seq++

	switch seq % 4 {
	case 0:
		text := fmt.Sprintf("synthetic message %d", seq)
		return g.builder.LogText(dst, proto.LogLevelInfo, []byte(text))
	case 1:
		g.enc.Reset()
		args := []verbose.Argument{
			verbose.Uint32(uint32(seq)).Named("seq"),
			verbose.Float32(float32(seq) * 0.5).Named("temperature").WithUnit("Celsius"),
			verbose.Bool(seq%8 == 1).Named("alarm"),
		}
		for _, a := range args {
			if err := g.enc.Add(a); err != nil {
				return 0, err
			}
		}
		return g.builder.Log(dst, proto.LogLevelDebug, g.enc.Bytes(), true, uint8(g.enc.Count()))
	case 2:
		payload := []byte{0xDE, 0xAD, byte(seq >> 8), byte(seq)}
		return g.builder.Build(dst, payload, proto.MessageTypeNetworkTrace,
			uint8(proto.TraceTypeState), false, 0)
	default:
		return g.svc.GetSoftwareVersionRequest(dst)
	}
}
