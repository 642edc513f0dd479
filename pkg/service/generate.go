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
	"dlt/pkg/proto"
)

// Builder generates control messages. It wraps the message builder, so
// identity and framing configuration behave the same as for log
// messages; control payloads are always non-verbose with noar 0.
type Builder struct {
	mb *proto.Builder
}

func NewBuilder() *Builder {
	return &Builder{mb: proto.NewBuilder()}
}

func (b *Builder) WithEcuID(id string) *Builder {
	b.mb.WithEcuID(id)
	return b
}

func (b *Builder) WithAppID(id string) *Builder {
	b.mb.WithAppID(id)
	return b
}

func (b *Builder) WithContextID(id string) *Builder {
	b.mb.WithContextID(id)
	return b
}

func (b *Builder) WithSessionID(id uint32) *Builder {
	b.mb.WithSessionID(id)
	return b
}

func (b *Builder) WithTimestamp(tmsp uint32) *Builder {
	b.mb.WithTimestamp(tmsp)
	return b
}

func (b *Builder) WithSerialHeader() *Builder {
	b.mb.WithSerialHeader()
	return b
}

func (b *Builder) WithStorageHeader() *Builder {
	b.mb.WithStorageHeader()
	return b
}

func (b *Builder) MessageBuilder() *proto.Builder {
	return b.mb
}

func (b *Builder) request(dst []byte, payload []byte) (int, error) {
	return b.mb.Build(dst, payload, proto.MessageTypeControl,
		uint8(proto.ControlTypeRequest), false, 0)
}

func (b *Builder) response(dst []byte, payload []byte) (int, error) {
	return b.mb.Build(dst, payload, proto.MessageTypeControl,
		uint8(proto.ControlTypeResponse), false, 0)
}

func putServiceID(payload []byte, id ServiceID) {
	SvcByteOrder.PutUint32(payload, uint32(id))
}

// idOnlyRequest covers the services whose request is just the id.
func (b *Builder) idOnlyRequest(dst []byte, id ServiceID) (int, error) {
	var payload [4]byte
	putServiceID(payload[:], id)
	return b.request(dst, payload[:])
}

// SetLogLevelRequest targets one app/context pair, or all when the ids
// are empty. Level 0 blocks, -1 restores the default, 1-6 select.
func (b *Builder) SetLogLevelRequest(dst []byte, app, ctx string, level int8) (int, error) {
	return b.appCtxLevelRequest(dst, ServiceSetLogLevel, app, ctx, level)
}

// SetTraceStatusRequest mirrors SetLogLevelRequest for trace status:
// 0 off, 1 on, -1 default.
func (b *Builder) SetTraceStatusRequest(dst []byte, app, ctx string, status int8) (int, error) {
	return b.appCtxLevelRequest(dst, ServiceSetTraceStatus, app, ctx, status)
}

func (b *Builder) appCtxLevelRequest(dst []byte, id ServiceID, app, ctx string, v int8) (int, error) {
	var payload [17]byte
	putServiceID(payload[0:4], id)
	appID := proto.MakeID(app)
	ctxID := proto.MakeID(ctx)
	copy(payload[4:8], appID[:])
	copy(payload[8:12], ctxID[:])
	payload[12] = uint8(v)
	copy(payload[13:17], ReservedSentinel[:])
	return b.request(dst, payload[:])
}

// GetLogInfoRequest asks for registered app/context info. options is 6
// for levels and trace status, 7 to add descriptions; empty ids match
// everything.
func (b *Builder) GetLogInfoRequest(dst []byte, options uint8, app, ctx string) (int, error) {
	var payload [17]byte
	putServiceID(payload[0:4], ServiceGetLogInfo)
	payload[4] = options
	appID := proto.MakeID(app)
	ctxID := proto.MakeID(ctx)
	copy(payload[5:9], appID[:])
	copy(payload[9:13], ctxID[:])
	copy(payload[13:17], ReservedSentinel[:])
	return b.request(dst, payload[:])
}

func (b *Builder) GetDefaultLogLevelRequest(dst []byte) (int, error) {
	return b.idOnlyRequest(dst, ServiceGetDefaultLogLevel)
}

func (b *Builder) StoreConfigurationRequest(dst []byte) (int, error) {
	return b.idOnlyRequest(dst, ServiceStoreConfiguration)
}

func (b *Builder) ResetToFactoryDefaultRequest(dst []byte) (int, error) {
	return b.idOnlyRequest(dst, ServiceResetToFactoryDefault)
}

func (b *Builder) GetSoftwareVersionRequest(dst []byte) (int, error) {
	return b.idOnlyRequest(dst, ServiceGetSoftwareVersion)
}

func (b *Builder) GetDefaultTraceStatusRequest(dst []byte) (int, error) {
	return b.idOnlyRequest(dst, ServiceGetDefaultTraceStatus)
}

func (b *Builder) GetLogChannelNamesRequest(dst []byte) (int, error) {
	return b.idOnlyRequest(dst, ServiceGetLogChannelNames)
}

func (b *Builder) SyncTimeStampRequest(dst []byte) (int, error) {
	return b.idOnlyRequest(dst, ServiceSyncTimeStamp)
}

func (b *Builder) SetMessageFilteringRequest(dst []byte, enabled bool) (int, error) {
	var payload [5]byte
	putServiceID(payload[0:4], ServiceSetMessageFiltering)
	if enabled {
		payload[4] = 1
	}
	return b.request(dst, payload[:])
}

func (b *Builder) SetDefaultLogLevelRequest(dst []byte, level int8) (int, error) {
	return b.defaultLevelRequest(dst, ServiceSetDefaultLogLevel, level)
}

func (b *Builder) SetDefaultTraceStatusRequest(dst []byte, status int8) (int, error) {
	return b.defaultLevelRequest(dst, ServiceSetDefaultTraceStatus, status)
}

func (b *Builder) defaultLevelRequest(dst []byte, id ServiceID, v int8) (int, error) {
	var payload [9]byte
	putServiceID(payload[0:4], id)
	payload[4] = uint8(v)
	copy(payload[5:9], ReservedSentinel[:])
	return b.request(dst, payload[:])
}

func (b *Builder) GetTraceStatusRequest(dst []byte, app, ctx string) (int, error) {
	var payload [12]byte
	putServiceID(payload[0:4], ServiceGetTraceStatus)
	appID := proto.MakeID(app)
	ctxID := proto.MakeID(ctx)
	copy(payload[4:8], appID[:])
	copy(payload[8:12], ctxID[:])
	return b.request(dst, payload[:])
}

func (b *Builder) SetLogChannelAssignmentRequest(dst []byte, app, ctx, channel string) (int, error) {
	var payload [16]byte
	putServiceID(payload[0:4], ServiceSetLogChannelAssignment)
	appID := proto.MakeID(app)
	ctxID := proto.MakeID(ctx)
	chID := proto.MakeID(channel)
	copy(payload[4:8], appID[:])
	copy(payload[8:12], ctxID[:])
	copy(payload[12:16], chID[:])
	return b.request(dst, payload[:])
}

func (b *Builder) SetLogChannelThresholdRequest(dst []byte, channel string, threshold int8) (int, error) {
	var payload [9]byte
	putServiceID(payload[0:4], ServiceSetLogChannelThreshold)
	chID := proto.MakeID(channel)
	copy(payload[4:8], chID[:])
	payload[8] = uint8(threshold)
	return b.request(dst, payload[:])
}

func (b *Builder) GetLogChannelThresholdRequest(dst []byte, channel string) (int, error) {
	var payload [8]byte
	putServiceID(payload[0:4], ServiceGetLogChannelThreshold)
	chID := proto.MakeID(channel)
	copy(payload[4:8], chID[:])
	return b.request(dst, payload[:])
}

// InjectionRequest sends application-defined data under an id from the
// injection range.
func (b *Builder) InjectionRequest(dst []byte, id ServiceID, data []byte) (int, error) {
	if !id.IsInjection() {
		return 0, proto.ErrInvalidFormat
	}
	payload := make([]byte, 8+len(data))
	putServiceID(payload[0:4], id)
	SvcByteOrder.PutUint32(payload[4:8], uint32(len(data)))
	copy(payload[8:], data)
	return b.request(dst, payload)
}

// StatusResponse is the plain ack form shared by most services.
func (b *Builder) StatusResponse(dst []byte, id ServiceID, status Status) (int, error) {
	var payload [5]byte
	putServiceID(payload[0:4], id)
	payload[4] = uint8(status)
	return b.response(dst, payload[:])
}

func (b *Builder) GetDefaultLogLevelResponse(dst []byte, status Status, level proto.LogLevel) (int, error) {
	return b.statusByteResponse(dst, ServiceGetDefaultLogLevel, status, uint8(level))
}

func (b *Builder) GetDefaultTraceStatusResponse(dst []byte, status Status, traceStatus uint8) (int, error) {
	return b.statusByteResponse(dst, ServiceGetDefaultTraceStatus, status, traceStatus)
}

func (b *Builder) GetTraceStatusResponse(dst []byte, status Status, traceStatus uint8) (int, error) {
	return b.statusByteResponse(dst, ServiceGetTraceStatus, status, traceStatus)
}

func (b *Builder) GetLogChannelThresholdResponse(dst []byte, status Status, threshold uint8) (int, error) {
	return b.statusByteResponse(dst, ServiceGetLogChannelThreshold, status, threshold)
}

func (b *Builder) statusByteResponse(dst []byte, id ServiceID, status Status, v uint8) (int, error) {
	var payload [6]byte
	putServiceID(payload[0:4], id)
	payload[4] = uint8(status)
	payload[5] = v
	return b.response(dst, payload[:])
}

// GetSoftwareVersionResponse carries a length-prefixed version string;
// the u32 length counts the terminator.
func (b *Builder) GetSoftwareVersionResponse(dst []byte, status Status, version string) (int, error) {
	payload := make([]byte, 9+len(version)+1)
	putServiceID(payload[0:4], ServiceGetSoftwareVersion)
	payload[4] = uint8(status)
	SvcByteOrder.PutUint32(payload[5:9], uint32(len(version)+1))
	copy(payload[9:], version)
	return b.response(dst, payload)
}

func (b *Builder) BufferOverflowResponse(dst []byte, status Status, counter uint32) (int, error) {
	var payload [9]byte
	putServiceID(payload[0:4], ServiceBufferOverflowNotification)
	payload[4] = uint8(status)
	SvcByteOrder.PutUint32(payload[5:9], counter)
	return b.response(dst, payload[:])
}

func (b *Builder) SyncTimeStampResponse(dst []byte, status Status, timestamp uint32) (int, error) {
	var payload [9]byte
	putServiceID(payload[0:4], ServiceSyncTimeStamp)
	payload[4] = uint8(status)
	SvcByteOrder.PutUint32(payload[5:9], timestamp)
	return b.response(dst, payload[:])
}

// GetLogChannelNamesResponse lists up to 255 channel ids.
func (b *Builder) GetLogChannelNamesResponse(dst []byte, status Status, channels []string) (int, error) {
	if len(channels) > 0xFF {
		return 0, proto.ErrInvalidFormat
	}
	payload := make([]byte, 6+4*len(channels))
	putServiceID(payload[0:4], ServiceGetLogChannelNames)
	payload[4] = uint8(status)
	payload[5] = uint8(len(channels))
	for i, ch := range channels {
		id := proto.MakeID(ch)
		copy(payload[6+4*i:], id[:])
	}
	return b.response(dst, payload)
}

// GetLogInfoResponse wraps a pre-built info body (see LogInfoWriter) and
// closes the payload with the reserved sentinel. A zero-match reply is
// StatusNoMatchingContexts with an empty body.
func (b *Builder) GetLogInfoResponse(dst []byte, status Status, infoBody []byte) (int, error) {
	payload := make([]byte, 9+len(infoBody))
	putServiceID(payload[0:4], ServiceGetLogInfo)
	payload[4] = uint8(status)
	copy(payload[5:], infoBody)
	copy(payload[5+len(infoBody):], ReservedSentinel[:])
	return b.response(dst, payload)
}
