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

var (
	ErrNotControl     = proto.NewProtocolError(errors.New("not a control message"))
	ErrUnknownService = proto.NewProtocolError(errors.New("unknown service id"))
	ErrShortPayload   = proto.NewProtocolError(errors.New("service payload too short"))
	ErrInvalidStatus  = proto.NewProtocolError(errors.New("invalid response status"))
)

// Record is the uniform parse result. The generic params carry the
// service-specific values; ParamMeaning documents the mapping. ID-typed
// params (app/context/channel) hold the 4 id bytes big-endian, see
// IDFromParam.
type Record struct {
	ServiceID ServiceID
	Response  bool
	Status    Status
	Param1    uint32
	Param2    uint32
	Param3    uint8

	// Data is the variable part where one exists: the GetLogInfo body,
	// the software version string, injection data, or the channel list.
	Data []byte
}

type paramMeaningT struct {
	p1, p2, p3 string
}

// request param meanings; id-only requests carry none
var requestParamMap map[ServiceID]paramMeaningT = map[ServiceID]paramMeaningT{
	ServiceSetLogLevel:             {"app id", "context id", "log level"},
	ServiceSetTraceStatus:          {"app id", "context id", "trace status"},
	ServiceGetLogInfo:              {"app id", "context id", "options"},
	ServiceSetMessageFiltering:     {"", "", "filtering enabled"},
	ServiceSetDefaultLogLevel:      {"", "", "log level"},
	ServiceSetDefaultTraceStatus:   {"", "", "trace status"},
	ServiceGetTraceStatus:          {"app id", "context id", ""},
	ServiceSetLogChannelAssignment: {"app id", "context id", ""},
	ServiceSetLogChannelThreshold:  {"channel id", "", "threshold"},
	ServiceGetLogChannelThreshold:  {"channel id", "", ""},
	ServiceCallSWCInjection:        {"data length", "", ""},
}

var responseParamMap map[ServiceID]paramMeaningT = map[ServiceID]paramMeaningT{
	ServiceGetDefaultLogLevel:         {"", "", "log level"},
	ServiceGetDefaultTraceStatus:      {"", "", "trace status"},
	ServiceGetTraceStatus:             {"", "", "trace status"},
	ServiceGetLogChannelThreshold:     {"", "", "threshold"},
	ServiceGetSoftwareVersion:         {"version length", "", ""},
	ServiceBufferOverflowNotification: {"overflow counter", "", ""},
	ServiceSyncTimeStamp:              {"timestamp", "", ""},
	ServiceGetLogChannelNames:         {"", "", "channel count"},
}

// ParamMeaning documents what the generic record slots hold for one
// service and direction; empty strings mark unused slots.
func ParamMeaning(id ServiceID, response bool) (p1, p2, p3 string) {
	m := requestParamMap
	if response {
		m = responseParamMap
	}
	if id.IsInjection() {
		id = ServiceCallSWCInjection
	}
	meaning := m[id]
	return meaning.p1, meaning.p2, meaning.p3
}

// IDFromParam recovers the 4 id bytes a param slot carries.
func IDFromParam(p uint32) (id [4]byte) {
	SvcByteOrder.PutUint32(id[:], p)
	return
}

func idParam(b []byte) uint32 {
	return SvcByteOrder.Uint32(b)
}

// Parse extracts the service record from a decoded control message.
func Parse(m *proto.Message) (*Record, error) {
	if !m.IsControl() {
		return nil, ErrNotControl
	}
	ext := m.GetExtendedHeader()
	return ParsePayload(m.GetPayload(), ext.GetControlType() == proto.ControlTypeResponse)
}

// ParsePayload parses a control payload. The reserved sentinel, where a
// layout defines one, is validated for presence by the length checks
// only; its content is passed through untouched.
func ParsePayload(payload []byte, response bool) (*Record, error) {
	if len(payload) < 4 {
		return nil, ErrShortPayload
	}
	id := ServiceID(SvcByteOrder.Uint32(payload[0:4]))
	if !id.IsValid() {
		return nil, ErrUnknownService
	}
	r := &Record{ServiceID: id, Response: response}
	if response {
		return r, parseResponse(r, payload)
	}
	return r, parseRequest(r, payload)
}

func parseRequest(r *Record, payload []byte) error {
	switch {
	case r.ServiceID.IsInjection():
		if len(payload) < 8 {
			return ErrShortPayload
		}
		n := SvcByteOrder.Uint32(payload[4:8])
		if len(payload) < 8+int(n) {
			return ErrShortPayload
		}
		r.Param1 = n
		r.Data = payload[8 : 8+n]
		return nil

	case r.ServiceID == ServiceSetLogLevel || r.ServiceID == ServiceSetTraceStatus:
		if len(payload) < 17 {
			return ErrShortPayload
		}
		r.Param1 = idParam(payload[4:8])
		r.Param2 = idParam(payload[8:12])
		r.Param3 = payload[12]
		return nil

	case r.ServiceID == ServiceGetLogInfo:
		if len(payload) < 17 {
			return ErrShortPayload
		}
		r.Param3 = payload[4]
		r.Param1 = idParam(payload[5:9])
		r.Param2 = idParam(payload[9:13])
		return nil

	case r.ServiceID == ServiceSetMessageFiltering:
		if len(payload) < 5 {
			return ErrShortPayload
		}
		r.Param3 = payload[4]
		return nil

	case r.ServiceID == ServiceSetDefaultLogLevel || r.ServiceID == ServiceSetDefaultTraceStatus:
		if len(payload) < 9 {
			return ErrShortPayload
		}
		r.Param3 = payload[4]
		return nil

	case r.ServiceID == ServiceGetTraceStatus:
		if len(payload) < 12 {
			return ErrShortPayload
		}
		r.Param1 = idParam(payload[4:8])
		r.Param2 = idParam(payload[8:12])
		return nil

	case r.ServiceID == ServiceSetLogChannelAssignment:
		if len(payload) < 16 {
			return ErrShortPayload
		}
		r.Param1 = idParam(payload[4:8])
		r.Param2 = idParam(payload[8:12])
		r.Data = payload[12:16]
		return nil

	case r.ServiceID == ServiceSetLogChannelThreshold:
		if len(payload) < 9 {
			return ErrShortPayload
		}
		r.Param1 = idParam(payload[4:8])
		r.Param3 = payload[8]
		return nil

	case r.ServiceID == ServiceGetLogChannelThreshold:
		if len(payload) < 8 {
			return ErrShortPayload
		}
		r.Param1 = idParam(payload[4:8])
		return nil
	}
	// the remaining requests are id-only
	return nil
}

func parseResponse(r *Record, payload []byte) error {
	if len(payload) < 5 {
		return ErrShortPayload
	}
	r.Status = Status(payload[4])
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}

	switch r.ServiceID {
	case ServiceGetDefaultLogLevel, ServiceGetDefaultTraceStatus,
		ServiceGetTraceStatus, ServiceGetLogChannelThreshold:
		if len(payload) < 6 {
			return ErrShortPayload
		}
		r.Param3 = payload[5]

	case ServiceGetSoftwareVersion:
		if len(payload) < 9 {
			return ErrShortPayload
		}
		n := SvcByteOrder.Uint32(payload[5:9])
		if len(payload) < 9+int(n) {
			return ErrShortPayload
		}
		r.Param1 = n
		version := payload[9 : 9+n]
		// the stated length counts the terminator
		if n > 0 && version[n-1] == 0 {
			version = version[:n-1]
		}
		r.Data = version

	case ServiceBufferOverflowNotification, ServiceSyncTimeStamp:
		if len(payload) < 9 {
			return ErrShortPayload
		}
		r.Param1 = SvcByteOrder.Uint32(payload[5:9])

	case ServiceGetLogChannelNames:
		if len(payload) < 6 {
			return ErrShortPayload
		}
		count := int(payload[5])
		if len(payload) < 6+4*count {
			return ErrShortPayload
		}
		r.Param3 = payload[5]
		r.Data = payload[6 : 6+4*count]

	case ServiceGetLogInfo:
		// body ends with the 4-byte reserved field
		if len(payload) < 9 {
			return ErrShortPayload
		}
		r.Data = payload[5 : len(payload)-4]
	}
	return nil
}
