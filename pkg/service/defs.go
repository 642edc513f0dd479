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

// Package service implements the DLT control sub-protocol: request and
// response generation for the management commands and a uniform parser
// over their fixed payload layouts.
package service

import (
	"encoding/binary"
)

type (
	ServiceID uint32
	Status    uint8
)

const (
	ServiceSetLogLevel                ServiceID = 0x01
	ServiceSetTraceStatus             ServiceID = 0x02
	ServiceGetLogInfo                 ServiceID = 0x03
	ServiceGetDefaultLogLevel         ServiceID = 0x04
	ServiceStoreConfiguration         ServiceID = 0x05
	ServiceResetToFactoryDefault      ServiceID = 0x06
	ServiceSetMessageFiltering        ServiceID = 0x0A
	ServiceSetDefaultLogLevel         ServiceID = 0x11
	ServiceSetDefaultTraceStatus      ServiceID = 0x12
	ServiceGetSoftwareVersion         ServiceID = 0x13
	ServiceGetDefaultTraceStatus      ServiceID = 0x15
	ServiceGetLogChannelNames         ServiceID = 0x17
	ServiceGetTraceStatus             ServiceID = 0x1F
	ServiceSetLogChannelAssignment    ServiceID = 0x20
	ServiceSetLogChannelThreshold     ServiceID = 0x21
	ServiceGetLogChannelThreshold     ServiceID = 0x22
	ServiceBufferOverflowNotification ServiceID = 0x23
	ServiceSyncTimeStamp              ServiceID = 0x24

	// ServiceCallSWCInjection marks the start of the injection range;
	// every id at or above it belongs to application-defined injections.
	ServiceCallSWCInjection ServiceID = 0xFFF
)

const (
	StatusOK                         Status = 0
	StatusNotSupported               Status = 1
	StatusError                      Status = 2
	StatusPending                    Status = 3
	StatusWithLogLevelAndTraceStatus Status = 6
	StatusWithDescriptions           Status = 7
	StatusNoMatchingContexts         Status = 8
	StatusOverflow                   Status = 9
)

// ReservedSentinel is the fixed value every defined reserved field
// carries: the bytes 0x72 0x65 0x6D 0x6F.
var ReservedSentinel = [4]byte{'r', 'e', 'm', 'o'}

// SvcByteOrder is the byte order of every multi-byte integer inside a
// service payload, the service id included.
var SvcByteOrder = binary.BigEndian

var serviceNameMap map[ServiceID]string = map[ServiceID]string{
	ServiceSetLogLevel:                "SetLogLevel",
	ServiceSetTraceStatus:             "SetTraceStatus",
	ServiceGetLogInfo:                 "GetLogInfo",
	ServiceGetDefaultLogLevel:         "GetDefaultLogLevel",
	ServiceStoreConfiguration:         "StoreConfiguration",
	ServiceResetToFactoryDefault:      "ResetToFactoryDefault",
	ServiceSetMessageFiltering:        "SetMessageFiltering",
	ServiceSetDefaultLogLevel:         "SetDefaultLogLevel",
	ServiceSetDefaultTraceStatus:      "SetDefaultTraceStatus",
	ServiceGetSoftwareVersion:         "GetSoftwareVersion",
	ServiceGetDefaultTraceStatus:      "GetDefaultTraceStatus",
	ServiceGetLogChannelNames:         "GetLogChannelNames",
	ServiceGetTraceStatus:             "GetTraceStatus",
	ServiceSetLogChannelAssignment:    "SetLogChannelAssignment",
	ServiceSetLogChannelThreshold:     "SetLogChannelThreshold",
	ServiceGetLogChannelThreshold:     "GetLogChannelThreshold",
	ServiceBufferOverflowNotification: "BufferOverflowNotification",
	ServiceSyncTimeStamp:              "SyncTimeStamp",
}

func (s ServiceID) String() string {
	if name, ok := serviceNameMap[s]; ok {
		return name
	}
	if s.IsInjection() {
		return "CallSWCInjection"
	}
	return "Unrecognized ServiceID"
}

func (s ServiceID) IsInjection() bool {
	return s >= ServiceCallSWCInjection
}

func (s ServiceID) IsValid() bool {
	_, ok := serviceNameMap[s]
	return ok || s.IsInjection()
}

var statusNameMap map[Status]string = map[Status]string{
	StatusOK:                         "Ok",
	StatusNotSupported:               "NotSupported",
	StatusError:                      "Error",
	StatusPending:                    "Pending",
	StatusWithLogLevelAndTraceStatus: "WithLogLevelAndTraceStatus",
	StatusWithDescriptions:           "WithDescriptions",
	StatusNoMatchingContexts:         "NoMatchingContexts",
	StatusOverflow:                   "Overflow",
}

func (s Status) String() string {
	if name, ok := statusNameMap[s]; ok {
		return name
	}
	return "Unrecognized Status"
}

func (s Status) IsValid() bool {
	_, ok := statusNameMap[s]
	return ok
}

// kReservedTail marks services whose reserved field sits at the end of
// a variable-length payload instead of a fixed offset.
const kReservedTail = -2

// ReservedOffset returns the payload-relative offset of the 4-byte
// reserved field for the given service and direction, -1 when the
// layout defines none, or kReservedTail for the variable-length
// GetLogInfo response where the field closes the payload.
func ReservedOffset(id ServiceID, response bool) int {
	if response {
		if id == ServiceGetLogInfo {
			return kReservedTail
		}
		return -1
	}
	switch id {
	case ServiceSetLogLevel, ServiceSetTraceStatus, ServiceGetLogInfo:
		return 13
	case ServiceSetDefaultLogLevel, ServiceSetDefaultTraceStatus:
		return 5
	}
	return -1
}
