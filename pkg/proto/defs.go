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
	"encoding/binary"
)

type (
	HeaderType  uint8
	MessageType uint8
	LogLevel    uint8
	ControlType uint8
	TraceType   uint8
)

type ProtocolError struct {
	what string
}

const (
	kIDSize             = 4
	kStorageHeaderSize  = 16
	kSerialHeaderSize   = 4
	kStandardHeaderSize = 4
	kExtendedHeaderSize = 10
)

// htyp bit layout
const (
	kUEHMask  HeaderType = 0x01 // use extended header
	kMSBFMask HeaderType = 0x02 // payload most significant byte first
	kWEIDMask HeaderType = 0x04 // with ECU id
	kWSIDMask HeaderType = 0x08 // with session id
	kWTMSMask HeaderType = 0x10 // with timestamp
	kVERSMask HeaderType = 0xE0 // protocol version, bits 5-7

	kVersion1 HeaderType = 0x1 << 5
)

var (
	StorageMagic = [kIDSize]byte{'D', 'L', 'T', 0x01}
	SerialMagic  = [kSerialHeaderSize]byte{'D', 'L', 'S', 0x01}
)

// Header-level integers are big-endian regardless of the MSBF bit; the
// MSBF bit selects payload byte order only. The storage prefix timestamp
// is the one little-endian exception, handled in place.
var (
	HdrByteOrder = binary.BigEndian
)

const (
	MessageTypeLog MessageType = iota
	MessageTypeAppTrace
	MessageTypeNetworkTrace
	MessageTypeControl
)

const (
	LogLevelFatal   = LogLevel(1)
	LogLevelError   = LogLevel(2)
	LogLevelWarn    = LogLevel(3)
	LogLevelInfo    = LogLevel(4)
	LogLevelDebug   = LogLevel(5)
	LogLevelVerbose = LogLevel(6)
)

const (
	ControlTypeRequest  = ControlType(1)
	ControlTypeResponse = ControlType(2)
)

const (
	TraceTypeVariable = TraceType(1)
	TraceTypeFuncIn   = TraceType(2)
	TraceTypeFuncOut  = TraceType(3)
	TraceTypeState    = TraceType(4)
	TraceTypeVfb      = TraceType(5)
)

var (
	messageTypeNameMap map[MessageType]string = map[MessageType]string{
		MessageTypeLog:          "Log",
		MessageTypeAppTrace:     "AppTrace",
		MessageTypeNetworkTrace: "NetworkTrace",
		MessageTypeControl:      "Control",
	}
	logLevelNameMap map[LogLevel]string = map[LogLevel]string{
		LogLevelFatal:   "Fatal",
		LogLevelError:   "Error",
		LogLevelWarn:    "Warn",
		LogLevelInfo:    "Info",
		LogLevelDebug:   "Debug",
		LogLevelVerbose: "Verbose",
	}
	controlTypeNameMap map[ControlType]string = map[ControlType]string{
		ControlTypeRequest:  "Request",
		ControlTypeResponse: "Response",
	}
)

func (t MessageType) String() string {
	if name, ok := messageTypeNameMap[t]; ok {
		return name
	}
	return "Unrecognized MessageType"
}

func (t MessageType) IsValid() bool {
	return t <= MessageTypeControl
}

func (l LogLevel) String() string {
	if name, ok := logLevelNameMap[l]; ok {
		return name
	}
	return "Unrecognized LogLevel"
}

func (l LogLevel) IsValid() bool {
	return l >= LogLevelFatal && l <= LogLevelVerbose
}

func (t ControlType) String() string {
	if name, ok := controlTypeNameMap[t]; ok {
		return name
	}
	return "Unrecognized ControlType"
}

func (t ControlType) IsValid() bool {
	return t == ControlTypeRequest || t == ControlTypeResponse
}

var (
	ErrBufferTooSmall   = &ProtocolError{"destination buffer too small"}
	ErrInvalidFormat    = &ProtocolError{"invalid message format"}
	ErrInvalidFraming   = &ProtocolError{"invalid framing prefix"}
	ErrInvalidHeader    = &ProtocolError{"invalid standard header"}
	ErrInvalidLength    = &ProtocolError{"invalid length field"}
	ErrInvalidExtHeader = &ProtocolError{"invalid extended header"}
	ErrInvalidID        = &ProtocolError{"invalid identifier"}

	// ErrIncomplete signals that the buffer does not yet hold a complete
	// message. Streaming callers wait for more input; it is never a
	// structural failure.
	ErrIncomplete = &ProtocolError{"incomplete message"}
)

func NewProtocolError(err error) *ProtocolError {
	return &ProtocolError{
		what: err.Error(),
	}
}

func (e *ProtocolError) Error() string {
	return "ProtocolError: " + e.what
}

// IsIncomplete reports whether err is the wait-for-more-input signal.
func IsIncomplete(err error) bool {
	return err == ErrIncomplete
}
