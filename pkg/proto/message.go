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
	"fmt"
)

// Message is one decoded wire message. The payload slice aliases the
// decode input unless the copying decode path was used; the codec keeps
// no reference past the call that produced it.
type Message struct {
	standardHeader StandardHeader
	extra          headerExtraT
	extendedHeader ExtendedHeader

	hasSerial  bool
	hasStorage bool
	storage    StorageHeader

	payload       []byte
	payloadOffset int
}

func (m *Message) GetStandardHeader() *StandardHeader {
	return &m.standardHeader
}

func (m *Message) GetHeaderType() HeaderType {
	return m.standardHeader.htyp
}

func (m *Message) GetCounter() uint8 {
	return m.standardHeader.mcnt
}

func (m *Message) HasSerialHeader() bool {
	return m.hasSerial
}

func (m *Message) HasStorageHeader() bool {
	return m.hasStorage
}

func (m *Message) GetStorageHeader() (StorageHeader, bool) {
	return m.storage, m.hasStorage
}

func (m *Message) HasEcuID() bool {
	return m.standardHeader.htyp.HasEcu()
}

func (m *Message) GetEcuID() [kIDSize]byte {
	return m.extra.ecu
}

func (m *Message) HasSessionID() bool {
	return m.standardHeader.htyp.HasSession()
}

func (m *Message) GetSessionID() uint32 {
	return m.extra.seid
}

func (m *Message) HasTimestamp() bool {
	return m.standardHeader.htyp.HasTimestamp()
}

// GetTimestamp returns the header timestamp in 0.1 ms units.
func (m *Message) GetTimestamp() uint32 {
	return m.extra.tmsp
}

func (m *Message) HasExtendedHeader() bool {
	return m.standardHeader.htyp.HasExtended()
}

func (m *Message) GetExtendedHeader() *ExtendedHeader {
	if !m.HasExtendedHeader() {
		return nil
	}
	return &m.extendedHeader
}

func (m *Message) GetPayload() []byte {
	return m.payload
}

// GetPayloadOffset returns the absolute offset of the payload within the
// original decode buffer, framing prefixes included.
func (m *Message) GetPayloadOffset() int {
	return m.payloadOffset
}

// framingSize returns the prefix bytes not counted by the len field.
func (m *Message) framingSize() int {
	size := 0
	if m.hasStorage {
		size += kStorageHeaderSize
	}
	if m.hasSerial {
		size += kSerialHeaderSize
	}
	return size
}

// TotalSize returns the full wire size including framing prefixes.
func (m *Message) TotalSize() int {
	return m.framingSize() + int(m.standardHeader.len)
}

func (m *Message) IsVerboseLog() bool {
	if !m.HasExtendedHeader() {
		return false
	}
	return m.extendedHeader.GetMessageType() == MessageTypeLog && m.extendedHeader.IsVerbose()
}

func (m *Message) IsControl() bool {
	if !m.HasExtendedHeader() {
		return false
	}
	return m.extendedHeader.GetMessageType() == MessageTypeControl
}

func (m *Message) PrettyPrint() {
	fmt.Println("\nStandard Header:")
	fmt.Printf("  HeaderType\t:%#02X\n", uint8(m.standardHeader.htyp))
	fmt.Printf("  Counter\t:%d\n", m.standardHeader.mcnt)
	fmt.Printf("  Length\t:%d\n", m.standardHeader.len)
	if m.hasStorage {
		fmt.Printf("  Storage\t:%d.%06ds ecu=%s\n",
			m.storage.Seconds, m.storage.Microseconds, IDToString(m.storage.Ecu))
	}
	if m.hasSerial {
		fmt.Printf("  Serial\t:yes\n")
	}
	if m.HasEcuID() {
		fmt.Printf("  EcuID\t\t:%s\n", IDToString(m.extra.ecu))
	}
	if m.HasSessionID() {
		fmt.Printf("  SessionID\t:%d\n", m.extra.seid)
	}
	if m.HasTimestamp() {
		fmt.Printf("  Timestamp\t:%d\n", m.extra.tmsp)
	}
	if m.HasExtendedHeader() {
		m.extendedHeader.PrettyPrint()
	}
	fmt.Printf("  Payload\t:%d bytes at %d\n", len(m.payload), m.payloadOffset)
}
