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
	"bytes"
	"encoding/binary"
	"io"
)

// Decode parses one message from raw. The payload of the returned message
// aliases raw; consumed is the number of bytes the message occupies,
// framing prefixes included. ErrIncomplete means raw does not yet hold
// the whole message and the caller should wait for more bytes.
func (m *Message) Decode(raw []byte) (consumed int, err error) {
	return m.decode(raw, false)
}

// DecodeCopy is Decode with the payload copied out of raw, for callers
// that reuse the input buffer.
func (m *Message) DecodeCopy(raw []byte) (consumed int, err error) {
	return m.decode(raw, true)
}

func (m *Message) decode(raw []byte, copyData bool) (int, error) {
	offset := 0

	// Framing prefixes: storage first, then serial, both optional and
	// detected by magic. A detected magic whose fixed body cannot fit is
	// a hard failure, not an incomplete read.
	if len(raw) >= offset+kIDSize && bytes.Equal(raw[offset:offset+kIDSize], StorageMagic[:]) {
		if len(raw) < offset+kStorageHeaderSize {
			return 0, ErrInvalidFraming
		}
		m.hasStorage = true
		m.storage.Seconds = binary.LittleEndian.Uint32(raw[offset+4 : offset+8])
		m.storage.Microseconds = binary.LittleEndian.Uint32(raw[offset+8 : offset+12])
		copy(m.storage.Ecu[:], raw[offset+12:offset+16])
		offset += kStorageHeaderSize
	}
	if len(raw) >= offset+kSerialHeaderSize && bytes.Equal(raw[offset:offset+kSerialHeaderSize], SerialMagic[:]) {
		m.hasSerial = true
		offset += kSerialHeaderSize
	}

	if len(raw) < offset+kStandardHeaderSize {
		return 0, ErrIncomplete
	}
	m.standardHeader.htyp = HeaderType(raw[offset])
	m.standardHeader.mcnt = raw[offset+1]
	m.standardHeader.len = HdrByteOrder.Uint16(raw[offset+2 : offset+4])

	htyp := m.standardHeader.htyp
	headerSize := htyp.HeaderSize()
	if int(m.standardHeader.len) < headerSize {
		return 0, ErrInvalidLength
	}
	if len(raw) < offset+int(m.standardHeader.len) {
		return 0, ErrIncomplete
	}

	pos := offset + kStandardHeaderSize
	if htyp.HasEcu() {
		copy(m.extra.ecu[:], raw[pos:pos+kIDSize])
		pos += kIDSize
	}
	if htyp.HasSession() {
		m.extra.seid = HdrByteOrder.Uint32(raw[pos : pos+4])
		pos += 4
	}
	if htyp.HasTimestamp() {
		m.extra.tmsp = HdrByteOrder.Uint32(raw[pos : pos+4])
		pos += 4
	}
	if htyp.HasExtended() {
		m.extendedHeader.msin = raw[pos]
		m.extendedHeader.noar = raw[pos+1]
		copy(m.extendedHeader.apid[:], raw[pos+2:pos+6])
		copy(m.extendedHeader.ctid[:], raw[pos+6:pos+10])
		pos += kExtendedHeaderSize
		if !m.extendedHeader.GetMessageType().IsValid() {
			return 0, ErrInvalidExtHeader
		}
	}

	payloadLen := int(m.standardHeader.len) - headerSize
	if copyData {
		m.payload = make([]byte, payloadLen)
		copy(m.payload, raw[pos:pos+payloadLen])
	} else {
		m.payload = raw[pos : pos+payloadLen]
	}
	m.payloadOffset = pos

	return offset + int(m.standardHeader.len), nil
}

// Decoder reads serial-framed messages from a stream, one per call.
// The serial marker is what delimits messages on a live connection, so
// the Decoder requires it; file captures use Message.Decode directly.
type Decoder struct {
	r   io.Reader
	buf []byte
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads the next message from the stream. The message payload is
// valid until the next Decode call.
func (dec *Decoder) Decode(m *Message) error {
	var head [kSerialHeaderSize + kStandardHeaderSize]byte
	if n, err := io.ReadFull(dec.r, head[:]); err != nil {
		if n == 0 {
			return err
		}
		return NewProtocolError(err)
	}
	if !bytes.Equal(head[:kSerialHeaderSize], SerialMagic[:]) {
		return ErrInvalidFraming
	}

	msgLen := int(HdrByteOrder.Uint16(head[kSerialHeaderSize+2 : kSerialHeaderSize+4]))
	if msgLen < kStandardHeaderSize {
		return ErrInvalidLength
	}

	need := kSerialHeaderSize + msgLen
	if cap(dec.buf) < need {
		dec.buf = make([]byte, need)
	}
	dec.buf = dec.buf[:need]
	copy(dec.buf, head[:])

	if need > len(head) {
		if _, err := io.ReadFull(dec.r, dec.buf[len(head):]); err != nil {
			return NewProtocolError(err)
		}
	}
	_, err := m.Decode(dec.buf[:need])
	return err
}

// FrameBytes returns the raw bytes of the last decoded frame, serial
// marker included. Valid until the next Decode call.
func (dec *Decoder) FrameBytes() []byte {
	return dec.buf
}

// MessageBytes returns the last frame without the serial marker, the
// form written into file captures behind a storage prefix.
func (dec *Decoder) MessageBytes() []byte {
	if len(dec.buf) < kSerialHeaderSize {
		return nil
	}
	return dec.buf[kSerialHeaderSize:]
}
