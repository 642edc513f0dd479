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

// headerSpecT is one fully resolved header about to be written: every
// optional field decided, every value known.
type headerSpecT struct {
	htyp    HeaderType
	mcnt    uint8
	msgLen  uint16
	storage *StorageHeader
	serial  bool

	ecu  [kIDSize]byte
	seid uint32
	tmsp uint32

	msin uint8
	noar uint8
	apid [kIDSize]byte
	ctid [kIDSize]byte
}

// framingSize returns the prefix bytes not counted by the len field.
func (s *headerSpecT) framingSize() int {
	size := 0
	if s.storage != nil {
		size += kStorageHeaderSize
	}
	if s.serial {
		size += kSerialHeaderSize
	}
	return size
}

// write emits framing plus headers into dst and returns the number of
// bytes written. dst must hold framingSize()+htyp.HeaderSize() bytes.
func (s *headerSpecT) write(dst []byte) (int, error) {
	if len(dst) < s.framingSize()+s.htyp.HeaderSize() {
		return 0, ErrBufferTooSmall
	}
	offset := 0
	if s.storage != nil {
		copy(dst[offset:], StorageMagic[:])
		binary.LittleEndian.PutUint32(dst[offset+4:], s.storage.Seconds)
		binary.LittleEndian.PutUint32(dst[offset+8:], s.storage.Microseconds)
		copy(dst[offset+12:], s.storage.Ecu[:])
		offset += kStorageHeaderSize
	}
	if s.serial {
		copy(dst[offset:], SerialMagic[:])
		offset += kSerialHeaderSize
	}

	dst[offset] = uint8(s.htyp)
	dst[offset+1] = s.mcnt
	HdrByteOrder.PutUint16(dst[offset+2:], s.msgLen)
	offset += kStandardHeaderSize

	if s.htyp.HasEcu() {
		copy(dst[offset:], s.ecu[:])
		offset += kIDSize
	}
	if s.htyp.HasSession() {
		HdrByteOrder.PutUint32(dst[offset:], s.seid)
		offset += 4
	}
	if s.htyp.HasTimestamp() {
		HdrByteOrder.PutUint32(dst[offset:], s.tmsp)
		offset += 4
	}
	if s.htyp.HasExtended() {
		dst[offset] = s.msin
		dst[offset+1] = s.noar
		copy(dst[offset+2:], s.apid[:])
		copy(dst[offset+6:], s.ctid[:])
		offset += kExtendedHeaderSize
	}
	return offset, nil
}

// AppendStorageHeader appends the 16-byte capture prefix to dst, for
// re-framing live messages into a file capture.
func AppendStorageHeader(dst []byte, h StorageHeader) []byte {
	var buf [kStorageHeaderSize]byte
	copy(buf[:], StorageMagic[:])
	binary.LittleEndian.PutUint32(buf[4:], h.Seconds)
	binary.LittleEndian.PutUint32(buf[8:], h.Microseconds)
	copy(buf[12:], h.Ecu[:])
	return append(dst, buf[:]...)
}
