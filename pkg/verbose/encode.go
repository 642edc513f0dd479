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

package verbose

import (
	"encoding/binary"
	"math"
)

// Encoder writes verbose arguments into a caller-owned buffer. The
// payload byte order follows the MSBF choice of the enclosing message;
// type descriptors are little-endian regardless.
type Encoder struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
	count int
}

func NewEncoder(buf []byte, payloadBigEndian bool) *Encoder {
	e := &Encoder{buf: buf, order: binary.LittleEndian}
	if payloadBigEndian {
		e.order = binary.BigEndian
	}
	return e
}

func (e *Encoder) Len() int {
	return e.pos
}

func (e *Encoder) Bytes() []byte {
	return e.buf[:e.pos]
}

// Count is the number of top-level arguments added, for the noar field.
func (e *Encoder) Count() int {
	return e.count
}

func (e *Encoder) Reset() {
	e.pos = 0
	e.count = 0
}

type encFrameT struct {
	entries []Argument
	next    int
}

// Add appends one argument, nested entries included. On failure the
// encoder position is unchanged.
func (e *Encoder) Add(arg Argument) error {
	mark := e.pos
	var stack []encFrameT
	cur := &arg

outer:
	for {
		if err := cur.ti.validate(); err != nil {
			e.pos = mark
			return err
		}
		var err error
		if cur.Kind() == KindStruct {
			if len(stack) == kMaxNestingDepth {
				e.pos = mark
				return ErrDepthExceeded
			}
			err = e.writeStructHeader(cur)
			if err == nil {
				stack = append(stack, encFrameT{entries: cur.entries})
			}
		} else {
			err = e.writeFlat(cur)
		}
		if err != nil {
			e.pos = mark
			return err
		}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.entries) {
				cur = &top.entries[top.next]
				top.next++
				continue outer
			}
			stack = stack[:len(stack)-1]
		}
		break
	}
	e.count++
	return nil
}

func (e *Encoder) writeStructHeader(a *Argument) error {
	if len(a.entries) > 0xFFFF {
		return ErrInvalidData
	}
	if err := e.writeTypeInfo(a.ti); err != nil {
		return err
	}
	if err := e.writeU16(uint16(len(a.entries))); err != nil {
		return err
	}
	if a.ti.HasVariableInfo() {
		return e.writeTerminated(a.name)
	}
	return nil
}

func (e *Encoder) writeFlat(a *Argument) error {
	if err := e.writeTypeInfo(a.ti); err != nil {
		return err
	}
	switch a.Kind() {
	case KindBool, KindSigned, KindUnsigned, KindFloat:
		if a.ti.IsArray() {
			return e.writeArrayBody(a)
		}
		return e.writeScalarBody(a)
	case KindString, KindTraceInfo:
		if len(a.data)+1 > 0xFFFF {
			return ErrInvalidData
		}
		if err := e.writeU16(uint16(len(a.data) + 1)); err != nil {
			return err
		}
		if a.ti.HasVariableInfo() {
			if err := e.writeTerminated(a.name); err != nil {
				return err
			}
		}
		if err := e.writeBytes(a.data); err != nil {
			return err
		}
		return e.writeBytes([]byte{0})
	case KindRaw:
		if len(a.data) > 0xFFFF {
			return ErrInvalidData
		}
		if err := e.writeU16(uint16(len(a.data))); err != nil {
			return err
		}
		if a.ti.HasVariableInfo() {
			if err := e.writeTerminated(a.name); err != nil {
				return err
			}
		}
		return e.writeBytes(a.data)
	}
	return ErrInvalidTypeInfo
}

func (e *Encoder) writeScalarBody(a *Argument) error {
	if err := e.writeVariableInfo(a); err != nil {
		return err
	}
	if err := e.writeFixedPoint(a); err != nil {
		return err
	}
	return e.writeValueBits(a.ti.TypeLength(), a.scalar, a.scalar128)
}

func (e *Encoder) writeArrayBody(a *Argument) error {
	if len(a.dims) == 0 || len(a.dims) > 0xFFFF {
		return ErrInvalidData
	}
	if err := e.writeU16(uint16(len(a.dims))); err != nil {
		return err
	}
	count := 1
	for _, d := range a.dims {
		if err := e.writeU16(d); err != nil {
			return err
		}
		count *= int(d)
	}
	if err := e.writeVariableInfo(a); err != nil {
		return err
	}
	if err := e.writeFixedPoint(a); err != nil {
		return err
	}
	if count*a.ti.TypeLength().Bytes() != len(a.arrayData) {
		return ErrInvalidData
	}
	return e.writeBytes(a.arrayData)
}

// writeVariableInfo emits the VARI block for numeric kinds: both length
// prefixes first, then the terminated strings. Bool has no unit slot.
func (e *Encoder) writeVariableInfo(a *Argument) error {
	if !a.ti.HasVariableInfo() {
		return nil
	}
	withUnit := a.Kind() != KindBool
	if len(a.name)+1 > 0xFFFF || len(a.unit)+1 > 0xFFFF {
		return ErrInvalidData
	}
	if err := e.writeU16(uint16(len(a.name) + 1)); err != nil {
		return err
	}
	if withUnit {
		if err := e.writeU16(uint16(len(a.unit) + 1)); err != nil {
			return err
		}
	}
	if err := e.writeBytes(append([]byte(a.name), 0)); err != nil {
		return err
	}
	if withUnit {
		return e.writeBytes(append([]byte(a.unit), 0))
	}
	return nil
}

func (e *Encoder) writeFixedPoint(a *Argument) error {
	if !a.ti.HasFixedPoint() {
		return nil
	}
	if err := e.writeF32(a.quantization); err != nil {
		return err
	}
	switch l := a.ti.TypeLength(); l {
	case TypeLength8, TypeLength16, TypeLength32:
		if int64(int32(a.offset)) != a.offset {
			return ErrInvalidData
		}
		return e.writeU32(uint32(a.offset))
	case TypeLength64:
		return e.writeU64(uint64(a.offset))
	case TypeLength128:
		return e.writeBytes(a.offset128[:])
	}
	return ErrInvalidTypeInfo
}

func (e *Encoder) writeValueBits(l TypeLength, bits uint64, wide [16]byte) error {
	switch l.Bytes() {
	case 1:
		return e.writeBytes([]byte{uint8(bits)})
	case 2:
		return e.writeU16(uint16(bits))
	case 4:
		return e.writeU32(uint32(bits))
	case 8:
		return e.writeU64(bits)
	case 16:
		return e.writeBytes(wide[:])
	}
	return ErrInvalidTypeInfo
}

// writeTerminated is the single-string VARI form used by struct and
// string/raw arguments: length prefix, bytes, terminator.
func (e *Encoder) writeTerminated(s string) error {
	if len(s)+1 > 0xFFFF {
		return ErrInvalidData
	}
	if err := e.writeU16(uint16(len(s) + 1)); err != nil {
		return err
	}
	if err := e.writeBytes([]byte(s)); err != nil {
		return err
	}
	return e.writeBytes([]byte{0})
}

func (e *Encoder) writeTypeInfo(ti TypeInfo) error {
	if e.pos+4 > len(e.buf) {
		return ErrBufferTooSmall
	}
	binary.LittleEndian.PutUint32(e.buf[e.pos:], uint32(ti))
	e.pos += 4
	return nil
}

func (e *Encoder) writeBytes(b []byte) error {
	if e.pos+len(b) > len(e.buf) {
		return ErrBufferTooSmall
	}
	copy(e.buf[e.pos:], b)
	e.pos += len(b)
	return nil
}

func (e *Encoder) writeU16(v uint16) error {
	if e.pos+2 > len(e.buf) {
		return ErrBufferTooSmall
	}
	e.order.PutUint16(e.buf[e.pos:], v)
	e.pos += 2
	return nil
}

func (e *Encoder) writeU32(v uint32) error {
	if e.pos+4 > len(e.buf) {
		return ErrBufferTooSmall
	}
	e.order.PutUint32(e.buf[e.pos:], v)
	e.pos += 4
	return nil
}

func (e *Encoder) writeU64(v uint64) error {
	if e.pos+8 > len(e.buf) {
		return ErrBufferTooSmall
	}
	e.order.PutUint64(e.buf[e.pos:], v)
	e.pos += 8
	return nil
}

func (e *Encoder) writeF32(v float32) error {
	return e.writeU32(math.Float32bits(v))
}
