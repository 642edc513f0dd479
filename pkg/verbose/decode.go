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

// Decoder reads verbose arguments out of a payload slice. Returned
// arguments alias the slice for string/raw/array content.
type Decoder struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

func NewDecoder(data []byte, payloadBigEndian bool) *Decoder {
	d := &Decoder{data: data, order: binary.LittleEndian}
	if payloadBigEndian {
		d.order = binary.BigEndian
	}
	return d
}

func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}

func (d *Decoder) More() bool {
	return d.pos < len(d.data)
}

type decFrameT struct {
	arg       Argument
	remaining int
}

// Next decodes one argument, walking nested struct entries with an
// explicit frame stack. The decoder position is unchanged on failure.
func (d *Decoder) Next() (Argument, error) {
	mark := d.pos
	var stack []decFrameT

	for {
		ti, err := d.readTypeInfo()
		if err == nil {
			err = ti.validate()
		}
		if err != nil {
			d.pos = mark
			return Argument{}, err
		}

		var complete Argument
		if ti.Kind() == KindStruct {
			if len(stack) == kMaxNestingDepth {
				d.pos = mark
				return Argument{}, ErrDepthExceeded
			}
			frame, n, err := d.readStructHeader(ti)
			if err != nil {
				d.pos = mark
				return Argument{}, err
			}
			if n > 0 {
				stack = append(stack, decFrameT{arg: frame, remaining: n})
				continue
			}
			complete = frame
		} else {
			complete, err = d.readFlat(ti)
			if err != nil {
				d.pos = mark
				return Argument{}, err
			}
		}

		for {
			if len(stack) == 0 {
				return complete, nil
			}
			top := &stack[len(stack)-1]
			top.arg.entries = append(top.arg.entries, complete)
			top.remaining--
			if top.remaining > 0 {
				break
			}
			complete = top.arg
			stack = stack[:len(stack)-1]
		}
	}
}

// Arguments decodes an entire verbose payload.
func Arguments(payload []byte, payloadBigEndian bool) ([]Argument, error) {
	d := NewDecoder(payload, payloadBigEndian)
	var args []Argument
	for d.More() {
		a, err := d.Next()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return args, nil
}

func (d *Decoder) readStructHeader(ti TypeInfo) (Argument, int, error) {
	n, err := d.readU16()
	if err != nil {
		return Argument{}, 0, err
	}
	a := Argument{ti: ti}
	if ti.HasVariableInfo() {
		if a.name, err = d.readTerminated(); err != nil {
			return Argument{}, 0, err
		}
	}
	return a, int(n), nil
}

func (d *Decoder) readFlat(ti TypeInfo) (Argument, error) {
	a := Argument{ti: ti}
	var err error
	switch ti.Kind() {
	case KindBool, KindSigned, KindUnsigned, KindFloat:
		if ti.IsArray() {
			err = d.readArrayBody(&a)
		} else {
			err = d.readScalarBody(&a)
		}
	case KindString, KindTraceInfo:
		err = d.readTerminatedData(&a)
	case KindRaw:
		err = d.readRawData(&a)
	default:
		err = ErrInvalidTypeInfo
	}
	if err != nil {
		return Argument{}, err
	}
	return a, nil
}

func (d *Decoder) readScalarBody(a *Argument) error {
	if err := d.readVariableInfo(a); err != nil {
		return err
	}
	if err := d.readFixedPoint(a); err != nil {
		return err
	}
	return d.readValueBits(a)
}

func (d *Decoder) readArrayBody(a *Argument) error {
	dimCount, err := d.readU16()
	if err != nil {
		return err
	}
	if dimCount == 0 {
		return ErrInvalidData
	}
	count := 1
	a.dims = make([]uint16, dimCount)
	for i := range a.dims {
		if a.dims[i], err = d.readU16(); err != nil {
			return err
		}
		count *= int(a.dims[i])
		// the flattened data cannot be larger than the payload itself
		if count > len(d.data) {
			return ErrTruncated
		}
	}
	if err = d.readVariableInfo(a); err != nil {
		return err
	}
	if err = d.readFixedPoint(a); err != nil {
		return err
	}
	a.arrayData, err = d.readBytes(count * a.ti.TypeLength().Bytes())
	return err
}

// readTerminatedData handles String and TraceInfo: the length prefix
// counts the terminator, which must be present.
func (d *Decoder) readTerminatedData(a *Argument) error {
	length, err := d.readU16()
	if err != nil {
		return err
	}
	if length == 0 {
		return ErrInvalidData
	}
	if a.ti.HasVariableInfo() {
		if a.name, err = d.readTerminated(); err != nil {
			return err
		}
	}
	data, err := d.readBytes(int(length))
	if err != nil {
		return err
	}
	if data[length-1] != 0 {
		return ErrInvalidData
	}
	a.data = data[:length-1]
	return nil
}

func (d *Decoder) readRawData(a *Argument) error {
	length, err := d.readU16()
	if err != nil {
		return err
	}
	if a.ti.HasVariableInfo() {
		if a.name, err = d.readTerminated(); err != nil {
			return err
		}
	}
	a.data, err = d.readBytes(int(length))
	return err
}

func (d *Decoder) readVariableInfo(a *Argument) error {
	if !a.ti.HasVariableInfo() {
		return nil
	}
	withUnit := a.Kind() != KindBool
	nameLen, err := d.readU16()
	if err != nil {
		return err
	}
	var unitLen uint16
	if withUnit {
		if unitLen, err = d.readU16(); err != nil {
			return err
		}
	}
	if a.name, err = d.readTerminatedN(int(nameLen)); err != nil {
		return err
	}
	if withUnit {
		if a.unit, err = d.readTerminatedN(int(unitLen)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) readFixedPoint(a *Argument) error {
	if !a.ti.HasFixedPoint() {
		return nil
	}
	bits, err := d.readU32()
	if err != nil {
		return err
	}
	a.quantization = math.Float32frombits(bits)
	switch a.ti.TypeLength() {
	case TypeLength8, TypeLength16, TypeLength32:
		v, err := d.readU32()
		if err != nil {
			return err
		}
		a.offset = int64(int32(v))
	case TypeLength64:
		v, err := d.readU64()
		if err != nil {
			return err
		}
		a.offset = int64(v)
	case TypeLength128:
		b, err := d.readBytes(16)
		if err != nil {
			return err
		}
		copy(a.offset128[:], b)
	default:
		return ErrInvalidTypeInfo
	}
	return nil
}

func (d *Decoder) readValueBits(a *Argument) error {
	switch a.ti.TypeLength().Bytes() {
	case 1:
		b, err := d.readBytes(1)
		if err != nil {
			return err
		}
		a.scalar = uint64(b[0])
	case 2:
		v, err := d.readU16()
		if err != nil {
			return err
		}
		a.scalar = uint64(v)
	case 4:
		v, err := d.readU32()
		if err != nil {
			return err
		}
		a.scalar = uint64(v)
	case 8:
		v, err := d.readU64()
		if err != nil {
			return err
		}
		a.scalar = v
	case 16:
		b, err := d.readBytes(16)
		if err != nil {
			return err
		}
		copy(a.scalar128[:], b)
	default:
		return ErrInvalidTypeInfo
	}
	return nil
}

// readTerminated reads a [len u16][bytes][0] string, terminator counted
// by the length.
func (d *Decoder) readTerminated() (string, error) {
	n, err := d.readU16()
	if err != nil {
		return "", err
	}
	return d.readTerminatedN(int(n))
}

func (d *Decoder) readTerminatedN(n int) (string, error) {
	if n == 0 {
		return "", ErrInvalidData
	}
	b, err := d.readBytes(n)
	if err != nil {
		return "", err
	}
	if b[n-1] != 0 {
		return "", ErrInvalidData
	}
	return string(b[:n-1]), nil
}

func (d *Decoder) readTypeInfo() (TypeInfo, error) {
	if d.pos+4 > len(d.data) {
		return 0, ErrTruncated
	}
	ti := TypeInfo(binary.LittleEndian.Uint32(d.data[d.pos:]))
	d.pos += 4
	return ti, nil
}

func (d *Decoder) readBytes(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, ErrTruncated
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) readU16() (uint16, error) {
	if d.pos+2 > len(d.data) {
		return 0, ErrTruncated
	}
	v := d.order.Uint16(d.data[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *Decoder) readU32() (uint32, error) {
	if d.pos+4 > len(d.data) {
		return 0, ErrTruncated
	}
	v := d.order.Uint32(d.data[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *Decoder) readU64() (uint64, error) {
	if d.pos+8 > len(d.data) {
		return 0, ErrTruncated
	}
	v := d.order.Uint64(d.data[d.pos:])
	d.pos += 8
	return v, nil
}
