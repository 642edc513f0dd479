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
	"fmt"
	"math"
)

type CodecError struct {
	what string
}

func (e *CodecError) Error() string {
	return "CodecError: " + e.what
}

var (
	ErrBufferTooSmall  = &CodecError{"destination buffer too small"}
	ErrTruncated       = &CodecError{"argument data truncated"}
	ErrInvalidTypeInfo = &CodecError{"invalid type descriptor"}
	ErrInvalidData     = &CodecError{"invalid argument data"}

	// ErrDepthExceeded is returned when struct nesting goes beyond
	// kMaxNestingDepth. It is never reported as a format error; the
	// message may be well formed, just deeper than this codec walks.
	ErrDepthExceeded = &CodecError{"nesting depth exceeded"}
)

// kMaxNestingDepth bounds the struct walk. Both codec directions use an
// explicit frame stack instead of call-stack recursion, so the bound is
// a policy choice for constrained peers, not a stack-safety need.
const kMaxNestingDepth = 8

// Argument is one decoded or to-be-encoded verbose value. The TypeInfo
// kind decides which of the storage fields is meaningful.
type Argument struct {
	ti TypeInfo

	name string
	unit string

	quantization float32
	offset       int64
	offset128    [16]byte

	scalar    uint64
	scalar128 [16]byte

	data []byte // String/Raw/TraceInfo bytes, terminator stripped

	dims      []uint16
	arrayData []byte // flattened row-major elements in wire byte order

	entries []Argument
}

func (a *Argument) TypeInfo() TypeInfo    { return a.ti }
func (a *Argument) Kind() Kind            { return a.ti.Kind() }
func (a *Argument) IsArray() bool         { return a.ti.IsArray() }
func (a *Argument) HasName() bool         { return a.ti.HasVariableInfo() }
func (a *Argument) Name() string          { return a.name }
func (a *Argument) Unit() string          { return a.unit }
func (a *Argument) HasFixedPoint() bool   { return a.ti.HasFixedPoint() }
func (a *Argument) Quantization() float32 { return a.quantization }
func (a *Argument) Offset() int64         { return a.offset }
func (a *Argument) Offset128() [16]byte   { return a.offset128 }

func (a *Argument) Bool() bool {
	return a.scalar != 0
}

func (a *Argument) Int() int64 {
	switch a.ti.TypeLength() {
	case TypeLength8:
		return int64(int8(a.scalar))
	case TypeLength16:
		return int64(int16(a.scalar))
	case TypeLength32:
		return int64(int32(a.scalar))
	}
	return int64(a.scalar)
}

func (a *Argument) Uint() uint64 {
	return a.scalar
}

// Raw128 returns the 16 value bytes of a 128-bit scalar in wire order.
func (a *Argument) Raw128() [16]byte {
	return a.scalar128
}

func (a *Argument) Float() float64 {
	switch a.ti.TypeLength() {
	case TypeLength32:
		return float64(math.Float32frombits(uint32(a.scalar)))
	case TypeLength64:
		return math.Float64frombits(a.scalar)
	}
	return 0
}

// Logical applies the fixed-point transform raw*quantization+offset; it
// returns the plain value when no transform is present.
func (a *Argument) Logical() float64 {
	var raw float64
	switch a.Kind() {
	case KindSigned:
		raw = float64(a.Int())
	case KindUnsigned:
		raw = float64(a.Uint())
	case KindFloat:
		return a.Float()
	default:
		return 0
	}
	if !a.HasFixedPoint() {
		return raw
	}
	return raw*float64(a.quantization) + float64(a.offset)
}

// Data returns String/Raw/TraceInfo content without the terminator.
func (a *Argument) Data() []byte {
	return a.data
}

func (a *Argument) Text() string {
	return string(a.data)
}

func (a *Argument) Dims() []uint16 {
	return a.dims
}

// ElementCount is the product of the array dimensions.
func (a *Argument) ElementCount() int {
	count := 1
	for _, d := range a.dims {
		count *= int(d)
	}
	if len(a.dims) == 0 {
		return 0
	}
	return count
}

// ArrayData returns the flattened row-major element bytes, each element
// TypeLength().Bytes() wide, in the payload byte order of the message
// the argument came from.
func (a *Argument) ArrayData() []byte {
	return a.arrayData
}

func (a *Argument) Entries() []Argument {
	return a.entries
}

func (a *Argument) String() string {
	switch a.Kind() {
	case KindBool:
		return fmt.Sprintf("%v", a.Bool())
	case KindSigned:
		if a.IsArray() {
			return fmt.Sprintf("signed[%v]", a.dims)
		}
		return fmt.Sprintf("%d", a.Int())
	case KindUnsigned:
		if a.IsArray() {
			return fmt.Sprintf("unsigned[%v]", a.dims)
		}
		return fmt.Sprintf("%d", a.Uint())
	case KindFloat:
		if a.IsArray() {
			return fmt.Sprintf("float[%v]", a.dims)
		}
		return fmt.Sprintf("%g", a.Float())
	case KindString, KindTraceInfo:
		return a.Text()
	case KindRaw:
		return fmt.Sprintf("raw(%d bytes)", len(a.data))
	case KindStruct:
		return fmt.Sprintf("struct(%d entries)", len(a.entries))
	}
	return "invalid"
}

// Constructors. Each returns an argument by value so the fluent
// modifiers below can be chained without sharing.

func Bool(v bool) Argument {
	a := Argument{ti: makeTypeInfo(KindBool, TypeLength8)}
	if v {
		a.scalar = 1
	}
	return a
}

func Int8(v int8) Argument   { return signedArg(uint64(uint8(v)), TypeLength8) }
func Int16(v int16) Argument { return signedArg(uint64(uint16(v)), TypeLength16) }
func Int32(v int32) Argument { return signedArg(uint64(uint32(v)), TypeLength32) }
func Int64(v int64) Argument { return signedArg(uint64(v), TypeLength64) }

func signedArg(bits uint64, l TypeLength) Argument {
	return Argument{ti: makeTypeInfo(KindSigned, l), scalar: bits}
}

func Uint8(v uint8) Argument   { return unsignedArg(uint64(v), TypeLength8) }
func Uint16(v uint16) Argument { return unsignedArg(uint64(v), TypeLength16) }
func Uint32(v uint32) Argument { return unsignedArg(uint64(v), TypeLength32) }
func Uint64(v uint64) Argument { return unsignedArg(v, TypeLength64) }

func Uint128(v [16]byte) Argument {
	return Argument{ti: makeTypeInfo(KindUnsigned, TypeLength128), scalar128: v}
}

func unsignedArg(bits uint64, l TypeLength) Argument {
	return Argument{ti: makeTypeInfo(KindUnsigned, l), scalar: bits}
}

func Float32(v float32) Argument {
	return Argument{
		ti:     makeTypeInfo(KindFloat, TypeLength32),
		scalar: uint64(math.Float32bits(v)),
	}
}

func Float64(v float64) Argument {
	return Argument{
		ti:     makeTypeInfo(KindFloat, TypeLength64),
		scalar: math.Float64bits(v),
	}
}

func String(s string) Argument {
	return Argument{ti: makeTypeInfo(KindString, TypeLengthUndefined), data: []byte(s)}
}

func UTF8String(s string) Argument {
	a := String(s)
	a.ti |= TypeInfo(StringCodingUTF8) << kSCODShift
	return a
}

func Raw(b []byte) Argument {
	return Argument{ti: makeTypeInfo(KindRaw, TypeLengthUndefined), data: b}
}

func TraceInfo(s string) Argument {
	return Argument{ti: makeTypeInfo(KindTraceInfo, TypeLengthUndefined), data: []byte(s)}
}

// Array wraps flattened row-major element data. base selects the element
// kind (Bool, Signed, Unsigned or Float); data must hold exactly
// product(dims) elements of l.Bytes() each, already in the byte order
// the argument will be encoded with.
func Array(base Kind, l TypeLength, dims []uint16, data []byte) (Argument, error) {
	ti := makeTypeInfo(base, l) | kARAYMask
	if ti.Kind() == KindInvalid || l == TypeLengthUndefined {
		return Argument{}, ErrInvalidTypeInfo
	}
	count := 1
	for _, d := range dims {
		count *= int(d)
	}
	if len(dims) == 0 || count*l.Bytes() != len(data) {
		return Argument{}, ErrInvalidData
	}
	return Argument{ti: ti, dims: dims, arrayData: data}, nil
}

func Struct(entries ...Argument) Argument {
	return Argument{ti: makeTypeInfo(KindStruct, TypeLengthUndefined), entries: entries}
}

// Named attaches a VARI name; numeric kinds also carry a unit slot that
// WithUnit fills.
func (a Argument) Named(name string) Argument {
	a.ti |= kVARIMask
	a.name = name
	return a
}

func (a Argument) WithUnit(unit string) Argument {
	a.ti |= kVARIMask
	a.unit = unit
	return a
}

// WithFixedPoint attaches the quantization/offset transform; valid on
// signed/unsigned scalars and arrays only, which Encode enforces.
func (a Argument) WithFixedPoint(quantization float32, offset int64) Argument {
	a.ti |= kFIXPMask
	a.quantization = quantization
	a.offset = offset
	return a
}
