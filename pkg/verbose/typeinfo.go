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

type (
	// TypeInfo is the 32-bit descriptor that precedes every verbose
	// argument on the wire. It is always encoded little-endian, even
	// when the payload byte order is big-endian.
	//
	// Bit layout:
	//
	//	bits 0-3   TYLE  type length class
	//	bit  4     BOOL
	//	bit  5     SINT
	//	bit  6     UINT
	//	bit  7     FLOA
	//	bit  8     ARAY  array modifier over BOOL/SINT/UINT/FLOA
	//	bit  9     STRG
	//	bit  10    RAWD
	//	bit  11    VARI  name/unit metadata present
	//	bit  12    FIXP  quantization/offset present
	//	bit  13    TRAI
	//	bit  14    STRU
	//	bits 15-17 SCOD  string coding
	//	bits 18-31 reserved
	TypeInfo uint32

	// TypeLength is the TYLE class: 0 undefined, then 8/16/32/64/128 bits.
	TypeLength uint8

	// Kind identifies the argument variant a TypeInfo describes.
	Kind uint8
)

const (
	kTYLEMask TypeInfo = 0x0000000F
	kBOOLMask TypeInfo = 1 << 4
	kSINTMask TypeInfo = 1 << 5
	kUINTMask TypeInfo = 1 << 6
	kFLOAMask TypeInfo = 1 << 7
	kARAYMask TypeInfo = 1 << 8
	kSTRGMask TypeInfo = 1 << 9
	kRAWDMask TypeInfo = 1 << 10
	kVARIMask TypeInfo = 1 << 11
	kFIXPMask TypeInfo = 1 << 12
	kTRAIMask TypeInfo = 1 << 13
	kSTRUMask TypeInfo = 1 << 14
	kSCODMask TypeInfo = 0x7 << 15

	kSCODShift = 15

	kBaseKindMask TypeInfo = kBOOLMask | kSINTMask | kUINTMask | kFLOAMask |
		kSTRGMask | kRAWDMask | kTRAIMask | kSTRUMask
	kNumericMask TypeInfo = kBOOLMask | kSINTMask | kUINTMask | kFLOAMask
)

const (
	TypeLengthUndefined TypeLength = 0
	TypeLength8         TypeLength = 1
	TypeLength16        TypeLength = 2
	TypeLength32        TypeLength = 3
	TypeLength64        TypeLength = 4
	TypeLength128       TypeLength = 5
)

const (
	KindInvalid Kind = iota
	KindBool
	KindSigned
	KindUnsigned
	KindFloat
	KindString
	KindRaw
	KindTraceInfo
	KindStruct
)

// string coding values in the SCOD field
const (
	StringCodingASCII uint8 = 0
	StringCodingUTF8  uint8 = 1
)

var kindNameMap map[Kind]string = map[Kind]string{
	KindBool:      "Bool",
	KindSigned:    "Signed",
	KindUnsigned:  "Unsigned",
	KindFloat:     "Float",
	KindString:    "String",
	KindRaw:       "Raw",
	KindTraceInfo: "TraceInfo",
	KindStruct:    "Struct",
}

func (k Kind) String() string {
	if name, ok := kindNameMap[k]; ok {
		return name
	}
	return "Unrecognized Kind"
}

func (l TypeLength) IsValid() bool {
	return l <= TypeLength128
}

// Bytes returns the value width the class selects; 0 for undefined.
func (l TypeLength) Bytes() int {
	switch l {
	case TypeLength8:
		return 1
	case TypeLength16:
		return 2
	case TypeLength32:
		return 4
	case TypeLength64:
		return 8
	case TypeLength128:
		return 16
	}
	return 0
}

// TypeLengthForBytes maps a value width back to its class.
func TypeLengthForBytes(n int) (TypeLength, bool) {
	switch n {
	case 1:
		return TypeLength8, true
	case 2:
		return TypeLength16, true
	case 4:
		return TypeLength32, true
	case 8:
		return TypeLength64, true
	case 16:
		return TypeLength128, true
	}
	return TypeLengthUndefined, false
}

func (t TypeInfo) TypeLength() TypeLength {
	return TypeLength(t & kTYLEMask)
}

func (t TypeInfo) IsArray() bool {
	return t&kARAYMask != 0
}

func (t TypeInfo) HasVariableInfo() bool {
	return t&kVARIMask != 0
}

func (t TypeInfo) HasFixedPoint() bool {
	return t&kFIXPMask != 0
}

func (t TypeInfo) StringCoding() uint8 {
	return uint8((t & kSCODMask) >> kSCODShift)
}

// Kind extracts the argument variant. Exactly one base-kind bit must be
// set; the array modifier requires a BOOL/SINT/UINT/FLOA base.
func (t TypeInfo) Kind() Kind {
	base := t & kBaseKindMask
	if base == 0 || base&(base-1) != 0 {
		return KindInvalid
	}
	if t.IsArray() && base&kNumericMask == 0 {
		return KindInvalid
	}
	switch base {
	case kBOOLMask:
		return KindBool
	case kSINTMask:
		return KindSigned
	case kUINTMask:
		return KindUnsigned
	case kFLOAMask:
		return KindFloat
	case kSTRGMask:
		return KindString
	case kRAWDMask:
		return KindRaw
	case kTRAIMask:
		return KindTraceInfo
	case kSTRUMask:
		return KindStruct
	}
	return KindInvalid
}

func kindBit(k Kind) TypeInfo {
	switch k {
	case KindBool:
		return kBOOLMask
	case KindSigned:
		return kSINTMask
	case KindUnsigned:
		return kUINTMask
	case KindFloat:
		return kFLOAMask
	case KindString:
		return kSTRGMask
	case KindRaw:
		return kRAWDMask
	case KindTraceInfo:
		return kTRAIMask
	case KindStruct:
		return kSTRUMask
	}
	return 0
}

func makeTypeInfo(k Kind, l TypeLength) TypeInfo {
	return TypeInfo(l) | kindBit(k)
}

// validate enforces the combination matrix: which flags each kind
// requires, tolerates, and forbids.
func (t TypeInfo) validate() error {
	kind := t.Kind()
	tyle := t.TypeLength()
	if !tyle.IsValid() {
		return ErrInvalidTypeInfo
	}
	switch kind {
	case KindBool:
		if tyle != TypeLength8 || t.HasFixedPoint() {
			return ErrInvalidTypeInfo
		}
	case KindSigned, KindUnsigned:
		if tyle == TypeLengthUndefined {
			return ErrInvalidTypeInfo
		}
	case KindFloat:
		if tyle < TypeLength16 || t.HasFixedPoint() {
			return ErrInvalidTypeInfo
		}
	case KindString, KindTraceInfo:
		if tyle != TypeLengthUndefined || t.HasFixedPoint() {
			return ErrInvalidTypeInfo
		}
		if t.StringCoding() > StringCodingUTF8 {
			return ErrInvalidTypeInfo
		}
		if kind == KindTraceInfo && t.HasVariableInfo() {
			return ErrInvalidTypeInfo
		}
	case KindRaw, KindStruct:
		if tyle != TypeLengthUndefined || t.HasFixedPoint() {
			return ErrInvalidTypeInfo
		}
	default:
		return ErrInvalidTypeInfo
	}
	// nonzero string coding only ever applies to character data
	if kind != KindString && kind != KindTraceInfo && t.StringCoding() != 0 {
		return ErrInvalidTypeInfo
	}
	// fixed point only transforms integers, scalar or array
	if t.HasFixedPoint() && kind != KindSigned && kind != KindUnsigned {
		return ErrInvalidTypeInfo
	}
	return nil
}
