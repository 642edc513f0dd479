package proto

import (
	"fmt"
)

type (
	StandardHeader struct {
		htyp HeaderType
		mcnt uint8
		len  uint16
	}

	// Optional standard-header extension, present per the htyp bits, in
	// the fixed on-wire order ecu, session, timestamp.
	headerExtraT struct {
		ecu  [kIDSize]byte
		seid uint32
		tmsp uint32
	}

	ExtendedHeader struct {
		msin uint8
		noar uint8
		apid [kIDSize]byte
		ctid [kIDSize]byte
	}

	// StorageHeader is the 16-byte file-capture prefix: magic, seconds,
	// microseconds (both little-endian) and the producing ECU id.
	StorageHeader struct {
		Seconds      uint32
		Microseconds uint32
		Ecu          [kIDSize]byte
	}
)

func (h HeaderType) HasExtended() bool {
	return (h & kUEHMask) != 0
}

func (h HeaderType) PayloadBigEndian() bool {
	return (h & kMSBFMask) != 0
}

func (h HeaderType) HasEcu() bool {
	return (h & kWEIDMask) != 0
}

func (h HeaderType) HasSession() bool {
	return (h & kWSIDMask) != 0
}

func (h HeaderType) HasTimestamp() bool {
	return (h & kWTMSMask) != 0
}

func (h HeaderType) Version() uint8 {
	return uint8(h&kVERSMask) >> 5
}

func (h *HeaderType) SetExtended() {
	(*h) |= kUEHMask
}

func (h *HeaderType) SetPayloadBigEndian() {
	(*h) |= kMSBFMask
}

func (h *HeaderType) SetEcu() {
	(*h) |= kWEIDMask
}

func (h *HeaderType) SetSession() {
	(*h) |= kWSIDMask
}

func (h *HeaderType) SetTimestamp() {
	(*h) |= kWTMSMask
}

// extraSize returns the number of optional standard-header bytes the
// htyp bits select.
func (h HeaderType) extraSize() int {
	size := 0
	if h.HasEcu() {
		size += kIDSize
	}
	if h.HasSession() {
		size += 4
	}
	if h.HasTimestamp() {
		size += 4
	}
	return size
}

// HeaderSize returns the full header length selected by the htyp bits,
// standard header through extended header, excluding any framing prefix.
func (h HeaderType) HeaderSize() int {
	size := kStandardHeaderSize + h.extraSize()
	if h.HasExtended() {
		size += kExtendedHeaderSize
	}
	return size
}

func (h *StandardHeader) GetHeaderType() HeaderType {
	return h.htyp
}

func (h *StandardHeader) GetCounter() uint8 {
	return h.mcnt
}

// GetLength returns the len field: standard header through payload,
// excluding framing prefixes.
func (h *StandardHeader) GetLength() uint16 {
	return h.len
}

// msin bit layout: verbose at bit 0, mstp at bits 1-3, mtin at bits 4-7.
func encodeMsin(verbose bool, mstp MessageType, mtin uint8) uint8 {
	msin := (uint8(mstp) & 0x07) << 1
	msin |= (mtin & 0x0F) << 4
	if verbose {
		msin |= 0x01
	}
	return msin
}

func (e *ExtendedHeader) IsVerbose() bool {
	return (e.msin & 0x01) != 0
}

func (e *ExtendedHeader) GetMessageType() MessageType {
	return MessageType((e.msin >> 1) & 0x07)
}

// GetTypeInfo returns the raw 4-bit mtin subtype; its meaning depends on
// the message type.
func (e *ExtendedHeader) GetTypeInfo() uint8 {
	return (e.msin >> 4) & 0x0F
}

func (e *ExtendedHeader) GetLogLevel() LogLevel {
	return LogLevel(e.GetTypeInfo())
}

func (e *ExtendedHeader) GetControlType() ControlType {
	return ControlType(e.GetTypeInfo())
}

func (e *ExtendedHeader) GetArgCount() uint8 {
	return e.noar
}

func (e *ExtendedHeader) GetAppID() [kIDSize]byte {
	return e.apid
}

func (e *ExtendedHeader) GetContextID() [kIDSize]byte {
	return e.ctid
}

func (e *ExtendedHeader) PrettyPrint() {
	fmt.Println("\nExtended Header:")
	fmt.Printf("  MessageType\t:%s\n", e.GetMessageType())
	fmt.Printf("  Subtype\t:%d\n", e.GetTypeInfo())
	fmt.Printf("  Verbose\t:%v\n", e.IsVerbose())
	fmt.Printf("  ArgCount\t:%d\n", e.noar)
	fmt.Printf("  AppID\t\t:%s\n", IDToString(e.apid))
	fmt.Printf("  ContextID\t:%s\n", IDToString(e.ctid))
}

// MakeID pads or truncates s into a 4-byte wire identifier.
func MakeID(s string) (id [kIDSize]byte) {
	copy(id[:], s)
	return
}

// IDToString trims trailing NULs from a 4-byte wire identifier.
func IDToString(id [kIDSize]byte) string {
	end := kIDSize
	for i := 0; i < kIDSize; i++ {
		if id[i] == 0 {
			end = i
			break
		}
	}
	return string(id[:end])
}

// IsWildcardID reports whether id is the all-zero match-any identifier.
func IsWildcardID(id [kIDSize]byte) bool {
	return id == [kIDSize]byte{}
}
