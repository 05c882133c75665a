// Package evtxvalue implements the typed-value decoder (spec
// component C4): the ~30 BXML scalar and array value types, decoded
// from a raw byte range and rendered to their canonical XML text
// form.
//
// Dynamic dispatch in the original C library is a table of function
// pointers per value type (see original_source/libevtx_value_type.c
// in spirit, though that table lives inline in
// libevtx_record_values.c); per spec §9's design note this is
// replaced with a tagged union (Type) and a single switch in Decode,
// rather than a dispatch table.
package evtxvalue

import "fmt"

// Type is the low 7 bits of a BXML value-type byte. Bit 0x80 (IsArray)
// is split out separately by ParseTypeByte.
type Type byte

const (
	NullType            Type = 0x00
	StringUTF16         Type = 0x01
	StringByteStream     Type = 0x02
	Int8Type            Type = 0x03
	UInt8Type           Type = 0x04
	Int16Type           Type = 0x05
	UInt16Type          Type = 0x06
	Int32Type           Type = 0x07
	UInt32Type          Type = 0x08
	Int64Type           Type = 0x09
	UInt64Type          Type = 0x0A
	Float32Type         Type = 0x0B
	Float64Type         Type = 0x0C
	BoolType            Type = 0x0D
	BinaryType          Type = 0x0E
	GUIDType            Type = 0x0F
	SizeTType           Type = 0x10
	FileTimeType        Type = 0x11
	SysTimeType         Type = 0x12
	SIDType             Type = 0x13
	HexInt32Type        Type = 0x14
	HexInt64Type        Type = 0x15
	BinaryXMLType       Type = 0x21

	arrayBit byte = 0x80
	typeMask byte = 0x7F
)

// ParseTypeByte splits a wire type byte into its scalar Type and the
// array flag.
func ParseTypeByte(b byte) (Type, bool) {
	return Type(b & typeMask), b&arrayBit != 0
}

func (t Type) String() string {
	names := map[Type]string{
		NullType: "Null", StringUTF16: "StringUtf16", StringByteStream: "StringByteStream",
		Int8Type: "Int8", UInt8Type: "UInt8", Int16Type: "Int16", UInt16Type: "UInt16",
		Int32Type: "Int32", UInt32Type: "UInt32", Int64Type: "Int64", UInt64Type: "UInt64",
		Float32Type: "Float32", Float64Type: "Float64", BoolType: "Bool", BinaryType: "Binary",
		GUIDType: "Guid", SizeTType: "SizeT", FileTimeType: "FileTime", SysTimeType: "SysTime",
		SIDType: "Sid", HexInt32Type: "HexInt32", HexInt64Type: "HexInt64", BinaryXMLType: "BinaryXml",
	}
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(0x%02x)", byte(t))
}

// FixedSize returns the on-wire size in bytes of one scalar instance
// of t, or (0, false) if t is variable-length (strings, binary, SID,
// nested BXML).
func (t Type) FixedSize() (int, bool) {
	switch t {
	case NullType:
		return 0, true
	case Int8Type, UInt8Type:
		return 1, true
	case Int16Type, UInt16Type:
		return 2, true
	case Int32Type, UInt32Type, Float32Type, BoolType, HexInt32Type:
		return 4, true
	case Int64Type, UInt64Type, Float64Type, FileTimeType, HexInt64Type:
		return 8, true
	case GUIDType, SysTimeType:
		return 16, true
	case SizeTType:
		return 0, false // 4 or 8, platform dependent: not statically sized
	}
	return 0, false
}
