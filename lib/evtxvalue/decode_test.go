package evtxvalue

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeByte(t *testing.T) {
	typ, isArray := ParseTypeByte(0x88) // UInt32Type with array bit set
	assert.Equal(t, UInt32Type, typ)
	assert.True(t, isArray)

	typ, isArray = ParseTypeByte(0x08)
	assert.Equal(t, UInt32Type, typ)
	assert.False(t, isArray)
}

func TestFixedSize(t *testing.T) {
	size, ok := Int32Type.FixedSize()
	assert.True(t, ok)
	assert.Equal(t, 4, size)

	size, ok = GUIDType.FixedSize()
	assert.True(t, ok)
	assert.Equal(t, 16, size)

	_, ok = StringUTF16.FixedSize()
	assert.False(t, ok)
}

func TestDecodeScalarIntegers(t *testing.T) {
	ctx := Context{}

	s, err := Decode(Int8Type, false, []byte{0xff}, ctx)
	require.NoError(t, err)
	assert.Equal(t, "-1", s)

	s, err = Decode(UInt8Type, false, []byte{0xff}, ctx)
	require.NoError(t, err)
	assert.Equal(t, "255", s)

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 0xdeadbeef)
	s, err = Decode(UInt32Type, false, buf, ctx)
	require.NoError(t, err)
	assert.Equal(t, "3735928559", s)
}

func TestDecodeScalarBool(t *testing.T) {
	ctx := Context{}
	s, err := Decode(BoolType, false, []byte{0, 0, 0, 0}, ctx)
	require.NoError(t, err)
	assert.Equal(t, "false", s)

	s, err = Decode(BoolType, false, []byte{1, 0, 0, 0}, ctx)
	require.NoError(t, err)
	assert.Equal(t, "true", s)
}

func TestDecodeScalarTooShort(t *testing.T) {
	_, err := Decode(UInt32Type, false, []byte{1, 2}, Context{})
	assert.Error(t, err)
}

func TestDecodeNull(t *testing.T) {
	s, err := Decode(NullType, false, nil, Context{})
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestDecodeBinaryXMLTypeErrors(t *testing.T) {
	_, err := Decode(BinaryXMLType, false, []byte{1, 2, 3}, Context{})
	assert.Error(t, err)
}

func TestDecodeHexInt32(t *testing.T) {
	// 0x12345678 little-endian on the wire
	buf := []byte{0x78, 0x56, 0x34, 0x12}
	s, err := Decode(HexInt32Type, false, buf, Context{})
	require.NoError(t, err)
	assert.Equal(t, "0x12345678", s)
}

func TestDecodeUTF16Scalar(t *testing.T) {
	// "Hi" in UTF-16LE
	buf := []byte{'H', 0x00, 'i', 0x00}
	s, err := Decode(StringUTF16, false, buf, Context{})
	require.NoError(t, err)
	assert.Equal(t, "Hi", s)
}

func TestDecodeArrayOfUInt32(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:], 1)
	binary.LittleEndian.PutUint32(buf[4:], 2)
	s, err := Decode(UInt32Type, true, buf, Context{})
	require.NoError(t, err)
	assert.Equal(t, "1 2", s)
}

func TestDecodeArrayOfUTF16Strings(t *testing.T) {
	// "ab\0cd\0" as UTF-16LE NUL-separated
	var buf []byte
	for _, r := range []rune("ab") {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(r))
		buf = append(buf, b...)
	}
	buf = append(buf, 0, 0)
	for _, r := range []rune("cd") {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(r))
		buf = append(buf, b...)
	}
	buf = append(buf, 0, 0)

	s, err := Decode(StringUTF16, true, buf, Context{})
	require.NoError(t, err)
	assert.Equal(t, "ab\ncd", s)
}

func TestDecodeArrayNotFixedSize(t *testing.T) {
	_, err := Decode(BinaryType, true, []byte{1, 2, 3}, Context{})
	assert.Error(t, err)
}
