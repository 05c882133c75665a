package evtxbxml

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildNameRecord constructs the on-wire bytes of a name record: 4
// bytes unknown, 2 bytes hash, 2 bytes char count, then the UTF-16LE
// text plus a NUL terminator.
func buildNameRecord(name string) []byte {
	units := utf16.Encode([]rune(name))
	buf := make([]byte, 8+(len(units)+1)*2)
	binary.LittleEndian.PutUint16(buf[4:], 0x1234) // hash, unchecked by readName
	binary.LittleEndian.PutUint16(buf[6:], uint16(len(units)))
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[8+2*i:], u)
	}
	// terminator already zero
	return buf
}

func TestReadNameRoundTrip(t *testing.T) {
	buf := buildNameRecord("EventData")
	n, err := readName(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "EventData", n.Name)
	assert.Equal(t, uint16(0x1234), n.Hash)
	assert.Equal(t, int64(0), n.Offset)
}

func TestReadNameOutOfBounds(t *testing.T) {
	buf := buildNameRecord("X")
	_, err := readName(buf[:4], 0)
	assert.Error(t, err)
}

func TestNameByteLen(t *testing.T) {
	buf := buildNameRecord("abc")
	n, err := nameByteLen(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(len(buf)), n)
}

func TestTablesResolveNameCaches(t *testing.T) {
	buf := buildNameRecord("Cached")
	tables := NewTables()

	first, err := tables.resolveName(buf, 0)
	require.NoError(t, err)

	second, err := tables.resolveName(buf, 0)
	require.NoError(t, err)

	assert.Same(t, first, second)
}
