package evtxcrc

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumMatchesStdlibIEEE(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	assert.Equal(t, crc32.ChecksumIEEE(data), Checksum(data))
}

func TestChecksumEmpty(t *testing.T) {
	assert.Equal(t, uint32(0), Checksum(nil))
}

func TestChecksumRangesEquivalentToConcatenation(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03, 0x04}
	b := []byte{0x05, 0x06}
	c := []byte{0x07, 0x08, 0x09}
	concatenated := append(append(append([]byte{}, a...), b...), c...)

	require.Equal(t, Checksum(concatenated), ChecksumRanges(a, b, c))
}

func TestLittleEndianDecoders(t *testing.T) {
	b := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	assert.Equal(t, uint16(0x0201), U16(b))
	assert.Equal(t, uint32(0x04030201), U32(b))
	assert.Equal(t, uint64(0x0807060504030201), U64(b))
	assert.Equal(t, int32(-1), I32([]byte{0xff, 0xff, 0xff, 0xff}))
}

func TestIsZeroFilled(t *testing.T) {
	assert.True(t, IsZeroFilled(make([]byte, 16)))
	assert.True(t, IsZeroFilled(nil))
	assert.False(t, IsZeroFilled([]byte{0, 0, 1, 0}))
}
