package evtxvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeByteStreamDefaultCodepage(t *testing.T) {
	s, err := DecodeByteStream([]byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestDecodeByteStreamWindows1252(t *testing.T) {
	// 0xE9 in Windows-1252 is U+00E9 (é)
	s, err := DecodeByteStream([]byte{0xE9}, 1252)
	require.NoError(t, err)
	assert.Equal(t, "é", s)
}

func TestDecodeByteStreamUnsupportedCodepage(t *testing.T) {
	_, err := DecodeByteStream([]byte{0x80}, 99999)
	assert.Error(t, err)
}
