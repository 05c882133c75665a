package evtxrec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAllSingleMatch(t *testing.T) {
	data := []byte("xxxElfChnk\x00yyy")
	matches, err := FindAll(bytes.NewReader(data), ChunkSignature)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, matches)
}

func TestFindAllMultipleMatches(t *testing.T) {
	data := []byte("ElfChnk\x00....ElfChnk\x00....ElfChnk\x00")
	matches, err := FindAll(bytes.NewReader(data), ChunkSignature)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 12, 24}, matches)
}

func TestFindAllNoMatch(t *testing.T) {
	data := []byte("no signature anywhere in this text")
	matches, err := FindAll(bytes.NewReader(data), ChunkSignature)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFindAllOverlappingPattern(t *testing.T) {
	// "aaa" against haystack "aaaa" should find overlapping starts 0 and 1.
	matches, err := FindAll(bytes.NewReader([]byte("aaaa")), []byte("aaa"))
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, matches)
}

func TestFindAllPanicsOnEmptySubstr(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = FindAll(bytes.NewReader([]byte("x")), nil)
	})
}

func TestScanChunkOffsets(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, 10))
	buf.Write(ChunkSignature)
	buf.Write(make([]byte, 20))
	buf.Write(ChunkSignature)

	offsets, err := ScanChunkOffsets(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 38}, offsets)
}

func TestScanRecordOffsets(t *testing.T) {
	chunk := make([]byte, 0)
	chunk = append(chunk, make([]byte, 5)...)
	chunk = append(chunk, RecordSignature...)
	chunk = append(chunk, make([]byte, 3)...)
	chunk = append(chunk, RecordSignature...)

	offsets, err := ScanRecordOffsets(chunk)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 12}, offsets)
}
