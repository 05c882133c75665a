package evtxfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libyal/libevtx-sub000/lib/diskio"
	"github.com/libyal/libevtx-sub000/lib/evtxcrc"
)

// buildDirtyFileHeader builds a file header that declares only
// declaredChunks chunks but sets FileFlagDirty, so Open must scan
// past that declared boundary for any further chunks physically
// present (spec §4.1 "Chunk-count tolerance").
func buildDirtyFileHeader(declaredChunks uint16) []byte {
	hdr := make([]byte, FileHeaderSize)
	copy(hdr[0:8], "ElfFile\x00")
	binary.LittleEndian.PutUint16(hdr[0x24:], 0)
	binary.LittleEndian.PutUint16(hdr[0x26:], 3)
	binary.LittleEndian.PutUint16(hdr[0x28:], FileHeaderSize)
	binary.LittleEndian.PutUint16(hdr[0x2a:], declaredChunks)
	binary.LittleEndian.PutUint32(hdr[0x78:], FileFlagDirty)
	crc := evtxcrc.Checksum(hdr[0:120])
	binary.LittleEndian.PutUint32(hdr[0x7c:], crc)
	return hdr
}

// TestOpenRecoversTruncatedTrailingChunkViaScan builds a dirty file
// declaring one chunk, physically followed by a second chunk that was
// never flushed out to the full 65536-byte ChunkSize (so the naive
// floor-division chunk count doesn't even suspect it exists), and
// checks that Open finds it anyway by scanning the tail for the chunk
// signature (spec §4.1's recovery-candidate scanning, now backed by
// lib/evtxrec.ScanChunkOffsets instead of an arithmetic assumption
// that every recoverable chunk sits on an exact ChunkSize boundary).
// readChunkAt's existing short-read zero-padding reconstitutes the
// truncated chunk's bytes identically to a fully-flushed one, so its
// header CRC still validates.
func TestOpenRecoversTruncatedTrailingChunkViaScan(t *testing.T) {
	payload := buildEventBXML("recovered")
	rec := buildRecordBytes(99, 0, payload)
	chunk2Full := buildChunkHeader(rec)
	freeOff := ChunkHeaderSize + len(rec)
	chunk2Truncated := chunk2Full[:freeOff]

	file := make([]byte, FirstChunkOffset+ChunkSize+len(chunk2Truncated))
	copy(file[0:FileHeaderSize], buildDirtyFileHeader(1))
	copy(file[FirstChunkOffset:], buildChunkHeader(nil))
	copy(file[FirstChunkOffset+ChunkSize:], chunk2Truncated)

	backing := diskio.NewBufferFile("dirty.evtx", file)
	f, err := Open(backing, 0)
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, f.IsCorrupted())
	require.Equal(t, uint64(1), f.NumberOfRecoveredRecords())

	r, err := f.RecoveredRecord(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), r.Identifier)
}

// TestNewChunkRecoversRecordsWhenHeaderInvalid checks that a chunk
// whose own header fails validation still yields its well-formed
// records via a full-buffer signature scan (lib/evtxrec.
// ScanRecordOffsets), rather than surfacing zero records just because
// free_space_offset could not be trusted.
func TestNewChunkRecoversRecordsWhenHeaderInvalid(t *testing.T) {
	payload := buildEventBXML("still here")
	rec := buildRecordBytes(5, 0, payload)
	chunk := buildChunkHeader(rec)
	copy(chunk[0:8], "Garbage\x00") // corrupt the signature

	c := newChunk(0, 0, chunk, 0, nil)
	require.True(t, c.RecoveryOnly)
	require.Len(t, c.Records, 1)
	assert.Equal(t, uint64(5), c.Records[0].Identifier)
}
