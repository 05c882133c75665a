package evtxfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libyal/libevtx-sub000/lib/evtxcrc"
)

// buildChunkHeader builds a syntactically valid 65536-byte chunk
// buffer: a correctly-checksummed 128-byte header followed by the
// given records-region bytes (zero-padded out to ChunkSize).
func buildChunkHeader(recordsRegion []byte) []byte {
	chunk := make([]byte, ChunkSize)
	copy(chunk[0:8], "ElfChnk\x00")
	freeOff := uint32(ChunkHeaderSize + len(recordsRegion))
	binary.LittleEndian.PutUint32(chunk[0x30:], freeOff)
	copy(chunk[ChunkHeaderSize:], recordsRegion)

	recordsCRC := evtxcrc.Checksum(chunk[ChunkHeaderSize:freeOff])
	binary.LittleEndian.PutUint32(chunk[0x34:], recordsCRC)

	headerCRC := evtxcrc.ChecksumRanges(chunk[0:120], chunk[128:freeOff], chunk[120:128])
	binary.LittleEndian.PutUint32(chunk[0x7c:], headerCRC)
	return chunk
}

func TestParseChunkHeaderValid(t *testing.T) {
	chunk := buildChunkHeader(nil)
	h, err := parseChunkHeader(chunk)
	require.NoError(t, err)
	assert.Equal(t, uint32(ChunkHeaderSize), uint32(h.FreeSpaceOffset))

	headerErr, recordsErr := validateSignatureAndCRC(chunk, h)
	assert.NoError(t, headerErr)
	assert.NoError(t, recordsErr)
}

func TestValidateSignatureAndCRCBadSignature(t *testing.T) {
	chunk := buildChunkHeader(nil)
	copy(chunk[0:8], "Garbage\x00")
	h, err := parseChunkHeader(chunk)
	require.NoError(t, err)
	headerErr, _ := validateSignatureAndCRC(chunk, h)
	assert.Error(t, headerErr)
}

func TestValidateSignatureAndCRCBadHeaderCRC(t *testing.T) {
	chunk := buildChunkHeader(nil)
	chunk[0x7c] ^= 0xFF
	h, err := parseChunkHeader(chunk)
	require.NoError(t, err)
	headerErr, _ := validateSignatureAndCRC(chunk, h)
	assert.Error(t, headerErr)
}

func TestValidateSignatureAndCRCRecordsCRCIsNonFatal(t *testing.T) {
	chunk := buildChunkHeader([]byte{0x2A, 0x2A, 0x00, 0x00})
	freeOff := ChunkHeaderSize + 4

	// Corrupt only the stored records-region CRC field (not the actual
	// record bytes), then recompute the header CRC over the new state
	// so header validation still passes — the header CRC's own range
	// includes the EventRecordsCRC32 field, so any tamper there would
	// otherwise break both checks at once and this scenario couldn't
	// be demonstrated independently.
	binary.LittleEndian.PutUint32(chunk[0x34:], 0xdeadbeef)
	headerCRC := evtxcrc.ChecksumRanges(chunk[0:120], chunk[128:freeOff], chunk[120:128])
	binary.LittleEndian.PutUint32(chunk[0x7c:], headerCRC)

	h, err := parseChunkHeader(chunk)
	require.NoError(t, err)
	headerErr, recordsErr := validateSignatureAndCRC(chunk, h)
	assert.NoError(t, headerErr, "a records-region CRC failure must not fail header validation")
	assert.Error(t, recordsErr)
}

func TestParseChunkHeaderTooShort(t *testing.T) {
	_, err := parseChunkHeader(make([]byte, 10))
	assert.Error(t, err)
}
