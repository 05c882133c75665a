package evtxfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRecordBytes builds one record's on-wire bytes: 24-byte header,
// payload, and trailing 4-byte size copy (spec §3 "Event record").
func buildRecordBytes(identifier, writtenTime uint64, payload []byte) []byte {
	size := uint32(RecordHeaderSize + len(payload) + 4)
	buf := make([]byte, size)
	copy(buf[0:4], []byte{0x2A, 0x2A, 0x00, 0x00})
	binary.LittleEndian.PutUint32(buf[4:], size)
	binary.LittleEndian.PutUint64(buf[8:], identifier)
	binary.LittleEndian.PutUint64(buf[16:], writtenTime)
	copy(buf[RecordHeaderSize:], payload)
	binary.LittleEndian.PutUint32(buf[size-4:], size)
	return buf
}

func TestParseRecordHeaderValid(t *testing.T) {
	rec := buildRecordBytes(42, 0, []byte{0xAA, 0xBB})
	h, err := parseRecordHeader(rec, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uint64(h.Identifier))
	assert.Equal(t, uint32(len(rec)), uint32(h.Size))
}

func TestParseRecordHeaderBadSignature(t *testing.T) {
	rec := buildRecordBytes(1, 0, nil)
	rec[0] = 0x00
	_, err := parseRecordHeader(rec, 0)
	assert.Error(t, err)
}

func TestParseRecordHeaderSizeTooSmall(t *testing.T) {
	rec := buildRecordBytes(1, 0, nil)
	binary.LittleEndian.PutUint32(rec[4:], RecordHeaderSize-1)
	_, err := parseRecordHeader(rec, 0)
	assert.Error(t, err)
}

func TestParseRecordHeaderTrailingSizeMismatch(t *testing.T) {
	rec := buildRecordBytes(1, 0, []byte{0x01, 0x02})
	rec[len(rec)-1] ^= 0xFF
	_, err := parseRecordHeader(rec, 0)
	assert.Error(t, err)
}

func TestParseRecordHeaderRunsPastChunk(t *testing.T) {
	rec := buildRecordBytes(1, 0, []byte{0x01, 0x02})
	binary.LittleEndian.PutUint32(rec[4:], uint32(len(rec)+100))
	_, err := parseRecordHeader(rec, 0)
	assert.Error(t, err)
}

func TestParseRecordHeaderOutOfBounds(t *testing.T) {
	_, err := parseRecordHeader(make([]byte, 5), 0)
	assert.Error(t, err)
}
