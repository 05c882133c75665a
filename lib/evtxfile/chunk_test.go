package evtxfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libyal/libevtx-sub000/lib/evtxcrc"
)

func TestNewChunkWalksMultipleRecords(t *testing.T) {
	rec1 := buildRecordBytes(1, 0, buildEventBXML("first"))
	rec2 := buildRecordBytes(2, 0, buildEventBXML("second"))
	records := append(append([]byte{}, rec1...), rec2...)
	chunk := buildChunkHeader(records)

	c := newChunk(0, 0, chunk, 0, nil)
	require.False(t, c.RecoveryOnly)
	require.Len(t, c.Records, 2)
	assert.Equal(t, uint64(1), c.Records[0].Identifier)
	assert.Equal(t, uint64(2), c.Records[1].Identifier)
}

func TestNewChunkBadSignatureIsRecoveryOnly(t *testing.T) {
	chunk := buildChunkHeader(nil)
	copy(chunk[0:8], "Garbage\x00")
	c := newChunk(0, 0, chunk, 0, nil)
	assert.True(t, c.RecoveryOnly)
	assert.Empty(t, c.Records)
	assert.Error(t, c.HeaderErr)
}

func TestNewChunkRecordsCRCFailedStillPopulatesRecords(t *testing.T) {
	rec := buildRecordBytes(9, 0, buildEventBXML("x"))
	chunk := buildChunkHeader(rec)
	freeOff := ChunkHeaderSize + len(rec)

	binary.LittleEndian.PutUint32(chunk[0x34:], 0xdeadbeef)
	headerCRC := evtxcrc.ChecksumRanges(chunk[0:120], chunk[128:freeOff], chunk[120:128])
	binary.LittleEndian.PutUint32(chunk[0x7c:], headerCRC)

	c := newChunk(0, 0, chunk, 0, nil)
	assert.False(t, c.RecoveryOnly)
	assert.True(t, c.RecordsCRCFailed)
	require.Len(t, c.Records, 1)
	require.Error(t, c.ValidationErrors())
	assert.Nil(t, c.HeaderErr)
}

func TestChunkValidationErrorsNilWhenClean(t *testing.T) {
	chunk := buildChunkHeader(buildRecordBytes(1, 0, buildEventBXML("clean")))
	c := newChunk(0, 0, chunk, 0, nil)
	assert.NoError(t, c.ValidationErrors())
}

func TestNewChunkStopsWalkAtFirstUnparsableRecord(t *testing.T) {
	rec1 := buildRecordBytes(1, 0, buildEventBXML("ok"))
	garbage := make([]byte, 16)
	records := append(append([]byte{}, rec1...), garbage...)
	chunk := buildChunkHeader(records)

	c := newChunk(0, 0, chunk, 0, nil)
	require.Len(t, c.Records, 1)
	assert.Equal(t, uint64(1), c.Records[0].Identifier)
}

func TestWalkTemplatesSingleEmptyDefinition(t *testing.T) {
	// next(4)=0 + guid(16)=0 + size(4)=1 + one-byte fragment (just
	// END_OF_FRAGMENT, no root element) placed right after the chunk
	// header, at ChunkHeaderSize.
	recordsRegion := make([]byte, templateFixedHeaderSizeForTest+1)
	binary.LittleEndian.PutUint32(recordsRegion[20:], 1) // size = 1
	recordsRegion[24] = 0x00                             // OpEndOfFragment

	chunk := buildChunkHeader(recordsRegion)
	c := newChunk(0, 0, chunk, 0, nil)
	defs, err := c.WalkTemplates(ChunkHeaderSize)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, int64(0), defs[0].Next)
	assert.Nil(t, defs[0].Skeleton)
}

const templateFixedHeaderSizeForTest = 24
