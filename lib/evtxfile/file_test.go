package evtxfile

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libyal/libevtx-sub000/lib/diskio"
	"github.com/libyal/libevtx-sub000/lib/evtxbxml"
	"github.com/libyal/libevtx-sub000/lib/evtxcrc"
	"github.com/libyal/libevtx-sub000/lib/evtxerr"
)

// buildNameRecord is a minimal duplicate of evtxbxml's test helper of
// the same name (unexported there, so not importable): 4 bytes
// unknown, 2 bytes hash, 2 bytes char count, then UTF-16LE text plus a
// NUL terminator (spec §4.2 "Name resolution").
func buildNameRecord(name string) []byte {
	units := utf16.Encode([]rune(name))
	buf := make([]byte, 8+(len(units)+1)*2)
	binary.LittleEndian.PutUint16(buf[6:], uint16(len(units)))
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[8+2*i:], u)
	}
	return buf
}

// buildEventBXML constructs a minimal but complete BXML document:
// FRAGMENT_HEADER, <Event>text</Event>, END_OF_FRAGMENT — the payload
// of one event record (spec §4.4).
func buildEventBXML(text string) []byte {
	buf := []byte{byte(evtxbxml.OpFragmentHeader), 1, 1, 0x00}

	buf = append(buf, byte(evtxbxml.OpOpenStartElement))
	buf = append(buf, 0x00, 0x00) // dependency id
	sizePos := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	nameOffPos := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	nameOff := uint32(len(buf))
	binary.LittleEndian.PutUint32(buf[nameOffPos:], nameOff)
	binary.LittleEndian.PutUint32(buf[sizePos:], 4)
	buf = append(buf, buildNameRecord("Event")...)

	buf = append(buf, byte(evtxbxml.OpCloseStartElement))

	buf = append(buf, byte(evtxbxml.OpValue), 0x01) // StringUTF16, scalar
	countPos := len(buf)
	buf = append(buf, 0, 0)
	units := utf16.Encode([]rune(text))
	binary.LittleEndian.PutUint16(buf[countPos:], uint16(len(units)))
	for _, u := range units {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, u)
		buf = append(buf, b...)
	}

	buf = append(buf, byte(evtxbxml.OpEndElement))
	buf = append(buf, byte(evtxbxml.OpEndOfFragment))
	return buf
}

// buildMinimalEvtxFile constructs a complete one-chunk, one-record
// .evtx file in memory, with correct checksums throughout, for
// end-to-end File.Open/Record exercises.
func buildMinimalEvtxFile(t *testing.T, identifier uint64, text string) []byte {
	t.Helper()
	payload := buildEventBXML(text)
	rec := buildRecordBytes(identifier, 0, payload)

	chunk := buildChunkHeader(rec)

	file := make([]byte, FirstChunkOffset+ChunkSize)
	copy(file[0:8], "ElfFile\x00")
	binary.LittleEndian.PutUint64(file[0x8:], 0) // first chunk number
	binary.LittleEndian.PutUint64(file[0x10:], 0) // last chunk number
	binary.LittleEndian.PutUint64(file[0x18:], identifier+1)
	binary.LittleEndian.PutUint32(file[0x20:], FileHeaderSize)
	binary.LittleEndian.PutUint16(file[0x24:], 0)
	binary.LittleEndian.PutUint16(file[0x26:], 3)
	binary.LittleEndian.PutUint16(file[0x28:], FileHeaderSize)
	binary.LittleEndian.PutUint16(file[0x2a:], 1) // number of chunks
	fileCRC := evtxcrc.Checksum(file[0:120])
	binary.LittleEndian.PutUint32(file[0x7c:], fileCRC)

	copy(file[FirstChunkOffset:], chunk)
	return file
}

func TestOpenAndReadMinimalFile(t *testing.T) {
	raw := buildMinimalEvtxFile(t, 7, "hello world")
	backing := diskio.NewBufferFile("test.evtx", raw)

	f, err := Open(backing, 0)
	require.NoError(t, err)
	defer f.Close()

	major, minor := f.FormatVersion()
	assert.Equal(t, uint16(3), major)
	assert.Equal(t, uint16(0), minor)
	assert.False(t, f.IsCorrupted())
	assert.Equal(t, uint64(1), f.NumberOfRecords())
	assert.Equal(t, uint64(0), f.NumberOfRecoveredRecords())

	rec, err := f.Record(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), rec.Identifier)

	xml, err := rec.XMLStringUTF8()
	require.NoError(t, err)
	assert.Contains(t, xml, "<Event>hello world</Event>")

	// The text sits directly in <Event>, not in an EventData/UserData
	// element, so the record has no data strings.
	n, err := rec.NumberOfStrings()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, err = rec.String(0)
	var evErr *evtxerr.Error
	require.ErrorAs(t, err, &evErr)
	assert.Equal(t, evtxerr.KindOutOfBounds, evErr.Kind)
}

func TestOpenRecordOutOfRange(t *testing.T) {
	raw := buildMinimalEvtxFile(t, 1, "x")
	backing := diskio.NewBufferFile("test.evtx", raw)
	f, err := Open(backing, 0)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Record(1)
	assert.Error(t, err)
}

func TestOpenRejectsShortFile(t *testing.T) {
	backing := diskio.NewBufferFile("short.evtx", make([]byte, 10))
	_, err := Open(backing, 0)
	assert.Error(t, err)
}

func TestXMLStringUTF16RoundTripsToUTF8(t *testing.T) {
	raw := buildMinimalEvtxFile(t, 3, "round trip")
	backing := diskio.NewBufferFile("test.evtx", raw)
	f, err := Open(backing, 0)
	require.NoError(t, err)
	defer f.Close()

	rec, err := f.Record(0)
	require.NoError(t, err)

	u8, err := rec.XMLStringUTF8()
	require.NoError(t, err)
	u16, err := rec.XMLStringUTF16()
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(u16), 2)
	units := make([]uint16, (len(u16)-2)/2)
	for i := range units {
		units[i] = uint16(u16[2+2*i]) | uint16(u16[2+2*i+1])<<8
	}
	decoded := string(utf16.Decode(units))
	assert.Equal(t, u8, decoded)
}
