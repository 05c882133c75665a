package evtxrec

import (
	"bufio"
	"io"
)

// ChunkSignature and RecordSignature mirror evtxfile's on-disk magic
// numbers; duplicated here (rather than imported) so this package has
// no dependency on evtxfile and can be reused by any future tool that
// wants a raw byte-stream scan without an opened File (spec §6 "The
// block-oriented file I/O abstraction... specified as an interface" —
// this scanner only needs io.ByteReader, the narrowest such
// interface).
var (
	ChunkSignature  = []byte("ElfChnk\x00")
	RecordSignature = []byte{0x2A, 0x2A, 0x00, 0x00}
)

// ScanChunkOffsets finds every byte offset in r at which the chunk
// signature occurs — a recovery aid for a dirty or truncated file
// whose header-declared chunk count and file size disagree (spec
// §4.1 "Chunk-count tolerance", §4.2 "recovery-only"). Candidate
// offsets are not themselves validated; evtxfile.File keeps every one
// as a recovery chunk, and one whose header fails validation is only
// scanned for records.
func ScanChunkOffsets(r io.Reader) ([]int64, error) {
	return FindAll(bufio.NewReader(r), ChunkSignature)
}

// ScanRecordOffsets finds every byte offset of the record signature
// within a single chunk's bytes, for chunks whose free-space-offset
// or records-region CRC cannot be trusted (spec §4.2 "A failed
// records-region CRC is non-fatal: individual records are still
// attempted"). This is the deeper fallback for when even the
// sequential record walk starting at offset 128 can't be trusted
// because free-space-offset itself is suspect.
func ScanRecordOffsets(chunkBytes []byte) ([]int64, error) {
	r := bufio.NewReader(&byteSliceReader{b: chunkBytes})
	return FindAll(r, RecordSignature)
}

// byteSliceReader adapts a []byte to io.Reader without copying, for
// ScanRecordOffsets's internal use (bufio.NewReader needs an
// io.Reader, not an io.ByteReader, to build its own buffering).
type byteSliceReader struct {
	b   []byte
	pos int
}

func (s *byteSliceReader) Read(p []byte) (int, error) {
	if s.pos >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.pos:])
	s.pos += n
	return n, nil
}
