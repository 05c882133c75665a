package evtxfile

import (
	"github.com/datawire/dlib/derror"

	"github.com/libyal/libevtx-sub000/lib/evtxbxml"
	"github.com/libyal/libevtx-sub000/lib/evtxcrc"
	"github.com/libyal/libevtx-sub000/lib/evtxrec"
)

// Chunk is one 65536-byte chunk: its header, shared name/template
// tables, and the enumerated records within it (spec component C9).
type Chunk struct {
	Index      int
	FileOffset int64
	buf        []byte
	codepage   int

	// abortCheck, when non-nil, is polled by every Builder this chunk
	// constructs (spec §5 cooperative cancellation), propagated down
	// from the owning File.
	abortCheck func() bool

	Header *ChunkHeader
	tables *evtxbxml.Tables

	// RecoveryOnly is set when the header signature or CRC failed, or
	// a header field was out of range (spec §4.2 "Failure semantics").
	// Such a chunk's records are exposed only via the recovered-record
	// path, never the live one.
	RecoveryOnly bool
	// RecordsCRCFailed is set when only the records-region CRC failed
	// (header itself was fine); per spec §4.2 this is non-fatal, so
	// Records is still populated from whatever parses cleanly.
	RecordsCRCFailed bool
	HeaderErr        error
	// RecordsCRCErr holds the specific records-region CRC failure,
	// independent of RecordsCRCFailed, so ValidationErrors can report it
	// alongside HeaderErr without callers re-deriving it from the bool.
	RecordsCRCErr error

	Records []*Record
}

// newChunk parses and validates the chunk header found in buf (a
// 65536-byte slice already read from the file at fileOffset), then
// walks its live records. A chunk whose header fails validation is
// still returned rather than an error, with RecoveryOnly set and
// Records holding whatever records a signature scan of the chunk
// finds, since a bad chunk does not fail the whole file open (spec
// §4.2, §7 propagation policy).
func newChunk(index int, fileOffset int64, buf []byte, codepage int, abortCheck func() bool) *Chunk {
	c := &Chunk{
		Index:      index,
		FileOffset: fileOffset,
		buf:        buf,
		codepage:   codepage,
		abortCheck: abortCheck,
		tables:     evtxbxml.NewTables(),
	}

	h, err := parseChunkHeader(buf)
	if err != nil {
		c.RecoveryOnly = true
		c.HeaderErr = err
		c.Records = scanRecoveredRecords(c, buf)
		return c
	}
	c.Header = h

	headerErr, recordsErr := validateSignatureAndCRC(buf, h)
	if headerErr != nil {
		c.RecoveryOnly = true
		c.HeaderErr = headerErr
		c.Records = scanRecoveredRecords(c, buf)
		return c
	}
	c.RecordsCRCFailed = recordsErr != nil
	c.RecordsCRCErr = recordsErr

	c.Records = walkRecords(c, buf, uint32(h.FreeSpaceOffset))
	return c
}

// ValidationErrors aggregates every validation failure recorded against
// this chunk (spec §4.2 "demote but don't fail": a header-CRC failure
// and a records-CRC failure are independent checks, so both are
// reported rather than only the first one encountered) into a single
// error, nil if the chunk validated cleanly.
func (c *Chunk) ValidationErrors() error {
	var errs derror.MultiError
	if c.HeaderErr != nil {
		errs = append(errs, c.HeaderErr)
	}
	if c.RecordsCRCErr != nil {
		errs = append(errs, c.RecordsCRCErr)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// scanRecoveredRecords is the fallback for a chunk whose header
// itself failed validation, so free_space_offset can't be trusted to
// bound a sequential walk (spec §4.1 "excess blocks are scanned as
// recovery candidates"): it finds every record-signature occurrence
// in the whole chunk buffer via evtxrec.ScanRecordOffsets and keeps
// whichever ones parse as a well-formed record header.
func scanRecoveredRecords(c *Chunk, buf []byte) []*Record {
	offs, err := evtxrec.ScanRecordOffsets(buf)
	if err != nil {
		return nil
	}
	var out []*Record
	for _, off := range offs {
		if c.abortCheck != nil && c.abortCheck() {
			break
		}
		h, err := parseRecordHeader(buf, off)
		if err != nil {
			continue
		}
		out = append(out, &Record{
			chunk:        c,
			Identifier:   uint64(h.Identifier),
			WrittenTime:  uint64(h.WrittenTime),
			headerOffset: off,
			size:         uint32(h.Size),
		})
	}
	return out
}

// walkRecords implements spec §4.2's record-walk: "starting at offset
// 128, parse a 24-byte record header, record its size, advance by
// size, stop when past free_space_offset or when the next 4 bytes are
// not the record signature." Individual records that fail to parse
// are simply not appended (non-fatal, per the records-region CRC
// failure semantics) and the walk stops at the first such failure,
// since a corrupt record also corrupts the byte offset of everything
// after it.
func walkRecords(c *Chunk, buf []byte, freeSpaceOffset uint32) []*Record {
	var out []*Record
	off := int64(ChunkHeaderSize)
	limit := int64(freeSpaceOffset)
	for off < limit {
		if c.abortCheck != nil && c.abortCheck() {
			break
		}
		if off+4 > int64(len(buf)) {
			break
		}
		if evtxcrc.U32(buf[off:off+4]) != 0x00002A2A {
			break
		}
		h, err := parseRecordHeader(buf, off)
		if err != nil {
			break
		}
		out = append(out, &Record{
			chunk:        c,
			Identifier:   uint64(h.Identifier),
			WrittenTime:  uint64(h.WrittenTime),
			headerOffset: off,
			size:         uint32(h.Size),
		})
		off += int64(uint32(h.Size))
	}
	return out
}

// WalkTemplates enumerates every template definition reachable from a
// chunk-local offset's next-pointer chain (spec §9 cycle-detection
// open question, wired to a real builder here rather than only
// existing as an evtxbxml-internal helper).
func (c *Chunk) WalkTemplates(off int64) ([]*evtxbxml.TemplateDefinition, error) {
	b := evtxbxml.NewBuilder(c.buf, c.tables, c.codepage)
	b.SetAbortCheck(c.abortCheck)
	return b.WalkTemplateChain(off)
}
