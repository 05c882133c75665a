package evtxfile

import (
	"bytes"

	"github.com/libyal/libevtx-sub000/lib/binstruct"
	"github.com/libyal/libevtx-sub000/lib/evtxcrc"
	"github.com/libyal/libevtx-sub000/lib/evtxerr"
)

// RecordHeader is the bit-exact layout of the 24-byte event record
// header (spec §3 "Event record"): signature, declared size,
// identifier, FILETIME, repeated immediately by BXML payload bytes and
// then a trailing copy of Size (validated separately, not part of this
// struct, since it sits at the *end* of the record rather than a
// fixed struct offset).
type RecordHeader struct {
	Signature      [4]byte         `bin:"off=0x0, siz=0x4"`
	Size           binstruct.U32le `bin:"off=0x4, siz=0x4"`
	Identifier     binstruct.U64le `bin:"off=0x8, siz=0x8"`
	WrittenTime    binstruct.U64le `bin:"off=0x10, siz=0x8"`
	binstruct.End  `bin:"off=0x18"`
}

// parseRecordHeader parses the 24-byte record header at a chunk-local
// offset and validates its signature, declared size, and trailing
// size copy against chunk (spec §3 invariants: "signature 2A 2A 00
// 00, declared size >= 24, size repeated at payload end must match,
// payload fits within the chunk's data region").
func parseRecordHeader(chunk []byte, off int64) (*RecordHeader, error) {
	if off < 0 || int(off)+RecordHeaderSize > len(chunk) {
		return nil, evtxerr.New(evtxerr.KindOutOfBounds, "evtxfile.parseRecordHeader", off, "record header past end of chunk")
	}
	var h RecordHeader
	if _, err := binstruct.Unmarshal(chunk[off:off+RecordHeaderSize], &h); err != nil {
		return nil, evtxerr.Wrap(evtxerr.KindIO, "evtxfile.parseRecordHeader", off, err)
	}
	if !bytes.Equal(h.Signature[:], recordSignature[:]) {
		return nil, evtxerr.New(evtxerr.KindInvalidSignature, "evtxfile.parseRecordHeader", off, "record signature is not 2A 2A 00 00")
	}
	size := uint32(h.Size)
	if size < RecordHeaderSize {
		return nil, evtxerr.New(evtxerr.KindOutOfBounds, "evtxfile.parseRecordHeader", off, "declared record size smaller than the header itself")
	}
	end := off + int64(size)
	if end > int64(len(chunk)) {
		return nil, evtxerr.New(evtxerr.KindOutOfBounds, "evtxfile.parseRecordHeader", off, "record runs past end of chunk")
	}
	trailingSize := evtxcrc.U32(chunk[end-4 : end])
	if trailingSize != size {
		return nil, evtxerr.New(evtxerr.KindOutOfBounds, "evtxfile.parseRecordHeader", off,
			"trailing size copy does not match header size")
	}
	return &h, nil
}
