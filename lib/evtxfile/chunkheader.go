package evtxfile

import (
	"bytes"

	"github.com/libyal/libevtx-sub000/lib/binstruct"
	"github.com/libyal/libevtx-sub000/lib/evtxcrc"
	"github.com/libyal/libevtx-sub000/lib/evtxerr"
)

// ChunkHeader is the bit-exact layout of the 128-byte chunk header
// (spec §4.2).
type ChunkHeader struct {
	Signature                [8]byte         `bin:"off=0x0,  siz=0x8"`
	FirstEventRecordNumber   binstruct.U64le `bin:"off=0x8,  siz=0x8"`
	LastEventRecordNumber    binstruct.U64le `bin:"off=0x10, siz=0x8"`
	FirstEventRecordID       binstruct.U64le `bin:"off=0x18, siz=0x8"`
	LastEventRecordID        binstruct.U64le `bin:"off=0x20, siz=0x8"`
	HeaderSize               binstruct.U32le `bin:"off=0x28, siz=0x4"`
	LastRecordDataOffset     binstruct.U32le `bin:"off=0x2c, siz=0x4"`
	FreeSpaceOffset          binstruct.U32le `bin:"off=0x30, siz=0x4"`
	EventRecordsCRC32        binstruct.U32le `bin:"off=0x34, siz=0x4"`
	Reserved                 [64]byte        `bin:"off=0x38, siz=0x40"`
	Unknown                  [4]byte         `bin:"off=0x78, siz=0x4"`
	HeaderCRC32              binstruct.U32le `bin:"off=0x7c, siz=0x4"`
	binstruct.End            `bin:"off=0x80"`
}

// parseChunkHeader parses the 128-byte header at the start of chunk
// (the chunk's own 65536-byte buffer, already sliced out of the
// file). It does not validate checksums or bounds; callers do that
// (validateSignatureAndCRC) so that a header that fails validation can still be
// inspected for diagnostics.
func parseChunkHeader(chunk []byte) (*ChunkHeader, error) {
	if len(chunk) < ChunkHeaderSize {
		return nil, evtxerr.New(evtxerr.KindIO, "evtxfile.parseChunkHeader", 0, "short read: need 128 bytes for chunk header")
	}
	var h ChunkHeader
	if _, err := binstruct.Unmarshal(chunk[:ChunkHeaderSize], &h); err != nil {
		return nil, evtxerr.Wrap(evtxerr.KindIO, "evtxfile.parseChunkHeader", 0, err)
	}
	return &h, nil
}

// validateSignatureAndCRC checks the chunk signature and both
// checksums (spec §4.2: "verify header CRC over bytes 0..120,
// 128..free_space_offset, concatenated with bytes 120..128"; "verify
// records-region CRC"), returning the first failure as a typed error.
// A failed records-region CRC is reported distinctly so callers can
// apply spec §4.2's "non-fatal" treatment of that one check.
func validateSignatureAndCRC(chunk []byte, h *ChunkHeader) (headerErr, recordsErr error) {
	if !bytes.Equal(h.Signature[:], chunkSignature[:]) {
		return evtxerr.New(evtxerr.KindInvalidSignature, "evtxfile.validateChunk", 0, "chunk signature is not \"ElfChnk\\0\""), nil
	}
	freeOff := uint32(h.FreeSpaceOffset)
	if freeOff < ChunkHeaderSize || int(freeOff) > len(chunk) {
		return evtxerr.New(evtxerr.KindOutOfBounds, "evtxfile.validateChunk", 0x30, "free-space-offset out of range"), nil
	}
	wantHeaderCRC := evtxcrc.ChecksumRanges(chunk[0:120], chunk[128:freeOff], chunk[120:128])
	if uint32(h.HeaderCRC32) != wantHeaderCRC {
		return evtxerr.New(evtxerr.KindChecksumMismatch, "evtxfile.validateChunk", 0x7c, "chunk header CRC-32 mismatch"), nil
	}
	wantRecordsCRC := evtxcrc.Checksum(chunk[ChunkHeaderSize:freeOff])
	if uint32(h.EventRecordsCRC32) != wantRecordsCRC {
		recordsErr = evtxerr.New(evtxerr.KindChecksumMismatch, "evtxfile.validateChunk", 0x34, "chunk records-region CRC-32 mismatch")
	}
	return nil, recordsErr
}
