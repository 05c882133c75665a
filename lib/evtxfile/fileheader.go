// Package evtxfile implements the file and chunk header parsing, CRC
// validation, and record enumeration of components C8-C10: the
// outermost layer that turns a raw byte stream into chunk and record
// boundaries, on top of which evtxbxml materializes record payloads.
package evtxfile

import (
	"bytes"

	"github.com/libyal/libevtx-sub000/lib/binstruct"
	"github.com/libyal/libevtx-sub000/lib/containers"
	"github.com/libyal/libevtx-sub000/lib/evtxcrc"
	"github.com/libyal/libevtx-sub000/lib/evtxerr"
)

// On-disk geometry constants (spec §4.1/§4.2).
const (
	FileHeaderSize   = 128
	FirstChunkOffset = 4096
	ChunkSize        = 65536
	ChunkHeaderSize  = 128
	RecordHeaderSize = 24
)

var (
	fileSignature  = [8]byte{'E', 'l', 'f', 'F', 'i', 'l', 'e', 0x00}
	chunkSignature = [8]byte{'E', 'l', 'f', 'C', 'h', 'n', 'k', 0x00}
	// recordSignature is the 4-byte "**\0\0" magic named in spec §3
	// ("Event record... signature 2A 2A 00 00").
	recordSignature = [4]byte{0x2A, 0x2A, 0x00, 0x00}
)

// FileHeader is the bit-exact layout of the 128-byte file header
// (spec §4.1), parsed with the same offset/size-tagged-struct
// discipline the teacher uses for on-disk node headers
// (btrfstree.NodeHeader).
type FileHeader struct {
	Signature            [8]byte         `bin:"off=0x0,  siz=0x8"`
	FirstChunkNumber      binstruct.U64le `bin:"off=0x8,  siz=0x8"`
	LastChunkNumber       binstruct.U64le `bin:"off=0x10, siz=0x8"`
	NextRecordIdentifier  binstruct.U64le `bin:"off=0x18, siz=0x8"`
	HeaderSize            binstruct.U32le `bin:"off=0x20, siz=0x4"`
	MinorVersion          binstruct.U16le `bin:"off=0x24, siz=0x2"`
	MajorVersion          binstruct.U16le `bin:"off=0x26, siz=0x2"`
	HeaderBlockSize       binstruct.U16le `bin:"off=0x28, siz=0x2"`
	NumberOfChunks        binstruct.U16le `bin:"off=0x2a, siz=0x2"`
	Reserved              [76]byte        `bin:"off=0x2c, siz=0x4c"`
	FileFlags             binstruct.U32le `bin:"off=0x78, siz=0x4"`
	HeaderCRC32           binstruct.U32le `bin:"off=0x7c, siz=0x4"`
	binstruct.End         `bin:"off=0x80"`
}

// File flag bits (spec §3 "File descriptor": "bit 0 = dirty, bit 1 =
// full").
const (
	FileFlagDirty = 1 << 0
	FileFlagFull  = 1 << 1
)

// ParseFileHeader parses and validates the 128-byte file header found
// at the start of buf (spec §4.1 "open"). It does not look past byte
// 128; the reserved region 128..4096 is the caller's concern only
// insofar as chunk data begins there.
func ParseFileHeader(buf []byte) (*FileHeader, error) {
	if len(buf) < FileHeaderSize {
		return nil, evtxerr.New(evtxerr.KindIO, "evtxfile.ParseFileHeader", 0, "short read: need 128 bytes for file header")
	}
	var h FileHeader
	if _, err := binstruct.Unmarshal(buf[:FileHeaderSize], &h); err != nil {
		return nil, evtxerr.Wrap(evtxerr.KindIO, "evtxfile.ParseFileHeader", 0, err)
	}
	if !bytes.Equal(h.Signature[:], fileSignature[:]) {
		return nil, evtxerr.New(evtxerr.KindInvalidSignature, "evtxfile.ParseFileHeader", 0, "file signature is not \"ElfFile\\0\"")
	}
	if uint32(h.HeaderSize) != FileHeaderSize {
		return nil, evtxerr.New(evtxerr.KindUnsupportedVersion, "evtxfile.ParseFileHeader", 0x20, "header-size field is not 128")
	}
	if uint16(h.MajorVersion) != 3 {
		return nil, evtxerr.New(evtxerr.KindUnsupportedVersion, "evtxfile.ParseFileHeader", 0x26, "major version is not 3")
	}
	wantCRC := evtxcrc.Checksum(buf[0:120])
	if uint32(h.HeaderCRC32) != wantCRC {
		return nil, evtxerr.New(evtxerr.KindChecksumMismatch, "evtxfile.ParseFileHeader", 0x7c, "file header CRC-32 mismatch")
	}
	return &h, nil
}

// IsDirty reports the dirty flag (bit 0 of FileFlags).
func (h *FileHeader) IsDirty() bool { return uint32(h.FileFlags)&FileFlagDirty != 0 }

// IsFull reports the full flag (bit 1 of FileFlags).
func (h *FileHeader) IsFull() bool { return uint32(h.FileFlags)&FileFlagFull != 0 }

// EffectiveChunkCount applies the chunk-count tolerance rule of spec
// §4.1: "If last-chunk-number+1 > number-of-chunks, prefer
// last-chunk-number+1."
func (h *FileHeader) EffectiveChunkCount() uint64 {
	declared := uint64(h.NumberOfChunks)
	byLast := uint64(h.LastChunkNumber) + 1
	if containers.CmpUint(byLast, declared) > 0 {
		return byLast
	}
	return declared
}
