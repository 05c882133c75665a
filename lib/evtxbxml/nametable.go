package evtxbxml

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/libyal/libevtx-sub000/lib/evtxerr"
)

// NameEntry is a chunk-scoped interned element/attribute name (spec
// §3, "Name entry"). Identity is the chunk-local offset at which it
// first appears; Tables.Names is keyed by that offset and entries are
// shared (by pointer) across every record in the chunk that
// references the same offset (testable property 7).
type NameEntry struct {
	Offset int64
	Hash   uint16
	Name   string
}

// readName parses a name record at a chunk-relative offset: 4 bytes
// unknown, 2 bytes hash, 2 bytes char-count (UTF-16 units, excluding
// the terminating NUL which is present on disk), then
// (char-count+1)*2 bytes of UTF-16LE including the terminator (spec
// §4.2 "Name resolution").
func readName(buf []byte, off int64) (*NameEntry, error) {
	const headerLen = 8
	if off < 0 || int(off)+headerLen > len(buf) {
		return nil, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readName", off, "name header past end of chunk")
	}
	hash := binary.LittleEndian.Uint16(buf[off+4:])
	charCount := int(binary.LittleEndian.Uint16(buf[off+6:]))
	byteLen := (charCount + 1) * 2
	start := int(off) + headerLen
	if start+byteLen > len(buf) {
		return nil, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readName", off, "name text past end of chunk")
	}
	units := make([]uint16, charCount)
	for i := 0; i < charCount; i++ {
		units[i] = binary.LittleEndian.Uint16(buf[start+2*i:])
	}
	runes := utf16.Decode(units)
	for _, r := range runes {
		if r == 0xFFFD {
			return nil, evtxerr.New(evtxerr.KindInvalidUTF16, "evtxbxml.readName", off, "ill-formed surrogate sequence in name")
		}
	}
	return &NameEntry{Offset: off, Hash: hash, Name: string(runes)}, nil
}

// nameByteLen is the total on-wire size (header + text + NUL) of the
// name record at off, used by callers that need to know where the
// name ends (e.g. when it is inlined immediately before other data).
func nameByteLen(buf []byte, off int64) (int64, error) {
	const headerLen = 8
	if off < 0 || int(off)+headerLen > len(buf) {
		return 0, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.nameByteLen", off, "name header past end of chunk")
	}
	charCount := int(binary.LittleEndian.Uint16(buf[off+6:]))
	return int64(headerLen + (charCount+1)*2), nil
}

// Tables holds the two chunk-scoped caches keyed by chunk-local byte
// offset (spec §3 "Name entry"/"Template definition"; spec §4.2
// "Maintain two chunk-local maps").
type Tables struct {
	Names     map[int64]*NameEntry
	Templates map[int64]*TemplateDefinition
}

// NewTables allocates empty, chunk-scoped name/template tables.
func NewTables() *Tables {
	return &Tables{
		Names:     make(map[int64]*NameEntry),
		Templates: make(map[int64]*TemplateDefinition),
	}
}

// resolveName returns the interned name at off, parsing and caching
// it on first reference (spec §4.2 "Name resolution").
func (t *Tables) resolveName(buf []byte, off int64) (*NameEntry, error) {
	if n, ok := t.Names[off]; ok {
		return n, nil
	}
	n, err := readName(buf, off)
	if err != nil {
		return nil, err
	}
	t.Names[off] = n
	return n, nil
}
