package evtxbxml

import (
	"github.com/libyal/libevtx-sub000/lib/evtxerr"
	"github.com/libyal/libevtx-sub000/lib/evtxxml"
)

// TemplateDefinition is a chunk-scoped, reusable BXML element skeleton
// with typed substitution placeholders (spec §3, "Template
// definition"). Identity is the chunk-local offset at which it first
// appears; it is parsed exactly once per chunk and shared (by
// pointer) across every TEMPLATE_INSTANCE that refers to the same
// offset (testable property 8), mirroring the teacher's use of
// reference-counted immutable template/name objects (design note in
// spec §9 — Go's GC stands in for the Arc/shared_ptr the note asks
// for, since a shared *TemplateDefinition is never mutated after
// readTemplateDefinition has filled in its Skeleton).
type TemplateDefinition struct {
	Offset   int64
	Next     int64
	GUID     [16]byte
	Size     uint32
	Skeleton *evtxxml.Tag
}

const templateFixedHeaderSize = 24 // next(4) + guid(16) + size(4)

// readTemplateDefinition parses the template definition at a
// chunk-relative offset (spec §4.4.1 "Template definition layout").
// b is the Builder used to parse the definition's BXML fragment in
// skeleton mode (no value array in scope).
func (b *Builder) readTemplateDefinition(off int64) (*TemplateDefinition, error) {
	buf := b.buf
	if off < 0 || int(off)+templateFixedHeaderSize > len(buf) {
		return nil, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readTemplateDefinition", off, "template header past end of chunk")
	}
	next := int64(le32(buf[off:]))
	var guid [16]byte
	copy(guid[:], buf[off+4:off+20])
	size := le32(buf[off+20:])

	fragStart := off + templateFixedHeaderSize
	fragEnd := fragStart + int64(size)
	if fragEnd < fragStart || int(fragEnd) > len(buf) {
		return nil, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readTemplateDefinition", off, "template fragment past end of chunk")
	}

	def := &TemplateDefinition{Offset: off, Next: next, GUID: guid, Size: size}
	// Install before recursing so a self-referential template (one
	// whose fragment instantiates itself) cannot recurse forever: the
	// depth bound in readElement still applies, but caching early
	// also matches the "parsed exactly once per chunk" invariant even
	// when parse order revisits the same offset mid-parse.
	b.tables.Templates[off] = def

	root, _, err := b.readFragment(fragStart, fragEnd, nil)
	if err != nil {
		delete(b.tables.Templates, off)
		return nil, err
	}
	def.Skeleton = root
	return def, nil
}

// resolveTemplate returns the template definition at off, parsing and
// caching it on first reference.
func (b *Builder) resolveTemplate(off int64) (*TemplateDefinition, error) {
	if def, ok := b.tables.Templates[off]; ok {
		return def, nil
	}
	return b.readTemplateDefinition(off)
}

// WalkTemplateChain follows a template definition's "next" pointer
// chain starting at off, detecting cycles by revisited offset (spec
// §9 open question: the C library does not detect a cyclic next-list;
// this implementation reports evtxerr.KindOutOfBounds on a revisit
// instead of looping forever). It is not used by document
// materialization (which only ever looks a template up by the exact
// offset a TEMPLATE_INSTANCE names); it backs evtxfile's
// Chunk.WalkTemplates, which enumerates every template in a chunk.
func (b *Builder) WalkTemplateChain(off int64) ([]*TemplateDefinition, error) {
	seen := make(map[int64]bool)
	var out []*TemplateDefinition
	for off != 0 {
		if seen[off] {
			return out, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.WalkTemplateChain", off, "cyclic template next-pointer chain")
		}
		seen[off] = true
		def, err := b.resolveTemplate(off)
		if err != nil {
			return out, err
		}
		out = append(out, def)
		off = def.Next
	}
	return out, nil
}
