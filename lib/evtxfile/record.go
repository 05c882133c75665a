package evtxfile

import (
	"encoding/hex"
	"strconv"

	"github.com/libyal/libevtx-sub000/lib/evtxbxml"
	"github.com/libyal/libevtx-sub000/lib/evtxerr"
	"github.com/libyal/libevtx-sub000/lib/evtxvalue"
	"github.com/libyal/libevtx-sub000/lib/evtxxml"
)

// Record is one event record, either a live record enumerated off a
// valid chunk's header-declared bounds, or a recovered record found
// by scanning (spec §3 "Event record", §6 "record_offset").
type Record struct {
	chunk       *Chunk
	Identifier  uint64
	WrittenTime uint64 // raw FILETIME ticks

	// headerOffset is the chunk-local offset of the 24-byte record
	// header; bxmlOffset (headerOffset+24) is where the BXML payload
	// begins.
	headerOffset int64
	size         uint32
}

func (r *Record) bxmlOffset() int64 { return r.headerOffset + RecordHeaderSize }

// TimeCreated renders WrittenTime in the same format as a
// FileTimeType value elsewhere in a record's XML (spec §4.5
// FileTimeType), for callers that want the record's timestamp without
// materializing the full tree.
func (r *Record) TimeCreated() string {
	return evtxvalue.FormatFileTime(r.WrittenTime)
}

// Offset is the absolute file offset of the record header — a
// supplemented accessor (spec §6 lists it alongside the string/data
// accessors) useful for correlating a record back to its position in
// the raw file, e.g. when cross-referencing against an external
// carver's output.
func (r *Record) Offset() int64 {
	return r.chunk.FileOffset + r.headerOffset
}

// Size is the record's declared on-wire size in bytes, including its
// 24-byte header and trailing size copy.
func (r *Record) Size() uint32 { return r.size }

// Tag materializes the record's BXML payload into an XML tag tree
// (spec §4.4 entry point "read_document"), consulting (and populating)
// the owning chunk's shared name/template tables.
func (r *Record) Tag() (*evtxxml.Tag, error) {
	b := evtxbxml.NewBuilder(r.chunk.buf, r.chunk.tables, r.chunk.codepage)
	b.SetAbortCheck(r.chunk.abortCheck)
	return b.ReadDocument(r.bxmlOffset())
}

// system looks up the record's System element, the common ancestor of
// every accessor in spec §4.6.
func (r *Record) system() (*evtxxml.Tag, error) {
	tag, err := r.Tag()
	if err != nil {
		return nil, err
	}
	sys := tag.Child("System")
	if sys == nil {
		return nil, evtxerr.New(evtxerr.KindMissingField, "evtxfile.Record.system", r.Offset(), "no System element")
	}
	return sys, nil
}

// EventIdentifier is spec §4.6 "event_identifier() -> u32": the
// System/EventID element's text content, parsed as decimal.
func (r *Record) EventIdentifier() (uint32, error) {
	sys, err := r.system()
	if err != nil {
		return 0, err
	}
	id := sys.Child("EventID")
	if id == nil {
		return 0, evtxerr.New(evtxerr.KindMissingField, "evtxfile.Record.EventIdentifier", r.Offset(), "no System/EventID element")
	}
	v, err := strconv.ParseUint(id.TextContent(), 10, 32)
	if err != nil {
		return 0, evtxerr.Wrap(evtxerr.KindTypeMismatch, "evtxfile.Record.EventIdentifier", r.Offset(), err)
	}
	return uint32(v), nil
}

// EventIdentifierQualifiers is spec §4.6
// "event_identifier_qualifiers() -> u32 | None": the
// System/EventID/@Qualifiers attribute, absent when EventID carries no
// such attribute.
func (r *Record) EventIdentifierQualifiers() (uint32, bool, error) {
	sys, err := r.system()
	if err != nil {
		return 0, false, err
	}
	id := sys.Child("EventID")
	if id == nil {
		return 0, false, nil
	}
	raw, ok := id.Attr("Qualifiers")
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false, evtxerr.Wrap(evtxerr.KindTypeMismatch, "evtxfile.Record.EventIdentifierQualifiers", r.Offset(), err)
	}
	return uint32(v), true, nil
}

// EventLevel is spec §4.6 "event_level() -> u8": the System/Level
// element's text content.
func (r *Record) EventLevel() (uint8, error) {
	sys, err := r.system()
	if err != nil {
		return 0, err
	}
	lvl := sys.Child("Level")
	if lvl == nil {
		return 0, evtxerr.New(evtxerr.KindMissingField, "evtxfile.Record.EventLevel", r.Offset(), "no System/Level element")
	}
	v, err := strconv.ParseUint(lvl.TextContent(), 10, 8)
	if err != nil {
		return 0, evtxerr.Wrap(evtxerr.KindTypeMismatch, "evtxfile.Record.EventLevel", r.Offset(), err)
	}
	return uint8(v), nil
}

// ProviderIdentifier is spec §4.6 "provider_identifier() -> string":
// the System/Provider/@Guid attribute.
func (r *Record) ProviderIdentifier() (string, error) {
	sys, err := r.system()
	if err != nil {
		return "", err
	}
	prov := sys.Child("Provider")
	if prov == nil {
		return "", evtxerr.New(evtxerr.KindMissingField, "evtxfile.Record.ProviderIdentifier", r.Offset(), "no System/Provider element")
	}
	guid, _ := prov.Attr("Guid")
	return guid, nil
}

// SourceName is spec §4.6 "source_name() -> string":
// System/Provider/@EventSourceName, falling back to @Name.
func (r *Record) SourceName() (string, error) {
	sys, err := r.system()
	if err != nil {
		return "", err
	}
	prov := sys.Child("Provider")
	if prov == nil {
		return "", evtxerr.New(evtxerr.KindMissingField, "evtxfile.Record.SourceName", r.Offset(), "no System/Provider element")
	}
	if name, ok := prov.Attr("EventSourceName"); ok {
		return name, nil
	}
	name, _ := prov.Attr("Name")
	return name, nil
}

// ComputerName is spec §4.6 "computer_name() -> string": the
// System/Computer element's text content.
func (r *Record) ComputerName() (string, error) {
	sys, err := r.system()
	if err != nil {
		return "", err
	}
	comp := sys.Child("Computer")
	if comp == nil {
		return "", evtxerr.New(evtxerr.KindMissingField, "evtxfile.Record.ComputerName", r.Offset(), "no System/Computer element")
	}
	return comp.TextContent(), nil
}

// UserSecurityIdentifier is spec §4.6
// "user_security_identifier() -> string": the System/Security/@UserID
// attribute.
func (r *Record) UserSecurityIdentifier() (string, error) {
	sys, err := r.system()
	if err != nil {
		return "", err
	}
	sec := sys.Child("Security")
	if sec == nil {
		return "", evtxerr.New(evtxerr.KindMissingField, "evtxfile.Record.UserSecurityIdentifier", r.Offset(), "no System/Security element")
	}
	uid, _ := sec.Attr("UserID")
	return uid, nil
}

// dataContainer locates the EventData element, falling back to
// UserData (spec §4.6 "the character-data children of the EventData
// (or UserData) element").
func dataContainer(tag *evtxxml.Tag) *evtxxml.Tag {
	if c := tag.Child("EventData"); c != nil {
		return c
	}
	return tag.Child("UserData")
}

// XMLStringUTF8 renders the record as indented UTF-8 XML text (spec
// §4.7, §6 "xml_string_utf8").
func (r *Record) XMLStringUTF8() (string, error) {
	tag, err := r.Tag()
	if err != nil {
		return "", err
	}
	return evtxxml.SerializeUTF8(tag), nil
}

// XMLStringUTF16 renders the record as UTF-16LE XML text with a
// leading BOM (spec §4.7, §6 "xml_string_utf16"), satisfying testable
// property 6 (utf16_to_utf8(xml_string_utf16(r)) == xml_string_utf8(r)).
func (r *Record) XMLStringUTF16() ([]byte, error) {
	tag, err := r.Tag()
	if err != nil {
		return nil, err
	}
	return evtxxml.SerializeUTF16(tag), nil
}

// NumberOfStrings and String implement spec §4.6/§6's
// "number_of_strings() / string(i)": the character-data children of
// the EventData (or UserData) element specifically, in document
// order — not every Text/CDATA run in the whole tree, which would
// also pick up System's own element text.
func (r *Record) NumberOfStrings() (int, error) {
	strs, err := r.collectStrings()
	if err != nil {
		return 0, err
	}
	return len(strs), nil
}

func (r *Record) String(index int) (string, error) {
	strs, err := r.collectStrings()
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(strs) {
		return "", evtxerr.New(evtxerr.KindOutOfBounds, "evtxfile.Record.String", int64(index), "string index out of range")
	}
	return strs[index], nil
}

func (r *Record) collectStrings() ([]string, error) {
	tag, err := r.Tag()
	if err != nil {
		return nil, err
	}
	container := dataContainer(tag)
	if container == nil {
		return nil, nil
	}
	var out []string
	for _, n := range container.Children {
		switch n.Kind {
		case evtxxml.KindText, evtxxml.KindCDATA:
			if n.Text != "" {
				out = append(out, n.Text)
			}
		}
	}
	return out, nil
}

// Data is spec §4.6/§6 "data() -> bytes": the decoded raw bytes of the
// EventData/Binary element, if present — BINARY values are rendered
// into XML as lowercase hex text with no separators (spec's BXML
// value-type table), so this decodes that text back to bytes rather
// than returning the record's own BXML payload.
func (r *Record) Data() ([]byte, error) {
	tag, err := r.Tag()
	if err != nil {
		return nil, err
	}
	container := dataContainer(tag)
	if container == nil {
		return nil, evtxerr.New(evtxerr.KindMissingField, "evtxfile.Record.Data", r.Offset(), "no EventData or UserData element")
	}
	bin := container.Child("Binary")
	if bin == nil {
		return nil, evtxerr.New(evtxerr.KindMissingField, "evtxfile.Record.Data", r.Offset(), "no EventData/Binary element")
	}
	dat, err := hex.DecodeString(bin.TextContent())
	if err != nil {
		return nil, evtxerr.Wrap(evtxerr.KindTypeMismatch, "evtxfile.Record.Data", r.Offset(), err)
	}
	return dat, nil
}

// RawData returns the record's raw BXML payload bytes, for callers
// that want to re-parse or hash the payload directly rather than go
// through the materialized tree.
func (r *Record) RawData() []byte {
	start := r.bxmlOffset()
	end := r.headerOffset + int64(r.size) - 4 // exclude the trailing size copy
	return r.chunk.buf[start:end]
}
