package evtxbxml

import (
	"fmt"

	"github.com/libyal/libevtx-sub000/lib/evtxerr"
	"github.com/libyal/libevtx-sub000/lib/evtxvalue"
	"github.com/libyal/libevtx-sub000/lib/evtxxml"
)

// maxRecursionDepth bounds BXML recursion (spec §5) so that a
// pathological or adversarial input cannot exhaust the Go call stack;
// exceeding it yields evtxerr.KindRecursionLimit rather than a crash.
const maxRecursionDepth = 256

// maxTemplateValues and maxValueSize are the wire-format limits named
// in spec §5: a template instance's value count and each value's size
// are both stored as fields that can address at most 65535.
const (
	maxTemplateValues = 65535
	maxValueSize      = 65535
)

// Builder performs the recursive-descent materialization of a BXML
// fragment into an evtxxml.Tag tree (spec component C7). A Builder is
// cheap and is constructed per document read; every Builder for a
// chunk is handed that chunk's one shared Tables, so Tables
// accumulates the chunk's interned names and parsed templates exactly
// once each (spec §4.2).
type Builder struct {
	buf        []byte
	tables     *Tables
	codepage   int
	depth      int
	abortCheck func() bool
}

// NewBuilder constructs a Builder over a chunk's raw byte buffer,
// sharing the given chunk-scoped Tables. codepage is the file's
// configured ASCII codepage, used to decode STRING_BYTE_STREAM values.
func NewBuilder(buf []byte, tables *Tables, codepage int) *Builder {
	return &Builder{buf: buf, tables: tables, codepage: codepage}
}

// SetAbortCheck installs a cooperative-cancellation poll (spec §5),
// consulted at the top-level fragment loop and at every element's
// child-token loop. A nil fn (the default) never aborts.
func (b *Builder) SetAbortCheck(fn func() bool) { b.abortCheck = fn }

func (b *Builder) aborted() bool { return b.abortCheck != nil && b.abortCheck() }

// ReadDocument is the entry point named in spec §4.4: it materializes
// the BXML fragment starting at startOffset (a record's payload, or a
// nested BINARY_XML value's byte range) into an XML tag tree.
func (b *Builder) ReadDocument(startOffset int64) (*evtxxml.Tag, error) {
	tag, _, err := b.readDocumentBounded(startOffset, int64(len(b.buf)))
	return tag, err
}

// readDocumentBounded parses a top-level BXML fragment within
// [startOffset, limit), per the grammar in spec §4.4: a loop accepting
// FRAGMENT_HEADER, TEMPLATE_INSTANCE, a bare root element (the shape a
// template *definition's* own fragment takes), and a terminating
// END_OF_FRAGMENT. Any other top-level token is UnexpectedToken.
func (b *Builder) readDocumentBounded(pos, limit int64) (*evtxxml.Tag, int64, error) {
	var root *evtxxml.Tag
	for {
		if b.aborted() {
			return nil, pos, evtxerr.New(evtxerr.KindAborted, "evtxbxml.readDocumentBounded", pos, "aborted")
		}
		if pos >= limit {
			return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readDocumentBounded", pos, "fragment ran past its bound without END_OF_FRAGMENT")
		}
		tok, err := readToken(b.buf, pos)
		if err != nil {
			return nil, pos, err
		}
		switch tok.Opcode {
		case OpFragmentHeader:
			if pos+4 > limit {
				return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readDocumentBounded", pos, "fragment header truncated")
			}
			major, minor := b.buf[pos+1], b.buf[pos+2]
			if major != 1 || minor != 1 {
				return nil, pos, evtxerr.Wrap(evtxerr.KindUnsupportedVersion, "evtxbxml.readDocumentBounded", pos,
					fmt.Errorf("fragment header version %d.%d, want 1.1", major, minor))
			}
			pos += 4
		case OpTemplateInstance:
			if root != nil {
				return nil, pos, evtxerr.New(evtxerr.KindUnexpectedToken, "evtxbxml.readDocumentBounded", pos, "second top-level template instance")
			}
			tag, newPos, err := b.readTemplateInstance(pos)
			if err != nil {
				return nil, pos, err
			}
			root, pos = tag, newPos
		case OpOpenStartElement:
			if root != nil {
				return nil, pos, evtxerr.New(evtxerr.KindUnexpectedToken, "evtxbxml.readDocumentBounded", pos, "second top-level element")
			}
			skeleton, newPos, err := b.readElement(pos)
			if err != nil {
				return nil, pos, err
			}
			root, pos = skeleton, newPos
		case OpEndOfFragment:
			return root, pos + 1, nil
		default:
			return nil, pos, evtxerr.New(evtxerr.KindUnexpectedToken, "evtxbxml.readDocumentBounded", pos,
				fmt.Sprintf("unexpected top-level token %v", tok.Opcode))
		}
	}
}

// readFragment is readDocumentBounded's entry point for a template
// definition's own fragment (spec §4.4.1: "begins with
// FRAGMENT_HEADER, contains exactly one root element subtree, ends
// with END_OF_FRAGMENT"). Kept as a distinctly-named wrapper so
// template.go's call site reads self-documentingly.
func (b *Builder) readFragment(start, limit int64, _ any) (*evtxxml.Tag, int64, error) {
	return b.readDocumentBounded(start, limit)
}

// resolveNameRef resolves a name reference field: nameOff is the
// value just read from the wire, curPos is the chunk offset
// immediately following that field (where an inline name record would
// begin). Returns the resolved name and the cursor position to
// continue from (advanced past the inline name bytes, if any).
func (b *Builder) resolveNameRef(nameOff, curPos int64) (*NameEntry, int64, error) {
	if nameOff == curPos {
		n, err := readName(b.buf, nameOff)
		if err != nil {
			return nil, curPos, err
		}
		b.tables.Names[nameOff] = n
		length, err := nameByteLen(b.buf, nameOff)
		if err != nil {
			return nil, curPos, err
		}
		return n, curPos + length, nil
	}
	n, err := b.tables.resolveName(b.buf, nameOff)
	if err != nil {
		return nil, curPos, err
	}
	return n, curPos, nil
}

// readTemplateInstance parses a TEMPLATE_INSTANCE token (spec
// §4.4.1): its 10-byte header, the template definition (inline or a
// back-reference, resolved/cached via Tables), the value array that
// follows, and returns the fully materialized (deep-cloned,
// substituted) element tree.
func (b *Builder) readTemplateInstance(pos int64) (*evtxxml.Tag, int64, error) {
	buf := b.buf
	if pos+10 > int64(len(buf)) {
		return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readTemplateInstance", pos, "template instance header truncated")
	}
	defOffset := int64(le32(buf[pos+6:]))
	afterHeader := pos + 10

	def, cached := b.tables.Templates[defOffset]
	if !cached {
		b.depth++
		if b.depth > maxRecursionDepth {
			b.depth--
			return nil, pos, evtxerr.New(evtxerr.KindRecursionLimit, "evtxbxml.readTemplateInstance", pos, "recursion depth exceeded parsing template definition")
		}
		var err error
		def, err = b.readTemplateDefinition(defOffset)
		b.depth--
		if err != nil {
			return nil, pos, err
		}
	}

	cursor := afterHeader
	if defOffset == afterHeader {
		cursor = defOffset + templateFixedHeaderSize + int64(def.Size)
	}
	if cursor > int64(len(buf)) {
		return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readTemplateInstance", pos, "template definition runs past end of chunk")
	}

	va, cursor, err := b.readValueArray(cursor)
	if err != nil {
		return nil, pos, err
	}

	result := def.Skeleton.Clone()
	if err := b.resolveTree(result, va); err != nil {
		return nil, pos, err
	}
	return result, cursor, nil
}

// valueDescriptor is one entry of a template instance's value array
// (spec §3 "Template instance value array").
type valueDescriptor struct {
	Size     uint16
	TypeByte byte
}

type valueArray struct {
	Descriptors []valueDescriptor
	Data        [][]byte
	Offsets     []int64 // chunk-absolute offset of each Data[i], for nested BXML values
}

func (b *Builder) readValueArray(pos int64) (*valueArray, int64, error) {
	buf := b.buf
	if pos+4 > int64(len(buf)) {
		return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readValueArray", pos, "value array count truncated")
	}
	n := le32(buf[pos:])
	pos += 4
	if n > maxTemplateValues {
		return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readValueArray", pos, fmt.Sprintf("value count %d exceeds wire limit", n))
	}
	descriptors := make([]valueDescriptor, n)
	for i := range descriptors {
		if pos+4 > int64(len(buf)) {
			return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readValueArray", pos, "value descriptor truncated")
		}
		descriptors[i] = valueDescriptor{Size: le16(buf[pos:]), TypeByte: buf[pos+2]}
		pos += 4
	}
	data := make([][]byte, n)
	offsets := make([]int64, n)
	for i, d := range descriptors {
		if d.Size > maxValueSize {
			return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readValueArray", pos, fmt.Sprintf("value %d size %d exceeds wire limit", i, d.Size))
		}
		end := pos + int64(d.Size)
		if end > int64(len(buf)) {
			return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readValueArray", pos, fmt.Sprintf("value %d runs past end of chunk", i))
		}
		offsets[i] = pos
		data[i] = buf[pos:end]
		pos = end
	}
	return &valueArray{Descriptors: descriptors, Data: data, Offsets: offsets}, pos, nil
}

// readElement parses one OPEN_START_ELEMENT through its matching
// END_ELEMENT/CLOSE_EMPTY_ELEMENT (spec §4.4.2), in skeleton mode:
// substitution tokens become evtxxml.KindSubstitution placeholders,
// never resolved values, since an element subtree is only ever parsed
// once per template definition and reused (spec §4.2, testable
// property 8) — resolution happens afterwards, against a clone, in
// resolveTree.
func (b *Builder) readElement(pos int64) (*evtxxml.Tag, int64, error) {
	b.depth++
	defer func() { b.depth-- }()
	if b.depth > maxRecursionDepth {
		return nil, pos, evtxerr.New(evtxerr.KindRecursionLimit, "evtxbxml.readElement", pos, "element recursion depth exceeded")
	}

	buf := b.buf
	tok, err := readToken(buf, pos)
	if err != nil {
		return nil, pos, err
	}
	if tok.Opcode != OpOpenStartElement {
		return nil, pos, evtxerr.New(evtxerr.KindUnexpectedToken, "evtxbxml.readElement", pos, "expected OpenStartElement")
	}
	if pos+11 > int64(len(buf)) {
		return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readElement", pos, "element header truncated")
	}
	// 2 bytes dependency id (unused for rendering), 4 bytes element
	// size (bounds-checked below per spec §9's explicit mandate
	// against the format's "-4" underflow footgun), 4 bytes name
	// offset.
	elemSizeField := le32(buf[pos+3:])
	if elemSizeField < 4 {
		return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readElement", pos, "element size field smaller than its own 4-byte adjustment")
	}
	nameOffset := int64(le32(buf[pos+7:]))
	cursor := pos + 11

	name, cursor, err := b.resolveNameRef(nameOffset, cursor)
	if err != nil {
		return nil, pos, err
	}

	tag := evtxxml.NewTag(name.Name)

	if tok.HasMore {
		if cursor+4 > int64(len(buf)) {
			return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readElement", cursor, "attribute list size truncated")
		}
		attrListSize := int64(le32(buf[cursor:]))
		cursor += 4
		attrListEnd := cursor + attrListSize
		if attrListEnd > int64(len(buf)) {
			return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readElement", cursor, "attribute list runs past end of chunk")
		}
		attrs, newCursor, err := b.readAttributes(cursor)
		if err != nil {
			return nil, pos, err
		}
		if newCursor != attrListEnd {
			return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readElement", cursor,
				fmt.Sprintf("attribute list declared %d bytes, consumed %d", attrListSize, newCursor-cursor))
		}
		tag.Attrs = attrs
		cursor = newCursor
	}

	closeTok, err := readToken(buf, cursor)
	if err != nil {
		return nil, pos, err
	}
	switch closeTok.Opcode {
	case OpCloseEmptyElement:
		return tag, cursor + 1, nil
	case OpCloseStartElement:
		cursor++
	default:
		return nil, pos, evtxerr.New(evtxerr.KindUnexpectedToken, "evtxbxml.readElement", cursor, "expected CloseStartElement or CloseEmptyElement")
	}

	for {
		if b.aborted() {
			return nil, pos, evtxerr.New(evtxerr.KindAborted, "evtxbxml.readElement", cursor, "aborted")
		}
		childTok, err := readToken(buf, cursor)
		if err != nil {
			return nil, pos, err
		}
		switch childTok.Opcode {
		case OpEndElement:
			return tag, cursor + 1, nil
		case OpOpenStartElement:
			child, newCursor, err := b.readElement(cursor)
			if err != nil {
				return nil, pos, err
			}
			tag.AddChild(child)
			cursor = newCursor
		case OpValue:
			text, isCDATA, newCursor, err := b.readValueLiteral(cursor)
			if err != nil {
				return nil, pos, err
			}
			if isCDATA {
				tag.AddCDATA(text)
			} else {
				tag.AddText(text)
			}
			cursor = newCursor
		case OpCDATASection:
			text, newCursor, err := b.readCDATA(cursor)
			if err != nil {
				return nil, pos, err
			}
			tag.AddCDATA(text)
			cursor = newCursor
		case OpCharacterReference:
			if cursor+3 > int64(len(buf)) {
				return nil, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readElement", cursor, "character reference truncated")
			}
			tag.AddCharRef(le16(buf[cursor+1:]))
			cursor += 3
		case OpEntityReference:
			name, newCursor, err := b.readEntityReference(cursor)
			if err != nil {
				return nil, pos, err
			}
			tag.AddEntityRef(name)
			cursor = newCursor
		case OpPITarget:
			target, piData, newCursor, err := b.readPI(cursor)
			if err != nil {
				return nil, pos, err
			}
			tag.AddPI(target, piData)
			cursor = newCursor
		case OpNormalSubstitution, OpOptionalSubstitution:
			node, newCursor, err := b.readSubstitutionNode(cursor, childTok.Opcode == OpOptionalSubstitution)
			if err != nil {
				return nil, pos, err
			}
			tag.Children = append(tag.Children, node)
			cursor = newCursor
		default:
			return nil, pos, evtxerr.New(evtxerr.KindUnexpectedToken, "evtxbxml.readElement", cursor,
				fmt.Sprintf("unexpected child token %v", childTok.Opcode))
		}
	}
}

func (b *Builder) readSubstitutionNode(pos int64, optional bool) (evtxxml.Node, int64, error) {
	buf := b.buf
	if pos+4 > int64(len(buf)) {
		return evtxxml.Node{}, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readSubstitutionNode", pos, "substitution token truncated")
	}
	id := le16(buf[pos+1:])
	typ := buf[pos+3]
	return evtxxml.Node{Kind: evtxxml.KindSubstitution, SubID: id, SubType: typ, SubOptional: optional}, pos + 4, nil
}

func (b *Builder) readEntityReference(pos int64) (string, int64, error) {
	buf := b.buf
	if pos+5 > int64(len(buf)) {
		return "", pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readEntityReference", pos, "entity reference truncated")
	}
	nameOff := int64(le32(buf[pos+1:]))
	name, _, err := b.resolveNameRef(nameOff, pos+5)
	if err != nil {
		return "", pos, err
	}
	return name.Name, pos + 5, nil
}

func (b *Builder) readPI(pos int64) (target, data string, next int64, err error) {
	buf := b.buf
	if pos+5 > int64(len(buf)) {
		return "", "", pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readPI", pos, "PI target truncated")
	}
	nameOff := int64(le32(buf[pos+1:]))
	nameEntry, cursor, err := b.resolveNameRef(nameOff, pos+5)
	if err != nil {
		return "", "", pos, err
	}
	dataTok, err := readToken(buf, cursor)
	if err != nil {
		return "", "", pos, err
	}
	if dataTok.Opcode != OpPIData {
		return "", "", pos, evtxerr.New(evtxerr.KindUnexpectedToken, "evtxbxml.readPI", cursor, "expected PIData after PITarget")
	}
	if cursor+3 > int64(len(buf)) {
		return "", "", pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readPI", cursor, "PI data truncated")
	}
	charCount := int(le16(buf[cursor+1:]))
	start := cursor + 3
	byteLen := int64(charCount * 2)
	if start+byteLen > int64(len(buf)) {
		return "", "", pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readPI", start, "PI data text truncated")
	}
	text, err := evtxvalue.Decode(evtxvalue.StringUTF16, false, buf[start:start+byteLen], evtxvalue.Context{Codepage: b.codepage})
	if err != nil {
		return "", "", pos, evtxerr.Wrap(evtxerr.KindInvalidUTF16, "evtxbxml.readPI", start, err)
	}
	return nameEntry.Name, text, start + byteLen, nil
}

func (b *Builder) readCDATA(pos int64) (string, int64, error) {
	buf := b.buf
	if pos+3 > int64(len(buf)) {
		return "", pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readCDATA", pos, "CDATA header truncated")
	}
	charCount := int(le16(buf[pos+1:]))
	start := pos + 3
	byteLen := int64(charCount * 2)
	if start+byteLen > int64(len(buf)) {
		return "", pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readCDATA", start, "CDATA text truncated")
	}
	text, err := evtxvalue.Decode(evtxvalue.StringUTF16, false, buf[start:start+byteLen], evtxvalue.Context{Codepage: b.codepage})
	if err != nil {
		return "", pos, evtxerr.Wrap(evtxerr.KindInvalidUTF16, "evtxbxml.readCDATA", start, err)
	}
	return text, start + byteLen, nil
}

// readValueLiteral parses an inline VALUE token (spec §4.4.6),
// decoding it immediately since it carries no placeholder semantics.
// isCDATA is always false here; it exists so callers share the same
// two-return shape as readCDATA (VALUE never produces CDATA, but both
// call sites append to the same tag via one branch in readElement).
func (b *Builder) readValueLiteral(pos int64) (text string, isCDATA bool, next int64, err error) {
	buf := b.buf
	if pos+2 > int64(len(buf)) {
		return "", false, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readValueLiteral", pos, "value header truncated")
	}
	typeByte := buf[pos+1]
	typ, isArrayBit := evtxvalue.ParseTypeByte(typeByte)
	cursor := pos + 2

	isStringList := typ == evtxvalue.StringUTF16 && isValueListFlag(buf[pos])

	var body []byte
	switch {
	case typ == evtxvalue.NullType:
		return "", false, cursor, nil
	case typ == evtxvalue.BinaryXMLType:
		text, next, err := b.readNestedBXML(cursor)
		return text, false, next, err
	case isFixedWidth(typ) && !isArrayBit:
		size, _ := typ.FixedSize()
		if int64(size) > int64(len(buf))-cursor {
			return "", false, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readValueLiteral", cursor, "fixed-width value truncated")
		}
		body = buf[cursor : cursor+int64(size)]
		cursor += int64(size)
	default:
		if cursor+2 > int64(len(buf)) {
			return "", false, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readValueLiteral", cursor, "length-prefixed value count truncated")
		}
		count := int64(le16(buf[cursor:]))
		cursor += 2
		byteLen := count
		if typ == evtxvalue.StringUTF16 {
			byteLen = count * 2
		}
		if cursor+byteLen > int64(len(buf)) {
			return "", false, pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readValueLiteral", cursor, "length-prefixed value body truncated")
		}
		body = buf[cursor : cursor+byteLen]
		cursor += byteLen
	}

	rendered, err := evtxvalue.Decode(typ, isArrayBit || isStringList, body, evtxvalue.Context{Codepage: b.codepage})
	if err != nil {
		return "", false, pos, evtxerr.Wrap(evtxerr.KindTypeMismatch, "evtxbxml.readValueLiteral", pos, err)
	}
	return rendered, false, cursor, nil
}

func isValueListFlag(rawOpcodeByte byte) bool {
	return rawOpcodeByte&hasMoreDataBit != 0
}

func isFixedWidth(t evtxvalue.Type) bool {
	_, ok := t.FixedSize()
	return ok && t != evtxvalue.NullType
}

// readNestedBXML parses value type 0x21 (BINARY_XML): the value's
// bytes are themselves a chunk-relative BXML fragment addressed at
// the value's own absolute chunk offset, so that any name/template
// references inside it resolve against this chunk's shared Tables
// (spec §4.5, type 0x21). The materialized subtree is serialized back
// to XML text and spliced in as the "rendered inline" text the spec
// calls for.
func (b *Builder) readNestedBXML(pos int64) (string, int64, error) {
	if pos+2 > int64(len(b.buf)) {
		return "", pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readNestedBXML", pos, "nested bxml length truncated")
	}
	count := int64(le16(b.buf[pos:]))
	start := pos + 2
	end := start + count
	if end > int64(len(b.buf)) {
		return "", pos, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readNestedBXML", start, "nested bxml body truncated")
	}
	b.depth++
	defer func() { b.depth-- }()
	if b.depth > maxRecursionDepth {
		return "", pos, evtxerr.New(evtxerr.KindRecursionLimit, "evtxbxml.readNestedBXML", start, "recursion depth exceeded parsing nested bxml")
	}
	tag, _, err := b.readDocumentBounded(start, end)
	if err != nil {
		return "", pos, err
	}
	if tag == nil {
		return "", end, nil
	}
	return evtxxml.SerializeUTF8(tag), end, nil
}

// resolveTree walks a freshly cloned skeleton and substitutes every
// KindSubstitution placeholder (in both Attrs and Children) against
// va, implementing the Materialization Rule of spec §4.4.1: a
// substitution (optional or not) whose index is out of range is a hard
// SubstitutionOutOfRange error; an optional substitution whose value
// is NULL-typed or zero-size is elided entirely (the attribute is
// dropped, the child node is dropped); any other substitution is
// replaced by its decoded text.
func (b *Builder) resolveTree(tag *evtxxml.Tag, va *valueArray) error {
	if len(tag.Attrs) > 0 {
		kept := tag.Attrs[:0]
		for _, a := range tag.Attrs {
			if a.Sub == nil {
				kept = append(kept, a)
				continue
			}
			text, elide, err := b.resolveSubstitution(*a.Sub, va)
			if err != nil {
				return err
			}
			if elide {
				continue
			}
			a.Value = text
			a.Sub = nil
			kept = append(kept, a)
		}
		tag.Attrs = kept
	}

	if len(tag.Children) > 0 {
		kept := tag.Children[:0]
		for _, n := range tag.Children {
			switch n.Kind {
			case evtxxml.KindElement:
				if err := b.resolveTree(n.Elem, va); err != nil {
					return err
				}
				kept = append(kept, n)
			case evtxxml.KindSubstitution:
				text, elide, err := b.resolveSubstitution(n, va)
				if err != nil {
					return err
				}
				if elide {
					continue
				}
				kept = append(kept, evtxxml.Node{Kind: evtxxml.KindText, Text: text})
			default:
				kept = append(kept, n)
			}
		}
		tag.Children = kept
	}
	return nil
}

// resolveSubstitution decodes the value array entry a substitution
// placeholder refers to. The placeholder's own SubType (declared by
// the template skeleton) is informational only; the value array
// descriptor's type byte is authoritative, matching the C library's
// behavior of trusting the instance data over the template (spec §9
// open question).
func (b *Builder) resolveSubstitution(sub evtxxml.Node, va *valueArray) (text string, elide bool, err error) {
	if int(sub.SubID) >= len(va.Descriptors) {
		return "", false, evtxerr.New(evtxerr.KindSubstitutionOutOfRange, "evtxbxml.resolveSubstitution", int64(sub.SubID),
			fmt.Sprintf("substitution id %d >= %d values in array", sub.SubID, len(va.Descriptors)))
	}
	d := va.Descriptors[sub.SubID]
	typ, isArray := evtxvalue.ParseTypeByte(d.TypeByte)

	if sub.SubOptional && (typ == evtxvalue.NullType || d.Size == 0) {
		return "", true, nil
	}
	if typ == evtxvalue.NullType {
		return "", false, nil
	}
	if typ == evtxvalue.BinaryXMLType {
		text, err := b.readNestedBXMLValue(va.Offsets[sub.SubID], int64(d.Size))
		return text, false, err
	}
	text, err = evtxvalue.Decode(typ, isArray, va.Data[sub.SubID], evtxvalue.Context{Codepage: b.codepage})
	if err != nil {
		return "", false, evtxerr.Wrap(evtxerr.KindTypeMismatch, "evtxbxml.resolveSubstitution", va.Offsets[sub.SubID], err)
	}
	return text, false, nil
}

// readNestedBXMLValue parses a BINARY_XML-typed value array entry: its
// bytes, already delimited by the value descriptor's own size field,
// are a chunk-relative BXML fragment at absolute offset off (spec
// §4.5 type 0x21, value-array case — unlike the inline VALUE-token
// case in readNestedBXML, there is no further length prefix to read).
func (b *Builder) readNestedBXMLValue(off, length int64) (string, error) {
	b.depth++
	defer func() { b.depth-- }()
	if b.depth > maxRecursionDepth {
		return "", evtxerr.New(evtxerr.KindRecursionLimit, "evtxbxml.readNestedBXMLValue", off, "recursion depth exceeded parsing nested bxml value")
	}
	tag, _, err := b.readDocumentBounded(off, off+length)
	if err != nil {
		return "", err
	}
	if tag == nil {
		return "", nil
	}
	return evtxxml.SerializeUTF8(tag), nil
}

// readAttributes parses a run of ATTRIBUTE tokens (spec §4.4.3),
// continuing while each token's has-more-data bit is set.
func (b *Builder) readAttributes(pos int64) ([]evtxxml.Attr, int64, error) {
	var attrs []evtxxml.Attr
	cursor := pos
	for {
		tok, err := readToken(b.buf, cursor)
		if err != nil {
			return nil, cursor, err
		}
		if tok.Opcode != OpAttribute {
			return nil, cursor, evtxerr.New(evtxerr.KindUnexpectedToken, "evtxbxml.readAttributes", cursor, "expected Attribute")
		}
		if cursor+5 > int64(len(b.buf)) {
			return nil, cursor, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readAttributes", cursor, "attribute header truncated")
		}
		nameOff := int64(le32(b.buf[cursor+1:]))
		name, next, err := b.resolveNameRef(nameOff, cursor+5)
		if err != nil {
			return nil, cursor, err
		}
		childTok, err := readToken(b.buf, next)
		if err != nil {
			return nil, cursor, err
		}
		attr := evtxxml.Attr{Name: name.Name}
		switch childTok.Opcode {
		case OpValue:
			text, _, newNext, err := b.readValueLiteral(next)
			if err != nil {
				return nil, cursor, err
			}
			attr.Value = text
			next = newNext
		case OpCharacterReference:
			if next+3 > int64(len(b.buf)) {
				return nil, cursor, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readAttributes", next, "character reference truncated")
			}
			cp := le16(b.buf[next+1:])
			attr.Value = fmt.Sprintf("&#%d;", cp)
			next += 3
		case OpEntityReference:
			entName, newNext, err := b.readEntityReference(next)
			if err != nil {
				return nil, cursor, err
			}
			attr.Value = "&" + entName + ";"
			next = newNext
		case OpNormalSubstitution, OpOptionalSubstitution:
			node, newNext, err := b.readSubstitutionNode(next, childTok.Opcode == OpOptionalSubstitution)
			if err != nil {
				return nil, cursor, err
			}
			attr.Sub = &node
			next = newNext
		default:
			return nil, cursor, evtxerr.New(evtxerr.KindUnexpectedToken, "evtxbxml.readAttributes", next,
				fmt.Sprintf("unexpected attribute value token %v", childTok.Opcode))
		}
		attrs = append(attrs, attr)
		cursor = next
		if !tok.HasMore {
			break
		}
	}
	return attrs, cursor, nil
}
