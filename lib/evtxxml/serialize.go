package evtxxml

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// escapeText escapes the subset of characters that must never appear
// literally in XML character data: <, >, &.
func escapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeAttr escapes the additional characters that must not appear
// literally inside a double-quoted attribute value: ", and (for
// symmetry with common XML writers) '.
func escapeAttr(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// hasOnlyInlineText reports whether t has no child elements, so that
// it can be flattened to one line (spec §4.7).
func hasOnlyInlineText(t *Tag) bool {
	for _, n := range t.Children {
		if n.Kind == KindElement || n.Kind == KindPI {
			return false
		}
	}
	return true
}

// SerializeUTF8 renders the subtree rooted at t as indented UTF-8 XML
// text (spec §4.7): two-space indentation per depth, self-closing
// empty elements, single-line elements whose only content is
// character data.
func SerializeUTF8(t *Tag) string {
	var b strings.Builder
	writeTag(&b, t, 0)
	return b.String()
}

// SerializeUTF16 renders the same document as SerializeUTF8 but
// returns it as UTF-16LE bytes including a leading BOM, matching the
// "parallel path" the spec requires in §4.7. Property 6 in spec §8
// requires utf16_to_utf8(xml_string_utf16(r)) == xml_string_utf8(r);
// callers should decode the returned bytes with unicode/utf16 to get
// back the same string SerializeUTF8 produces (sans BOM).
func SerializeUTF16(t *Tag) []byte {
	s := SerializeUTF8(t)
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2+2*len(units))
	out[0], out[1] = 0xFF, 0xFE // BOM
	for i, u := range units {
		out[2+2*i] = byte(u)
		out[2+2*i+1] = byte(u >> 8)
	}
	return out
}

func writeIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func writeOpenTag(b *strings.Builder, t *Tag, selfClose bool) {
	b.WriteByte('<')
	b.WriteString(t.Name)
	xmlns := t.XMLNS
	if xmlns == "" {
		xmlns, _ = t.Attr("xmlns")
	}
	if xmlns != "" {
		b.WriteString(` xmlns="`)
		b.WriteString(escapeAttr(xmlns))
		b.WriteByte('"')
	}
	for _, a := range t.Attrs {
		if a.Name == "xmlns" && xmlns != "" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(escapeAttr(a.Value))
		b.WriteByte('"')
	}
	if selfClose {
		b.WriteString("/>")
	} else {
		b.WriteByte('>')
	}
}

func writeTag(b *strings.Builder, t *Tag, depth int) {
	writeIndent(b, depth)
	if len(t.Children) == 0 {
		writeOpenTag(b, t, true)
		b.WriteByte('\n')
		return
	}
	if hasOnlyInlineText(t) {
		writeOpenTag(b, t, false)
		for _, n := range t.Children {
			writeInlineNode(b, n)
		}
		b.WriteString("</")
		b.WriteString(t.Name)
		b.WriteString(">\n")
		return
	}
	writeOpenTag(b, t, false)
	b.WriteByte('\n')
	for _, n := range t.Children {
		writeBlockNode(b, n, depth+1)
	}
	writeIndent(b, depth)
	b.WriteString("</")
	b.WriteString(t.Name)
	b.WriteString(">\n")
}

func writeInlineNode(b *strings.Builder, n Node) {
	switch n.Kind {
	case KindText:
		b.WriteString(escapeText(n.Text))
	case KindCDATA:
		b.WriteString("<![CDATA[")
		b.WriteString(n.Text)
		b.WriteString("]]>")
	case KindCharRef:
		b.WriteString("&#")
		b.WriteString(strconv.Itoa(int(n.CharRefCP)))
		b.WriteByte(';')
	case KindEntityRef:
		b.WriteByte('&')
		b.WriteString(n.EntityName)
		b.WriteByte(';')
	}
}

func writeBlockNode(b *strings.Builder, n Node, depth int) {
	switch n.Kind {
	case KindElement:
		writeTag(b, n.Elem, depth)
	case KindPI:
		writeIndent(b, depth)
		b.WriteString("<?")
		b.WriteString(n.PITarget)
		b.WriteByte(' ')
		b.WriteString(n.PIData)
		b.WriteString("?>\n")
	default:
		writeIndent(b, depth)
		writeInlineNode(b, n)
		b.WriteByte('\n')
	}
}
