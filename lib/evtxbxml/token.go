// Package evtxbxml implements the BXML tokenizer, the chunk-scoped
// name/template tables, and the recursive-descent document builder
// that materializes a BXML fragment into an evtxxml.Tag tree (spec
// components C5, C6, and C7 — the core of this library).
package evtxbxml

import (
	"fmt"

	"github.com/libyal/libevtx-sub000/lib/evtxerr"
)

// Opcode is the low 6 bits of a BXML token byte (spec §3, "Binary XML
// token").
type Opcode byte

const (
	OpEndOfFragment        Opcode = 0x00
	OpOpenStartElement     Opcode = 0x01
	OpCloseStartElement    Opcode = 0x02
	OpCloseEmptyElement    Opcode = 0x03
	OpEndElement           Opcode = 0x04
	OpValue                Opcode = 0x05
	OpAttribute            Opcode = 0x06
	OpCDATASection         Opcode = 0x07
	OpCharacterReference   Opcode = 0x08
	OpEntityReference      Opcode = 0x09
	OpPITarget             Opcode = 0x0A
	OpPIData               Opcode = 0x0B
	OpTemplateInstance     Opcode = 0x0C
	OpNormalSubstitution   Opcode = 0x0D
	OpOptionalSubstitution Opcode = 0x0E
	OpFragmentHeader       Opcode = 0x0F

	hasMoreDataBit byte = 0x40
	opcodeMask     byte = 0xBF // mask off the has-more-data bit (0x40), keep the rest
)

var validOpcodes = map[Opcode]bool{
	OpEndOfFragment: true, OpOpenStartElement: true, OpCloseStartElement: true,
	OpCloseEmptyElement: true, OpEndElement: true, OpValue: true, OpAttribute: true,
	OpCDATASection: true, OpCharacterReference: true, OpEntityReference: true,
	OpPITarget: true, OpPIData: true, OpTemplateInstance: true,
	OpNormalSubstitution: true, OpOptionalSubstitution: true, OpFragmentHeader: true,
}

func (op Opcode) String() string {
	names := map[Opcode]string{
		OpEndOfFragment: "EndOfFragment", OpOpenStartElement: "OpenStartElement",
		OpCloseStartElement: "CloseStartElement", OpCloseEmptyElement: "CloseEmptyElement",
		OpEndElement: "EndElement", OpValue: "Value", OpAttribute: "Attribute",
		OpCDATASection: "CDATASection", OpCharacterReference: "CharacterReference",
		OpEntityReference: "EntityReference", OpPITarget: "PITarget", OpPIData: "PIData",
		OpTemplateInstance: "TemplateInstance", OpNormalSubstitution: "NormalSubstitution",
		OpOptionalSubstitution: "OptionalSubstitution", OpFragmentHeader: "FragmentHeader",
	}
	if n, ok := names[op]; ok {
		return n
	}
	return fmt.Sprintf("Opcode(0x%02x)", byte(op))
}

// token is the decoded form of one BXML token byte.
type token struct {
	Opcode   Opcode
	HasMore  bool
	Offset   int64 // chunk-relative offset of the opcode byte
	RawValue byte
}

// readToken reads and classifies the single token byte at off within
// buf (spec §4.3). It does not consume any of the token's body; the
// caller does that based on Opcode.
func readToken(buf []byte, off int64) (token, error) {
	if off < 0 || int(off) >= len(buf) {
		return token{}, evtxerr.New(evtxerr.KindOutOfBounds, "evtxbxml.readToken", off, "offset past end of chunk buffer")
	}
	raw := buf[off]
	op := Opcode(raw & opcodeMask)
	hasMore := raw&hasMoreDataBit != 0
	if !validOpcodes[op] {
		return token{}, evtxerr.Wrap(evtxerr.KindUnsupportedToken, "evtxbxml.readToken", off,
			fmt.Errorf("unrecognized opcode byte 0x%02x", raw))
	}
	return token{Opcode: op, HasMore: hasMore, Offset: off, RawValue: raw}, nil
}
