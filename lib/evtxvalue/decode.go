package evtxvalue

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Context carries the per-chunk/per-file settings that rendering some
// value types needs. BinaryXMLType is deliberately not handled by
// Decode: a nested BXML value's bytes must be parsed against the
// chunk's absolute offset space (to resolve name-table/template-table
// back-references), which only the evtxbxml package's builder has in
// scope. Callers detect BinaryXMLType before calling Decode and
// recurse into their own builder directly; threading a render
// callback through here would still need the chunk offset, which
// Decode's byte-slice-only signature doesn't carry, so the dispatch
// is split at the one type that needs more context than "some bytes
// and a codepage" rather than forcing every other type to carry it
// too.
type Context struct {
	Codepage int
}

// Decode renders the on-wire bytes of one value of the given type to
// its canonical XML text form (spec §4.5). isArray selects the
// whitespace-joined (numeric) or newline-joined (string) array
// rendering.
func Decode(typ Type, isArray bool, b []byte, ctx Context) (string, error) {
	if isArray {
		return decodeArray(typ, b, ctx)
	}
	return decodeScalar(typ, b, ctx)
}

func decodeScalar(typ Type, b []byte, ctx Context) (string, error) {
	switch typ {
	case NullType:
		return "", nil
	case StringUTF16:
		return decodeUTF16NoTerm(b)
	case StringByteStream:
		return DecodeByteStream(b, ctx.Codepage)
	case Int8Type:
		if len(b) < 1 {
			return "", errShort(typ, 1, len(b))
		}
		return strconv.FormatInt(int64(int8(b[0])), 10), nil
	case UInt8Type:
		if len(b) < 1 {
			return "", errShort(typ, 1, len(b))
		}
		return strconv.FormatUint(uint64(b[0]), 10), nil
	case Int16Type:
		if len(b) < 2 {
			return "", errShort(typ, 2, len(b))
		}
		return strconv.FormatInt(int64(int16(binary.LittleEndian.Uint16(b))), 10), nil
	case UInt16Type:
		if len(b) < 2 {
			return "", errShort(typ, 2, len(b))
		}
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint16(b)), 10), nil
	case Int32Type:
		if len(b) < 4 {
			return "", errShort(typ, 4, len(b))
		}
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(b))), 10), nil
	case UInt32Type:
		if len(b) < 4 {
			return "", errShort(typ, 4, len(b))
		}
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(b)), 10), nil
	case Int64Type:
		if len(b) < 8 {
			return "", errShort(typ, 8, len(b))
		}
		return strconv.FormatInt(int64(binary.LittleEndian.Uint64(b)), 10), nil
	case UInt64Type:
		if len(b) < 8 {
			return "", errShort(typ, 8, len(b))
		}
		return strconv.FormatUint(binary.LittleEndian.Uint64(b), 10), nil
	case Float32Type:
		if len(b) < 4 {
			return "", errShort(typ, 4, len(b))
		}
		f := math.Float32frombits(binary.LittleEndian.Uint32(b))
		return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
	case Float64Type:
		if len(b) < 8 {
			return "", errShort(typ, 8, len(b))
		}
		f := math.Float64frombits(binary.LittleEndian.Uint64(b))
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case BoolType:
		if len(b) < 4 {
			return "", errShort(typ, 4, len(b))
		}
		for _, c := range b[:4] {
			if c != 0 {
				return "true", nil
			}
		}
		return "false", nil
	case BinaryType:
		return hex.EncodeToString(b), nil
	case GUIDType:
		if len(b) < 16 {
			return "", errShort(typ, 16, len(b))
		}
		return FormatGUID(b), nil
	case SizeTType:
		switch len(b) {
		case 4:
			return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(b)), 10), nil
		case 8:
			return strconv.FormatUint(binary.LittleEndian.Uint64(b), 10), nil
		default:
			return "", fmt.Errorf("size_t: unexpected width %d", len(b))
		}
	case FileTimeType:
		if len(b) < 8 {
			return "", errShort(typ, 8, len(b))
		}
		return FormatFileTime(binary.LittleEndian.Uint64(b)), nil
	case SysTimeType:
		if len(b) < 16 {
			return "", errShort(typ, 16, len(b))
		}
		return FormatSystemTime(b), nil
	case SIDType:
		s, err := FormatSID(b)
		if err != nil {
			return "", err
		}
		return s, nil
	case HexInt32Type:
		if len(b) < 4 {
			return "", errShort(typ, 4, len(b))
		}
		return "0x" + hex.EncodeToString(reverseCopy(b[:4])), nil
	case HexInt64Type:
		if len(b) < 8 {
			return "", errShort(typ, 8, len(b))
		}
		return "0x" + hex.EncodeToString(reverseCopy(b[:8])), nil
	case BinaryXMLType:
		return "", fmt.Errorf("binary xml value must be rendered by the caller, not Decode (see Context doc)")
	default:
		return "", fmt.Errorf("unsupported value type 0x%02x", byte(typ))
	}
}

// reverseCopy returns a reversed copy of b, used to render HEX_INT32/
// HEX_INT64 as big-endian hex digits from little-endian wire bytes
// (spec §4.5: "0x" + lowercase hex, most-significant byte first).
func reverseCopy(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

func errShort(typ Type, want, got int) error {
	return fmt.Errorf("%v: need %d bytes, got %d", typ, want, got)
}

// decodeUTF16NoTerm decodes a UTF-16LE byte range (no terminating
// NUL expected/consumed) to a UTF-8 string, reporting InvalidUtf16 by
// way of a plain error (wrapped with evtxerr.KindInvalidUTF16 by
// callers that have the offset to attach).
func decodeUTF16NoTerm(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("utf-16: odd byte length %d", len(b))
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	runes := utf16.Decode(units)
	var out strings.Builder
	out.Grow(len(runes) * 2)
	for i, r := range runes {
		if r == utf8.RuneError && !validStandaloneReplacement(units, i) {
			return "", fmt.Errorf("utf-16: ill-formed surrogate sequence at unit %d", i)
		}
		out.WriteRune(r)
	}
	return out.String(), nil
}

// validStandaloneReplacement distinguishes a genuine U+FFFD input
// code unit from utf16.Decode's use of RuneError to signal an
// unpaired surrogate.
func validStandaloneReplacement(units []uint16, runeIdx int) bool {
	// utf16.Decode emits exactly one rune per non-surrogate unit and
	// per valid surrogate pair; an unpaired surrogate also yields
	// exactly one RuneError per offending unit, so counting runes
	// against units directly tells them apart only when lengths
	// match, i.e. no surrogate pairs were consumed. Re-decoding the
	// single unit settles it unambiguously.
	if runeIdx >= len(units) {
		return false
	}
	r, size := utf16.DecodeRune(rune(units[runeIdx]), 0)
	return size == 1 && r == utf8.RuneError && units[runeIdx] == utf8.RuneError
}

func decodeArray(typ Type, b []byte, ctx Context) (string, error) {
	switch typ {
	case StringUTF16:
		// NUL-separated list of UTF-16 strings (spec §4.5 array
		// rendering: newline-separated for string types).
		return decodeUTF16NULList(b, "\n")
	case StringByteStream:
		parts := strings.Split(string(b), "\x00")
		return strings.Join(trimTrailingEmpty(parts), "\n"), nil
	default:
		size, fixed := typ.FixedSize()
		if !fixed || size == 0 {
			return "", fmt.Errorf("array of %v: not a fixed-size element type", typ)
		}
		if len(b)%size != 0 {
			return "", fmt.Errorf("array of %v: length %d not a multiple of element size %d", typ, len(b), size)
		}
		n := len(b) / size
		parts := make([]string, n)
		for i := 0; i < n; i++ {
			s, err := decodeScalar(typ, b[i*size:(i+1)*size], ctx)
			if err != nil {
				return "", fmt.Errorf("array element %d: %w", i, err)
			}
			parts[i] = s
		}
		return strings.Join(parts, " "), nil
	}
}

func decodeUTF16NULList(b []byte, sep string) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("utf-16 array: odd byte length %d", len(b))
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	var parts []string
	start := 0
	for i, u := range units {
		if u == 0 {
			s, err := decodeUTF16NoTerm(u16ToBytes(units[start:i]))
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
			start = i + 1
		}
	}
	if start < len(units) {
		s, err := decodeUTF16NoTerm(u16ToBytes(units[start:]))
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, sep), nil
}

func u16ToBytes(units []uint16) []byte {
	out := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[2*i:], u)
	}
	return out
}

func trimTrailingEmpty(parts []string) []string {
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
