package evtxvalue

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// FormatSID renders a Windows SID (S-R-I[-subauth]*), grounded on the
// wire layout used by other_examples/d6ec8c43_2igosha-igevtx (revision
// byte, sub-authority count, 6-byte big-endian identifier-authority,
// then that many little-endian uint32 sub-authorities).
func FormatSID(b []byte) (string, error) {
	if len(b) < 8 {
		return "", fmt.Errorf("sid: need at least 8 bytes, got %d", len(b))
	}
	revision := b[0]
	subAuthCount := int(b[1])
	var authority uint64
	for i := 0; i < 6; i++ {
		authority = authority<<8 | uint64(b[2+i])
	}
	need := 8 + 4*subAuthCount
	if len(b) < need {
		return "", fmt.Errorf("sid: declared %d sub-authorities but only %d bytes available", subAuthCount, len(b))
	}
	var out strings.Builder
	fmt.Fprintf(&out, "S-%d-%d", revision, authority)
	for i := 0; i < subAuthCount; i++ {
		v := binary.LittleEndian.Uint32(b[8+4*i:])
		fmt.Fprintf(&out, "-%d", v)
	}
	return out.String(), nil
}

// SIDByteLen returns the total encoded size of a SID given its
// sub-authority count, so callers can compute how many bytes of a
// length-prefixed value are actually consumed.
func SIDByteLen(b []byte) (int, error) {
	if len(b) < 2 {
		return 0, fmt.Errorf("sid: need at least 2 bytes, got %d", len(b))
	}
	subAuthCount := int(b[1])
	return 8 + 4*subAuthCount, nil
}
