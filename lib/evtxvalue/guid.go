package evtxvalue

import "fmt"

// FormatGUID renders a 16-byte GUID in Windows' mixed-endian
// convention: the first three fields are little-endian, the last two
// are big-endian byte strings (spec §4.5, type 0x0F).
func FormatGUID(b []byte) string {
	_ = b[15]
	d1 := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	d2 := uint16(b[4]) | uint16(b[5])<<8
	d3 := uint16(b[6]) | uint16(b[7])<<8
	return fmt.Sprintf("{%08X-%04X-%04X-%02X%02X-%02X%02X%02X%02X%02X%02X}",
		d1, d2, d3, b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15])
}
