package evtxbxml

// le16/le32/le64 decode little-endian integers without bounds
// checking; callers are expected to have already checked len(b) is
// sufficient (mirrors evtxcrc's decoders, duplicated here to avoid a
// needless cross-package call on every token field read).
func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	return uint64(le32(b)) | uint64(le32(b[4:]))<<32
}
