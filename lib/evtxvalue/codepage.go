package evtxvalue

import (
	"fmt"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// codepageTable maps a Windows codepage number to its
// golang.org/x/text/encoding.Encoding, lazily built once (mirroring
// the teacher's once-guarded package-level lookup tables) since
// STRING_BYTE_STREAM values (spec §4.5, type 0x02) are decoded
// against the file's ascii_codepage setting.
var (
	codepageOnce  sync.Once
	codepageTable map[int]encoding.Encoding
)

func getCodepageTable() map[int]encoding.Encoding {
	codepageOnce.Do(func() {
		codepageTable = map[int]encoding.Encoding{
			437:   charmap.CodePage437,
			850:   charmap.CodePage850,
			852:   charmap.CodePage852,
			855:   charmap.CodePage855,
			858:   charmap.CodePage858,
			860:   charmap.CodePage860,
			862:   charmap.CodePage862,
			863:   charmap.CodePage863,
			865:   charmap.CodePage865,
			866:   charmap.CodePage866,
			1250:  charmap.Windows1250,
			1251:  charmap.Windows1251,
			1252:  charmap.Windows1252,
			1253:  charmap.Windows1253,
			1254:  charmap.Windows1254,
			1255:  charmap.Windows1255,
			1256:  charmap.Windows1256,
			1257:  charmap.Windows1257,
			1258:  charmap.Windows1258,
			28591: charmap.ISO8859_1,
			28592: charmap.ISO8859_2,
		}
	})
	return codepageTable
}

// DecodeByteStream decodes a STRING_BYTE_STREAM value using the given
// Windows ASCII codepage number. Codepage 0 and 20127 (US-ASCII) fall
// back to a direct byte-for-byte decode, since every byte below 0x80
// is shared across all the supported codepages.
func DecodeByteStream(b []byte, codepage int) (string, error) {
	if codepage == 0 || codepage == 20127 {
		out := make([]rune, len(b))
		for i, c := range b {
			out[i] = rune(c)
		}
		return string(out), nil
	}
	enc, ok := getCodepageTable()[codepage]
	if !ok {
		return "", fmt.Errorf("unsupported ascii codepage %d", codepage)
	}
	decoded, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding codepage %d: %w", codepage, err)
	}
	return string(decoded), nil
}
