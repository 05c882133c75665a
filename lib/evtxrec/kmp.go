// Package evtxrec implements signature-based recovery scanning for
// dirty or truncated .evtx files: finding chunk/record start offsets
// directly in the byte stream rather than trusting header-declared
// bounds. Grounded on the teacher's Knuth-Morris-Pratt scanner
// (lib/diskio/kmp.go), which the teacher uses to locate btrfs magic
// numbers in a raw device image for the same reason: a damaged
// container's own bookkeeping can't be trusted to find its own
// pieces.
package evtxrec

import (
	"errors"
	"io"
)

// buildKMPTable takes the string 'substr', and returns a table such
// that 'table[matchLen-1]' is the largest value 'val' for which 'val <
// matchLen' and 'substr[:val] == substr[matchLen-val:matchLen]'.
func buildKMPTable(substr []byte) []int {
	table := make([]int, len(substr))
	for j := range table {
		if j == 0 {
			continue
		}
		val := table[j-1]
		for val > 0 && substr[j] != substr[val] {
			val = table[val-1]
		}
		if substr[val] == substr[j] {
			val++
		}
		table[j] = val
	}
	return table
}

// FindAll returns the starting position of every (possibly
// overlapping) occurrence of substr in the byte stream r, using the
// Knuth-Morris-Pratt algorithm. Panics if substr is empty.
func FindAll(r io.ByteReader, substr []byte) ([]int64, error) {
	if len(substr) == 0 {
		panic(errors.New("evtxrec.FindAll: empty substring"))
	}
	table := buildKMPTable(substr)

	var matches []int64
	var curMatchBeg int64
	var curMatchLen int

	pos := int64(-1)
	for {
		chr, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			return matches, err
		}
		pos++

		for curMatchLen > 0 && chr != substr[curMatchLen] {
			overlap := table[curMatchLen-1]
			curMatchBeg += int64(curMatchLen - overlap)
			curMatchLen = overlap
		}
		if chr == substr[curMatchLen] {
			if curMatchLen == 0 {
				curMatchBeg = pos
			}
			curMatchLen++
			if curMatchLen == len(substr) {
				matches = append(matches, curMatchBeg)
				overlap := table[curMatchLen-1]
				curMatchBeg += int64(curMatchLen - overlap)
				curMatchLen = overlap
			}
		}
	}
}
