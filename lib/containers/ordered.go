package containers

import "golang.org/x/exp/constraints"

// CmpUint is the three-way comparator the teacher's equivalent
// ordered.go defines for unsigned integers, used anywhere two chunk-
// or record-count quantities need comparing without repeating the
// same if/else three times.
func CmpUint[T constraints.Unsigned](a, b T) int {
	switch {
	case a < b:
		return -1
	case a == b:
		return 0
	default:
		return 1
	}
}
