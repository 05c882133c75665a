// Package containers supplies the small set of generic container
// types evtx-go needs: an Optional value, and an LRU cache over the
// chunk table.
package containers

// Optional holds a value that may or may not be present, avoiding a
// separate bool return for the common "was this field set" case.
type Optional[T any] struct {
	OK  bool
	Val T
}
