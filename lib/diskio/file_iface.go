// Package diskio provides the block-oriented IO abstraction that the
// rest of evtx-go reads event log bytes through.
package diskio

import "io"

// File is the minimal random-access file abstraction the evtx parser
// needs. A is the address type (always int64 here, since .evtx files
// are addressed by plain byte offset, but kept generic to mirror the
// teacher's convention of parameterizing over address kinds).
type File[A ~int64] interface {
	Name() string
	Size() A
	Close() error
	ReadAt(p []byte, off A) (n int, err error)
}

var _ io.ReaderAt = File[int64](nil)
