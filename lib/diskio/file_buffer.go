package diskio

import (
	"bytes"
	"io"
)

// bufferFile is an in-memory File, used by tests and by callers that
// have already slurped an .evtx into memory.
type bufferFile struct {
	name string
	rdr  *bytes.Reader
}

var _ File[int64] = (*bufferFile)(nil)

// NewBufferFile wraps a byte slice as a File. The name is cosmetic,
// surfaced only by Name().
func NewBufferFile(name string, dat []byte) File[int64] {
	return &bufferFile{name: name, rdr: bytes.NewReader(dat)}
}

func (f *bufferFile) Name() string { return f.name }
func (f *bufferFile) Size() int64  { return f.rdr.Size() }
func (f *bufferFile) Close() error { return nil }

func (f *bufferFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.rdr.ReadAt(p, off)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}
