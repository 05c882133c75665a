package diskio

import "os"

type osFile struct {
	inner *os.File
	size  int64
}

var _ File[int64] = (*osFile)(nil)

// OpenOSFile opens a path-backed File for reading.
func OpenOSFile(path string) (File[int64], error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, err
	}
	return &osFile{inner: fh, size: info.Size()}, nil
}

func (f *osFile) Name() string { return f.inner.Name() }
func (f *osFile) Size() int64  { return f.size }
func (f *osFile) Close() error { return f.inner.Close() }

func (f *osFile) ReadAt(p []byte, off int64) (int, error) {
	return f.inner.ReadAt(p, off)
}
