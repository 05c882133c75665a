package diskio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferFileReadAt(t *testing.T) {
	f := NewBufferFile("test.bin", []byte("hello world"))
	defer f.Close()

	buf := make([]byte, 5)
	n, err := f.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))
}

func TestBufferFileSizeAndName(t *testing.T) {
	f := NewBufferFile("test.bin", make([]byte, 42))
	assert.Equal(t, "test.bin", f.Name())
	assert.Equal(t, int64(42), f.Size())
}

func TestBufferFileReadAtPastEndIsShortReadNoError(t *testing.T) {
	f := NewBufferFile("test.bin", []byte("abc"))
	buf := make([]byte, 10)
	n, err := f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", string(buf[:n]))
}

func TestBufferFileReadAtOffsetAtEnd(t *testing.T) {
	f := NewBufferFile("test.bin", []byte("abc"))
	buf := make([]byte, 1)
	_, err := f.ReadAt(buf, 3)
	assert.Error(t, err)
}
