package evtxvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileTimeToTimeUnixEpoch(t *testing.T) {
	tm := FileTimeToTime(windowsEpochOffsetTicks)
	assert.Equal(t, 1970, tm.Year())
	assert.Equal(t, 0, tm.Hour())
}

func TestFormatFileTime(t *testing.T) {
	// exactly the Unix epoch, no fractional remainder
	s := FormatFileTime(windowsEpochOffsetTicks)
	assert.Equal(t, "1970-01-01T00:00:00.0000000Z", s)
}

func TestFormatSystemTime(t *testing.T) {
	// year=2020 month=1 dow=0 day=15 hour=13 minute=45 second=30 milli=500
	b := make([]byte, 16)
	put16 := func(off int, v uint16) {
		b[off] = byte(v)
		b[off+1] = byte(v >> 8)
	}
	put16(0, 2020)
	put16(2, 1)
	put16(4, 0)
	put16(6, 15)
	put16(8, 13)
	put16(10, 45)
	put16(12, 30)
	put16(14, 500)

	assert.Equal(t, "2020-01-15T13:45:30.500Z", FormatSystemTime(b))
}
