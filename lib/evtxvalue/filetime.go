package evtxvalue

import (
	"fmt"
	"time"
)

// windowsEpochOffsetTicks is the number of 100-ns ticks between the
// Windows FILETIME epoch (1601-01-01T00:00:00Z) and the Unix epoch
// (1970-01-01T00:00:00Z), grounded on
// other_examples/d6ec8c43_2igosha-igevtx's timeFromFileTime (which
// inlines the same constant as 11644473600000*10000).
const windowsEpochOffsetTicks = 116444736000000000

// FileTimeToTime converts a Windows FILETIME (100-ns ticks since
// 1601-01-01 UTC) to a time.Time.
func FileTimeToTime(ft uint64) time.Time {
	ticksSinceUnixEpoch := int64(ft) - windowsEpochOffsetTicks
	sec := ticksSinceUnixEpoch / 10_000_000
	nsec := (ticksSinceUnixEpoch % 10_000_000) * 100
	return time.Unix(sec, nsec).UTC()
}

// FormatFileTime renders a FILETIME per spec §4.5, type 0x11:
// YYYY-MM-DDTHH:MM:SS.sssssssZ (7 fractional digits, i.e. the raw
// 100-ns tick remainder).
func FormatFileTime(ft uint64) string {
	t := FileTimeToTime(ft)
	frac := (int64(ft) - windowsEpochOffsetTicks) % 10_000_000
	if frac < 0 {
		frac += 10_000_000
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%07dZ",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), frac)
}

// FormatSystemTime renders a SYSTEMTIME (spec §4.5, type 0x12): 8
// little-endian uint16 fields (year, month, day-of-week, day, hour,
// minute, second, millisecond) per MS-DTYP. Rendered as
// YYYY-MM-DDTHH:MM:SS.sssZ.
func FormatSystemTime(b []byte) string {
	_ = b[15]
	u16 := func(i int) uint16 { return uint16(b[i]) | uint16(b[i+1])<<8 }
	year := u16(0)
	month := u16(2)
	day := u16(6)
	hour := u16(8)
	minute := u16(10)
	second := u16(12)
	milli := u16(14)
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%03dZ",
		year, month, day, hour, minute, second, milli)
}
