// Package fmtutil holds small fmt.State helpers shared by lib/textui.
package fmtutil

import (
	"fmt"
	"strings"
)

// FmtStateString returns the fmt.Printf format string that produced a
// given fmt.State and verb, so a wrapping fmt.Formatter can forward to
// another Printf-like function without losing width/precision/flags.
func FmtStateString(st fmt.State, verb rune) string {
	var ret strings.Builder
	ret.WriteByte('%')
	for _, flag := range []int{'-', '+', '#', ' ', '0'} {
		if st.Flag(flag) {
			ret.WriteByte(byte(flag))
		}
	}
	if width, ok := st.Width(); ok {
		fmt.Fprintf(&ret, "%v", width)
	}
	if prec, ok := st.Precision(); ok {
		if prec == 0 {
			ret.WriteByte('.')
		} else {
			fmt.Fprintf(&ret, ".%v", prec)
		}
	}
	ret.WriteRune(verb)
	return ret.String()
}
