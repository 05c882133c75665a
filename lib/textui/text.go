// Package textui renders CLI output with locale-aware number
// formatting (spec §6 "External interfaces": evtxinfo's summary
// counts), the same way the teacher's lib/textui does for its
// inspection commands.
package textui

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/libyal/libevtx-sub000/lib/fmtutil"
)

var printer = message.NewPrinter(language.English)

// Fprintf is like fmt.Fprintf, but goes through the
// golang.org/x/text/message.Printer extensions (comma-grouped
// integers via %d, etc).
func Fprintf(w io.Writer, key string, a ...any) (n int, err error) {
	return printer.Fprintf(w, key, a...)
}

// Sprintf is like fmt.Sprintf, but goes through the
// golang.org/x/text/message.Printer extensions.
func Sprintf(key string, a ...any) string {
	return printer.Sprintf(key, a...)
}

// Humanized wraps an integer count so that formatting it with plain
// old fmt still renders with the locale's digit grouping (via
// golang.org/x/text/number.Decimal), for call sites like evtxinfo's
// summary lines that don't get to pick their own Printf.
func Humanized(x any) any {
	return humanized{val: number.Decimal(x)}
}

type humanized struct {
	val any
}

var (
	_ fmt.Formatter = humanized{}
	_ fmt.Stringer  = humanized{}
)

// Format implements fmt.Formatter.
func (h humanized) Format(f fmt.State, verb rune) {
	printer.Fprintf(f, fmtutil.FmtStateString(f, verb), h.val)
}

// String implements fmt.Stringer.
func (h humanized) String() string {
	return fmt.Sprint(h)
}
