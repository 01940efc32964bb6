// Package kerr renders K source errors for terminals, echoing the offending line with the problem range underlined.
package kerr

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

var (
	bold = color.New(color.Bold)
	red  = color.New(color.FgRed)
)

// Error is an error in a K source file.
type Error struct {
	Msg  string
	File string
	// Line is the one-based line of the error.
	Line int
	// Start and End delimit the problem range on the line, in bytes. End is exclusive. A zero-width range
	// underlines a single column.
	Start int
	End   int
	// Src is the text of the offending line, without its terminator.
	Src string
}

// Error formats the error like
//
//	sum.k:2:4: error: Syntax error at: 'parse
//	y: +
//	   ~
//
// with the underline tracking the displayed width of the source, so errors in lines with wide characters still line
// up.
func (e *Error) Error() string {
	var b strings.Builder
	bold.Fprintf(&b, "%s:%d:%d: ", e.File, e.Line, e.Start+1)
	red.Fprint(&b, "error: ")
	bold.Fprintln(&b, firstLine(e.Msg))

	if e.Src == "" || !utf8.ValidString(e.Src) {
		return strings.TrimSuffix(b.String(), "\n")
	}

	start, end := e.Start, e.End
	if start > len(e.Src) {
		start = len(e.Src)
	}
	if end < start {
		end = start
	}
	if end > len(e.Src) {
		end = len(e.Src)
	}

	fmt.Fprintln(&b, e.Src)
	pad := runewidth.StringWidth(e.Src[:start])
	width := runewidth.StringWidth(e.Src[start:end])
	if width == 0 {
		width = 1
	}
	b.WriteString(strings.Repeat(" ", pad))
	red.Fprint(&b, strings.Repeat("~", width))
	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
