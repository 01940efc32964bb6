// Package ksource implements lexical analysis of K source text: definition scanning, identifier extraction, and
// whole word reference search. K has no nested scopes, so a definition is any line which assigns a name at the top
// level and a reference is any whole word occurrence of that name.
package ksource

import (
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// defRE matches a top level assignment like "avg: {(+/x)%#x}". Only assignments starting at column 0 define a name,
// matching how the K interpreter scopes globals.
var defRE = regexp.MustCompile(`^(\w+):`)

// Definition is a name defined by a top level assignment.
type Definition struct {
	Name string
	// Line is the zero-based line that the assignment starts on.
	Line int
}

// Definitions returns the definitions in src in source order. A name assigned on multiple lines produces multiple
// definitions.
func Definitions(src string) []Definition {
	var defs []Definition
	for i, line := range Lines(src) {
		if m := defRE.FindStringSubmatch(line); m != nil {
			defs = append(defs, Definition{Name: m[1], Line: i})
		}
	}
	return defs
}

// Lines splits src into lines without their terminators. Both "\n" and "\r\n" are accepted.
func Lines(src string) []string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Span is a run of bytes on a single line. Start is inclusive and End is exclusive, both byte offsets into the line.
type Span struct {
	Line  int
	Start int
	End   int
}

// References returns the whole word occurrences of name in src, in source order. Occurrences inside longer words are
// not references: "xs" does not reference "x".
func References(src, name string) []Span {
	if name == "" {
		return nil
	}
	var spans []Span
	for i, line := range Lines(src) {
		for col := 0; ; {
			j := strings.Index(line[col:], name)
			if j < 0 {
				break
			}
			start := col + j
			end := start + len(name)
			col = end
			if start > 0 && isWordByte(line[start-1]) {
				continue
			}
			if end < len(line) && isWordByte(line[end]) {
				continue
			}
			spans = append(spans, Span{Line: i, Start: start, End: end})
		}
	}
	return spans
}

// IdentAt returns the identifier containing the byte offset col in line, along with its span on the line. If col
// doesn't touch an identifier then ok is false. col may equal the end of an identifier, matching how editors report
// a cursor sitting just after a word.
func IdentAt(line string, col int) (ident string, start, end int, ok bool) {
	if col < 0 || col > len(line) {
		return "", 0, 0, false
	}
	start, end = col, col
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	for end < len(line) && isWordByte(line[end]) {
		end++
	}
	if start == end {
		return "", 0, 0, false
	}
	// Identifiers can't start with a digit; a bare number under the cursor is not a name.
	if '0' <= line[start] && line[start] <= '9' {
		return "", 0, 0, false
	}
	return line[start:end], start, end, true
}

func isWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

// UTF16Column converts a byte offset into line to an offset in UTF-16 code units, the encoding that LSP positions
// use. Offsets past the end of the line are clamped.
func UTF16Column(line string, byteCol int) int {
	if byteCol > len(line) {
		byteCol = len(line)
	}
	col := 0
	for i := 0; i < byteCol; {
		r, size := utf8.DecodeRuneInString(line[i:])
		if i+size > byteCol {
			break
		}
		col += len(utf16.Encode([]rune{r}))
		i += size
	}
	return col
}

// ByteColumn converts an offset in UTF-16 code units to a byte offset into line. Offsets past the end of the line
// are clamped to len(line).
func ByteColumn(line string, utf16Col int) int {
	col := 0
	for i := 0; i < len(line); {
		if col >= utf16Col {
			return i
		}
		r, size := utf8.DecodeRuneInString(line[i:])
		col += len(utf16.Encode([]rune{r}))
		i += size
	}
	return len(line)
}
