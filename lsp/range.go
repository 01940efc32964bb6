package lsp

import (
	"github.com/x86y/klsp/ksource"
	"github.com/x86y/klsp/lsp/protocol"
)

// spanToRange converts a byte span on a document line to a protocol range in UTF-16 code units.
func spanToRange(doc *document, span ksource.Span) protocol.Range {
	line := doc.Lines[span.Line]
	return protocol.Range{
		Start: protocol.Position{Line: span.Line, Character: ksource.UTF16Column(line, span.Start)},
		End:   protocol.Position{Line: span.Line, Character: ksource.UTF16Column(line, span.End)},
	}
}

// identAtPosition returns the identifier at a protocol position in doc, converting the position's UTF-16 character
// offset to bytes first. ok is false if the position doesn't touch an identifier.
func identAtPosition(doc *document, pos protocol.Position) (ident string, span ksource.Span, ok bool) {
	if pos.Line < 0 || pos.Line >= len(doc.Lines) {
		return "", ksource.Span{}, false
	}
	line := doc.Lines[pos.Line]
	byteCol := ksource.ByteColumn(line, pos.Character)
	ident, start, end, ok := ksource.IdentAt(line, byteCol)
	if !ok {
		return "", ksource.Span{}, false
	}
	return ident, ksource.Span{Line: pos.Line, Start: start, End: end}, true
}
