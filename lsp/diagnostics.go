package lsp

import (
	"context"

	"github.com/x86y/klsp/interp"
	"github.com/x86y/klsp/ksource"
	"github.com/x86y/klsp/lsp/protocol"
)

// publishDiagnostics checks doc with the K interpreter and publishes the resulting diagnostics. The empty list is
// published when the document is clean or diagnostics are disabled, so that previously published diagnostics are
// cleared. Interpreter failures are logged rather than surfaced, since a missing or broken interpreter shouldn't
// take the rest of the server down with it.
func (h *Handler) publishDiagnostics(doc *document) {
	diagnostics := []protocol.Diagnostic{}
	if h.settings.diagnostics {
		issues, err := h.interp.Check(context.Background(), doc.Text)
		if err != nil {
			h.log.Errorf("Checking %s: %s", doc.Filename, err)
		}
		for _, issue := range issues {
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    issueRange(doc, issue),
				Severity: protocol.DiagnosticSeverityError,
				Source:   "klsp",
				Message:  issue.Msg,
			})
		}
	}
	version := doc.Version
	err := h.client.TextDocumentPublishDiagnostics(&protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     &version,
		Diagnostics: diagnostics,
	})
	if err != nil {
		h.log.Errorf("Publishing diagnostics for %s: %s", doc.Filename, err)
	}
}

// issueRange converts an interpreter issue to a protocol range covering a single character at the issue's position.
func issueRange(doc *document, issue interp.Issue) protocol.Range {
	line := issue.Line
	if line >= len(doc.Lines) {
		line = len(doc.Lines) - 1
	}
	if line < 0 {
		line = 0
	}
	start := protocol.Position{
		Line:      line,
		Character: utf16Column(doc, line, issue.Col),
	}
	end := protocol.Position{
		Line:      line,
		Character: start.Character + 1,
	}
	return protocol.Range{Start: start, End: end}
}

func utf16Column(doc *document, line, byteCol int) int {
	if line >= len(doc.Lines) {
		return 0
	}
	return ksource.UTF16Column(doc.Lines[line], byteCol)
}
