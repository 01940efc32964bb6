package lsp

// This file contains handlers for the methods described under
// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_synchronization.

import (
	"fmt"
	"strings"

	"github.com/x86y/klsp/jsonrpc"
	"github.com/x86y/klsp/ksource"
	"github.com/x86y/klsp/lsp/protocol"
)

type document struct {
	// Client provided
	URI     string
	Version int
	Text    string

	// Server generated
	Filename    string
	Lines       []string
	Definitions []ksource.Definition
	defsByName  map[string]ksource.Definition
}

// document returns the document with the given URI, or an error if it doesn't exist.
func (h *Handler) document(uri string) (*document, error) {
	doc, ok := h.docs[uri]
	if !ok {
		return nil, jsonrpc.NewError(jsonrpc.InvalidParams, "Document not found", map[string]any{"uri": uri})
	}
	return doc, nil
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_didOpen
func (h *Handler) textDocumentDidOpen(params *protocol.DidOpenTextDocumentParams) error {
	if err := h.updateDoc(params.TextDocument.URI, params.TextDocument.Version, params.TextDocument.Text); err != nil {
		return fmt.Errorf("textDocument/didOpen: %s", err)
	}
	return nil
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_didChange
func (h *Handler) textDocumentDidChange(params *protocol.DidChangeTextDocumentParams) error {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return err
	}
	src := doc.Text
	for _, change := range params.ContentChanges {
		if change.Range != nil {
			return jsonrpc.NewInvalidParamsError("incremental document changes are not supported")
		}
		src = change.Text
	}
	if err := h.updateDoc(params.TextDocument.URI, params.TextDocument.Version, src); err != nil {
		return fmt.Errorf("textDocument/didChange: %s", err)
	}
	return nil
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_didClose
func (h *Handler) textDocumentDidClose(params *protocol.DidCloseTextDocumentParams) error {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return err
	}
	delete(h.docs, params.TextDocument.URI)
	// Diagnostics for a closed document are no longer valid.
	return h.client.TextDocumentPublishDiagnostics(&protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
}

func (h *Handler) updateDoc(uri string, version int, src string) error {
	filename, err := uriToFilename(uri)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	defs := ksource.Definitions(src)
	defsByName := make(map[string]ksource.Definition, len(defs))
	for _, def := range defs {
		// Later assignments shadow earlier ones, so the last definition wins.
		defsByName[def.Name] = def
	}
	doc := &document{
		URI:         uri,
		Version:     version,
		Text:        src,
		Filename:    filename,
		Lines:       ksource.Lines(src),
		Definitions: defs,
		defsByName:  defsByName,
	}
	h.docs[uri] = doc
	h.publishDiagnostics(doc)
	return nil
}

func uriToFilename(uri string) (string, error) {
	path, found := strings.CutPrefix(uri, "file://")
	if !found {
		return "", fmt.Errorf(`URI scheme must be "file", got %q`, uri)
	}
	return path, nil
}
