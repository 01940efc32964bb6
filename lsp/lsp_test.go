package lsp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/x86y/klsp/lsp/protocol"
)

// fakeNotifier records the notifications sent to the client.
type fakeNotifier struct {
	notifications []notification
}

type notification struct {
	Method string
	Params any
}

func (f *fakeNotifier) Notify(method string, params any) error {
	f.notifications = append(f.notifications, notification{Method: method, Params: params})
	return nil
}

// newTestHandler returns an initialised handler connected to a fake client.
func newTestHandler(t *testing.T, opts ...Option) (*Handler, *fakeNotifier) {
	t.Helper()
	h := NewHandler(opts...)
	f := &fakeNotifier{}
	h.client = newClient(f)
	h.log = newLogger(h.client)
	return h, f
}

func initialize(t *testing.T, h *Handler, params *protocol.InitializeParams) *protocol.InitializeResult {
	t.Helper()
	if params == nil {
		params = &protocol.InitializeParams{}
	}
	result, err := h.initialize(params)
	if err != nil {
		t.Fatalf("initialize() returned error: %s", err)
	}
	return result
}

func openDoc(t *testing.T, h *Handler, uri, text string) {
	t.Helper()
	err := h.textDocumentDidOpen(&protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "k", Version: 1, Text: text},
	})
	if err != nil {
		t.Fatalf("textDocument/didOpen returned error: %s", err)
	}
}

const testURI = "file:///tmp/avg.k"

const testSrc = "avg: {(+/x)%#x}\nxs: 1 2 3\navg xs\nxs: 4 5 6"

func TestInitialize(t *testing.T) {
	h, _ := newTestHandler(t, WithDiagnostics(false))
	result := initialize(t, h, nil)
	want := &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			PositionEncoding: protocol.PositionEncodingKindUTF16,
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			CompletionProvider:     &protocol.CompletionOptions{},
			HoverProvider:          true,
			DefinitionProvider:     true,
			ReferencesProvider:     true,
			DocumentSymbolProvider: true,
			RenameProvider:         true,
		},
		ServerInfo: &protocol.ServerInfo{Name: "klsp", Version: Version},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("initialize() mismatch (-want +got):\n%s", diff)
	}
}

func TestInitializeAppliesInitializationOptions(t *testing.T) {
	h, _ := newTestHandler(t, WithDiagnostics(false))
	opts := json.RawMessage(`{"interpreterPath":"/opt/k/k","diagnostics":false}`)
	initialize(t, h, &protocol.InitializeParams{InitializationOptions: opts})
	if h.settings.interpreterPath != "/opt/k/k" {
		t.Errorf("interpreterPath = %q, want %q", h.settings.interpreterPath, "/opt/k/k")
	}
	if h.settings.diagnostics {
		t.Error("diagnostics = true, want false")
	}
	if h.interp.Path() != "/opt/k/k" {
		t.Errorf("interpreter path = %q, want %q", h.interp.Path(), "/opt/k/k")
	}
}

func TestRequestsBeforeInitializeAreRejected(t *testing.T) {
	h, _ := newTestHandler(t)
	params := json.RawMessage(`{}`)
	if _, err := h.HandleRequest("textDocument/definition", &params); err != notInitializedErr {
		t.Errorf("HandleRequest() error = %v, want %v", err, notInitializedErr)
	}
}

func TestRequestsAfterShutdownAreRejected(t *testing.T) {
	h, _ := newTestHandler(t, WithDiagnostics(false))
	initialize(t, h, nil)
	if _, err := h.shutdown(); err != nil {
		t.Fatalf("shutdown() returned error: %s", err)
	}
	params := json.RawMessage(`{}`)
	if _, err := h.HandleRequest("textDocument/definition", &params); err != shuttingDownErr {
		t.Errorf("HandleRequest() error = %v, want %v", err, shuttingDownErr)
	}
}

func TestDidOpenPublishesEmptyDiagnosticsWhenDisabled(t *testing.T) {
	h, f := newTestHandler(t, WithDiagnostics(false))
	initialize(t, h, nil)
	openDoc(t, h, testURI, testSrc)
	if len(f.notifications) != 1 || f.notifications[0].Method != "textDocument/publishDiagnostics" {
		t.Fatalf("notifications = %v, want a single textDocument/publishDiagnostics", f.notifications)
	}
	params := f.notifications[0].Params.(*protocol.PublishDiagnosticsParams)
	if params.URI != testURI || len(params.Diagnostics) != 0 {
		t.Errorf("published diagnostics = %+v, want empty list for %s", params, testURI)
	}
}

func TestDidOpenPublishesInterpreterDiagnostics(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreter is a shell script")
	}
	path := filepath.Join(t.TempDir(), "k")
	script := "#!/bin/sh\nprintf \"'parse\\ny: +\\n   ^\\n\" >&2; exit 1\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	h, f := newTestHandler(t, WithInterpreterPath(path))
	initialize(t, h, nil)
	openDoc(t, h, testURI, "x: 1\ny: +")
	if len(f.notifications) != 1 {
		t.Fatalf("got %d notifications, want 1", len(f.notifications))
	}
	params := f.notifications[0].Params.(*protocol.PublishDiagnosticsParams)
	want := []protocol.Diagnostic{
		{
			Range: protocol.Range{
				Start: protocol.Position{Line: 1, Character: 3},
				End:   protocol.Position{Line: 1, Character: 4},
			},
			Severity: protocol.DiagnosticSeverityError,
			Source:   "klsp",
			Message:  "Syntax error at: 'parse\ny: +\n   ^",
		},
	}
	if diff := cmp.Diff(want, params.Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	if params.Version == nil || *params.Version != 1 {
		t.Errorf("version = %v, want 1", params.Version)
	}
}

func TestDidChangeReplacesContent(t *testing.T) {
	h, _ := newTestHandler(t, WithDiagnostics(false))
	initialize(t, h, nil)
	openDoc(t, h, testURI, testSrc)
	err := h.textDocumentDidChange(&protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "sum: +/\n"}},
	})
	if err != nil {
		t.Fatalf("textDocument/didChange returned error: %s", err)
	}
	doc := h.docs[testURI]
	if doc.Text != "sum: +/\n" || doc.Version != 2 {
		t.Errorf("document = %+v, want replaced text at version 2", doc)
	}
	if _, ok := doc.defsByName["sum"]; !ok {
		t.Error("definitions weren't rebuilt after change")
	}
}

func TestDidChangeRejectsIncrementalChanges(t *testing.T) {
	h, _ := newTestHandler(t, WithDiagnostics(false))
	initialize(t, h, nil)
	openDoc(t, h, testURI, testSrc)
	err := h.textDocumentDidChange(&protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{
			{Range: &protocol.Range{}, Text: "x"},
		},
	})
	if err == nil {
		t.Fatal("textDocument/didChange succeeded, want error for incremental change")
	}
}

func TestDidCloseClearsDiagnostics(t *testing.T) {
	h, f := newTestHandler(t, WithDiagnostics(false))
	initialize(t, h, nil)
	openDoc(t, h, testURI, testSrc)
	err := h.textDocumentDidClose(&protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	if err != nil {
		t.Fatalf("textDocument/didClose returned error: %s", err)
	}
	if _, ok := h.docs[testURI]; ok {
		t.Error("document still tracked after didClose")
	}
	last := f.notifications[len(f.notifications)-1]
	params := last.Params.(*protocol.PublishDiagnosticsParams)
	if last.Method != "textDocument/publishDiagnostics" || len(params.Diagnostics) != 0 {
		t.Errorf("last notification = %+v, want empty diagnostics", last)
	}
}

func TestDefinition(t *testing.T) {
	h, _ := newTestHandler(t, WithDiagnostics(false))
	initialize(t, h, nil)
	openDoc(t, h, testURI, testSrc)
	tests := []struct {
		name string
		pos  protocol.Position
		want *protocol.Location
	}{
		{
			name: "reference resolves to definition",
			pos:  protocol.Position{Line: 2, Character: 1}, // inside "avg" on "avg xs"
			want: &protocol.Location{
				URI: testURI,
				Range: protocol.Range{
					Start: protocol.Position{Line: 0, Character: 0},
					End:   protocol.Position{Line: 0, Character: 3},
				},
			},
		},
		{
			name: "last assignment wins",
			pos:  protocol.Position{Line: 2, Character: 4}, // inside "xs" on "avg xs"
			want: &protocol.Location{
				URI: testURI,
				Range: protocol.Range{
					Start: protocol.Position{Line: 3, Character: 0},
					End:   protocol.Position{Line: 3, Character: 2},
				},
			},
		},
		{
			name: "no identifier at position",
			pos:  protocol.Position{Line: 0, Character: 4}, // the space after "avg:"
			want: nil,
		},
		{
			name: "undefined identifier",
			pos:  protocol.Position{Line: 0, Character: 9}, // the x inside the lambda body
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.textDocumentDefinition(&protocol.DefinitionParams{
				TextDocumentPositionParams: protocol.TextDocumentPositionParams{
					TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
					Position:     tt.pos,
				},
			})
			if err != nil {
				t.Fatalf("textDocument/definition returned error: %s", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("definition mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReferences(t *testing.T) {
	h, _ := newTestHandler(t, WithDiagnostics(false))
	initialize(t, h, nil)
	openDoc(t, h, testURI, testSrc)
	params := func(includeDeclaration bool) *protocol.ReferenceParams {
		return &protocol.ReferenceParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
				Position:     protocol.Position{Line: 2, Character: 4},
			},
			Context: protocol.ReferenceContext{IncludeDeclaration: includeDeclaration},
		}
	}
	loc := func(line, start, end int) protocol.Location {
		return protocol.Location{
			URI: testURI,
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: start},
				End:   protocol.Position{Line: line, Character: end},
			},
		}
	}

	got, err := h.textDocumentReferences(params(true))
	if err != nil {
		t.Fatalf("textDocument/references returned error: %s", err)
	}
	want := []protocol.Location{loc(1, 0, 2), loc(2, 4, 6), loc(3, 0, 2)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("references with declaration mismatch (-want +got):\n%s", diff)
	}

	got, err = h.textDocumentReferences(params(false))
	if err != nil {
		t.Fatalf("textDocument/references returned error: %s", err)
	}
	want = []protocol.Location{loc(2, 4, 6)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("references without declaration mismatch (-want +got):\n%s", diff)
	}
}

func TestHover(t *testing.T) {
	positionParams := protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		Position:     protocol.Position{Line: 2, Character: 0},
	}

	t.Run("plaintext by default", func(t *testing.T) {
		h, _ := newTestHandler(t, WithDiagnostics(false))
		initialize(t, h, nil)
		openDoc(t, h, testURI, testSrc)
		got, err := h.textDocumentHover(&protocol.HoverParams{TextDocumentPositionParams: positionParams})
		if err != nil {
			t.Fatalf("textDocument/hover returned error: %s", err)
		}
		want := &protocol.Hover{
			Contents: protocol.MarkupContent{
				Kind:  protocol.MarkupKindPlainText,
				Value: "avg: {(+/x)%#x}",
			},
			Range: &protocol.Range{
				Start: protocol.Position{Line: 2, Character: 0},
				End:   protocol.Position{Line: 2, Character: 3},
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("hover mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("markdown when supported", func(t *testing.T) {
		h, _ := newTestHandler(t, WithDiagnostics(false))
		initialize(t, h, &protocol.InitializeParams{
			Capabilities: protocol.ClientCapabilities{
				TextDocument: &protocol.TextDocumentClientCapabilities{
					Hover: &protocol.HoverClientCapabilities{
						ContentFormat: []protocol.MarkupKind{protocol.MarkupKindMarkdown},
					},
				},
			},
		})
		openDoc(t, h, testURI, testSrc)
		got, err := h.textDocumentHover(&protocol.HoverParams{TextDocumentPositionParams: positionParams})
		if err != nil {
			t.Fatalf("textDocument/hover returned error: %s", err)
		}
		want := protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: "```k\navg: {(+/x)%#x}\n```",
		}
		if diff := cmp.Diff(want, got.Contents); diff != "" {
			t.Errorf("hover contents mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestDocumentSymbol(t *testing.T) {
	t.Run("flat symbols by default", func(t *testing.T) {
		h, _ := newTestHandler(t, WithDiagnostics(false))
		initialize(t, h, nil)
		openDoc(t, h, testURI, testSrc)
		got, err := h.textDocumentDocumentSymbol(&protocol.DocumentSymbolParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		})
		if err != nil {
			t.Fatalf("textDocument/documentSymbol returned error: %s", err)
		}
		want := []protocol.SymbolInformation{
			{
				Name: "avg",
				Kind: protocol.SymbolKindFunction,
				Location: protocol.Location{URI: testURI, Range: protocol.Range{
					Start: protocol.Position{Line: 0, Character: 0},
					End:   protocol.Position{Line: 0, Character: 3},
				}},
			},
			{
				Name: "xs",
				Kind: protocol.SymbolKindVariable,
				Location: protocol.Location{URI: testURI, Range: protocol.Range{
					Start: protocol.Position{Line: 1, Character: 0},
					End:   protocol.Position{Line: 1, Character: 2},
				}},
			},
			{
				Name: "xs",
				Kind: protocol.SymbolKindVariable,
				Location: protocol.Location{URI: testURI, Range: protocol.Range{
					Start: protocol.Position{Line: 3, Character: 0},
					End:   protocol.Position{Line: 3, Character: 2},
				}},
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("symbols mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("hierarchical symbols when supported", func(t *testing.T) {
		h, _ := newTestHandler(t, WithDiagnostics(false))
		initialize(t, h, &protocol.InitializeParams{
			Capabilities: protocol.ClientCapabilities{
				TextDocument: &protocol.TextDocumentClientCapabilities{
					DocumentSymbol: &protocol.DocumentSymbolClientCapabilities{
						HierarchicalDocumentSymbolSupport: true,
					},
				},
			},
		})
		openDoc(t, h, testURI, testSrc)
		got, err := h.textDocumentDocumentSymbol(&protocol.DocumentSymbolParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		})
		if err != nil {
			t.Fatalf("textDocument/documentSymbol returned error: %s", err)
		}
		symbols, ok := got.([]protocol.DocumentSymbol)
		if !ok {
			t.Fatalf("result has type %T, want []protocol.DocumentSymbol", got)
		}
		if len(symbols) != 3 || symbols[0].Name != "avg" || symbols[0].Detail != "{(+/x)%#x}" {
			t.Errorf("symbols = %+v, want avg with its lambda as detail first", symbols)
		}
	})
}

func TestRename(t *testing.T) {
	h, _ := newTestHandler(t, WithDiagnostics(false))
	initialize(t, h, nil)
	openDoc(t, h, testURI, testSrc)
	params := func(pos protocol.Position) *protocol.RenameParams {
		return &protocol.RenameParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
				Position:     pos,
			},
			NewName: "ys",
		}
	}

	t.Run("all whole word occurrences are edited", func(t *testing.T) {
		got, err := h.textDocumentRename(params(protocol.Position{Line: 1, Character: 0}))
		if err != nil {
			t.Fatalf("textDocument/rename returned error: %s", err)
		}
		want := &protocol.WorkspaceEdit{
			Changes: map[string][]protocol.TextEdit{
				testURI: {
					{Range: protocol.Range{Start: protocol.Position{Line: 1, Character: 0}, End: protocol.Position{Line: 1, Character: 2}}, NewText: "ys"},
					{Range: protocol.Range{Start: protocol.Position{Line: 2, Character: 4}, End: protocol.Position{Line: 2, Character: 6}}, NewText: "ys"},
					{Range: protocol.Range{Start: protocol.Position{Line: 3, Character: 0}, End: protocol.Position{Line: 3, Character: 2}}, NewText: "ys"},
				},
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("rename mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no identifier at position", func(t *testing.T) {
		got, err := h.textDocumentRename(params(protocol.Position{Line: 0, Character: 4}))
		if err != nil {
			t.Fatalf("textDocument/rename returned error: %s", err)
		}
		if diff := cmp.Diff(&protocol.WorkspaceEdit{}, got); diff != "" {
			t.Errorf("rename mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("undefined identifier is a no-op", func(t *testing.T) {
		// The x inside the lambda body occurs multiple times but has no x: definition, so nothing may be edited.
		got, err := h.textDocumentRename(params(protocol.Position{Line: 0, Character: 9}))
		if err != nil {
			t.Fatalf("textDocument/rename returned error: %s", err)
		}
		if diff := cmp.Diff(&protocol.WorkspaceEdit{}, got); diff != "" {
			t.Errorf("rename mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestCompletion(t *testing.T) {
	h, _ := newTestHandler(t, WithDiagnostics(false))
	initialize(t, h, nil)
	openDoc(t, h, testURI, testSrc)
	got, err := h.textDocumentCompletion(&protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 2, Character: 0},
		},
	})
	if err != nil {
		t.Fatalf("textDocument/completion returned error: %s", err)
	}
	want := []protocol.CompletionItem{
		{Label: "avg", Kind: protocol.CompletionItemKindFunction, Detail: "{(+/x)%#x}"},
		{Label: "xs", Kind: protocol.CompletionItemKindVariable, Detail: "1 2 3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("completion mismatch (-want +got):\n%s", diff)
	}
}

func TestDidChangeConfiguration(t *testing.T) {
	h, _ := newTestHandler(t, WithDiagnostics(false))
	initialize(t, h, nil)
	err := h.workspaceDidChangeConfiguration(&protocol.DidChangeConfigurationParams{
		Settings: json.RawMessage(`{"klsp":{"interpreterPath":"/opt/k/k"}}`),
	})
	if err != nil {
		t.Fatalf("workspace/didChangeConfiguration returned error: %s", err)
	}
	if h.settings.interpreterPath != "/opt/k/k" {
		t.Errorf("interpreterPath = %q, want %q", h.settings.interpreterPath, "/opt/k/k")
	}
	if h.settings.diagnostics {
		t.Error("diagnostics setting changed despite not being present in the new settings")
	}
}

func TestUnknownURI(t *testing.T) {
	h, _ := newTestHandler(t, WithDiagnostics(false))
	initialize(t, h, nil)
	_, err := h.textDocumentDefinition(&protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///nope.k"},
		},
	})
	if err == nil {
		t.Fatal("textDocument/definition succeeded, want error for unknown document")
	}
}
