package lsp

// This file contains handlers for the methods described under
// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#languageFeatures.

import (
	"fmt"
	"slices"
	"strings"

	"github.com/x86y/klsp/ksource"
	"github.com/x86y/klsp/lsp/protocol"
)

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_definition
func (h *Handler) textDocumentDefinition(params *protocol.DefinitionParams) (*protocol.Location, error) {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	ident, _, ok := identAtPosition(doc, params.Position)
	if !ok {
		return nil, nil
	}
	def, ok := doc.defsByName[ident]
	if !ok {
		return nil, nil
	}
	return &protocol.Location{
		URI:   doc.URI,
		Range: spanToRange(doc, ksource.Span{Line: def.Line, Start: 0, End: len(def.Name)}),
	}, nil
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_references
func (h *Handler) textDocumentReferences(params *protocol.ReferenceParams) ([]protocol.Location, error) {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	ident, _, ok := identAtPosition(doc, params.Position)
	if !ok {
		return nil, nil
	}
	var locations []protocol.Location
	for _, span := range ksource.References(doc.Text, ident) {
		if !params.Context.IncludeDeclaration && isDeclaration(doc, ident, span) {
			continue
		}
		locations = append(locations, protocol.Location{URI: doc.URI, Range: spanToRange(doc, span)})
	}
	return locations, nil
}

// isDeclaration reports whether span is the occurrence of ident which defines it. Definitions only ever start at
// column 0.
func isDeclaration(doc *document, ident string, span ksource.Span) bool {
	if span.Start != 0 {
		return false
	}
	return slices.Contains(doc.Definitions, ksource.Definition{Name: ident, Line: span.Line})
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_hover
func (h *Handler) textDocumentHover(params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	ident, span, ok := identAtPosition(doc, params.Position)
	if !ok {
		return nil, nil
	}
	def, ok := doc.defsByName[ident]
	if !ok {
		return nil, nil
	}
	contents := protocol.MarkupContent{
		Kind:  protocol.MarkupKindPlainText,
		Value: doc.Lines[def.Line],
	}
	if slices.Contains(h.capabilities.HoverContentFormat(), protocol.MarkupKindMarkdown) {
		contents = protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("```k\n%s\n```", doc.Lines[def.Line]),
		}
	}
	hoverRange := spanToRange(doc, span)
	return &protocol.Hover{
		Contents: contents,
		Range:    &hoverRange,
	}, nil
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_documentSymbol
func (h *Handler) textDocumentDocumentSymbol(params *protocol.DocumentSymbolParams) (any, error) {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	if h.capabilities.HierarchicalDocumentSymbols() {
		var symbols []protocol.DocumentSymbol
		for _, def := range doc.Definitions {
			nameRange := spanToRange(doc, ksource.Span{Line: def.Line, Start: 0, End: len(def.Name)})
			symbols = append(symbols, protocol.DocumentSymbol{
				Name:           def.Name,
				Detail:         definitionDetail(doc, def),
				Kind:           definitionKind(doc, def),
				Range:          lineRange(doc, def.Line),
				SelectionRange: nameRange,
			})
		}
		return symbols, nil
	}
	var symbols []protocol.SymbolInformation
	for _, def := range doc.Definitions {
		symbols = append(symbols, protocol.SymbolInformation{
			Name: def.Name,
			Kind: definitionKind(doc, def),
			Location: protocol.Location{
				URI:   doc.URI,
				Range: spanToRange(doc, ksource.Span{Line: def.Line, Start: 0, End: len(def.Name)}),
			},
		})
	}
	return symbols, nil
}

// definitionKind classifies a definition by its assigned value. Lambdas in K are braced, so a value starting with "{"
// defines a function and everything else a variable.
func definitionKind(doc *document, def ksource.Definition) protocol.SymbolKind {
	if strings.HasPrefix(definitionDetail(doc, def), "{") {
		return protocol.SymbolKindFunction
	}
	return protocol.SymbolKindVariable
}

// definitionDetail returns the value assigned by a definition, e.g. "{(+/x)%#x}" for "avg: {(+/x)%#x}".
func definitionDetail(doc *document, def ksource.Definition) string {
	line := doc.Lines[def.Line]
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}

func lineRange(doc *document, line int) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: 0},
		End:   protocol.Position{Line: line, Character: ksource.UTF16Column(doc.Lines[line], len(doc.Lines[line]))},
	}
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_rename
func (h *Handler) textDocumentRename(params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	ident, _, ok := identAtPosition(doc, params.Position)
	if !ok {
		return &protocol.WorkspaceEdit{}, nil
	}
	// Only defined names can be renamed. An undefined identifier has nothing to anchor the rename to.
	if _, ok := doc.defsByName[ident]; !ok {
		return &protocol.WorkspaceEdit{}, nil
	}
	var edits []protocol.TextEdit
	for _, span := range ksource.References(doc.Text, ident) {
		edits = append(edits, protocol.TextEdit{
			Range:   spanToRange(doc, span),
			NewText: params.NewName,
		})
	}
	return &protocol.WorkspaceEdit{
		Changes: map[string][]protocol.TextEdit{doc.URI: edits},
	}, nil
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_completion
func (h *Handler) textDocumentCompletion(params *protocol.CompletionParams) ([]protocol.CompletionItem, error) {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	var items []protocol.CompletionItem
	seen := map[string]bool{}
	for _, def := range doc.Definitions {
		if seen[def.Name] {
			continue
		}
		seen[def.Name] = true
		kind := protocol.CompletionItemKindVariable
		if definitionKind(doc, def) == protocol.SymbolKindFunction {
			kind = protocol.CompletionItemKindFunction
		}
		items = append(items, protocol.CompletionItem{
			Label:  def.Name,
			Kind:   kind,
			Detail: definitionDetail(doc, def),
		})
	}
	return items, nil
}
