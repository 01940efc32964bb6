package protocol

// DefinitionParams are the parameters of a textDocument/definition request.
type DefinitionParams struct {
	TextDocumentPositionParams
}

// ReferenceParams are the parameters of a textDocument/references request.
type ReferenceParams struct {
	TextDocumentPositionParams
	Context ReferenceContext `json:"context"`
}

// ReferenceContext controls which references are returned.
type ReferenceContext struct {
	// IncludeDeclaration indicates whether the declaration of the symbol is included in the results.
	IncludeDeclaration bool `json:"includeDeclaration"`
}

// HoverParams are the parameters of a textDocument/hover request.
type HoverParams struct {
	TextDocumentPositionParams
}

// Hover is the result of a textDocument/hover request.
type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

// RenameParams are the parameters of a textDocument/rename request.
type RenameParams struct {
	TextDocumentPositionParams
	NewName string `json:"newName"`
}

// DocumentSymbolParams are the parameters of a textDocument/documentSymbol request.
type DocumentSymbolParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// SymbolKind is the kind of a symbol.
type SymbolKind int

// Symbol kinds defined by the protocol. Only the ones klsp reports are listed.
const (
	SymbolKindFunction SymbolKind = 12
	SymbolKindVariable SymbolKind = 13
)

// DocumentSymbol represents programming constructs that appear in a document. Document symbols can be hierarchical.
type DocumentSymbol struct {
	Name string `json:"name"`
	// Detail is more detail for this symbol, e.g. the signature of a function.
	Detail string     `json:"detail,omitempty"`
	Kind   SymbolKind `json:"kind"`
	// Range is the range enclosing this symbol, including leading/trailing whitespace but not comments.
	Range Range `json:"range"`
	// SelectionRange is the range that should be selected when this symbol is picked, e.g. the name of a function.
	// Must be contained by Range.
	SelectionRange Range            `json:"selectionRange"`
	Children       []DocumentSymbol `json:"children,omitempty"`
}

// SymbolInformation represents information about a programming construct. It's the flat alternative to DocumentSymbol
// for clients without hierarchical symbol support.
type SymbolInformation struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	Location      Location   `json:"location"`
	ContainerName string     `json:"containerName,omitempty"`
}

// CompletionParams are the parameters of a textDocument/completion request.
type CompletionParams struct {
	TextDocumentPositionParams
}

// CompletionItemKind is the kind of a completion item.
type CompletionItemKind int

// Completion item kinds defined by the protocol. Only the ones klsp reports are listed.
const (
	CompletionItemKindFunction CompletionItemKind = 3
	CompletionItemKindVariable CompletionItemKind = 6
)

// CompletionItem is a suggested completion.
type CompletionItem struct {
	Label  string             `json:"label"`
	Kind   CompletionItemKind `json:"kind,omitempty"`
	Detail string             `json:"detail,omitempty"`
}
