package protocol

import "encoding/json"

// InitializeParams are the parameters of an initialize request.
//
// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#initialize
type InitializeParams struct {
	// ProcessID is the process id of the parent process that started the server. Null if the process has not been
	// started by another process.
	ProcessID *int `json:"processId"`
	// ClientInfo is information about the client.
	ClientInfo *ClientInfo `json:"clientInfo,omitempty"`
	// RootURI is the root URI of the workspace. Null if no folder is open.
	RootURI *string `json:"rootUri,omitempty"`
	// Capabilities are the capabilities provided by the client (editor or tool).
	Capabilities ClientCapabilities `json:"capabilities"`
	// InitializationOptions are user provided options, passed through verbatim by the client.
	InitializationOptions json.RawMessage `json:"initializationOptions,omitempty"`
}

// ClientInfo is information about the client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ClientCapabilities describes the capabilities of the client. Only the ones klsp adapts to are modelled.
type ClientCapabilities struct {
	TextDocument *TextDocumentClientCapabilities `json:"textDocument,omitempty"`
}

// TextDocumentClientCapabilities describes text document specific client capabilities.
type TextDocumentClientCapabilities struct {
	Hover          *HoverClientCapabilities          `json:"hover,omitempty"`
	DocumentSymbol *DocumentSymbolClientCapabilities `json:"documentSymbol,omitempty"`
}

// HoverClientCapabilities describes capabilities specific to the textDocument/hover request.
type HoverClientCapabilities struct {
	// ContentFormat lists the content formats the client supports in a Hover, ordered by preference.
	ContentFormat []MarkupKind `json:"contentFormat,omitempty"`
}

// DocumentSymbolClientCapabilities describes capabilities specific to the textDocument/documentSymbol request.
type DocumentSymbolClientCapabilities struct {
	HierarchicalDocumentSymbolSupport bool `json:"hierarchicalDocumentSymbolSupport,omitempty"`
}

// HoverContentFormat returns the client's preferred hover content formats, tolerating absent capabilities.
func (c ClientCapabilities) HoverContentFormat() []MarkupKind {
	if c.TextDocument == nil || c.TextDocument.Hover == nil {
		return nil
	}
	return c.TextDocument.Hover.ContentFormat
}

// HierarchicalDocumentSymbols reports whether the client understands nested document symbols, tolerating absent
// capabilities.
func (c ClientCapabilities) HierarchicalDocumentSymbols() bool {
	return c.TextDocument != nil && c.TextDocument.DocumentSymbol != nil &&
		c.TextDocument.DocumentSymbol.HierarchicalDocumentSymbolSupport
}

// InitializeResult is the result of an initialize request.
type InitializeResult struct {
	// Capabilities are the capabilities the language server provides.
	Capabilities ServerCapabilities `json:"capabilities"`
	// ServerInfo is information about the server.
	ServerInfo *ServerInfo `json:"serverInfo,omitempty"`
}

// ServerInfo is information about the server.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// PositionEncodingKindUTF16 is the position encoding negotiated by default: offsets in UTF-16 code units.
const PositionEncodingKindUTF16 = "utf-16"

// ServerCapabilities describes the capabilities the language server provides.
type ServerCapabilities struct {
	PositionEncoding       string                   `json:"positionEncoding,omitempty"`
	TextDocumentSync       *TextDocumentSyncOptions `json:"textDocumentSync,omitempty"`
	CompletionProvider     *CompletionOptions       `json:"completionProvider,omitempty"`
	HoverProvider          bool                     `json:"hoverProvider,omitempty"`
	DefinitionProvider     bool                     `json:"definitionProvider,omitempty"`
	ReferencesProvider     bool                     `json:"referencesProvider,omitempty"`
	DocumentSymbolProvider bool                     `json:"documentSymbolProvider,omitempty"`
	RenameProvider         bool                     `json:"renameProvider,omitempty"`
}

// TextDocumentSyncKind defines how the host (editor) should sync document changes to the language server.
type TextDocumentSyncKind int

// Text document sync kinds defined by the protocol.
const (
	TextDocumentSyncKindNone        TextDocumentSyncKind = 0
	TextDocumentSyncKindFull        TextDocumentSyncKind = 1
	TextDocumentSyncKindIncremental TextDocumentSyncKind = 2
)

// TextDocumentSyncOptions describes the document synchronization the server supports.
type TextDocumentSyncOptions struct {
	// OpenClose indicates that open and close notifications are sent to the server.
	OpenClose bool `json:"openClose,omitempty"`
	// Change indicates how document change notifications are synced to the server.
	Change TextDocumentSyncKind `json:"change,omitempty"`
}

// CompletionOptions describes the completion support the server provides.
type CompletionOptions struct {
	TriggerCharacters []string `json:"triggerCharacters,omitempty"`
}

// DidChangeConfigurationParams are the parameters of a workspace/didChangeConfiguration notification.
type DidChangeConfigurationParams struct {
	// Settings is the entire settings document, whose shape is client specific.
	Settings json.RawMessage `json:"settings"`
}

// ErrorCodesServerNotInitialized is returned for requests received before the initialize request.
const ErrorCodesServerNotInitialized = -32002
