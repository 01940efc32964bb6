// Package lsp implements a JSON-RPC 2.0 server handler which implements the Language Server Protocol for K.
package lsp

import (
	"encoding/json"

	"github.com/x86y/klsp/interp"
	"github.com/x86y/klsp/jsonrpc"
	"github.com/x86y/klsp/lsp/protocol"
)

// Handler responds to JSON-RPC requests and notifications.
type Handler struct {
	initialized  bool
	shuttingDown bool

	client       *client
	log          *logger
	capabilities protocol.ClientCapabilities
	settings     settings
	interp       *interp.Interpreter
	docs         map[string]*document
}

type settings struct {
	interpreterPath string
	diagnostics     bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithInterpreterPath sets the path of the K interpreter used for diagnostics.
func WithInterpreterPath(path string) Option {
	return func(h *Handler) {
		h.settings.interpreterPath = path
	}
}

// WithDiagnostics enables or disables publishing diagnostics.
func WithDiagnostics(enabled bool) Option {
	return func(h *Handler) {
		h.settings.diagnostics = enabled
	}
}

// NewHandler returns a new Handler.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		settings: settings{
			interpreterPath: interp.DefaultPath,
			diagnostics:     true,
		},
		docs: map[string]*document{},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.interp = interp.New(h.settings.interpreterPath)
	return h
}

// Init initialises the handler with a client which can be used to send requests and notifications to the client on
// the other end of the connection.
func (h *Handler) Init(jsonrpcClient *jsonrpc.Client) {
	h.client = newClient(jsonrpcClient)
	h.log = newLogger(h.client)
}

var (
	notInitializedErr = jsonrpc.NewError(jsonrpc.ErrorCode(protocol.ErrorCodesServerNotInitialized), "Server not initialized", nil)
	shuttingDownErr   = jsonrpc.NewInvalidRequestError("Server shutting down")
)

// HandleRequest responds to a JSON-RPC request.
func (h *Handler) HandleRequest(method string, jsonParams *json.RawMessage) (any, error) {
	if !h.initialized && method != "initialize" {
		return nil, notInitializedErr
	}
	if h.shuttingDown && method != "shutdown" {
		return nil, shuttingDownErr
	}
	switch method {
	case "initialize":
		return handle(jsonParams, h.initialize)
	case "shutdown":
		return h.shutdown()
	case "textDocument/definition":
		return handle(jsonParams, h.textDocumentDefinition)
	case "textDocument/references":
		return handle(jsonParams, h.textDocumentReferences)
	case "textDocument/hover":
		return handle(jsonParams, h.textDocumentHover)
	case "textDocument/documentSymbol":
		return handle(jsonParams, h.textDocumentDocumentSymbol)
	case "textDocument/rename":
		return handle(jsonParams, h.textDocumentRename)
	case "textDocument/completion":
		return handle(jsonParams, h.textDocumentCompletion)
	default:
		return nil, jsonrpc.NewMethodNotFoundError(method)
	}
}

// HandleNotification responds to a JSON-RPC notification.
func (h *Handler) HandleNotification(method string, jsonParams *json.RawMessage) error {
	if !h.initialized && method != "initialized" && method != "exit" {
		return notInitializedErr
	}
	if h.shuttingDown && method != "exit" {
		return shuttingDownErr
	}
	switch method {
	case "initialized":
		// No further initialisation needed
		return nil
	case "textDocument/didOpen":
		return handleNotification(jsonParams, h.textDocumentDidOpen)
	case "textDocument/didChange":
		return handleNotification(jsonParams, h.textDocumentDidChange)
	case "textDocument/didClose":
		return handleNotification(jsonParams, h.textDocumentDidClose)
	case "workspace/didChangeConfiguration":
		return handleNotification(jsonParams, h.workspaceDidChangeConfiguration)
	case "exit":
		return h.exit()
	default:
		return jsonrpc.NewMethodNotFoundError(method)
	}
}

func handle[T any, R any](jsonParams *json.RawMessage, handler func(T) (R, error)) (any, error) {
	params, err := unmarshalParams[T](jsonParams)
	if err != nil {
		return nil, err
	}
	return handler(params)
}

func handleNotification[T any](jsonParams *json.RawMessage, handler func(T) error) error {
	params, err := unmarshalParams[T](jsonParams)
	if err != nil {
		return err
	}
	return handler(params)
}

func unmarshalParams[T any](jsonParams *json.RawMessage) (T, error) {
	var params T
	if jsonParams == nil {
		return params, jsonrpc.NewInvalidParamsError("params are required")
	}
	if err := json.Unmarshal(*jsonParams, &params); err != nil {
		return params, jsonrpc.NewInvalidParamsError(err.Error())
	}
	return params, nil
}
