package lsp

import (
	"github.com/x86y/klsp/lsp/protocol"
)

// notifier sends a notification to the client on the other end of the connection. It's implemented by
// *jsonrpc.Client and by fakes in tests.
type notifier interface {
	Notify(method string, params any) error
}

type client struct {
	notifier notifier
}

func newClient(notifier notifier) *client {
	return &client{
		notifier: notifier,
	}
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_publishDiagnostics
func (c *client) TextDocumentPublishDiagnostics(params *protocol.PublishDiagnosticsParams) error {
	return c.notifier.Notify("textDocument/publishDiagnostics", params)
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#window_logMessage
func (c *client) WindowLogMessage(params *protocol.LogMessageParams) error {
	return c.notifier.Notify("window/logMessage", params)
}
