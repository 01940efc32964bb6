// Package lspclient embeds a klsp server in another program. It spawns the server process, speaks the client side of
// the Language Server Protocol to it over stdio, and exposes the operations klsp supports as plain method calls.
package lspclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/x86y/klsp/lsp/protocol"
)

// Config configures a Client.
type Config struct {
	// Path is the path of the klsp binary.
	Path string
	// Args are extra arguments passed to the binary.
	Args []string
	// RootDir is the workspace root sent to the server. If empty, it's detected by walking up from the working
	// directory to a version control root.
	RootDir string
	// LanguageID is the language id that documents are opened with. Defaults to "k".
	LanguageID string
	// RequestTimeout bounds each request. Defaults to 10 seconds.
	RequestTimeout time.Duration
}

// Client manages a klsp server process and the LSP session with it.
type Client struct {
	config Config

	mu          sync.Mutex
	state       State
	cmd         *exec.Cmd
	transport   *transport
	group       *errgroup.Group
	diagnostics map[string][]protocol.Diagnostic
}

// New returns a Client which will run the server at config.Path.
func New(config Config) (*Client, error) {
	if config.Path == "" {
		return nil, errors.New("lspclient: config: Path is required")
	}
	if config.LanguageID == "" {
		config.LanguageID = "k"
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	if config.RootDir == "" {
		if wd, err := os.Getwd(); err == nil {
			config.RootDir = DetectRootDir(wd)
		}
	}
	return &Client{
		config:      config,
		diagnostics: map[string][]protocol.Diagnostic{},
	}, nil
}

// State returns the current lifecycle state of the client.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start spawns the server process and performs the initialize handshake.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateStopped {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = StateStarting
	c.mu.Unlock()

	cmd := exec.Command(c.config.Path, c.config.Args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return c.failStart(fmt.Errorf("lspclient: starting server: %w", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return c.failStart(fmt.Errorf("lspclient: starting server: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return c.failStart(fmt.Errorf("lspclient: starting server: %w", err))
	}

	transport := newTransport(stdout, stdin)
	transport.OnNotification("textDocument/publishDiagnostics", func(params json.RawMessage) {
		c.storeDiagnostics(params)
	})

	group := &errgroup.Group{}
	group.Go(func() error {
		return transport.readLoop(context.Background())
	})
	group.Go(func() error {
		err := cmd.Wait()
		transport.Close()
		return err
	})

	c.mu.Lock()
	c.cmd = cmd
	c.transport = transport
	c.group = group
	c.mu.Unlock()

	if err := c.initialize(ctx); err != nil {
		c.Stop(ctx)
		return fmt.Errorf("lspclient: initializing: %w", err)
	}

	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()
	return nil
}

func (c *Client) failStart(err error) error {
	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()
	return err
}

func (c *Client) initialize(ctx context.Context) error {
	pid := os.Getpid()
	params := protocol.InitializeParams{
		ProcessID:  &pid,
		ClientInfo: &protocol.ClientInfo{Name: "klsp-client"},
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				Hover: &protocol.HoverClientCapabilities{
					ContentFormat: []protocol.MarkupKind{protocol.MarkupKindMarkdown, protocol.MarkupKindPlainText},
				},
			},
		},
	}
	if c.config.RootDir != "" {
		uri := FileURI(c.config.RootDir)
		params.RootURI = &uri
	}
	var result protocol.InitializeResult
	if err := c.call(ctx, "initialize", params, &result); err != nil {
		return err
	}
	return c.transport.Notify("initialized", struct{}{})
}

// Stop shuts the server down gracefully and reaps the process. The server is killed if it doesn't exit within the
// request timeout.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return ErrNotStarted
	}
	c.state = StateStopping
	cmd, transport, group := c.cmd, c.transport, c.group
	c.mu.Unlock()

	// Best effort shutdown handshake. If the server is wedged we fall through to killing it.
	shutdownCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()
	if err := transport.Call(shutdownCtx, "shutdown", nil, nil); err == nil {
		transport.Notify("exit", nil)
	}

	exited := make(chan error, 1)
	go func() { exited <- group.Wait() }()
	select {
	case <-exited:
	case <-time.After(c.config.RequestTimeout):
		cmd.Process.Kill()
		<-exited
	}
	transport.Close()

	c.mu.Lock()
	c.state = StateStopped
	c.cmd = nil
	c.transport = nil
	c.group = nil
	c.mu.Unlock()
	return nil
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()
	if transport == nil {
		return ErrNotStarted
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()
	return transport.Call(ctx, method, params, result)
}

func (c *Client) notify(method string, params any) error {
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()
	if transport == nil {
		return ErrNotStarted
	}
	return transport.Notify(method, params)
}

// OpenDocument tells the server that the document at path is open with the given content.
func (c *Client) OpenDocument(path, text string, version int) error {
	return c.notify("textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        FileURI(path),
			LanguageID: c.config.LanguageID,
			Version:    version,
			Text:       text,
		},
	})
}

// ChangeDocument replaces the content of an open document.
func (c *Client) ChangeDocument(path, text string, version int) error {
	return c.notify("textDocument/didChange", protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: FileURI(path)},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	})
}

// CloseDocument tells the server that the document at path has been closed.
func (c *Client) CloseDocument(path string) error {
	c.mu.Lock()
	delete(c.diagnostics, FileURI(path))
	c.mu.Unlock()
	return c.notify("textDocument/didClose", protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: FileURI(path)},
	})
}

// Definition returns the location defining the identifier at pos in the document at path, or nil if there isn't one.
func (c *Client) Definition(ctx context.Context, path string, pos protocol.Position) (*protocol.Location, error) {
	var result *protocol.Location
	err := c.call(ctx, "textDocument/definition", protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: FileURI(path)},
			Position:     pos,
		},
	}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Rename renames the identifier at pos in the document at path to newName.
func (c *Client) Rename(ctx context.Context, path string, pos protocol.Position, newName string) (*protocol.WorkspaceEdit, error) {
	var result *protocol.WorkspaceEdit
	err := c.call(ctx, "textDocument/rename", protocol.RenameParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: FileURI(path)},
			Position:     pos,
		},
		NewName: newName,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Diagnostics returns the last diagnostics the server published for the document at path.
func (c *Client) Diagnostics(path string) []protocol.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diagnostics[FileURI(path)]
}

func (c *Client) storeDiagnostics(params json.RawMessage) {
	var published protocol.PublishDiagnosticsParams
	if err := json.Unmarshal(params, &published); err != nil {
		return
	}
	c.mu.Lock()
	c.diagnostics[published.URI] = published.Diagnostics
	c.mu.Unlock()
}

// FileURI converts a file path to a file:// URI. Relative paths are made absolute first.
func FileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

// URIToPath converts a file:// URI back to a file path.
func URIToPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
