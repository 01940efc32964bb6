package lspclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// transport handles the client side of a JSON-RPC 2.0 connection over a pair of pipes, implementing the LSP base
// protocol with Content-Length headers.
type transport struct {
	reader *bufio.Reader

	writeMu sync.Mutex
	writer  io.Writer

	nextID  atomic.Int64
	mu      sync.Mutex
	pending map[int64]chan *rpcResponse

	handlersMu sync.RWMutex
	handlers   map[string]notificationHandler

	closed atomic.Bool
	done   chan struct{}
}

// notificationHandler handles a notification sent by the server.
type notificationHandler func(params json.RawMessage)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type rpcNotification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func newTransport(r io.Reader, w io.Writer) *transport {
	return &transport{
		reader:   bufio.NewReaderSize(r, 64*1024),
		writer:   w,
		pending:  make(map[int64]chan *rpcResponse),
		handlers: make(map[string]notificationHandler),
		done:     make(chan struct{}),
	}
}

// Close marks the transport as shut down and unblocks pending calls. It doesn't close the underlying pipes, which
// belong to the server process.
func (t *transport) Close() {
	if t.closed.Swap(true) {
		return
	}
	close(t.done)
	// Pending callers will be woken up by t.done instead.
	t.mu.Lock()
	t.pending = make(map[int64]chan *rpcResponse)
	t.mu.Unlock()
}

// Call sends a request and waits for its response, unmarshalling the result into result if it's non-nil.
func (t *transport) Call(ctx context.Context, method string, params any, result any) error {
	if t.closed.Load() {
		return ErrShutdown
	}

	id := t.nextID.Add(1)
	ch := make(chan *rpcResponse, 1)
	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	req := &rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := t.send(req); err != nil {
		return fmt.Errorf("sending %q request: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrShutdown
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("unmarshalling %q result: %w", method, err)
			}
		}
		return nil
	}
}

// Notify sends a notification. Notifications have no response.
func (t *transport) Notify(method string, params any) error {
	if t.closed.Load() {
		return ErrShutdown
	}
	msg := struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  any    `json:"params,omitempty"`
	}{JSONRPC: "2.0", Method: method, Params: params}
	return t.send(&msg)
}

// OnNotification registers a handler for a server sent notification method, replacing any previous handler.
func (t *transport) OnNotification(method string, handler notificationHandler) {
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()
	t.handlers[method] = handler
}

func (t *transport) send(msg any) error {
	content, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := fmt.Fprintf(t.writer, "Content-Length: %d\r\n\r\n%s", len(content), content); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

// readLoop reads messages from the server until the pipe closes or ctx is cancelled, dispatching responses to their
// pending calls and notifications to their handlers.
func (t *transport) readLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := t.readMessage()
		if err != nil {
			if t.closed.Load() || err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading message: %w", err)
		}
		t.dispatch(content)
	}
}

func (t *transport) readMessage() ([]byte, error) {
	var length int64
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if value, found := strings.CutPrefix(line, "Content-Length: "); found {
			length, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length header %q: %w", value, err)
			}
		}
	}
	if length == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	content := make([]byte, length)
	if _, err := io.ReadFull(t.reader, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (t *transport) dispatch(content []byte) {
	// A message with a method is a notification or server request, anything else is a response to one of our calls.
	var probe struct {
		ID     *int64 `json:"id"`
		Method string `json:"method"`
	}
	if err := json.Unmarshal(content, &probe); err != nil {
		return
	}

	if probe.Method != "" {
		var notif rpcNotification
		if err := json.Unmarshal(content, &notif); err != nil {
			return
		}
		t.handlersMu.RLock()
		handler := t.handlers[notif.Method]
		t.handlersMu.RUnlock()
		if handler != nil {
			handler(notif.Params)
		}
		return
	}

	if probe.ID == nil {
		return
	}
	var resp rpcResponse
	if err := json.Unmarshal(content, &resp); err != nil {
		return
	}
	t.mu.Lock()
	ch := t.pending[resp.ID]
	t.mu.Unlock()
	if ch != nil {
		ch <- &resp
	}
}
