// Package jsonrpc provides a JSON-RPC 2.0 server implementation for the version of the protocol defined at
// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#baseProtocol.
package jsonrpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/textproto"
	"strconv"
	"sync"
)

// Handler responds to JSON-RPC requests and notifications.
// Init is called exactly once, before any messages are handled, with a [*Client] which can be used to send
// notifications back to the peer.
type Handler interface {
	Init(client *Client)
	HandleRequest(method string, params *json.RawMessage) (any, error)
	HandleNotification(method string, params *json.RawMessage) error
}

// Serve reads JSON-RPC messages from in, passes them to handler, and writes the responses to out.
// It returns nil when in reaches EOF.
func Serve(in io.Reader, out io.Writer, handler Handler) error {
	s := &server{
		in:      textproto.NewReader(bufio.NewReader(in)),
		out:     out,
		handler: handler,
	}
	handler.Init(&Client{server: s})
	return s.serve()
}

type server struct {
	in      *textproto.Reader
	outMu   sync.Mutex
	out     io.Writer
	handler Handler
}

func (s *server) serve() error {
	for {
		msg, err := s.read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				slog.Info("EOF reached, stopping server")
				return nil
			}
			var respErr *responseError
			if errors.As(err, &respErr) {
				resp := &response{JSONRPC: validJSONRPC, ID: nil, Error: respErr}
				if writeErr := s.write(resp); writeErr != nil {
					return fmt.Errorf("serving jsonrpc requests: %v", writeErr)
				}
				continue
			}
			return fmt.Errorf("serving jsonrpc requests: %v", err)
		}

		if err := s.handle(msg); err != nil {
			return fmt.Errorf("serving jsonrpc requests: %v", err)
		}
	}
}

const (
	contentLengthHeader = "Content-Length"
	contentTypeHeader   = "Content-Type"
	validMediaType      = "application/vscode-jsonrpc"
)

// read reads a message according to
// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#baseProtocol
func (s *server) read() (message, error) {
	header, err := s.in.ReadMIMEHeader()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading message: reading header: %w", err)
	}

	lengthValue := header.Get(contentLengthHeader)
	if lengthValue == "" {
		return nil, fmt.Errorf("reading message: missing %s header", contentLengthHeader)
	}
	length, err := strconv.ParseInt(lengthValue, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("reading message: invalid %s header %q: %s", contentLengthHeader, lengthValue, err)
	}

	if typeValue := header.Get(contentTypeHeader); typeValue != "" {
		mediaType, params, err := mime.ParseMediaType(typeValue)
		if err != nil {
			return nil, fmt.Errorf("reading message: invalid %s header %q: %s", contentTypeHeader, typeValue, err)
		}
		if mediaType != validMediaType {
			return nil, fmt.Errorf("reading message: invalid %s header %q: only %s MIME type is supported", contentTypeHeader, typeValue, validMediaType)
		}
		if charset, ok := params["charset"]; ok && charset != "utf-8" && charset != "utf8" {
			return nil, fmt.Errorf("reading message: invalid %s header %q: charset must be utf-8", contentTypeHeader, typeValue)
		}
	}

	content, err := io.ReadAll(io.LimitReader(s.in.R, length))
	if err != nil {
		return nil, fmt.Errorf("reading message: reading content: %w", err)
	}
	if int64(len(content)) < length {
		return nil, fmt.Errorf("reading message: reading content: %w", io.ErrUnexpectedEOF)
	}

	msg, err := unmarshalMessage(content)
	if err != nil {
		return nil, fmt.Errorf("reading message: %w", err)
	}

	return msg, nil
}

func (s *server) write(msg message) error {
	content, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if _, err := fmt.Fprintf(s.out, "%s: %d\r\n\r\n%s", contentLengthHeader, len(content), content); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

func (s *server) handle(msg message) error {
	switch msg := msg.(type) {
	case *request:
		result, err := s.handler.HandleRequest(msg.Method, msg.Params)
		resp := &response{JSONRPC: validJSONRPC, ID: &msg.ID}
		if err != nil {
			var respErr *responseError
			if errors.As(err, &respErr) {
				resp.Error = respErr
			} else {
				resp.Error = newInternalError(err.Error())
			}
		} else {
			resultBytes, err := json.Marshal(result)
			if err != nil {
				resp.Error = newInternalError(fmt.Sprintf("unable to marshal result: %v", err))
			} else {
				rawMsg := json.RawMessage(resultBytes)
				resp.Result = &rawMsg
			}
		}
		if writeErr := s.write(resp); writeErr != nil {
			return fmt.Errorf("handling message: %w", writeErr)
		}

	case *notification:
		if err := s.handler.HandleNotification(msg.Method, msg.Params); err != nil {
			slog.Error("Error handling notification", "method", msg.Method, "error", err.Error())
		}

	case *response:
		// We never send requests to the peer, so any response reaching us is unsolicited.
		if bytes, err := json.Marshal(msg); err == nil {
			slog.Info("Ignoring response message", "message", string(bytes))
		}
	}

	return nil
}
