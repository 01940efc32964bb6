package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const validJSONRPC = "2.0"

type message interface {
	isMessage()
}

// request is a request message to describe a request between the client and the server. Every processed request must
// send a response back to the sender of the request.
//
// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#requestMessage
type request struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      ID               `json:"id"`               // The request id.
	Method  string           `json:"method"`           // The method to be invoked.
	Params  *json.RawMessage `json:"params,omitempty"` // The method's params.
}

func (r *request) isMessage() {}

// notification is a notification message. A processed notification message must not send a response back. They
// work like events.
//
// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#notificationMessage
type notification struct {
	JSONRPC string           `json:"jsonrpc"`
	Method  string           `json:"method"`           // The method to be invoked.
	Params  *json.RawMessage `json:"params,omitempty"` // The notification's params.
}

func (n *notification) isMessage() {}

// response is a response message sent as a result of a request. If a request doesn't provide a result value the
// receiver of a request still needs to return a response message to conform to the JSON-RPC specification. The result
// property of the response should be set to null in this case to signal a successful request.
//
// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#responseMessage
type response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *ID    `json:"id"` // The request id.
	// The result of a request. This member is REQUIRED on success.
	// This member MUST NOT exist if there was an error invoking the method.
	Result *json.RawMessage `json:"result,omitempty"`
	Error  *responseError   `json:"error,omitempty"` // The error object in case a request fails.
}

func (r *response) isMessage() {}

// responseError is an error object in case a request fails.
//
// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#responseError
type responseError struct {
	Code    ErrorCode `json:"code"`    // A number indicating the error type that occurred.
	Message string    `json:"message"` // A string providing a short description of the error.
	// A primitive or structured value that contains additional information about the error. Can be omitted.
	Data any `json:"data,omitempty"`
}

func (e *responseError) Error() string {
	return fmt.Sprintf("jsonrpc error: code = %d message = %q data = %v", e.Code, e.Message, e.Data)
}

// envelope captures the union of all message shapes. Raw fields are nil when absent, so presence and null can be
// told apart ([json.RawMessage] stores the literal "null").
type envelope struct {
	JSONRPC json.RawMessage `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  json.RawMessage `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

var jsonNull = []byte("null")

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(raw, jsonNull)
}

func unmarshalMessage(content []byte) (message, error) {
	var env envelope
	if err := json.Unmarshal(content, &env); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, newParseError(err.Error())
		}
		return nil, NewInvalidRequestError(err.Error())
	}

	if env.JSONRPC == nil {
		return nil, NewInvalidRequestError("jsonrpc is required")
	}
	var jsonrpcValue string
	if err := json.Unmarshal(env.JSONRPC, &jsonrpcValue); err != nil || jsonrpcValue != validJSONRPC {
		return nil, NewInvalidRequestError(fmt.Sprintf("invalid jsonrpc value %s, must be %q", env.JSONRPC, validJSONRPC))
	}

	// We read requests (including notifications) and responses from the same stream. If we can't determine which one it
	// is, we assume it's a request as this is more likely.
	if env.ID != nil && (env.Result != nil || env.Error != nil) && env.Method == nil && env.Params == nil {
		return unmarshalResponse(&env)
	}

	// Message is a request or notification
	if env.Method == nil {
		return nil, NewInvalidRequestError("method is required")
	}
	var method string
	if err := json.Unmarshal(env.Method, &method); err != nil {
		return nil, NewInvalidRequestError(fmt.Sprintf("invalid method value %s: %s", env.Method, err))
	}
	if env.Result != nil {
		return nil, NewInvalidRequestError("result is not a valid request field")
	}
	if env.Error != nil {
		return nil, NewInvalidRequestError("error is not a valid request field")
	}
	var params *json.RawMessage
	if env.Params != nil {
		params = &env.Params
	}
	if env.ID == nil {
		return &notification{JSONRPC: jsonrpcValue, Method: method, Params: params}, nil
	}
	if isNull(env.ID) {
		return nil, NewInvalidRequestError("id cannot be null")
	}
	var id ID
	if err := json.Unmarshal(env.ID, &id); err != nil {
		return nil, NewInvalidRequestError(fmt.Sprintf("invalid id value %s: %s", env.ID, err))
	}
	return &request{JSONRPC: jsonrpcValue, ID: id, Method: method, Params: params}, nil
}

func unmarshalResponse(env *envelope) (message, error) {
	resp := &response{JSONRPC: validJSONRPC}
	if !isNull(env.ID) {
		var id ID
		if err := json.Unmarshal(env.ID, &id); err != nil {
			return nil, NewInvalidRequestError(fmt.Sprintf("invalid id value %s: %s", env.ID, err))
		}
		resp.ID = &id
	}
	if env.Result != nil && env.Error != nil {
		return nil, errors.New("unmarshalling response: result and error are mutually exclusive")
	}
	if env.Result != nil {
		resp.Result = &env.Result
	} else {
		if err := json.Unmarshal(env.Error, &resp.Error); err != nil {
			return nil, fmt.Errorf("unmarshalling response: invalid error value %s: %s", env.Error, err)
		}
	}
	return resp, nil
}

// ID is a request identifier, which the protocol allows to be either an integer or a string.
type ID struct {
	num   int64
	str   string
	isStr bool
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		id.isStr = true
		return json.Unmarshal(data, &id.str)
	}
	var num float64
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	// JSON has no integer type, but the protocol requires ids to be whole numbers.
	if math.Trunc(num) != num {
		return fmt.Errorf("invalid id %s: must be an integer or a string", data)
	}
	id.num = int64(num)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.isStr {
		return json.Marshal(id.str)
	}
	return json.Marshal(id.num)
}

func (id ID) String() string {
	if id.isStr {
		return id.str
	}
	return fmt.Sprint(id.num)
}
