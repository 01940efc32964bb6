package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Client sends messages from the server to the client on the other end of the connection.
type Client struct {
	server *server
}

// Notify sends a notification to the client.
func (c *Client) Notify(method string, params any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("sending %q notification: marshalling parameters to JSON: %s", method, err)
	}
	raw := json.RawMessage(data)
	notif := &notification{
		JSONRPC: validJSONRPC,
		Method:  method,
		Params:  &raw,
	}
	if err := c.server.write(notif); err != nil {
		return fmt.Errorf("sending %q notification: %s", method, err)
	}
	return nil
}
