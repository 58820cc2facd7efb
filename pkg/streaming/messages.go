// Package streaming defines the envelopes exchanged on the live editor
// websocket.
package streaming

import (
	"encoding/json"
	"fmt"
)

// Message types sent by the server. Requests use the dispatcher command
// name as their type, and a successful reply echoes it.
const (
	TypeHello = "hello"
	TypeError = "error"
)

// Envelope wraps all messages sent over the WebSocket. ID is optional and
// echoed back so clients can match replies to requests.
type Envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// HelloPayload is sent once after the upgrade.
type HelloPayload struct {
	Session  string   `json:"session"`
	Commands []string `json:"commands"`
}

// Reply builds the success envelope for a request.
func Reply(req Envelope, result any) (Envelope, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s result: %w", req.Type, err)
	}
	return Envelope{Type: req.Type, ID: req.ID, Payload: raw}, nil
}

// ErrorReply builds the error envelope for a request.
func ErrorReply(req Envelope, err error) Envelope {
	return Envelope{Type: TypeError, ID: req.ID, Error: err.Error()}
}
