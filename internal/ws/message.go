package ws

import "encoding/json"

// Event kinds exchanged over live connections.
const (
	// MessageConnected is the unicast handshake acknowledgement sent to a
	// connection right after registration.
	MessageConnected = "connected"
	// MessageNewVote carries a full vote record to every live viewer.
	MessageNewVote = "new_vote"
)

// Message is the envelope exchanged over live connections: a named event
// kind plus an opaque payload.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Envelope marshals an event kind and payload into wire form.
func Envelope(kind string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: kind, Data: raw})
}
