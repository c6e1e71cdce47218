package websocket

import (
	"encoding/json"

	"github.com/isdelr/agora-be/internal/models"
)

// Actions carried by server-sent messages.
const (
	ActionActivity = "activity"
	ActionError    = "error"
	ActionPong     = "pong"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewActivityMessage wraps an activity event.
func NewActivityMessage(event models.Event) Message {
	return Message{Action: ActionActivity, Payload: event}
}

// NewErrorMessage encodes an error notice for a single client.
func NewErrorMessage(text string) []byte {
	b, _ := json.Marshal(Message{Action: ActionError, Payload: map[string]string{"error": text}})
	return b
}
