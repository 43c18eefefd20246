package ws

import (
	"encoding/json"
	"time"
)

// Envelope is the frame every realtime event is delivered in.
type Envelope struct {
	Type   string          `json:"type"`
	Room   string          `json:"room"`
	Data   json.RawMessage `json:"data,omitempty"`
	SentAt time.Time       `json:"sentAt"`
}

func Encode(room, event string, payload any, sentAt time.Time) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: event, Room: room, Data: data, SentAt: sentAt.UTC()})
}

func Decode(message []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(message, &env)
	return env, err
}

type clientMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

type controlMessage struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Message string `json:"message,omitempty"`
}
