package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope announces that domain data changed somewhere in the deployment.
type Envelope struct {
	Origin string    `json:"origin"` // node id of the publishing gateway
	Source string    `json:"source"` // free-form label of the writer, e.g. "rooms.update"
	At     time.Time `json:"at"`
}

func (e Envelope) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return string(data), nil
}

func ParseEnvelope(payload string) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if e.Origin == "" {
		return Envelope{}, fmt.Errorf("envelope missing origin")
	}
	return e, nil
}
