package messaging

import (
	"encoding/json"
	"fmt"
)

// Encode turns a message into the bytes put on the wire.
func Encode(message interface{}) ([]byte, error) {
	switch m := message.(type) {
	case []byte:
		return m, nil
	case json.RawMessage:
		return m, nil
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return payload, nil
}
