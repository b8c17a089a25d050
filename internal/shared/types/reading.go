package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMissingID    = errors.New("missing id")
	ErrMissingValue = errors.New("missing value")
	ErrInvalidValue = errors.New("value must be a string or a number")
	ErrLineBreak    = errors.New("value must not contain line breaks")
)

// ReadingMessage is the {id, value} payload carried over HTTP and MQTT.
// Value stays raw so producers may send either a JSON string or a number.
type ReadingMessage struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

// NewReadingMessage builds a message whose value is encoded as a JSON string.
func NewReadingMessage(id, value string) ReadingMessage {
	raw, _ := json.Marshal(value)
	return ReadingMessage{ID: id, Value: raw}
}

// Validate checks presence of both fields. A zero value is present.
func (m ReadingMessage) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}
	if isNull(m.Value) {
		return ErrMissingValue
	}
	return nil
}

// StringValue returns the canonical string form of Value: strings are
// unquoted, numbers keep their literal text.
func (m ReadingMessage) StringValue() (string, error) {
	if isNull(m.Value) {
		return "", ErrMissingValue
	}
	raw := bytes.TrimSpace(m.Value)
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return n.String(), nil
	default:
		return "", fmt.Errorf("%w, got %s", ErrInvalidValue, raw)
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
