package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// Job handles every message of one type. A returned error schedules a
// retry until the retry limit moves the message to the dead-letter list.
type Job interface {
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Decode unmarshals a job payload into T.
func Decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, fmt.Errorf("decode payload: empty")
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}
