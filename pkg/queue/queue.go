package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Publisher enqueues messages for registered jobs.
type Publisher interface {
	Enqueue(ctx context.Context, msgType string, payload any) (string, error)
}

// Config contains the configuration for the queue.
type Config struct {
	Workers    int
	RetryLimit int
	RetryDelay time.Duration
	PollEvery  time.Duration // how often due retries are moved back
}

func (c *Config) withDefaults() Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = 10 * time.Second
	}
	if out.PollEvery <= 0 {
		out.PollEvery = 5 * time.Second
	}
	return out
}

// Message is the stored form of one enqueued payload.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

func newMessage(msgType string, payload any) ([]byte, string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("marshal payload: %w", err)
	}
	msg := Message{
		ID:         uuid.NewString(),
		Type:       msgType,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, "", fmt.Errorf("marshal message: %w", err)
	}
	return b, msg.ID, nil
}

// keys are the Redis structures of one queue.
type keys struct {
	pending    string // list, LPUSH in and BLMOVE out
	processing string // list of messages a worker holds
	retry      string // sorted set scored by due time
	dead       string // list
}

func newKeys(prefix string) keys {
	return keys{
		pending:    prefix + ":pending",
		processing: prefix + ":processing",
		retry:      prefix + ":retry",
		dead:       prefix + ":dead",
	}
}
