package kafka

import (
	"errors"
	"time"
)

// Delivery controls acknowledgement and retry of one write.
type Delivery struct {
	Acks     int // -1 waits for all in-sync replicas
	Attempts int
	Timeout  time.Duration
}

// Batch controls how writes are grouped.
type Batch struct {
	Size   int
	Linger time.Duration
}

// ProducerConfig holds producer settings. Messages sharing a key always
// land on one partition.
type ProducerConfig struct {
	Brokers     []string
	Delivery    Delivery
	Batch       Batch
	Compression string
	Async       bool
	Headers     map[string]string
}

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

func defaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Delivery:    Delivery{Acks: 1, Attempts: 3, Timeout: 10 * time.Second},
		Batch:       Batch{Size: 50, Linger: 200 * time.Millisecond},
		Compression: "snappy",
	}
}

func (c ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka: brokers are required")
	}
	if c.Delivery.Acks < -1 || c.Delivery.Acks > 1 {
		return errors.New("kafka: acks must be -1, 0 or 1")
	}
	return nil
}

func WithBrokers(brokers ...string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
	}
}

// WithDelivery sets acknowledgements, writer retries and the write timeout.
func WithDelivery(acks, attempts int, timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.Delivery = Delivery{Acks: acks, Attempts: attempts, Timeout: timeout}
	}
}

// WithBatching sets how many messages are grouped and how long a partial
// batch waits.
func WithBatching(size int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.Batch = Batch{Size: size, Linger: linger}
	}
}

// WithCompression accepts none, gzip, snappy, lz4 or zstd.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Compression = codec
	}
}

// WithAsync makes Publish return before the broker acknowledges.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.Async = async
	}
}

// WithHeader adds a header to every message.
func WithHeader(key, value string) ProducerOption {
	return func(c *ProducerConfig) {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		c.Headers[key] = value
	}
}
