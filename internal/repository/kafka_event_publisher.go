package repository

import (
	"context"

	"AutoOptimiser/internal/domain/models"
	drepo "AutoOptimiser/internal/domain/repository"
	pkgkafka "AutoOptimiser/pkg/kafka"
)

// KafkaEventPublisher publishes run events keyed by session ID, so the
// events of one session stay ordered on one partition.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ drepo.EventPublisher = (*KafkaEventPublisher)(nil)

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, ev models.RunEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.SessionID), ev)
}

// Close is a no-op; the producer is closed by whoever created it.
func (p *KafkaEventPublisher) Close() error {
	return nil
}
