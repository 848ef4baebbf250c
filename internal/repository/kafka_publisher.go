package repository

import (
	"context"
	"strings"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	pkgkafka "StockCast/pkg/kafka"
)

// KafkaPublisher writes one message per forecast record, keyed by symbol.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ repository.ForecastPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher publishes to topic, or to the producer's default topic when empty.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, cycleID string, records []models.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(records))
	for i, r := range records {
		msgs[i] = pkgkafka.Message{
			Key:     []byte(strings.ToUpper(r.Symbol)),
			Value:   r.Document(),
			Headers: map[string]string{"cycle_id": cycleID},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
