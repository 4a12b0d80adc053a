package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/utils"
)

type Publisher interface {
	Publish(ctx context.Context, event models.FormEvent) error
}

// KafkaPublisher keys messages by form id so events for one form stay in
// order on a single partition.
type KafkaPublisher struct {
	producer utils.KafkaProducer
	topic    string
}

func NewKafkaPublisher(producer utils.KafkaProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.FormEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Event, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.producer.SendMessage(ctx, p.topic, []byte(event.FormID), payload)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.FormEvent) error { return nil }
