package notify

import (
	"context"
	"fmt"
)

type publisher interface {
	Publish(ctx context.Context, topic, key string, message any) error
}

// KafkaSender hands notifications to a downstream push service over Kafka.
type KafkaSender struct {
	publisher publisher
	topic     string
}

func NewKafkaSender(p publisher, topic string) *KafkaSender {
	return &KafkaSender{publisher: p, topic: topic}
}

func (s *KafkaSender) Send(ctx context.Context, n Notification) error {
	if err := s.publisher.Publish(ctx, s.topic, n.Destination, n); err != nil {
		return fmt.Errorf("Send: %w", err)
	}
	return nil
}
