package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

const publishTimeout = 10 * time.Second

type DefaultKafkaPublisher struct {
	writer *kafka.Writer
}

func NewDefaultKafkaPublisher(cfg KafkaConfig) (*DefaultKafkaPublisher, error) {
	transport, err := cfg.transport()
	if err != nil {
		return nil, err
	}
	return &DefaultKafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			Transport:              transport,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (k *DefaultKafkaPublisher) Publish(ctx context.Context, topic string, msgs ...domain.Message) error {
	km := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		km = append(km, kafka.Message{
			Key:   m.Key,
			Value: m.Value,
			Time:  time.Now(),
			Topic: topic,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, km...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(km), topic, err)
	}
	return nil
}

func (k *DefaultKafkaPublisher) PublishCurrencyCreated(ctx context.Context, event domain.CurrencyCreatedEvent) error {
	msg, err := EncodeCurrencyCreated(event)
	if err != nil {
		return err
	}
	return k.Publish(ctx, domain.CurrencyCreatedTopic, msg)
}

func (k *DefaultKafkaPublisher) Close() error {
	return k.writer.Close()
}

// EncodeCurrencyCreated keys the message by currency code so events for
// one currency stay ordered within a partition.
func EncodeCurrencyCreated(event domain.CurrencyCreatedEvent) (domain.Message, error) {
	v, err := json.Marshal(event)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal currency created event: %w", err)
	}
	return domain.Message{Key: []byte(event.CurrencyCode), Value: v}, nil
}
