package publisher

import (
	"context"
	"errors"
	"log/slog"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

type DefaultKafkaSubscriber struct {
	cfg    KafkaConfig
	logger *slog.Logger
}

func NewDefaultKafkaSubscriber(cfg KafkaConfig, logger *slog.Logger) *DefaultKafkaSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultKafkaSubscriber{cfg: cfg, logger: logger}
}

// Subscribe reads topic as part of groupID until ctx is cancelled or the
// reader fails; the returned channel is closed in both cases.
func (k *DefaultKafkaSubscriber) Subscribe(ctx context.Context, topic, groupID string) (<-chan domain.Message, error) {
	dialer, err := k.cfg.dialer()
	if err != nil {
		return nil, err
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.cfg.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		Dialer:      dialer,
		StartOffset: kafka.FirstOffset,
	})

	out := make(chan domain.Message)
	go func() {
		defer close(out)
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					k.logger.Error("kafka reader stopped", "topic", topic, "group", groupID, "error", err)
				}
				return
			}
			select {
			case out <- domain.Message{Key: m.Key, Value: m.Value}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
