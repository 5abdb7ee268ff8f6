package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-currency-service/internal/app/background"
	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/LavaJover/shvark-currency-service/internal/usecase"
)

// ErrSubscriptionClosed is returned by Start when the subscription ends while
// the consumer is still expected to run.
var ErrSubscriptionClosed = errors.New("currency created subscription closed")

type SeriesRunner interface {
	RunSeries(ctx context.Context, importer background.SeriesImporter, meta domain.RunMeta, seriesID int64) (background.RunOutcome, error)
}

// CurrencyCreatedConsumer imports the history of a newly created currency
// series as soon as its creation event arrives.
type CurrencyCreatedConsumer struct {
	subscriber domain.SubscriberPort
	runner     SeriesRunner
	importer   background.SeriesImporter
	groupID    string
	logger     *slog.Logger
}

func NewCurrencyCreatedConsumer(
	subscriber domain.SubscriberPort,
	runner SeriesRunner,
	importer background.SeriesImporter,
	groupID string,
	logger *slog.Logger,
) *CurrencyCreatedConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CurrencyCreatedConsumer{
		subscriber: subscriber,
		runner:     runner,
		importer:   importer,
		groupID:    groupID,
		logger:     logger.With("topic", domain.CurrencyCreatedTopic, "group", groupID),
	}
}

// Start blocks until ctx is done. A subscription that closes before that is an
// error, so the process stops instead of running without a consumer.
func (c *CurrencyCreatedConsumer) Start(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, domain.CurrencyCreatedTopic, c.groupID)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", domain.CurrencyCreatedTopic, err)
	}
	c.logger.Info("currency created consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("currency created subscription closed unexpectedly")
				return ErrSubscriptionClosed
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *CurrencyCreatedConsumer) handle(ctx context.Context, msg domain.Message) {
	var event domain.CurrencyCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("dropping malformed currency created event", "key", string(msg.Key), "error", err)
		return
	}
	if event.CurrencySeriesID <= 0 {
		c.logger.Error("dropping currency created event without series id", "key", string(msg.Key))
		return
	}
	if event.CorrelationID == "" {
		event.CorrelationID = usecase.NewCorrelationID()
	}

	meta := domain.RunMeta{CorrelationID: event.CorrelationID, Trigger: domain.TriggerEvent}
	logger := c.logger.With(meta.LogArgs()...).With(
		"currency_series_id", event.CurrencySeriesID,
		"currency_code", event.CurrencyCode,
	)

	outcome, err := c.runner.RunSeries(ctx, c.importer, meta, event.CurrencySeriesID)
	if err != nil {
		logger.Error("event triggered import failed", "outcome", outcome, "error", err)
		return
	}
	logger.Info("event triggered import finished", "outcome", outcome)
}
