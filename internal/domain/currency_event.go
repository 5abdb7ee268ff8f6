package domain

import "context"

const CurrencyCreatedTopic = "currency-created"

type CurrencyCreatedEvent struct {
	CurrencySeriesID int64  `json:"currency_series_id"`
	CurrencyCode     string `json:"currency_code"`
	CorrelationID    string `json:"correlation_id"`
}

type CurrencyEventPublisher interface {
	PublishCurrencyCreated(ctx context.Context, event CurrencyCreatedEvent) error
}
