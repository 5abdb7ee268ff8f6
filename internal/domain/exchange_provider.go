package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ExchangeRateProvider interface {
	// FetchObservations returns date -> rate for the series. A nil start
	// fetches the whole available history; no new data is an empty map.
	FetchObservations(ctx context.Context, seriesID string, start *time.Time) (map[time.Time]decimal.Decimal, error)
	GetName() string
}
