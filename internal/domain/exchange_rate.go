package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency is fixed. The column is kept in storage so the model stays
// explicit about the pair it describes.
const BaseCurrency = "USD"

const DateLayout = "2006-01-02"

type ExchangeRate struct {
	ID             int64
	BaseCurrency   string
	TargetCurrency string
	Date           time.Time
	Rate           decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ExchangeRateRepository interface {
	HasRates(ctx context.Context, base, target string) (bool, error)
	HasAnyRates(ctx context.Context) (bool, error)
	// FindMostRecentRateDate returns nil when nothing is stored for the pair.
	FindMostRecentRateDate(ctx context.Context, base, target string) (*time.Time, error)
	// FindRate returns nil, nil when no row exists for the date.
	FindRate(ctx context.Context, base, target string, date time.Time) (*ExchangeRate, error)
	FindRange(ctx context.Context, base, target string, from, to time.Time) ([]*ExchangeRate, error)
	FindLatest(ctx context.Context, base, target string) (*ExchangeRate, error)
	SaveRate(ctx context.Context, rate *ExchangeRate) error
	SaveAllRates(ctx context.Context, rates []*ExchangeRate) error
	// Transaction runs fn against a repository bound to a single transaction.
	Transaction(ctx context.Context, fn func(repo ExchangeRateRepository) error) error
}

// NormalizeDate drops the time of day and the location so dates can be
// compared and used as map keys.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
