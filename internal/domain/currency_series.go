package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type CurrencySeries struct {
	ID               int64
	CurrencyCode     string
	ProviderSeriesID string
	Enabled          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate checks the invariants of a series before it is persisted.
func (s *CurrencySeries) Validate() error {
	if len(s.CurrencyCode) != 3 || strings.ToUpper(s.CurrencyCode) != s.CurrencyCode {
		return fmt.Errorf("%w: currency code must be 3 upper-case letters, got %q", ErrValidation, s.CurrencyCode)
	}
	if s.CurrencyCode == BaseCurrency {
		return fmt.Errorf("%w: %s is the base currency", ErrValidation, BaseCurrency)
	}
	if strings.TrimSpace(s.ProviderSeriesID) == "" {
		return fmt.Errorf("%w: provider series id is required", ErrValidation)
	}
	if len(s.ProviderSeriesID) > 50 {
		return fmt.Errorf("%w: provider series id must not exceed 50 characters", ErrValidation)
	}
	return nil
}

type CurrencySeriesRepository interface {
	FindEnabled(ctx context.Context) ([]*CurrencySeries, error)
	FindAll(ctx context.Context) ([]*CurrencySeries, error)
	FindByID(ctx context.Context, id int64) (*CurrencySeries, error)
	FindByCurrencyCode(ctx context.Context, code string) (*CurrencySeries, error)
	Create(ctx context.Context, series *CurrencySeries) error
	Update(ctx context.Context, series *CurrencySeries) error
}
