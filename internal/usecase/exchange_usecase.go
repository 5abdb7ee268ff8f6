package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
)

const maxQueryRange = 366 * 10 * 24 * time.Hour

type ExchangeRateQueryUsecase interface {
	GetRates(ctx context.Context, targetCurrency string, from, to time.Time) ([]*domain.ExchangeRate, error)
	GetLatestRate(ctx context.Context, targetCurrency string) (*domain.ExchangeRate, error)
}

type DefaultExchangeRateQueryUsecase struct {
	rateRepo domain.ExchangeRateRepository
	cache    domain.RateCache
	ttl      time.Duration
	logger   *slog.Logger
}

func NewDefaultExchangeRateQueryUsecase(
	rateRepo domain.ExchangeRateRepository,
	cache domain.RateCache,
	ttl time.Duration,
	logger *slog.Logger,
) *DefaultExchangeRateQueryUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultExchangeRateQueryUsecase{
		rateRepo: rateRepo,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}
}

func (uc *DefaultExchangeRateQueryUsecase) GetRates(ctx context.Context, targetCurrency string, from, to time.Time) ([]*domain.ExchangeRate, error) {
	target := strings.ToUpper(strings.TrimSpace(targetCurrency))
	if len(target) != 3 {
		return nil, fmt.Errorf("%w: target currency must be 3 letters", domain.ErrValidation)
	}
	from, to = domain.NormalizeDate(from), domain.NormalizeDate(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end date before start date", domain.ErrValidation)
	}
	if to.Sub(from) > maxQueryRange {
		return nil, fmt.Errorf("%w: date range too large", domain.ErrValidation)
	}

	key := fmt.Sprintf("range:%s:%s:%s", target, from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	if cached, ok := uc.getCached(ctx, key); ok {
		if rates, ok := cached.([]*domain.ExchangeRate); ok {
			return rates, nil
		}
	}

	rates, err := uc.rateRepo.FindRange(ctx, domain.BaseCurrency, target, from, to)
	if err != nil {
		return nil, fmt.Errorf("find rates %s %s..%s: %w", target, from.Format(domain.DateLayout), to.Format(domain.DateLayout), err)
	}

	uc.setCached(ctx, key, rates)
	return rates, nil
}

// GetLatestRate returns nil, nil when no rate is stored for the currency.
func (uc *DefaultExchangeRateQueryUsecase) GetLatestRate(ctx context.Context, targetCurrency string) (*domain.ExchangeRate, error) {
	target := strings.ToUpper(strings.TrimSpace(targetCurrency))
	if len(target) != 3 {
		return nil, fmt.Errorf("%w: target currency must be 3 letters", domain.ErrValidation)
	}

	key := "latest:" + target
	if cached, ok := uc.getCached(ctx, key); ok {
		if rate, ok := cached.(*domain.ExchangeRate); ok {
			return rate, nil
		}
	}

	rate, err := uc.rateRepo.FindLatest(ctx, domain.BaseCurrency, target)
	if err != nil {
		return nil, fmt.Errorf("find latest rate %s: %w", target, err)
	}
	if rate != nil {
		uc.setCached(ctx, key, rate)
	}
	return rate, nil
}

func (uc *DefaultExchangeRateQueryUsecase) getCached(ctx context.Context, key string) (any, bool) {
	if uc.cache == nil {
		return nil, false
	}
	return uc.cache.Get(ctx, domain.ExchangeRatesCacheNamespace, key)
}

func (uc *DefaultExchangeRateQueryUsecase) setCached(ctx context.Context, key string, value any) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Set(ctx, domain.ExchangeRatesCacheNamespace, key, value, uc.ttl); err != nil {
		uc.logger.Warn("failed to cache exchange rates", "key", key, "error", err)
	}
}
