package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Reconciler classifies freshly fetched observations of one series against
// the rates already stored for it.
type Reconciler struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		logger: logger,
		now:    time.Now,
	}
}

// Reconcile writes inserts and corrections for fetched through repo and
// reports what it did. It never touches caches or metrics.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	repo domain.ExchangeRateRepository,
	meta domain.RunMeta,
	series *domain.CurrencySeries,
	fetched map[time.Time]decimal.Decimal,
) (*domain.ImportResult, error) {
	result := domain.NewImportResult()
	if len(fetched) == 0 {
		return result, nil
	}

	dates, err := r.validate(series, fetched)
	if err != nil {
		return nil, err
	}
	earliest, latest := dates[0], dates[len(dates)-1]
	result.EarliestDate = &earliest
	result.LatestDate = &latest

	target := series.CurrencyCode
	logger := r.logger.With(meta.LogArgs()...).With("currency_code", target, "series_id", series.ProviderSeriesID)

	hasRates, err := repo.HasRates(ctx, domain.BaseCurrency, target)
	if err != nil {
		return nil, fmt.Errorf("%w: check stored rates for %s: %w", domain.ErrReconciliation, target, err)
	}

	if !hasRates {
		rates := make([]*domain.ExchangeRate, 0, len(dates))
		for _, date := range dates {
			rates = append(rates, newRate(target, date, fetched[date]))
		}
		if err := repo.SaveAllRates(ctx, rates); err != nil {
			return nil, fmt.Errorf("%w: initial import for %s: %w", domain.ErrReconciliation, target, err)
		}
		result.NewRecords = len(rates)
		logger.Info("initial exchange rate import", "records", len(rates))
		return result, nil
	}

	inserts := make([]*domain.ExchangeRate, 0)
	for _, date := range dates {
		rate := fetched[date]

		existing, err := repo.FindRate(ctx, domain.BaseCurrency, target, date)
		if err != nil {
			return nil, fmt.Errorf("%w: find rate %s on %s: %w", domain.ErrReconciliation, target, date.Format(domain.DateLayout), err)
		}

		switch {
		case existing == nil:
			inserts = append(inserts, newRate(target, date, rate))
		case existing.Rate.Equal(rate):
			result.SkippedRecords++
		default:
			logger.Warn("exchange rate corrected by provider",
				"date", date.Format(domain.DateLayout),
				"old_rate", existing.Rate.String(),
				"new_rate", rate.String(),
			)
			existing.Rate = rate
			if err := repo.SaveRate(ctx, existing); err != nil {
				return nil, fmt.Errorf("%w: update rate %s on %s: %w", domain.ErrReconciliation, target, date.Format(domain.DateLayout), err)
			}
			result.UpdatedRecords++
		}
	}

	if len(inserts) > 0 {
		if err := repo.SaveAllRates(ctx, inserts); err != nil {
			return nil, fmt.Errorf("%w: insert rates for %s: %w", domain.ErrReconciliation, target, err)
		}
	}
	result.NewRecords = len(inserts)

	return result, nil
}

// validate enforces rate > 0 and no future dates, and returns the fetched
// dates in ascending order.
func (r *Reconciler) validate(series *domain.CurrencySeries, fetched map[time.Time]decimal.Decimal) ([]time.Time, error) {
	today := domain.NormalizeDate(r.now())

	dates := make([]time.Time, 0, len(fetched))
	for date, rate := range fetched {
		if !rate.IsPositive() {
			return nil, fmt.Errorf("%w: non-positive rate %s for %s on %s",
				domain.ErrReconciliation, rate.String(), series.CurrencyCode, date.Format(domain.DateLayout))
		}
		if domain.NormalizeDate(date).After(today) {
			return nil, fmt.Errorf("%w: future date %s for %s",
				domain.ErrReconciliation, date.Format(domain.DateLayout), series.CurrencyCode)
		}
		dates = append(dates, date)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func newRate(target string, date time.Time, rate decimal.Decimal) *domain.ExchangeRate {
	return &domain.ExchangeRate{
		BaseCurrency:   domain.BaseCurrency,
		TargetCurrency: target,
		Date:           domain.NormalizeDate(date),
		Rate:           rate,
	}
}
