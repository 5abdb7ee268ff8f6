package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
)

type ImportUsecase interface {
	ImportLatest(ctx context.Context, meta domain.RunMeta) (*domain.ImportResult, error)
	ImportSeries(ctx context.Context, meta domain.RunMeta, seriesID int64) (*domain.ImportResult, error)
	HasExchangeRateData(ctx context.Context) (bool, error)
}

type DefaultImportUsecase struct {
	seriesRepo domain.CurrencySeriesRepository
	rateRepo   domain.ExchangeRateRepository
	provider   domain.ExchangeRateProvider
	reconciler *Reconciler
	cache      domain.RateCache
	metrics    domain.ImportMetrics
	logger     *slog.Logger
}

func NewDefaultImportUsecase(
	seriesRepo domain.CurrencySeriesRepository,
	rateRepo domain.ExchangeRateRepository,
	provider domain.ExchangeRateProvider,
	reconciler *Reconciler,
	cache domain.RateCache,
	metrics domain.ImportMetrics,
	logger *slog.Logger,
) *DefaultImportUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	if reconciler == nil {
		reconciler = NewReconciler(logger)
	}
	return &DefaultImportUsecase{
		seriesRepo: seriesRepo,
		rateRepo:   rateRepo,
		provider:   provider,
		reconciler: reconciler,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
	}
}

// ImportLatest imports new observations for every enabled series. Any
// series failure aborts the whole run; the caller owns the retry decision.
func (uc *DefaultImportUsecase) ImportLatest(ctx context.Context, meta domain.RunMeta) (*domain.ImportResult, error) {
	logger := uc.logger.With(meta.LogArgs()...)

	seriesList, err := uc.seriesRepo.FindEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("load enabled currency series: %w", err)
	}

	total := domain.NewImportResult()
	if len(seriesList) == 0 {
		logger.Warn("no enabled currency series, nothing to import")
		return total, nil
	}

	logger.Info("starting exchange rate import", "series_count", len(seriesList))

	for _, series := range seriesList {
		result, err := uc.importOne(ctx, logger, meta, series)
		if err != nil {
			return nil, err
		}
		total.Merge(result)
	}

	uc.afterImport(ctx, logger, total)
	return total, nil
}

// ImportSeries imports a single series, used when a new series is registered.
func (uc *DefaultImportUsecase) ImportSeries(ctx context.Context, meta domain.RunMeta, seriesID int64) (*domain.ImportResult, error) {
	logger := uc.logger.With(meta.LogArgs()...)

	series, err := uc.seriesRepo.FindByID(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("load currency series %d: %w", seriesID, err)
	}
	if !series.Enabled {
		logger.Warn("currency series disabled, skipping import", "currency_code", series.CurrencyCode)
		return domain.NewImportResult(), nil
	}

	result, err := uc.importOne(ctx, logger, meta, series)
	if err != nil {
		return nil, err
	}

	uc.afterImport(ctx, logger, result)
	return result, nil
}

func (uc *DefaultImportUsecase) HasExchangeRateData(ctx context.Context) (bool, error) {
	return uc.rateRepo.HasAnyRates(ctx)
}

func (uc *DefaultImportUsecase) importOne(ctx context.Context, logger *slog.Logger, meta domain.RunMeta, series *domain.CurrencySeries) (*domain.ImportResult, error) {
	logger = logger.With("currency_code", series.CurrencyCode, "series_id", series.ProviderSeriesID)

	start, err := uc.determineStartDate(ctx, series)
	if err != nil {
		return nil, err
	}
	if start == nil {
		logger.Info("no stored exchange rates, importing full history")
	} else {
		logger.Info("importing exchange rates", "start_date", start.Format(domain.DateLayout))
	}

	fetched, err := uc.provider.FetchObservations(ctx, series.ProviderSeriesID, start)
	if err != nil {
		return nil, fmt.Errorf("fetch %s from %s: %w", series.ProviderSeriesID, uc.provider.GetName(), err)
	}
	if len(fetched) == 0 {
		logger.Info("provider has no new observations")
		return domain.NewImportResult(), nil
	}

	var result *domain.ImportResult
	err = uc.rateRepo.Transaction(ctx, func(repo domain.ExchangeRateRepository) error {
		var txErr error
		result, txErr = uc.reconciler.Reconcile(ctx, repo, meta, series, fetched)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", series.CurrencyCode, err)
	}

	logger.Info("currency series imported",
		"new", result.NewRecords,
		"updated", result.UpdatedRecords,
		"skipped", result.SkippedRecords,
	)
	return result, nil
}

// determineStartDate returns the day after the most recent stored rate, or
// nil when nothing is stored yet.
func (uc *DefaultImportUsecase) determineStartDate(ctx context.Context, series *domain.CurrencySeries) (*time.Time, error) {
	last, err := uc.rateRepo.FindMostRecentRateDate(ctx, domain.BaseCurrency, series.CurrencyCode)
	if err != nil {
		return nil, fmt.Errorf("find most recent rate date for %s: %w", series.CurrencyCode, err)
	}
	if last == nil {
		return nil, nil
	}
	next := domain.NormalizeDate(*last).AddDate(0, 0, 1)
	return &next, nil
}

func (uc *DefaultImportUsecase) afterImport(ctx context.Context, logger *slog.Logger, result *domain.ImportResult) {
	if uc.cache != nil {
		if err := uc.cache.EvictAll(ctx, domain.ExchangeRatesCacheNamespace); err != nil {
			logger.Warn("failed to evict exchange rate cache", "error", err)
		}
	}
	if uc.metrics != nil {
		uc.metrics.RecordRecords(result)
	}

	args := []any{
		"new", result.NewRecords,
		"updated", result.UpdatedRecords,
		"skipped", result.SkippedRecords,
	}
	if result.EarliestDate != nil {
		args = append(args, "earliest", result.EarliestDate.Format(domain.DateLayout))
	}
	if result.LatestDate != nil {
		args = append(args, "latest", result.LatestDate.Format(domain.DateLayout))
	}
	logger.Info("exchange rate import completed", args...)
}
