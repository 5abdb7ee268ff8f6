package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	currencydto "github.com/LavaJover/shvark-currency-service/internal/usecase/dto/currency"
)

type CurrencySeriesUsecase interface {
	Create(ctx context.Context, input *currencydto.CreateCurrencySeriesInput, correlationID string) (*currencydto.CurrencySeriesOutput, error)
	Update(ctx context.Context, id int64, input *currencydto.UpdateCurrencySeriesInput) (*currencydto.CurrencySeriesOutput, error)
	GetByID(ctx context.Context, id int64) (*currencydto.CurrencySeriesOutput, error)
	List(ctx context.Context, enabledOnly bool) ([]*currencydto.CurrencySeriesOutput, error)
}

type DefaultCurrencySeriesUsecase struct {
	seriesRepo domain.CurrencySeriesRepository
	publisher  domain.CurrencyEventPublisher
	logger     *slog.Logger
}

func NewDefaultCurrencySeriesUsecase(
	seriesRepo domain.CurrencySeriesRepository,
	publisher domain.CurrencyEventPublisher,
	logger *slog.Logger,
) *DefaultCurrencySeriesUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultCurrencySeriesUsecase{
		seriesRepo: seriesRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Create registers a series and announces it so its history gets imported
// without waiting for the next daily run.
func (uc *DefaultCurrencySeriesUsecase) Create(ctx context.Context, input *currencydto.CreateCurrencySeriesInput, correlationID string) (*currencydto.CurrencySeriesOutput, error) {
	series := &domain.CurrencySeries{
		CurrencyCode:     strings.ToUpper(strings.TrimSpace(input.CurrencyCode)),
		ProviderSeriesID: strings.TrimSpace(input.ProviderSeriesID),
		Enabled:          input.Enabled,
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	existing, err := uc.seriesRepo.FindByCurrencyCode(ctx, series.CurrencyCode)
	if err != nil && !errors.Is(err, domain.ErrCurrencySeriesNotFound) {
		return nil, fmt.Errorf("check currency series %s: %w", series.CurrencyCode, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCurrencySeriesExists, series.CurrencyCode)
	}

	if err := uc.seriesRepo.Create(ctx, series); err != nil {
		return nil, fmt.Errorf("create currency series %s: %w", series.CurrencyCode, err)
	}

	uc.logger.Info("currency series created",
		"id", series.ID,
		"currency_code", series.CurrencyCode,
		"series_id", series.ProviderSeriesID,
		"correlation_id", correlationID,
	)

	if uc.publisher != nil {
		event := domain.CurrencyCreatedEvent{
			CurrencySeriesID: series.ID,
			CurrencyCode:     series.CurrencyCode,
			CorrelationID:    correlationID,
		}
		// The series is already stored; the daily import still picks it up
		// if the event is lost.
		if err := uc.publisher.PublishCurrencyCreated(ctx, event); err != nil {
			uc.logger.Error("failed to publish currency created event",
				"currency_code", series.CurrencyCode,
				"correlation_id", correlationID,
				"error", err,
			)
		}
	}

	return currencydto.FromDomain(series), nil
}

func (uc *DefaultCurrencySeriesUsecase) Update(ctx context.Context, id int64, input *currencydto.UpdateCurrencySeriesInput) (*currencydto.CurrencySeriesOutput, error) {
	series, err := uc.seriesRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	series.ProviderSeriesID = strings.TrimSpace(input.ProviderSeriesID)
	series.Enabled = input.Enabled
	if err := series.Validate(); err != nil {
		return nil, err
	}

	if err := uc.seriesRepo.Update(ctx, series); err != nil {
		return nil, fmt.Errorf("update currency series %d: %w", id, err)
	}

	uc.logger.Info("currency series updated",
		"id", series.ID,
		"currency_code", series.CurrencyCode,
		"enabled", series.Enabled,
	)
	return currencydto.FromDomain(series), nil
}

func (uc *DefaultCurrencySeriesUsecase) GetByID(ctx context.Context, id int64) (*currencydto.CurrencySeriesOutput, error) {
	series, err := uc.seriesRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return currencydto.FromDomain(series), nil
}

func (uc *DefaultCurrencySeriesUsecase) List(ctx context.Context, enabledOnly bool) ([]*currencydto.CurrencySeriesOutput, error) {
	var (
		seriesList []*domain.CurrencySeries
		err        error
	)
	if enabledOnly {
		seriesList, err = uc.seriesRepo.FindEnabled(ctx)
	} else {
		seriesList, err = uc.seriesRepo.FindAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list currency series: %w", err)
	}

	outputs := make([]*currencydto.CurrencySeriesOutput, len(seriesList))
	for i, series := range seriesList {
		outputs[i] = currencydto.FromDomain(series)
	}
	return outputs, nil
}
