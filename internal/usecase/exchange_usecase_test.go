package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetRates_CachesRepositoryResult(t *testing.T) {
	repo := newMemRateRepo()
	repo.seed("EUR", "2024-01-01", "0.90")
	repo.seed("EUR", "2024-01-02", "0.91")
	repo.seed("EUR", "2024-01-05", "0.92")

	cache := new(mockCache)
	key := "range:EUR:2024-01-01:2024-01-02"
	cache.On("Get", mock.Anything, domain.ExchangeRatesCacheNamespace, key).Return(nil, false).Once()
	cache.On("Set", mock.Anything, domain.ExchangeRatesCacheNamespace, key, mock.Anything, time.Minute).Return(nil).Once()

	uc := NewDefaultExchangeRateQueryUsecase(repo, cache, time.Minute, nil)
	rates, err := uc.GetRates(context.Background(), "eur", date("2024-01-01"), date("2024-01-02"))

	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, date("2024-01-01"), rates[0].Date)
	cache.AssertExpectations(t)
}

func TestGetRates_ServesFromCache(t *testing.T) {
	cached := []*domain.ExchangeRate{{TargetCurrency: "EUR"}}
	cache := new(mockCache)
	cache.On("Get", mock.Anything, domain.ExchangeRatesCacheNamespace, mock.Anything).Return(cached, true).Once()

	uc := NewDefaultExchangeRateQueryUsecase(newMemRateRepo(), cache, time.Minute, nil)
	rates, err := uc.GetRates(context.Background(), "EUR", date("2024-01-01"), date("2024-01-31"))

	require.NoError(t, err)
	assert.Equal(t, cached, rates)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetRates_Validation(t *testing.T) {
	uc := NewDefaultExchangeRateQueryUsecase(newMemRateRepo(), nil, time.Minute, nil)

	_, err := uc.GetRates(context.Background(), "EU", date("2024-01-01"), date("2024-01-02"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.GetRates(context.Background(), "EUR", date("2024-01-02"), date("2024-01-01"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetLatestRate(t *testing.T) {
	repo := newMemRateRepo()
	repo.seed("EUR", "2024-01-01", "0.90")
	repo.seed("EUR", "2024-01-03", "0.93")
	uc := NewDefaultExchangeRateQueryUsecase(repo, nil, time.Minute, nil)

	rate, err := uc.GetLatestRate(context.Background(), "EUR")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.Equal(t, date("2024-01-03"), rate.Date)

	rate, err = uc.GetLatestRate(context.Background(), "GBP")
	require.NoError(t, err)
	assert.Nil(t, rate)
}
