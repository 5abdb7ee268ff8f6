package mappers

import (
	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/postgres/models"
)

func ToGORMExchangeRate(rate *domain.ExchangeRate) *models.ExchangeRateModel {
	return &models.ExchangeRateModel{
		ID:             rate.ID,
		BaseCurrency:   rate.BaseCurrency,
		TargetCurrency: rate.TargetCurrency,
		Date:           domain.NormalizeDate(rate.Date),
		Rate:           rate.Rate,
		CreatedAt:      rate.CreatedAt,
		UpdatedAt:      rate.UpdatedAt,
	}
}

// ToDomainExchangeRate normalizes the date because drivers return DATE
// columns in the session time zone.
func ToDomainExchangeRate(model *models.ExchangeRateModel) *domain.ExchangeRate {
	return &domain.ExchangeRate{
		ID:             model.ID,
		BaseCurrency:   model.BaseCurrency,
		TargetCurrency: model.TargetCurrency,
		Date:           domain.NormalizeDate(model.Date),
		Rate:           model.Rate,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func ToDomainExchangeRates(rows []*models.ExchangeRateModel) []*domain.ExchangeRate {
	rates := make([]*domain.ExchangeRate, len(rows))
	for i, row := range rows {
		rates[i] = ToDomainExchangeRate(row)
	}
	return rates
}
