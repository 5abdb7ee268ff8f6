package mappers

import (
	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/postgres/models"
)

func ToGORMCurrencySeries(series *domain.CurrencySeries) *models.CurrencySeriesModel {
	return &models.CurrencySeriesModel{
		ID:               series.ID,
		CurrencyCode:     series.CurrencyCode,
		ProviderSeriesID: series.ProviderSeriesID,
		Enabled:          series.Enabled,
		CreatedAt:        series.CreatedAt,
		UpdatedAt:        series.UpdatedAt,
	}
}

func ToDomainCurrencySeries(model *models.CurrencySeriesModel) *domain.CurrencySeries {
	return &domain.CurrencySeries{
		ID:               model.ID,
		CurrencyCode:     model.CurrencyCode,
		ProviderSeriesID: model.ProviderSeriesID,
		Enabled:          model.Enabled,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}
