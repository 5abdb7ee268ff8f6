package currencydto

import "github.com/LavaJover/shvark-currency-service/internal/domain"

type CurrencySeriesOutput struct {
	ID               int64  `json:"id"`
	CurrencyCode     string `json:"currencyCode"`
	ProviderSeriesID string `json:"providerSeriesId"`
	Enabled          bool   `json:"enabled"`
}

func FromDomain(series *domain.CurrencySeries) *CurrencySeriesOutput {
	return &CurrencySeriesOutput{
		ID:               series.ID,
		CurrencyCode:     series.CurrencyCode,
		ProviderSeriesID: series.ProviderSeriesID,
		Enabled:          series.Enabled,
	}
}
