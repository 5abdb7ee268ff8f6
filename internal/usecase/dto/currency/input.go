package currencydto

type CreateCurrencySeriesInput struct {
	CurrencyCode     string `json:"currencyCode" validate:"required,uppercase,len=3"`
	ProviderSeriesID string `json:"providerSeriesId" validate:"required,max=50"`
	Enabled          bool   `json:"enabled"`
}

// Currency code is immutable once created.
type UpdateCurrencySeriesInput struct {
	ProviderSeriesID string `json:"providerSeriesId" validate:"required,max=50"`
	Enabled          bool   `json:"enabled"`
}
