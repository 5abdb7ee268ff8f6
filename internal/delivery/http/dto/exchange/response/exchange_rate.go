package response

import "github.com/LavaJover/shvark-currency-service/internal/domain"

type ExchangeRateResponse struct {
	BaseCurrency   string `json:"baseCurrency"`
	TargetCurrency string `json:"targetCurrency"`
	Date           string `json:"date"`
	Rate           string `json:"rate"`
}

type ExchangeRatesResponse struct {
	BaseCurrency   string                  `json:"baseCurrency"`
	TargetCurrency string                  `json:"targetCurrency"`
	StartDate      string                  `json:"startDate"`
	EndDate        string                  `json:"endDate"`
	Rates          []*ExchangeRateResponse `json:"rates"`
}

// Rate is rendered as a decimal string, never a float.
func FromExchangeRate(rate *domain.ExchangeRate) *ExchangeRateResponse {
	return &ExchangeRateResponse{
		BaseCurrency:   rate.BaseCurrency,
		TargetCurrency: rate.TargetCurrency,
		Date:           rate.Date.Format(domain.DateLayout),
		Rate:           rate.Rate.String(),
	}
}

func FromExchangeRates(rates []*domain.ExchangeRate) []*ExchangeRateResponse {
	out := make([]*ExchangeRateResponse, len(rates))
	for i, rate := range rates {
		out[i] = FromExchangeRate(rate)
	}
	return out
}
