package domain

import "errors"

var (
	// Network failures, timeouts and 5xx answers. Retryable.
	ErrProviderUnavailable = errors.New("exchange rate provider unavailable")
	// 4xx answers: unknown series, bad api key.
	ErrProviderRejected          = errors.New("exchange rate provider rejected request")
	ErrProviderMalformedResponse = errors.New("exchange rate provider returned malformed response")

	ErrReconciliation = errors.New("exchange rate reconciliation failed")

	ErrCurrencySeriesNotFound = errors.New("currency series not found")
	ErrCurrencySeriesExists   = errors.New("currency series already exists")
	ErrValidation             = errors.New("validation error")
)

// IsPermanent reports whether retrying the same run cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrProviderRejected)
}
