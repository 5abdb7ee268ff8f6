// internal/infrastructure/exchange_providers/fred_provider.go
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	DefaultFredBaseURL = "https://api.stlouisfed.org"
	observationsPath   = "/fred/series/observations"

	// FRED marks days without an observation (holidays) with a dot.
	fredMissingValue = "."
)

type FredProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

type FredObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type FredResponse struct {
	ObservationStart string            `json:"observation_start"`
	ObservationEnd   string            `json:"observation_end"`
	Count            int               `json:"count"`
	Observations     []FredObservation `json:"observations"`
}

type fredErrorResponse struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func NewFredProvider(baseURL, apiKey string, timeout time.Duration) *FredProvider {
	if baseURL == "" {
		baseURL = DefaultFredBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FredProvider{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (p *FredProvider) GetName() string {
	return "fred"
}

func (p *FredProvider) FetchObservations(ctx context.Context, seriesID string, start *time.Time) (map[time.Time]decimal.Decimal, error) {
	reqURL, err := p.observationsURL(seriesID, start)
	if err != nil {
		return nil, fmt.Errorf("%w: build request url for %s: %v", domain.ErrProviderRejected, seriesID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request for %s: %v", domain.ErrProviderRejected, seriesID, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: series %s: %w", domain.ErrProviderUnavailable, seriesID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response for %s: %w", domain.ErrProviderUnavailable, seriesID, err)
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return nil, fmt.Errorf("series %s: %w", seriesID, err)
	}

	var fredResponse FredResponse
	if err := json.Unmarshal(body, &fredResponse); err != nil {
		return nil, fmt.Errorf("%w: series %s: %v", domain.ErrProviderMalformedResponse, seriesID, err)
	}

	return parseObservations(seriesID, fredResponse.Observations)
}

func (p *FredProvider) observationsURL(seriesID string, start *time.Time) (string, error) {
	u, err := url.Parse(p.baseURL + observationsPath)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("series_id", seriesID)
	q.Set("api_key", p.apiKey)
	q.Set("file_type", "json")
	if start != nil {
		q.Set("observation_start", start.Format(domain.DateLayout))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// classifyStatus maps the HTTP status into the provider error taxonomy.
func classifyStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	msg := http.StatusText(status)
	var fredErr fredErrorResponse
	if err := json.Unmarshal(body, &fredErr); err == nil && fredErr.ErrorMessage != "" {
		msg = fredErr.ErrorMessage
	}

	switch {
	case status >= 500, status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return fmt.Errorf("%w: status %d: %s", domain.ErrProviderUnavailable, status, msg)
	case status >= 400:
		return fmt.Errorf("%w: status %d: %s", domain.ErrProviderRejected, status, msg)
	default:
		return fmt.Errorf("%w: unexpected status %d", domain.ErrProviderMalformedResponse, status)
	}
}

func parseObservations(seriesID string, observations []FredObservation) (map[time.Time]decimal.Decimal, error) {
	rates := make(map[time.Time]decimal.Decimal, len(observations))
	for _, o := range observations {
		if o.Value == fredMissingValue || o.Value == "" {
			continue
		}
		date, err := domain.ParseDate(o.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: series %s: bad date %q", domain.ErrProviderMalformedResponse, seriesID, o.Date)
		}
		rate, err := decimal.NewFromString(o.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: series %s: bad value %q on %s", domain.ErrProviderMalformedResponse, seriesID, o.Value, o.Date)
		}
		rates[date] = rate
	}
	return rates, nil
}
