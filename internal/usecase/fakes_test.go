package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type memRateRepo struct {
	mu           sync.Mutex
	rates        map[string]*domain.ExchangeRate
	nextID       int64
	findRateCall int
	saveAllCalls int
	saveErr      error
}

func newMemRateRepo() *memRateRepo {
	return &memRateRepo{rates: make(map[string]*domain.ExchangeRate)}
}

func rateKey(base, target string, date time.Time) string {
	return base + "/" + target + "/" + domain.NormalizeDate(date).Format(domain.DateLayout)
}

func (r *memRateRepo) seed(target, date, rate string) {
	d, _ := domain.ParseDate(date)
	r.nextID++
	r.rates[rateKey(domain.BaseCurrency, target, d)] = &domain.ExchangeRate{
		ID:             r.nextID,
		BaseCurrency:   domain.BaseCurrency,
		TargetCurrency: target,
		Date:           d,
		Rate:           decimal.RequireFromString(rate),
	}
}

func (r *memRateRepo) get(target, date string) *domain.ExchangeRate {
	d, _ := domain.ParseDate(date)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rates[rateKey(domain.BaseCurrency, target, d)]
}

func (r *memRateRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rates)
}

func (r *memRateRepo) HasRates(ctx context.Context, base, target string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rate := range r.rates {
		if rate.BaseCurrency == base && rate.TargetCurrency == target {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRateRepo) HasAnyRates(ctx context.Context) (bool, error) {
	return r.count() > 0, nil
}

func (r *memRateRepo) FindMostRecentRateDate(ctx context.Context, base, target string) (*time.Time, error) {
	latest, _ := r.FindLatest(ctx, base, target)
	if latest == nil {
		return nil, nil
	}
	d := latest.Date
	return &d, nil
}

func (r *memRateRepo) FindRate(ctx context.Context, base, target string, date time.Time) (*domain.ExchangeRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findRateCall++
	rate, ok := r.rates[rateKey(base, target, date)]
	if !ok {
		return nil, nil
	}
	copied := *rate
	return &copied, nil
}

func (r *memRateRepo) FindRange(ctx context.Context, base, target string, from, to time.Time) ([]*domain.ExchangeRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ExchangeRate, 0)
	for _, rate := range r.rates {
		if rate.BaseCurrency == base && rate.TargetCurrency == target &&
			!rate.Date.Before(from) && !rate.Date.After(to) {
			out = append(out, rate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *memRateRepo) FindLatest(ctx context.Context, base, target string) (*domain.ExchangeRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.ExchangeRate
	for _, rate := range r.rates {
		if rate.BaseCurrency == base && rate.TargetCurrency == target &&
			(latest == nil || rate.Date.After(latest.Date)) {
			latest = rate
		}
	}
	return latest, nil
}

func (r *memRateRepo) SaveRate(ctx context.Context, rate *domain.ExchangeRate) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rate.ID == 0 {
		r.nextID++
		rate.ID = r.nextID
	}
	copied := *rate
	r.rates[rateKey(rate.BaseCurrency, rate.TargetCurrency, rate.Date)] = &copied
	return nil
}

func (r *memRateRepo) SaveAllRates(ctx context.Context, rates []*domain.ExchangeRate) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	r.saveAllCalls++
	r.mu.Unlock()
	for _, rate := range rates {
		if err := r.SaveRate(ctx, rate); err != nil {
			return err
		}
	}
	return nil
}

// Transaction snapshots the store and restores it when fn fails.
func (r *memRateRepo) Transaction(ctx context.Context, fn func(repo domain.ExchangeRateRepository) error) error {
	r.mu.Lock()
	snapshot := make(map[string]*domain.ExchangeRate, len(r.rates))
	for k, v := range r.rates {
		copied := *v
		snapshot[k] = &copied
	}
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.rates = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

type memSeriesRepo struct {
	mu     sync.Mutex
	series []*domain.CurrencySeries
	nextID int64
}

func newMemSeriesRepo(series ...*domain.CurrencySeries) *memSeriesRepo {
	repo := &memSeriesRepo{}
	for _, s := range series {
		_ = repo.Create(context.Background(), s)
	}
	return repo
}

func (r *memSeriesRepo) FindEnabled(ctx context.Context) ([]*domain.CurrencySeries, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.CurrencySeries, 0)
	for _, s := range r.series {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSeriesRepo) FindAll(ctx context.Context) ([]*domain.CurrencySeries, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.CurrencySeries(nil), r.series...), nil
}

func (r *memSeriesRepo) FindByID(ctx context.Context, id int64) (*domain.CurrencySeries, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.series {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, domain.ErrCurrencySeriesNotFound
}

func (r *memSeriesRepo) FindByCurrencyCode(ctx context.Context, code string) (*domain.CurrencySeries, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.series {
		if s.CurrencyCode == code {
			copied := *s
			return &copied, nil
		}
	}
	return nil, domain.ErrCurrencySeriesNotFound
}

func (r *memSeriesRepo) Create(ctx context.Context, series *domain.CurrencySeries) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	series.ID = r.nextID
	r.series = append(r.series, series)
	return nil
}

func (r *memSeriesRepo) Update(ctx context.Context, series *domain.CurrencySeries) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.series {
		if s.ID == series.ID {
			copied := *series
			r.series[i] = &copied
			return nil
		}
	}
	return domain.ErrCurrencySeriesNotFound
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) FetchObservations(ctx context.Context, seriesID string, start *time.Time) (map[time.Time]decimal.Decimal, error) {
	args := m.Called(ctx, seriesID, start)
	rates, _ := args.Get(0).(map[time.Time]decimal.Decimal)
	return rates, args.Error(1)
}

func (m *mockProvider) GetName() string { return "mock" }

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, namespace, key string) (any, bool) {
	args := m.Called(ctx, namespace, key)
	return args.Get(0), args.Bool(1)
}

func (m *mockCache) Set(ctx context.Context, namespace, key string, value any, ttl time.Duration) error {
	args := m.Called(ctx, namespace, key, value, ttl)
	return args.Error(0)
}

func (m *mockCache) EvictAll(ctx context.Context, namespace string) error {
	args := m.Called(ctx, namespace)
	return args.Error(0)
}

type mockMetrics struct {
	mock.Mock
}

func (m *mockMetrics) RecordAttempt(status domain.ImportStatus, attempt int, duration time.Duration) {
	m.Called(status, attempt, duration)
}
func (m *mockMetrics) RecordRetryScheduled(attempt int) { m.Called(attempt) }
func (m *mockMetrics) RecordExhausted()                 { m.Called() }
func (m *mockMetrics) RecordAborted(reason string)      { m.Called(reason) }
func (m *mockMetrics) RecordRecords(result *domain.ImportResult) {
	m.Called(result)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishCurrencyCreated(ctx context.Context, event domain.CurrencyCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var errStorage = errors.New("storage down")

func observations(pairs ...string) map[time.Time]decimal.Decimal {
	out := make(map[time.Time]decimal.Decimal, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		d, _ := domain.ParseDate(pairs[i])
		out[d] = decimal.RequireFromString(pairs[i+1])
	}
	return out
}

func date(s string) time.Time {
	d, _ := domain.ParseDate(s)
	return d
}
