package background

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/lock"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedImporter struct {
	mu      sync.Mutex
	results []error
	calls   int
	metas   []domain.RunMeta
}

func (f *scriptedImporter) ImportLatest(ctx context.Context, meta domain.RunMeta) (*domain.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.metas = append(f.metas, meta)
	if len(f.results) == 0 {
		return &domain.ImportResult{NewRecords: 1}, nil
	}
	err := f.results[0]
	f.results = f.results[1:]
	if err != nil {
		return nil, err
	}
	return &domain.ImportResult{NewRecords: 1}, nil
}

func (f *scriptedImporter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memLock struct {
	mu       sync.Mutex
	held     bool
	acquired int
	released int
}

func (l *memLock) TryAcquire(ctx context.Context, name string, minHold, maxHold time.Duration) (*domain.LockLease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, nil
	}
	l.held = true
	l.acquired++
	return &domain.LockLease{Name: name, LockedBy: "test", LockUntil: time.Now().Add(maxHold)}, nil
}

func (l *memLock) Release(ctx context.Context, lease *domain.LockLease) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.released++
	return nil
}

// inlineScheduler runs follow-ups synchronously and records their delays.
type inlineScheduler struct {
	delays []time.Duration
}

func (s *inlineScheduler) Schedule(ctx context.Context, delay time.Duration, task func(ctx context.Context)) {
	s.delays = append(s.delays, delay)
	task(ctx)
}

type memJournal struct {
	mu   sync.Mutex
	runs []*domain.ImportRun
}

func (j *memJournal) LogImportRun(ctx context.Context, run *domain.ImportRun) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs = append(j.runs, run)
	return nil
}

func (j *memJournal) RecentRuns(ctx context.Context, limit int) ([]*domain.ImportRun, error) {
	return j.runs, nil
}

type jobFixture struct {
	importer  *scriptedImporter
	lock      *memLock
	metrics   *metrics.ImportMetrics
	journal   *memJournal
	scheduler *inlineScheduler
	job       *ImportJob
}

func newJobFixture(failFast bool, results ...error) *jobFixture {
	f := &jobFixture{
		importer:  &scriptedImporter{results: results},
		lock:      &memLock{},
		metrics:   metrics.NewImportMetrics(prometheus.NewRegistry()),
		journal:   &memJournal{},
		scheduler: &inlineScheduler{},
	}
	f.job = NewImportJob(f.importer, f.lock, f.metrics, f.journal, f.scheduler, ImportJobConfig{
		LockName: "exchangeRateImport",
		MinHold:  time.Second,
		MaxHold:  time.Hour,
		Retry: RetryPolicy{
			MaxAttempts:        3,
			BaseDelay:          time.Second,
			FailFastOnRejected: failFast,
		},
	}, nil)
	return f
}

func (f *jobFixture) executions(status string, attempt int) float64 {
	return testutil.ToFloat64(f.metrics.ExecutionsTotal.WithLabelValues(status, fmt.Sprint(attempt)))
}

func TestImportJob_ExhaustsAfterMaxAttempts(t *testing.T) {
	f := newJobFixture(true, domain.ErrProviderUnavailable, domain.ErrProviderUnavailable, domain.ErrProviderUnavailable)

	outcome := f.job.Run(context.Background(), domain.TriggerScheduled)

	assert.Equal(t, OutcomeRetrying, outcome)
	assert.Equal(t, 3, f.importer.callCount(), "no fourth attempt")
	assert.Equal(t, 1.0, f.executions("failure", 1))
	assert.Equal(t, 1.0, f.executions("failure", 2))
	assert.Equal(t, 1.0, f.executions("failure", 3))
	assert.Zero(t, f.executions("failure", 4))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RetryScheduledTotal.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RetryScheduledTotal.WithLabelValues("3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ExhaustedTotal))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.scheduler.delays)
	assert.Equal(t, 1, f.lock.acquired)
	assert.Equal(t, 1, f.lock.released)
	assert.Len(t, f.journal.runs, 3)
	for _, run := range f.journal.runs {
		assert.Equal(t, domain.ImportStatusFailure, run.Status)
	}
}

func TestImportJob_SucceedsOnThirdAttempt(t *testing.T) {
	f := newJobFixture(true, domain.ErrProviderUnavailable, domain.ErrReconciliation, nil)

	f.job.Run(context.Background(), domain.TriggerScheduled)

	assert.Equal(t, 3, f.importer.callCount())
	assert.Equal(t, 1.0, f.executions("failure", 1))
	assert.Equal(t, 1.0, f.executions("failure", 2))
	assert.Equal(t, 1.0, f.executions("success", 3))
	assert.Zero(t, testutil.ToFloat64(f.metrics.ExhaustedTotal))
	assert.Equal(t, 1, f.lock.released)
}

func TestImportJob_AttemptsShareCorrelationID(t *testing.T) {
	f := newJobFixture(true, domain.ErrProviderUnavailable, nil)

	f.job.Run(context.Background(), domain.TriggerManual)

	require.Len(t, f.importer.metas, 2)
	assert.NotEmpty(t, f.importer.metas[0].CorrelationID)
	assert.Equal(t, f.importer.metas[0], f.importer.metas[1])
	assert.Equal(t, domain.TriggerManual, f.importer.metas[0].Trigger)
}

func TestImportJob_SuccessReleasesLock(t *testing.T) {
	f := newJobFixture(true)

	outcome := f.job.Run(context.Background(), domain.TriggerScheduled)

	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, 1.0, f.executions("success", 1))
	assert.Empty(t, f.scheduler.delays)
	assert.False(t, f.lock.held)
}

func TestImportJob_RejectedFailsFast(t *testing.T) {
	f := newJobFixture(true, fmt.Errorf("fetch DEXUSEU: %w", domain.ErrProviderRejected))

	outcome := f.job.Run(context.Background(), domain.TriggerScheduled)

	assert.Equal(t, OutcomeAborted, outcome)
	assert.Equal(t, 1, f.importer.callCount())
	assert.Equal(t, 1.0, f.executions("failure", 1))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AbortedTotal.WithLabelValues("provider_rejected")))
	assert.Zero(t, testutil.ToFloat64(f.metrics.ExhaustedTotal))
	assert.Equal(t, 1, f.lock.released)
}

func TestImportJob_RejectedRetriesWhenFailFastDisabled(t *testing.T) {
	f := newJobFixture(false, domain.ErrProviderRejected, domain.ErrProviderRejected, domain.ErrProviderRejected)

	f.job.Run(context.Background(), domain.TriggerScheduled)

	assert.Equal(t, 3, f.importer.callCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ExhaustedTotal))
}

func TestImportJob_SkipsWhenLockHeld(t *testing.T) {
	f := newJobFixture(true)
	f.lock.held = true

	outcome := f.job.Run(context.Background(), domain.TriggerScheduled)

	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Zero(t, f.importer.callCount())
	assert.Zero(t, testutil.CollectAndCount(&f.metrics.ExecutionsTotal))
	assert.Zero(t, f.lock.released)
	assert.Empty(t, f.journal.runs)
}

func TestImportJob_CancelledBeforeRetryReleasesLock(t *testing.T) {
	f := newJobFixture(true, domain.ErrProviderUnavailable)
	var pending func(ctx context.Context)
	f.job.scheduler = schedulerFunc(func(ctx context.Context, delay time.Duration, task func(ctx context.Context)) {
		pending = task
	})

	ctx, cancel := context.WithCancel(context.Background())
	outcome := f.job.Run(ctx, domain.TriggerScheduled)
	require.Equal(t, OutcomeRetrying, outcome)
	require.NotNil(t, pending)
	assert.True(t, f.lock.held)

	cancel()
	pending(ctx)

	assert.Equal(t, 1, f.importer.callCount())
	assert.False(t, f.lock.held)
	assert.Zero(t, f.executions("failure", 2))
}

type schedulerFunc func(ctx context.Context, delay time.Duration, task func(ctx context.Context))

func (f schedulerFunc) Schedule(ctx context.Context, delay time.Duration, task func(ctx context.Context)) {
	f(ctx, delay, task)
}

type blockingImporter struct {
	started chan struct{}
	proceed chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingImporter) ImportLatest(ctx context.Context, meta domain.RunMeta) (*domain.ImportResult, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.started <- struct{}{}
	<-b.proceed
	return domain.NewImportResult(), nil
}

func TestImportJob_ConcurrentTriggersRunOnce(t *testing.T) {
	badgerLock, err := lock.OpenBadgerLock("", "node-a")
	require.NoError(t, err)
	t.Cleanup(func() { badgerLock.Close() })

	importer := &blockingImporter{started: make(chan struct{}, 1), proceed: make(chan struct{})}
	m := metrics.NewImportMetrics(prometheus.NewRegistry())
	cfg := ImportJobConfig{LockName: "exchangeRateImport", MaxHold: time.Minute, Retry: RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}}
	first := NewImportJob(importer, badgerLock, m, nil, &inlineScheduler{}, cfg, nil)
	second := NewImportJob(importer, badgerLock, m, nil, &inlineScheduler{}, cfg, nil)

	done := make(chan RunOutcome)
	go func() { done <- first.Run(context.Background(), domain.TriggerScheduled) }()
	<-importer.started

	assert.Equal(t, OutcomeSkipped, second.Run(context.Background(), domain.TriggerEvent))

	close(importer.proceed)
	assert.Equal(t, OutcomeSucceeded, <-done)
	assert.Equal(t, 1, importer.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues("success", "1")))
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{BaseDelay: 5 * time.Minute}

	assert.Equal(t, 5*time.Minute, p.Delay(1))
	assert.Equal(t, 10*time.Minute, p.Delay(2))
	assert.Equal(t, 20*time.Minute, p.Delay(3))
	assert.Positive(t, p.Delay(200))
	assert.Equal(t, p.Delay(MaxRetryAttempts), p.Delay(MaxRetryAttempts+1))
}

func TestNewImportJob_CapsMaxAttempts(t *testing.T) {
	job := NewImportJob(&scriptedImporter{}, &memLock{}, nil, nil, &inlineScheduler{}, ImportJobConfig{
		MaxHold: time.Hour,
		Retry:   RetryPolicy{MaxAttempts: 1000, BaseDelay: time.Second},
	}, nil)

	assert.Equal(t, MaxRetryAttempts, job.cfg.Retry.MaxAttempts)
}

type seriesImporterFunc func(ctx context.Context, meta domain.RunMeta, seriesID int64) (*domain.ImportResult, error)

func (f seriesImporterFunc) ImportSeries(ctx context.Context, meta domain.RunMeta, seriesID int64) (*domain.ImportResult, error) {
	return f(ctx, meta, seriesID)
}

func TestImportJob_RunSeries(t *testing.T) {
	f := newJobFixture(true)
	var gotID int64
	importer := seriesImporterFunc(func(ctx context.Context, meta domain.RunMeta, seriesID int64) (*domain.ImportResult, error) {
		gotID = seriesID
		return &domain.ImportResult{NewRecords: 5}, nil
	})
	meta := domain.RunMeta{CorrelationID: "evt-1", Trigger: domain.TriggerEvent}

	outcome, err := f.job.RunSeries(context.Background(), importer, meta, 7)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, int64(7), gotID)
	assert.False(t, f.lock.held)
	require.Len(t, f.journal.runs, 1)
	assert.Equal(t, "evt-1", f.journal.runs[0].CorrelationID)
	assert.Equal(t, 5, f.journal.runs[0].NewRecords)
}

func TestImportJob_RunSeriesWhileDailyLockHeld(t *testing.T) {
	badgerLock, err := lock.OpenBadgerLock("", "node-a")
	require.NoError(t, err)
	t.Cleanup(func() { badgerLock.Close() })

	cfg := ImportJobConfig{
		LockName: "exchangeRateImport",
		MinHold:  time.Minute,
		MaxHold:  time.Hour,
		Retry:    RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second},
	}
	job := NewImportJob(&scriptedImporter{}, badgerLock, metrics.NewImportMetrics(prometheus.NewRegistry()), nil, &inlineScheduler{}, cfg, nil)

	// The daily run leaves the lock held for the min hold period.
	require.Equal(t, OutcomeSucceeded, job.Run(context.Background(), domain.TriggerScheduled))
	lease, err := badgerLock.TryAcquire(context.Background(), cfg.LockName, 0, time.Hour)
	require.NoError(t, err)
	require.Nil(t, lease)

	var calls int
	importer := seriesImporterFunc(func(ctx context.Context, meta domain.RunMeta, seriesID int64) (*domain.ImportResult, error) {
		calls++
		return &domain.ImportResult{NewRecords: 3}, nil
	})

	outcome, err := job.RunSeries(context.Background(), importer, domain.RunMeta{CorrelationID: "evt-2", Trigger: domain.TriggerEvent}, 42)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, 1, calls)
}

func TestImportJob_RunSeriesRetriesFailures(t *testing.T) {
	f := newJobFixture(true)
	results := []error{domain.ErrProviderUnavailable, domain.ErrReconciliation, nil}
	var calls int
	importer := seriesImporterFunc(func(ctx context.Context, meta domain.RunMeta, seriesID int64) (*domain.ImportResult, error) {
		err := results[calls]
		calls++
		if err != nil {
			return nil, err
		}
		return &domain.ImportResult{NewRecords: 2}, nil
	})

	outcome, err := f.job.RunSeries(context.Background(), importer, domain.RunMeta{CorrelationID: "evt-3"}, 9)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRetrying, outcome)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.scheduler.delays)
	require.Len(t, f.journal.runs, 3)
	assert.Equal(t, domain.ImportStatusSuccess, f.journal.runs[2].Status)
	assert.Zero(t, f.lock.acquired)
}

func TestImportJob_RunSeriesDoesNotRetry(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome RunOutcome
		calls   int
	}{
		{"unknown series", fmt.Errorf("load currency series 9: %w", domain.ErrCurrencySeriesNotFound), OutcomeAborted, 1},
		{"provider rejected", domain.ErrProviderRejected, OutcomeAborted, 1},
		{"exhausted", domain.ErrProviderUnavailable, OutcomeExhausted, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newJobFixture(true)
			var calls int
			importer := seriesImporterFunc(func(ctx context.Context, meta domain.RunMeta, seriesID int64) (*domain.ImportResult, error) {
				calls++
				return nil, tt.err
			})

			outcome, err := f.job.RunSeries(context.Background(), importer, domain.RunMeta{}, 9)

			assert.Equal(t, tt.calls, calls)
			if tt.calls == 1 {
				assert.ErrorIs(t, err, tt.err)
				assert.Equal(t, tt.outcome, outcome)
				return
			}
			// follow-ups run inline; the first attempt reports retrying
			assert.NoError(t, err)
			assert.Equal(t, OutcomeRetrying, outcome)
		})
	}
}

func TestImportJob_RunSeriesCancelledBeforeRetry(t *testing.T) {
	f := newJobFixture(true)
	ctx, cancel := context.WithCancel(context.Background())
	var pending func(ctx context.Context)
	f.job.scheduler = schedulerFunc(func(ctx context.Context, delay time.Duration, task func(ctx context.Context)) {
		pending = task
	})
	var calls int
	importer := seriesImporterFunc(func(ctx context.Context, meta domain.RunMeta, seriesID int64) (*domain.ImportResult, error) {
		calls++
		return nil, domain.ErrProviderUnavailable
	})

	outcome, err := f.job.RunSeries(ctx, importer, domain.RunMeta{}, 9)
	require.NoError(t, err)
	require.Equal(t, OutcomeRetrying, outcome)

	cancel()
	pending(ctx)
	assert.Equal(t, 1, calls)
}
