package background

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/LavaJover/shvark-currency-service/internal/usecase"
)

type RunOutcome string

const (
	OutcomeSkipped   RunOutcome = "skipped"
	OutcomeSucceeded RunOutcome = "succeeded"
	OutcomeRetrying  RunOutcome = "retrying"
	OutcomeExhausted RunOutcome = "exhausted"
	OutcomeAborted   RunOutcome = "aborted"
)

const (
	abortReasonRejected  = "provider_rejected"
	abortReasonCancelled = "cancelled"
	releaseTimeout       = 10 * time.Second
)

type LatestImporter interface {
	ImportLatest(ctx context.Context, meta domain.RunMeta) (*domain.ImportResult, error)
}

type RetryPolicy struct {
	MaxAttempts        int
	BaseDelay          time.Duration
	FailFastOnRejected bool
}

// MaxRetryAttempts bounds the doubling in Delay.
const MaxRetryAttempts = 16

// Delay is the wait after the given failed attempt: base * 2^(attempt-1).
func (p RetryPolicy) Delay(failedAttempt int) time.Duration {
	if failedAttempt > MaxRetryAttempts {
		failedAttempt = MaxRetryAttempts
	}
	return p.BaseDelay << (failedAttempt - 1)
}

type ImportJobConfig struct {
	LockName string
	MinHold  time.Duration
	MaxHold  time.Duration
	Retry    RetryPolicy
}

// ImportJob guards ImportLatest with the distributed lock and drives the
// retry state machine. One lease covers the first attempt and every
// follow-up; it is released on success, exhaustion or abort.
type ImportJob struct {
	importer  LatestImporter
	lock      domain.DistributedLock
	metrics   domain.ImportMetrics
	journal   domain.ImportRunLogger
	scheduler TaskScheduler
	cfg       ImportJobConfig
	logger    *slog.Logger
	newID     func() string
}

func NewImportJob(
	importer LatestImporter,
	lock domain.DistributedLock,
	metrics domain.ImportMetrics,
	journal domain.ImportRunLogger,
	scheduler TaskScheduler,
	cfg ImportJobConfig,
	logger *slog.Logger,
) *ImportJob {
	if logger == nil {
		logger = slog.Default()
	}
	if scheduler == nil {
		scheduler = NewTimerScheduler()
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	if cfg.Retry.MaxAttempts > MaxRetryAttempts {
		cfg.Retry.MaxAttempts = MaxRetryAttempts
	}

	var window time.Duration
	for attempt := 1; attempt < cfg.Retry.MaxAttempts; attempt++ {
		window += cfg.Retry.Delay(attempt)
	}
	if window >= cfg.MaxHold {
		logger.Warn("retry window exceeds lock max hold, a follow-up may run without exclusivity",
			"retry_window", window,
			"max_hold", cfg.MaxHold,
		)
	}

	return &ImportJob{
		importer:  importer,
		lock:      lock,
		metrics:   metrics,
		journal:   journal,
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logger,
		newID:     usecase.NewCorrelationID,
	}
}

func (j *ImportJob) Run(ctx context.Context, trigger domain.Trigger) RunOutcome {
	return j.RunWithMeta(ctx, domain.RunMeta{CorrelationID: j.newID(), Trigger: trigger})
}

// RunWithMeta returns the outcome of the first attempt; follow-ups run
// asynchronously on the scheduler.
func (j *ImportJob) RunWithMeta(ctx context.Context, meta domain.RunMeta) RunOutcome {
	logger := j.logger.With(meta.LogArgs()...)

	lease, err := j.lock.TryAcquire(ctx, j.cfg.LockName, j.cfg.MinHold, j.cfg.MaxHold)
	if err != nil {
		logger.Error("failed to acquire import lock", "lock", j.cfg.LockName, "error", err)
		return OutcomeSkipped
	}
	if lease == nil {
		logger.Debug("import lock held by another instance, skipping run", "lock", j.cfg.LockName)
		return OutcomeSkipped
	}

	logger.Info("import lock acquired", "lock", lease.Name, "locked_by", lease.LockedBy, "lock_until", lease.LockUntil)
	return j.attempt(ctx, logger, meta, lease, 1)
}

type SeriesImporter interface {
	ImportSeries(ctx context.Context, meta domain.RunMeta, seriesID int64) (*domain.ImportResult, error)
}

// RunSeries imports one series outside the daily lock, so a running or
// holding daily import never delays it. Overlapping writes are settled by the
// per-series transaction; a failed attempt is retried with the same policy.
// The returned outcome is that of the first attempt.
func (j *ImportJob) RunSeries(ctx context.Context, importer SeriesImporter, meta domain.RunMeta, seriesID int64) (RunOutcome, error) {
	logger := j.logger.With(meta.LogArgs()...).With("currency_series_id", seriesID)
	return j.seriesAttempt(ctx, logger, importer, meta, seriesID, 1)
}

func (j *ImportJob) seriesAttempt(ctx context.Context, logger *slog.Logger, importer SeriesImporter, meta domain.RunMeta, seriesID int64, attempt int) (RunOutcome, error) {
	attemptLogger := logger.With("attempt", attempt)

	if attempt > 1 && ctx.Err() != nil {
		attemptLogger.Warn("shutting down before series retry, next daily run will import it")
		return OutcomeAborted, ctx.Err()
	}

	started := time.Now()
	result, err := importer.ImportSeries(ctx, meta, seriesID)
	j.record(ctx, attemptLogger, meta, attempt, started, result, err)
	if err == nil {
		attemptLogger.Info("series import succeeded", "duration", time.Since(started), "new", result.NewRecords)
		return OutcomeSucceeded, nil
	}

	if errors.Is(err, domain.ErrCurrencySeriesNotFound) || (j.cfg.Retry.FailFastOnRejected && domain.IsPermanent(err)) {
		return OutcomeAborted, err
	}
	if attempt >= j.cfg.Retry.MaxAttempts {
		return OutcomeExhausted, err
	}

	next := attempt + 1
	delay := j.cfg.Retry.Delay(attempt)
	attemptLogger.Warn("series import failed, retry scheduled", "next_attempt", next, "delay", delay, "error", err)
	j.scheduler.Schedule(ctx, delay, func(ctx context.Context) {
		outcome, err := j.seriesAttempt(ctx, logger, importer, meta, seriesID, next)
		if err != nil {
			logger.Error("series import retry failed", "attempt", next, "outcome", outcome, "error", err)
		}
	})
	return OutcomeRetrying, nil
}

func (j *ImportJob) attempt(ctx context.Context, logger *slog.Logger, meta domain.RunMeta, lease *domain.LockLease, attempt int) RunOutcome {
	attemptLogger := logger.With("attempt", attempt)

	if attempt > 1 && ctx.Err() != nil {
		attemptLogger.Warn("shutting down before retry, releasing import lock")
		j.metrics.RecordAborted(abortReasonCancelled)
		j.release(ctx, attemptLogger, lease)
		return OutcomeAborted
	}

	started := time.Now()
	result, err := j.importer.ImportLatest(ctx, meta)
	elapsed := time.Since(started)

	if err == nil {
		j.metrics.RecordAttempt(domain.ImportStatusSuccess, attempt, elapsed)
		j.record(ctx, attemptLogger, meta, attempt, started, result, nil)
		attemptLogger.Info("exchange rate import succeeded",
			"duration", elapsed,
			"new", result.NewRecords,
			"updated", result.UpdatedRecords,
			"skipped", result.SkippedRecords,
		)
		j.release(ctx, attemptLogger, lease)
		return OutcomeSucceeded
	}

	j.metrics.RecordAttempt(domain.ImportStatusFailure, attempt, elapsed)
	j.record(ctx, attemptLogger, meta, attempt, started, nil, err)

	if j.cfg.Retry.FailFastOnRejected && domain.IsPermanent(err) {
		attemptLogger.Error("exchange rate import rejected by provider, not retrying", "error", err)
		j.metrics.RecordAborted(abortReasonRejected)
		j.release(ctx, attemptLogger, lease)
		return OutcomeAborted
	}

	if attempt >= j.cfg.Retry.MaxAttempts {
		attemptLogger.Error("exchange rate import failed, retries exhausted",
			"max_attempts", j.cfg.Retry.MaxAttempts,
			"error", err,
		)
		j.metrics.RecordExhausted()
		j.release(ctx, attemptLogger, lease)
		return OutcomeExhausted
	}

	next := attempt + 1
	delay := j.cfg.Retry.Delay(attempt)
	attemptLogger.Warn("exchange rate import failed, retry scheduled",
		"next_attempt", next,
		"delay", delay,
		"error", err,
	)
	j.metrics.RecordRetryScheduled(next)
	j.scheduler.Schedule(ctx, delay, func(ctx context.Context) {
		j.attempt(ctx, logger, meta, lease, next)
	})
	return OutcomeRetrying
}

// release outlives ctx so a shutdown still frees the lock.
func (j *ImportJob) release(ctx context.Context, logger *slog.Logger, lease *domain.LockLease) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := j.lock.Release(releaseCtx, lease); err != nil {
		logger.Error("failed to release import lock", "lock", lease.Name, "error", err)
		return
	}
	logger.Debug("import lock released", "lock", lease.Name)
}

func (j *ImportJob) record(ctx context.Context, logger *slog.Logger, meta domain.RunMeta, attempt int, started time.Time, result *domain.ImportResult, runErr error) {
	if j.journal == nil {
		return
	}

	run := &domain.ImportRun{
		CorrelationID: meta.CorrelationID,
		Trigger:       meta.Trigger,
		Attempt:       attempt,
		Status:        domain.ImportStatusSuccess,
		StartedAt:     started,
		FinishedAt:    time.Now(),
	}
	if result != nil {
		run.NewRecords = result.NewRecords
		run.UpdatedRecords = result.UpdatedRecords
		run.SkippedRecords = result.SkippedRecords
	}
	if runErr != nil {
		run.Status = domain.ImportStatusFailure
		run.Error = runErr.Error()
	}

	if err := j.journal.LogImportRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to write import journal", "error", err)
	}
}
