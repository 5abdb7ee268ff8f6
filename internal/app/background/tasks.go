package background

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
)

type ImportRunner interface {
	Run(ctx context.Context, trigger domain.Trigger) RunOutcome
}

type DataChecker interface {
	HasExchangeRateData(ctx context.Context) (bool, error)
}

// DailyTrigger fires the import once a day at a fixed UTC wall clock time.
type DailyTrigger struct {
	runner       ImportRunner
	checker      DataChecker
	hour, minute int
	runOnStartup bool
	logger       *slog.Logger
	now          func() time.Time
}

func NewDailyTrigger(runner ImportRunner, checker DataChecker, schedule string, runOnStartup bool, logger *slog.Logger) (*DailyTrigger, error) {
	at, err := time.Parse("15:04", schedule)
	if err != nil {
		return nil, fmt.Errorf("parse import schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyTrigger{
		runner:       runner,
		checker:      checker,
		hour:         at.Hour(),
		minute:       at.Minute(),
		runOnStartup: runOnStartup,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Start blocks until ctx is done.
func (t *DailyTrigger) Start(ctx context.Context) error {
	if t.runOnStartup {
		t.startupImport(ctx)
	}

	for {
		next := nextRun(t.now(), t.hour, t.minute)
		wait := next.Sub(t.now())
		t.logger.Info("next exchange rate import scheduled", "at", next, "in", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			outcome := t.runner.Run(ctx, domain.TriggerScheduled)
			t.logger.Info("scheduled exchange rate import finished", "outcome", outcome)
		}
	}
}

// startupImport seeds an empty database without waiting for the first
// scheduled run.
func (t *DailyTrigger) startupImport(ctx context.Context) {
	has, err := t.checker.HasExchangeRateData(ctx)
	if err != nil {
		t.logger.Warn("failed to check for existing exchange rates, skipping startup import", "error", err)
		return
	}
	if has {
		t.logger.Info("exchange rate data present, skipping startup import")
		return
	}

	t.logger.Info("no exchange rate data, running startup import")
	outcome := t.runner.Run(ctx, domain.TriggerStartup)
	t.logger.Info("startup exchange rate import finished", "outcome", outcome)
}

func nextRun(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
