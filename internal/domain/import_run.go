package domain

import (
	"context"
	"time"
)

// ImportRun is the journal entry written for every import attempt.
type ImportRun struct {
	ID             int64
	CorrelationID  string
	Trigger        Trigger
	Attempt        int
	Status         ImportStatus
	NewRecords     int
	UpdatedRecords int
	SkippedRecords int
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

type ImportRunLogger interface {
	LogImportRun(ctx context.Context, run *ImportRun) error
	RecentRuns(ctx context.Context, limit int) ([]*ImportRun, error)
}
