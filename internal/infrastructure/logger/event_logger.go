package logger

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"gorm.io/gorm"
)

type ImportRunEvent struct {
	ID             int64  `gorm:"primaryKey"`
	CorrelationID  string `gorm:"size:64;index"`
	Trigger        string `gorm:"size:16"`
	Attempt        int
	Status         string `gorm:"size:16"`
	NewRecords     int
	UpdatedRecords int
	SkippedRecords int
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

func (ImportRunEvent) TableName() string {
	return "exchange_rate_import_runs"
}

type PGImportRunLogger struct {
	db *gorm.DB
}

func NewPGImportRunLogger(db *gorm.DB) *PGImportRunLogger {
	return &PGImportRunLogger{db: db}
}

func (l *PGImportRunLogger) LogImportRun(ctx context.Context, run *domain.ImportRun) error {
	event := ImportRunEvent{
		CorrelationID:  run.CorrelationID,
		Trigger:        string(run.Trigger),
		Attempt:        run.Attempt,
		Status:         string(run.Status),
		NewRecords:     run.NewRecords,
		UpdatedRecords: run.UpdatedRecords,
		SkippedRecords: run.SkippedRecords,
		Error:          run.Error,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
	}
	if err := l.db.WithContext(ctx).Create(&event).Error; err != nil {
		return err
	}
	run.ID = event.ID
	return nil
}

func (l *PGImportRunLogger) RecentRuns(ctx context.Context, limit int) ([]*domain.ImportRun, error) {
	var events []ImportRunEvent
	if err := l.db.WithContext(ctx).Order("started_at DESC, id DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}

	runs := make([]*domain.ImportRun, len(events))
	for i, e := range events {
		runs[i] = &domain.ImportRun{
			ID:             e.ID,
			CorrelationID:  e.CorrelationID,
			Trigger:        domain.Trigger(e.Trigger),
			Attempt:        e.Attempt,
			Status:         domain.ImportStatus(e.Status),
			NewRecords:     e.NewRecords,
			UpdatedRecords: e.UpdatedRecords,
			SkippedRecords: e.SkippedRecords,
			Error:          e.Error,
			StartedAt:      e.StartedAt,
			FinishedAt:     e.FinishedAt,
		}
	}
	return runs, nil
}
