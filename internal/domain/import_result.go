package domain

import "time"

type ImportResult struct {
	NewRecords     int
	UpdatedRecords int
	SkippedRecords int
	EarliestDate   *time.Time
	LatestDate     *time.Time
	Timestamp      time.Time
}

func NewImportResult() *ImportResult {
	return &ImportResult{Timestamp: time.Now()}
}

func (r *ImportResult) TotalProcessed() int {
	return r.NewRecords + r.UpdatedRecords + r.SkippedRecords
}

// Merge adds other into r. Nil dates on either side are ignored.
func (r *ImportResult) Merge(other *ImportResult) {
	if other == nil {
		return
	}
	r.NewRecords += other.NewRecords
	r.UpdatedRecords += other.UpdatedRecords
	r.SkippedRecords += other.SkippedRecords

	if other.EarliestDate != nil && (r.EarliestDate == nil || other.EarliestDate.Before(*r.EarliestDate)) {
		d := *other.EarliestDate
		r.EarliestDate = &d
	}
	if other.LatestDate != nil && (r.LatestDate == nil || other.LatestDate.After(*r.LatestDate)) {
		d := *other.LatestDate
		r.LatestDate = &d
	}
}

// Trigger identifies what started an import run.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerEvent     Trigger = "event"
	TriggerManual    Trigger = "manual"
	TriggerStartup   Trigger = "startup"
)

// RunMeta travels with a run through every layer so log lines and metrics
// can be tagged without goroutine-local state.
type RunMeta struct {
	CorrelationID string
	Trigger       Trigger
}

func (m RunMeta) LogArgs() []any {
	return []any{"correlation_id", m.CorrelationID, "trigger", string(m.Trigger)}
}
