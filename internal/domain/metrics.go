package domain

import "time"

type ImportStatus string

const (
	ImportStatusSuccess ImportStatus = "success"
	ImportStatusFailure ImportStatus = "failure"
)

// ImportMetrics is the sink the retry coordinator and the orchestrator
// report to.
type ImportMetrics interface {
	RecordAttempt(status ImportStatus, attempt int, duration time.Duration)
	RecordRetryScheduled(attempt int)
	RecordExhausted()
	RecordAborted(reason string)
	RecordRecords(result *ImportResult)
}
