package response

import (
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
)

type ImportTriggerResponse struct {
	Outcome string `json:"outcome"`
}

type ImportRunResponse struct {
	CorrelationID  string    `json:"correlationId"`
	Trigger        string    `json:"trigger"`
	Attempt        int       `json:"attempt"`
	Status         string    `json:"status"`
	NewRecords     int       `json:"newRecords"`
	UpdatedRecords int       `json:"updatedRecords"`
	SkippedRecords int       `json:"skippedRecords"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
}

func FromImportRuns(runs []*domain.ImportRun) []*ImportRunResponse {
	out := make([]*ImportRunResponse, len(runs))
	for i, run := range runs {
		out[i] = &ImportRunResponse{
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
	}
	return out
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}
