package metrics

import (
	"strconv"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ImportMetrics holds every exchange rate import metric
type ImportMetrics struct {
	// One sample per attempt, labelled by outcome and attempt number
	ExecutionsTotal prometheus.CounterVec
	Duration        prometheus.HistogramVec

	RetryScheduledTotal prometheus.CounterVec
	ExhaustedTotal      prometheus.Counter
	AbortedTotal        prometheus.CounterVec

	// Rows touched by successful runs
	RecordsTotal prometheus.CounterVec
}

// NewImportMetrics registers the metrics on reg. Passing a fresh registry
// keeps tests independent of the default one.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	factory := promauto.With(reg)

	return &ImportMetrics{
		ExecutionsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_rate_import_executions_total",
				Help: "Exchange rate import attempts by status and attempt number",
			},
			[]string{"status", "attempt"},
		),

		Duration: *factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exchange_rate_import_duration_seconds",
				Help:    "Duration of exchange rate import attempts in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms .. ~7min
			},
			[]string{"status", "attempt"},
		),

		RetryScheduledTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_rate_import_retry_scheduled_total",
				Help: "Retries scheduled after a failed import attempt, by the attempt they schedule",
			},
			[]string{"attempt"},
		),

		ExhaustedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "exchange_rate_import_exhausted_total",
				Help: "Import runs that failed on every attempt",
			},
		),

		AbortedTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_rate_import_aborted_total",
				Help: "Import runs stopped without retrying, by reason",
			},
			[]string{"reason"},
		),

		RecordsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_rate_import_records_total",
				Help: "Exchange rate rows processed by successful imports, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *ImportMetrics) RecordAttempt(status domain.ImportStatus, attempt int, duration time.Duration) {
	labels := []string{string(status), strconv.Itoa(attempt)}
	m.ExecutionsTotal.WithLabelValues(labels...).Inc()
	m.Duration.WithLabelValues(labels...).Observe(duration.Seconds())
}

func (m *ImportMetrics) RecordRetryScheduled(attempt int) {
	m.RetryScheduledTotal.WithLabelValues(strconv.Itoa(attempt)).Inc()
}

func (m *ImportMetrics) RecordExhausted() {
	m.ExhaustedTotal.Inc()
}

func (m *ImportMetrics) RecordAborted(reason string) {
	m.AbortedTotal.WithLabelValues(reason).Inc()
}

func (m *ImportMetrics) RecordRecords(result *domain.ImportResult) {
	if result == nil {
		return
	}
	m.RecordsTotal.WithLabelValues("new").Add(float64(result.NewRecords))
	m.RecordsTotal.WithLabelValues("updated").Add(float64(result.UpdatedRecords))
	m.RecordsTotal.WithLabelValues("skipped").Add(float64(result.SkippedRecords))
}
