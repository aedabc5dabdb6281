package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mediasort/internal/mover"
	"mediasort/internal/record"
	"mediasort/internal/services"
	"mediasort/internal/stage"
)

// Recorder collects run metrics and implements stage.Observer.
type Recorder struct {
	registry *prometheus.Registry

	RecordsTotal     *prometheus.CounterVec
	RecordDuration   *prometheus.HistogramVec
	FailuresTotal    *prometheus.CounterVec
	BytesRelocated   prometheus.Counter
	RunDuration      prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// NewRecorder registers a fresh set of metrics on a private registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediasort_records_total",
				Help: "Total number of records processed by stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		RecordDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediasort_record_duration_seconds",
				Help:    "Per-record processing time in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"stage"},
		),
		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediasort_failures_total",
				Help: "Total number of failed records by stage and failure kind",
			},
			[]string{"stage", "kind"},
		),
		BytesRelocated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mediasort_bytes_relocated_total",
				Help: "Total bytes copied or moved into the library",
			},
		),
		RunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediasort_run_duration_seconds",
				Help: "Wall time of the last run in seconds",
			},
		),
		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediasort_last_run_timestamp",
				Help: "Unix time the last run finished",
			},
		),
	}
}

// Observe implements stage.Observer.
func (r *Recorder) Observe(stageName string, rec *record.Record, outcome stage.Outcome, elapsed time.Duration, err error) {
	r.RecordsTotal.WithLabelValues(stageName, outcome.String()).Inc()
	r.RecordDuration.WithLabelValues(stageName).Observe(elapsed.Seconds())
	if outcome == stage.OutcomeFailed {
		r.FailuresTotal.WithLabelValues(stageName, services.FailureKind(err)).Inc()
	}
	if stageName == mover.StageName && outcome == stage.OutcomeHandled && rec != nil {
		r.BytesRelocated.Add(float64(rec.Size()))
	}
}

// Finish stamps the run duration and completion time.
func (r *Recorder) Finish(elapsed time.Duration) {
	r.RunDuration.Set(elapsed.Seconds())
	r.LastRunTimestamp.SetToCurrentTime()
}

// Gatherer exposes the private registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the metrics in the Prometheus text format to path,
// atomically replacing any previous file.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
