package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mediasort/internal/metrics"
	"mediasort/internal/record"
	"mediasort/internal/services"
	"mediasort/internal/stage"
)

func TestRecorderCountsOutcomes(t *testing.T) {
	r := metrics.NewRecorder()
	now := time.Now()
	rec := record.New("/src/a.jpg", now, now, 2048, time.Time{})

	r.Observe("scanner", rec, stage.OutcomeHandled, time.Millisecond, nil)
	r.Observe("scanner", nil, stage.OutcomeUnhandled, time.Millisecond, nil)
	r.Observe("mover", rec, stage.OutcomeHandled, time.Millisecond, nil)
	r.Observe("mover", rec, stage.OutcomeFailed, time.Millisecond,
		services.Wrap(services.ErrConflict, "mover", "copy", "x", errors.New("exists")))

	if got := testutil.ToFloat64(r.RecordsTotal.WithLabelValues("scanner", "handled")); got != 1 {
		t.Fatalf("expected 1 scanner handled, got %v", got)
	}
	if got := testutil.ToFloat64(r.RecordsTotal.WithLabelValues("scanner", "unhandled")); got != 1 {
		t.Fatalf("expected 1 scanner unhandled, got %v", got)
	}
	if got := testutil.ToFloat64(r.FailuresTotal.WithLabelValues("mover", "conflict")); got != 1 {
		t.Fatalf("expected 1 mover conflict, got %v", got)
	}
	if got := testutil.ToFloat64(r.BytesRelocated); got != 2048 {
		t.Fatalf("expected 2048 bytes relocated, got %v", got)
	}
}

func TestRecordersAreIndependent(t *testing.T) {
	a := metrics.NewRecorder()
	b := metrics.NewRecorder()
	a.Observe("metadata", nil, stage.OutcomeHandled, 0, nil)

	if got := testutil.ToFloat64(b.RecordsTotal.WithLabelValues("metadata", "handled")); got != 0 {
		t.Fatalf("expected separate registries, got %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := metrics.NewRecorder()
	r.Observe("mover", nil, stage.OutcomeUnhandled, 0, nil)
	r.Finish(3 * time.Second)

	path := filepath.Join(t.TempDir(), "textfiles", "mediasort.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`mediasort_records_total{outcome="unhandled",stage="mover"} 1`,
		"mediasort_run_duration_seconds 3",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in textfile:\n%s", want, text)
		}
	}
}
