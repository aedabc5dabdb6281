package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"mediasort/internal/config"
	"mediasort/internal/metadata"
	"mediasort/internal/pipeline"
	"mediasort/internal/record"
	"mediasort/internal/services"
	"mediasort/internal/stage"
	"mediasort/internal/testsupport"
)

var (
	captured = time.Date(2020, 2, 3, 11, 22, 44, 0, time.UTC)
	modified = time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC)
)

// seedSource writes two photos sharing a capture time, one photo without
// EXIF, and a text file.
func seedSource(t *testing.T, cfg *config.Config) {
	t.Helper()
	src := cfg.Paths.SourceDir
	testsupport.WriteFile(t, filepath.Join(src, "a.jpg"), testsupport.JPEGWithCaptureTime(captured, "first"), modified)
	testsupport.WriteFile(t, filepath.Join(src, "nested", "b.jpg"), testsupport.JPEGWithCaptureTime(captured, "second"), modified)
	testsupport.WriteFile(t, filepath.Join(src, "c.jpg"), testsupport.JPEGWithoutExif("plain"), modified)
	testsupport.WriteFile(t, filepath.Join(src, "notes.txt"), []byte("hello"), modified)
}

func libraryPath(cfg *config.Config, parts ...string) string {
	return filepath.Join(append([]string{cfg.Paths.DestinationDir}, parts...)...)
}

func assertExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected %s to be absent, got %v", path, err)
	}
}

func TestRunCopiesIntoDatedLayout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedSource(t, cfg)

	report, err := pipeline.New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	assertExists(t, libraryPath(cfg, "2020", "2020_02", "20200203_112244.jpg"))
	assertExists(t, libraryPath(cfg, "2020", "2020_02", "20200203_112244_001.jpg"))
	assertExists(t, libraryPath(cfg, "2021", "2021_06", "20210607_080910.jpg"))
	assertExists(t, filepath.Join(cfg.Paths.SourceDir, "a.jpg"))
	assertMissing(t, libraryPath(cfg, pipeline.LockFileName))

	if report.Scanned() != 3 || report.Relocated() != 3 {
		t.Fatalf("expected 3 scanned and relocated, got %d and %d", report.Scanned(), report.Relocated())
	}
	if len(report.Duplicates) != 1 {
		t.Fatalf("expected one duplicate, got %+v", report.Duplicates)
	}
	unhandled := report.Unhandled()
	if len(unhandled) != 1 || filepath.Base(unhandled[0]) != "notes.txt" {
		t.Fatalf("unexpected unhandled %v", unhandled)
	}
	if report.RunID == "" || report.Bytes == 0 {
		t.Fatalf("expected run id and byte count, got %+v", report)
	}
	if len(report.Stages) != 4 || report.Stages[0].Stage != "scanner" || report.Stages[3].Stage != "mover" {
		t.Fatalf("unexpected stage order %+v", report.Stages)
	}
}

func TestRunMoveRemovesSources(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMove(true))
	seedSource(t, cfg)

	if _, err := pipeline.New(cfg, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertMissing(t, filepath.Join(cfg.Paths.SourceDir, "a.jpg"))
	assertMissing(t, filepath.Join(cfg.Paths.SourceDir, "nested", "b.jpg"))
	assertExists(t, filepath.Join(cfg.Paths.SourceDir, "notes.txt"))
	assertExists(t, libraryPath(cfg, "2020", "2020_02", "20200203_112244_001.jpg"))
}

func TestRunMovePrunesEmptiedDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMove(true), testsupport.WithPruneEmptyDirs(true))
	seedSource(t, cfg)

	report, err := pipeline.New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	nested := filepath.Join(cfg.Paths.SourceDir, "nested")
	assertMissing(t, nested)
	assertExists(t, cfg.Paths.SourceDir)
	if len(report.PrunedDirs) != 1 || report.PrunedDirs[0] != nested {
		t.Fatalf("unexpected pruned dirs %v", report.PrunedDirs)
	}
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDryRun(true))
	seedSource(t, cfg)

	report, err := pipeline.New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertMissing(t, cfg.Paths.DestinationDir)
	if report.Relocated() != 3 {
		t.Fatalf("expected planned relocations, got %d", report.Relocated())
	}
	if report.Relocations[1].Destination == report.Relocations[0].Destination {
		t.Fatal("expected dry run to assign distinct destinations")
	}
}

func TestRunSecondPassSkipsOrNumbers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithVerifyContent(true))
	seedSource(t, cfg)

	if _, err := pipeline.New(cfg, nil).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := pipeline.New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Relocated() != 0 {
		t.Fatalf("expected identical files to be skipped, got %+v", report.Relocations)
	}
	for _, dup := range report.Duplicates {
		if !dup.Identical {
			t.Fatalf("expected identical duplicate, got %+v", dup)
		}
	}
}

func TestRunStopPolicyIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPolicies(config.NoCaptureDateStop, config.DuplicateIncrease))
	seedSource(t, cfg)

	report, err := pipeline.New(cfg, nil).Run(context.Background())
	if !services.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if errors.Is(err, stage.ErrDownstreamClosed) {
		t.Fatalf("expected the policy error, not a downstream symptom: %v", err)
	}
	if report == nil || len(report.Stages) != 4 {
		t.Fatalf("expected partial report, got %+v", report)
	}
	assertMissing(t, libraryPath(cfg, pipeline.LockFileName))
}

func TestRunSkipsDestinationInsideSource(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDestinationInsideSource())
	seedSource(t, cfg)
	testsupport.WriteFile(t, libraryPath(cfg, "2019", "2019_01", "old.jpg"),
		testsupport.JPEGWithCaptureTime(captured, "old"), modified)

	report, err := pipeline.New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Scanned() != 3 {
		t.Fatalf("expected library contents to be ignored, scanned %d", report.Scanned())
	}
}

func TestRunFailsPreflightWithoutSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	report, err := pipeline.New(cfg, nil).Run(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(report.Stages) != 0 {
		t.Fatalf("expected no stages to run, got %+v", report.Stages)
	}
	assertMissing(t, cfg.Paths.DestinationDir)
}

func TestRunRefusesLockedDestination(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedSource(t, cfg)
	if err := os.MkdirAll(cfg.Paths.DestinationDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(libraryPath(cfg, pipeline.LockFileName))
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("hold lock: %v %v", ok, err)
	}
	defer held.Unlock()

	_, err := pipeline.New(cfg, nil).Run(context.Background())
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedSource(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := pipeline.New(cfg, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if !report.Interrupted {
		t.Fatal("expected report marked interrupted")
	}
}

type blockingExtractor struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingExtractor) Extract(context.Context, string) (metadata.Metadata, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return metadata.Metadata{}, metadata.ErrUnsupported
}

func TestRunShutdownTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDryRun(true))
	cfg.Run.ShutdownGraceSeconds = 1
	seedSource(t, cfg)

	extractor := &blockingExtractor{entered: make(chan struct{}), release: make(chan struct{})}
	t.Cleanup(func() { close(extractor.release) })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-extractor.entered
		cancel()
	}()

	_, err := pipeline.New(cfg, nil, pipeline.WithExtractor(extractor)).Run(ctx)
	if !errors.Is(err, pipeline.ErrShutdownTimeout) {
		t.Fatalf("expected shutdown timeout, got %v", err)
	}
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingObserver) Observe(stageName string, _ *record.Record, outcome stage.Outcome, _ time.Duration, _ error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[stageName+"/"+outcome.String()]++
}

func TestRunReportsToObserversAndMetrics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Report.MetricsTextfile = filepath.Join(testsupport.BaseDir(cfg), "metrics", "mediasort.prom")
	seedSource(t, cfg)
	obs := &countingObserver{counts: make(map[string]int)}

	if _, err := pipeline.New(cfg, nil, pipeline.WithObserver(obs)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.counts["scanner/handled"] != 3 || obs.counts["scanner/unhandled"] != 1 {
		t.Fatalf("unexpected scanner counts %v", obs.counts)
	}
	if obs.counts["mover/handled"] != 3 {
		t.Fatalf("unexpected mover counts %v", obs.counts)
	}
	data, err := os.ReadFile(cfg.Report.MetricsTextfile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), `mediasort_records_total{outcome="handled",stage="mover"} 3`) {
		t.Fatalf("unexpected metrics:\n%s", data)
	}
}

func TestRunWithMemoryFS(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fsys := afero.NewMemMapFs()
	testsupport.WriteFS(t, fsys, filepath.Join(cfg.Paths.SourceDir, "clip.mp4"), testsupport.MP4WithCreationTime(captured), modified)

	report, err := pipeline.New(cfg, nil, pipeline.WithFS(fsys)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := libraryPath(cfg, "2020", "2020_02", "20200203_112244.mp4")
	if report.Relocated() != 1 || report.Relocations[0].Destination != want {
		t.Fatalf("unexpected relocations %+v", report.Relocations)
	}
	if _, err := fsys.Stat(want); err != nil {
		t.Fatalf("expected file in memory fs: %v", err)
	}
	assertMissing(t, cfg.Paths.DestinationDir)
}
