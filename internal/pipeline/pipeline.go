package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"mediasort/internal/cleanup"
	"mediasort/internal/config"
	"mediasort/internal/destination"
	"mediasort/internal/logging"
	"mediasort/internal/metadata"
	"mediasort/internal/metrics"
	"mediasort/internal/mover"
	"mediasort/internal/preflight"
	"mediasort/internal/scanner"
	"mediasort/internal/services"
	"mediasort/internal/stage"
)

const (
	stageScanner     = scanner.StageName
	stageMetadata    = metadata.StageName
	stageDestination = destination.StageName
	stageMover       = mover.StageName
)

// ErrShutdownTimeout is returned when a cancelled run does not drain within
// the configured grace period.
var ErrShutdownTimeout = errors.New("pipeline did not stop within the shutdown grace period")

// Pipeline runs the scanner and the three record stages.
type Pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	fs        afero.Fs
	extractor metadata.Extractor
	recorder  *metrics.Recorder
	observers observers
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFS replaces the OS filesystem.
func WithFS(fsys afero.Fs) Option {
	return func(p *Pipeline) { p.fs = fsys }
}

// WithExtractor replaces the file-based metadata extractor.
func WithExtractor(extractor metadata.Extractor) Option {
	return func(p *Pipeline) { p.extractor = extractor }
}

// WithMetrics records stage outcomes into recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(p *Pipeline) { p.recorder = recorder }
}

// WithObserver adds an outcome observer, for example a progress display.
func WithObserver(observer stage.Observer) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, observer) }
}

// New builds a pipeline for cfg. cfg must already be finalized.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	if p.fs == nil {
		p.fs = afero.NewOsFs()
	}
	if p.extractor == nil {
		p.extractor = metadata.NewFileExtractor(p.fs)
	}
	if p.recorder == nil && strings.TrimSpace(cfg.Report.MetricsTextfile) != "" {
		p.recorder = metrics.NewRecorder()
	}
	return p
}

type stageRun struct {
	name string
	run  func(context.Context) (stage.Result, error)
	// stop requests completion so a blocked worker wakes up.
	stop func()
}

// Run executes one pass over the source tree. The returned report is never
// nil; on error it describes whatever completed before the run stopped.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	cfg := p.cfg
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(p.logger, "pipeline"))

	report := &Report{
		RunID:          runID,
		SourceDir:      cfg.Paths.SourceDir,
		DestinationDir: cfg.Paths.DestinationDir,
		DryRun:         cfg.Run.DryRun,
		Move:           cfg.Run.Move,
		Started:        time.Now(),
	}

	if p.usesOS() {
		if err := preflight.Err(preflight.RunAll(cfg)); err != nil {
			logging.ErrorWithContext(logger, "preflight checks failed", "preflight_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run 'mediasort config validate' for details"),
			)
			return report, err
		}
	}

	if !cfg.Run.DryRun && p.usesOS() {
		lock, err := acquireLock(cfg.Paths.DestinationDir)
		if err != nil {
			return report, err
		}
		defer func() {
			if err := lock.release(); err != nil {
				logger.Warn("failed to release destination lock",
					logging.Error(err),
					logging.String(logging.FieldEventType, "lock_release_failed"),
				)
			}
		}()
	}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("source_dir", cfg.Paths.SourceDir),
		logging.String("destination_dir", cfg.Paths.DestinationDir),
		logging.Bool("dry_run", cfg.Run.DryRun),
		logging.Bool("move", cfg.Run.Move),
	)

	obs := p.observer()
	stageOpts := func(name string, next *stage.Stage) []stage.Option {
		opts := []stage.Option{
			stage.WithCapacity(cfg.Run.QueueCapacity),
			stage.WithLogger(logging.NewComponentLogger(p.logger, name)),
		}
		if next != nil {
			opts = append(opts, stage.WithNext(next))
		}
		if obs != nil {
			opts = append(opts, stage.WithObserver(obs))
		}
		return opts
	}

	mv := mover.New(p.fs, mover.Settings{DryRun: cfg.Run.DryRun, Move: cfg.Run.Move},
		logging.NewComponentLogger(p.logger, stageMover))
	moverStage := stage.New(stageMover, mv, stageOpts(stageMover, nil)...)

	var hash destination.HashFunc
	if cfg.Policy.VerifyContent {
		hash = destination.FSHash(p.fs)
	}
	resolver := destination.NewProcessor(destination.SettingsFromConfig(cfg), destination.FSExists(p.fs), hash,
		logging.NewComponentLogger(p.logger, stageDestination))
	destinationStage := stage.New(stageDestination, resolver, stageOpts(stageDestination, moverStage)...)

	metadataStage := stage.New(stageMetadata,
		metadata.NewResolver(p.extractor, cfg.Sentinel(), logging.NewComponentLogger(p.logger, stageMetadata)),
		stageOpts(stageMetadata, destinationStage)...)

	scanOpts := []scanner.Option{scanner.WithLogger(logging.NewComponentLogger(p.logger, stageScanner))}
	if obs != nil {
		scanOpts = append(scanOpts, scanner.WithObserver(obs))
	}
	scan := scanner.New(p.fs, scanner.Settings{
		Root:       cfg.Paths.SourceDir,
		SkipDir:    nestedDestination(cfg.Paths.SourceDir, cfg.Paths.DestinationDir),
		Extensions: cfg.Media.Extensions,
		SkipHidden: cfg.Media.SkipHidden,
		Sentinel:   cfg.Sentinel(),
	}, metadataStage, scanOpts...)

	runs := []stageRun{
		{name: stageScanner, run: scan.Run, stop: func() {}},
		{name: stageMetadata, run: metadataStage.Run, stop: metadataStage.RequestCompletion},
		{name: stageDestination, run: destinationStage.Run, stop: destinationStage.RequestCompletion},
		{name: stageMover, run: moverStage.Run, stop: moverStage.RequestCompletion},
	}

	results, runErr := p.execute(ctx, logger, runs)

	if runErr == nil && cfg.Run.Move && !cfg.Run.DryRun && cfg.Run.PruneEmptyDirs {
		pruned := cleanup.PruneEmpty(ctx, p.fs, cfg.Paths.SourceDir,
			nestedDestination(cfg.Paths.SourceDir, cfg.Paths.DestinationDir),
			logging.NewComponentLogger(p.logger, "cleanup"))
		report.PrunedDirs = pruned.Removed
	}

	report.Stages = results
	report.Relocations = mv.Relocations()
	report.Bytes = mv.Bytes()
	report.Duplicates = resolver.Duplicates()
	report.Outcomes = resolver.Outcomes()
	report.Elapsed = time.Since(report.Started)
	report.Interrupted = ctx.Err() != nil

	p.finish(logger, report, runErr)
	return report, runErr
}

// execute starts every stage and waits for them. The first fatal error
// cancels the others. When ctx is cancelled the stages get the shutdown grace
// period to return.
func (p *Pipeline) execute(ctx context.Context, logger *slog.Logger, runs []stageRun) ([]stage.Result, error) {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		results  = make([]stage.Result, len(runs))
		fatalErr error
	)
	for i := range runs {
		results[i] = stage.Result{Stage: runs[i].name}
	}
	stopAll := func() {
		for _, r := range runs {
			r.stop()
		}
	}

	wg.Add(len(runs))
	for i, r := range runs {
		go func() {
			defer wg.Done()
			res, err := r.run(runCtx)
			mu.Lock()
			results[i] = res
			if err != nil && !isCancellation(err) && rootCause(fatalErr, err) {
				fatalErr = services.Fatal(err)
			}
			mu.Unlock()
			if err != nil && !isCancellation(err) {
				cancel(err)
				stopAll()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timedOut := false
	select {
	case <-done:
	case <-ctx.Done():
		stopAll()
		grace := p.cfg.ShutdownGrace()
		logger.Info("run cancelled; draining stages",
			logging.String(logging.FieldEventType, "run_draining"),
			logging.Duration("grace", grace),
		)
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			timedOut = true
		}
	}

	mu.Lock()
	defer mu.Unlock()
	out := append([]stage.Result(nil), results...)
	switch {
	case fatalErr != nil:
		return out, fatalErr
	case timedOut:
		return out, ErrShutdownTimeout
	case ctx.Err() != nil:
		return out, ctx.Err()
	}
	return out, nil
}

func (p *Pipeline) finish(logger *slog.Logger, report *Report, runErr error) {
	if p.recorder != nil {
		p.recorder.Finish(report.Elapsed)
		if path := strings.TrimSpace(p.cfg.Report.MetricsTextfile); path != "" {
			if err := p.recorder.WriteTextfile(path); err != nil {
				logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldImpact, "run metrics are unavailable to node_exporter"),
				)
			}
		}
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("scanned", report.Scanned()),
		logging.Int("relocated", report.Relocated()),
		logging.Int("duplicates", len(report.Duplicates)),
		logging.Int("failed", len(report.Failed())),
		logging.Int64("bytes", report.Bytes),
		logging.Duration("run_duration", report.Elapsed),
	}
	switch {
	case runErr == nil:
		logger.Info("run complete", logging.Args(attrs...)...)
	case isCancellation(runErr):
		logger.Warn("run interrupted", logging.Args(append(attrs, logging.Error(runErr))...)...)
	default:
		logging.ErrorWithContext(logger, "run stopped", "run_failed", append(attrs[1:], logging.Error(runErr))...)
	}
}

func (p *Pipeline) observer() stage.Observer {
	all := append(observers(nil), p.observers...)
	if p.recorder != nil {
		all = append(all, p.recorder)
	}
	if len(all) == 0 {
		return nil
	}
	return all
}

func (p *Pipeline) usesOS() bool {
	_, ok := p.fs.(*afero.OsFs)
	return ok
}

// nestedDestination returns dest when it lies inside source so the scanner
// can prune it.
func nestedDestination(source, dest string) string {
	rel, err := filepath.Rel(source, dest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return dest
}

// rootCause reports whether err should replace current as the run error. A
// stage that failed only because its downstream stopped is a symptom.
func rootCause(current, err error) bool {
	if current == nil {
		return true
	}
	return errors.Is(current, stage.ErrDownstreamClosed) && !errors.Is(err, stage.ErrDownstreamClosed)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
