// Package scanner walks the source tree and feeds matching media files into
// the first pipeline stage.
package scanner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/cases"

	"mediasort/internal/logging"
	"mediasort/internal/record"
	"mediasort/internal/services"
	"mediasort/internal/stage"
)

// StageName identifies the scanner in results and logs.
const StageName = "scanner"

// Settings selects what the scanner walks and which files it emits.
type Settings struct {
	Root string
	// SkipDir is pruned from the walk; set it to the destination when it lies
	// inside the source tree.
	SkipDir    string
	Extensions []string
	SkipHidden bool
	Sentinel   time.Time
}

// BirthTimeFunc resolves the creation time of a file.
type BirthTimeFunc func(path string, info fs.FileInfo) time.Time

// Scanner produces records from a directory tree.
type Scanner struct {
	fs         afero.Fs
	settings   Settings
	extensions map[string]struct{}
	folder     cases.Caser
	next       *stage.Stage
	logger     *slog.Logger
	observer   stage.Observer
	birthTime  BirthTimeFunc
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the scanner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// WithObserver reports each visited file as handled or unhandled.
func WithObserver(observer stage.Observer) Option {
	return func(s *Scanner) { s.observer = observer }
}

// WithBirthTime overrides how creation times are read.
func WithBirthTime(fn BirthTimeFunc) Option {
	return func(s *Scanner) { s.birthTime = fn }
}

// New builds a scanner that submits records to next.
func New(fsys afero.Fs, settings Settings, next *stage.Stage, opts ...Option) *Scanner {
	s := &Scanner{
		fs:         fsys,
		settings:   settings,
		extensions: make(map[string]struct{}, len(settings.Extensions)),
		folder:     cases.Fold(),
		next:       next,
	}
	for _, ext := range settings.Extensions {
		s.extensions[s.folder.String(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.birthTime == nil {
		if _, ok := fsys.(*afero.OsFs); ok {
			s.birthTime = record.BirthTime
		} else {
			s.birthTime = func(_ string, info fs.FileInfo) time.Time { return info.ModTime() }
		}
	}
	return s
}

// Run walks the tree in lexical order. Any walk error aborts the traversal and
// is returned marked fatal. Completion is requested on the next stage exactly
// once, whether the walk finished or not.
func (s *Scanner) Run(ctx context.Context) (stage.Result, error) {
	start := time.Now()
	result := stage.Result{Stage: StageName}
	ctx = services.WithStage(ctx, StageName)
	logger := logging.WithContext(ctx, s.logger)
	defer s.next.RequestCompletion()

	root := filepath.Clean(s.settings.Root)
	skipDir := ""
	if s.settings.SkipDir != "" {
		skipDir = filepath.Clean(s.settings.SkipDir)
	}

	err := afero.Walk(s.fs, root, func(path string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			return services.Wrap(services.ErrFatal, StageName, "walk", path, walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && s.settings.SkipHidden && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if skipDir != "" && path == skipDir {
				logger.Debug("skipping destination tree inside source",
					logging.String("path", path),
				)
				return filepath.SkipDir
			}
			return nil
		}

		began := time.Now()
		if !info.Mode().IsRegular() || !s.supported(path) {
			result.Unhandled++
			result.UnhandledPaths = append(result.UnhandledPaths, path)
			s.observe(nil, stage.OutcomeUnhandled, time.Since(began))
			return nil
		}

		rec := record.New(path, s.birthTime(path, info), info.ModTime(), info.Size(), s.settings.Sentinel)
		if !s.next.Submit(ctx, rec) {
			if err := ctx.Err(); err != nil {
				return err
			}
			return services.Wrap(services.ErrFatal, StageName, "submit", "next stage "+s.next.Name()+" stopped accepting records", stage.ErrDownstreamClosed)
		}
		result.Handled++
		s.observe(rec, stage.OutcomeHandled, time.Since(began))
		return nil
	})

	result.Total = time.Since(start)
	result.Processing = result.Total
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			logging.ErrorWithContext(logger, "source walk aborted", "scan_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that paths.source_dir exists and is readable"),
			)
		}
		return result, err
	}

	logger.Info("source walk complete",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.Int("matched", result.Handled),
		logging.Int("skipped", result.Unhandled),
		logging.Duration("scan_duration", result.Total),
	)
	return result, nil
}

func (s *Scanner) supported(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	_, ok := s.extensions[s.folder.String(ext)]
	return ok
}

func (s *Scanner) observe(rec *record.Record, outcome stage.Outcome, elapsed time.Duration) {
	if s.observer != nil {
		s.observer.Observe(StageName, rec, outcome, elapsed, nil)
	}
}
