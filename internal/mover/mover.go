// Package mover relocates records to their resolved destinations.
package mover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"mediasort/internal/fileutil"
	"mediasort/internal/logging"
	"mediasort/internal/record"
	"mediasort/internal/services"
)

// StageName identifies the mover stage in results and logs.
const StageName = "mover"

// Relocation pairs a source with where it went.
type Relocation struct {
	Source      string
	Destination string
	Bytes       int64
}

// Settings controls how files are relocated.
type Settings struct {
	DryRun bool
	Move   bool
}

// Mover is the final stage processor.
type Mover struct {
	fsys     afero.Fs
	settings Settings
	logger   *slog.Logger

	mu          sync.Mutex
	relocations []Relocation
	bytes       int64
}

// New builds a mover writing through fsys.
func New(fsys afero.Fs, settings Settings, logger *slog.Logger) *Mover {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mover{fsys: fsys, settings: settings, logger: logger}
}

// Process implements stage.Processor. Records without a destination are
// unhandled. I/O failures are returned as ordinary errors so the stage counts
// the record failed and carries on.
func (m *Mover) Process(ctx context.Context, rec *record.Record) (bool, error) {
	if !rec.HasDestination() {
		return false, nil
	}
	dest := rec.Destination()
	logger := logging.WithContext(ctx, m.logger)

	if err := m.ensureDir(filepath.Dir(dest)); err != nil {
		return false, err
	}

	var written int64
	switch {
	case m.settings.DryRun:
		written = rec.Size()
		if fileutil.Exists(m.fsys, dest) {
			return false, services.Wrap(services.ErrConflict, StageName, "relocate", dest, fs.ErrExist)
		}
	case m.settings.Move:
		n, err := fileutil.MoveFile(m.fsys, rec.SourcePath(), dest)
		if err != nil {
			return false, m.wrap("move", dest, err)
		}
		written = n
	default:
		n, err := fileutil.CopyFile(m.fsys, rec.SourcePath(), dest)
		if err != nil {
			return false, m.wrap("copy", dest, err)
		}
		written = n
	}

	m.mu.Lock()
	m.relocations = append(m.relocations, Relocation{Source: rec.SourcePath(), Destination: dest, Bytes: written})
	m.bytes += written
	m.mu.Unlock()

	logger.Info("file relocated",
		logging.String(logging.FieldEventType, "file_relocated"),
		logging.String(logging.FieldDestination, dest),
		logging.Int64("bytes", written),
		logging.Bool("dry_run", m.settings.DryRun),
		logging.Bool("move", m.settings.Move),
	)
	return true, nil
}

func (m *Mover) ensureDir(dir string) error {
	info, err := m.fsys.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return services.Wrap(services.ErrConflict, StageName, "ensure directory",
				fmt.Sprintf("%s exists and is not a directory", dir), nil)
		}
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return services.Wrap(services.ErrTransient, StageName, "ensure directory", dir, err)
	case m.settings.DryRun:
		return nil
	}
	if err := m.fsys.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, StageName, "ensure directory", dir, err)
	}
	return nil
}

func (m *Mover) wrap(operation, dest string, err error) error {
	marker := services.ErrTransient
	if errors.Is(err, fs.ErrExist) {
		marker = services.ErrConflict
	}
	return services.Wrap(marker, StageName, operation, dest, err)
}

// Relocations returns the pairs relocated so far.
func (m *Mover) Relocations() []Relocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Relocation(nil), m.relocations...)
}

// Bytes returns the total size relocated so far.
func (m *Mover) Bytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytes
}
