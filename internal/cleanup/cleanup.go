// Package cleanup removes source directories a move run has emptied.
package cleanup

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"mediasort/internal/logging"
)

// Result contains the outcome of a prune.
type Result struct {
	Removed []string
	Errors  []Error
}

// Error pairs a directory path with its cleanup error.
type Error struct {
	Path  string
	Error error
}

// PruneEmpty removes empty directories below root, deepest first, so a parent
// emptied by removing its children goes too. root itself and the keep subtree
// are never removed.
func PruneEmpty(ctx context.Context, fsys afero.Fs, root, keep string, logger *slog.Logger) Result {
	result := Result{}
	if logger == nil {
		logger = logging.NewNop()
	}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}
	root = filepath.Clean(root)
	if keep != "" {
		keep = filepath.Clean(keep)
	}

	var dirs []string
	err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, Error{Path: path, Error: err})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if keep != "" && path == keep {
			return filepath.SkipDir
		}
		if path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		result.Errors = append(result.Errors, Error{Path: root, Error: err})
		return result
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			break
		}
		dirPath := dirs[i]
		entries, err := afero.ReadDir(fsys, dirPath)
		if err != nil {
			result.Errors = append(result.Errors, Error{Path: dirPath, Error: err})
			continue
		}
		if len(entries) > 0 {
			continue
		}
		if err := fsys.Remove(dirPath); err != nil {
			result.Errors = append(result.Errors, Error{Path: dirPath, Error: err})
			logger.Warn("failed to remove empty source directory",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "prune_failed"),
				logging.String(logging.FieldErrorHint, "check source_dir permissions"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Debug("removed empty source directory",
			logging.String("path", dirPath),
			logging.String(logging.FieldEventType, "prune"),
		)
	}

	return result
}
