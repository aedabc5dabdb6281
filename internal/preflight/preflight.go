package preflight

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"mediasort/internal/config"
	"mediasort/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that apply to cfg. Dry runs never write, so the
// destination only needs to be readable when it already exists.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckReadableDirectory("Source directory", cfg.Paths.SourceDir)}

	if cfg.Run.DryRun {
		results = append(results, CheckOptionalDirectory("Destination directory", cfg.Paths.DestinationDir))
	} else {
		results = append(results, CheckCreatableDirectory("Destination directory", cfg.Paths.DestinationDir))
	}
	if cfg.Run.Move && !cfg.Run.DryRun {
		results = append(results, CheckDirectoryAccess("Source directory (move)", cfg.Paths.SourceDir))
	}
	if path := strings.TrimSpace(cfg.Report.MetricsTextfile); path != "" {
		results = append(results, CheckCreatableDirectory("Metrics directory", filepath.Dir(path)))
	}
	return results
}

// Err folds failed results into a single configuration error, or nil when
// every check passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Name+": "+r.Detail)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check paths",
		fmt.Sprintf("%d check(s) failed", len(failed)), errors.New(strings.Join(failed, "; ")))
}
