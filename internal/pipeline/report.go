package pipeline

import (
	"time"

	"mediasort/internal/destination"
	"mediasort/internal/mover"
	"mediasort/internal/stage"
)

// Report summarizes one run.
type Report struct {
	RunID          string
	SourceDir      string
	DestinationDir string
	DryRun         bool
	Move           bool
	Started        time.Time
	Elapsed        time.Duration
	// Interrupted is set when the run was cancelled before it finished.
	Interrupted bool

	// Stages holds per-stage results in pipeline order: scanner, metadata,
	// destination, mover.
	Stages      []stage.Result
	Relocations []mover.Relocation
	Duplicates  []destination.Duplicate
	Outcomes    map[destination.Outcome]int
	Bytes       int64
	// PrunedDirs lists source directories removed after a move run.
	PrunedDirs []string
}

// Stage returns the result for the named stage.
func (r *Report) Stage(name string) (stage.Result, bool) {
	for _, res := range r.Stages {
		if res.Stage == name {
			return res, true
		}
	}
	return stage.Result{}, false
}

// Scanned returns how many media files the scanner emitted.
func (r *Report) Scanned() int {
	res, _ := r.Stage(stageScanner)
	return res.Handled
}

// Relocated returns how many files reached their destination.
func (r *Report) Relocated() int {
	return len(r.Relocations)
}

// Unhandled lists files that were looked at but left in place without an
// error: non-media files and records the destination policies skipped.
func (r *Report) Unhandled() []string {
	var paths []string
	for _, name := range []string{stageScanner, stageDestination, stageMover} {
		res, _ := r.Stage(name)
		paths = append(paths, res.UnhandledPaths...)
	}
	return paths
}

// Failed lists files any stage failed on.
func (r *Report) Failed() []string {
	var paths []string
	for _, res := range r.Stages {
		paths = append(paths, res.FailedPaths...)
	}
	return paths
}

// Abandoned returns how many records were still queued when the run stopped.
func (r *Report) Abandoned() int {
	total := 0
	for _, res := range r.Stages {
		total += res.Abandoned
	}
	return total
}
