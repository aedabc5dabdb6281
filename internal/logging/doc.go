// Package logging assembles structured slog loggers and formatting helpers used
// across mediasort.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can tag log lines
// with run IDs, stage names, and source paths. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
