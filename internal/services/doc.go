// Package services defines shared helpers consumed by the pipeline stages.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and source paths for
//     logging.
//   - Structured error markers plus the Wrap helper that let a stage decide
//     whether a failure ends the run (ErrFatal) or only the current record.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
