// Package metrics provides Prometheus instrumentation for a mediasort run.
//
// Each run gets its own registry so repeated runs in one process (tests, a
// future watch mode) never collide on registration. All metrics are prefixed
// with "mediasort_".
//
// # Metrics
//
//   - RecordsTotal: counter of records by stage and outcome
//   - RecordDuration: histogram of per-record processing time by stage
//   - FailuresTotal: counter of failed records by stage and failure kind
//   - BytesRelocated: counter of bytes the mover copied or moved
//   - RunDuration, LastRunTimestamp: gauges set when the run finishes
//
// # Export
//
// A run is short lived, so metrics are written once to a node_exporter
// textfile instead of being scraped:
//
//	rec := metrics.NewRecorder()
//	// ... pass rec as the stage observer ...
//	rec.Finish(elapsed)
//	err := rec.WriteTextfile("/var/lib/node_exporter/mediasort.prom")
package metrics
