package stage

import "time"

// Outcome classifies how a stage dealt with one record.
type Outcome int

const (
	// OutcomeHandled means the processor did its work for the record.
	OutcomeHandled Outcome = iota
	// OutcomeUnhandled means the processor declined the record.
	OutcomeUnhandled
	// OutcomeFailed means the processor returned a non-fatal error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHandled:
		return "handled"
	case OutcomeUnhandled:
		return "unhandled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the per-stage tally returned by Run. It is owned by the stage's
// worker goroutine until Run returns.
type Result struct {
	Stage     string
	Handled   int
	Unhandled int
	Failed    int
	// Abandoned counts records still queued when the stage stopped early.
	Abandoned int

	// Total is wall time from Run start to exit, including queue waits.
	Total time.Duration
	// Processing is the time spent inside the processor.
	Processing time.Duration

	UnhandledPaths []string
	FailedPaths    []string
}

// Processed returns the number of records the processor was invoked for.
func (r Result) Processed() int {
	return r.Handled + r.Unhandled + r.Failed
}

func (r *Result) record(outcome Outcome, path string) {
	switch outcome {
	case OutcomeHandled:
		r.Handled++
	case OutcomeUnhandled:
		r.Unhandled++
		r.UnhandledPaths = append(r.UnhandledPaths, path)
	case OutcomeFailed:
		r.Failed++
		r.FailedPaths = append(r.FailedPaths, path)
	}
}
