package stage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mediasort/internal/logging"
	"mediasort/internal/record"
	"mediasort/internal/services"
)

// DefaultCapacity is the queue size used when none is configured.
const DefaultCapacity = 1024

// ErrDownstreamClosed is returned by Run when the next stage stopped accepting
// records before this stage drained its input.
var ErrDownstreamClosed = errors.New("downstream stage closed")

// Processor is the per-stage hook. It returns true when it handled the record
// and false when it declined it. Errors marked with services.ErrFatal stop the
// stage; any other error counts the record as failed and processing continues.
type Processor interface {
	Process(ctx context.Context, rec *record.Record) (bool, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, rec *record.Record) (bool, error)

// Process calls f(ctx, rec).
func (f ProcessorFunc) Process(ctx context.Context, rec *record.Record) (bool, error) {
	return f(ctx, rec)
}

// Observer receives every per-record outcome. Implementations must be safe for
// concurrent use because each stage calls it from its own goroutine. rec is nil
// for files the scanner skipped before a record was built.
type Observer interface {
	Observe(stage string, rec *record.Record, outcome Outcome, elapsed time.Duration, err error)
}

// Stage is one concurrent unit of the pipeline.
type Stage struct {
	name      string
	processor Processor
	next      *Stage
	logger    *slog.Logger
	observer  Observer
	capacity  int

	queue      chan *record.Record
	completion chan struct{}
	requested  atomic.Bool

	terminal     chan struct{}
	terminalOnce sync.Once

	// mu orders Submit's entry against the terminal transition so Run can
	// wait out every send that started before it.
	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// Option configures a Stage.
type Option func(*Stage)

// WithCapacity bounds the input queue. Values below 1 select DefaultCapacity.
func WithCapacity(n int) Option {
	return func(s *Stage) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithNext chains next as the downstream stage.
func WithNext(next *Stage) Option {
	return func(s *Stage) { s.next = next }
}

// WithLogger sets the stage logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stage) { s.logger = logger }
}

// WithObserver registers an outcome observer.
func WithObserver(observer Observer) Option {
	return func(s *Stage) { s.observer = observer }
}

// New constructs a stage named name around processor.
func New(name string, processor Processor, opts ...Option) *Stage {
	s := &Stage{
		name:      name,
		processor: processor,
		capacity:  DefaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.queue = make(chan *record.Record, s.capacity)
	s.completion = make(chan struct{})
	s.terminal = make(chan struct{})
	return s
}

// Name returns the stage name.
func (s *Stage) Name() string { return s.name }

// Len returns the number of records waiting in the queue.
func (s *Stage) Len() int { return len(s.queue) }

// Cap returns the queue capacity.
func (s *Stage) Cap() int { return cap(s.queue) }

// Done is closed once Run has exited and the stage accepts no more records.
func (s *Stage) Done() <-chan struct{} { return s.terminal }

// Submit enqueues rec, blocking while the queue is full. It returns false
// without enqueuing when the stage is terminal or ctx is cancelled; callers
// must stop submitting once that happens. A record accepted while Run is
// exiting is counted in Result.Abandoned rather than lost.
func (s *Stage) Submit(ctx context.Context, rec *record.Record) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	select {
	case s.queue <- rec:
		return true
	case <-s.terminal:
		return false
	case <-ctx.Done():
		return false
	}
}

// RequestCompletion signals that no more input will arrive. Only the first
// call has an effect; it wakes a worker blocked on an empty queue.
func (s *Stage) RequestCompletion() {
	if s.requested.CompareAndSwap(false, true) {
		close(s.completion)
	}
}

// CompletionRequested reports whether RequestCompletion has been called.
func (s *Stage) CompletionRequested() bool {
	return s.requested.Load()
}

// Run is the stage worker loop. It returns when the queue is drained after
// completion was requested, when ctx is cancelled, when the processor reports
// a fatal error, or when the downstream stage stops accepting records. In
// every case it marks the stage terminal and requests completion downstream.
func (s *Stage) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	result := Result{Stage: s.name}
	ctx = services.WithStage(ctx, s.name)
	logger := logging.WithContext(ctx, s.logger)

	runErr := s.loop(ctx, logger, &result)

	s.markTerminal()
	result.Abandoned = s.discardQueued()
	if result.Abandoned > 0 {
		logging.WarnWithContext(logger, "stage stopped with queued records", "stage_abandoned",
			logging.Int("abandoned", result.Abandoned),
			logging.Alert("queued_records_abandoned"),
			logging.String(logging.FieldImpact, "queued files were not processed"),
			logging.String(logging.FieldErrorHint, "rerun once the cause of the stop is fixed"),
		)
	}
	if s.next != nil {
		s.next.RequestCompletion()
	}
	result.Total = time.Since(start)

	logger.Debug("stage finished",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("handled", result.Handled),
		logging.Int("unhandled", result.Unhandled),
		logging.Int("failed", result.Failed),
		logging.Duration("stage_duration", result.Total),
	)
	return result, runErr
}

func (s *Stage) loop(ctx context.Context, logger *slog.Logger, result *Result) error {
	for {
		rec, ok := s.take(ctx)
		if !ok {
			return ctx.Err()
		}

		began := time.Now()
		handled, err := s.processor.Process(services.WithSourcePath(ctx, rec.SourcePath()), rec)
		elapsed := time.Since(began)
		result.Processing += elapsed

		outcome := OutcomeUnhandled
		switch {
		case err != nil:
			outcome = OutcomeFailed
		case handled:
			outcome = OutcomeHandled
		}
		result.record(outcome, rec.SourcePath())
		if s.observer != nil {
			s.observer.Observe(s.name, rec, outcome, elapsed, err)
		}

		if err != nil {
			if services.IsFatal(err) {
				logging.ErrorWithContext(logger, "stage stopped by fatal error", "stage_fatal",
					logging.String(logging.FieldSource, rec.SourcePath()),
					logging.Error(err),
				)
				return err
			}
			logging.WarnWithContext(logger, "record processing failed", "record_failed",
				logging.String(logging.FieldSource, rec.SourcePath()),
				logging.Error(err),
			)
		}

		if s.next == nil {
			continue
		}
		if !s.next.Submit(ctx, rec) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return services.Wrap(services.ErrFatal, s.name, "forward", "next stage "+s.next.name+" stopped accepting records", ErrDownstreamClosed)
		}
	}
}

// take returns the next queued record. It blocks on an empty queue until a
// record arrives, completion is requested, or ctx is cancelled. Records queued
// before completion are always returned first.
func (s *Stage) take(ctx context.Context) (*record.Record, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	select {
	case rec := <-s.queue:
		return rec, true
	default:
	}
	select {
	case rec := <-s.queue:
		return rec, true
	case <-s.completion:
		select {
		case rec := <-s.queue:
			return rec, true
		default:
			return nil, false
		}
	case <-ctx.Done():
		return nil, false
	}
}

// markTerminal stops new submissions, wakes blocked senders, and waits for
// sends already in progress to settle so discardQueued sees their records.
func (s *Stage) markTerminal() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.terminalOnce.Do(func() { close(s.terminal) })
	s.inflight.Wait()
}

func (s *Stage) discardQueued() int {
	n := 0
	for {
		select {
		case <-s.queue:
			n++
		default:
			return n
		}
	}
}
