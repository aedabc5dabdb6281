package destination

import (
	"context"
	"log/slog"
	"sync"

	"mediasort/internal/logging"
	"mediasort/internal/record"
	"mediasort/internal/services"
)

// Duplicate pairs a source with the occupied destination it collided with.
type Duplicate struct {
	Source   string
	Existing string
	// Destination is the numbered name chosen instead, empty when the
	// record was skipped.
	Destination string
	Identical   bool
}

// Processor is the destination stage processor. It remembers every name
// claimed earlier in the run and treats those as occupied, so a dry run (which
// creates nothing) and several files sharing a timestamp still get distinct
// destinations.
type Processor struct {
	resolver *Resolver
	logger   *slog.Logger

	mu         sync.Mutex
	claimed    map[string][]byte
	duplicates []Duplicate
	outcomes   map[Outcome]int
}

// NewProcessor wraps a resolver built from settings. hash may be nil when
// content verification is off.
func NewProcessor(settings Settings, exists ExistsFunc, hash HashFunc, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Processor{
		logger:   logger,
		claimed:  make(map[string][]byte),
		outcomes: make(map[Outcome]int),
	}
	claimedExists := func(path string) bool {
		if _, ok := p.claimed[path]; ok {
			return true
		}
		return exists(path)
	}
	claimedHash := func(path string) ([]byte, error) {
		if sum, ok := p.claimed[path]; ok {
			return sum, nil
		}
		if hash == nil {
			return nil, services.ErrNotFound
		}
		return hash(path)
	}
	p.resolver = New(settings, claimedExists, WithHash(claimedHash))
	return p
}

// Process implements stage.Processor. Records that will be relocated are
// handled; skipped records are unhandled.
func (p *Processor) Process(ctx context.Context, rec *record.Record) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	decision, err := p.resolver.Resolve(rec)
	if err != nil {
		return false, err
	}
	p.outcomes[decision.Outcome]++

	logger := logging.WithContext(ctx, p.logger)
	if decision.Existing != "" {
		p.duplicates = append(p.duplicates, Duplicate{
			Source:      rec.SourcePath(),
			Existing:    decision.Existing,
			Destination: decision.Path,
			Identical:   decision.Identical,
		})
		logger.Debug("destination already taken",
			logging.String(logging.FieldEventType, "destination_collision"),
			logging.String("existing", decision.Existing),
			logging.String(logging.FieldDestination, decision.Path),
			logging.Bool("identical", decision.Identical),
		)
	}

	if decision.Path == "" {
		logger.Debug("record left in place",
			logging.String(logging.FieldEventType, "destination_skipped"),
			logging.String("reason", decision.Outcome.String()),
		)
		return false, nil
	}

	if err := rec.SetDestination(decision.Path); err != nil {
		return false, services.Wrap(services.ErrValidation, StageName, "set destination", rec.SourcePath(), err)
	}
	p.claimed[decision.Path] = rec.Hash()
	logger.Debug("destination resolved",
		logging.String(logging.FieldEventType, "destination_resolved"),
		logging.String(logging.FieldDestination, decision.Path),
		logging.String("outcome", decision.Outcome.String()),
	)
	return true, nil
}

// Duplicates returns the collisions seen so far.
func (p *Processor) Duplicates() []Duplicate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Duplicate(nil), p.duplicates...)
}

// Outcomes returns how many records ended in each outcome.
func (p *Processor) Outcomes() map[Outcome]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[Outcome]int, len(p.outcomes))
	for k, v := range p.outcomes {
		out[k] = v
	}
	return out
}
