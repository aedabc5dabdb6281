package metadata

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"

	"mediasort/internal/logging"
	"mediasort/internal/record"
)

// StageName identifies the metadata stage in results and logs.
const StageName = "metadata"

// Resolver is the metadata stage processor. Extraction failures are soft: the
// record keeps whatever hash was computed, gets no capture date, and is
// reported unhandled so the destination stage falls back to the modification
// time or the no-capture-date policy.
type Resolver struct {
	extractor Extractor
	sentinel  time.Time
	logger    *slog.Logger
}

// NewResolver builds a resolver around extractor. Capture times at or before
// sentinel are discarded.
func NewResolver(extractor Extractor, sentinel time.Time, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{extractor: extractor, sentinel: sentinel, logger: logger}
}

// Process implements stage.Processor.
func (r *Resolver) Process(ctx context.Context, rec *record.Record) (bool, error) {
	md, err := r.extractor.Extract(ctx, rec.SourcePath())
	if err != nil {
		rec.SetMetadata(nil, md.Hash, r.sentinel)
		logging.WithContext(ctx, r.logger).Debug("metadata unavailable; falling back to file times",
			logging.String(logging.FieldEventType, "metadata_unavailable"),
			logging.Error(err),
		)
		return false, nil
	}

	rec.SetMetadata(md.CaptureTime, md.Hash, r.sentinel)
	if r.logger.Enabled(ctx, slog.LevelDebug) {
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "metadata_resolved"),
			logging.String("hash", hex.EncodeToString(md.Hash)),
			logging.Bool("capture_date", rec.HasCaptureDate()),
		}
		if rec.HasCaptureDate() {
			attrs = append(attrs, logging.Time("captured_at", rec.CaptureDate()))
		}
		logging.WithContext(ctx, r.logger).Debug("metadata resolved", logging.Args(attrs...)...)
	}
	return true, nil
}
