package destination

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"mediasort/internal/config"
	"mediasort/internal/record"
	"mediasort/internal/services"
	"mediasort/internal/textutil"
)

// StageName identifies the destination stage in results and logs.
const StageName = "destination"

// maxSuffix bounds the INCREASE search.
const maxSuffix = 999999

// Outcome describes what Resolve decided for a record.
type Outcome int

const (
	// OutcomePlaced means the record goes to a dated destination.
	OutcomePlaced Outcome = iota
	// OutcomeQuarantined means the record goes to the no-capture-date directory.
	OutcomeQuarantined
	// OutcomeSkippedNoDate means the record stays put for lack of a capture date.
	OutcomeSkippedNoDate
	// OutcomeSkippedDuplicate means the record stays put because its name is taken.
	OutcomeSkippedDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomePlaced:
		return "placed"
	case OutcomeQuarantined:
		return "quarantined"
	case OutcomeSkippedNoDate:
		return "skipped_no_date"
	case OutcomeSkippedDuplicate:
		return "skipped_duplicate"
	default:
		return "unknown"
	}
}

// Decision is the result of resolving one record.
type Decision struct {
	// Path is the chosen destination, empty when the record stays put.
	Path    string
	Outcome Outcome
	// Existing is the first occupied candidate when a collision occurred.
	Existing string
	// Identical reports that Existing holds the same content.
	Identical bool
}

// ExistsFunc reports whether something already occupies path.
type ExistsFunc func(path string) bool

// HashFunc returns the SHA-256 of the file at path.
type HashFunc func(path string) ([]byte, error)

// Settings is the configuration subset the resolver needs.
type Settings struct {
	BaseDir           string
	DirectoryTemplate string
	FileTemplate      string
	NoCaptureDate     config.NoCaptureDatePolicy
	NoCaptureDateDir  string
	Duplicate         config.DuplicatePolicy
	VerifyContent     bool
}

// SettingsFromConfig extracts resolver settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		BaseDir:           cfg.Paths.DestinationDir,
		DirectoryTemplate: cfg.Layout.DirectoryTemplate,
		FileTemplate:      cfg.Layout.FileTemplate,
		NoCaptureDate:     cfg.Policy.NoCaptureDate,
		NoCaptureDateDir:  cfg.Policy.NoCaptureDateDir,
		Duplicate:         cfg.Policy.Duplicate,
		VerifyContent:     cfg.Policy.VerifyContent,
	}
}

// Resolver computes destinations. It holds no per-run state; see Processor
// for the stage wrapper that remembers names claimed earlier in a run.
type Resolver struct {
	settings Settings
	exists   ExistsFunc
	hash     HashFunc
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHash sets the function used to hash occupied candidates when
// VerifyContent is on.
func WithHash(hash HashFunc) Option {
	return func(r *Resolver) { r.hash = hash }
}

// New builds a resolver.
func New(settings Settings, exists ExistsFunc, opts ...Option) *Resolver {
	r := &Resolver{settings: settings, exists: exists}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve decides the destination for rec. Errors from the stop policies are
// marked services.ErrFatal.
func (r *Resolver) Resolve(rec *record.Record) (Decision, error) {
	var dir, name string
	outcome := OutcomePlaced

	if rec.HasCaptureDate() {
		dir, name = r.dated(rec, rec.CaptureDate())
	} else {
		switch r.settings.NoCaptureDate {
		case config.NoCaptureDateSkip:
			return Decision{Outcome: OutcomeSkippedNoDate}, nil
		case config.NoCaptureDateFixedDir:
			dir = filepath.Join(r.settings.BaseDir, r.settings.NoCaptureDateDir)
			name = filepath.Base(rec.SourcePath())
			outcome = OutcomeQuarantined
		case config.NoCaptureDateFallbackModified:
			dir, name = r.dated(rec, rec.ModifiedTime())
		case config.NoCaptureDateStop:
			return Decision{}, services.Wrap(services.ErrFatal, StageName, "resolve",
				"no capture date for "+rec.SourcePath()+" and policy.no_capture_date is stop", nil)
		default:
			return Decision{}, services.Wrap(services.ErrConfiguration, StageName, "resolve",
				fmt.Sprintf("unknown no-capture-date policy %q", r.settings.NoCaptureDate), nil)
		}
	}

	return r.claim(rec, dir, name, outcome)
}

func (r *Resolver) dated(rec *record.Record, date time.Time) (string, string) {
	date = date.UTC()
	dirPart := textutil.SanitizeRelativePath(strftime.Format(r.settings.DirectoryTemplate, date))
	dir := filepath.Join(r.settings.BaseDir, filepath.FromSlash(dirPart))
	name := textutil.SanitizeFileName(strftime.Format(r.settings.FileTemplate, date)) + rec.Ext()
	return dir, name
}

// claim applies the duplicate policy to dir/name.
func (r *Resolver) claim(rec *record.Record, dir, name string, outcome Outcome) (Decision, error) {
	candidate := filepath.Join(dir, name)
	if !r.exists(candidate) {
		return Decision{Path: candidate, Outcome: outcome}, nil
	}
	existing := candidate

	switch r.settings.Duplicate {
	case config.DuplicateSkip:
		return Decision{Outcome: OutcomeSkippedDuplicate, Existing: existing, Identical: r.identical(rec, candidate)}, nil
	case config.DuplicateStop:
		return Decision{}, services.Wrap(services.ErrFatal, StageName, "resolve",
			"destination "+candidate+" exists and policy.duplicate is stop", services.ErrConflict)
	case config.DuplicateIncrease:
		if r.identical(rec, candidate) {
			return Decision{Outcome: OutcomeSkippedDuplicate, Existing: existing, Identical: true}, nil
		}
	default:
		return Decision{}, services.Wrap(services.ErrConfiguration, StageName, "resolve",
			fmt.Sprintf("unknown duplicate policy %q", r.settings.Duplicate), nil)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; i <= maxSuffix; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%03d%s", stem, i, ext))
		if !r.exists(candidate) {
			return Decision{Path: candidate, Outcome: outcome, Existing: existing}, nil
		}
		if r.identical(rec, candidate) {
			return Decision{Outcome: OutcomeSkippedDuplicate, Existing: candidate, Identical: true}, nil
		}
	}
	return Decision{}, services.Wrap(services.ErrConflict, StageName, "resolve",
		fmt.Sprintf("no free name for %s after %d attempts", filepath.Join(dir, name), maxSuffix), nil)
}

// identical reports whether path holds the same bytes as rec. Dated names
// encode the effective date, so there a matching name plus hash means the same
// date too. Quarantined names keep the source name and are compared by hash
// alone.
func (r *Resolver) identical(rec *record.Record, path string) bool {
	if !r.settings.VerifyContent || r.hash == nil || len(rec.Hash()) == 0 {
		return false
	}
	existing, err := r.hash(path)
	if err != nil {
		return false
	}
	return bytes.Equal(existing, rec.Hash())
}
