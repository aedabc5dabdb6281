package testsupport

import (
	"path/filepath"
	"testing"

	"mediasort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a finalized config whose source, destination, and log
// directories live under a per-test temp directory. Runs are live (not dry
// run) copies unless an option says otherwise.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SourceDir = filepath.Join(base, "source")
	cfgVal.Paths.DestinationDir = filepath.Join(base, "library")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Run.DryRun = false
	cfgVal.Run.ShutdownGraceSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Finalize(); err != nil {
		t.Fatalf("finalize test config: %v", err)
	}
	return builder.cfg
}

// WithDryRun toggles dry-run mode.
func WithDryRun(enabled bool) ConfigOption {
	return func(b *configBuilder) { b.cfg.Run.DryRun = enabled }
}

// WithMove selects move instead of copy.
func WithMove(enabled bool) ConfigOption {
	return func(b *configBuilder) { b.cfg.Run.Move = enabled }
}

// WithPruneEmptyDirs toggles removal of emptied source directories.
func WithPruneEmptyDirs(enabled bool) ConfigOption {
	return func(b *configBuilder) { b.cfg.Run.PruneEmptyDirs = enabled }
}

// WithPolicies sets the no-capture-date and duplicate policies.
func WithPolicies(noCaptureDate config.NoCaptureDatePolicy, duplicate config.DuplicatePolicy) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Policy.NoCaptureDate = noCaptureDate
		b.cfg.Policy.Duplicate = duplicate
	}
}

// WithVerifyContent enables true-duplicate suppression.
func WithVerifyContent(enabled bool) ConfigOption {
	return func(b *configBuilder) { b.cfg.Policy.VerifyContent = enabled }
}

// WithQueueCapacity overrides the stage queue size.
func WithQueueCapacity(n int) ConfigOption {
	return func(b *configBuilder) { b.cfg.Run.QueueCapacity = n }
}

// WithDestinationInsideSource places the destination under the source tree.
func WithDestinationInsideSource() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.DestinationDir = filepath.Join(b.cfg.Paths.SourceDir, "sorted")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SourceDir)
}
