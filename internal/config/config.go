package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories a run reads from and writes to.
type Paths struct {
	SourceDir      string `toml:"source_dir"`
	DestinationDir string `toml:"destination_dir"`
	LogDir         string `toml:"log_dir"`
}

// Run contains switches that control how files are relocated.
type Run struct {
	DryRun               bool `toml:"dry_run"`
	Move                 bool `toml:"move"`
	QueueCapacity        int  `toml:"queue_capacity"`
	ShutdownGraceSeconds int  `toml:"shutdown_grace_seconds"`
	// PruneEmptyDirs removes source directories left empty by a move run.
	PruneEmptyDirs bool `toml:"prune_empty_dirs"`
}

// Media contains the file selection rules applied while scanning.
type Media struct {
	// Extensions are added to the built-in image/video list.
	Extensions    []string `toml:"extensions"`
	SkipHidden    bool     `toml:"skip_hidden"`
	SentinelEpoch string   `toml:"sentinel_epoch"`
}

// Layout contains the strftime templates used to build destination paths.
type Layout struct {
	DirectoryTemplate string `toml:"directory_template"`
	FileTemplate      string `toml:"file_template"`
}

// Policy contains the rules applied when a file lacks a capture date or
// collides with an existing destination name.
type Policy struct {
	NoCaptureDate    NoCaptureDatePolicy `toml:"no_capture_date"`
	NoCaptureDateDir string              `toml:"no_capture_date_dir"`
	Duplicate        DuplicatePolicy     `toml:"duplicate"`
	// VerifyContent suppresses a numbered copy when the colliding file has
	// the same content hash and effective date.
	VerifyContent bool `toml:"verify_content"`
}

// Report contains the end-of-run listing toggles.
type Report struct {
	ShowUnhandled   bool   `toml:"show_unhandled"`
	ShowMoved       bool   `toml:"show_moved"`
	ShowDuplicates  bool   `toml:"show_duplicates"`
	MetricsTextfile string `toml:"metrics_textfile"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediasort.
//
// Configuration sections by concern:
//   - Paths: source tree, destination base and log directory
//   - Run: dry-run, move vs copy, queue sizing and shutdown grace
//   - Media: supported extensions and the sentinel epoch
//   - Layout: directory and file name templates
//   - Policy: no-capture-date and duplicate handling
//   - Report: summary listings and metrics export
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Run     Run     `toml:"run"`
	Media   Media   `toml:"media"`
	Layout  Layout  `toml:"layout"`
	Policy  Policy  `toml:"policy"`
	Report  Report  `toml:"report"`
	Logging Logging `toml:"logging"`

	sentinel time.Time
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Override mutates a decoded config before it is normalized and validated.
// The CLI uses it to apply flags such as --source and --dest.
type Override func(*Config)

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string, overrides ...Override) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	for _, override := range overrides {
		override(&cfg)
	}
	if err := cfg.Finalize(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// Finalize normalizes and validates the config in place. Load calls it; callers
// that build a Config by hand (CLI overrides, tests) call it after mutating fields.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediasort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory. The destination tree is created
// lazily by the mover so dry runs never touch it.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	return nil
}

// Sentinel returns the parsed sentinel epoch. Capture dates at or before it and
// modification times before it are placeholders written by devices without a
// real clock.
func (c *Config) Sentinel() time.Time {
	return c.sentinel
}

// ShutdownGrace returns how long a cancelled run may drain before it is abandoned.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Run.ShutdownGraceSeconds) * time.Second
}

// NoCaptureDateDirPath returns the quarantine directory for files without a capture date.
func (c *Config) NoCaptureDateDirPath() string {
	return filepath.Join(c.Paths.DestinationDir, c.Policy.NoCaptureDateDir)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
