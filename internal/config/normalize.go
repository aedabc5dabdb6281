package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRun()
	if err := c.normalizeMedia(); err != nil {
		return err
	}
	c.normalizeLayout()
	c.normalizePolicy()
	c.normalizeLogging()
	c.Report.MetricsTextfile = strings.TrimSpace(c.Report.MetricsTextfile)
	if c.Report.MetricsTextfile != "" {
		expanded, err := expandPath(c.Report.MetricsTextfile)
		if err != nil {
			return fmt.Errorf("report.metrics_textfile: %w", err)
		}
		c.Report.MetricsTextfile = expanded
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		if value, ok := os.LookupEnv(envSourceDir); ok {
			c.Paths.SourceDir = value
		}
	}
	if strings.TrimSpace(c.Paths.DestinationDir) == "" {
		if value, ok := os.LookupEnv(envDestinationDir); ok {
			c.Paths.DestinationDir = value
		}
	}
	var err error
	if c.Paths.SourceDir, err = expandPath(strings.TrimSpace(c.Paths.SourceDir)); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if c.Paths.DestinationDir, err = expandPath(strings.TrimSpace(c.Paths.DestinationDir)); err != nil {
		return fmt.Errorf("paths.destination_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRun() {
	if c.Run.QueueCapacity == 0 {
		c.Run.QueueCapacity = defaultQueueCapacity
	}
	if c.Run.ShutdownGraceSeconds == 0 {
		c.Run.ShutdownGraceSeconds = defaultShutdownGraceSeconds
	}
}

func (c *Config) normalizeMedia() error {
	folder := cases.Fold()
	seen := make(map[string]struct{}, len(DefaultExtensions)+len(c.Media.Extensions))
	merged := make([]string, 0, len(DefaultExtensions)+len(c.Media.Extensions))
	for _, ext := range append(append([]string{}, DefaultExtensions...), c.Media.Extensions...) {
		ext = folder.String(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		merged = append(merged, ext)
	}
	c.Media.Extensions = merged

	c.Media.SentinelEpoch = strings.TrimSpace(c.Media.SentinelEpoch)
	if c.Media.SentinelEpoch == "" {
		c.Media.SentinelEpoch = defaultSentinelEpoch
	}
	sentinel, err := parseSentinel(c.Media.SentinelEpoch)
	if err != nil {
		return fmt.Errorf("media.sentinel_epoch: %w", err)
	}
	c.sentinel = sentinel
	return nil
}

func parseSentinel(value string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 timestamp or YYYY-MM-DD, got %q", value)
	}
	return parsed.UTC(), nil
}

func (c *Config) normalizeLayout() {
	c.Layout.DirectoryTemplate = strings.Trim(strings.TrimSpace(c.Layout.DirectoryTemplate), "/")
	if c.Layout.DirectoryTemplate == "" {
		c.Layout.DirectoryTemplate = defaultDirectoryTemplate
	}
	c.Layout.FileTemplate = strings.TrimSpace(c.Layout.FileTemplate)
	if c.Layout.FileTemplate == "" {
		c.Layout.FileTemplate = defaultFileTemplate
	}
}

func (c *Config) normalizePolicy() {
	if strings.TrimSpace(string(c.Policy.NoCaptureDate)) == "" {
		c.Policy.NoCaptureDate = defaultNoCaptureDatePolicy
	} else {
		c.Policy.NoCaptureDate = ParseNoCaptureDatePolicy(string(c.Policy.NoCaptureDate))
	}
	if strings.TrimSpace(string(c.Policy.Duplicate)) == "" {
		c.Policy.Duplicate = defaultDuplicatePolicy
	} else {
		c.Policy.Duplicate = ParseDuplicatePolicy(string(c.Policy.Duplicate))
	}
	c.Policy.NoCaptureDateDir = strings.TrimSpace(c.Policy.NoCaptureDateDir)
	if c.Policy.NoCaptureDateDir == "" {
		c.Policy.NoCaptureDateDir = defaultNoCaptureDateDir
	}
	c.Policy.NoCaptureDateDir = filepath.Clean(c.Policy.NoCaptureDateDir)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
