package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	if err := c.validateLayout(); err != nil {
		return err
	}
	if err := c.validatePolicy(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.SourceDir == "" {
		return fmt.Errorf("paths.source_dir is required. Set %s, pass --source, or edit the config file (create with 'mediasort config init')", envSourceDir)
	}
	if c.Paths.DestinationDir == "" {
		return fmt.Errorf("paths.destination_dir is required. Set %s, pass --dest, or edit the config file (create with 'mediasort config init')", envDestinationDir)
	}
	if c.Paths.SourceDir == c.Paths.DestinationDir {
		return errors.New("paths.source_dir and paths.destination_dir must differ")
	}
	return nil
}

func (c *Config) validateRun() error {
	if c.Run.QueueCapacity < 1 || c.Run.QueueCapacity > maxQueueCapacity {
		return fmt.Errorf("run.queue_capacity must be between 1 and %d", maxQueueCapacity)
	}
	if c.Run.ShutdownGraceSeconds < 1 || c.Run.ShutdownGraceSeconds > maxShutdownGraceSeconds {
		return fmt.Errorf("run.shutdown_grace_seconds must be between 1 and %d", maxShutdownGraceSeconds)
	}
	return nil
}

func (c *Config) validateLayout() error {
	if err := validateTemplate("layout.directory_template", c.Layout.DirectoryTemplate); err != nil {
		return err
	}
	if err := validateTemplate("layout.file_template", c.Layout.FileTemplate); err != nil {
		return err
	}
	if strings.ContainsAny(c.Layout.FileTemplate, `/\`) {
		return errors.New("layout.file_template must not contain path separators")
	}
	return nil
}

func validateTemplate(key, value string) error {
	if !strings.Contains(value, "%") {
		return fmt.Errorf("%s must contain at least one strftime directive", key)
	}
	for _, part := range strings.Split(value, "/") {
		if part == ".." {
			return fmt.Errorf("%s must not contain '..'", key)
		}
	}
	return nil
}

func (c *Config) validatePolicy() error {
	if !c.Policy.NoCaptureDate.Valid() {
		return fmt.Errorf("policy.no_capture_date must be one of skip, fixed_dir, fallback_modified_date, stop (got %q)", c.Policy.NoCaptureDate)
	}
	if !c.Policy.Duplicate.Valid() {
		return fmt.Errorf("policy.duplicate must be one of skip, increase, stop (got %q)", c.Policy.Duplicate)
	}
	dir := c.Policy.NoCaptureDateDir
	if filepath.IsAbs(dir) || dir == "." || dir == ".." || strings.HasPrefix(dir, ".."+string(filepath.Separator)) {
		return fmt.Errorf("policy.no_capture_date_dir must be a relative path inside the destination (got %q)", dir)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
