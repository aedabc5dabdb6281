package main

import (
	"strings"

	"mediasort/internal/config"
)

type commandContext struct {
	configFlag *string
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// loadConfig resolves the configuration, applying overrides before
// validation, and creates the log directory.
func (c *commandContext) loadConfig(overrides ...config.Override) (*config.Config, string, bool, error) {
	cfg, path, exists, err := config.Load(c.configPath(), overrides...)
	if err != nil {
		return nil, path, exists, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, path, exists, err
	}
	return cfg, path, exists, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
