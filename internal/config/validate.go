package config

import (
	"errors"
	"fmt"
)

var knownQualities = map[string]struct{}{
	"low":    {},
	"medium": {},
	"high":   {},
	"extra":  {},
	"ultra":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRender() error {
	if c.Render.ManimBinary == "" {
		return errors.New("render.manim_binary must be set")
	}
	if c.Render.TimeoutSeconds <= 0 {
		return errors.New("render.timeout_seconds must be positive")
	}
	if _, ok := knownQualities[c.Render.DefaultQuality]; !ok {
		return fmt.Errorf("render.default_quality must be one of low, medium, high, extra, ultra (got %q)", c.Render.DefaultQuality)
	}
	if c.Render.OutputDir == "" {
		return errors.New("render.output_dir must be set")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
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
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
