package config

import (
	"os"
	"strings"
)

// normalize expands user paths and fills derived defaults so the rest of the
// codebase never deals with "~" or empty directories.
func (c *Config) normalize() error {
	var err error

	if strings.TrimSpace(c.Workspace.Root) == "" {
		c.Workspace.Root = os.TempDir()
	}
	if c.Workspace.Root, err = expandPath(c.Workspace.Root); err != nil {
		return err
	}
	if c.Render.OutputDir, err = expandPath(c.Render.OutputDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Render.ManimBinary = strings.TrimSpace(c.Render.ManimBinary)
	c.Render.DefaultQuality = strings.ToLower(strings.TrimSpace(c.Render.DefaultQuality))
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	return nil
}
