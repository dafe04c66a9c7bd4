package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"sceneforge/internal/api"
	"sceneforge/internal/config"
)

type commandContext struct {
	addressFlag *string
	configFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addressFlag, configFlag *string) *commandContext {
	return &commandContext{
		addressFlag: addressFlag,
		configFlag:  configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// client builds an API client from the --address flag, falling back to the
// configured bind address. The token comes from config or SCENEFORGE_API_TOKEN.
func (c *commandContext) client() (*api.Client, error) {
	address := ""
	if c.addressFlag != nil {
		address = strings.TrimSpace(*c.addressFlag)
	}

	token := os.Getenv("SCENEFORGE_API_TOKEN")
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if address == "" {
		address = cfg.Paths.APIBind
	}
	if token == "" {
		token = cfg.Paths.APIToken
	}
	if address == "" {
		return nil, errors.New("no daemon address configured; set paths.api_bind or pass --address")
	}
	return api.NewClient(address, token), nil
}

func wrapDaemonError(err error) error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("daemon is not reachable; start it with `sceneforged`: %w", err)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
