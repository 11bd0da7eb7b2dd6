package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"signflow/internal/config"
	"signflow/internal/daemonctl"
)

type commandContext struct {
	configFlag *string
	apiFlag    *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, apiFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
			cfg.Paths.APIBind = strings.TrimSpace(*c.apiFlag)
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) client() (*daemonctl.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return daemonctl.NewClientFromConfig(cfg)
}

// withClient runs fn against the daemon and rewrites unreachable errors
// into a hint.
func (c *commandContext) withClient(fn func(*daemonctl.Client) error) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	return wrapDaemonError(fn(client), c.configValue())
}

func wrapDaemonError(err error, cfg *config.Config) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		bind := ""
		if cfg != nil {
			bind = cfg.Paths.APIBind
		}
		return fmt.Errorf("connect to daemon at %s: not running; start it with `signflow daemon start`", bind)
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

func valueOr(p *string, fallback string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return fallback
	}
	return *p
}
