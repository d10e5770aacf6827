package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ayusman/fretsense/internal/app"
	"github.com/ayusman/fretsense/internal/config"
	"github.com/ayusman/fretsense/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// defaultConfigPath returns ~/.fretsense/config.toml.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".fretsense", "config.toml")
}

// ensureConfig loads the configuration once. An explicit --config path must
// exist; the default path falls back to built-in defaults when absent.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := ""
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path != "" {
			c.config, c.configErr = config.Load(path)
			return
		}

		path = defaultConfigPath()
		cfg, err := config.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			c.config = config.Default()
			return
		}
		c.config, c.configErr = cfg, err
	})
	return c.config, c.configErr
}

// openStore opens the configured database, creating its directory if needed.
func (c *commandContext) openStore() (*config.Config, *store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Paths.DatabasePath), 0755); err != nil {
		return nil, nil, err
	}
	st, err := store.New(cfg.Paths.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

// openApp builds the full application on top of the configured store.
// The caller owns the returned app and must Close it.
func (c *commandContext) openApp() (*config.Config, *store.Store, *app.App, error) {
	cfg, st, err := c.openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	a, err := app.New(cfg, st)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	return cfg, st, a, nil
}
