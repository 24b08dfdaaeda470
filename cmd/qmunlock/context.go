package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"qmunlock/internal/config"
	"qmunlock/internal/history"
	"qmunlock/internal/instrument"
	"qmunlock/internal/instrument/fridart"
	"qmunlock/internal/logging"
	"qmunlock/internal/runner"
	"qmunlock/internal/services"
)

type commandContext struct {
	configFlag string
	scriptFlag string
	targetFlag string
	noPause    bool

	stdin io.Reader
	// newRuntime constructs the instrumentation runtime; tests replace it.
	newRuntime func() (instrument.Runtime, error)

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(stdin io.Reader) *commandContext {
	return &commandContext{
		stdin: stdin,
		newRuntime: func() (instrument.Runtime, error) {
			return fridart.New()
		},
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "load config", path, err)
			return
		}
		if script := strings.TrimSpace(c.scriptFlag); script != "" {
			expanded, err := config.ExpandPath(script)
			if err != nil {
				c.configErr = services.Wrap(services.ErrConfiguration, "cli", "--script", script, err)
				return
			}
			cfg.Instrument.ScriptPath = expanded
		}
		if target := strings.TrimSpace(c.targetFlag); target != "" {
			cfg.Target.ProcessName = target
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "ensure directories", "", err)
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// loggerFor builds the command logger: console output on the command's
// stderr plus the persistent log file.
func (c *commandContext) loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{cfg.LogPath()},
		Writers:     []io.Writer{cmd.ErrOrStderr()},
	})
}

func (c *commandContext) openRuntime() (instrument.Runtime, error) {
	rt, err := c.newRuntime()
	if err != nil {
		return nil, services.Wrap(services.ErrAttach, "cli", "initialize runtime", "", err)
	}
	return rt, nil
}

// withRunner wires config, logging, the runtime, and the history ledger into
// a runner and tears them down after fn returns.
func (c *commandContext) withRunner(cmd *cobra.Command, fn func(*runner.Runner, *slog.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.loggerFor(cmd)
	if err != nil {
		return err
	}

	rt, err := c.openRuntime()
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to release instrumentation runtime", logging.Error(err))
		}
	}()

	opts := []runner.Option{runner.WithOutput(cmd.OutOrStdout())}
	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			logger.Warn("history ledger unavailable; outcomes will not be recorded",
				logging.Error(err),
				logging.String(logging.FieldEventType, "history_open_failed"),
			)
		} else {
			defer store.Close()
			opts = append(opts, runner.WithRecorder(store))
		}
	}

	return fn(runner.New(cfg, rt, logger, opts...), logger)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
