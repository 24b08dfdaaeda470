package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTarget()
	if err := c.normalizeInstrument(); err != nil {
		return err
	}
	c.normalizeExtensions()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	if c.Watch.SettleSeconds == 0 {
		c.Watch.SettleSeconds = defaultWatchSettleSeconds
	}
	c.Interactive.PauseOnExit = strings.ToLower(strings.TrimSpace(c.Interactive.PauseOnExit))
	if c.Interactive.PauseOnExit == "" {
		c.Interactive.PauseOnExit = defaultPauseOnExit
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTarget() {
	if value, ok := os.LookupEnv("QMUNLOCK_TARGET"); ok && strings.TrimSpace(value) != "" {
		c.Target.ProcessName = value
	}
	c.Target.ProcessName = strings.TrimSpace(c.Target.ProcessName)
}

func (c *Config) normalizeInstrument() error {
	if value, ok := os.LookupEnv("QMUNLOCK_SCRIPT"); ok && strings.TrimSpace(value) != "" {
		c.Instrument.ScriptPath = value
	}
	var err error
	if c.Instrument.ScriptPath, err = expandPath(strings.TrimSpace(c.Instrument.ScriptPath)); err != nil {
		return fmt.Errorf("instrument.script_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeExtensions() {
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions()
		return
	}
	for i := range c.Extensions {
		c.Extensions[i].Source = normalizeExtension(c.Extensions[i].Source)
		c.Extensions[i].Target = strings.TrimPrefix(strings.TrimSpace(c.Extensions[i].Target), ".")
	}
}

func normalizeExtension(value string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), "."))
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = ""
		return nil
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
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
