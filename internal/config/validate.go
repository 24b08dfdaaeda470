package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTarget(); err != nil {
		return err
	}
	if err := c.validateInstrument(); err != nil {
		return err
	}
	if err := c.validateExtensions(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateInteractive(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTarget() error {
	if c.Target.ProcessName == "" {
		return errors.New("target.process_name must be set (set QMUNLOCK_TARGET or edit the config file)")
	}
	return nil
}

func (c *Config) validateInstrument() error {
	if c.Instrument.CallTimeoutSeconds < 0 {
		return errors.New("instrument.call_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateExtensions() error {
	if len(c.Extensions) == 0 {
		return errors.New("extensions table must contain at least one entry")
	}
	seen := make(map[string]struct{}, len(c.Extensions))
	for i, ext := range c.Extensions {
		if ext.Source == "" || ext.Target == "" {
			return fmt.Errorf("extensions[%d]: source and target must be set", i)
		}
		if strings.ContainsAny(ext.Source+ext.Target, `./\`) {
			return fmt.Errorf("extensions[%d]: %q -> %q must be bare extensions", i, ext.Source, ext.Target)
		}
		if _, dup := seen[ext.Source]; dup {
			return fmt.Errorf("extensions[%d]: source %q is mapped more than once", i, ext.Source)
		}
		seen[ext.Source] = struct{}{}
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.SettleSeconds < 1 {
		return errors.New("watch.settle_seconds must be >= 1")
	}
	return nil
}

func (c *Config) validateInteractive() error {
	switch c.Interactive.PauseOnExit {
	case PauseAuto, PauseAlways, PauseNever:
		return nil
	default:
		return fmt.Errorf("interactive.pause_on_exit: unsupported value %q (want auto, always, or never)", c.Interactive.PauseOnExit)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
