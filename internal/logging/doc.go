// Package logging assembles structured slog loggers and formatting helpers used
// across qmunlock.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so runner and conversion code can
// tag log lines with run IDs, runner modes, and source paths. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
