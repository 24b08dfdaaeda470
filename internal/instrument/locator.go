package instrument

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"qmunlock/internal/logging"
	"qmunlock/internal/services"
)

// Locator finds the target application among the device's processes.
type Locator struct {
	runtime Runtime
	logger  *slog.Logger
}

// NewLocator constructs a locator over the supplied runtime.
func NewLocator(rt Runtime, logger *slog.Logger) *Locator {
	return &Locator{runtime: rt, logger: logging.NewComponentLogger(logger, "locator")}
}

// FindTarget returns the first process whose display name contains
// nameSubstring, ignoring case. When several processes match, the winner is
// the first in the runtime's enumeration order, which differs between
// platforms and is not guaranteed to be stable across runs.
func (l *Locator) FindTarget(ctx context.Context, nameSubstring string) (TargetProcess, error) {
	matches, err := l.Matches(ctx, nameSubstring)
	if err != nil {
		return TargetProcess{}, err
	}
	if len(matches) == 0 {
		return TargetProcess{}, services.Wrap(services.ErrTargetNotFound, "locator", "find",
			fmt.Sprintf("no running process matches %q; start the target application first", nameSubstring), nil)
	}
	target := matches[0]
	attrs := []slog.Attr{logging.Int("pid", target.PID), logging.String("name", target.Name)}
	if len(matches) > 1 {
		attrs = append(attrs, logging.Int("matches", len(matches)))
	}
	l.logger.Info("target process located", logging.Args(attrs...)...)
	return target, nil
}

// Matches lists every process whose display name contains nameSubstring,
// ignoring case, in enumeration order.
func (l *Locator) Matches(ctx context.Context, nameSubstring string) ([]TargetProcess, error) {
	needle := cases.Fold().String(strings.TrimSpace(nameSubstring))
	if needle == "" {
		return nil, services.Wrap(services.ErrConfiguration, "locator", "find", "process name substring is empty", nil)
	}
	if l.runtime == nil {
		return nil, services.Wrap(services.ErrConfiguration, "locator", "find", "instrumentation runtime unavailable", nil)
	}
	procs, err := l.runtime.EnumerateProcesses(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTargetNotFound, "locator", "enumerate processes", "", err)
	}
	var out []TargetProcess
	for _, p := range procs {
		if strings.Contains(cases.Fold().String(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out, nil
}
