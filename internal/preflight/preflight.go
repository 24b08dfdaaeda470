package preflight

import (
	"context"

	"qmunlock/internal/config"
	"qmunlock/internal/instrument"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check for cfg. rt may be nil when the runtime could
// not be initialized; the runtime and target checks then fail.
func RunAll(ctx context.Context, cfg *config.Config, rt instrument.Runtime) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckScript(cfg.Instrument.ScriptPath),
		CheckExtensions(cfg),
		CheckDirectoryAccess("Input directory", cfg.Paths.InputDir),
		CheckOutputDirectory(cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckRuntime(rt),
	}
	if rt != nil {
		results = append(results, CheckTarget(ctx, rt, cfg.Target.ProcessName))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
