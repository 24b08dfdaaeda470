package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"qmunlock/internal/config"
	"qmunlock/internal/instrument"
	"qmunlock/internal/logging"
	"qmunlock/internal/router"
)

// CheckScript verifies the collaborator script exists and is not empty.
func CheckScript(path string) Result {
	const name = "Script"

	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "instrument.script_path is not set"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a file)", path)}
	}
	if info.Size() == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: empty)", path)}
	}
	f, err := os.Open(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unreadable: %v)", path, err)}
	}
	_ = f.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d bytes)", path, info.Size())}
}

// CheckExtensions summarizes the routing table.
func CheckExtensions(cfg *config.Config) Result {
	const name = "Extensions"

	entries := router.FromConfig(cfg).Entries()
	if len(entries) == 0 {
		return Result{Name: name, Detail: "no extensions mapped"}
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Source+" -> "+e.Target)
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(parts, ", ")}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOutputDirectory accepts a missing output directory when its nearest
// existing ancestor is writable, since batch runs create it.
func CheckOutputDirectory(path string) Result {
	const name = "Output directory"

	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return CheckDirectoryAccess(name, path)
	}
	ancestor := filepath.Dir(path)
	for {
		if _, err := os.Stat(ancestor); err == nil {
			break
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			break
		}
		ancestor = parent
	}
	parentResult := CheckDirectoryAccess(name, ancestor)
	if !parentResult.Passed {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot be created under %s)", path, ancestor)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckRuntime reports the instrumentation runtime version and device.
func CheckRuntime(rt instrument.Runtime) Result {
	const name = "Instrumentation runtime"

	if rt == nil {
		return Result{Name: name, Detail: "unavailable"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("frida %s on %s", rt.Version(), rt.DeviceName())}
}

// CheckTarget verifies a process matching substring is running.
func CheckTarget(ctx context.Context, rt instrument.Runtime, substring string) Result {
	const name = "Target process"

	matches, err := instrument.NewLocator(rt, logging.NewNop()).Matches(ctx, substring)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(matches) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("no process matches %q (start the target application first)", substring)}
	}
	first := matches[0]
	detail := fmt.Sprintf("%s (pid %d)", first.Name, first.PID)
	if len(matches) > 1 {
		detail += fmt.Sprintf(", %d more match", len(matches)-1)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
