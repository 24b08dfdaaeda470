package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"qmunlock/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The collaborator script is written to disk so ReadScript succeeds.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputDir = filepath.Join(base, "input")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Instrument.ScriptPath = filepath.Join(base, "decrypt.js")
	cfgVal.Interactive.PauseOnExit = config.PauseNever
	cfgVal.Watch.SettleSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	WithScriptSource("rpc.exports = { decrypt(src, dst) {} };")(builder)

	for _, opt := range opts {
		opt(builder)
	}

	if err := os.MkdirAll(cfgVal.Paths.InputDir, 0o755); err != nil {
		t.Fatalf("mkdir input dir: %v", err)
	}
	return builder.cfg
}

// WithScriptSource overwrites the collaborator script on disk.
func WithScriptSource(source string) ConfigOption {
	return func(b *configBuilder) {
		if err := os.WriteFile(b.cfg.Instrument.ScriptPath, []byte(source), 0o644); err != nil {
			b.t.Fatalf("write script: %v", err)
		}
	}
}

// WithKeepGoing enables per-file failure isolation for batch runs.
func WithKeepGoing() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Batch.KeepGoing = true
	}
}

// WithHistoryDisabled turns off the conversion ledger.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.InputDir)
}
