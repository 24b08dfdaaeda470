package runner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"qmunlock/internal/config"
	"qmunlock/internal/conversion"
	"qmunlock/internal/instrument"
	"qmunlock/internal/logging"
	"qmunlock/internal/router"
	"qmunlock/internal/services"
)

// Runner modes stamped into the context, logs, and history rows.
const (
	ModeSingle = "single"
	ModeBatch  = "batch"
	ModeWatch  = "watch"
)

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where script messages are echoed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithRecorder reports every routed outcome to rec.
func WithRecorder(rec conversion.Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithRunIDs overrides run id generation (used in tests).
func WithRunIDs(next func() string) Option {
	return func(r *Runner) {
		if next != nil {
			r.newRunID = next
		}
	}
}

// WithSettleInterval overrides watch.settle_seconds.
func WithSettleInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.settle = d
		}
	}
}

// Runner owns the per-run lifecycle. The instrumentation runtime is owned by
// the caller and must outlive the Runner.
type Runner struct {
	cfg       *config.Config
	runtime   instrument.Runtime
	logger    *slog.Logger
	out       io.Writer
	recorder  conversion.Recorder
	converter *conversion.Converter
	newRunID  func() string
	settle    time.Duration
}

// New constructs a runner.
func New(cfg *config.Config, rt instrument.Runtime, logger *slog.Logger, opts ...Option) *Runner {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	r := &Runner{
		cfg:      cfg,
		runtime:  rt,
		logger:   logging.NewComponentLogger(logger, "runner"),
		out:      os.Stdout,
		newRunID: uuid.NewString,
		settle:   time.Duration(cfg.Watch.SettleSeconds) * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.settle <= 0 {
		r.settle = 2 * time.Second
	}
	convOpts := []conversion.Option{}
	if r.recorder != nil {
		convOpts = append(convOpts, conversion.WithRecorder(r.recorder))
	}
	r.converter = conversion.NewConverter(router.FromConfig(cfg), logger, convOpts...)
	return r
}

// Router returns the routing table in use.
func (r *Runner) Router() *router.Router {
	return r.converter.Router()
}

// activeRun is one attached session plus the lock and context it runs under.
type activeRun struct {
	ctx     context.Context
	id      string
	logger  *slog.Logger
	lock    *Lock
	session *instrument.Session
	script  *instrument.Script
	sink    *instrument.Sink
}

func (r *Runner) start(ctx context.Context, mode string) (*activeRun, error) {
	lock, err := AcquireLock(r.cfg.LockPath())
	if err != nil {
		return nil, err
	}

	id := r.newRunID()
	ctx = services.WithMode(services.WithRunID(ctx, id), mode)
	run := &activeRun{ctx: ctx, id: id, lock: lock, logger: logging.WithContext(ctx, r.logger)}

	source, err := r.cfg.ReadScript()
	if err != nil {
		run.close()
		return nil, services.Wrap(services.ErrScriptLoad, "runner", "read script", "", err)
	}

	target, err := instrument.NewLocator(r.runtime, run.logger).FindTarget(ctx, r.cfg.Target.ProcessName)
	if err != nil {
		run.close()
		return nil, err
	}

	session, err := instrument.Attach(ctx, r.runtime, target,
		instrument.WithLogger(run.logger),
		instrument.WithCallTimeout(time.Duration(r.cfg.Instrument.CallTimeoutSeconds)*time.Second),
	)
	if err != nil {
		run.close()
		return nil, err
	}
	run.session = session

	run.sink = instrument.NewSink(r.out, run.logger)
	script, err := session.Load(ctx, source, run.sink)
	if err != nil {
		run.close()
		return nil, err
	}
	run.script = script
	process := session.Process()
	run.logger.Info("run started",
		logging.Int("pid", process.PID),
		logging.String("process", process.Name),
	)
	return run, nil
}

func (a *activeRun) messages() int64 {
	if a == nil || a.sink == nil {
		return 0
	}
	return a.sink.Count()
}

func (a *activeRun) close() {
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			a.logger.Warn("failed to close session",
				logging.Error(err),
				logging.String(logging.FieldEventType, "session_close_failed"),
			)
		}
	}
	if err := a.lock.Release(); err != nil {
		a.logger.Warn("failed to release run lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
		)
	}
	if a.session != nil {
		a.logger.Debug("run finished", logging.Int64("script_messages", a.messages()))
	}
}
