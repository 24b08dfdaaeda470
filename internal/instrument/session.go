package instrument

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"qmunlock/internal/logging"
	"qmunlock/internal/services"
)

// MessageHandler receives out-of-band messages emitted by a loaded script.
// It is invoked on the runtime's delivery thread, concurrently with Call.
type MessageHandler interface {
	OnMessage(raw string, data []byte)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, "session")
		}
	}
}

// WithCallTimeout bounds how long Call waits for a remote export. Zero, the
// default, waits until the export returns.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// Session owns one attachment and at most one loaded script.
type Session struct {
	process     TargetProcess
	remote      RemoteSession
	logger      *slog.Logger
	callTimeout time.Duration

	mu     sync.Mutex
	script *Script
	closed bool
}

// Attach establishes a session to process.
func Attach(ctx context.Context, rt Runtime, process TargetProcess, opts ...Option) (*Session, error) {
	s := &Session{process: process, logger: logging.NewComponentLogger(nil, "session")}
	for _, opt := range opts {
		opt(s)
	}
	if rt == nil {
		return nil, services.Wrap(services.ErrAttach, "session", "attach", "instrumentation runtime unavailable", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	remote, err := rt.Attach(ctx, process.PID)
	if err != nil {
		return nil, services.Wrap(services.ErrAttach, "session", "attach",
			fmt.Sprintf("pid %d (%s)", process.PID, process.Name), err)
	}
	s.remote = remote
	s.logger.Info("attached to target",
		logging.Int("pid", process.PID),
		logging.String("name", process.Name),
		logging.String("device", rt.DeviceName()),
		logging.String("runtime_version", rt.Version()),
	)
	return s, nil
}

// Process returns the process this session is attached to.
func (s *Session) Process() TargetProcess {
	return s.process
}

// Load compiles source inside the target, registers handler, and then
// activates the script. The handler is registered before activation so
// messages emitted while the script initializes are not lost.
func (s *Session) Load(ctx context.Context, source string, handler MessageHandler) (*Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, services.Wrap(services.ErrScriptLoad, "session", "load", "session is closed", nil)
	}
	if s.script != nil {
		return nil, services.Wrap(services.ErrScriptLoad, "session", "load", "a script is already loaded", nil)
	}
	if strings.TrimSpace(source) == "" {
		return nil, services.Wrap(services.ErrScriptLoad, "session", "load", "script source is empty", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	remote, err := s.remote.CreateScript(source)
	if err != nil {
		return nil, services.Wrap(services.ErrScriptLoad, "session", "compile", "", err)
	}
	if handler != nil {
		remote.OnMessage(handler.OnMessage)
	}
	if err := remote.Load(); err != nil {
		_ = remote.Unload()
		return nil, services.Wrap(services.ErrScriptLoad, "session", "activate", "", err)
	}

	s.script = &Script{remote: remote, timeout: s.callTimeout, logger: s.logger}
	s.logger.Debug("script loaded", logging.Int("source_bytes", len(source)))
	return s.script, nil
}

// Close unloads the script and detaches. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if s.script != nil {
		if err := s.script.remote.Unload(); err != nil {
			firstErr = fmt.Errorf("unload script: %w", err)
		}
		s.script = nil
	}
	if s.remote != nil {
		if err := s.remote.Detach(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("detach: %w", err)
		}
	}
	s.logger.Debug("session closed", logging.Int("pid", s.process.PID))
	return firstErr
}

// Script is a loaded collaborator script exposing remote exports.
type Script struct {
	remote  RemoteScript
	timeout time.Duration
	logger  *slog.Logger
}

type callResult struct {
	value any
	err   error
}

// Call invokes export inside the target process and blocks until it returns
// or raises. When a timeout is configured, or ctx ends first, Call stops
// waiting and reports a failure; the remote export itself keeps running.
func (s *Script) Call(ctx context.Context, export string, args ...any) (any, error) {
	if s == nil || s.remote == nil {
		return nil, services.Wrap(services.ErrRemoteCall, "script", export, "script is not loaded", nil)
	}

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: fmt.Errorf("panic during remote call: %v", r)}
			}
		}()
		value, err := s.remote.Call(export, args...)
		done <- callResult{value: value, err: err}
	}()

	var timeout <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-done:
		if res.err != nil {
			return nil, services.Wrap(services.ErrRemoteCall, "script", export, "", res.err)
		}
		return res.value, nil
	case <-timeout:
		return nil, services.Wrap(services.ErrRemoteCall, "script", export,
			fmt.Sprintf("no result after %s", s.timeout), services.ErrTimeout)
	case <-ctx.Done():
		return nil, services.Wrap(services.ErrRemoteCall, "script", export, "abandoned", ctx.Err())
	}
}
