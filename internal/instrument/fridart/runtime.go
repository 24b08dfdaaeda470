package fridart

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/frida/frida-go/frida"

	"qmunlock/internal/instrument"
)

// device is the subset of frida.DeviceInt this package uses.
type device interface {
	Name() string
	EnumerateProcesses(scope frida.Scope) ([]*frida.Process, error)
	Attach(val any, sessionOpts *frida.SessionOptions, opts ...frida.OptFunc) (*frida.Session, error)
}

// Runtime drives the local device. Each value owns its own device manager;
// nothing is shared through package state.
type Runtime struct {
	manager io.Closer
	device  device
}

var (
	_ instrument.Runtime = (*Runtime)(nil)
	_ device             = frida.DeviceInt(nil)
)

// New opens the local device.
func New() (*Runtime, error) {
	mgr := frida.NewDeviceManager()
	dev, err := mgr.LocalDevice()
	if err != nil {
		_ = mgr.Close()
		return nil, fmt.Errorf("open local device: %w", err)
	}
	if dev == nil {
		_ = mgr.Close()
		return nil, errors.New("open local device: no local device reported")
	}
	return &Runtime{manager: mgr, device: dev}, nil
}

// Version returns the frida-core version string.
func (r *Runtime) Version() string {
	return frida.Version()
}

// DeviceName returns the local device's display name.
func (r *Runtime) DeviceName() string {
	return r.device.Name()
}

// EnumerateProcesses lists processes visible on the device.
func (r *Runtime) EnumerateProcesses(ctx context.Context) ([]instrument.TargetProcess, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	procs, err := r.device.EnumerateProcesses(frida.ScopeMinimal)
	if err != nil {
		return nil, err
	}
	out := make([]instrument.TargetProcess, 0, len(procs))
	for _, p := range procs {
		out = append(out, instrument.TargetProcess{PID: p.PID(), Name: p.Name()})
	}
	return out, nil
}

// Attach attaches to pid.
func (r *Runtime) Attach(ctx context.Context, pid int) (instrument.RemoteSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := r.device.Attach(pid, nil)
	if err != nil {
		return nil, err
	}
	return &session{session: sess}, nil
}

// Close releases the device manager.
func (r *Runtime) Close() error {
	if r == nil || r.manager == nil {
		return nil
	}
	return r.manager.Close()
}

type session struct {
	session *frida.Session
}

func (s *session) CreateScript(source string) (instrument.RemoteScript, error) {
	sc, err := s.session.CreateScript(source)
	if err != nil {
		return nil, err
	}
	return &script{script: sc}, nil
}

func (s *session) Detach() error {
	return s.session.Detach()
}

type script struct {
	script *frida.Script
}

func (s *script) OnMessage(handler func(raw string, data []byte)) {
	s.script.On("message", func(msg string, data []byte) {
		handler(msg, data)
	})
}

func (s *script) Load() error {
	return s.script.Load()
}

func (s *script) Unload() error {
	return s.script.Unload()
}

// Call invokes a void rpc export. ExportsCall hands back the reply's value
// slot, which holds the exception message when the export raised.
func (s *script) Call(export string, args ...any) (any, error) {
	result := s.script.ExportsCall(export, args...)
	if err := instrument.VoidResult(export, result); err != nil {
		return nil, err
	}
	return nil, nil
}
