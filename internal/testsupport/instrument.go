package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"qmunlock/internal/instrument"
)

// ExportFunc implements a fake rpc export.
type ExportFunc func(args ...any) (any, error)

// Call records one invocation of a fake export.
type Call struct {
	Export string
	Args   []any
}

// FakeRuntime is an in-memory instrumentation runtime. Every attach returns a
// session whose scripts share the runtime's exports and call log.
type FakeRuntime struct {
	mu sync.Mutex

	Processes    []instrument.TargetProcess
	EnumerateErr error
	AttachErr    error
	CreateErr    error
	LoadErr      error
	// EarlyMessages are emitted to the registered handler from inside Load.
	EarlyMessages []string
	// CallMessages are emitted to the registered handler during every call.
	CallMessages []string
	Exports      map[string]ExportFunc

	attached      []int
	calls         []Call
	sources       []string
	handlerAtLoad bool
	loads         int
	unloads       int
	detaches      int
	closed        bool
}

// NewFakeRuntime returns a runtime exposing one process and a decrypt export
// that writes payload to the destination path.
func NewFakeRuntime(payload []byte) *FakeRuntime {
	return &FakeRuntime{
		Processes: []instrument.TargetProcess{
			{PID: 100, Name: "explorer.exe"},
			{PID: 4242, Name: "QQMusic.exe"},
		},
		Exports: map[string]ExportFunc{"decrypt": DecryptWriting(payload)},
	}
}

// DecryptWriting returns an export that writes payload to its second argument.
func DecryptWriting(payload []byte) ExportFunc {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("decrypt expects 2 arguments, got %d", len(args))
		}
		src, _ := args[0].(string)
		dst, _ := args[1].(string)
		if _, err := os.Stat(src); err != nil {
			return nil, err
		}
		return nil, os.WriteFile(dst, payload, 0o644)
	}
}

// DecryptFailing returns an export that raises message.
func DecryptFailing(message string) ExportFunc {
	return func(args ...any) (any, error) {
		return nil, errors.New(message)
	}
}

func (r *FakeRuntime) Version() string    { return "16.0.0-fake" }
func (r *FakeRuntime) DeviceName() string { return "Local System" }

func (r *FakeRuntime) EnumerateProcesses(ctx context.Context) ([]instrument.TargetProcess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.EnumerateErr != nil {
		return nil, r.EnumerateErr
	}
	return append([]instrument.TargetProcess(nil), r.Processes...), nil
}

func (r *FakeRuntime) Attach(ctx context.Context, pid int) (instrument.RemoteSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.AttachErr != nil {
		return nil, r.AttachErr
	}
	for _, p := range r.Processes {
		if p.PID == pid {
			r.attached = append(r.attached, pid)
			return &fakeSession{rt: r}, nil
		}
	}
	return nil, fmt.Errorf("process %d not found", pid)
}

func (r *FakeRuntime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Calls returns a copy of the recorded export invocations.
func (r *FakeRuntime) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Attached returns the PIDs attached so far.
func (r *FakeRuntime) Attached() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.attached...)
}

// Sources returns every script source that was compiled.
func (r *FakeRuntime) Sources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sources...)
}

// HandlerRegisteredBeforeLoad reports whether the last Load saw a handler.
func (r *FakeRuntime) HandlerRegisteredBeforeLoad() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlerAtLoad
}

// Counts reports load, unload, and detach totals.
func (r *FakeRuntime) Counts() (loads, unloads, detaches int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads, r.unloads, r.detaches
}

// Closed reports whether Close was called.
func (r *FakeRuntime) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type fakeSession struct {
	rt *FakeRuntime
}

func (s *fakeSession) CreateScript(source string) (instrument.RemoteScript, error) {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	if s.rt.CreateErr != nil {
		return nil, s.rt.CreateErr
	}
	s.rt.sources = append(s.rt.sources, source)
	return &fakeScript{rt: s.rt}, nil
}

func (s *fakeSession) Detach() error {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	s.rt.detaches++
	return nil
}

type fakeScript struct {
	rt      *FakeRuntime
	handler func(string, []byte)
}

func (s *fakeScript) OnMessage(handler func(raw string, data []byte)) {
	s.handler = handler
}

func (s *fakeScript) Load() error {
	s.rt.mu.Lock()
	s.rt.handlerAtLoad = s.handler != nil
	err := s.rt.LoadErr
	early := append([]string(nil), s.rt.EarlyMessages...)
	if err == nil {
		s.rt.loads++
	}
	s.rt.mu.Unlock()
	if err != nil {
		return err
	}
	s.emit(early)
	return nil
}

func (s *fakeScript) Unload() error {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	s.rt.unloads++
	return nil
}

func (s *fakeScript) Call(export string, args ...any) (any, error) {
	s.rt.mu.Lock()
	s.rt.calls = append(s.rt.calls, Call{Export: export, Args: append([]any(nil), args...)})
	fn, ok := s.rt.Exports[export]
	messages := append([]string(nil), s.rt.CallMessages...)
	s.rt.mu.Unlock()

	// Mirror the real runtime: messages arrive on another goroutine while
	// the call is blocked.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.emit(messages)
	}()
	defer wg.Wait()

	if !ok {
		return nil, fmt.Errorf("unable to find method '%s'", export)
	}
	return fn(args...)
}

func (s *fakeScript) emit(messages []string) {
	if s.handler == nil {
		return
	}
	for _, m := range messages {
		s.handler(m, nil)
	}
}
