package instrument_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"qmunlock/internal/instrument"
	"qmunlock/internal/logging"
	"qmunlock/internal/services"
	"qmunlock/internal/testsupport"
)

var fakeTarget = instrument.TargetProcess{PID: 4242, Name: "QQMusic.exe"}

func attach(t *testing.T, rt *testsupport.FakeRuntime, opts ...instrument.Option) *instrument.Session {
	t.Helper()
	sess, err := instrument.Attach(context.Background(), rt, fakeTarget, opts...)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestAttachFailure(t *testing.T) {
	rt := testsupport.NewFakeRuntime(nil)
	rt.AttachErr = errors.New("permission denied")
	_, err := instrument.Attach(context.Background(), rt, fakeTarget)
	if !errors.Is(err, services.ErrAttach) {
		t.Fatalf("expected ErrAttach, got %v", err)
	}
	if !strings.Contains(err.Error(), "4242") {
		t.Fatalf("expected pid in error, got %q", err.Error())
	}
}

func TestAttachToExitedProcess(t *testing.T) {
	rt := testsupport.NewFakeRuntime(nil)
	_, err := instrument.Attach(context.Background(), rt, instrument.TargetProcess{PID: 1, Name: "gone"})
	if !errors.Is(err, services.ErrAttach) {
		t.Fatalf("expected ErrAttach, got %v", err)
	}
}

func TestLoadRegistersHandlerBeforeActivation(t *testing.T) {
	rt := testsupport.NewFakeRuntime(nil)
	rt.EarlyMessages = []string{`{"type":"send","payload":"hooked"}`}
	sess := attach(t, rt, instrument.WithLogger(logging.NewNop()))

	sink := instrument.NewSink(io.Discard, nil)
	if _, err := sess.Load(context.Background(), "rpc.exports = {};", sink); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !rt.HandlerRegisteredBeforeLoad() {
		t.Fatal("expected message handler to be registered before Load")
	}
	if sink.Count() != 1 {
		t.Fatalf("expected early message to be delivered, got %d", sink.Count())
	}
	if got := rt.Sources(); len(got) != 1 || got[0] != "rpc.exports = {};" {
		t.Fatalf("unexpected compiled sources %v", got)
	}
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name   string
		source string
		setup  func(*testsupport.FakeRuntime)
	}{
		{"empty source", "  ", func(*testsupport.FakeRuntime) {}},
		{"compile error", "syntax(", func(rt *testsupport.FakeRuntime) { rt.CreateErr = errors.New("SyntaxError") }},
		{"activation error", "throw 1", func(rt *testsupport.FakeRuntime) { rt.LoadErr = errors.New("uncaught") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := testsupport.NewFakeRuntime(nil)
			tt.setup(rt)
			sess := attach(t, rt)
			_, err := sess.Load(context.Background(), tt.source, nil)
			if !errors.Is(err, services.ErrScriptLoad) {
				t.Fatalf("expected ErrScriptLoad, got %v", err)
			}
		})
	}
}

func TestLoadTwiceFails(t *testing.T) {
	sess := attach(t, testsupport.NewFakeRuntime(nil))
	if _, err := sess.Load(context.Background(), "a", nil); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	if _, err := sess.Load(context.Background(), "b", nil); !errors.Is(err, services.ErrScriptLoad) {
		t.Fatalf("expected second Load to fail, got %v", err)
	}
}

func TestCallPassesArgumentsAndDeliversMessages(t *testing.T) {
	rt := testsupport.NewFakeRuntime(nil)
	rt.Exports["echo"] = func(args ...any) (any, error) { return args[0], nil }
	rt.CallMessages = []string{"progress 50%", "progress 100%"}
	sess := attach(t, rt)
	sink := instrument.NewSink(io.Discard, nil)
	script, err := sess.Load(context.Background(), "src", sink)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, err := script.Call(context.Background(), "echo", "value")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "value" {
		t.Fatalf("unexpected result %v", got)
	}
	if sink.Count() != 2 {
		t.Fatalf("expected 2 messages during call, got %d", sink.Count())
	}
	calls := rt.Calls()
	if len(calls) != 1 || calls[0].Export != "echo" {
		t.Fatalf("unexpected calls %+v", calls)
	}
}

func TestCallRemoteErrors(t *testing.T) {
	rt := testsupport.NewFakeRuntime(nil)
	rt.Exports["decrypt"] = testsupport.DecryptFailing("key not found")
	sess := attach(t, rt)
	script, err := sess.Load(context.Background(), "src", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	_, err = script.Call(context.Background(), "decrypt", "a", "b")
	if !errors.Is(err, services.ErrRemoteCall) || !strings.Contains(err.Error(), "key not found") {
		t.Fatalf("expected remote detail in ErrRemoteCall, got %v", err)
	}

	_, err = script.Call(context.Background(), "missing")
	if !errors.Is(err, services.ErrRemoteCall) || !strings.Contains(err.Error(), "unable to find method") {
		t.Fatalf("expected missing export error, got %v", err)
	}
}

func TestCallTimeout(t *testing.T) {
	rt := testsupport.NewFakeRuntime(nil)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	rt.Exports["decrypt"] = func(args ...any) (any, error) {
		<-release
		return nil, nil
	}
	sess := attach(t, rt, instrument.WithCallTimeout(20*time.Millisecond))
	script, err := sess.Load(context.Background(), "src", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = script.Call(context.Background(), "decrypt")
	if !errors.Is(err, services.ErrRemoteCall) || !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	rt := testsupport.NewFakeRuntime(nil)
	sess, err := instrument.Attach(context.Background(), rt, fakeTarget)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, err := sess.Load(context.Background(), "src", nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	_, unloads, detaches := rt.Counts()
	if unloads != 1 || detaches != 1 {
		t.Fatalf("expected one unload and one detach, got %d/%d", unloads, detaches)
	}
	if _, err := sess.Load(context.Background(), "src", nil); !errors.Is(err, services.ErrScriptLoad) {
		t.Fatalf("expected Load after Close to fail, got %v", err)
	}
}
