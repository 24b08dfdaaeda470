package conversion_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"qmunlock/internal/conversion"
	"qmunlock/internal/instrument"
	"qmunlock/internal/logging"
	"qmunlock/internal/router"
	"qmunlock/internal/services"
	"qmunlock/internal/testsupport"
)

func loadScript(t *testing.T, rt *testsupport.FakeRuntime) *instrument.Script {
	t.Helper()
	ctx := context.Background()
	sess, err := instrument.Attach(ctx, rt, rt.Processes[1])
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	script, err := sess.Load(ctx, "rpc.exports = {};", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return script
}

type memoryRecorder struct {
	mu       sync.Mutex
	outcomes []conversion.Outcome
	err      error
}

func (m *memoryRecorder) Record(_ context.Context, outcome conversion.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
	return m.err
}

func TestTempNameIsMD5OfTargetName(t *testing.T) {
	if got := conversion.TempName("song.flac"); got != "72283822ec123cc5e8243383b34d169e" {
		t.Fatalf("unexpected temp name %q", got)
	}
	if conversion.TempName("song.flac") != conversion.TempName("song.flac") {
		t.Fatal("temp name must be deterministic")
	}
	if conversion.TempName("a.flac") == conversion.TempName("b.flac") {
		t.Fatal("distinct target names must not collide")
	}
	if strings.ToLower(conversion.TempName("X.ogg")) != conversion.TempName("X.ogg") {
		t.Fatal("temp name should be lowercase hex")
	}
}

func TestPlan(t *testing.T) {
	conv := conversion.NewConverter(router.Default(), logging.NewNop())
	dest := filepath.Join("out", "dir")

	job, err := conv.Plan(filepath.Join("in", "Song.MFLAC"), dest)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if job.TargetPath != filepath.Join(dest, "Song.flac") {
		t.Fatalf("unexpected target %q", job.TargetPath)
	}
	if job.TempPath != filepath.Join(dest, conversion.TempName("Song.flac")) {
		t.Fatalf("unexpected temp %q", job.TempPath)
	}
	if job.TargetName() != "Song.flac" {
		t.Fatalf("unexpected target name %q", job.TargetName())
	}

	if _, err := conv.Plan("clip.mp3", dest); !errors.Is(err, services.ErrUnsupportedExtension) {
		t.Fatalf("expected ErrUnsupportedExtension, got %v", err)
	}
}

func TestRunConvertsAndPublishes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "song.mflac")
	testsupport.WriteFile(t, src, 128)

	rt := testsupport.NewFakeRuntime([]byte("FLAC"))
	script := loadScript(t, rt)
	rec := &memoryRecorder{}
	conv := conversion.NewConverter(router.Default(), logging.NewNop(), conversion.WithRecorder(rec))

	outcome, err := conv.Run(context.Background(), script, src, dir, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Status != conversion.StatusConverted {
		t.Fatalf("expected converted, got %s", outcome.Status)
	}
	target := filepath.Join(dir, "song.flac")
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "FLAC" {
		t.Fatalf("unexpected target contents %q %v", data, err)
	}
	if _, err := os.Stat(outcome.Job.TempPath); !os.IsNotExist(err) {
		t.Fatalf("temp file should be gone, got %v", err)
	}

	calls := rt.Calls()
	if len(calls) != 1 || calls[0].Export != "decrypt" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if calls[0].Args[0] != src || calls[0].Args[1] != outcome.Job.TempPath {
		t.Fatalf("decrypt called with %v", calls[0].Args)
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0].Status != conversion.StatusConverted {
		t.Fatalf("unexpected recorded outcomes %+v", rec.outcomes)
	}
}

func TestRunSkipsExistingTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "track.mgg")
	testsupport.WriteFile(t, src, 16)
	testsupport.WriteBytes(t, filepath.Join(dir, "track.ogg"), []byte("existing"))

	rt := testsupport.NewFakeRuntime([]byte("OGG"))
	script := loadScript(t, rt)
	conv := conversion.NewConverter(router.Default(), logging.NewNop())

	outcome, err := conv.Run(context.Background(), script, src, dir, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Status != conversion.StatusSkipped || outcome.Reason != conversion.ReasonExists {
		t.Fatalf("expected skip, got %+v", outcome)
	}
	if len(rt.Calls()) != 0 {
		t.Fatalf("expected no remote call, got %d", len(rt.Calls()))
	}
	data, _ := os.ReadFile(filepath.Join(dir, "track.ogg"))
	if string(data) != "existing" {
		t.Fatalf("existing target was modified: %q", data)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "song.mflac")
	testsupport.WriteFile(t, src, 8)

	rt := testsupport.NewFakeRuntime([]byte("FLAC"))
	script := loadScript(t, rt)
	conv := conversion.NewConverter(router.Default(), logging.NewNop())

	if _, err := conv.Run(context.Background(), script, src, dir, true); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before := testsupport.ListDir(t, dir)
	second, err := conv.Run(context.Background(), script, src, dir, true)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Status != conversion.StatusSkipped {
		t.Fatalf("expected second run to skip, got %s", second.Status)
	}
	if len(rt.Calls()) != 1 {
		t.Fatalf("expected exactly one remote call, got %d", len(rt.Calls()))
	}
	after := testsupport.ListDir(t, dir)
	if strings.Join(before, ",") != strings.Join(after, ",") {
		t.Fatalf("directory changed between runs: %v vs %v", before, after)
	}
}

func TestRunUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mp3")
	testsupport.WriteFile(t, src, 8)

	rt := testsupport.NewFakeRuntime(nil)
	script := loadScript(t, rt)
	rec := &memoryRecorder{}
	conv := conversion.NewConverter(router.Default(), logging.NewNop(), conversion.WithRecorder(rec))

	outcome, err := conv.Run(context.Background(), script, src, dir, true)
	if !errors.Is(err, services.ErrUnsupportedExtension) {
		t.Fatalf("expected ErrUnsupportedExtension, got %v", err)
	}
	if outcome.Status != conversion.StatusFailed {
		t.Fatalf("expected failed outcome, got %s", outcome.Status)
	}

	outcome, err = conv.Run(context.Background(), script, src, dir, false)
	if err != nil {
		t.Fatalf("permissive run should not fail: %v", err)
	}
	if outcome.Status != conversion.StatusSkipped || outcome.Reason != conversion.ReasonIneligible {
		t.Fatalf("expected ineligible skip, got %+v", outcome)
	}
	if len(rt.Calls()) != 0 {
		t.Fatal("ineligible files must not reach the remote export")
	}
	if len(rec.outcomes) != 1 {
		t.Fatalf("only the strict failure should be recorded, got %d", len(rec.outcomes))
	}
}

func TestRunRemoteFailureDoesNotPublish(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "song.mflac")
	testsupport.WriteFile(t, src, 8)

	rt := testsupport.NewFakeRuntime(nil)
	rt.Exports["decrypt"] = testsupport.DecryptFailing("access violation reading 0x0")
	script := loadScript(t, rt)
	conv := conversion.NewConverter(router.Default(), logging.NewNop())

	outcome, err := conv.Run(context.Background(), script, src, dir, true)
	if !errors.Is(err, services.ErrRemoteCall) {
		t.Fatalf("expected ErrRemoteCall, got %v", err)
	}
	if !strings.Contains(err.Error(), "access violation") {
		t.Fatalf("expected remote detail in error, got %v", err)
	}
	if outcome.Status != conversion.StatusFailed {
		t.Fatalf("expected failed outcome, got %s", outcome.Status)
	}
	if _, err := os.Stat(filepath.Join(dir, "song.flac")); !os.IsNotExist(err) {
		t.Fatalf("target must not exist after remote failure, got %v", err)
	}
}

func TestRunPartialRemoteOutputStaysUnpublished(t *testing.T) {
	tests := []struct {
		name   string
		result func() (any, error)
		detail string
	}{
		{
			name:   "export raises",
			result: func() (any, error) { return nil, errors.New("decrypt failed: bad key") },
			detail: "bad key",
		},
		{
			name:   "exception message in the result slot",
			result: func() (any, error) { return "decrypt failed: bad key", nil },
			detail: "bad key",
		},
		{
			name:   "void export returns a value",
			result: func() (any, error) { return 42, nil },
			detail: "unexpected export result",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "song.mflac")
			testsupport.WriteFile(t, src, 8)

			rt := testsupport.NewFakeRuntime(nil)
			rt.Exports["decrypt"] = func(args ...any) (any, error) {
				dst, _ := args[1].(string)
				if err := os.WriteFile(dst, []byte("PART"), 0o644); err != nil {
					return nil, err
				}
				return tt.result()
			}
			script := loadScript(t, rt)
			conv := conversion.NewConverter(router.Default(), logging.NewNop())

			outcome, err := conv.Run(context.Background(), script, src, dir, true)
			if !errors.Is(err, services.ErrRemoteCall) {
				t.Fatalf("expected ErrRemoteCall, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Fatalf("expected %q in error, got %v", tt.detail, err)
			}
			if outcome.Status != conversion.StatusFailed {
				t.Fatalf("expected failed outcome, got %s", outcome.Status)
			}

			tmp := filepath.Join(dir, conversion.TempName("song.flac"))
			if _, err := os.Stat(tmp); err != nil {
				t.Fatalf("partial temp output should stay in place: %v", err)
			}
			if _, err := os.Stat(filepath.Join(dir, "song.flac")); !os.IsNotExist(err) {
				t.Fatalf("target must not exist after remote failure, got %v", err)
			}
		})
	}
}

func TestRunPublishFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "song.mflac")
	testsupport.WriteFile(t, src, 8)

	rt := testsupport.NewFakeRuntime(nil)
	// The export reports success without producing the temp file, so the
	// rename has nothing to move.
	rt.Exports["decrypt"] = func(args ...any) (any, error) { return nil, nil }
	script := loadScript(t, rt)
	conv := conversion.NewConverter(router.Default(), logging.NewNop())

	_, err := conv.Run(context.Background(), script, src, dir, true)
	if !errors.Is(err, services.ErrPublish) {
		t.Fatalf("expected ErrPublish, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "song.flac")); !os.IsNotExist(err) {
		t.Fatalf("target must not exist after publish failure, got %v", err)
	}
}

func TestRunRecorderFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "song.mflac")
	testsupport.WriteFile(t, src, 8)

	rt := testsupport.NewFakeRuntime([]byte("FLAC"))
	script := loadScript(t, rt)
	rec := &memoryRecorder{err: errors.New("disk full")}
	conv := conversion.NewConverter(router.Default(), logging.NewNop(), conversion.WithRecorder(rec))

	outcome, err := conv.Run(context.Background(), script, src, dir, true)
	if err != nil || outcome.Status != conversion.StatusConverted {
		t.Fatalf("recorder failure leaked into outcome: %+v %v", outcome, err)
	}
}

func TestRunDurationUsesClock(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "song.mflac")
	testsupport.WriteFile(t, src, 8)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	rt := testsupport.NewFakeRuntime([]byte("FLAC"))
	script := loadScript(t, rt)
	conv := conversion.NewConverter(router.Default(), logging.NewNop(), conversion.WithClock(clock))

	outcome, err := conv.Run(context.Background(), script, src, dir, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Duration != time.Second {
		t.Fatalf("expected 1s duration, got %s", outcome.Duration)
	}
}

func TestRunWithoutScript(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "song.mflac")
	testsupport.WriteFile(t, src, 8)

	conv := conversion.NewConverter(router.Default(), logging.NewNop())
	if _, err := conv.Run(context.Background(), nil, src, dir, true); !errors.Is(err, services.ErrRemoteCall) {
		t.Fatalf("expected ErrRemoteCall, got %v", err)
	}
}
