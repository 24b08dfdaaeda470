package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"qmunlock/internal/fileutil"
	"qmunlock/internal/instrument"
	"qmunlock/internal/logging"
	"qmunlock/internal/router"
	"qmunlock/internal/services"
)

// DecryptExport is the remote export every job invokes.
const DecryptExport = "decrypt"

// Caller invokes exports of a loaded script. *instrument.Script satisfies it.
type Caller interface {
	Call(ctx context.Context, export string, args ...any) (any, error)
}

// Recorder persists job outcomes.
type Recorder interface {
	Record(ctx context.Context, outcome Outcome) error
}

// Option configures a Converter.
type Option func(*Converter)

// WithRecorder reports every routed outcome to rec. Recorder failures are
// logged and never change the outcome.
func WithRecorder(rec Recorder) Option {
	return func(c *Converter) {
		c.recorder = rec
	}
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		if now != nil {
			c.now = now
		}
	}
}

// Converter runs conversion jobs against a loaded script.
type Converter struct {
	router   *router.Router
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewConverter constructs a converter over the supplied routing table.
func NewConverter(r *router.Router, logger *slog.Logger, opts ...Option) *Converter {
	if r == nil {
		r = router.Default()
	}
	c := &Converter{
		router: r,
		logger: logging.NewComponentLogger(logger, "conversion"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Router returns the routing table used by the converter.
func (c *Converter) Router() *router.Router {
	return c.router
}

// Plan derives the job for source written into destDir. It fails with
// ErrUnsupportedExtension when source is not eligible.
func (c *Converter) Plan(source, destDir string) (Job, error) {
	targetExt, ok := c.router.Route(source)
	if !ok {
		return Job{}, services.Wrap(services.ErrUnsupportedExtension, "conversion", "plan",
			fmt.Sprintf("%s (supported: %s)", source, strings.Join(c.router.Extensions(), ", ")), nil)
	}
	targetName := fileutil.Stem(source) + "." + targetExt
	return Job{
		SourcePath:     source,
		DestinationDir: destDir,
		TargetPath:     filepath.Join(destDir, targetName),
		TempPath:       filepath.Join(destDir, TempName(targetName)),
	}, nil
}

// Run converts source into destDir using script. When strict is false an
// ineligible source yields a skipped outcome instead of an error. The
// returned error is also carried on the outcome.
func (c *Converter) Run(ctx context.Context, script Caller, source, destDir string, strict bool) (Outcome, error) {
	started := c.now()
	ctx = services.WithSource(ctx, source)
	logger := logging.WithContext(ctx, c.logger)

	job, err := c.Plan(source, destDir)
	if err != nil {
		outcome := Outcome{Job: Job{SourcePath: source, DestinationDir: destDir}, StartedAt: started}
		if !strict {
			outcome.Status = StatusSkipped
			outcome.Reason = ReasonIneligible
			logger.Debug("skipping ineligible file")
			return outcome, nil
		}
		outcome.Status = StatusFailed
		outcome.Err = err
		c.finish(ctx, logger, &outcome)
		return outcome, err
	}

	outcome := Outcome{Job: job, StartedAt: started}

	exists, err := fileutil.Exists(job.TargetPath)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = services.Wrap(services.ErrPublish, "conversion", "inspect target", job.TargetPath, err)
		c.finish(ctx, logger, &outcome)
		return outcome, outcome.Err
	}
	if exists {
		outcome.Status = StatusSkipped
		outcome.Reason = ReasonExists
		c.finish(ctx, logger, &outcome)
		return outcome, nil
	}

	if script == nil {
		outcome.Status = StatusFailed
		outcome.Err = services.Wrap(services.ErrRemoteCall, "conversion", DecryptExport, "script is not loaded", nil)
		c.finish(ctx, logger, &outcome)
		return outcome, outcome.Err
	}

	logger.Debug("invoking remote decrypt",
		logging.String("temp_path", job.TempPath),
		logging.String(logging.FieldTarget, job.TargetPath),
	)
	result, err := script.Call(ctx, DecryptExport, job.SourcePath, job.TempPath)
	if err == nil {
		err = instrument.VoidResult(DecryptExport, result)
	}
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = services.Wrap(services.ErrRemoteCall, "conversion", DecryptExport, job.SourcePath, err)
		c.finish(ctx, logger, &outcome)
		return outcome, outcome.Err
	}

	if err := fileutil.Publish(job.TempPath, job.TargetPath); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = services.Wrap(services.ErrPublish, "conversion", "publish", "", err)
		c.finish(ctx, logger, &outcome)
		return outcome, outcome.Err
	}

	outcome.Status = StatusConverted
	c.finish(ctx, logger, &outcome)
	return outcome, nil
}

func (c *Converter) finish(ctx context.Context, logger *slog.Logger, outcome *Outcome) {
	outcome.Duration = c.now().Sub(outcome.StartedAt)

	switch outcome.Status {
	case StatusConverted:
		logger.Info("converted",
			logging.String(logging.FieldTarget, outcome.Job.TargetPath),
			logging.Duration("duration", outcome.Duration),
		)
	case StatusSkipped:
		logger.Info("skipped",
			logging.String(logging.FieldTarget, outcome.Job.TargetPath),
			logging.String("reason", outcome.Reason),
		)
	case StatusFailed:
		logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
			services.Hint(outcome.Err), logging.Error(outcome.Err))
	}

	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, *outcome); err != nil {
		logger.Warn("failed to record outcome",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_record_failed"),
		)
	}
}
