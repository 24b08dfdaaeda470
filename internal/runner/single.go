package runner

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"qmunlock/internal/conversion"
	"qmunlock/internal/fileutil"
	"qmunlock/internal/services"
)

// RunFile converts path into its own directory. Missing files, non-regular
// files, and unsupported extensions are rejected before the target process
// is touched.
func (r *Runner) RunFile(ctx context.Context, path string) (conversion.Outcome, error) {
	outcome := conversion.Outcome{Job: conversion.Job{SourcePath: path}, Status: conversion.StatusFailed}

	abs, err := filepath.Abs(path)
	if err != nil {
		outcome.Err = services.Wrap(services.ErrDirectoryResolution, "runner", "resolve", path, err)
		return outcome, outcome.Err
	}
	outcome.Job.SourcePath = abs

	if _, err := fileutil.RegularFile(abs); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			outcome.Err = services.Wrap(services.ErrFileNotFound, "runner", "validate", abs, nil)
		case errors.Is(err, fileutil.ErrNotRegular):
			outcome.Err = services.Wrap(services.ErrNotAFile, "runner", "validate", abs, nil)
		default:
			outcome.Err = services.Wrap(services.ErrFileNotFound, "runner", "validate", abs, err)
		}
		return outcome, outcome.Err
	}

	destDir := filepath.Dir(abs)
	outcome.Job.DestinationDir = destDir

	if _, err := r.converter.Plan(abs, destDir); err != nil {
		outcome.Err = err
		return outcome, err
	}

	run, err := r.start(ctx, ModeSingle)
	if err != nil {
		outcome.Err = err
		return outcome, err
	}
	defer run.close()

	return r.converter.Run(run.ctx, run.script, abs, destDir, true)
}
