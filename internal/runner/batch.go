package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"qmunlock/internal/conversion"
	"qmunlock/internal/fileutil"
	"qmunlock/internal/logging"
	"qmunlock/internal/services"
)

// Report summarizes a batch run. Ineligible files are not listed.
type Report struct {
	RunID    string
	Outcomes []conversion.Outcome
	Messages int64
}

// Counts tallies outcomes by status.
func (r *Report) Counts() (converted, skipped, failed int) {
	if r == nil {
		return 0, 0, 0
	}
	for _, o := range r.Outcomes {
		switch o.Status {
		case conversion.StatusConverted:
			converted++
		case conversion.StatusSkipped:
			skipped++
		case conversion.StatusFailed:
			failed++
		}
	}
	return converted, skipped, failed
}

// RunBatch converts every eligible regular file directly inside inputDir
// into outputDir, in name order. Empty arguments fall back to the configured
// directories. The output directory is created when missing.
//
// Without keep-going the first failure ends the batch and is returned. With
// keep-going every file is attempted and the failures are joined.
func (r *Runner) RunBatch(ctx context.Context, inputDir, outputDir string) (*Report, error) {
	inputDir, outputDir, err := r.resolveDirs(inputDir, outputDir)
	if err != nil {
		return nil, err
	}

	files, err := ScanDir(inputDir)
	if err != nil {
		return nil, err
	}
	report := &Report{}

	eligible := 0
	for _, f := range files {
		if r.Router().Eligible(f) {
			eligible++
		}
	}
	if err := fileutil.EnsureDir(outputDir); err != nil {
		return nil, services.Wrap(services.ErrDirectoryResolution, "runner", "output directory", outputDir, err)
	}
	if eligible == 0 {
		r.logger.Info("nothing to convert",
			logging.String("input_dir", inputDir),
			logging.Int("files", len(files)),
		)
		return report, nil
	}

	run, err := r.start(ctx, ModeBatch)
	if err != nil {
		return nil, err
	}
	defer run.close()
	report.RunID = run.id

	run.logger.Info("batch started",
		logging.String("input_dir", inputDir),
		logging.String("output_dir", outputDir),
		logging.Int("eligible", eligible),
		logging.Bool("keep_going", r.cfg.Batch.KeepGoing),
	)

	var errs []error
	for _, path := range files {
		if err := run.ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		outcome, err := r.converter.Run(run.ctx, run.script, path, outputDir, false)
		if outcome.Status == conversion.StatusSkipped && outcome.Reason == conversion.ReasonIneligible {
			continue
		}
		report.Outcomes = append(report.Outcomes, outcome)
		if err == nil {
			continue
		}
		errs = append(errs, err)
		if !r.cfg.Batch.KeepGoing {
			break
		}
	}
	report.Messages = run.messages()

	converted, skipped, failed := report.Counts()
	run.logger.Info("batch finished",
		logging.Int("converted", converted),
		logging.Int("skipped", skipped),
		logging.Int("failed", failed),
	)

	switch len(errs) {
	case 0:
		return report, nil
	case 1:
		return report, errs[0]
	default:
		return report, fmt.Errorf("%d files failed: %w", len(errs), errors.Join(errs...))
	}
}

func (r *Runner) resolveDirs(inputDir, outputDir string) (string, string, error) {
	if strings.TrimSpace(inputDir) == "" {
		inputDir = r.cfg.Paths.InputDir
	}
	if strings.TrimSpace(outputDir) == "" {
		outputDir = r.cfg.Paths.OutputDir
	}
	if strings.TrimSpace(inputDir) == "" {
		return "", "", services.Wrap(services.ErrDirectoryResolution, "runner", "input directory", "not configured", nil)
	}
	if strings.TrimSpace(outputDir) == "" {
		return "", "", services.Wrap(services.ErrDirectoryResolution, "runner", "output directory", "not configured", nil)
	}
	in, err := filepath.Abs(inputDir)
	if err != nil {
		return "", "", services.Wrap(services.ErrDirectoryResolution, "runner", "input directory", inputDir, err)
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return "", "", services.Wrap(services.ErrDirectoryResolution, "runner", "output directory", outputDir, err)
	}
	return in, out, nil
}

// ScanDir lists regular files directly inside dir, sorted by name.
// Subdirectories are not descended into.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrDirectoryResolution, "runner", "scan", dir, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		} else if !entry.Type().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
