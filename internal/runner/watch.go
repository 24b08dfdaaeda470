package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"qmunlock/internal/conversion"
	"qmunlock/internal/fileutil"
	"qmunlock/internal/logging"
	"qmunlock/internal/services"
)

// pendingFile tracks a candidate until its size and mtime stop changing.
type pendingFile struct {
	size    int64
	modTime time.Time
	changed time.Time
}

// Watch converts the eligible files already in inputDir, then converts new
// ones once they have been stable for the settle interval. Per-file failures
// are logged, recorded, and passed to notify; the watch only ends when ctx
// is cancelled or the watcher itself fails. notify may be nil.
func (r *Runner) Watch(ctx context.Context, inputDir, outputDir string, notify func(conversion.Outcome)) error {
	inputDir, outputDir, err := r.resolveDirs(inputDir, outputDir)
	if err != nil {
		return err
	}
	if info, err := os.Stat(inputDir); err != nil || !info.IsDir() {
		return services.Wrap(services.ErrDirectoryResolution, "runner", "input directory", inputDir, err)
	}
	if err := fileutil.EnsureDir(outputDir); err != nil {
		return services.Wrap(services.ErrDirectoryResolution, "runner", "output directory", outputDir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "runner", "watch", "create watcher", err)
	}
	defer watcher.Close()
	if err := watcher.Add(inputDir); err != nil {
		return services.Wrap(services.ErrDirectoryResolution, "runner", "watch", inputDir, err)
	}

	run, err := r.start(ctx, ModeWatch)
	if err != nil {
		return err
	}
	defer run.close()

	convert := func(path string) {
		outcome, err := r.converter.Run(run.ctx, run.script, path, outputDir, false)
		if outcome.Status == conversion.StatusSkipped && outcome.Reason == conversion.ReasonIneligible {
			return
		}
		if err != nil {
			run.logger.Warn("watched file failed; continuing",
				logging.String(logging.FieldSource, path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_conversion_failed"),
			)
		}
		if notify != nil {
			notify(outcome)
		}
	}

	existing, err := ScanDir(inputDir)
	if err != nil {
		return err
	}
	for _, path := range existing {
		if run.ctx.Err() != nil {
			return nil
		}
		convert(path)
	}

	run.logger.Info("watching for new files",
		logging.String("input_dir", inputDir),
		logging.String("output_dir", outputDir),
		logging.Duration("settle", r.settle),
	)

	tick := r.settle / 4
	if tick < 50*time.Millisecond {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	pending := make(map[string]*pendingFile)
	for {
		select {
		case <-run.ctx.Done():
			run.logger.Info("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Dir(event.Name) != inputDir || !r.Router().Eligible(event.Name) {
				continue
			}
			if _, tracked := pending[event.Name]; !tracked {
				pending[event.Name] = &pendingFile{changed: time.Now()}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				run.logger.Warn("watch event overflow; rescanning",
					logging.String(logging.FieldEventType, "watch_overflow"))
				if files, scanErr := ScanDir(inputDir); scanErr == nil {
					for _, path := range files {
						if _, tracked := pending[path]; !tracked && r.Router().Eligible(path) {
							pending[path] = &pendingFile{changed: time.Now()}
						}
					}
				}
				continue
			}
			run.logger.Warn("watcher error", logging.Error(err),
				logging.String(logging.FieldEventType, "watch_error"))

		case now := <-ticker.C:
			for _, path := range settled(pending, now, r.settle) {
				convert(path)
			}
		}
	}
}

// settled refreshes every pending file's size and mtime and returns (and
// forgets) those unchanged for at least settle. Vanished files are dropped.
func settled(pending map[string]*pendingFile, now time.Time, settle time.Duration) []string {
	var ready []string
	for path, p := range pending {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			delete(pending, path)
			continue
		}
		if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
			p.size = info.Size()
			p.modTime = info.ModTime()
			p.changed = now
			continue
		}
		if now.Sub(p.changed) >= settle {
			ready = append(ready, path)
			delete(pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}
