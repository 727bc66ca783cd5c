package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of events (package installs touch many
// files) into one callback.
const DefaultDebounce = 300 * time.Millisecond

// DirWatcher calls a function after changes below a set of directories.
type DirWatcher struct {
	watcher   *fsnotify.Watcher
	recursive bool
	debounce  time.Duration
	filter    func(fsnotify.Event) bool
	onChange  func()
	logger    *slog.Logger
}

// NewDirWatcher watches dirs, and their subdirectories when recursive is
// set. Missing directories are skipped. filter, if non-nil, selects the
// events that count as a change.
func NewDirWatcher(dirs []string, recursive bool, debounce time.Duration, filter func(fsnotify.Event) bool, onChange func()) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dw := &DirWatcher{
		watcher:   w,
		recursive: recursive,
		debounce:  debounce,
		filter:    filter,
		onChange:  onChange,
		logger:    slog.Default().With("component", "watcher"),
	}
	for _, dir := range dirs {
		dw.add(dir)
	}
	return dw, nil
}

// WatchList returns the watched paths.
func (dw *DirWatcher) WatchList() []string {
	return dw.watcher.WatchList()
}

func (dw *DirWatcher) add(dir string) {
	if _, err := os.Stat(dir); err != nil {
		return
	}
	if !dw.recursive {
		if err := dw.watcher.Add(dir); err != nil {
			dw.logger.Debug("cannot watch directory", "path", dir, "error", err)
		}
		return
	}
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := dw.watcher.Add(path); err != nil {
			dw.logger.Debug("cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Run dispatches events until ctx is cancelled, then closes the watcher.
func (dw *DirWatcher) Run(ctx context.Context) {
	defer dw.watcher.Close()

	timer := time.NewTimer(dw.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if dw.recursive && event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					dw.add(event.Name)
				}
			}
			if dw.filter != nil && !dw.filter(event) {
				continue
			}
			timer.Reset(dw.debounce)

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.logger.Warn("watch error", "error", err)

		case <-timer.C:
			dw.onChange()
		}
	}
}
