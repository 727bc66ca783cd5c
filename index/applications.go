package index

import (
	"cmp"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

// ApplicationDirs returns the XDG applications directories in priority
// order: $XDG_DATA_HOME (or ~/.local/share) first, then $XDG_DATA_DIRS.
func ApplicationDirs() []string {
	var dirs []string
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "applications"))
	}

	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, d := range filepath.SplitList(dataDirs) {
		if d == "" {
			continue
		}
		dir := filepath.Join(d, "applications")
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// Applications indexes desktop entries. A full scan is skipped while the
// on-disk cache matches every directory's mtime; unchanged files are not
// reparsed.
type Applications struct {
	dirs      []string
	cachePath string
	parsed    *DesktopCache
	logger    *slog.Logger

	// dirty forces the next Load to rescan even if directory mtimes match.
	dirty atomic.Bool
}

// NewApplications creates the applications source. An empty cachePath
// disables the on-disk cache.
func NewApplications(dirs []string, cachePath string) *Applications {
	return &Applications{
		dirs:      dirs,
		cachePath: cachePath,
		parsed:    NewDesktopCache(),
		logger:    slog.Default().With("component", "applications"),
	}
}

// Dirs returns the scanned directories.
func (a *Applications) Dirs() []string {
	return a.dirs
}

// Invalidate makes the next Load rescan the directories.
func (a *Applications) Invalidate() {
	a.dirty.Store(true)
}

// Close stops the parse cache.
func (a *Applications) Close() {
	a.parsed.Close()
}

func (a *Applications) Load(ctx context.Context) ([]Entry, error) {
	modTimes := dirModTimes(a.dirs)

	if a.cachePath != "" && !a.dirty.Load() {
		if cached, ok := LoadAppCache(a.cachePath, modTimes); ok {
			a.logger.Debug("using application cache", "entries", len(cached))
			return appEntries(cached), nil
		}
	}
	a.dirty.Store(false)

	desktop, err := a.scan(ctx)
	if err != nil {
		return nil, err
	}

	if a.cachePath != "" {
		if err := SaveAppCache(a.cachePath, modTimes, desktop); err != nil {
			a.logger.Warn("failed to save application cache", "error", err)
		}
	}
	return appEntries(desktop), nil
}

// scan walks every directory; the first file providing an ID wins.
func (a *Applications) scan(ctx context.Context) ([]*DesktopEntry, error) {
	seen := make(map[string]bool)
	var out []*DesktopEntry

	for _, dir := range a.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return fs.SkipDir
				}
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() || !strings.HasSuffix(path, ".desktop") {
				return nil
			}

			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return nil
			}
			id := desktopID(rel)
			if seen[id] {
				return nil
			}
			seen[id] = true

			info, err := d.Info()
			if err != nil {
				return nil
			}
			entry, err := a.parsed.Load(path, id, info.ModTime())
			if err != nil {
				a.logger.Debug("skipping desktop file", "path", path, "error", err)
				return nil
			}
			if !entry.Hidden {
				out = append(out, entry)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	slices.SortStableFunc(out, func(x, y *DesktopEntry) int {
		return cmp.Compare(strings.ToLower(x.Name), strings.ToLower(y.Name))
	})
	return out, nil
}

func appEntries(desktop []*DesktopEntry) []Entry {
	entries := make([]Entry, 0, len(desktop))
	for _, d := range desktop {
		entries = append(entries, Entry{
			ID:       "app-" + d.ID,
			Title:    d.Name,
			Subtitle: d.Comment,
			Icon:     d.Icon,
			Action: Action{
				Kind:     ActionLaunch,
				Argv:     d.Exec,
				Terminal: d.Terminal,
			},
		})
	}
	return entries
}

func dirModTimes(dirs []string) map[string]time.Time {
	out := make(map[string]time.Time, len(dirs))
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil {
			out[dir] = info.ModTime()
		}
	}
	return out
}
