package index

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"time"
)

const appCacheVersion = 1

type appCacheFile struct {
	Version int `json:"version"`
	// DirModTimes records the mtime of every scanned directory; the cache
	// is stale as soon as one of them differs.
	DirModTimes map[string]time.Time `json:"dir_mod_times"`
	Entries     []*DesktopEntry      `json:"entries"`
}

// SaveAppCache writes the scanned desktop entries and directory mtimes to disk.
func SaveAppCache(path string, dirModTimes map[string]time.Time, entries []*DesktopEntry) error {
	data, err := json.Marshal(appCacheFile{
		Version:     appCacheVersion,
		DirModTimes: dirModTimes,
		Entries:     entries,
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadAppCache loads a previously saved scan. It reports false when the
// cache is missing, from another version, or any directory changed.
func LoadAppCache(path string, dirModTimes map[string]time.Time) ([]*DesktopEntry, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var cf appCacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, false
	}
	if cf.Version != appCacheVersion {
		return nil, false
	}
	if !maps.EqualFunc(cf.DirModTimes, dirModTimes, time.Time.Equal) {
		return nil, false
	}
	return cf.Entries, true
}
