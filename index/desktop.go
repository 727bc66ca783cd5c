package index

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"gopkg.in/ini.v1"
)

const (
	desktopSection  = "Desktop Entry"
	desktopCacheTTL = 1 * time.Hour
)

// DesktopEntry is the launcher-relevant part of a .desktop file.
type DesktopEntry struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Comment  string   `json:"comment,omitempty"`
	Icon     string   `json:"icon,omitempty"`
	Exec     []string `json:"exec"`
	Terminal bool     `json:"terminal,omitempty"`
	Path     string   `json:"path"`
	// Hidden entries (NoDisplay, Hidden, non-Application) still occupy their
	// ID so lower-priority directories cannot resurrect them.
	Hidden bool `json:"hidden,omitempty"`
}

// parsedDesktop is a cache value tagged with the file's mtime.
type parsedDesktop struct {
	modTime time.Time
	entry   *DesktopEntry
}

// DesktopCache is a TTL cache of parsed desktop files keyed by path.
// A hit is only used while the file's mtime is unchanged.
type DesktopCache struct {
	cache *ttlcache.Cache[string, parsedDesktop]
}

// NewDesktopCache creates a DesktopCache with TTL-based expiration.
func NewDesktopCache() *DesktopCache {
	c := ttlcache.New[string, parsedDesktop](
		ttlcache.WithTTL[string, parsedDesktop](desktopCacheTTL),
		ttlcache.WithDisableTouchOnHit[string, parsedDesktop](),
	)
	go c.Start()
	return &DesktopCache{cache: c}
}

// Close stops the cache expiration loop.
func (dc *DesktopCache) Close() {
	dc.cache.Stop()
}

// Load returns the parsed entry for path, reparsing when the file changed
// since it was cached.
func (dc *DesktopCache) Load(path, id string, modTime time.Time) (*DesktopEntry, error) {
	if item := dc.cache.Get(path); item != nil {
		if v := item.Value(); v.modTime.Equal(modTime) && v.entry.ID == id {
			return v.entry, nil
		}
	}
	entry, err := ParseDesktopFile(path, id)
	if err != nil {
		return nil, err
	}
	dc.cache.Set(path, parsedDesktop{modTime: modTime, entry: entry}, ttlcache.DefaultTTL)
	return entry, nil
}

// ParseDesktopFile reads a .desktop file. Localized Name and Comment keys
// matching $LC_MESSAGES or $LANG are preferred.
func ParseDesktopFile(path, id string) (*DesktopEntry, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		IgnoreContinuation:      true,
		PreserveSurroundedQuote: true,
		SkipUnrecognizableLines: true,
		KeyValueDelimiters:      "=",
	}, path)
	if err != nil {
		return nil, err
	}

	sec, err := f.GetSection(desktopSection)
	if err != nil {
		return nil, err
	}

	entry := &DesktopEntry{
		ID:       id,
		Name:     localized(sec, "Name"),
		Comment:  localized(sec, "Comment"),
		Icon:     sec.Key("Icon").String(),
		Terminal: sec.Key("Terminal").MustBool(false),
		Path:     path,
	}
	if entry.Comment == "" {
		entry.Comment = localized(sec, "GenericName")
	}

	if sec.Key("Type").String() != "Application" ||
		sec.Key("NoDisplay").MustBool(false) ||
		sec.Key("Hidden").MustBool(false) ||
		entry.Name == "" {
		entry.Hidden = true
		return entry, nil
	}

	entry.Exec = ParseExec(sec.Key("Exec").String(), ExecContext{
		Name: entry.Name,
		Icon: entry.Icon,
		Path: path,
	})
	if len(entry.Exec) == 0 {
		entry.Hidden = true
	}
	return entry, nil
}

// localized returns key[lang_COUNTRY], key[lang] or key, first non-empty.
func localized(sec *ini.Section, key string) string {
	for _, locale := range locales() {
		if k, err := sec.GetKey(key + "[" + locale + "]"); err == nil && k.String() != "" {
			return k.String()
		}
	}
	return sec.Key(key).String()
}

func locales() []string {
	lang := os.Getenv("LC_MESSAGES")
	if lang == "" {
		lang = os.Getenv("LANG")
	}
	lang, _, _ = strings.Cut(lang, ".")
	lang, _, _ = strings.Cut(lang, "@")
	if lang == "" || lang == "C" || lang == "POSIX" {
		return nil
	}
	if base, _, ok := strings.Cut(lang, "_"); ok {
		return []string{lang, base}
	}
	return []string{lang}
}

// desktopID derives the desktop-file ID from a path relative to its
// applications directory: "kde/konsole.desktop" becomes "kde-konsole".
func desktopID(rel string) string {
	rel = strings.TrimSuffix(rel, ".desktop")
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "-")
}
