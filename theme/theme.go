// Package theme lists the themes available to the picker: the built-in
// default, the bundled theme files and the user's theme directory.
package theme

import (
	"cmp"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	zlaunch "github.com/zortax/zlaunch"
	defaults "github.com/zortax/zlaunch/default"
)

// Default is always available and needs no file.
const Default = "default"

const bundledDir = "themes"

// Catalog finds theme names. It does not interpret colours; a theme file
// only has to be valid TOML to be listed.
type Catalog struct {
	bundled fs.FS
	userDir string
	logger  *slog.Logger
}

// NewCatalog returns a catalog over the bundled themes and userDir. An
// empty userDir lists bundled themes only.
func NewCatalog(userDir string) *Catalog {
	return &Catalog{
		bundled: defaults.Themes,
		userDir: userDir,
		logger:  slog.Default().With("component", "themes"),
	}
}

// List returns every theme sorted by name, marking active. A user theme
// with a bundled name replaces the bundled one.
func (c *Catalog) List(active string) ([]zlaunch.ThemeInfo, error) {
	byName := map[string]zlaunch.ThemeInfo{
		Default: {Name: Default, Bundled: true},
	}

	bundled, err := fs.Glob(c.bundled, bundledDir+"/*.toml")
	if err != nil {
		return nil, err
	}
	for _, p := range bundled {
		name := strings.TrimSuffix(path.Base(p), ".toml")
		byName[name] = zlaunch.ThemeInfo{Name: name, Bundled: true}
	}

	user, err := c.userThemes()
	if err != nil {
		return nil, err
	}
	for _, name := range user {
		byName[name] = zlaunch.ThemeInfo{Name: name}
	}

	out := make([]zlaunch.ThemeInfo, 0, len(byName))
	for _, info := range byName {
		info.Active = info.Name == active
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b zlaunch.ThemeInfo) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (c *Catalog) userThemes() ([]string, error) {
	if c.userDir == "" {
		return nil, nil
	}
	dirents, err := os.ReadDir(c.userDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, d := range dirents {
		if d.IsDir() || filepath.Ext(d.Name()) != ".toml" {
			continue
		}
		p := filepath.Join(c.userDir, d.Name())
		var v map[string]any
		if _, err := toml.DecodeFile(p, &v); err != nil {
			c.logger.Warn("skipping invalid theme file", "path", p, "error", err)
			continue
		}
		names = append(names, strings.TrimSuffix(d.Name(), ".toml"))
	}
	return names, nil
}

// Exists reports whether name is listed.
func (c *Catalog) Exists(name string) (bool, error) {
	themes, err := c.List("")
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(themes, func(t zlaunch.ThemeInfo) bool { return t.Name == name }), nil
}
