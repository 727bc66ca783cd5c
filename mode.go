package zlaunch

import (
	"slices"
	"strings"
)

// Module is one searchable domain with its own index.
type Module string

const (
	ModuleApplications Module = "applications"
	ModuleWindows      Module = "windows"
	ModuleClipboard    Module = "clipboard"
	ModuleEmojis       Module = "emojis"
	ModuleActions      Module = "actions"
	ModuleSearch       Module = "search"
	ModuleThemes       Module = "themes"
)

// Modules lists every module in registration order.
var Modules = []Module{
	ModuleApplications,
	ModuleWindows,
	ModuleClipboard,
	ModuleEmojis,
	ModuleActions,
	ModuleSearch,
	ModuleThemes,
}

// DefaultCombinedModules is the combined view when the config does not name one.
var DefaultCombinedModules = []Module{
	ModuleWindows,
	ModuleEmojis,
	ModuleClipboard,
	ModuleActions,
	ModuleThemes,
	ModuleApplications,
	ModuleSearch,
}

// Mode is a named view over one or more modules.
type Mode string

const (
	ModeCombined     Mode = "combined"
	ModeApplications Mode = "applications"
	ModeWindows      Mode = "windows"
	ModeClipboard    Mode = "clipboard"
	ModeEmojis       Mode = "emojis"
	ModeActions      Mode = "actions"
	ModeSearch       Mode = "search"
	ModeThemes       Mode = "themes"
	ModeAI           Mode = "ai"
)

var modeAliases = map[string]Mode{
	"combined":     ModeCombined,
	"applications": ModeApplications,
	"apps":         ModeApplications,
	"app":          ModeApplications,
	"windows":      ModeWindows,
	"window":       ModeWindows,
	"clipboard":    ModeClipboard,
	"emojis":       ModeEmojis,
	"emoji":        ModeEmojis,
	"actions":      ModeActions,
	"action":       ModeActions,
	"search":       ModeSearch,
	"themes":       ModeThemes,
	"theme":        ModeThemes,
	"ai":           ModeAI,
}

// ParseMode resolves a mode name or alias, case-insensitively.
func ParseMode(name string) (Mode, error) {
	m, ok := modeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", Validationf("unknown mode %q", name)
	}
	return m, nil
}

// ParseModes resolves every name, failing on the first unknown one.
// Duplicates are dropped, keeping the first occurrence.
func ParseModes(names []string) ([]Mode, error) {
	modes := make([]Mode, 0, len(names))
	for _, name := range names {
		m, err := ParseMode(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(modes, m) {
			modes = append(modes, m)
		}
	}
	return modes, nil
}

// ParseModule resolves a module name. Mode aliases are accepted.
func ParseModule(name string) (Module, error) {
	m, err := ParseMode(name)
	if err != nil || m == ModeCombined || m == ModeAI {
		return "", Validationf("unknown module %q", name)
	}
	return Module(m), nil
}

// Modules returns the modules the mode searches. combined is the configured
// combined set; ai has no index.
func (m Mode) Modules(combined []Module) []Module {
	switch m {
	case ModeCombined:
		return combined
	case ModeAI:
		return nil
	default:
		return []Module{Module(m)}
	}
}
