package zlaunch

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	defaults "github.com/zortax/zlaunch/default"
)

// Config represents the user's zlaunch configuration.
type Config struct {
	Theme              string           `toml:"theme"`
	WindowWidth        float64          `toml:"window_width"`
	WindowHeight       float64          `toml:"window_height"`
	HyprlandAutoBlur   *bool            `toml:"hyprland_auto_blur"`
	EnableTransparency *bool            `toml:"enable_transparency"`
	StickyQuery        bool             `toml:"sticky_query"`
	DefaultModes       []string         `toml:"default_modes"`
	CombinedModules    []string         `toml:"combined_modules"`
	DisabledModules    []string         `toml:"disabled_modules"` // deprecated, use combined_modules
	SearchProviders    []SearchProvider `toml:"search_providers"`
	Actions            []ActionConfig   `toml:"actions"`
	Clipboard          ClipboardConfig  `toml:"clipboard"`
	Compositor         CompositorConfig `toml:"compositor"`
	AI                 AIConfig         `toml:"ai"`
}

// SearchProvider is a web search shortcut. URL must contain "{query}".
type SearchProvider struct {
	Name    string `toml:"name"`
	Trigger string `toml:"trigger"`
	URL     string `toml:"url"`
	Icon    string `toml:"icon"`
}

// ActionConfig is a user-defined shell action.
type ActionConfig struct {
	Name    string `toml:"name"`
	Command string `toml:"command"`
	Icon    string `toml:"icon"`
}

// ClipboardConfig holds clipboard history settings.
type ClipboardConfig struct {
	Enabled        *bool `toml:"enabled"`
	Capacity       int   `toml:"capacity"`
	PollIntervalMs int   `toml:"poll_interval_ms"`
}

// CompositorConfig holds compositor bridge settings.
type CompositorConfig struct {
	// Backend forces a backend ("hyprland", "niri", "kwin", "none"). Empty probes the environment.
	Backend   string `toml:"backend"`
	TimeoutMs int    `toml:"timeout_ms"`
}

// AIConfig holds settings for the AI answer stream.
type AIConfig struct {
	BaseURL     string  `toml:"base_url"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// ConfigDir returns the config directory path.
// Resolution order: $ZLAUNCH_CONFIG_DIR > $XDG_CONFIG_HOME/zlaunch > ~/.config/zlaunch
func ConfigDir() string {
	if dir := os.Getenv("ZLAUNCH_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "zlaunch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "zlaunch-config")
	}
	return filepath.Join(home, ".config", "zlaunch")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// ThemesDir returns the directory holding user theme files.
func ThemesDir() string {
	return filepath.Join(ConfigDir(), "themes")
}

// CacheDir returns the cache directory.
// Resolution order: $XDG_CACHE_HOME/zlaunch > ~/.cache/zlaunch
func CacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "zlaunch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "zlaunch-cache")
	}
	return filepath.Join(home, ".cache", "zlaunch")
}

// DefaultConfig returns the default configuration from the embedded default_config.toml.
func DefaultConfig() *Config {
	var cfg Config
	if err := toml.Unmarshal(defaults.DefaultConfigTOML, &cfg); err != nil {
		panic("zlaunch: invalid embedded default_config.toml: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from the default path or returns defaults if not found.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile loads config from path. A missing file yields the defaults;
// a file that does not parse is an error.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if cfg.Theme == "" {
		cfg.Theme = defaults.Theme
	}
	if cfg.WindowWidth == 0 {
		cfg.WindowWidth = defaults.WindowWidth
	}
	if cfg.WindowHeight == 0 {
		cfg.WindowHeight = defaults.WindowHeight
	}
	if cfg.HyprlandAutoBlur == nil {
		cfg.HyprlandAutoBlur = defaults.HyprlandAutoBlur
	}
	if cfg.EnableTransparency == nil {
		cfg.EnableTransparency = defaults.EnableTransparency
	}
	if cfg.DefaultModes == nil {
		cfg.DefaultModes = defaults.DefaultModes
	}
	if cfg.SearchProviders == nil {
		cfg.SearchProviders = defaults.SearchProviders
	}
	if cfg.Clipboard.Enabled == nil {
		cfg.Clipboard.Enabled = defaults.Clipboard.Enabled
	}
	if cfg.Clipboard.Capacity == 0 {
		cfg.Clipboard.Capacity = defaults.Clipboard.Capacity
	}
	if cfg.Clipboard.PollIntervalMs == 0 {
		cfg.Clipboard.PollIntervalMs = defaults.Clipboard.PollIntervalMs
	}
	if cfg.Compositor.TimeoutMs == 0 {
		cfg.Compositor.TimeoutMs = defaults.Compositor.TimeoutMs
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = defaults.AI.BaseURL
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaults.AI.Model
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = defaults.AI.MaxTokens
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	for _, name := range cfg.DefaultModes {
		if _, err := ParseMode(name); err != nil {
			warnings = append(warnings, fmt.Sprintf("default_modes: unknown mode %q is ignored", name))
		}
	}
	for _, name := range cfg.CombinedModules {
		if _, err := ParseModule(name); err != nil {
			warnings = append(warnings, fmt.Sprintf("combined_modules: unknown module %q is ignored", name))
		}
	}
	if len(cfg.DisabledModules) > 0 {
		warnings = append(warnings, "disabled_modules is deprecated; list the wanted modules in combined_modules instead")
	}
	triggers := make(map[string]bool)
	for _, p := range cfg.SearchProviders {
		if !strings.Contains(p.URL, "{query}") {
			warnings = append(warnings, fmt.Sprintf("search provider %q: url has no {query} placeholder", p.Name))
		}
		if triggers[p.Trigger] {
			warnings = append(warnings, fmt.Sprintf("search provider %q: trigger %q is already used", p.Name, p.Trigger))
		}
		triggers[p.Trigger] = true
	}
	for _, a := range cfg.Actions {
		if strings.TrimSpace(a.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("action %q has an empty command", a.Name))
		}
	}
	if cfg.Clipboard.Capacity < 0 {
		warnings = append(warnings, "clipboard.capacity is negative; the default is used")
	}
	return warnings
}

// ResolveDefaultModes returns the parsed default mode-cycle list, dropping
// unknown names. The result is never empty.
func ResolveDefaultModes(cfg *Config) []Mode {
	var modes []Mode
	if cfg != nil {
		for _, name := range cfg.DefaultModes {
			m, err := ParseMode(name)
			if err != nil || slices.Contains(modes, m) {
				continue
			}
			modes = append(modes, m)
		}
	}
	if len(modes) == 0 {
		return []Mode{ModeCombined}
	}
	return modes
}

// ResolveCombinedModules returns the modules shown in combined mode, in order.
// Modules listed in the deprecated disabled_modules are removed.
func ResolveCombinedModules(cfg *Config) []Module {
	var modules []Module
	if cfg != nil {
		for _, name := range cfg.CombinedModules {
			m, err := ParseModule(name)
			if err != nil || slices.Contains(modules, m) {
				continue
			}
			modules = append(modules, m)
		}
	}
	if len(modules) == 0 {
		modules = slices.Clone(DefaultCombinedModules)
	}
	if cfg != nil && len(cfg.DisabledModules) > 0 {
		modules = slices.DeleteFunc(modules, func(m Module) bool {
			for _, name := range cfg.DisabledModules {
				if d, err := ParseModule(name); err == nil && d == m {
					return true
				}
			}
			return false
		})
	}
	return modules
}

// ResolveClipboardCapacity returns the clipboard ring capacity.
func ResolveClipboardCapacity(cfg *Config) int {
	if cfg == nil || cfg.Clipboard.Capacity <= 0 {
		return DefaultConfig().Clipboard.Capacity
	}
	return cfg.Clipboard.Capacity
}

// ClipboardEnabled reports whether the clipboard watcher should run.
func ClipboardEnabled(cfg *Config) bool {
	if cfg == nil || cfg.Clipboard.Enabled == nil {
		return true // default true
	}
	return *cfg.Clipboard.Enabled
}

// HyprlandAutoBlurEnabled reports whether blur layer rules are applied on Hyprland.
func HyprlandAutoBlurEnabled(cfg *Config) bool {
	if cfg == nil || cfg.HyprlandAutoBlur == nil {
		return true // default true
	}
	return *cfg.HyprlandAutoBlur
}

// ResolveAIBaseURL returns the AI API base URL.
// Priority: $ZLAUNCH_AI_BASE_URL env > config value.
func ResolveAIBaseURL(cfg *Config) string {
	if url := os.Getenv("ZLAUNCH_AI_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.AI.BaseURL
	}
	return ""
}

// ResolveAIAPIKey returns the AI API key.
// Priority: $ZLAUNCH_AI_API_KEY env > config value > $GEMINI_API_KEY env.
func ResolveAIAPIKey(cfg *Config) string {
	if key := os.Getenv("ZLAUNCH_AI_API_KEY"); key != "" {
		return key
	}
	if cfg != nil && cfg.AI.APIKey != "" {
		return cfg.AI.APIKey
	}
	return os.Getenv("GEMINI_API_KEY")
}

// ResolveAIModel returns the AI model name.
// Priority: $ZLAUNCH_AI_MODEL env > config value.
func ResolveAIModel(cfg *Config) string {
	if model := os.Getenv("ZLAUNCH_AI_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.AI.Model
	}
	return ""
}

// AIEnabled returns true when both base_url and api_key are available.
func AIEnabled(cfg *Config) bool {
	return ResolveAIBaseURL(cfg) != "" && ResolveAIAPIKey(cfg) != ""
}

// SaveTheme writes the theme name into the config file at path. Nothing is
// written when the file does not exist, so defaults stay implicit.
func SaveTheme(path, theme string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	doc := make(map[string]any)
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	doc["theme"] = theme

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
