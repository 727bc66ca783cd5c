// Package daemon ties the zlaunch components together: it owns the
// session, the module registry, the compositor bridge and the control
// endpoint, and routes control requests between them.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	zlaunch "github.com/zortax/zlaunch"
	"github.com/zortax/zlaunch/ai"
	"github.com/zortax/zlaunch/clipboard"
	"github.com/zortax/zlaunch/compositor"
	"github.com/zortax/zlaunch/index"
	"github.com/zortax/zlaunch/launch"
	"github.com/zortax/zlaunch/serve"
	"github.com/zortax/zlaunch/session"
	"github.com/zortax/zlaunch/theme"
)

// Clipboard is the system clipboard as seen by the daemon.
type Clipboard interface {
	clipboard.Reader
	clipboard.Writer
}

// Launcher starts external programs.
type Launcher interface {
	Spawn(argv []string) error
	Shell(command string) error
	OpenURL(url string) error
}

// Options configures a Daemon. Zero fields take the user's environment.
type Options struct {
	ConfigPath string
	SocketPath string
	ThemesDir  string
	CacheDir   string
	AppDirs    []string

	// Compositor overrides environment detection.
	Compositor     compositor.Connector
	CompositorName string

	Clipboard Clipboard
	Launcher  Launcher

	// NoWatch disables the filesystem watchers.
	NoWatch bool
}

func (o *Options) fill() {
	if o.ConfigPath == "" {
		o.ConfigPath = zlaunch.ConfigPath()
	}
	if o.SocketPath == "" {
		o.SocketPath = serve.ResolveSocketPath()
	}
	if o.ThemesDir == "" {
		o.ThemesDir = filepath.Join(filepath.Dir(o.ConfigPath), "themes")
	}
	if o.CacheDir == "" {
		o.CacheDir = zlaunch.CacheDir()
	}
	if o.AppDirs == nil {
		o.AppDirs = index.ApplicationDirs()
	}
	if o.Clipboard == nil {
		o.Clipboard = clipboard.System{}
	}
	if o.Launcher == nil {
		o.Launcher = launch.New()
	}
}

// Daemon is the single top-level object of a running zlaunch daemon.
type Daemon struct {
	opts   Options
	logger *slog.Logger

	mu       sync.RWMutex // guards cfg, combined, theme, streamer
	cfg      *zlaunch.Config
	combined []zlaunch.Module
	theme    string
	streamer *ai.Streamer

	session  *session.Session
	registry *index.Registry
	bridge   *compositor.Bridge
	apps     *index.Applications
	themes   *theme.Catalog
	history  *clipboard.History
	server   *serve.Server

	ctx    context.Context
	cancel context.CancelFunc

	inflight sync.Mutex // guards queryCancel, askCancel
	// queryCancel cancels the session query that the next transition supersedes.
	queryCancel context.CancelFunc
	askCancel   context.CancelFunc

	workers   sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// New loads the configuration, builds the registry and binds the control
// socket. A config file that does not parse fails with a startup_fatal
// error; an occupied socket fails with serve.ErrAddressInUse.
func New(opts Options) (*Daemon, error) {
	opts.fill()

	cfg, err := zlaunch.LoadConfigFile(opts.ConfigPath)
	if err != nil {
		return nil, zlaunch.WrapError(zlaunch.CodeStartup, err)
	}

	d := &Daemon{
		opts:     opts,
		logger:   slog.Default().With("component", "daemon"),
		session:  session.New(zlaunch.ResolveDefaultModes(cfg), cfg.StickyQuery),
		registry: index.NewRegistry(),
		themes:   theme.NewCatalog(opts.ThemesDir),
		history:  clipboard.NewHistory(zlaunch.ResolveClipboardCapacity(cfg)),
		done:     make(chan struct{}),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.applyConfig(cfg)
	for _, w := range zlaunch.ValidateConfig(cfg) {
		d.logger.Warn("config", "warning", w)
	}

	name, connect := opts.CompositorName, opts.Compositor
	if connect == nil {
		name, connect = compositor.Detect(cfg.Compositor.Backend, os.Getenv)
	}
	d.bridge = compositor.NewBridge(name, connect, time.Duration(cfg.Compositor.TimeoutMs)*time.Millisecond)
	d.logger.Info("compositor", "backend", name)

	d.apps = index.NewApplications(opts.AppDirs, filepath.Join(opts.CacheDir, "applications.json"))
	d.registerModules(cfg)

	server, err := serve.NewServer(opts.SocketPath, d)
	if err != nil {
		d.cancel()
		d.apps.Close()
		return nil, err
	}
	d.server = server
	return d, nil
}

// applyConfig installs cfg. The clipboard capacity and compositor backend
// are fixed at startup.
func (d *Daemon) applyConfig(cfg *zlaunch.Config) {
	var streamer *ai.Streamer
	if zlaunch.AIEnabled(cfg) {
		streamer = ai.NewStreamer(
			zlaunch.ResolveAIBaseURL(cfg),
			zlaunch.ResolveAIAPIKey(cfg),
			zlaunch.ResolveAIModel(cfg),
			cfg.AI.MaxTokens,
			cfg.AI.Temperature,
		)
	}

	d.mu.Lock()
	d.cfg = cfg
	d.combined = zlaunch.ResolveCombinedModules(cfg)
	d.theme = cfg.Theme
	if d.theme == "" {
		d.theme = theme.Default
	}
	d.streamer = streamer
	d.mu.Unlock()

	d.session.Reconfigure(zlaunch.ResolveDefaultModes(cfg), cfg.StickyQuery)
}

func (d *Daemon) registerModules(cfg *zlaunch.Config) {
	d.registry.Register(zlaunch.ModuleApplications, d.apps, index.RefreshOnDemand)
	d.registry.Register(zlaunch.ModuleWindows, index.WindowSource{Lister: d.bridge}, index.RefreshOnQuery)
	d.registry.Register(zlaunch.ModuleClipboard, index.ClipboardSource{History: d.history}, index.RefreshOnDemand)
	d.registry.Register(zlaunch.ModuleEmojis, index.EmojiSource{}, index.RefreshOnDemand)
	d.registry.Register(zlaunch.ModuleThemes, index.ThemeSource{List: func() ([]zlaunch.ThemeInfo, error) {
		return d.themes.List(d.currentTheme())
	}}, index.RefreshOnDemand)
	d.registerConfigModules(cfg)
}

// registerConfigModules installs the sources built from the config file.
func (d *Daemon) registerConfigModules(cfg *zlaunch.Config) {
	d.registry.Register(zlaunch.ModuleActions, index.ActionSource{Custom: cfg.Actions}, index.RefreshOnDemand)
	d.registry.Register(zlaunch.ModuleSearch, index.SearchSource{Providers: cfg.SearchProviders}, index.RefreshOnDemand)
}

func (d *Daemon) config() *zlaunch.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

func (d *Daemon) combinedModules() []zlaunch.Module {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.combined
}

func (d *Daemon) currentTheme() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.theme
}

func (d *Daemon) aiStreamer() *ai.Streamer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.streamer
}

// Session returns the picker session for UI subscribers.
func (d *Daemon) Session() *session.Session {
	return d.session
}

// SocketPath returns the control socket path.
func (d *Daemon) SocketPath() string {
	return d.server.SocketPath()
}

// Done is closed when the daemon has shut down.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Run starts the background workers and serves the control socket until
// ctx is cancelled or a quit request arrives.
func (d *Daemon) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { d.Close() })
	defer stop()

	cfg := d.config()

	d.goWorker(func() {
		if err := d.registry.RefreshAll(d.ctx); err != nil {
			d.logger.Warn("initial index refresh incomplete", "error", err)
		}
	})

	if zlaunch.ClipboardEnabled(cfg) {
		interval := time.Duration(cfg.Clipboard.PollIntervalMs) * time.Millisecond
		w := clipboard.NewWatcher(d.opts.Clipboard, d.history, interval, func(clipboard.Item) {
			d.refresh(zlaunch.ModuleClipboard)
		})
		d.goWorker(func() {
			if err := w.Run(d.ctx); errors.Is(err, clipboard.ErrUnsupported) {
				d.logger.Warn("clipboard history disabled", "error", err)
			}
		})
	}

	if d.bridge.Name() == "hyprland" && zlaunch.HyprlandAutoBlurEnabled(cfg) {
		d.goWorker(func() {
			d.bridge.ApplyLayerRules(d.ctx, compositor.Namespace, compositor.BlurRules)
		})
	}

	if !d.opts.NoWatch {
		d.startWatchers()
	}

	d.logger.Info("ready", "socket", d.server.SocketPath())
	err := d.server.Serve()
	d.Close()
	return err
}

// refresh rebuilds m outside any request. The registry logs the failure
// and leaves m stale.
func (d *Daemon) refresh(m zlaunch.Module) {
	if err := d.registry.Refresh(d.ctx, m); err != nil {
		d.logger.Debug("background refresh failed", "module", m, "error", err)
	}
}

func (d *Daemon) goWorker(fn func()) {
	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		fn()
	}()
}

// startWatchers refreshes applications when desktop files change, themes
// when theme files change, and reloads on config edits.
func (d *Daemon) startWatchers() {
	apps, err := index.NewDirWatcher(d.apps.Dirs(), true, 0, nil, func() {
		d.apps.Invalidate()
		d.refresh(zlaunch.ModuleApplications)
	})
	if err != nil {
		d.logger.Warn("application watcher disabled", "error", err)
	} else {
		d.goWorker(func() { apps.Run(d.ctx) })
	}

	if err := os.MkdirAll(d.opts.ThemesDir, 0755); err != nil {
		d.logger.Warn("cannot create themes directory", "dir", d.opts.ThemesDir, "error", err)
	}
	themes, err := index.NewDirWatcher([]string{d.opts.ThemesDir}, false, 0, nil, func() {
		d.refresh(zlaunch.ModuleThemes)
	})
	if err != nil {
		d.logger.Warn("theme watcher disabled", "error", err)
	} else {
		d.goWorker(func() { themes.Run(d.ctx) })
	}

	configName := filepath.Base(d.opts.ConfigPath)
	configDir := filepath.Dir(d.opts.ConfigPath)
	cfgWatcher, err := index.NewDirWatcher([]string{configDir}, false, 0, isFile(configName), func() {
		d.logger.Info("config file changed, reloading")
		if _, err := d.Reload(); err != nil {
			d.logger.Warn("reload failed", "error", err)
		}
	})
	if err != nil {
		d.logger.Warn("config watcher disabled", "error", err)
	} else {
		d.goWorker(func() { cfgWatcher.Run(d.ctx) })
	}
}

// Reload re-reads the config file. Search providers, actions, default
// modes, the combined set, the sticky policy and the theme are replaced;
// the clipboard history and a visible session are kept. A file that does
// not parse leaves the running configuration untouched.
func (d *Daemon) Reload() ([]string, error) {
	cfg, err := zlaunch.LoadConfigFile(d.opts.ConfigPath)
	if err != nil {
		return nil, zlaunch.Validationf("config: %v", err)
	}

	d.applyConfig(cfg)
	d.registerConfigModules(cfg)

	var errs []error
	for _, m := range []zlaunch.Module{zlaunch.ModuleActions, zlaunch.ModuleSearch, zlaunch.ModuleThemes} {
		errs = append(errs, d.registry.Refresh(d.ctx, m))
	}

	warnings := zlaunch.ValidateConfig(cfg)
	d.logger.Info("config reloaded", "warnings", len(warnings))
	return warnings, errors.Join(errs...)
}

// Close shuts the daemon down: in-flight work is cancelled, the socket is
// closed and the compositor connection is dropped. It is safe to call more
// than once.
func (d *Daemon) Close() {
	d.closeOnce.Do(func() {
		d.logger.Info("shutting down")
		d.cancelQuery()
		d.cancelAsk()
		d.cancel()
		d.server.Close()
		d.workers.Wait()
		d.bridge.Close()
		d.apps.Close()
		close(d.done)
	})
}
