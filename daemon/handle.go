package daemon

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"

	zlaunch "github.com/zortax/zlaunch"
	"github.com/zortax/zlaunch/ai"
	"github.com/zortax/zlaunch/index"
)

// Handle executes one control request. It never blocks on the UI; session
// results for show, toggle and mode changes are published asynchronously.
func (d *Daemon) Handle(ctx context.Context, req *zlaunch.Request) *zlaunch.Response {
	switch req.Command {
	case zlaunch.CommandShow, zlaunch.CommandToggle:
		modes, err := zlaunch.ParseModes(req.Modes)
		if err != nil {
			return zlaunch.ErrorResponse(err)
		}
		var st zlaunch.State
		if req.Command == zlaunch.CommandShow {
			st = d.session.Show(modes)
		} else {
			st = d.session.Toggle(modes)
		}
		d.afterTransition(st)
		return stateResponse(st)

	case zlaunch.CommandHide:
		st := d.session.Hide()
		d.afterTransition(st)
		return stateResponse(st)

	case zlaunch.CommandStatus:
		return stateResponse(d.session.Snapshot())

	case zlaunch.CommandNextMode, zlaunch.CommandPrevMode:
		var st zlaunch.State
		var err error
		if req.Command == zlaunch.CommandNextMode {
			st, err = d.session.NextMode()
		} else {
			st, err = d.session.PrevMode()
		}
		if err != nil {
			return zlaunch.ErrorResponse(err)
		}
		d.afterTransition(st)
		return stateResponse(st)

	case zlaunch.CommandSetQuery:
		st, err := d.session.SetQuery(req.Query)
		if err != nil {
			return zlaunch.ErrorResponse(err)
		}
		results, err := d.resolveSession(ctx, st, req.Limit)
		if err != nil {
			return zlaunch.ErrorResponse(err)
		}
		return &zlaunch.Response{OK: true, State: &st, Results: results}

	case zlaunch.CommandQuery:
		return d.handleQuery(ctx, req)

	case zlaunch.CommandRefresh:
		return d.handleRefresh(ctx, req)

	case zlaunch.CommandActivate:
		return d.handleActivate(ctx, req)

	case zlaunch.CommandTheme:
		return d.handleTheme(req)

	case zlaunch.CommandReload:
		warnings, err := d.Reload()
		if err != nil {
			resp := zlaunch.ErrorResponse(err)
			resp.Warnings = warnings
			return resp
		}
		return &zlaunch.Response{OK: true, Warnings: warnings}

	case zlaunch.CommandAsk:
		return d.handleAsk(ctx, req)

	case zlaunch.CommandQuit:
		// Close waits for this reply to be written, so it runs outside
		// the handler.
		go d.Close()
		return zlaunch.OKResponse()

	default:
		return zlaunch.ErrorResponse(zlaunch.Protocolf("unknown command %q", req.Command))
	}
}

func stateResponse(st zlaunch.State) *zlaunch.Response {
	return &zlaunch.Response{OK: true, State: &st}
}

// afterTransition supersedes in-flight session work. A visible session
// gets fresh results; hiding cancels any AI answer.
func (d *Daemon) afterTransition(st zlaunch.State) {
	if !st.Visible {
		d.cancelQuery()
		d.cancelAsk()
		return
	}
	go func() {
		if _, err := d.resolveSession(d.ctx, st, 0); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Debug("session query failed", "error", err)
		}
	}()
}

// resolveSession ranks st's query in st's mode, cancelling the previous
// session query, and publishes the results if st is still current.
func (d *Daemon) resolveSession(ctx context.Context, st zlaunch.State, limit int) ([]zlaunch.Result, error) {
	ctx = d.supersede(ctx)
	results, err := d.query(ctx, []zlaunch.Mode{st.Mode}, st.Query, limit)
	if err != nil {
		return nil, err
	}
	if !d.session.PublishResults(st.Generation, results) {
		d.logger.Debug("dropped superseded results", "generation", st.Generation)
	}
	return results, nil
}

func (d *Daemon) supersede(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	d.inflight.Lock()
	if d.queryCancel != nil {
		d.queryCancel()
	}
	d.queryCancel = cancel
	d.inflight.Unlock()
	return ctx
}

func (d *Daemon) cancelQuery() {
	d.inflight.Lock()
	defer d.inflight.Unlock()
	if d.queryCancel != nil {
		d.queryCancel()
		d.queryCancel = nil
	}
}

func (d *Daemon) cancelAsk() {
	d.inflight.Lock()
	defer d.inflight.Unlock()
	if d.askCancel != nil {
		d.askCancel()
		d.askCancel = nil
	}
}

// query ranks text across the modules of modes, in mode order.
func (d *Daemon) query(ctx context.Context, modes []zlaunch.Mode, text string, limit int) ([]zlaunch.Result, error) {
	combined := d.combinedModules()
	var modules []zlaunch.Module
	for _, mode := range modes {
		for _, m := range mode.Modules(combined) {
			if !slices.Contains(modules, m) {
				modules = append(modules, m)
			}
		}
	}

	scored, err := d.registry.Query(ctx, index.Query{Text: text, Modules: modules, Limit: limit})
	if err != nil {
		return nil, err
	}
	results := make([]zlaunch.Result, 0, len(scored))
	for _, s := range scored {
		results = append(results, s.Result())
	}
	return results, nil
}

func (d *Daemon) handleQuery(ctx context.Context, req *zlaunch.Request) *zlaunch.Response {
	modes, err := zlaunch.ParseModes(req.Modes)
	if err != nil {
		return zlaunch.ErrorResponse(err)
	}
	if len(modes) == 0 {
		modes = []zlaunch.Mode{d.session.Snapshot().Mode}
	}
	if req.Limit < 0 {
		return zlaunch.ErrorResponse(zlaunch.Validationf("limit must not be negative"))
	}
	results, err := d.query(ctx, modes, req.Query, req.Limit)
	if err != nil {
		return zlaunch.ErrorResponse(err)
	}
	return &zlaunch.Response{OK: true, Results: results}
}

func (d *Daemon) handleRefresh(ctx context.Context, req *zlaunch.Request) *zlaunch.Response {
	if req.Module == "" {
		d.apps.Invalidate()
		if err := d.registry.RefreshAll(ctx); err != nil {
			return zlaunch.ErrorResponse(err)
		}
		return zlaunch.OKResponse()
	}

	m, err := zlaunch.ParseModule(req.Module)
	if err != nil {
		return zlaunch.ErrorResponse(err)
	}
	if m == zlaunch.ModuleApplications {
		d.apps.Invalidate()
	}
	if err := d.registry.Refresh(ctx, m); err != nil {
		return zlaunch.ErrorResponse(err)
	}
	return zlaunch.OKResponse()
}

func (d *Daemon) handleActivate(ctx context.Context, req *zlaunch.Request) *zlaunch.Response {
	if req.ID == "" {
		return zlaunch.ErrorResponse(zlaunch.Validationf("activate needs an id"))
	}
	query := req.Query
	if query == "" {
		query = d.session.Snapshot().Query
	}
	entry, ok := d.registry.Find(req.ID, query)
	if !ok {
		return zlaunch.ErrorResponse(zlaunch.NewError(zlaunch.CodeNotFound, "no entry %q", req.ID))
	}
	if err := d.execute(ctx, entry); err != nil {
		return zlaunch.ErrorResponse(err)
	}

	st := d.session.Hide()
	d.afterTransition(st)
	return stateResponse(st)
}

func (d *Daemon) handleTheme(req *zlaunch.Request) *zlaunch.Response {
	switch req.Action {
	case zlaunch.ThemeActionGet:
		return &zlaunch.Response{OK: true, Theme: d.currentTheme()}

	case zlaunch.ThemeActionList:
		themes, err := d.themes.List(d.currentTheme())
		if err != nil {
			return zlaunch.ErrorResponse(err)
		}
		return &zlaunch.Response{OK: true, Themes: themes}

	case zlaunch.ThemeActionSet:
		if err := d.setTheme(req.Name); err != nil {
			return zlaunch.ErrorResponse(err)
		}
		return &zlaunch.Response{OK: true, Theme: req.Name}

	default:
		return zlaunch.ErrorResponse(zlaunch.Protocolf("unknown theme action %q", req.Action))
	}
}

// setTheme switches to name and persists it to an existing config file.
func (d *Daemon) setTheme(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return zlaunch.Validationf("theme name is empty")
	}
	ok, err := d.themes.Exists(name)
	if err != nil {
		return err
	}
	if !ok {
		return zlaunch.Validationf("unknown theme %q", name)
	}

	d.mu.Lock()
	d.theme = name
	d.mu.Unlock()

	if err := zlaunch.SaveTheme(d.opts.ConfigPath, name); err != nil {
		d.logger.Warn("failed to persist theme", "theme", name, "error", err)
	}
	d.refresh(zlaunch.ModuleThemes)
	d.logger.Info("theme changed", "theme", name)
	return nil
}

// handleAsk streams an answer for req.Query. A newer ask or hiding the
// picker cancels it; the text received so far is returned with the error.
func (d *Daemon) handleAsk(ctx context.Context, req *zlaunch.Request) *zlaunch.Response {
	prompt := strings.TrimSpace(req.Query)
	if prompt == "" {
		return zlaunch.ErrorResponse(zlaunch.Validationf("ask needs a query"))
	}
	streamer := d.aiStreamer()
	if !streamer.Enabled() {
		return zlaunch.ErrorResponse(zlaunch.Validationf("AI is not configured: set an API key"))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.inflight.Lock()
	if d.askCancel != nil {
		d.askCancel()
	}
	d.askCancel = cancel
	d.inflight.Unlock()

	text, err := ai.Collect(streamer.Stream(ctx, prompt))
	if err != nil {
		resp := zlaunch.ErrorResponse(err)
		if errors.Is(err, context.Canceled) {
			resp = zlaunch.ErrorResponse(zlaunch.NewError(zlaunch.CodeInternal, "answer cancelled"))
		}
		resp.Text = text
		return resp
	}
	return &zlaunch.Response{OK: true, Text: text}
}

// isFile matches events for one file name in a watched directory.
func isFile(name string) func(fsnotify.Event) bool {
	return func(e fsnotify.Event) bool {
		return strings.HasSuffix(e.Name, "/"+name)
	}
}
