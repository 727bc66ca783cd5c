package daemon

import (
	"context"
	"errors"
	"fmt"

	zlaunch "github.com/zortax/zlaunch"
	"github.com/zortax/zlaunch/compositor"
	"github.com/zortax/zlaunch/index"
)

// execute performs the action of an activated entry.
func (d *Daemon) execute(ctx context.Context, e index.Entry) error {
	a := e.Action
	d.logger.Debug("activate", "id", e.ID, "kind", a.Kind)

	switch a.Kind {
	case index.ActionLaunch:
		argv := a.Argv
		if a.Terminal {
			argv = index.TerminalArgv(argv)
		}
		return wrapLaunch(e, d.opts.Launcher.Spawn(argv))

	case index.ActionCommand:
		if a.Command != "" {
			return wrapLaunch(e, d.opts.Launcher.Shell(a.Command))
		}
		return wrapLaunch(e, d.opts.Launcher.Spawn(a.Argv))

	case index.ActionURL:
		return wrapLaunch(e, d.opts.Launcher.OpenURL(a.URL))

	case index.ActionWindow:
		err := d.bridge.ActivateWindow(ctx, a.WindowID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, compositor.ErrWindowNotFound):
			return zlaunch.NewError(zlaunch.CodeNotFound, "window %s is gone", a.WindowID)
		default:
			return zlaunch.WrapError(zlaunch.CodeCompositorUnavailable, err)
		}

	case index.ActionClipboard:
		item, ok := d.history.Get(a.ClipboardID)
		if !ok {
			return zlaunch.NewError(zlaunch.CodeNotFound, "clipboard item %d was evicted", a.ClipboardID)
		}
		return d.opts.Clipboard.WriteText(item.Content)

	case index.ActionCopy:
		return d.opts.Clipboard.WriteText(a.Text)

	case index.ActionTheme:
		return d.setTheme(a.Theme)

	default:
		return zlaunch.NewError(zlaunch.CodeInternal, "entry %s has no action", e.ID)
	}
}

func wrapLaunch(e index.Entry, err error) error {
	if err == nil {
		return nil
	}
	return zlaunch.WrapError(zlaunch.CodeInternal, fmt.Errorf("launch %s: %w", e.Title, err))
}
