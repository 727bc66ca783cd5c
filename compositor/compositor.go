// Package compositor talks to the running Wayland compositor over its native
// IPC to list and focus windows and to request layer rules such as blur.
package compositor

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means the compositor could not be reached or did not
	// answer within the call timeout.
	ErrUnavailable = errors.New("compositor unavailable")
	// ErrWindowNotFound means the window no longer exists.
	ErrWindowNotFound = errors.New("window not found")
	// ErrUnsupported means the backend has no such capability.
	ErrUnsupported = errors.New("not supported by compositor")
)

// Namespace is the layer-shell namespace of the launcher surface.
const Namespace = "zlaunch"

// BlurRules are the layer rules that give the launcher a blurred background.
var BlurRules = []string{"blur", "ignorezero", "blurpopups", "ignorealpha 0.35"}

// Window is one toplevel window as reported by the compositor.
type Window struct {
	// ID is the compositor's opaque window identifier.
	ID    string
	Title string
	// Class is the application id (Wayland app_id or X11 class).
	Class     string
	Workspace int
	Focused   bool
}

// Compositor is one compositor IPC dialect. Implementations own their
// connection; the Bridge closes and replaces them after a failure.
type Compositor interface {
	Name() string
	ListWindows(ctx context.Context) ([]Window, error)
	ActivateWindow(ctx context.Context, id string) error
	ApplyLayerRules(ctx context.Context, namespace string, rules []string) error
	Close() error
}

// Connector establishes a fresh Compositor connection.
type Connector func(ctx context.Context) (Compositor, error)

// ownClass reports whether a window belongs to the launcher itself.
func ownClass(class string) bool {
	return class == Namespace
}
