package compositor

import "context"

// Noop is used when no supported compositor is running. It has no windows.
type Noop struct{}

func (Noop) Name() string { return "none" }

func (Noop) Close() error { return nil }

func (Noop) ListWindows(context.Context) ([]Window, error) { return nil, nil }

func (Noop) ActivateWindow(_ context.Context, id string) error { return ErrWindowNotFound }

func (Noop) ApplyLayerRules(context.Context, string, []string) error { return ErrUnsupported }

// Detect picks a backend. A non-empty backend name forces that backend;
// otherwise the environment is probed in the order Hyprland, KWin, Niri.
func Detect(backend string, getenv func(string) string) (string, Connector) {
	noop := func(context.Context) (Compositor, error) { return Noop{}, nil }

	switch backend {
	case "hyprland":
		return "hyprland", ConnectHyprland(HyprlandSocket(getenv))
	case "kwin":
		return "kwin", ConnectKWin()
	case "niri":
		return "niri", ConnectNiri(getenv("NIRI_SOCKET"))
	case "none":
		return "none", noop
	}

	if getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return "hyprland", ConnectHyprland(HyprlandSocket(getenv))
	}
	if getenv("KDE_SESSION_VERSION") != "" {
		return "kwin", ConnectKWin()
	}
	if sock := getenv("NIRI_SOCKET"); sock != "" {
		return "niri", ConnectNiri(sock)
	}
	return "none", noop
}
