package compositor

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// HyprlandSocket returns the command socket path of the Hyprland instance
// named by $HYPRLAND_INSTANCE_SIGNATURE, or "" outside Hyprland.
func HyprlandSocket(getenv func(string) string) string {
	sig := getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if sig == "" {
		return ""
	}
	if dir := getenv("XDG_RUNTIME_DIR"); dir != "" {
		path := filepath.Join(dir, "hypr", sig, ".socket.sock")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join("/tmp", "hypr", sig, ".socket.sock")
}

// Hyprland speaks hyprctl's socket protocol: one command per connection,
// the reply is everything read until the server closes.
type Hyprland struct {
	socket string
}

// ConnectHyprland returns a Connector for the given command socket.
func ConnectHyprland(socket string) Connector {
	return func(ctx context.Context) (Compositor, error) {
		if _, err := os.Stat(socket); err != nil {
			return nil, err
		}
		return &Hyprland{socket: socket}, nil
	}
}

func (h *Hyprland) Name() string { return "hyprland" }

func (h *Hyprland) Close() error { return nil }

type hyprClient struct {
	Address   string `json:"address"`
	Mapped    bool   `json:"mapped"`
	Hidden    bool   `json:"hidden"`
	Workspace struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"workspace"`
	Class          string `json:"class"`
	Title          string `json:"title"`
	FocusHistoryID int    `json:"focusHistoryID"`
}

// ListWindows returns mapped, visible windows ordered by focus history, the
// focused window last so the most recent other window comes first.
func (h *Hyprland) ListWindows(ctx context.Context) ([]Window, error) {
	data, err := h.request(ctx, "j/clients")
	if err != nil {
		return nil, err
	}

	var clients []hyprClient
	if err := json.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("hyprland: parse clients: %w", err)
	}

	clients = slices.DeleteFunc(clients, func(c hyprClient) bool {
		return !c.Mapped || c.Hidden || c.Class == "" || ownClass(c.Class)
	})
	slices.SortStableFunc(clients, func(a, b hyprClient) int {
		return cmp.Compare(a.FocusHistoryID, b.FocusHistoryID)
	})

	windows := make([]Window, 0, len(clients))
	var focused []Window
	for _, c := range clients {
		w := Window{
			ID:        c.Address,
			Title:     c.Title,
			Class:     c.Class,
			Workspace: c.Workspace.ID,
			Focused:   c.FocusHistoryID == 0,
		}
		if w.Title == "" {
			w.Title = c.Class
		}
		if w.Focused {
			focused = append(focused, w)
			continue
		}
		windows = append(windows, w)
	}
	return append(windows, focused...), nil
}

func (h *Hyprland) ActivateWindow(ctx context.Context, id string) error {
	return h.expectOK(ctx, "dispatch focuswindow address:"+id)
}

func (h *Hyprland) ApplyLayerRules(ctx context.Context, namespace string, rules []string) error {
	for _, rule := range rules {
		if err := h.expectOK(ctx, fmt.Sprintf("keyword layerrule %s,%s", rule, namespace)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hyprland) expectOK(ctx context.Context, cmd string) error {
	data, err := h.request(ctx, cmd)
	if err != nil {
		return err
	}
	if reply := strings.TrimSpace(string(data)); reply != "ok" {
		return fmt.Errorf("hyprland: %q: %s", cmd, reply)
	}
	return nil
}

func (h *Hyprland) request(ctx context.Context, cmd string) ([]byte, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", h.socket)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if _, err := conn.Write([]byte(cmd)); err != nil {
		return nil, err
	}
	return io.ReadAll(conn)
}
