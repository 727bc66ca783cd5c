package compositor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
)

// Niri speaks niri's JSON IPC: one request line, one reply line of the form
// {"Ok": ...} or {"Err": "..."}.
type Niri struct {
	socket string
}

// ConnectNiri returns a Connector for the socket named by $NIRI_SOCKET.
func ConnectNiri(socket string) Connector {
	return func(ctx context.Context) (Compositor, error) {
		if _, err := os.Stat(socket); err != nil {
			return nil, err
		}
		return &Niri{socket: socket}, nil
	}
}

func (n *Niri) Name() string { return "niri" }

func (n *Niri) Close() error { return nil }

type niriReply struct {
	Ok  json.RawMessage `json:"Ok"`
	Err *string         `json:"Err"`
}

type niriWindow struct {
	ID          uint64  `json:"id"`
	Title       *string `json:"title"`
	AppID       *string `json:"app_id"`
	WorkspaceID *int    `json:"workspace_id"`
	IsFocused   bool    `json:"is_focused"`
}

func (n *Niri) ListWindows(ctx context.Context) ([]Window, error) {
	ok, err := n.request(ctx, "Windows")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Windows []niriWindow `json:"Windows"`
	}
	if err := json.Unmarshal(ok, &payload); err != nil {
		return nil, fmt.Errorf("niri: parse windows: %w", err)
	}

	windows := make([]Window, 0, len(payload.Windows))
	var focused []Window
	for _, nw := range payload.Windows {
		w := Window{ID: strconv.FormatUint(nw.ID, 10), Focused: nw.IsFocused}
		if nw.AppID != nil {
			w.Class = *nw.AppID
		}
		if nw.Title != nil {
			w.Title = *nw.Title
		}
		if nw.WorkspaceID != nil {
			w.Workspace = *nw.WorkspaceID
		}
		if w.Class == "" || ownClass(w.Class) {
			continue
		}
		if w.Title == "" {
			w.Title = w.Class
		}
		if w.Focused {
			focused = append(focused, w)
			continue
		}
		windows = append(windows, w)
	}
	return append(windows, focused...), nil
}

func (n *Niri) ActivateWindow(ctx context.Context, id string) error {
	wid, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrWindowNotFound, id)
	}
	req := map[string]any{
		"Action": map[string]any{
			"FocusWindow": map[string]uint64{"id": wid},
		},
	}
	_, err = n.request(ctx, req)
	return err
}

// ApplyLayerRules is unsupported: niri layer rules live in its config file.
func (n *Niri) ApplyLayerRules(context.Context, string, []string) error {
	return ErrUnsupported
}

func (n *Niri) request(ctx context.Context, req any) (json.RawMessage, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", n.socket)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, err
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}

	var reply niriReply
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("niri: parse reply: %w", err)
	}
	if reply.Err != nil {
		return nil, errors.New("niri: " + *reply.Err)
	}
	return reply.Ok, nil
}
