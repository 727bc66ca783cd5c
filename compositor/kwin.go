package compositor

import (
	"context"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	kwinService    = "org.kde.KWin"
	kwinRunnerPath = dbus.ObjectPath("/WindowsRunner")
	krunnerIface   = "org.kde.krunner1"
	kwinIDPrefix   = "0_"
)

// KWin lists and activates windows through KWin's krunner WindowsRunner on
// the session bus.
type KWin struct {
	conn *dbus.Conn
}

// ConnectKWin opens a private session bus connection.
func ConnectKWin() Connector {
	return func(ctx context.Context) (Compositor, error) {
		conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		return &KWin{conn: conn}, nil
	}
}

func (k *KWin) Name() string { return "kwin" }

func (k *KWin) Close() error { return k.conn.Close() }

// krunnerMatch mirrors the krunner1 Match signature a(sssida{sv}).
type krunnerMatch struct {
	ID         string
	Text       string
	IconName   string
	Type       int32
	Relevance  float64
	Properties map[string]dbus.Variant
}

func (k *KWin) ListWindows(ctx context.Context) ([]Window, error) {
	var matches []krunnerMatch
	obj := k.conn.Object(kwinService, kwinRunnerPath)
	if err := obj.CallWithContext(ctx, krunnerIface+".Match", 0, "").Store(&matches); err != nil {
		return nil, err
	}

	windows := make([]Window, 0, len(matches))
	for _, m := range matches {
		w := Window{
			ID:    strings.TrimPrefix(m.ID, kwinIDPrefix),
			Title: m.Text,
			Class: m.IconName,
		}
		if w.Class == "" || ownClass(w.Class) {
			continue
		}
		if w.Title == "" {
			w.Title = w.Class
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func (k *KWin) ActivateWindow(ctx context.Context, id string) error {
	obj := k.conn.Object(kwinService, kwinRunnerPath)
	return obj.CallWithContext(ctx, krunnerIface+".Run", 0, kwinIDPrefix+id, "").Err
}

// ApplyLayerRules is unsupported: KWin blurs via its own effect settings.
func (k *KWin) ApplyLayerRules(context.Context, string, []string) error {
	return ErrUnsupported
}
