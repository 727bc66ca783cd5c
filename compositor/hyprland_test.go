package compositor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hyprClientsJSON = `[
  {"address":"0x1","mapped":true,"hidden":false,"workspace":{"id":1,"name":"1"},"class":"org.gnome.Nautilus","title":"Files","focusHistoryID":2},
  {"address":"0x2","mapped":true,"hidden":false,"workspace":{"id":2,"name":"2"},"class":"firefox","title":"Mozilla Firefox","focusHistoryID":0},
  {"address":"0x3","mapped":false,"hidden":false,"workspace":{"id":1,"name":"1"},"class":"ghost","title":"unmapped","focusHistoryID":3},
  {"address":"0x4","mapped":true,"hidden":true,"workspace":{"id":1,"name":"1"},"class":"hidden","title":"hidden","focusHistoryID":4},
  {"address":"0x5","mapped":true,"hidden":false,"workspace":{"id":1,"name":"1"},"class":"zlaunch","title":"zlaunch","focusHistoryID":5},
  {"address":"0x6","mapped":true,"hidden":false,"workspace":{"id":3,"name":"3"},"class":"kitty","title":"","focusHistoryID":1},
  {"address":"0x7","mapped":true,"hidden":false,"workspace":{"id":3,"name":"3"},"class":"","title":"no class","focusHistoryID":6}
]`

func hyprReply(req string) string {
	switch {
	case req == "j/clients":
		return hyprClientsJSON
	case strings.HasPrefix(req, "dispatch focuswindow address:0x"):
		return "ok"
	case strings.HasPrefix(req, "keyword layerrule "):
		return "ok"
	default:
		return "unknown request"
	}
}

func TestHyprlandListWindows(t *testing.T) {
	srv := newFakeServer(t, false, hyprReply)
	c, err := ConnectHyprland(srv.path)(context.Background())
	require.NoError(t, err)

	windows, err := c.ListWindows(context.Background())
	require.NoError(t, err)
	require.Len(t, windows, 3)

	assert.Equal(t, "0x6", windows[0].ID)
	assert.Equal(t, "kitty", windows[0].Title, "empty title falls back to class")
	assert.Equal(t, "0x1", windows[1].ID)
	assert.Equal(t, 1, windows[1].Workspace)
	assert.Equal(t, "0x2", windows[2].ID, "focused window comes last")
	assert.True(t, windows[2].Focused)
}

func TestHyprlandActivateAndLayerRules(t *testing.T) {
	srv := newFakeServer(t, false, hyprReply)
	c, err := ConnectHyprland(srv.path)(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.ActivateWindow(context.Background(), "0x1"))
	require.NoError(t, c.ApplyLayerRules(context.Background(), Namespace, BlurRules))

	assert.Equal(t, []string{
		"dispatch focuswindow address:0x1",
		"keyword layerrule blur,zlaunch",
		"keyword layerrule ignorezero,zlaunch",
		"keyword layerrule blurpopups,zlaunch",
		"keyword layerrule ignorealpha 0.35,zlaunch",
	}, srv.Requests())
}

func TestHyprlandErrorReply(t *testing.T) {
	srv := newFakeServer(t, false, func(string) string { return "No such window found" })
	c, err := ConnectHyprland(srv.path)(context.Background())
	require.NoError(t, err)
	assert.ErrorContains(t, c.ActivateWindow(context.Background(), "0x9"), "No such window")
}

func TestConnectHyprlandMissingSocket(t *testing.T) {
	_, err := ConnectHyprland("/nonexistent/hypr.sock")(context.Background())
	assert.Error(t, err)
}

func TestHyprlandSocketPath(t *testing.T) {
	env := map[string]string{}
	getenv := func(k string) string { return env[k] }
	assert.Empty(t, HyprlandSocket(getenv))

	env["HYPRLAND_INSTANCE_SIGNATURE"] = "abc"
	assert.Equal(t, "/tmp/hypr/abc/.socket.sock", HyprlandSocket(getenv))

	runtime := t.TempDir()
	sockDir := filepath.Join(runtime, "hypr", "abc")
	require.NoError(t, os.MkdirAll(sockDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sockDir, ".socket.sock"), nil, 0600))
	env["XDG_RUNTIME_DIR"] = runtime
	assert.Equal(t, filepath.Join(sockDir, ".socket.sock"), HyprlandSocket(getenv))
}
