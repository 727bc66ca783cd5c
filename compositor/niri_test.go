package compositor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeNiriReply(req string) string {
	switch req {
	case `"Windows"`:
		return `{"Ok":{"Windows":[` +
			`{"id":11,"title":"Terminal","app_id":"Alacritty","workspace_id":1,"is_focused":true},` +
			`{"id":12,"title":null,"app_id":"org.gnome.Nautilus","workspace_id":2,"is_focused":false},` +
			`{"id":13,"title":"launcher","app_id":"zlaunch","workspace_id":1,"is_focused":false},` +
			`{"id":14,"title":"orphan","app_id":null,"workspace_id":null,"is_focused":false}` +
			`]}}` + "\n"
	case `{"Action":{"FocusWindow":{"id":12}}}`:
		return `{"Ok":"Handled"}` + "\n"
	default:
		return `{"Err":"unknown request"}` + "\n"
	}
}

func TestNiriListWindows(t *testing.T) {
	srv := newFakeServer(t, true, fakeNiriReply)
	c, err := ConnectNiri(srv.path)(context.Background())
	require.NoError(t, err)

	windows, err := c.ListWindows(context.Background())
	require.NoError(t, err)
	require.Len(t, windows, 2)

	assert.Equal(t, Window{ID: "12", Title: "org.gnome.Nautilus", Class: "org.gnome.Nautilus", Workspace: 2}, windows[0])
	assert.Equal(t, "11", windows[1].ID)
	assert.True(t, windows[1].Focused)
}

func TestNiriActivate(t *testing.T) {
	srv := newFakeServer(t, true, fakeNiriReply)
	c, err := ConnectNiri(srv.path)(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.ActivateWindow(context.Background(), "12"))
	assert.ErrorContains(t, c.ActivateWindow(context.Background(), "99"), "unknown request")
	assert.ErrorIs(t, c.ActivateWindow(context.Background(), "not-a-number"), ErrWindowNotFound)
}

func TestNiriLayerRulesUnsupported(t *testing.T) {
	c := &Niri{socket: "/nonexistent"}
	assert.ErrorIs(t, c.ApplyLayerRules(context.Background(), Namespace, BlurRules), ErrUnsupported)
}
