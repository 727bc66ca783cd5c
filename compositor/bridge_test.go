package compositor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompositor records calls and fails on demand.
type fakeCompositor struct {
	mu       sync.Mutex
	windows  []Window
	listErr  error
	block    chan struct{}
	closed   bool
	rules    []string
	rulesErr error
	focused  string
}

func (f *fakeCompositor) Name() string { return "fake" }

func (f *fakeCompositor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeCompositor) ListWindows(ctx context.Context) ([]Window, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.windows, f.listErr
}

func (f *fakeCompositor) ActivateWindow(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focused = id
	return nil
}

func (f *fakeCompositor) ApplyLayerRules(_ context.Context, namespace string, rules []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rules...)
	return f.rulesErr
}

func (f *fakeCompositor) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// connector hands out the given compositors in order and counts dials.
func connector(cs ...*fakeCompositor) (Connector, *atomic.Int32) {
	var n atomic.Int32
	return func(context.Context) (Compositor, error) {
		i := int(n.Add(1)) - 1
		if i >= len(cs) {
			return nil, errors.New("no more connections")
		}
		return cs[i], nil
	}, &n
}

func TestBridgeConnectsLazilyAndReuses(t *testing.T) {
	c := &fakeCompositor{windows: []Window{{ID: "a"}}}
	connect, dials := connector(c)
	b := NewBridge("fake", connect, time.Second)
	assert.Zero(t, dials.Load())

	for range 3 {
		windows, err := b.ListWindows(context.Background())
		require.NoError(t, err)
		assert.Len(t, windows, 1)
	}
	assert.EqualValues(t, 1, dials.Load())
}

func TestBridgeReconnectsAfterFailure(t *testing.T) {
	broken := &fakeCompositor{listErr: errors.New("broken pipe")}
	fresh := &fakeCompositor{windows: []Window{{ID: "b"}}}
	connect, dials := connector(broken, fresh)
	b := NewBridge("fake", connect, time.Second)

	_, err := b.ListWindows(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, broken.isClosed(), "failed connection is torn down")

	windows, err := b.ListWindows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", windows[0].ID)
	assert.EqualValues(t, 2, dials.Load())
}

func TestBridgeConnectFailureIsUnavailable(t *testing.T) {
	b := NewBridge("fake", func(context.Context) (Compositor, error) {
		return nil, errors.New("no such file")
	}, time.Second)
	_, err := b.ListWindows(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBridgeTimeout(t *testing.T) {
	hung := &fakeCompositor{block: make(chan struct{})}
	defer close(hung.block)
	connect, _ := connector(hung)
	b := NewBridge("fake", connect, 20*time.Millisecond)

	start := time.Now()
	_, err := b.ListWindows(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, hung.isClosed())
}

func TestBridgeActivateMissingWindow(t *testing.T) {
	c := &fakeCompositor{windows: []Window{{ID: "a"}}}
	connect, dials := connector(c)
	b := NewBridge("fake", connect, time.Second)

	err := b.ActivateWindow(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrWindowNotFound)
	assert.False(t, c.isClosed(), "not found keeps the connection")

	require.NoError(t, b.ActivateWindow(context.Background(), "a"))
	assert.Equal(t, "a", c.focused)
	assert.EqualValues(t, 1, dials.Load())
}

func TestBridgeLayerRulesNeverFail(t *testing.T) {
	c := &fakeCompositor{rulesErr: ErrUnsupported}
	connect, _ := connector(c)
	b := NewBridge("fake", connect, time.Second)
	b.ApplyLayerRules(context.Background(), Namespace, BlurRules)
	assert.Equal(t, BlurRules, c.rules)

	down := NewBridge("fake", func(context.Context) (Compositor, error) {
		return nil, errors.New("down")
	}, time.Second)
	down.ApplyLayerRules(context.Background(), Namespace, BlurRules)
}

func TestBridgeClose(t *testing.T) {
	c := &fakeCompositor{}
	connect, _ := connector(c)
	b := NewBridge("fake", connect, time.Second)
	_, err := b.ListWindows(context.Background())
	require.NoError(t, err)
	b.Close()
	assert.True(t, c.isClosed())
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		env     map[string]string
		want    string
	}{
		{"nothing", "", nil, "none"},
		{"hyprland", "", map[string]string{"HYPRLAND_INSTANCE_SIGNATURE": "x"}, "hyprland"},
		{"kwin", "", map[string]string{"KDE_SESSION_VERSION": "6"}, "kwin"},
		{"niri", "", map[string]string{"NIRI_SOCKET": "/run/niri.sock"}, "niri"},
		{"hyprland before niri", "", map[string]string{"HYPRLAND_INSTANCE_SIGNATURE": "x", "NIRI_SOCKET": "/s"}, "hyprland"},
		{"kwin before niri", "", map[string]string{"KDE_SESSION_VERSION": "6", "NIRI_SOCKET": "/s"}, "kwin"},
		{"forced", "none", map[string]string{"HYPRLAND_INSTANCE_SIGNATURE": "x"}, "none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, connect := Detect(tt.backend, func(k string) string { return tt.env[k] })
			assert.Equal(t, tt.want, name)
			assert.NotNil(t, connect)
		})
	}
}

func TestNoopHasNoWindows(t *testing.T) {
	name, connect := Detect("", func(string) string { return "" })
	b := NewBridge(name, connect, time.Second)
	windows, err := b.ListWindows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, windows)
	assert.ErrorIs(t, b.ActivateWindow(context.Background(), "x"), ErrWindowNotFound)
}
