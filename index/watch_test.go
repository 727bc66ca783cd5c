package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirWatcherDebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	dw, err := NewDirWatcher([]string{dir}, true, 100*time.Millisecond, nil, func() { calls.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dw.Run(ctx)

	for i := range 5 {
		name := filepath.Join(dir, string(rune('a'+i))+".desktop")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0644))
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDirWatcherFollowsNewSubdirs(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	dw, err := NewDirWatcher([]string{dir}, true, 50*time.Millisecond, nil, func() { calls.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dw.Run(ctx)

	sub := filepath.Join(dir, "kde")
	require.NoError(t, os.Mkdir(sub, 0755))
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 20*time.Millisecond)

	before := calls.Load()
	require.NoError(t, os.WriteFile(filepath.Join(sub, "konsole.desktop"), []byte("x"), 0644))
	assert.Eventually(t, func() bool { return calls.Load() > before }, 2*time.Second, 20*time.Millisecond)
}

func TestDirWatcherFilter(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	onlyTOML := func(e fsnotify.Event) bool { return strings.HasSuffix(e.Name, ".toml") }
	dw, err := NewDirWatcher([]string{dir}, false, 50*time.Millisecond, onlyTOML, func() { calls.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dw.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("x"), 0644))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
}

func TestDirWatcherSkipsMissingDirs(t *testing.T) {
	dir := t.TempDir()
	dw, err := NewDirWatcher([]string{dir, filepath.Join(dir, "missing")}, false, 0, nil, func() {})
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, dw.WatchList())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { dw.Run(ctx); close(done) }()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
