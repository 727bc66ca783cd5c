package launch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnRunsDetached(t *testing.T) {
	dir := t.TempDir()
	l := New()
	l.Dir = dir

	require.NoError(t, l.Shell(`echo "$PWD" > out.txt`))

	out := filepath.Join(dir, "out.txt")
	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && len(data) > 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSpawnEmpty(t *testing.T) {
	l := New()
	assert.ErrorIs(t, l.Spawn(nil), ErrEmptyCommand)
	assert.ErrorIs(t, l.Spawn([]string{""}), ErrEmptyCommand)
	assert.ErrorIs(t, l.Shell(""), ErrEmptyCommand)
	assert.ErrorIs(t, l.OpenURL(""), ErrEmptyCommand)
}

func TestSpawnMissingBinary(t *testing.T) {
	l := New()
	l.Dir = t.TempDir()
	assert.Error(t, l.Spawn([]string{"zlaunch-definitely-not-a-binary"}))
}
