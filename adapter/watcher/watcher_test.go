package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music-box/pkg/logger"
)

func TestWatcher_DebouncesChanges(t *testing.T) {
	root := t.TempDir()
	var calls int32

	w, err := New(&Config{Root: root, QuietPeriod: 100 * time.Millisecond}, func() {
		atomic.AddInt32(&calls, 1)
	}, logger.NewNopZerolog())
	require.NoError(t, err)
	defer w.Close()

	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, 2*time.Second, 10*time.Millisecond)

	sub := filepath.Join(root, "album")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, 2*time.Second, 10*time.Millisecond)

	// files inside a directory created after start are seen too
	require.NoError(t, os.WriteFile(filepath.Join(sub, "d.mp3"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_MissingRoot(t *testing.T) {
	_, err := New(&Config{Root: filepath.Join(t.TempDir(), "nope")}, func() {}, logger.NewNopZerolog())
	assert.Error(t, err)
}
