package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cipher.txt")
	require.NoError(t, os.WriteFile(path, []byte("LXFOPVEFRNHR"), 0600))

	text, digest1, size, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "LXFOPVEFRNHR", text)
	assert.Equal(t, int64(12), size)
	assert.Len(t, digest1, 64)

	require.NoError(t, os.WriteFile(path, []byte("ATTACKATDAWN"), 0600))
	_, digest2, _, err := ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, digest1, digest2)
}

func TestReadFileNotFound(t *testing.T) {
	_, _, _, err := ReadFile("/nonexistent/cipher.txt")
	assert.Error(t, err)
}

func TestNewRejectsZeroSettle(t *testing.T) {
	_, err := New([]string{t.TempDir()}, 0)
	assert.Error(t, err)
}

func TestStartMissingPath(t *testing.T) {
	w, err := New([]string{"/nonexistent/path"}, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Error(t, w.Start())
	assert.NoError(t, w.Stop())
}

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestWatcherEmitsExistingAndChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cipher.txt")
	require.NoError(t, os.WriteFile(path, []byte("LXFOPVEFRNHR"), 0600))

	w, err := New([]string{path}, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	ev := waitEvent(t, w)
	abs, _ := filepath.Abs(path)
	assert.Equal(t, abs, ev.Path)
	assert.Equal(t, "LXFOPVEFRNHR", ev.Text)

	require.NoError(t, os.WriteFile(path, []byte("ZICVTWQNGRZG"), 0600))
	ev = waitEvent(t, w)
	assert.Equal(t, "ZICVTWQNGRZG", ev.Text)
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cipher.txt")
	require.NoError(t, os.WriteFile(path, []byte("ABC"), 0600))

	w, err := New([]string{path}, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	waitEvent(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("XYZ"), 0600))
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for %s", ev.Path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherSkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()

	w, err := New([]string{dir}, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, "cipher.txt")
	require.NoError(t, os.WriteFile(path, []byte("SAME"), 0600))
	assert.Equal(t, "SAME", waitEvent(t, w).Text)

	require.NoError(t, os.WriteFile(path, []byte("SAME"), 0600))
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for unchanged %s", ev.Path)
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, 0, w.TrackedFiles())
}

func TestStopIsIdempotent(t *testing.T) {
	w, err := New([]string{t.TempDir()}, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
	assert.Len(t, w.WatchedPaths(), 1)
}
