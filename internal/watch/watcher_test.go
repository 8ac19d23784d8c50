package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"cvforge/internal/content"
	"cvforge/internal/document"
	"cvforge/internal/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
}

func TestNewValidation(t *testing.T) {
	_, err := New("", 0, func() {}, nil)
	assert.Error(t, err)

	_, err = New("cv.txt", 0, nil, nil)
	assert.Error(t, err)

	w, err := New("cv.txt", 0, func() {}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounceDelay, w.debounceDelay)
	assert.True(t, filepath.IsAbs(w.Path()))
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.txt")
	writeFile(t, path, "Jane Doe")

	var calls atomic.Int32
	w, err := New(path, 50*time.Millisecond, func() { calls.Add(1) }, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	for i := range 5 {
		writeFile(t, path, "Jane Doe\n- Go"+string(rune('a'+i)))
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "a burst of writes triggers one callback")
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.txt")
	writeFile(t, path, "Jane Doe")

	var calls atomic.Int32
	w, err := New(path, 20*time.Millisecond, func() { calls.Add(1) }, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	writeFile(t, filepath.Join(dir, "other.txt"), "noise")
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestWatcherNoticesAtomicSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.txt")
	writeFile(t, path, "Jane Doe")

	var calls atomic.Int32
	w, err := New(path, 20*time.Millisecond, func() { calls.Add(1) }, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	tmp := filepath.Join(dir, ".cv.txt.swp")
	writeFile(t, tmp, "Jane Doe\n\nSkills\n- Go")
	require.NoError(t, os.Rename(tmp, path))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherStartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.txt")
	w, err := New(path, 0, func() {}, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start())
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(), "second start is rejected")

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	assert.NoError(t, w.Stop(), "stop is idempotent")

	require.NoError(t, w.Start(), "a stopped watcher can restart")
	require.NoError(t, w.Stop())
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.txt")
	w, err := New(path, 0, func() {}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	assert.Eventually(t, w.IsRunning, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, w.IsRunning())
}

func TestRefresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jane.txt")
	writeFile(t, path, "Jane Doe\n\nSkills\n- Go")

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewRefresher(document.NewValidator(1024, []string{".txt"}), document.NewExtractor(nil), content.KindCV, nil)
	r.now = func() time.Time { return fixed }

	snap, err := r.Refresh(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "jane.txt", snap.File)
	assert.False(t, snap.Processed.Opaque)
	require.NotNil(t, snap.Processed.Header)
	assert.Equal(t, "jane.txt", snap.Processed.Header.FileName)
	require.NotEmpty(t, snap.Blocks)
	assert.Equal(t, render.Block{Kind: render.Heading1, Text: "Jane Doe"}, snap.Blocks[0])
	assert.Contains(t, snap.Blocks, render.Block{Kind: render.ListItem, Text: "Go"})
	assert.Equal(t, fixed, snap.Refreshed)
}

func TestRefreshRejectsFile(t *testing.T) {
	dir := t.TempDir()
	r := NewRefresher(document.NewValidator(1024, []string{".txt"}), document.NewExtractor(nil), content.KindCV, nil)

	_, err := r.Refresh(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	big := filepath.Join(dir, "big.txt")
	writeFile(t, big, string(make([]byte, 2048)))
	_, err = r.Refresh(context.Background(), big)
	assert.Error(t, err)
}
