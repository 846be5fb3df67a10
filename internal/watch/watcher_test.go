package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherFiresOnceAfterBurst(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "resume.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0600))

	fired := make(chan struct{}, 4)
	w := New("test", []string{file, ""}, 50*time.Millisecond, func() { fired <- struct{}{} }, nil)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	assert.Equal(t, []string{file}, w.Files())
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(), "second start must fail")

	future := time.Now().Add(2 * time.Second)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte(`{"summary":"x"}`), 0600))
	}
	require.NoError(t, os.Chtimes(file, future, future))

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("change callback was not invoked")
	}

	select {
	case <-fired:
		t.Fatal("burst of writes should produce a single callback")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "watched.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0600))

	fired := make(chan struct{}, 1)
	w := New("test", []string{file}, 20*time.Millisecond, func() { fired <- struct{}{} }, nil)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0600))

	select {
	case <-fired:
		t.Fatal("unrelated file triggered the callback")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w := New("test", []string{filepath.Join(t.TempDir(), "missing.pem")}, 0, func() {}, nil)
	assert.NoError(t, w.Stop())
	require.NoError(t, w.Start())
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}
