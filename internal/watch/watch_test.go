package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vaultfill/internal/storage"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, rel string) {
	r.mu.Lock()
	r.paths = append(r.paths, rel)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recorder) count(rel string) int {
	n := 0
	for _, p := range r.snapshot() {
		if p == rel {
			n++
		}
	}
	return n
}

func startWatch(t *testing.T) (string, *recorder) {
	t.Helper()
	vaultDir := t.TempDir()
	for _, d := range []string{"attachments", ".vault_backups", "notes"} {
		require.NoError(t, os.MkdirAll(filepath.Join(vaultDir, d), 0o755))
	}
	store, err := storage.NewFS(vaultDir, storage.WithSkipDirs("attachments", ".vault_backups"))
	require.NoError(t, err)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	rec := &recorder{}
	go func() {
		done <- Watch(ctx, store.Root(), store, 50*time.Millisecond, logger, rec.handle)
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	time.Sleep(100 * time.Millisecond)
	return store.Root(), rec
}

func TestWatch_NoteChangesAreHandled(t *testing.T) {
	root, rec := startWatch(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "paris.md"), []byte("<!-- IMAGE: Louvre -->"), 0o644))

	assert.Eventually(t, func() bool {
		return rec.count("notes/paris.md") > 0
	}, 5*time.Second, 20*time.Millisecond, "note change not handled")
}

func TestWatch_BurstIsDebounced(t *testing.T) {
	root, rec := startWatch(t)
	path := filepath.Join(root, "burst.md")

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return rec.count("burst.md") > 0
	}, 5*time.Second, 20*time.Millisecond, "burst not handled")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, rec.count("burst.md"))
}

func TestWatch_IgnoresNonNotesAndSkippedDirs(t *testing.T) {
	root, rec := startWatch(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "attachments", "x.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".vault_backups", "a.md.bak"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "image.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "marker.md"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		return rec.count("marker.md") > 0
	}, 5*time.Second, 20*time.Millisecond, "marker note not handled")
	time.Sleep(150 * time.Millisecond)
	for _, p := range rec.snapshot() {
		assert.Equal(t, "marker.md", p)
	}
}

func TestWatch_NewDirectoryIsWatched(t *testing.T) {
	root, rec := startWatch(t)

	dir := filepath.Join(root, "trips")
	require.NoError(t, os.Mkdir(dir, 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rome.md"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		return rec.count("trips/rome.md") > 0
	}, 5*time.Second, 20*time.Millisecond, "note in new directory not handled")
}
