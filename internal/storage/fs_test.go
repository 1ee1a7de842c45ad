package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempVault(t *testing.T, opts ...Option) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir(), opts...)
	require.NoError(t, err)
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	require.NoError(t, s.Write("note.md", content))

	got, err := s.Read("note.md")
	require.NoError(t, err)
	assert.Equal(t, string(content), string(got))
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	require.NoError(t, s.Write("a/b/c.md", []byte("deep")))

	got, err := s.Read("a/b/c.md")
	require.NoError(t, err)
	assert.Equal(t, "deep", string(got))
}

func TestWriteFromAndExists(t *testing.T) {
	s := tempVault(t)
	require.False(t, s.Exists("attachments/cover.jpg"), "file should not exist yet")
	require.NoError(t, s.WriteFrom("attachments/cover.jpg", strings.NewReader("jpegdata")))

	assert.True(t, s.Exists("attachments/cover.jpg"))
	assert.False(t, s.Exists("attachments"), "directories are not files")
}

func TestList(t *testing.T) {
	s := tempVault(t, WithSkipDirs(".vault_backups"))
	require.NoError(t, s.Write("a.md", []byte("a")))
	require.NoError(t, s.Write("sub/b.md", []byte("b")))
	require.NoError(t, s.Write("readme.txt", []byte("not md")))
	require.NoError(t, s.Write(".vault_backups/a.md", []byte("backup copy")))

	items, err := s.List("")
	require.NoError(t, err)
	require.Len(t, items, 2)

	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
		assert.NotEmpty(t, it.Checksum, "missing checksum for %s", it.Path)
	}
	assert.ElementsMatch(t, []string{"a.md", "sub/b.md"}, paths)
}

func TestListExtensions(t *testing.T) {
	s := tempVault(t, WithExtensions("markdown", ".MD"))
	require.NoError(t, s.Write("a.md", []byte("a")))
	require.NoError(t, s.Write("b.markdown", []byte("b")))
	require.NoError(t, s.Write("c.txt", []byte("c")))

	items, err := s.List("")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		_, err := s.Read(p)
		assert.Error(t, err, "read %q", p)
		assert.Error(t, s.Write(p, []byte("x")), "write %q", p)
	}
	_, err := s.Read("../x.md")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempVault(t)
	require.NoError(t, s.Write("atomic.md", []byte("original content")))
	require.NoError(t, s.Write("atomic.md", []byte("updated content")))

	got, err := s.Read("atomic.md")
	require.NoError(t, err)
	assert.Equal(t, "updated content", string(got))

	// No leftover temp files.
	matches, err := filepath.Glob(filepath.Join(s.root, ".vaultfill-tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestBackupNeverOverwrites(t *testing.T) {
	s := tempVault(t)
	require.NoError(t, s.Write("books/dune.md", []byte("v1")))
	now := time.Date(2026, 10, 19, 8, 30, 5, 0, time.UTC)

	first, err := s.Backup("books/dune.md", ".vault_backups", now)
	require.NoError(t, err)
	assert.Equal(t, ".vault_backups/books/dune.md.20261019_083005.bak", first)

	require.NoError(t, s.Write("books/dune.md", []byte("v2")))
	second, err := s.Backup("books/dune.md", ".vault_backups", now)
	require.NoError(t, err)
	require.NotEqual(t, first, second, "second backup reused the first path")

	got1, err := s.Read(first)
	require.NoError(t, err)
	got2, err := s.Read(second)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got1))
	assert.Equal(t, "v2", string(got2))
}

func TestBackupMissingNote(t *testing.T) {
	s := tempVault(t)
	_, err := s.Backup("missing.md", ".vault_backups", time.Now())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestNewFS_FileNotDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err := NewFS(path)
	assert.Error(t, err, "root is a file")
}
