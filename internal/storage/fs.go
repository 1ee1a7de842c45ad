package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/vaultfill/internal/checksum"
	"github.com/starford/vaultfill/internal/models"
)

// ErrPathEscape is returned when a relative path resolves outside the vault.
var ErrPathEscape = errors.New("storage: path escapes vault root")

const backupTimeLayout = "20060102_150405"

// FS implements Provider backed by the local file system.
type FS struct {
	root       string // absolute path to vault directory
	extensions []string
	skipDirs   map[string]struct{}
}

// Option configures an FS.
type Option func(*FS)

// WithExtensions sets the file extensions treated as notes (default ".md").
func WithExtensions(exts ...string) Option {
	return func(f *FS) {
		if len(exts) == 0 {
			return
		}
		f.extensions = f.extensions[:0]
		for _, e := range exts {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			f.extensions = append(f.extensions, e)
		}
	}
}

// WithSkipDirs excludes vault-relative directories from listings.
func WithSkipDirs(dirs ...string) Option {
	return func(f *FS) {
		for _, d := range dirs {
			d = filepath.Clean(d)
			if d == "." || d == "" {
				continue
			}
			f.skipDirs[d] = struct{}{}
		}
	}
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...Option) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{
		root:       abs,
		extensions: []string{".md"},
		skipDirs:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Root returns the absolute vault root.
func (f *FS) Root() string {
	return f.root
}

// IsNote reports whether name carries one of the configured note extensions.
func (f *FS) IsNote(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range f.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Skipped reports whether the vault-relative path lies in an excluded
// directory.
func (f *FS) Skipped(rel string) bool {
	rel = filepath.Clean(rel)
	for d := range f.skipDirs {
		if rel == d || strings.HasPrefix(rel, d+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, rel)
	}
	return abs, nil
}

// List walks dir (relative to root) and returns metadata for every note.
func (f *FS) List(dir string) ([]models.NoteMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.NoteMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, _ := filepath.Rel(f.root, p)
		if d.IsDir() {
			if rel != "." && f.Skipped(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !f.IsNote(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, models.NoteMetadata{
			Path:      filepath.ToSlash(rel),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether a regular file exists at path.
func (f *FS) Exists(path string) bool {
	abs, err := f.safePath(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	return f.WriteFrom(path, bytes.NewReader(content))
}

// WriteFrom atomically streams r into path, creating parent directories.
func (f *FS) WriteFrom(path string, r io.Reader) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".vaultfill-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Backup copies path to <backupDir>/<path>.<timestamp>.bak. Existing backups
// are never overwritten; a counter is appended when the name is taken.
func (f *FS) Backup(path, backupDir string, now time.Time) (string, error) {
	data, err := f.Read(path)
	if err != nil {
		return "", err
	}

	rel := filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))
	base := filepath.ToSlash(filepath.Join(backupDir, rel)) + "." + now.Format(backupTimeLayout)
	target := base + ".bak"
	for i := 1; f.Exists(target); i++ {
		target = fmt.Sprintf("%s-%d.bak", base, i)
	}

	if err := f.Write(target, data); err != nil {
		return "", fmt.Errorf("storage: backup %s: %w", path, err)
	}
	return target, nil
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
