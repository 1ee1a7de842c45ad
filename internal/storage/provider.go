// Package storage defines the vault file-system abstraction.
package storage

import (
	"io"
	"time"

	"github.com/starford/vaultfill/internal/models"
)

// Provider is the interface for vault file operations. All paths are
// relative to the vault root.
type Provider interface {
	// List returns metadata for every note file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// WriteFrom atomically streams r into path.
	WriteFrom(path string, r io.Reader) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Backup copies path into backupDir under a timestamped name and
	// returns the backup's vault-relative path.
	Backup(path, backupDir string, now time.Time) (string, error)
}
