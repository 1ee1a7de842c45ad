package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/vaultfill/internal/apperr"
	"github.com/starford/vaultfill/internal/checksum"
	"github.com/starford/vaultfill/internal/journal"
	"github.com/starford/vaultfill/internal/storage"
)

// Change is a planned rewrite of one note.
type Change struct {
	Tool     string
	Path     string
	Original string
	Updated  string
	Summary  string
}

// Committed describes a change that reached disk.
type Committed struct {
	Backup    string
	Checksum  string
	JournalID int64
}

// Service coordinates storage, backups and the change journal.
type Service struct {
	store     storage.Provider
	journal   journal.Recorder
	backupDir string
	log       *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithJournal records every commit in j.
func WithJournal(j journal.Recorder) Option {
	return func(s *Service) { s.journal = j }
}

// WithLogger sets the logger used for non-fatal journal failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used for backup names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a note service writing backups under backupDir.
func NewService(store storage.Provider, backupDir string, opts ...Option) *Service {
	s := &Service{
		store:     store,
		backupDir: backupDir,
		log:       slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the note's content or apperr.ErrNotFound.
func (s *Service) Read(_ context.Context, path string) (string, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

// Commit backs up the note and writes the updated content. It refuses with
// apperr.ErrConflict when the note no longer matches c.Original.
func (s *Service) Commit(ctx context.Context, c Change) (Committed, error) {
	current, err := s.Read(ctx, c.Path)
	if err != nil {
		return Committed{}, err
	}
	before := checksum.String(current)
	if before != checksum.String(c.Original) {
		return Committed{}, fmt.Errorf("noteservice: %s changed since it was read: %w", c.Path, apperr.ErrConflict)
	}

	backup, err := s.store.Backup(c.Path, s.backupDir, s.now())
	if err != nil {
		return Committed{}, fmt.Errorf("noteservice: backup %s: %w", c.Path, err)
	}
	if err := s.store.Write(c.Path, []byte(c.Updated)); err != nil {
		return Committed{}, fmt.Errorf("noteservice: write %s: %w", c.Path, err)
	}

	out := Committed{Backup: backup, Checksum: checksum.String(c.Updated)}
	if s.journal == nil {
		return out, nil
	}
	id, err := s.journal.Record(journal.Entry{
		Tool:           c.Tool,
		Note:           c.Path,
		Backup:         backup,
		Summary:        c.Summary,
		BeforeChecksum: before,
		AfterChecksum:  out.Checksum,
	})
	if err != nil {
		s.log.Warn("journal record failed", slog.String("note", c.Path), slog.String("error", err.Error()))
		return out, nil
	}
	out.JournalID = id
	return out, nil
}
