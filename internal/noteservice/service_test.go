package noteservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vaultfill/internal/apperr"
	"github.com/starford/vaultfill/internal/journal"
	"github.com/starford/vaultfill/internal/testutil"
)

var fixedNow = time.Date(2026, 10, 19, 8, 30, 5, 0, time.Local)

func TestCommit_BacksUpWritesAndRecords(t *testing.T) {
	vault, store := testutil.TestVault(t)
	db := testutil.TestJournal(t)
	testutil.WriteNote(t, vault, "books/dune.md", "before")

	svc := NewService(store, ".vault_backups", WithJournal(db), WithClock(func() time.Time { return fixedNow }))
	got, err := svc.Commit(context.Background(), Change{
		Tool: "needs-info", Path: "books/dune.md", Original: "before", Updated: "after", Summary: "ISBN",
	})
	require.NoError(t, err)
	assert.Equal(t, ".vault_backups/books/dune.md.20261019_083005.bak", got.Backup)
	assert.Equal(t, "after", testutil.ReadNote(t, vault, "books/dune.md"))
	assert.Equal(t, "before", testutil.ReadNote(t, vault, got.Backup))
	assert.NotZero(t, got.JournalID)

	entries, err := db.List("needs-info", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, got.Backup, entries[0].Backup)
	assert.Equal(t, got.Checksum, entries[0].AfterChecksum)
	assert.NotEqual(t, entries[0].BeforeChecksum, entries[0].AfterChecksum)
}

func TestCommit_ConflictWhenNoteChanged(t *testing.T) {
	vault, store := testutil.TestVault(t)
	testutil.WriteNote(t, vault, "a.md", "edited elsewhere")

	svc := NewService(store, ".vault_backups")
	_, err := svc.Commit(context.Background(), Change{Tool: "insert-images", Path: "a.md", Original: "planned against", Updated: "new"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "edited elsewhere", testutil.ReadNote(t, vault, "a.md"))
	assert.Equal(t, []string{"a.md"}, testutil.Files(t, vault), "no backup on conflict")
}

func TestCommit_MissingNote(t *testing.T) {
	_, store := testutil.TestVault(t)
	svc := NewService(store, ".vault_backups")
	_, err := svc.Commit(context.Background(), Change{Tool: "x", Path: "gone.md", Original: "", Updated: "y"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

type failingRecorder struct{}

func (failingRecorder) Record(journal.Entry) (int64, error) { return 0, errors.New("disk full") }

func TestCommit_JournalFailureIsNotFatal(t *testing.T) {
	vault, store := testutil.TestVault(t)
	testutil.WriteNote(t, vault, "a.md", "old")

	svc := NewService(store, ".vault_backups", WithJournal(failingRecorder{}))
	got, err := svc.Commit(context.Background(), Change{Tool: "x", Path: "a.md", Original: "old", Updated: "new"})
	require.NoError(t, err)
	assert.Zero(t, got.JournalID)
	assert.Equal(t, "new", testutil.ReadNote(t, vault, "a.md"))
}
