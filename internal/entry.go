// Package internal wires configuration, storage and services into the
// insert-images and needs-info tools.
package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/vaultfill/internal/apperr"
	"github.com/starford/vaultfill/internal/journal"
	"github.com/starford/vaultfill/internal/noteservice"
	"github.com/starford/vaultfill/internal/provider"
	"github.com/starford/vaultfill/internal/storage"
	"github.com/starford/vaultfill/internal/ui"
)

// runtime is everything one tool invocation needs.
type runtime struct {
	cfg      *Config
	flags    Flags
	log      *slog.Logger
	report   *ui.Reporter
	prompter ui.Prompter
	store    *storage.FS
	notes    *noteservice.Service
	journal  *journal.DB
	services provider.Services
	fetcher  *provider.Downloader
	debounce time.Duration
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, apperr.Config(errors.New("config is required"))
	}
	if app.out == nil {
		app.out = os.Stdout
	}
	if app.logger == nil {
		app.logger = newLogger(app.config.App, os.Stderr)
	}
	if app.prompter == nil {
		app.prompter = ui.NewTerminalPrompter()
	}
	if app.now == nil {
		app.now = time.Now
	}
	return app, nil
}

func newLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// open builds storage and services. Dry runs never open the journal, so
// they leave no file behind.
func (app *application) open(tool string) (*runtime, error) {
	cfg := app.config
	logger := app.logger.With(slog.String("tool", tool))

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.Bool("apply", app.flags.Apply),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Vault.Path,
		storage.WithExtensions(cfg.Vault.Extensions...),
		storage.WithSkipDirs(cfg.Vault.AttachmentsDir, cfg.Vault.BackupDir),
	)
	if err != nil {
		return nil, apperr.Config(fmt.Errorf("init storage: %w", err))
	}

	rt := &runtime{
		cfg:      cfg,
		flags:    app.flags,
		log:      logger,
		report:   ui.NewReporter(app.out),
		prompter: app.prompter,
		store:    store,
		debounce: app.debounce,
	}

	svcOpts := []noteservice.Option{
		noteservice.WithLogger(logger),
		noteservice.WithClock(app.now),
	}
	if cfg.Journal.Enabled && app.flags.Apply {
		db, err := journal.Open(cfg.JournalPath())
		if err != nil {
			return nil, fmt.Errorf("init journal: %w", err)
		}
		rt.journal = db
		svcOpts = append(svcOpts, noteservice.WithJournal(db))
	}
	rt.notes = noteservice.NewService(store, cfg.Vault.BackupDir, svcOpts...)

	dryRun := !app.flags.Apply
	sc := cfg.Services
	ep := sc.Endpoints
	lookup := provider.NewClient(
		provider.WithUserAgent(sc.UserAgent),
		provider.WithTimeout(sc.Timeout.Std()),
	)
	download := provider.NewClient(
		provider.WithUserAgent(sc.UserAgent),
		provider.WithTimeout(sc.DownloadTimeout.Std()),
	)
	rt.fetcher = provider.NewDownloader(download, store, dryRun)
	rt.services = provider.Services{
		Wikimedia:   provider.NewWikimedia(lookup, ep.Wikimedia),
		OpenLibrary: provider.NewOpenLibrary(lookup, ep.OpenLibrarySearch, ep.OpenLibraryCovers),
		TMDB:        provider.NewTMDB(lookup, sc.TMDB.APIKey, ep.TMDBAPI, ep.TMDBImages),
		OpenAI: provider.NewOpenAIImages(provider.OpenAIConfig{
			APIKey:  sc.OpenAI.APIKey,
			Model:   sc.OpenAI.Model,
			Size:    sc.OpenAI.Size,
			Timeout: sc.OpenAI.Timeout.Std(),
			BaseURL: ep.OpenAI,
		}, store, rt.fetcher, dryRun),
	}
	return rt, nil
}

func (rt *runtime) close() {
	if rt.journal != nil {
		rt.journal.Close()
	}
}

// targets returns the notes to process: the --note path or every note in
// the vault, sorted.
func (rt *runtime) targets() ([]string, error) {
	if rt.flags.Note != "" {
		return []string{path.Clean(filepath.ToSlash(rt.flags.Note))}, nil
	}
	metas, err := rt.store.List("")
	if err != nil {
		return nil, fmt.Errorf("scan vault: %w", err)
	}
	notes := make([]string, 0, len(metas))
	for _, m := range metas {
		notes = append(notes, m.Path)
	}
	sort.Strings(notes)
	return notes, nil
}

// confirmWrite asks before a write unless --yes or confirm_writes: false.
func (rt *runtime) confirmWrite(rel string) bool {
	if rt.flags.Yes || !rt.cfg.Vault.ConfirmWrites {
		return true
	}
	if !rt.prompter.Interactive() {
		rt.report.Declined(rel, "no terminal to confirm; pass --yes to write")
		return false
	}
	if !rt.prompter.Confirm(ui.ConfirmMessage) {
		rt.report.Declined(rel, "")
		return false
	}
	return true
}

// commit writes one planned change and reports the backup. A conflict or
// write failure only skips the note.
func (rt *runtime) commit(ctx context.Context, c noteservice.Change) (noteservice.Committed, bool) {
	done, err := rt.notes.Commit(ctx, c)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			rt.report.Warn("Skip changed note: " + c.Path)
		} else {
			rt.report.Warn(fmt.Sprintf("Write failed for %s: %v", c.Path, err))
		}
		rt.log.Warn("commit failed", slog.String("note", c.Path), slog.String("error", err.Error()))
		return noteservice.Committed{}, false
	}
	rt.report.Updated(done.Backup)
	rt.log.Info("note updated",
		slog.String("note", c.Path),
		slog.String("backup", done.Backup),
		slog.Int64("journal_id", done.JournalID))
	return done, true
}

// summarize joins change descriptions for the journal.
func summarize(changes []string) string {
	return strings.Join(changes, "; ")
}

// RunHistory prints the most recent journal entries for tool, or only the
// latest change to --note when one is given.
func RunHistory(_ context.Context, tool string, limit int, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	report := ui.NewReporter(app.out)

	dbPath := app.config.JournalPath()
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		report.NoHistory()
		return nil
	}
	db, err := journal.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()

	var entries []journal.Entry
	if app.flags.Note != "" {
		e, err := db.LastForNote(path.Clean(filepath.ToSlash(app.flags.Note)))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err == nil {
			entries = append(entries, e)
		}
	} else {
		entries, err = db.List(tool, limit)
		if err != nil {
			return err
		}
	}
	if len(entries) == 0 {
		report.NoHistory()
		return nil
	}
	for _, e := range entries {
		report.HistoryEntry(e.AppliedAt, e.Note, e.Summary, e.Backup)
	}
	return nil
}
