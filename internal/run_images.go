package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultfill/internal/apperr"
	"github.com/starford/vaultfill/internal/checksum"
	"github.com/starford/vaultfill/internal/images"
	"github.com/starford/vaultfill/internal/marker"
	"github.com/starford/vaultfill/internal/noteservice"
	"github.com/starford/vaultfill/internal/provider"
	"github.com/starford/vaultfill/internal/watch"
)

// ErrWatchNeedsApply is returned when --watch is used without permission
// to write unattended.
var ErrWatchNeedsApply = errors.New("--watch requires --apply and either --yes or vault.confirm_writes: false")

type imageRunner struct {
	*runtime
	pipeline *images.Pipeline
	// last holds the checksum of each note as this run last saw or wrote it.
	last map[string]string
}

// RunImages replaces image markers in the vault's notes.
func RunImages(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.flags.Watch && (!app.flags.Apply || (!app.flags.Yes && app.config.Vault.ConfirmWrites)) {
		return ErrWatchNeedsApply
	}

	rt, err := app.open(ToolInsertImages)
	if err != nil {
		return err
	}
	defer rt.close()

	resolver := provider.NewResolver(rt.services.Strategies(), rt.fetcher, rt.cfg.Vault.AttachmentsDir)
	r := &imageRunner{
		runtime:  rt,
		pipeline: images.New(resolver, rt.log),
		last:     make(map[string]string),
	}

	notes, err := rt.targets()
	if err != nil {
		return err
	}
	if !rt.flags.Apply {
		rt.report.Scan(notes, r.hasMarkers)
	}

	total := 0
	for _, rel := range notes {
		if r.processNote(ctx, rel) {
			total++
		}
	}
	if total == 0 {
		rt.report.NoChanges()
	}

	if !rt.flags.Watch {
		return nil
	}
	return r.watch(ctx)
}

func (r *imageRunner) hasMarkers(rel string) bool {
	text, err := r.notes.Read(context.Background(), rel)
	if err != nil {
		return false
	}
	return marker.Contains(text)
}

// processNote runs the pipeline on one note and reports whether a change
// was planned.
func (r *imageRunner) processNote(ctx context.Context, rel string) bool {
	text, err := r.notes.Read(ctx, rel)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			r.report.SkipMissing(rel)
		} else {
			r.report.Warn(fmt.Sprintf("Read failed for %s: %v", rel, err))
		}
		return false
	}
	r.last[rel] = checksum.String(text)

	res, err := r.pipeline.Process(ctx, text)
	if err != nil {
		r.log.Error("note processing failed", slog.String("note", rel), slog.String("error", err.Error()))
		r.report.Warn(fmt.Sprintf("Failed to process %s: %v", rel, err))
		return false
	}
	for _, w := range res.Warnings {
		r.report.Warn(w)
	}
	if len(res.Markers) == 0 {
		return false
	}
	if len(res.Replacements) == 0 {
		r.report.NoImages(rel)
		return false
	}
	if res.Text == text {
		return false
	}

	r.report.Planned(rel)
	changes := make([]string, 0, len(res.Replacements))
	for _, rep := range res.Replacements {
		desc := fmt.Sprintf("%s %s -> %s", rep.Marker.Kind, rep.Marker.Query, rep.Text)
		changes = append(changes, desc)
		r.report.Change(desc)
	}
	if !r.flags.Apply {
		r.report.DryRun()
		return true
	}
	if !r.confirmWrite(rel) {
		return true
	}

	done, ok := r.commit(ctx, noteservice.Change{
		Tool:     ToolInsertImages,
		Path:     rel,
		Original: text,
		Updated:  res.Text,
		Summary:  summarize(changes),
	})
	if ok {
		r.last[rel] = done.Checksum
	}
	return true
}

// watch re-processes notes as they change until interrupted.
func (r *imageRunner) watch(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stop := context.WithCancel(gCtx)
	defer stop()

	g.Go(func() error {
		return watch.Watch(watchCtx, r.store.Root(), r.store, r.debounce, r.log, func(ctx context.Context, rel string) {
			text, err := r.notes.Read(ctx, rel)
			if err != nil {
				return
			}
			if r.last[rel] == checksum.String(text) {
				return
			}
			r.processNote(ctx, rel)
		})
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			r.log.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-watchCtx.Done():
		}
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		r.log.Error("watch error", slog.String("error", err.Error()))
		return err
	}
	r.log.Info("watch stopped")
	return nil
}
