package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/vaultfill/internal/apperr"
	"github.com/starford/vaultfill/internal/enrich"
	"github.com/starford/vaultfill/internal/noteservice"
)

// RunNeedsInfo enriches the notes tagged #needsinfo.
func RunNeedsInfo(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.open(ToolNeedsInfo)
	if err != nil {
		return err
	}
	defer rt.close()

	region := rt.cfg.Services.TMDB.Region
	if rt.flags.Region != "" {
		region = rt.flags.Region
	}
	enricher := enrich.New(enrich.Config{
		Books:          rt.services.OpenLibrary,
		Movies:         rt.services.TMDB,
		Fetcher:        rt.fetcher,
		AttachmentsDir: rt.cfg.Vault.AttachmentsDir,
		Region:         region,
		Logger:         rt.log,
	})

	notes, err := rt.targets()
	if err != nil {
		return err
	}

	total := 0
	for _, rel := range notes {
		text, err := rt.notes.Read(ctx, rel)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				rt.report.Warn(fmt.Sprintf("Read failed for %s: %v", rel, err))
			}
			continue
		}

		res, err := enricher.Enrich(ctx, rel, text)
		if err != nil {
			rt.log.Error("enrichment failed", slog.String("note", rel), slog.String("error", err.Error()))
			rt.report.Warn(fmt.Sprintf("Failed to enrich %s: %v", rel, err))
			continue
		}

		switch res.Outcome {
		case enrich.Unchanged:
			continue
		case enrich.SkippedAmbiguous:
			rt.report.Ambiguous(rel)
			continue
		case enrich.SkippedNotFound:
			if res.Kind == enrich.KindBook {
				rt.report.NoISBN(rel)
			} else {
				rt.report.NoTMDB(rel)
			}
			continue
		}

		total++
		rt.report.Planned(rel)
		for _, c := range res.Changes {
			rt.report.Change(c)
		}
		if !rt.flags.Apply || !rt.confirmWrite(rel) {
			continue
		}
		rt.commit(ctx, noteservice.Change{
			Tool:     ToolNeedsInfo,
			Path:     rel,
			Original: text,
			Updated:  res.Text,
			Summary:  summarize(res.Changes),
		})
	}

	if total == 0 {
		rt.report.NoChanges()
	}
	return nil
}
