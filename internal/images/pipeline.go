// Package images replaces image markers in a note with references to
// downloaded or generated attachments.
package images

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/vaultfill/internal/apperr"
	"github.com/starford/vaultfill/internal/marker"
	"github.com/starford/vaultfill/internal/rewrite"
)

// Resolver maps a marker to a vault-relative attachment path. An empty path
// means nothing was found.
type Resolver interface {
	Resolve(ctx context.Context, m marker.Marker) (string, error)
}

// Result is the outcome of processing one note.
type Result struct {
	Text         string
	Markers      []marker.Marker
	Replacements []rewrite.Replacement
	Warnings     []string
}

// Changed reports whether at least one marker was replaced.
func (r Result) Changed() bool {
	return len(r.Replacements) > 0
}

// Pipeline drives marker recognition, resolution and rewriting.
type Pipeline struct {
	resolver Resolver
	log      *slog.Logger
}

// New returns a Pipeline. A nil logger discards output.
func New(resolver Resolver, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{resolver: resolver, log: log}
}

// Process resolves every marker in text and returns the rewritten note.
// Generation failures skip their marker with a warning; any other
// resolution error aborts the note.
func (p *Pipeline) Process(ctx context.Context, text string) (Result, error) {
	res := Result{Text: text, Markers: marker.Find(text)}
	for _, m := range res.Markers {
		rel, err := p.resolver.Resolve(ctx, m)
		if err != nil {
			if apperr.IsGeneration(err) {
				msg := fmt.Sprintf("AI image generation failed for %q: %v", m.Query, err)
				p.log.Warn("image generation failed",
					slog.String("query", m.Query),
					slog.String("error", err.Error()),
				)
				res.Warnings = append(res.Warnings, msg)
				continue
			}
			return Result{}, fmt.Errorf("images: %s %q: %w", m.Kind, m.Query, err)
		}
		if rel == "" {
			p.log.Info("no image found",
				slog.String("kind", string(m.Kind)),
				slog.String("query", m.Query),
			)
			continue
		}
		res.Replacements = append(res.Replacements, rewrite.Replacement{
			Marker: m,
			Text:   rewrite.Format(rel, m),
		})
	}

	if len(res.Replacements) == 0 {
		return res, nil
	}
	out, err := rewrite.Apply(text, res.Replacements)
	if err != nil {
		return Result{}, fmt.Errorf("images: %w", err)
	}
	res.Text = out
	return res, nil
}
