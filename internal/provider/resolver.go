package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/vaultfill/internal/marker"
)

// Finder looks up an image for a free-text query. A nil ref with a nil
// error means nothing matched.
type Finder interface {
	Find(ctx context.Context, query string) (*ImageRef, error)
}

// FinderFunc adapts a function to Finder.
type FinderFunc func(ctx context.Context, query string) (*ImageRef, error)

func (f FinderFunc) Find(ctx context.Context, query string) (*ImageRef, error) {
	return f(ctx, query)
}

// Generator produces an image for a prompt and stores it under dir.
type Generator interface {
	Generate(ctx context.Context, prompt, dir string) (string, error)
}

// Fetcher materializes a found image under dir.
type Fetcher interface {
	Download(ctx context.Context, ref ImageRef, dir string) (string, error)
}

// Strategies holds one lookup per marker kind.
type Strategies struct {
	Image    Finder
	Book     Finder
	BookISBN Finder
	Movie    Finder
	TV       Finder
	AIImage  Generator
}

// Resolver turns markers into vault-relative attachment paths.
type Resolver struct {
	strategies Strategies
	fetcher    Fetcher
	dir        string
}

// NewResolver returns a Resolver storing attachments under dir.
func NewResolver(s Strategies, fetcher Fetcher, dir string) *Resolver {
	return &Resolver{strategies: s, fetcher: fetcher, dir: dir}
}

// Services bundles the concrete lookup clients.
type Services struct {
	Wikimedia   *Wikimedia
	OpenLibrary *OpenLibrary
	TMDB        *TMDB
	OpenAI      *OpenAIImages
}

// Strategies maps every marker kind onto its service.
func (s Services) Strategies() Strategies {
	st := Strategies{
		Image:    FinderFunc(s.Wikimedia.Find),
		Book:     FinderFunc(s.OpenLibrary.CoverByTitle),
		BookISBN: FinderFunc(s.OpenLibrary.CoverByISBN),
		Movie: FinderFunc(func(ctx context.Context, q string) (*ImageRef, error) {
			return s.TMDB.Poster(ctx, MediaMovie, q)
		}),
		TV: FinderFunc(func(ctx context.Context, q string) (*ImageRef, error) {
			return s.TMDB.Poster(ctx, MediaTV, q)
		}),
	}
	if s.OpenAI != nil {
		st.AIImage = s.OpenAI
	}
	return st
}

// Resolve returns the attachment path for m, or "" when no image was found.
// Generation failures carry the generation category; everything else
// aborts the note.
func (r *Resolver) Resolve(ctx context.Context, m marker.Marker) (string, error) {
	if strings.TrimSpace(m.Query) == "" {
		return "", nil
	}
	var finder Finder
	switch m.Kind {
	case marker.KindImage:
		finder = r.strategies.Image
	case marker.KindBook:
		finder = r.strategies.Book
	case marker.KindBookISBN:
		finder = r.strategies.BookISBN
	case marker.KindMovie:
		finder = r.strategies.Movie
	case marker.KindTV:
		finder = r.strategies.TV
	case marker.KindAIImage:
		if r.strategies.AIImage == nil {
			return "", fmt.Errorf("provider: no strategy for %s", m.Kind)
		}
		rel, err := r.strategies.AIImage.Generate(ctx, m.Query, r.dir)
		if err != nil {
			return "", generationError(err)
		}
		return rel, nil
	default:
		return "", fmt.Errorf("provider: unknown marker kind %q", m.Kind)
	}
	if finder == nil {
		return "", fmt.Errorf("provider: no strategy for %s", m.Kind)
	}

	ref, err := finder.Find(ctx, m.Query)
	if err != nil {
		return "", fmt.Errorf("provider: resolve %s %q: %w", m.Kind, m.Query, err)
	}
	if ref == nil {
		return "", nil
	}
	return r.fetcher.Download(ctx, *ref, r.dir)
}
