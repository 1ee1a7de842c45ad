// Package enrich fills in metadata for notes tagged #needsinfo: ISBN and
// cover for books, TMDB id, poster and streaming services for movies.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/starford/vaultfill/internal/parser"
	"github.com/starford/vaultfill/internal/provider"
)

// Tags driving the enrichment.
const (
	TagNeedsInfo = "needsinfo"
	TagBook      = "book"
	TagMovie     = "movie"
)

// Front-matter keys written on success.
const (
	FieldISBN    = "ISBN"
	FieldImage   = "Image"
	FieldService = "Service"
	FieldTMDB    = "TMDB"
)

// Outcome is the terminal state of one note.
type Outcome int

const (
	Unchanged Outcome = iota
	SkippedAmbiguous
	SkippedNotFound
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case SkippedAmbiguous:
		return "skipped-ambiguous"
	case SkippedNotFound:
		return "skipped-not-found"
	case Updated:
		return "updated"
	default:
		return "outcome(" + strconv.Itoa(int(o)) + ")"
	}
}

// Kind is the media classification of a note.
type Kind string

const (
	KindNone  Kind = ""
	KindBook  Kind = TagBook
	KindMovie Kind = TagMovie
)

// Books is the book metadata source.
type Books interface {
	ISBNByTitle(ctx context.Context, title, author string) (string, error)
	CoverByISBN(ctx context.Context, isbn string) (*provider.ImageRef, error)
}

// Movies is the movie metadata source.
type Movies interface {
	Search(ctx context.Context, media provider.Media, query string) (*provider.TMDBMatch, error)
	PosterRef(m *provider.TMDBMatch) *provider.ImageRef
	WatchProviders(ctx context.Context, media provider.Media, id int, region string) ([]string, error)
}

// Config wires an Enricher.
type Config struct {
	Books          Books
	Movies         Movies
	Fetcher        provider.Fetcher
	AttachmentsDir string
	Region         string
	Logger         *slog.Logger
}

// Enricher runs the needs-info state machine on one note at a time.
type Enricher struct {
	books   Books
	movies  Movies
	fetcher provider.Fetcher
	dir     string
	region  string
	log     *slog.Logger
}

// New returns an Enricher.
func New(cfg Config) *Enricher {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	region := cfg.Region
	if region == "" {
		region = provider.DefaultRegion
	}
	return &Enricher{
		books:   cfg.Books,
		movies:  cfg.Movies,
		fetcher: cfg.Fetcher,
		dir:     cfg.AttachmentsDir,
		region:  region,
		log:     log,
	}
}

// Result describes what Enrich decided for a note. Text is only meaningful
// when Outcome is Updated.
type Result struct {
	Outcome Outcome
	Kind    Kind
	Title   string
	Text    string
	Changes []string
}

// Enrich classifies the note at notePath and, when it needs info, looks the
// metadata up and returns the rewritten text. Lookup failures are returned
// as errors and leave the note untouched.
func (e *Enricher) Enrich(ctx context.Context, notePath, text string) (Result, error) {
	doc, err := parser.Parse(text)
	if err != nil {
		return Result{}, fmt.Errorf("enrich: %s: %w", notePath, err)
	}
	fields, err := doc.Fields()
	if err != nil {
		return Result{}, fmt.Errorf("enrich: %s: %w", notePath, err)
	}

	has := func(tag string) bool {
		return fields.Tags.Has(tag) || parser.HasInlineTag(doc.Body, tag)
	}
	if !has(TagNeedsInfo) {
		return Result{Outcome: Unchanged}, nil
	}

	isBook, isMovie := has(TagBook), has(TagMovie)
	if isBook == isMovie {
		e.log.Info("ambiguous media tags", slog.String("note", notePath),
			slog.Bool("book", isBook), slog.Bool("movie", isMovie))
		return Result{Outcome: SkippedAmbiguous}, nil
	}

	title := fields.Title
	if title == "" {
		title = strings.TrimSuffix(path.Base(notePath), path.Ext(notePath))
	}
	res := Result{Title: title}

	var found bool
	if isBook {
		res.Kind = KindBook
		found, err = e.enrichBook(ctx, doc, title, fields.Author, &res)
	} else {
		res.Kind = KindMovie
		found, err = e.enrichMovie(ctx, doc, title, &res)
	}
	if err != nil {
		return Result{}, fmt.Errorf("enrich: %s: %w", notePath, err)
	}
	if !found {
		res.Outcome = SkippedNotFound
		return res, nil
	}

	if !doc.RemoveTag(TagNeedsInfo) && fields.Tags.Shape == parser.TagShapeNone {
		doc.SetList("tags", withoutTag(fields.Tags.Values, TagNeedsInfo))
	}
	doc.Body = parser.CollapseBlankLines(parser.RemoveInlineTag(doc.Body, TagNeedsInfo))

	out, err := doc.Render()
	if err != nil {
		return Result{}, fmt.Errorf("enrich: %s: %w", notePath, err)
	}
	res.Outcome = Updated
	res.Text = out
	res.Changes = append(res.Changes, "removed #"+TagNeedsInfo)
	return res, nil
}

func (e *Enricher) enrichBook(ctx context.Context, doc *parser.Document, title, author string, res *Result) (bool, error) {
	isbn, err := e.books.ISBNByTitle(ctx, title, author)
	if err != nil {
		return false, err
	}
	if isbn == "" {
		e.log.Info("no isbn found", slog.String("title", title))
		return false, nil
	}
	doc.Set(FieldISBN, isbn)
	res.Changes = append(res.Changes, FieldISBN+"="+isbn)

	cover, err := e.books.CoverByISBN(ctx, isbn)
	if err != nil {
		return false, err
	}
	if cover == nil {
		e.log.Info("no cover for isbn", slog.String("isbn", isbn))
		return true, nil
	}
	return true, e.setImage(ctx, doc, *cover, res)
}

func (e *Enricher) enrichMovie(ctx context.Context, doc *parser.Document, title string, res *Result) (bool, error) {
	match, err := e.movies.Search(ctx, provider.MediaMovie, title)
	if err != nil {
		return false, err
	}
	if match == nil {
		e.log.Info("no tmdb match", slog.String("title", title))
		return false, nil
	}

	if poster := e.movies.PosterRef(match); poster != nil {
		if err := e.setImage(ctx, doc, *poster, res); err != nil {
			return false, err
		}
	}

	services, err := e.movies.WatchProviders(ctx, provider.MediaMovie, match.ID, e.region)
	if err != nil {
		return false, err
	}
	doc.SetList(FieldService, services)
	id := strconv.Itoa(match.ID)
	doc.Set(FieldTMDB, id)
	res.Changes = append(res.Changes,
		fmt.Sprintf("%s=[%s]", FieldService, strings.Join(services, ", ")),
		FieldTMDB+"="+id,
	)
	return true, nil
}

func (e *Enricher) setImage(ctx context.Context, doc *parser.Document, ref provider.ImageRef, res *Result) error {
	rel, err := e.fetcher.Download(ctx, ref, e.dir)
	if err != nil {
		return err
	}
	doc.Set(FieldImage, "[["+rel+"]]")
	res.Changes = append(res.Changes, FieldImage+"="+rel)
	return nil
}

func withoutTag(values []string, tag string) []string {
	out := []string{}
	for _, v := range values {
		if v != tag {
			out = append(out, v)
		}
	}
	return out
}
