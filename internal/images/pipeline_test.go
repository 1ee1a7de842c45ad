package images

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vaultfill/internal/apperr"
	"github.com/starford/vaultfill/internal/marker"
	"github.com/starford/vaultfill/internal/provider"
	"github.com/starford/vaultfill/internal/testutil"
)

type mapResolver map[string]string

func (r mapResolver) Resolve(_ context.Context, m marker.Marker) (string, error) {
	return r[m.Query], nil
}

type errResolver struct{ err error }

func (r errResolver) Resolve(context.Context, marker.Marker) (string, error) {
	return "", r.err
}

func TestProcess_NotFoundLeavesTextUnchanged(t *testing.T) {
	doc := "See <!-- IMAGE: Eiffel Tower -->"
	res, err := New(mapResolver{}, nil).Process(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, doc, res.Text)
	assert.Len(t, res.Markers, 1)
	assert.Empty(t, res.Replacements)
	assert.False(t, res.Changed())
}

func TestProcess_QuotedBook(t *testing.T) {
	res, err := New(mapResolver{"Dune": "attachments/dune.jpg"}, nil).
		Process(context.Background(), `"<!-- BOOK: Dune -->"`)
	require.NoError(t, err)
	assert.Equal(t, `"[[attachments/dune.jpg]]"`, res.Text)
}

func TestProcess_MovieWithAlt(t *testing.T) {
	res, err := New(mapResolver{"Inception": "attachments/inception.jpg"}, nil).
		Process(context.Background(), "<!-- MOVIE: Inception | A great movie -->")
	require.NoError(t, err)
	assert.Equal(t, "![A great movie](attachments/inception.jpg)", res.Text)
}

func TestProcess_MixedFoundAndMissing(t *testing.T) {
	doc := "# Trip\n<!-- IMAGE: Louvre -->\ntext\n<!-- image: Nowhere -->\n<!-- TV: Severance -->\n"
	res, err := New(mapResolver{
		"Louvre":    "attachments/Louvre.jpg",
		"Severance": "attachments/severance poster.jpg",
	}, nil).Process(context.Background(), doc)
	require.NoError(t, err)
	want := "# Trip\n![[attachments/Louvre.jpg]]\ntext\n<!-- image: Nowhere -->\n![[attachments/severance poster.jpg]]\n"
	assert.Equal(t, want, res.Text)
	assert.Len(t, res.Markers, 3)
	assert.Len(t, res.Replacements, 2)
}

func TestProcess_GenerationFailureSkipsMarker(t *testing.T) {
	genErr := apperr.Generation(errors.New("quota exceeded"), "image generation failed")
	doc := "<!-- AIIMAGE: a fox -->"
	res, err := New(errResolver{err: genErr}, nil).Process(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, doc, res.Text)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "a fox")
}

func TestProcess_ProviderFailureAbortsNote(t *testing.T) {
	provErr := apperr.Provider(errors.New("status 503"), "lookup request failed")
	_, err := New(errResolver{err: provErr}, nil).Process(context.Background(), "<!-- BOOK: Dune -->")
	require.Error(t, err)
	assert.True(t, apperr.IsProvider(err))
}

func TestProcess_EndToEndWithServices(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/search.json", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"docs":[{"title":"Dune","cover_i":8231856}]}`))
	})
	r.Get("/b/id/{file}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("COVER"))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	vault, store := testutil.TestVault(t)
	client := provider.NewClient()
	dl := provider.NewDownloader(client, store, false)
	resolver := provider.NewResolver(provider.Strategies{
		Book: provider.FinderFunc(provider.NewOpenLibrary(client, srv.URL+"/search.json", srv.URL).CoverByTitle),
	}, dl, "attachments")

	res, err := New(resolver, nil).Process(context.Background(), "Cover: '<!-- BOOK: Dune -->'\n")
	require.NoError(t, err)
	assert.Equal(t, "Cover: '[[attachments/8231856-L.jpg]]'\n", res.Text)
	assert.Equal(t, "COVER", testutil.ReadNote(t, vault, "attachments/8231856-L.jpg"))
}
