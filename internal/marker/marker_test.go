package marker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind_Basic(t *testing.T) {
	text := "See <!-- IMAGE: Eiffel Tower -->"
	got := Find(text)
	require.Len(t, got, 1)

	m := got[0]
	assert.Equal(t, KindImage, m.Kind)
	assert.Equal(t, "Eiffel Tower", m.Query)
	assert.False(t, m.HasAlt())
	assert.False(t, m.Quoted)
	assert.Equal(t, 4, m.Start)
	assert.Equal(t, len(text), m.End)
	assert.Equal(t, "<!-- IMAGE: Eiffel Tower -->", text[m.Start:m.End])
}

func TestFind_AltText(t *testing.T) {
	got := Find("<!-- MOVIE: Inception | A great movie -->")
	require.Len(t, got, 1)
	assert.Equal(t, KindMovie, got[0].Kind)
	assert.Equal(t, "Inception", got[0].Query)
	assert.Equal(t, "A great movie", got[0].Alt)
}

func TestFind_KindCaseInsensitive(t *testing.T) {
	got := Find("<!-- bookIsbn: 978-0-441-01359-3 --> and <!--tv:Severance-->")
	require.Len(t, got, 2)
	assert.Equal(t, KindBookISBN, got[0].Kind)
	assert.Equal(t, "978-0-441-01359-3", got[0].Query)
	assert.Equal(t, KindTV, got[1].Kind)
	assert.Equal(t, "Severance", got[1].Query)
}

func TestFind_AllKinds(t *testing.T) {
	for _, k := range Kinds() {
		got := Find("<!-- " + string(k) + ": q -->")
		require.Len(t, got, 1, "kind %s", k)
		assert.Equal(t, k, got[0].Kind)
	}
}

func TestFind_UnknownKindIgnored(t *testing.T) {
	assert.Empty(t, Find("<!-- PODCAST: Serial -->"))
	assert.Empty(t, Find("<!-- just a comment -->"))
}

func TestFind_Quoted(t *testing.T) {
	text := `cover: "<!-- BOOK: Dune -->"`
	got := Find(text)
	require.Len(t, got, 1)
	m := got[0]
	assert.True(t, m.Quoted)
	assert.Equal(t, byte('"'), m.QuoteChar)
	assert.Equal(t, `"<!-- BOOK: Dune -->"`, text[m.Start:m.End])

	got = Find(`'<!-- TV: Lost -->'`)
	require.Len(t, got, 1)
	assert.True(t, got[0].Quoted)
	assert.Equal(t, byte('\''), got[0].QuoteChar)
}

func TestFind_LeadingQuoteOnly(t *testing.T) {
	text := `image: "<!-- BOOK: Dune -->`
	got := Find(text)
	require.Len(t, got, 1)
	assert.True(t, got[0].Quoted)
	assert.Equal(t, byte('"'), got[0].QuoteChar)
	assert.Equal(t, `"<!-- BOOK: Dune -->`, text[got[0].Start:got[0].End])
}

func TestFind_MismatchedClosingQuoteLeftOut(t *testing.T) {
	text := `"<!-- BOOK: Dune -->'`
	got := Find(text)
	require.Len(t, got, 1)
	assert.True(t, got[0].Quoted)
	assert.Equal(t, byte('"'), got[0].QuoteChar)
	assert.Equal(t, `"<!-- BOOK: Dune -->`, text[got[0].Start:got[0].End])
}

func TestFind_TrailingQuoteOnlyNotQuoted(t *testing.T) {
	text := `<!-- BOOK: Dune -->"`
	got := Find(text)
	require.Len(t, got, 1)
	assert.False(t, got[0].Quoted)
	assert.Equal(t, "<!-- BOOK: Dune -->", text[got[0].Start:got[0].End])
}

func TestFind_SharedQuoteNotReused(t *testing.T) {
	text := `"<!-- BOOK: A -->"<!-- BOOK: B -->"`
	got := Find(text)
	require.Len(t, got, 2)
	assert.True(t, got[0].Quoted)
	assert.Equal(t, `"<!-- BOOK: A -->"`, text[got[0].Start:got[0].End])
	assert.False(t, got[1].Quoted)
	assert.Equal(t, "<!-- BOOK: B -->", text[got[1].Start:got[1].End])
	assert.LessOrEqual(t, got[0].End, got[1].Start)
}

func TestFind_EmptyQueryStillMatches(t *testing.T) {
	got := Find("<!-- IMAGE:   -->")
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Query)
}

func TestFind_PipeSplitsQueryFromAlt(t *testing.T) {
	got := Find("<!-- IMAGE: a | b | c -->")
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Query)
	assert.Equal(t, "b | c", got[0].Alt)

	assert.Empty(t, Find("<!-- IMAGE: a > b -->"))
}

func TestFind_OrderedNonOverlapping(t *testing.T) {
	text := "a <!-- IMAGE: x --> b '<!-- AIIMAGE: a cat | Cat -->' c <!-- BOOK: y -->"
	got := Find(text)
	require.Len(t, got, 3)
	for i, m := range got {
		assert.Less(t, m.Start, m.End)
		if i > 0 {
			assert.LessOrEqual(t, got[i-1].End, m.Start)
		}
	}
}

func TestFind_Deterministic(t *testing.T) {
	text := "x <!-- IMAGE: one --> y \"<!-- BOOK: two -->\" z <!-- TV: three | T -->"
	first := Find(text)
	second := Find(text)
	assert.Equal(t, first, second)
	assert.True(t, Contains(text))
	assert.False(t, Contains("nothing here"))
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind(" aiimage ")
	assert.True(t, ok)
	assert.Equal(t, KindAIImage, k)

	_, ok = ParseKind("PHOTO")
	assert.False(t, ok)
}
