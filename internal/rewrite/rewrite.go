// Package rewrite splices resolved image references into note text in place
// of the markers that requested them.
package rewrite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/vaultfill/internal/marker"
)

// ErrUnordered is returned when replacements are not strictly ascending,
// overlap, or fall outside the document.
var ErrUnordered = errors.New("rewrite: replacements must be ascending and non-overlapping")

// Replacement pairs a marker with the text that replaces its span.
type Replacement struct {
	Marker marker.Marker
	Text   string
}

// Apply returns doc with every replacement spliced in. Marker offsets refer
// to doc as given; the running offset accounts for the length change of
// each earlier splice.
func Apply(doc string, reps []Replacement) (string, error) {
	if len(reps) == 0 {
		return doc, nil
	}
	if err := checkOrder(doc, reps); err != nil {
		return "", err
	}

	out := doc
	offset := 0
	for _, r := range reps {
		start := r.Marker.Start + offset
		end := r.Marker.End + offset
		out = out[:start] + r.Text + out[end:]
		offset += len(r.Text) - r.Marker.Len()
	}
	return out, nil
}

func checkOrder(doc string, reps []Replacement) error {
	prevEnd := 0
	for i, r := range reps {
		m := r.Marker
		if m.Start < prevEnd || m.Start >= m.End || m.End > len(doc) {
			return fmt.Errorf("%w: replacement %d spans [%d,%d)", ErrUnordered, i, m.Start, m.End)
		}
		prevEnd = m.End
	}
	return nil
}

// Format renders the text that replaces m once its image lives at relPath
// (vault-relative, forward slashes). A quoted marker becomes a quoted
// wikilink, an alt override becomes a markdown image, anything else an
// embed.
func Format(relPath string, m marker.Marker) string {
	if m.Quoted {
		q := m.QuoteChar
		if q == 0 {
			q = '"'
		}
		return string(q) + "[[" + relPath + "]]" + string(q)
	}
	if m.HasAlt() {
		return "![" + m.Alt + "](" + strings.ReplaceAll(relPath, " ", "%20") + ")"
	}
	return "![[" + relPath + "]]"
}
