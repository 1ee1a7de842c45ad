// Package marker recognizes inline image placeholder comments such as
// <!-- IMAGE: Eiffel Tower --> in raw note text.
package marker

import (
	"regexp"
	"strings"
)

// Kind is the closed set of placeholder kinds.
type Kind string

const (
	KindImage    Kind = "IMAGE"
	KindBook     Kind = "BOOK"
	KindBookISBN Kind = "BOOKISBN"
	KindAIImage  Kind = "AIIMAGE"
	KindMovie    Kind = "MOVIE"
	KindTV       Kind = "TV"
)

var kinds = []Kind{KindImage, KindBook, KindBookISBN, KindAIImage, KindMovie, KindTV}

// Kinds returns every marker kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind normalizes s and reports whether it names a known kind.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range kinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// Marker is one placeholder occurrence. Start and End are byte offsets into
// the document the marker was found in and are only valid against that
// unmodified text.
type Marker struct {
	Kind      Kind
	Query     string
	Alt       string
	Quoted    bool
	QuoteChar byte
	Start     int
	End       int
}

// HasAlt reports whether an alt-text override was given.
func (m Marker) HasAlt() bool {
	return m.Alt != ""
}

// Len returns the length of the marker span.
func (m Marker) Len() int {
	return m.End - m.Start
}

// Go's regexp has no backreferences, so surrounding quotes are checked by
// hand in Find rather than in the pattern.
var commentRe = regexp.MustCompile(
	`(?i)<!--\s*(IMAGE|BOOK|BOOKISBN|AIIMAGE|MOVIE|TV)\s*:\s*([^|>]+?)\s*(?:\|\s*([^>]+?)\s*)?-->`,
)

func isQuote(c byte) bool {
	return c == '"' || c == '\''
}

// Find returns every marker in text, left to right, without overlaps.
func Find(text string) []Marker {
	matches := commentRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]Marker, 0, len(matches))
	prevEnd := 0
	for _, loc := range matches {
		start, end := loc[0], loc[1]

		// A leading quote makes the marker quoted; the closing quote is
		// optional and only taken when it matches. The closing quote of the
		// previous marker is not available as an opening quote.
		if start > prevEnd && isQuote(text[start-1]) {
			start--
			if end < len(text) && text[end] == text[start] {
				end++
			}
		}

		kind, ok := ParseKind(text[loc[2]:loc[3]])
		if !ok {
			continue
		}
		m := Marker{
			Kind:  kind,
			Query: strings.TrimSpace(text[loc[4]:loc[5]]),
			Start: start,
			End:   end,
		}
		if loc[6] >= 0 {
			m.Alt = strings.TrimSpace(text[loc[6]:loc[7]])
		}
		if start != loc[0] {
			m.Quoted = true
			m.QuoteChar = text[start]
		}
		out = append(out, m)
		prevEnd = end
	}
	return out
}

// Contains reports whether text holds at least one marker.
func Contains(text string) bool {
	return commentRe.MatchString(text)
}
