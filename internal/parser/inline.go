package parser

import (
	"regexp"
	"sync"
)

var (
	inlineMu    sync.Mutex
	inlineCache = map[string]*regexp.Regexp{}

	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// inlineTagRe matches #tag at the start of text or after whitespace, ending
// before any character that is not a Unicode letter, digit or '_'. RE2's \b
// is ASCII-only, so the boundary is spelled out. Group 1 holds the preceding
// whitespace, group 2 the character after the tag.
func inlineTagRe(tag string) *regexp.Regexp {
	tag = NormalizeTag(tag)
	inlineMu.Lock()
	defer inlineMu.Unlock()
	if re, ok := inlineCache[tag]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)(^|\s)#` + regexp.QuoteMeta(tag) + `([^\p{L}\p{N}_]|$)`)
	inlineCache[tag] = re
	return re
}

// HasInlineTag reports whether body contains the hashtag #tag.
func HasInlineTag(body, tag string) bool {
	return inlineTagRe(tag).MatchString(body)
}

// RemoveInlineTag deletes every #tag hashtag from body, keeping the
// whitespace that preceded it.
func RemoveInlineTag(body, tag string) string {
	re := inlineTagRe(tag)
	// A removed tag's trailing space may be the next tag's leading one, so
	// repeat until nothing matches.
	for {
		next := re.ReplaceAllString(body, "${1}${2}")
		if next == body {
			return body
		}
		body = next
	}
}

// CollapseBlankLines reduces every run of three or more newlines to two.
func CollapseBlankLines(s string) string {
	return blankRunRe.ReplaceAllString(s, "\n\n")
}

// HasTag reports whether the note carries tag in its front matter or as an
// inline hashtag in the body.
func (d *Document) HasTag(tag string) (bool, error) {
	f, err := d.Fields()
	if err != nil {
		return false, err
	}
	return f.Tags.Has(tag) || HasInlineTag(d.Body, tag), nil
}
