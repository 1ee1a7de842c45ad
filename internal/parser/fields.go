package parser

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// tagKeys lists the front-matter keys a tag field may live under, in
// priority order.
var tagKeys = []string{"tags", "tag"}

var tagSplitRe = regexp.MustCompile(`[,\s]+`)

// TagShape records how a tag field was written in the front matter.
type TagShape int

const (
	// TagShapeNone means the field was absent or empty.
	TagShapeNone TagShape = iota
	// TagShapeList is a YAML sequence: tags: [a, b].
	TagShapeList
	// TagShapeDelimited is a comma or whitespace separated string: tags: "a, b".
	TagShapeDelimited
)

// TagList is a normalized tag field. Values are lowercase with any leading
// '#' removed.
type TagList struct {
	Key    string
	Shape  TagShape
	Values []string
}

// Has reports whether the list contains tag (compared normalized).
func (t TagList) Has(tag string) bool {
	tag = NormalizeTag(tag)
	for _, v := range t.Values {
		if v == tag {
			return true
		}
	}
	return false
}

// UnmarshalYAML accepts both the sequence and the delimited-string shape.
func (t *TagList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		t.Shape = TagShapeList
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				continue
			}
			if v := NormalizeTag(item.Value); v != "" {
				t.Values = append(t.Values, v)
			}
		}
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil
		}
		t.Shape = TagShapeDelimited
		for _, p := range splitTags(n.Value) {
			if v := NormalizeTag(p); v != "" {
				t.Values = append(t.Values, v)
			}
		}
	}
	if len(t.Values) == 0 {
		t.Shape = TagShapeNone
	}
	return nil
}

// Fields is the typed view of the front matter keys the tools read. Every
// field is optional:
//
//   - Title:  "title", then "Title"; default "" (callers fall back to the file stem).
//   - Author: "author", then "Author"; default "".
//   - Tags:   "tags", then "tag"; default an empty TagShapeNone list.
type Fields struct {
	Title  string
	Author string
	Tags   TagList
}

type rawFields struct {
	Title       string  `yaml:"title"`
	TitleUpper  string  `yaml:"Title"`
	Author      string  `yaml:"author"`
	AuthorUpper string  `yaml:"Author"`
	Tags        TagList `yaml:"tags"`
	Tag         TagList `yaml:"tag"`
}

func (r rawFields) fields() Fields {
	f := Fields{
		Title:  firstNonEmpty(r.Title, r.TitleUpper),
		Author: firstNonEmpty(r.Author, r.AuthorUpper),
	}
	switch {
	case len(r.Tags.Values) > 0:
		f.Tags = r.Tags
		f.Tags.Key = "tags"
	case len(r.Tag.Values) > 0:
		f.Tags = r.Tag
		f.Tags.Key = "tag"
	}
	return f
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// NormalizeTag lowercases tag and strips surrounding space and leading '#'.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(tag), "#"))
}

func splitTags(s string) []string {
	var out []string
	for _, p := range tagSplitRe.Split(s, -1) {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func isEmptyTagValue(v *yaml.Node) bool {
	if v == nil {
		return true
	}
	switch v.Kind {
	case yaml.SequenceNode:
		return len(v.Content) == 0
	case yaml.ScalarNode:
		return v.Tag == "!!null" || strings.TrimSpace(v.Value) == ""
	}
	return true
}
