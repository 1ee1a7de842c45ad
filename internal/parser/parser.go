// Package parser splits notes into YAML front matter and body, exposes the
// front-matter fields the enrichment pipeline reads, and edits the front
// matter in place while keeping key order and value styles.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

const delim = "---"

// ErrInvalidFrontMatter is returned when the block between the delimiters is
// not a YAML mapping.
var ErrInvalidFrontMatter = errors.New("parser: invalid front matter")

var yamlFormat = frontmatter.NewFormat(delim, delim, yaml.Unmarshal)

// Document is a note split into front matter and body.
type Document struct {
	// Body is the text after the closing delimiter line, or the whole note
	// when it has no front matter.
	Body string

	meta    *yaml.Node // mapping node; never nil
	present bool       // whether the note had a front matter block
}

// Parse splits text into front matter and body. A note that does not start
// with a "---" line, or whose block is never closed, has no front matter and
// its whole text is the body.
func Parse(text string) (*Document, error) {
	doc := &Document{
		Body: text,
		meta: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"},
	}
	if !strings.HasPrefix(text, delim+"\n") && !strings.HasPrefix(text, delim+"\r\n") {
		return doc, nil
	}
	if !hasClosingDelim(text) {
		return doc, nil
	}

	var root yaml.Node
	body, err := frontmatter.Parse(strings.NewReader(text), &root, yamlFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrontMatter, err)
	}
	switch {
	case root.Kind == 0, root.Kind == yaml.DocumentNode && len(root.Content) == 0:
		// Empty block.
	case root.Kind == yaml.DocumentNode && len(root.Content) == 1 && root.Content[0].Kind == yaml.MappingNode:
		doc.meta = root.Content[0]
	case root.Kind == yaml.DocumentNode && len(root.Content) == 1 && root.Content[0].Tag == "!!null":
		// Only comments or an explicit null.
	default:
		return nil, fmt.Errorf("%w: front matter is not a mapping", ErrInvalidFrontMatter)
	}
	doc.Body = string(body)
	doc.present = true
	return doc, nil
}

// HasFrontMatter reports whether the parsed note carried a front matter block.
func (d *Document) HasFrontMatter() bool {
	return d.present
}

// Fields decodes the typed view of the front matter.
func (d *Document) Fields() (Fields, error) {
	var raw rawFields
	if err := d.meta.Decode(&raw); err != nil {
		return Fields{}, fmt.Errorf("%w: %v", ErrInvalidFrontMatter, err)
	}
	return raw.fields(), nil
}

// Get returns the scalar value stored under key.
func (d *Document) Get(key string) (string, bool) {
	_, v := d.lookup(key)
	if v == nil || v.Kind != yaml.ScalarNode {
		return "", false
	}
	return v.Value, true
}

// Set stores value under key as a double-quoted string, replacing any
// existing value in place or appending the key at the end.
func (d *Document) Set(key, value string) {
	d.put(key, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value, Style: yaml.DoubleQuotedStyle})
}

// SetList stores values under key as a block sequence of double-quoted
// strings.
func (d *Document) SetList(key string, values []string) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if len(values) == 0 {
		seq.Style = yaml.FlowStyle
	}
	for _, v := range values {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v, Style: yaml.DoubleQuotedStyle})
	}
	d.put(key, seq)
}

// RemoveTag drops tag from the front-matter tag field, keeping the field's
// key and shape. It reports whether anything was removed.
func (d *Document) RemoveTag(tag string) bool {
	tag = NormalizeTag(tag)
	for _, key := range tagKeys {
		_, v := d.lookup(key)
		if isEmptyTagValue(v) {
			continue
		}
		switch v.Kind {
		case yaml.SequenceNode:
			kept := v.Content[:0:0]
			for _, item := range v.Content {
				if item.Kind == yaml.ScalarNode && NormalizeTag(item.Value) == tag {
					continue
				}
				kept = append(kept, item)
			}
			if len(kept) != len(v.Content) {
				v.Content = kept
				if len(kept) == 0 {
					v.Style = yaml.FlowStyle
				}
				return true
			}
		case yaml.ScalarNode:
			parts := splitTags(v.Value)
			kept := parts[:0:0]
			for _, p := range parts {
				if NormalizeTag(p) != tag {
					kept = append(kept, p)
				}
			}
			if len(kept) != len(parts) {
				v.Value = strings.Join(kept, ", ")
				v.Tag = "!!str"
				return true
			}
		}
		// Only the first tag key present is authoritative.
		return false
	}
	return false
}

// Render reassembles the note with its (possibly edited) front matter.
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.meta); err != nil {
		return "", fmt.Errorf("parser: encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("parser: encode front matter: %w", err)
	}
	return delim + "\n" + buf.String() + delim + "\n" + d.Body, nil
}

func hasClosingDelim(text string) bool {
	lines := strings.Split(text, "\n")
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == delim {
			return true
		}
	}
	return false
}

func (d *Document) lookup(key string) (*yaml.Node, *yaml.Node) {
	for i := 0; i+1 < len(d.meta.Content); i += 2 {
		if d.meta.Content[i].Value == key {
			return d.meta.Content[i], d.meta.Content[i+1]
		}
	}
	return nil, nil
}

func (d *Document) put(key string, value *yaml.Node) {
	for i := 0; i+1 < len(d.meta.Content); i += 2 {
		if d.meta.Content[i].Value == key {
			value.LineComment = d.meta.Content[i+1].LineComment
			d.meta.Content[i+1] = value
			return
		}
	}
	d.meta.Content = append(d.meta.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}
