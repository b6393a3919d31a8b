// Package obsidian renders library games as markdown notes with YAML
// frontmatter, keeping anything the user wrote by hand.
package obsidian

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Note is a markdown document with YAML frontmatter.
type Note struct {
	Frontmatter *Frontmatter
	Body        string
}

// Frontmatter is a YAML mapping serialized with sorted keys so rewrites of an
// unchanged game produce identical bytes.
type Frontmatter struct {
	fields map[string]any
}

// NewFrontmatter creates an empty Frontmatter.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{fields: make(map[string]any)}
}

// ParseMarkdown splits content into frontmatter and body. A document without
// a complete frontmatter block is all body.
func ParseMarkdown(content []byte) (*Note, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")

	rest, ok := strings.CutPrefix(text, "---\n")
	if !ok {
		return &Note{Frontmatter: NewFrontmatter(), Body: text}, nil
	}
	raw, body, ok := strings.Cut(rest, "\n---\n")
	if !ok {
		return &Note{Frontmatter: NewFrontmatter(), Body: text}, nil
	}

	var data map[string]any
	if err := yaml.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	fm := NewFrontmatter()
	for key, value := range data {
		fm.Set(key, value)
	}
	return &Note{Frontmatter: fm, Body: strings.TrimPrefix(body, "\n")}, nil
}

// Build serializes the note. Tags are written flow style: [a, b].
func (n *Note) Build() ([]byte, error) {
	var buf bytes.Buffer

	if len(n.Frontmatter.fields) > 0 {
		out, err := yaml.Marshal(n.Frontmatter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
		}
		buf.WriteString("---\n")
		buf.Write(out)
		buf.WriteString("---\n")
	}
	buf.WriteString(n.Body)

	return buf.Bytes(), nil
}

// Get retrieves a value.
func (f *Frontmatter) Get(key string) (any, bool) {
	val, ok := f.fields[key]
	return val, ok
}

// Set stores a value. A nil value removes the key.
func (f *Frontmatter) Set(key string, value any) {
	if value == nil {
		delete(f.fields, key)
		return
	}
	f.fields[key] = value
}

// Delete removes a key.
func (f *Frontmatter) Delete(key string) {
	delete(f.fields, key)
}

// GetString returns a string value or "".
func (f *Frontmatter) GetString(key string) string {
	s, _ := f.fields[key].(string)
	return s
}

// GetStringArray returns a string list, accepting both []string and the
// []any that YAML decoding produces.
func (f *Frontmatter) GetStringArray(key string) []string {
	return TagsFromAny(f.fields[key])
}

// Keys returns the keys in sorted order.
func (f *Frontmatter) Keys() []string {
	keys := make([]string, 0, len(f.fields))
	for k := range f.fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// MarshalYAML implements yaml.Marshaler.
func (f *Frontmatter) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	for _, key := range f.Keys() {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}

		valueNode := &yaml.Node{}
		if key == "tags" {
			valueNode.Kind = yaml.SequenceNode
			valueNode.Style = yaml.FlowStyle
			for _, tag := range TagsFromAny(f.fields[key]) {
				valueNode.Content = append(valueNode.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: tag})
			}
		} else if err := valueNode.Encode(f.fields[key]); err != nil {
			return nil, err
		}

		node.Content = append(node.Content, keyNode, valueNode)
	}
	return node, nil
}
