// Package parser splits spec documents into YAML frontmatter and a Markdown
// body, and rewrites single frontmatter fields in place.
package parser

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Transition records one status change.
type Transition struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
	At   string `yaml:"at" json:"at"`
}

// Frontmatter is the metadata block of a spec document. Empty strings mean
// the key was absent (or null), except for Status where HasStatus tells an
// explicit empty value apart from a missing key. Keys the parser does not
// know are kept in Extra.
type Frontmatter struct {
	Status        string         `json:"status,omitempty"`
	HasStatus     bool           `json:"-"`
	Priority      string         `json:"priority,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Assignee      string         `json:"assignee,omitempty"`
	CreatedLegacy string         `json:"created,omitempty"`
	CreatedAt     string         `json:"created_at,omitempty"`
	UpdatedAt     string         `json:"updated_at,omitempty"`
	CompletedAt   string         `json:"completed_at,omitempty"`
	DependsOn     []string       `json:"depends_on,omitempty"`
	Transitions   []Transition   `json:"transitions,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// Keys with two spellings. The camelCase form wins when both are present.
var aliasedKeys = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"completedAt": "completed_at",
	"dependsOn":   "depends_on",
}

var knownKeys = map[string]struct{}{
	"status": {}, "priority": {}, "tags": {}, "assignee": {}, "created": {},
	"created_at": {}, "createdAt": {}, "updated_at": {}, "updatedAt": {},
	"completed_at": {}, "completedAt": {}, "depends_on": {}, "dependsOn": {},
	"transitions": {},
}

// UnmarshalYAML decodes a frontmatter mapping, tolerating missing fields and
// keeping unknown ones.
func (f *Frontmatter) UnmarshalYAML(value *yaml.Node) error {
	value = resolveAlias(value)
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("frontmatter: expected a mapping, got %s", value.ShortTag())
	}

	fields := make(map[string]*yaml.Node, len(value.Content)/2)
	var out Frontmatter
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		node := resolveAlias(value.Content[i+1])
		if _, known := knownKeys[key]; !known {
			var v any
			if err := node.Decode(&v); err != nil {
				return fmt.Errorf("frontmatter: decode %q: %w", key, err)
			}
			if out.Extra == nil {
				out.Extra = make(map[string]any)
			}
			out.Extra[key] = v
			continue
		}
		if node.ShortTag() == "!!null" {
			continue
		}
		fields[key] = node
	}
	for camel, snake := range aliasedKeys {
		if n, ok := fields[camel]; ok {
			fields[snake] = n
		}
	}

	var err error
	scalars := []struct {
		key string
		dst *string
	}{
		{"status", &out.Status},
		{"priority", &out.Priority},
		{"assignee", &out.Assignee},
		{"created", &out.CreatedLegacy},
		{"created_at", &out.CreatedAt},
		{"updated_at", &out.UpdatedAt},
		{"completed_at", &out.CompletedAt},
	}
	for _, s := range scalars {
		if n, ok := fields[s.key]; ok {
			if *s.dst, err = scalar(s.key, n); err != nil {
				return err
			}
		}
	}
	_, out.HasStatus = fields["status"]
	if n, ok := fields["tags"]; ok {
		if out.Tags, err = stringList("tags", n); err != nil {
			return err
		}
	}
	if n, ok := fields["depends_on"]; ok {
		if out.DependsOn, err = stringList("depends_on", n); err != nil {
			return err
		}
	}
	if n, ok := fields["transitions"]; ok {
		if err := n.Decode(&out.Transitions); err != nil {
			return fmt.Errorf("frontmatter: decode transitions: %w", err)
		}
	}

	*f = out
	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func scalar(key string, n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("frontmatter: %s must be a scalar", key)
	}
	return n.Value, nil
}

// stringList accepts a sequence of scalars, or a single scalar as a
// one-element list.
func stringList(key string, n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolveAlias(item)
			if item.ShortTag() == "!!null" {
				out = append(out, "")
				continue
			}
			s, err := scalar(key, item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("frontmatter: %s must be a list", key)
	}
}

// Created returns created_at (or the legacy created) as a timestamp.
func (f *Frontmatter) Created() *time.Time {
	if f.CreatedAt != "" {
		return parseTime(f.CreatedAt)
	}
	return parseTime(f.CreatedLegacy)
}

// Updated returns updated_at as a timestamp.
func (f *Frontmatter) Updated() *time.Time {
	return parseTime(f.UpdatedAt)
}

// Completed returns completed_at as a timestamp.
func (f *Frontmatter) Completed() *time.Time {
	return parseTime(f.CompletedAt)
}

// parseTime returns nil for empty or non-RFC 3339 values.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// Parse splits text into frontmatter and body. Text without a leading
// delimiter line, or whose block fails to decode, yields empty Frontmatter
// and the original text.
func Parse(text string) (Frontmatter, string) {
	blockStart, blockEnd, closeEnd, ok := locate(text)
	if !ok {
		return Frontmatter{}, text
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(text[blockStart:blockEnd]), &fm); err != nil {
		slog.Warn("frontmatter: decode failed, using defaults", slog.String("error", err.Error()))
		return Frontmatter{}, text
	}
	return fm, strings.TrimLeft(text[closeEnd:], "\r\n")
}

// locate finds the frontmatter block. The block spans [blockStart, blockEnd)
// and the closing delimiter line ends at closeEnd.
func locate(text string) (blockStart, blockEnd, closeEnd int, ok bool) {
	first, _, found := strings.Cut(text, "\n")
	if !found || strings.TrimRight(first, " \t\r") != delimiter {
		return 0, 0, 0, false
	}
	blockStart = len(first) + 1
	for pos := blockStart; ; {
		line, _, more := strings.Cut(text[pos:], "\n")
		if strings.TrimRight(line, " \t\r") == delimiter {
			return blockStart, pos, pos + len(line), true
		}
		if !more {
			return 0, 0, 0, false
		}
		pos += len(line) + 1
	}
}

// ExtractTitle returns the text of the first level-1 heading in body, or
// an empty string when there is none.
func ExtractTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
