// Package parser encodes and decodes the frontmatter block at the head of an entry.
package parser

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/thoughts/internal/apperr"
)

// Delimiter is the marker line that opens and closes a frontmatter block.
const Delimiter = "---"

// Frontmatter is the metadata subset stored inside an entry's text.
// A zero Created means the field is absent.
type Frontmatter struct {
	Favorite bool
	Tags     []string
	Created  time.Time
}

// rawFrontmatter mirrors the YAML mapping. Unknown keys are ignored.
type rawFrontmatter struct {
	Favorite bool     `yaml:"favorite"`
	Tags     []string `yaml:"tags"`
	Created  string   `yaml:"created"`
}

// Result holds the output of parsing a stored entry.
type Result struct {
	Frontmatter Frontmatter
	Body        string
}

// Parse splits raw entry bytes into frontmatter and body.
func Parse(data []byte) (*Result, error) {
	fm, offset, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return &Result{Frontmatter: fm, Body: string(data[offset:])}, nil
}

// Compose renders frontmatter followed by body, the inverse of Parse.
func Compose(fm Frontmatter, body string) ([]byte, error) {
	block, err := Encode(fm)
	if err != nil {
		return nil, err
	}
	return append(block, body...), nil
}

// Decode reads a frontmatter block from the head of data and returns it with
// the offset at which the body starts. Text that does not open with the
// delimiter line has no frontmatter: defaults and offset 0 are returned.
func Decode(data []byte) (Frontmatter, int, error) {
	first, next := line(data, 0)
	if first != Delimiter {
		return Frontmatter{}, 0, nil
	}

	blockStart := next
	for pos := next; pos < len(data); {
		l, after := line(data, pos)
		if l == Delimiter {
			fm, err := decodeBlock(data[blockStart:pos])
			if err != nil {
				return Frontmatter{}, 0, err
			}
			return fm, after, nil
		}
		pos = after
	}

	return Frontmatter{}, 0, apperr.ErrMalformedFrontmatter
}

// line returns the line starting at pos without its terminator, and the
// offset of the following line.
func line(data []byte, pos int) (string, int) {
	end := bytes.IndexByte(data[pos:], '\n')
	if end < 0 {
		return string(bytes.TrimSuffix(data[pos:], []byte("\r"))), len(data)
	}
	return string(bytes.TrimSuffix(data[pos:pos+end], []byte("\r"))), pos + end + 1
}

func decodeBlock(block []byte) (Frontmatter, error) {
	var raw rawFrontmatter
	if err := yaml.Unmarshal(block, &raw); err != nil {
		return Frontmatter{}, &apperr.FrontmatterParseError{Err: err}
	}

	fm := Frontmatter{Favorite: raw.Favorite}
	if len(raw.Tags) > 0 {
		fm.Tags = raw.Tags
	}
	if raw.Created != "" {
		t, err := time.Parse(time.RFC3339, raw.Created)
		if err != nil {
			return Frontmatter{}, &apperr.FrontmatterParseError{Err: fmt.Errorf("created: %w", err)}
		}
		fm.Created = t
	}
	return fm, nil
}

// Encode renders fm as a delimited block. Default-valued fields are left out
// and the remaining ones are written in a fixed order: favorite, tags, created.
func Encode(fm Frontmatter) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	if fm.Favorite {
		mapping.Content = append(mapping.Content, key("favorite"),
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"})
	}
	if len(fm.Tags) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, t := range fm.Tags {
			seq.Content = append(seq.Content, str(t))
		}
		mapping.Content = append(mapping.Content, key("tags"), seq)
	}
	if !fm.Created.IsZero() {
		mapping.Content = append(mapping.Content, key("created"), str(fm.Created.UTC().Format(time.RFC3339)))
	}

	if len(mapping.Content) > 0 {
		out, err := yaml.Marshal(mapping)
		if err != nil {
			return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
		}
		buf.Write(out)
	}

	buf.WriteString(Delimiter + "\n")
	return buf.Bytes(), nil
}

func key(name string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
}

func str(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
