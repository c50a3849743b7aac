package parser

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/thoughts/internal/apperr"
)

func TestDecode_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\nfavorite: true\ntags: [go, notes]\n---\nBody text.\n")
	fm, offset, err := Decode(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fm.Favorite {
		t.Error("favorite = false, want true")
	}
	if diff := cmp.Diff([]string{"go", "notes"}, fm.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if body := string(input[offset:]); body != "Body text.\n" {
		t.Errorf("body = %q, want %q", body, "Body text.\n")
	}
}

func TestDecode_BlockListTags(t *testing.T) {
	input := []byte("---\ntags:\n  - a\n  - b\n---\n")
	fm, offset, err := Decode(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, fm.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if offset != len(input) {
		t.Errorf("offset = %d, want %d", offset, len(input))
	}
}

func TestDecode_NoFrontmatter(t *testing.T) {
	cases := []string{
		"",
		"# Just a heading\nSome text.\n",
		"text\n---\nmore\n---\n",
		" ---\nfavorite: true\n---\n",
	}
	for _, input := range cases {
		fm, offset, err := Decode([]byte(input))
		if err != nil {
			t.Errorf("Decode(%q): unexpected error: %v", input, err)
			continue
		}
		if offset != 0 {
			t.Errorf("Decode(%q): offset = %d, want 0", input, offset)
		}
		if fm.Favorite || fm.Tags != nil {
			t.Errorf("Decode(%q): expected defaults, got %+v", input, fm)
		}
	}
}

func TestDecode_Unterminated(t *testing.T) {
	cases := []string{
		"---",
		"---\n",
		"---\nfavorite: true\nbody without end\n",
	}
	for _, input := range cases {
		_, _, err := Decode([]byte(input))
		if !errors.Is(err, apperr.ErrMalformedFrontmatter) {
			t.Errorf("Decode(%q): err = %v, want ErrMalformedFrontmatter", input, err)
		}
	}
}

func TestDecode_InvalidMapping(t *testing.T) {
	cases := []string{
		"---\n: invalid: yaml: {{{\n---\nBody\n",
		"---\nfavorite: maybe\n---\n",
		"---\ntags: {a: 1}\n---\n",
		"---\ncreated: yesterday\n---\n",
	}
	for _, input := range cases {
		_, _, err := Decode([]byte(input))
		if !errors.Is(err, apperr.ErrFrontmatterParse) {
			t.Errorf("Decode(%q): err = %v, want ErrFrontmatterParse", input, err)
			continue
		}
		var fpe *apperr.FrontmatterParseError
		if !errors.As(err, &fpe) || fpe.Err == nil {
			t.Errorf("Decode(%q): expected FrontmatterParseError with cause", input)
		}
	}
}

func TestDecode_UnknownFieldsAndCRLF(t *testing.T) {
	input := []byte("---\r\ntitle: ignored\r\nfavorite: true\r\n---\r\nbody")
	fm, offset, err := Decode(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fm.Favorite {
		t.Error("favorite = false, want true")
	}
	if body := string(input[offset:]); body != "body" {
		t.Errorf("body = %q, want %q", body, "body")
	}
}

func TestDecode_EmptyBlock(t *testing.T) {
	fm, offset, err := Decode([]byte("---\n---\nhello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fm.Favorite || fm.Tags != nil || !fm.Created.IsZero() {
		t.Errorf("expected defaults, got %+v", fm)
	}
	if offset != 8 {
		t.Errorf("offset = %d, want 8", offset)
	}
}

func TestEncode_OmitsDefaults(t *testing.T) {
	out, err := Encode(Frontmatter{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(out) != "---\n---\n" {
		t.Errorf("Encode(defaults) = %q, want %q", out, "---\n---\n")
	}

	out, err = Encode(Frontmatter{Favorite: true})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(out) != "---\nfavorite: true\n---\n" {
		t.Errorf("Encode(favorite) = %q", out)
	}
}

func TestEncode_FieldOrder(t *testing.T) {
	out, err := Encode(Frontmatter{
		Favorite: true,
		Tags:     []string{"go", "notes"},
		Created:  time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s := string(out)
	fav := strings.Index(s, "favorite:")
	tags := strings.Index(s, "tags:")
	created := strings.Index(s, "created:")
	if fav < 0 || tags < 0 || created < 0 || !(fav < tags && tags < created) {
		t.Errorf("unexpected field order in %q", s)
	}
	if !strings.Contains(s, "tags: [go, notes]") {
		t.Errorf("expected flow-style tags in %q", s)
	}
}

func TestRoundTrip(t *testing.T) {
	created := time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)
	cases := []Frontmatter{
		{},
		{Favorite: true},
		{Tags: []string{"work"}},
		{Tags: []string{"true", "42", "a b", "x: y", "dup", "dup"}},
		{Favorite: true, Tags: []string{"#hash", "[bracket]"}, Created: created},
	}
	for _, want := range cases {
		data, err := Compose(want, "the body\n---\nstill body\n")
		if err != nil {
			t.Fatalf("Compose(%+v): %v", want, err)
		}
		res, err := Parse(data)
		if err != nil {
			t.Fatalf("Parse(%q): %v", data, err)
		}
		if diff := cmp.Diff(want, res.Frontmatter); diff != "" {
			t.Errorf("frontmatter round trip mismatch (-want +got):\n%s", diff)
		}
		if res.Body != "the body\n---\nstill body\n" {
			t.Errorf("body = %q", res.Body)
		}
	}
}
