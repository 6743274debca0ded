package parser

import (
	"testing"

	"github.com/starford/semwiki/internal/models"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if len(r.Annotations) != 0 {
		t.Errorf("annotations = %v, want none", r.Annotations)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody [[Has note::x]]\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if len(r.Annotations) != 1 || r.Annotations[0].Property != "Has note" {
		t.Errorf("annotations = %v", r.Annotations)
	}
}

func TestParse_FrontmatterAnnotations(t *testing.T) {
	input := []byte(`---
properties:
  Has size: 42
  Has note:
    - first
    - second
  Has type: Text
  Empty:
subobjects:
  sec2:
    Has note: inner
  sec1:
    Has size: 1.5
---
Body.
`)
	r, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.Annotation{
		{Property: "Has note", Value: "first"},
		{Property: "Has note", Value: "second"},
		{Property: "Has size", Value: "42"},
		{Property: "Has type", Value: "Text"},
		{Subobject: "sec1", Property: "Has size", Value: "1.5"},
		{Subobject: "sec2", Property: "Has note", Value: "inner"},
	}
	assertAnnotations(t, r.Annotations, want)
}

func TestInlineAnnotations(t *testing.T) {
	body := "Lives in [[Located in::Berlin]], see [[Berlin]] and [[Has note:: spaced |label]].\n" +
		"[[::empty]] [[Has note::]]"
	want := []models.Annotation{
		{Property: "Located in", Value: "Berlin"},
		{Property: "Has note", Value: "spaced"},
	}
	assertAnnotations(t, inlineAnnotations(body), want)
}

func TestParse_OrderFrontmatterThenInline(t *testing.T) {
	input := []byte("---\nproperties:\n  B: 1\n---\n[[A::2]]\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	assertAnnotations(t, r.Annotations, []models.Annotation{
		{Property: "B", Value: "1"},
		{Property: "A", Value: "2"},
	})
}

func TestParse_Queries(t *testing.T) {
	input := []byte("Intro\n{{#ask: [[Category:City]]\n |?Population\n}}\n" +
		"{{#ask:   [[Category:City]] |?Population }}\n" +
		"{{#ask: [[Located in::Berlin]] }}\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Queries) != 2 {
		t.Fatalf("queries = %v, want 2 distinct", r.Queries)
	}
	if r.Queries[0].ID != QueryID("[[Category:City]] |?Population") {
		t.Errorf("first query id = %s", r.Queries[0].ID)
	}
	if len(r.Queries[0].ID) != 32 {
		t.Errorf("query id length = %d", len(r.Queries[0].ID))
	}
	// Conditions inside queries are not annotations of the page.
	if len(r.Annotations) != 0 {
		t.Errorf("annotations = %v, want none", r.Annotations)
	}
}

func TestScalar(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
		ok   bool
	}{
		{"  x ", "x", true},
		{"", "", false},
		{7, "7", true},
		{2.5, "2.5", true},
		{true, "true", true},
		{nil, "", false},
		{map[string]interface{}{}, "", false},
	}
	for _, c := range cases {
		got, ok := scalar(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("scalar(%v) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestDeriveTitle_Frontmatter(t *testing.T) {
	fm := map[string]interface{}{"title": "FM Title"}
	title := deriveTitle(fm, "# H1 Title\n")
	if title != "FM Title" {
		t.Errorf("title = %q, want FM Title", title)
	}
}

func assertAnnotations(t *testing.T, got, want []models.Annotation) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("annotations = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("annotation[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
