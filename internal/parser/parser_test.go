package parser

import "testing"

func TestParse_FrontmatterAndBody(t *testing.T) {
	r := Parse("---\ntitle: Hello\ntags:\n  - go\n---\n# Heading\nBody text.\n")
	if r.Title != "Hello" {
		t.Errorf("title = %q, want Hello", r.Title)
	}
	if r.Body != "# Heading\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if r.Frontmatter["tags"] == nil {
		t.Error("frontmatter tags missing")
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r := Parse("# Just a heading\nSome text.\n")
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q", r.Title)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	in := "---\n: invalid: yaml: {{{\n---\nBody\n"
	r := Parse(in)
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != in {
		t.Errorf("body = %q, want full text", r.Body)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	in := "---\ntitle: x\nno closing"
	if fm, body := SplitFrontmatter(in); fm != nil || body != in {
		t.Errorf("unclosed frontmatter = %v, %q", fm, body)
	}
}

func TestTitle_Fallbacks(t *testing.T) {
	cases := []struct {
		identity, text, want string
	}{
		{"notes/a.md", "---\ntitle: FM\n---\n# H1", "FM"},
		{"notes/a.md", "text\n# H1 Title\n", "H1 Title"},
		{"notes/flow.mmd", "flowchart TD\nA-->B", "flow.mmd"},
		{"", "", "untitled.md"},
	}
	for _, c := range cases {
		if got := Title(c.identity, c.text); got != c.want {
			t.Errorf("Title(%q) = %q, want %q", c.identity, got, c.want)
		}
	}
}
