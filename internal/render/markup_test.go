package render

import (
	"strings"
	"testing"
)

func TestMarkup_Heading(t *testing.T) {
	m := NewMarkup(true)
	out, diagrams, err := m.Convert("# Title\n\nbody")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "Title</h1>") {
		t.Errorf("expected heading, got %q", out)
	}
	if len(diagrams) != 0 {
		t.Errorf("unexpected diagrams: %v", diagrams)
	}
}

func TestMarkup_HardBreaks(t *testing.T) {
	out, _, err := NewMarkup(false).Convert("line one\nline two")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.Contains(out, "<br") {
		t.Errorf("expected hard line break, got %q", out)
	}
}

func TestMarkup_DiagramPlaceholders(t *testing.T) {
	doc := "Intro\n\n```mermaid\nflowchart TD\nA-->B\n```\n\n```go\nfmt.Println(1)\n```\n\n```mermaid\npie\n```\n"
	out, diagrams, err := NewMarkup(true).Convert(doc)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(diagrams) != 2 {
		t.Fatalf("diagrams = %v", diagrams)
	}
	if diagrams[0] != "flowchart TD\nA-->B" || diagrams[1] != "pie" {
		t.Errorf("diagram sources = %q", diagrams)
	}
	if got := len(placeholderRe.FindAllString(out, -1)); got != 2 {
		t.Errorf("placeholders = %d in %q", got, out)
	}
	if !strings.Contains(out, "chroma") {
		t.Errorf("expected highlighted code block, got %q", out)
	}
}

func TestMarkup_StripsFrontmatter(t *testing.T) {
	out, _, err := NewMarkup(true).Convert("---\ntitle: Hidden\n---\n# Shown\n")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if strings.Contains(out, "Hidden") {
		t.Errorf("frontmatter leaked into output: %q", out)
	}
	if !strings.Contains(out, "Shown") {
		t.Errorf("body missing: %q", out)
	}
}

func TestMarkup_Sanitize(t *testing.T) {
	doc := "<script>alert(1)</script>\n\nok"
	safe, _, _ := NewMarkup(true).Convert(doc)
	if strings.Contains(safe, "<script>") {
		t.Errorf("script survived sanitising: %q", safe)
	}
	raw, _, _ := NewMarkup(false).Convert(doc)
	if !strings.Contains(raw, "<script>") {
		t.Errorf("unsanitised output lost raw html: %q", raw)
	}
}

func TestFillPlaceholders(t *testing.T) {
	in := `<p>a</p><div class="diagram" data-diagram="0"></div><div class="diagram" data-diagram="7"></div>`
	out := fillPlaceholders(in, 1, func(i int) string { return "<svg/>" })
	if !strings.Contains(out, "<svg/>") {
		t.Errorf("placeholder not filled: %q", out)
	}
	if !strings.Contains(out, `data-diagram="7"`) {
		t.Errorf("out-of-range placeholder should be kept: %q", out)
	}
}
