// Package parser splits YAML frontmatter from Markdown content and derives a display title.
package parser

import (
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Result holds the output of parsing a document.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
}

// Parse extracts frontmatter, body and title from raw document text.
func Parse(text string) Result {
	fm, body := SplitFrontmatter(text)
	return Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
	}
}

// Title returns the display title for a document: frontmatter title, then the
// first H1 heading, then the file name.
func Title(identity, text string) string {
	if t := Parse(text).Title; t != "" {
		return t
	}
	if identity == "" {
		return "untitled.md"
	}
	return path.Base(identity)
}

// SplitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. Without valid frontmatter the whole text is body.
func SplitFrontmatter(text string) (map[string]any, string) {
	const delim = "---"
	trimmed := strings.TrimLeft(text, "\n\r")

	if !strings.HasPrefix(trimmed, delim) {
		return nil, text
	}

	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return nil, text
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(afterDelim, "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil || fm == nil {
		return nil, text
	}
	return fm, body
}

func deriveTitle(fm map[string]any, body string) string {
	if fm != nil {
		if t, ok := fm["title"].(string); ok && t != "" {
			return t
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
