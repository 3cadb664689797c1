package render

import (
	"strings"
)

// Mode is how document text is interpreted for display.
type Mode string

const (
	ModeEmpty       Mode = "empty"
	ModeDiagramOnly Mode = "diagram"
	ModeRichText    Mode = "rich_text"
)

// CommentMarker starts a diagram comment line.
const CommentMarker = "%%"

// diagramKeywords are the diagram-grammar openers recognised at the start of a document.
var diagramKeywords = []string{
	"graph",
	"flowchart",
	"sequenceDiagram",
	"classDiagram",
	"stateDiagram",
	"erDiagram",
	"gantt",
	"pie",
	"journey",
	"gitGraph",
	"mindmap",
	"timeline",
}

// DiagramKeywords returns the recognised diagram openers.
func DiagramKeywords() []string {
	return append([]string(nil), diagramKeywords...)
}

// Classify decides whether text is a standalone diagram or rich text. It is a
// keyword prefix match after dropping comment lines, not a grammar parse: rich
// text that happens to open with a keyword is classified as a diagram.
func Classify(text string) Mode {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ModeEmpty
	}
	clean := strings.TrimSpace(stripComments(trimmed))
	for _, kw := range diagramKeywords {
		if strings.HasPrefix(clean, kw) {
			return ModeDiagramOnly
		}
	}
	return ModeRichText
}

// stripComments removes every newline-terminated line that begins with CommentMarker.
func stripComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for len(text) > 0 {
		line, rest, found := strings.Cut(text, "\n")
		if !(found && strings.HasPrefix(line, CommentMarker)) {
			b.WriteString(line)
			if found {
				b.WriteByte('\n')
			}
		}
		text = rest
	}
	return b.String()
}
