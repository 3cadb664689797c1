package mcpserver

import (
	"strings"

	"github.com/starford/inkpad/internal/render"
)

// documentFormatGuide describes how inkpad decides between a diagram
// preview and a rich-text preview. LLM consumers should read it before
// writing documents.
func documentFormatGuide() string {
	return guideHead + "`" + strings.Join(render.DiagramKeywords(), "`, `") + "`" + guideTail
}

const guideHead = `# Inkpad Document Format

Inkpad previews every open document in one of two modes. The mode is picked
from the document text alone, not from the file extension.

## Diagram documents

A document is a diagram when, after removing comment lines and surrounding
whitespace, it starts with one of these keywords:

`

const guideTail = `

The whole text, including comments, is handed to the Mermaid renderer.

` + "```" + `
%% comment lines start with two percent signs
graph TD
  A[Start] --> B{Choice}
  B -->|yes| C[Done]
` + "```" + `

## Rich-text documents

Anything else is rendered as GitHub-flavoured Markdown:

1. Single newlines are hard line breaks.
2. Headings get generated ids.
3. Fenced code blocks are syntax highlighted.
4. Fenced blocks tagged ` + "`mermaid`" + ` are rendered as embedded diagrams. A
   failing block shows an inline error and leaves the other blocks intact.
5. A leading YAML frontmatter block is not rendered; its ` + "`title`" + ` names the
   document.

## Caveat

Classification is a prefix match. Prose that happens to start with a
keyword (for example "pie charts are great") is treated as a diagram and
will show a diagram error. Start such documents with a heading.
`
