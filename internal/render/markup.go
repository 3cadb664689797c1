package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"

	inkparser "github.com/starford/inkpad/internal/parser"
)

// DiagramLanguage is the fenced-code info string that marks an embedded diagram.
const DiagramLanguage = "mermaid"

// KindDiagramBlock is the AST kind of an embedded diagram block.
var KindDiagramBlock = ast.NewNodeKind("DiagramBlock")

// DiagramBlock replaces a fenced diagram block in the parsed document. Index
// is its position among the document's diagrams.
type DiagramBlock struct {
	ast.BaseBlock
	Index  int
	Source string
}

func (n *DiagramBlock) Kind() ast.NodeKind { return KindDiagramBlock }

func (n *DiagramBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Index": strconv.Itoa(n.Index)}, nil)
}

type diagramTransformer struct{}

func (diagramTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	var fences []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fc, ok := n.(*ast.FencedCodeBlock); ok && string(fc.Language(source)) == DiagramLanguage {
			fences = append(fences, fc)
		}
		return ast.WalkContinue, nil
	})
	for i, fc := range fences {
		var b strings.Builder
		lines := fc.Lines()
		for j := 0; j < lines.Len(); j++ {
			seg := lines.At(j)
			b.Write(seg.Value(source))
		}
		block := &DiagramBlock{Index: i, Source: strings.TrimRight(b.String(), "\n")}
		fc.Parent().ReplaceChild(fc.Parent(), fc, block)
	}
}

type diagramHTMLRenderer struct{}

func (diagramHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindDiagramBlock, renderDiagramPlaceholder)
}

func renderDiagramPlaceholder(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		fmt.Fprintf(w, `<div class="diagram" data-diagram="%d"></div>`+"\n", n.(*DiagramBlock).Index)
	}
	return ast.WalkSkipChildren, nil
}

var placeholderRe = regexp.MustCompile(`<div[^>]*data-diagram="(\d+)"[^>]*></div>`)

// Markup converts Markdown to HTML. Embedded diagram blocks become
// placeholders that are filled in after conversion.
type Markup struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewMarkup builds a converter with GitHub-flavoured Markdown, hard line
// breaks and class-based syntax highlighting. When sanitize is set the HTML
// is passed through a UGC policy before diagrams are inserted.
func NewMarkup(sanitize bool) *Markup {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(diagramTransformer{}, 100)),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(diagramHTMLRenderer{}, 100)),
		),
	)
	m := &Markup{md: md}
	if sanitize {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").Globally()
		p.AllowDataAttributes()
		m.policy = p
	}
	return m
}

// Convert renders text (frontmatter stripped) and returns the HTML together
// with the sources of embedded diagrams in document order.
func (m *Markup) Convert(doc string) (string, []string, error) {
	_, body := inkparser.SplitFrontmatter(doc)
	src := []byte(body)

	root := m.md.Parser().Parse(text.NewReader(src))
	var diagrams []string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if d, ok := n.(*DiagramBlock); ok && entering {
			diagrams = append(diagrams, d.Source)
		}
		return ast.WalkContinue, nil
	})

	var buf bytes.Buffer
	if err := m.md.Renderer().Render(&buf, src, root); err != nil {
		return "", nil, fmt.Errorf("render: markup: %w", err)
	}
	out := buf.String()
	if m.policy != nil {
		out = m.policy.Sanitize(out)
	}
	return out, diagrams, nil
}

// fillPlaceholders swaps each diagram placeholder for fill(index). Unknown
// indexes are left untouched.
func fillPlaceholders(htmlText string, n int, fill func(i int) string) string {
	return placeholderRe.ReplaceAllStringFunc(htmlText, func(match string) string {
		sub := placeholderRe.FindStringSubmatch(match)
		i, err := strconv.Atoi(sub[1])
		if err != nil || i < 0 || i >= n {
			return match
		}
		return fill(i)
	})
}
