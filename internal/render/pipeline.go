package render

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultDebounce is the quiet period before a submitted text is rendered.
	DefaultDebounce = 500 * time.Millisecond
	// DefaultTimeout bounds a single render.
	DefaultTimeout = 30 * time.Second

	maxParallelDiagrams = 4

	emptyHTML = `<div class="empty-preview">Nothing to display</div>`
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.debounce = d
		}
	}
}

// WithTimeout bounds each render.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithTheme sets the initial diagram theme.
func WithTheme(t Theme) Option {
	return func(p *Pipeline) {
		if t != "" {
			p.theme = t
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithIDGenerator replaces the render id source.
func WithIDGenerator(fn func() string) Option {
	return func(p *Pipeline) { p.newID = fn }
}

// WithBusyHook is called with true when a render starts and false when the
// pipeline goes idle. Calls are serialised and the last one always matches
// Busy.
func WithBusyHook(fn func(bool)) Option {
	return func(p *Pipeline) { p.busyHook = fn }
}

type request struct {
	identity string
	content  string
}

// Pipeline turns the current document text into a rendered Artifact. Rapid
// submissions are collapsed by a single debounce timer, and a submission that
// arrives mid-render triggers one more pass so only the newest text is
// published.
type Pipeline struct {
	markup   *Markup
	diagrams DiagramRenderer
	debounce time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	newID    func() string
	busyHook func(bool)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	busyMu   sync.Mutex
	busySent bool

	mu       sync.Mutex
	theme    Theme
	current  *request
	timer    *time.Timer
	gen      uint64
	running  bool
	rerun    bool
	artifact *Artifact
	subs     []func(*Artifact)
	closed   bool
}

// NewPipeline creates a pipeline that renders markup with m and diagrams with d.
func NewPipeline(m *Markup, d DiagramRenderer, opts ...Option) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		markup:   m,
		diagrams: d,
		debounce: DefaultDebounce,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		newID:    func() string { return "diagram-" + uuid.Must(uuid.NewV7()).String() },
		ctx:      ctx,
		cancel:   cancel,
		theme:    ThemeDefault,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Subscribe registers fn to receive every published artifact.
func (p *Pipeline) Subscribe(fn func(*Artifact)) {
	p.mu.Lock()
	p.subs = append(p.subs, fn)
	p.mu.Unlock()
}

// Submit records the latest text and (re)starts the debounce timer.
func (p *Pipeline) Submit(identity, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.current = &request{identity: identity, content: content}
	p.gen++
	gen := p.gen
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.debounce, func() { p.fire(gen) })
}

// SetTheme switches the diagram theme and re-renders the current text
// immediately.
func (p *Pipeline) SetTheme(t Theme) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.theme = t
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.triggerLocked()
	p.mu.Unlock()
}

// Theme returns the active diagram theme.
func (p *Pipeline) Theme() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.theme
}

// Busy reports whether a render is in progress.
func (p *Pipeline) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Artifact returns the last published artifact, or nil.
func (p *Pipeline) Artifact() *Artifact {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.artifact
}

func (p *Pipeline) fire(gen uint64) {
	p.mu.Lock()
	if p.closed || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.triggerLocked()
	p.mu.Unlock()
}

// triggerLocked starts the render loop, or flags a rerun when one is active.
func (p *Pipeline) triggerLocked() {
	if p.current == nil {
		return
	}
	if p.running {
		p.rerun = true
		return
	}
	p.running = true
	p.wg.Add(1)
	go p.loop()
}

func (p *Pipeline) loop() {
	defer p.wg.Done()
	p.syncBusy()
	for {
		p.mu.Lock()
		req := *p.current
		theme := p.theme
		p.rerun = false
		p.mu.Unlock()

		ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
		art, err := p.render(ctx, req.identity, req.content, theme)
		cancel()

		p.mu.Lock()
		if p.closed {
			p.running = false
			p.mu.Unlock()
			return
		}
		if p.rerun {
			p.mu.Unlock()
			continue
		}
		p.running = false
		if err == nil {
			p.artifact = art
		}
		subs := append([]func(*Artifact){}, p.subs...)
		p.mu.Unlock()

		p.syncBusy()
		if err != nil {
			p.logger.Error("render failed", slog.String("identity", req.identity), slog.String("error", err.Error()))
			return
		}
		for _, fn := range subs {
			fn(art)
		}
		return
	}
}

// syncBusy reports the current running state to the busy hook when it
// differs from the last one reported.
func (p *Pipeline) syncBusy() {
	if p.busyHook == nil {
		return
	}
	p.busyMu.Lock()
	defer p.busyMu.Unlock()
	p.mu.Lock()
	busy := p.running
	p.mu.Unlock()
	if busy == p.busySent {
		return
	}
	p.busySent = busy
	p.busyHook(busy)
}

// RenderNow renders synchronously with the current theme. The result is
// returned to the caller only; subscribers are not notified.
func (p *Pipeline) RenderNow(ctx context.Context, identity, content string) (*Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.render(ctx, identity, content, p.Theme())
}

func (p *Pipeline) render(ctx context.Context, identity, content string, theme Theme) (*Artifact, error) {
	art := &Artifact{
		RenderID:   p.newID(),
		Identity:   identity,
		Mode:       Classify(content),
		Theme:      theme,
		RenderedAt: time.Now(),
	}

	switch art.Mode {
	case ModeEmpty:
		art.Empty = true
		art.HTML = emptyHTML

	case ModeDiagramOnly:
		svg, err := p.diagrams.Render(ctx, art.RenderID, content, theme)
		if err != nil {
			art.Errors = append(art.Errors, err.Error())
			art.HTML = errorBlock("Diagram rendering failed", err)
			break
		}
		art.Graphics = []Graphic{{ID: art.RenderID, SVG: svg}}
		art.HTML = diagramBlock(art.RenderID, svg)

	case ModeRichText:
		body, sources, err := p.markup.Convert(content)
		if err != nil {
			art.Errors = append(art.Errors, err.Error())
			art.HTML = errorBlock("Rendering failed", err)
			break
		}
		svgs, errs := p.renderEmbedded(ctx, art.RenderID, sources, theme)
		art.HTML = fillPlaceholders(body, len(sources), func(i int) string {
			if errs[i] != nil {
				return errorBlock("Diagram rendering failed", errs[i])
			}
			return diagramBlock(embeddedID(art.RenderID, i), svgs[i])
		})
		for i := range sources {
			if errs[i] != nil {
				art.Errors = append(art.Errors, errs[i].Error())
				continue
			}
			art.Graphics = append(art.Graphics, Graphic{ID: embeddedID(art.RenderID, i), SVG: svgs[i]})
		}
	}

	if err := p.ctx.Err(); err != nil {
		return nil, fmt.Errorf("render: pipeline closed: %w", err)
	}
	return art, nil
}

// renderEmbedded renders every embedded diagram independently; one failure
// does not affect the others.
func (p *Pipeline) renderEmbedded(ctx context.Context, renderID string, sources []string, theme Theme) ([]string, []error) {
	svgs := make([]string, len(sources))
	errs := make([]error, len(sources))
	var g errgroup.Group
	g.SetLimit(maxParallelDiagrams)
	for i, src := range sources {
		g.Go(func() error {
			svgs[i], errs[i] = p.diagrams.Render(ctx, embeddedID(renderID, i), src, theme)
			return nil
		})
	}
	_ = g.Wait()
	return svgs, errs
}

// Close cancels pending work and waits for an in-flight render to finish.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	p.cancel()
	p.wg.Wait()
}

func embeddedID(renderID string, i int) string {
	return fmt.Sprintf("%s-%d", renderID, i)
}

func diagramBlock(id, svg string) string {
	return `<div class="diagram" id="` + html.EscapeString(id) + `">` + svg + `</div>`
}

func errorBlock(title string, err error) string {
	var b strings.Builder
	b.WriteString(`<div class="error-message"><h3>`)
	b.WriteString(html.EscapeString(title))
	b.WriteString(`</h3><pre>`)
	b.WriteString(html.EscapeString(err.Error()))
	b.WriteString(`</pre></div>`)
	return b.String()
}
