package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultMermaidURL is where the browser renderer loads mermaid.js from.
const DefaultMermaidURL = "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"

const renderJS = `async (id, source, theme) => {
	mermaid.initialize({ startOnLoad: false, theme: theme, securityLevel: 'strict' });
	const { svg } = await mermaid.render(id, source);
	return svg;
}`

// BrowserRenderer renders diagrams with mermaid.js inside headless Chrome.
// The browser starts on first use and is shared by all renders and captures;
// renders are serialised on one page, captures each get a fresh page.
type BrowserRenderer struct {
	mermaidURL string
	controlURL string
	logger     *slog.Logger

	mu      sync.Mutex
	lnch    *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
	closed  bool
}

// BrowserOption configures a BrowserRenderer.
type BrowserOption func(*BrowserRenderer)

// WithMermaidURL overrides the mermaid.js script location.
func WithMermaidURL(u string) BrowserOption {
	return func(b *BrowserRenderer) {
		if u != "" {
			b.mermaidURL = u
		}
	}
}

// WithControlURL connects to an already running browser instead of launching one.
func WithControlURL(u string) BrowserOption {
	return func(b *BrowserRenderer) { b.controlURL = u }
}

// WithBrowserLogger sets the logger.
func WithBrowserLogger(l *slog.Logger) BrowserOption {
	return func(b *BrowserRenderer) { b.logger = l }
}

func NewBrowserRenderer(opts ...BrowserOption) *BrowserRenderer {
	b := &BrowserRenderer{
		mermaidURL: DefaultMermaidURL,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *BrowserRenderer) Render(ctx context.Context, id, source string, theme Theme) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	page, err := b.pageLocked()
	if err != nil {
		return "", &RenderError{RenderID: id, Err: err}
	}
	res, err := page.Context(ctx).Eval(renderJS, id, source, string(theme))
	if err != nil {
		return "", &RenderError{RenderID: id, Err: err}
	}
	svg := res.Value.Str()
	if svg == "" {
		return "", &RenderError{RenderID: id, Err: errors.New("renderer produced no output")}
	}
	return svg, nil
}

func (b *BrowserRenderer) pageLocked() (*rod.Page, error) {
	if b.page != nil && !b.closed {
		return b.page, nil
	}
	browser, err := b.browserLocked()
	if err != nil {
		return nil, err
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.cleanupLocked()
		return nil, fmt.Errorf("render: open page: %w", err)
	}
	if err := page.AddScriptTag(b.mermaidURL, ""); err != nil {
		b.cleanupLocked()
		return nil, fmt.Errorf("render: load mermaid: %w", err)
	}
	b.page = page
	return page, nil
}

func (b *BrowserRenderer) browserLocked() (*rod.Browser, error) {
	if b.closed {
		return nil, errors.New("render: browser renderer closed")
	}
	if b.browser != nil {
		return b.browser, nil
	}

	wsURL := b.controlURL
	if wsURL == "" {
		l := launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("render: launch browser: %w", err)
		}
		b.lnch = l
		wsURL = u
		b.logger.Info("render: launched headless chrome", slog.String("url", wsURL))
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		b.cleanupLocked()
		return nil, fmt.Errorf("render: connect browser: %w", err)
	}
	b.browser = browser
	return browser, nil
}

func (b *BrowserRenderer) cleanupLocked() {
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			b.logger.Warn("render: close browser", slog.String("error", err.Error()))
		}
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Kill()
		b.lnch = nil
	}
	b.page = nil
}

// Close shuts the browser down. Later renders fail.
func (b *BrowserRenderer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cleanupLocked()
	return nil
}
