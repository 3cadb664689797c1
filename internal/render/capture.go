package render

import (
	"context"
	"fmt"
	"html"
	"io"
	"math"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// cssPixelsPerInch converts CSS pixels to the inches the print API takes.
const cssPixelsPerInch = 96.0

// Canvas is an SVG laid out at a fixed size in CSS pixels over a solid
// background.
type Canvas struct {
	SVG        string
	Background string
	Width      float64
	Height     float64
}

// Page wraps the canvas in a standalone document with padding on every side.
func (c Canvas) Page(padding float64) string {
	bg := html.EscapeString(c.Background)
	return fmt.Sprintf(`<!DOCTYPE html><html><head><meta charset="utf-8"><style>
html, body { margin: 0; padding: 0; background: %[1]s; }
body { padding: %[4]gpx; display: inline-block; }
#canvas { display: block; width: %[2]gpx; height: %[3]gpx; background: %[1]s; overflow: hidden; }
#canvas > svg { display: block; width: %[2]gpx !important; height: %[3]gpx !important; max-width: none !important; }
</style></head><body><div id="canvas">%[5]s</div></body></html>`, bg, c.Width, c.Height, padding, c.SVG)
}

// Screenshot draws c at scale device pixels per CSS pixel and returns PNG
// bytes of the canvas element.
func (b *BrowserRenderer) Screenshot(ctx context.Context, c Canvas, scale float64) ([]byte, error) {
	var out []byte
	err := b.withCanvas(ctx, c, 0, scale, func(p *rod.Page) error {
		el, err := p.Element("#canvas")
		if err != nil {
			return fmt.Errorf("render: find canvas: %w", err)
		}
		out, err = el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
		if err != nil {
			return fmt.Errorf("render: screenshot: %w", err)
		}
		return nil
	})
	return out, err
}

// PrintPDF prints c as vector graphics onto one page the size of the canvas
// plus margin on every side.
func (b *BrowserRenderer) PrintPDF(ctx context.Context, c Canvas, margin float64, landscape bool) ([]byte, error) {
	var out []byte
	err := b.withCanvas(ctx, c, margin, 1, func(p *rod.Page) error {
		w := (c.Width + 2*margin) / cssPixelsPerInch
		h := (c.Height + 2*margin) / cssPixelsPerInch
		// Chrome swaps the paper sides for landscape output.
		if landscape {
			w, h = h, w
		}
		zero := 0.0
		r, err := p.PDF(&proto.PagePrintToPDF{
			Landscape:       landscape,
			PrintBackground: true,
			PaperWidth:      &w,
			PaperHeight:     &h,
			MarginTop:       &zero,
			MarginBottom:    &zero,
			MarginLeft:      &zero,
			MarginRight:     &zero,
			PageRanges:      "1",
		})
		if err != nil {
			return fmt.Errorf("render: print pdf: %w", err)
		}
		out, err = io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("render: read pdf: %w", err)
		}
		return nil
	})
	return out, err
}

// withCanvas loads c into a fresh page sized to fit it and calls fn once
// web fonts have loaded. Captures share the renderer lock with renders.
func (b *BrowserRenderer) withCanvas(ctx context.Context, c Canvas, padding, scale float64, fn func(*rod.Page) error) error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("render: canvas has no size")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	browser, err := b.browserLocked()
	if err != nil {
		return err
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("render: open capture page: %w", err)
	}
	defer func() { _ = page.Close() }()

	p := page.Context(ctx)
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(math.Ceil(c.Width + 2*padding)),
		Height:            int(math.Ceil(c.Height + 2*padding)),
		DeviceScaleFactor: scale,
	}); err != nil {
		return fmt.Errorf("render: set viewport: %w", err)
	}
	if err := p.SetDocumentContent(c.Page(padding)); err != nil {
		return fmt.Errorf("render: load canvas: %w", err)
	}
	if _, err := p.Eval(`() => document.fonts.ready.then(() => true)`); err != nil {
		return fmt.Errorf("render: wait for fonts: %w", err)
	}
	return fn(p)
}
