// Package export serialises the rendered preview graphic to files.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/render"
)

// Format is an export target.
type Format int

const (
	Vector Format = iota
	Raster
	Document
)

const (
	// RasterScale multiplies the displayed size for raster output.
	RasterScale = 2
	// PageMargin is the margin around the graphic on document pages, in CSS pixels.
	PageMargin = 20.0
)

// ParseFormat maps a file extension name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "svg":
		return Vector, nil
	case "png":
		return Raster, nil
	case "pdf":
		return Document, nil
	}
	return 0, apperr.Wrap("export", s, apperr.ErrInvalidFormat, fmt.Errorf("export: unsupported format %q", s))
}

func (f Format) String() string {
	switch f {
	case Vector:
		return "svg"
	case Raster:
		return "png"
	case Document:
		return "pdf"
	}
	return "unknown"
}

// Result is a serialised export ready to be written or downloaded.
type Result struct {
	Filename    string
	MIME        string
	Data        []byte
	Orientation string
}

// Printer draws a laid out SVG the way a browser shows it.
// *render.BrowserRenderer satisfies it.
type Printer interface {
	Screenshot(ctx context.Context, c render.Canvas, scale float64) ([]byte, error)
	PrintPDF(ctx context.Context, c render.Canvas, margin float64, landscape bool) ([]byte, error)
}

// Engine serialises artifacts. Raster and document output need a Printer.
type Engine struct {
	printer Printer
}

// New creates an Engine. A nil printer limits it to vector output.
func New(p Printer) *Engine {
	return &Engine{printer: p}
}

// Export serialises the first graphic of art in the requested format. It
// fails with apperr.ErrNoArtifact when there is nothing to export.
func (e *Engine) Export(ctx context.Context, art *render.Artifact, f Format) (*Result, error) {
	g, ok := art.Graphic()
	if !ok || strings.TrimSpace(g.SVG) == "" {
		return nil, apperr.Wrap("export", f.String(), apperr.ErrNoArtifact, fmt.Errorf("export: no rendered graphic"))
	}
	switch f {
	case Vector:
		return &Result{Filename: "diagram.svg", MIME: "image/svg+xml", Data: []byte(g.SVG)}, nil
	case Raster:
		data, err := e.raster(ctx, g.SVG, art.Theme.Background())
		if err != nil {
			return nil, apperr.Wrap("export", "png", apperr.ErrIO, err)
		}
		return &Result{Filename: "diagram.png", MIME: "image/png", Data: data}, nil
	case Document:
		data, orientation, err := e.document(ctx, g.SVG, art.Theme.Background())
		if err != nil {
			return nil, apperr.Wrap("export", "pdf", apperr.ErrIO, err)
		}
		return &Result{Filename: "diagram.pdf", MIME: "application/pdf", Data: data, Orientation: orientation}, nil
	}
	return nil, apperr.Wrap("export", f.String(), apperr.ErrInvalidFormat, fmt.Errorf("export: unsupported format %d", f))
}

func (e *Engine) canvas(svg, bg string) (render.Canvas, error) {
	if e.printer == nil {
		return render.Canvas{}, fmt.Errorf("export: no printer configured")
	}
	w, h, err := svgSize(svg)
	if err != nil {
		return render.Canvas{}, err
	}
	return render.Canvas{SVG: svg, Background: bg, Width: w, Height: h}, nil
}

// raster captures svg at RasterScale times its displayed size over bg.
func (e *Engine) raster(ctx context.Context, svg, bg string) ([]byte, error) {
	c, err := e.canvas(svg, bg)
	if err != nil {
		return nil, err
	}
	shot, err := e.printer.Screenshot(ctx, c, RasterScale)
	if err != nil {
		return nil, err
	}
	return normalize(shot, c.Width*RasterScale, c.Height*RasterScale, bg)
}

// document prints svg on a single page sized to the graphic plus
// PageMargin on every side, landscape when wider than tall.
func (e *Engine) document(ctx context.Context, svg, bg string) ([]byte, string, error) {
	c, err := e.canvas(svg, bg)
	if err != nil {
		return nil, "", err
	}
	landscape := c.Width > c.Height
	orientation := "portrait"
	if landscape {
		orientation = "landscape"
	}
	data, err := e.printer.PrintPDF(ctx, c, PageMargin, landscape)
	if err != nil {
		return nil, "", err
	}
	data, err = firstPage(data)
	if err != nil {
		return nil, "", err
	}
	return data, orientation, nil
}
