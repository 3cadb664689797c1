package internal

import (
	"io"

	"github.com/starford/inkpad/internal/export"
	"github.com/starford/inkpad/internal/render"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	version  string
	logOut   io.Writer
	diagrams render.DiagramRenderer
	printer  export.Printer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithLogOutput redirects the JSON log stream. Defaults to stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

// WithDiagramRenderer replaces the renderer selected by preview.diagram.engine.
func WithDiagramRenderer(d render.DiagramRenderer) Option {
	return func(a *application) {
		a.diagrams = d
	}
}

// WithExportPrinter replaces the headless Chrome used for PNG and PDF export.
func WithExportPrinter(p export.Printer) Option {
	return func(a *application) {
		a.printer = p
	}
}
