// Package testutil provides shared test helpers for setting up workspaces,
// databases and a fully wired editor.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/starford/inkpad/internal/editorservice"
	"github.com/starford/inkpad/internal/export"
	"github.com/starford/inkpad/internal/history"
	"github.com/starford/inkpad/internal/render"
	"github.com/starford/inkpad/internal/session"
	"github.com/starford/inkpad/internal/settings"
	"github.com/starford/inkpad/internal/sse"
	"github.com/starford/inkpad/internal/storage"
	"github.com/starford/inkpad/internal/store"
	"github.com/starford/inkpad/internal/viewport"
)

// Quiet is a logger that discards everything.
var Quiet = slog.New(slog.NewJSONHandler(io.Discard, nil))

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "inkpad-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary workspace directory with a storage provider.
func TestWorkspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// StubDiagrams renders any diagram to a fixed-size SVG and records calls.
type StubDiagrams struct {
	mu    sync.Mutex
	calls []string
}

const stubSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="50" viewBox="0 0 100 50">` +
	`<rect x="5" y="5" width="90" height="40" fill="#888888"/></svg>`

func (s *StubDiagrams) Render(_ context.Context, _, source string, _ render.Theme) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, source)
	s.mu.Unlock()
	return stubSVG, nil
}

// Calls returns the sources rendered so far.
func (s *StubDiagrams) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// StubPrinter stands in for headless Chrome: screenshots are blank images of
// the requested size and documents are one blank page.
type StubPrinter struct{}

func (StubPrinter) Screenshot(_ context.Context, c render.Canvas, scale float64) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, int(c.Width*scale), int(c.Height*scale)))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p StubPrinter) PrintPDF(ctx context.Context, c render.Canvas, _ float64, _ bool) ([]byte, error) {
	shot, err := p.Screenshot(ctx, c, 1)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	err = api.ImportImages(nil, &out, []io.Reader{bytes.NewReader(shot)}, pdfcpu.DefaultImportConfig(), model.NewDefaultConfiguration())
	return out.Bytes(), err
}

// Editor bundles a wired editor service with its collaborators.
type Editor struct {
	Dir      string
	Files    *storage.FS
	DB       *store.DB
	Service  *editorservice.Service
	Broker   *sse.Broker
	Diagrams *StubDiagrams
}

// NewEditor wires every component over a temporary workspace with a short
// render debounce.
func NewEditor(t *testing.T) *Editor {
	t.Helper()
	dir, files := TestWorkspace(t)
	db := TestDB(t)
	broker := sse.NewBroker(50 * time.Millisecond)
	t.Cleanup(broker.Close)

	diagrams := &StubDiagrams{}
	pipeline := render.NewPipeline(render.NewMarkup(true), diagrams,
		render.WithDebounce(20*time.Millisecond),
		render.WithLogger(Quiet),
	)
	st := settings.Load(context.Background(), db, settings.Defaults(), Quiet)
	hist := history.New(db, history.WithLogger(Quiet))
	sess := session.New(files, hist,
		session.WithLogger(Quiet),
		session.WithAutosave(st.Get().AutosaveEnabled, time.Duration(st.Get().AutosaveInterval)*time.Millisecond),
	)
	svc := editorservice.New(editorservice.Deps{
		Files:     files,
		Session:   sess,
		History:   hist,
		Settings:  st,
		Pipeline:  pipeline,
		Viewport:  viewport.New(),
		Exporter:  export.New(StubPrinter{}),
		Publisher: broker,
		Logger:    Quiet,
	})
	t.Cleanup(svc.Shutdown)

	return &Editor{Dir: dir, Files: files, DB: db, Service: svc, Broker: broker, Diagrams: diagrams}
}

// Eventually polls fn until it returns true or the timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
