package editorservice_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/render"
	"github.com/starford/inkpad/internal/testutil"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestHeadingDocumentSaveAndPreview(t *testing.T) {
	e := testutil.NewEditor(t)
	ctx := context.Background()

	info, err := e.Service.CreateFile(ctx, "", "notes")
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if info.Path != "notes.md" || !info.Active {
		t.Fatalf("info = %+v", info)
	}

	if _, err := e.Service.Update(ctx, "notes.md", "# Title"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	saved, err := e.Service.Save(ctx, "notes.md", false)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Dirty || saved.Title != "Title" {
		t.Errorf("saved = %+v", saved)
	}

	snaps := e.Service.History(ctx, "notes.md")
	if len(snaps) != 1 || snaps[0].Content != "# Title" {
		t.Fatalf("history = %+v", snaps)
	}

	testutil.Eventually(t, 2*time.Second, func() bool {
		art := e.Service.Preview()
		return art != nil && strings.Contains(art.HTML, "<h1")
	})
	if art := e.Service.Preview(); art.Mode != render.ModeRichText {
		t.Errorf("mode = %q", art.Mode)
	}
}

func TestDiagramDocumentRendersAndExports(t *testing.T) {
	e := testutil.NewEditor(t)
	ctx := context.Background()
	writeFile(t, e.Dir, "flow.mmd", "")

	if _, err := e.Service.Export(ctx, "svg"); !errors.Is(err, apperr.ErrNoArtifact) {
		t.Fatalf("export before render: %v", err)
	}

	if _, err := e.Service.Open(ctx, "flow.mmd"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := e.Service.Update(ctx, "flow.mmd", "flowchart TD\nA-->B"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	testutil.Eventually(t, 2*time.Second, func() bool {
		art := e.Service.Preview()
		return art != nil && art.Mode == render.ModeDiagramOnly
	})
	calls := e.Diagrams.Calls()
	if len(calls) != 1 || calls[0] != "flowchart TD\nA-->B" {
		t.Fatalf("diagram calls = %q", calls)
	}

	for _, format := range []string{"svg", "png", "pdf"} {
		res, err := e.Service.Export(ctx, format)
		if err != nil {
			t.Fatalf("Export %s: %v", format, err)
		}
		if len(res.Data) == 0 || res.Filename != "diagram."+format {
			t.Errorf("export %s = %s (%d bytes)", format, res.Filename, len(res.Data))
		}
	}
	if _, err := e.Service.Export(ctx, "bmp"); !errors.Is(err, apperr.ErrInvalidFormat) {
		t.Errorf("unknown format: %v", err)
	}
}

func TestEmptyDocumentHasNothingToExport(t *testing.T) {
	e := testutil.NewEditor(t)
	ctx := context.Background()
	writeFile(t, e.Dir, "empty.md", "")
	if _, err := e.Service.Open(ctx, "empty.md"); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 2*time.Second, func() bool { return e.Service.Preview() != nil })
	if _, err := e.Service.Export(ctx, "png"); !errors.Is(err, apperr.ErrNoArtifact) {
		t.Errorf("expected ErrNoArtifact, got %v", err)
	}
}

func TestStalePreviewHidden(t *testing.T) {
	e := testutil.NewEditor(t)
	ctx := context.Background()
	writeFile(t, e.Dir, "a.md", "# A")
	writeFile(t, e.Dir, "b.md", "# B")

	if _, err := e.Service.Open(ctx, "a.md"); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 2*time.Second, func() bool { return e.Service.Preview() != nil })

	if _, err := e.Service.Open(ctx, "b.md"); err != nil {
		t.Fatal(err)
	}
	// Until b renders, a's artifact must not be served for b.
	if art := e.Service.Preview(); art != nil && art.Identity != "b.md" {
		t.Errorf("preview for %q served while b.md is active", art.Identity)
	}
	testutil.Eventually(t, 2*time.Second, func() bool {
		art := e.Service.Preview()
		return art != nil && art.Identity == "b.md"
	})
}

func TestUpdateInactiveDocument(t *testing.T) {
	e := testutil.NewEditor(t)
	ctx := context.Background()
	writeFile(t, e.Dir, "a.md", "a")
	writeFile(t, e.Dir, "b.md", "b")
	_, _ = e.Service.Open(ctx, "a.md")
	_, _ = e.Service.Open(ctx, "b.md")

	if _, err := e.Service.Update(ctx, "a.md", "x"); !errors.Is(err, apperr.ErrNotOpen) {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}
	if _, err := e.Service.Update(ctx, "zzz.md", "x"); !errors.Is(err, apperr.ErrNotOpen) {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}
}

func TestCloseAndRestore(t *testing.T) {
	e := testutil.NewEditor(t)
	ctx := context.Background()
	writeFile(t, e.Dir, "a.md", "v0")
	_, _ = e.Service.Open(ctx, "a.md")

	_, _ = e.Service.Update(ctx, "a.md", "v1")
	_, _ = e.Service.Save(ctx, "a.md", false)
	_, _ = e.Service.Update(ctx, "a.md", "v2")
	_, _ = e.Service.Save(ctx, "a.md", false)

	snaps := e.Service.History(ctx, "a.md")
	if len(snaps) != 2 || snaps[0].Content != "v2" {
		t.Fatalf("history = %+v", snaps)
	}

	if _, err := e.Service.Restore(ctx, "a.md", snaps[1].ID, false); !errors.Is(err, apperr.ErrDiscardDenied) {
		t.Fatalf("restore without confirm: %v", err)
	}
	if _, err := e.Service.Restore(ctx, "a.md", "missing", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("restore unknown snapshot: %v", err)
	}
	doc, err := e.Service.Restore(ctx, "a.md", snaps[1].ID, true)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if doc.Content != "v1" || !doc.Dirty {
		t.Errorf("restored doc = %+v", doc)
	}

	if err := e.Service.Close(ctx, "a.md", false); !errors.Is(err, apperr.ErrDiscardDenied) {
		t.Errorf("close dirty without discard: %v", err)
	}
	if err := e.Service.Close(ctx, "a.md", true); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if st := e.Service.Session(); len(st.Documents) != 0 || st.Active != "" {
		t.Errorf("session = %+v", st)
	}

	// History outlives the tab.
	if n := len(e.Service.History(ctx, "a.md")); n != 2 {
		t.Errorf("history after close = %d", n)
	}
	e.Service.ClearHistory(ctx, "a.md")
	if n := len(e.Service.History(ctx, "a.md")); n != 0 {
		t.Errorf("history after clear = %d", n)
	}
}

func TestSaveAs(t *testing.T) {
	e := testutil.NewEditor(t)
	ctx := context.Background()

	doc, ok, err := e.Service.SaveAs(ctx, "", "drafts/new.md", "# New")
	if err != nil || !ok {
		t.Fatalf("SaveAs = %v, %v", ok, err)
	}
	if doc.Path != "drafts/new.md" || doc.Dirty || !doc.Active {
		t.Errorf("doc = %+v", doc)
	}
	data, err := os.ReadFile(filepath.Join(e.Dir, "drafts", "new.md"))
	if err != nil || string(data) != "# New" {
		t.Errorf("file = %q, %v", data, err)
	}

	_, ok, err = e.Service.SaveAs(ctx, "drafts/new.md", "", "x")
	if err != nil || ok {
		t.Errorf("cancelled SaveAs = %v, %v", ok, err)
	}
}

func TestSetAutosavePersists(t *testing.T) {
	e := testutil.NewEditor(t)
	ctx := context.Background()

	st, err := e.Service.SetAutosave(ctx, true, 1500*time.Millisecond)
	if err != nil {
		t.Fatalf("SetAutosave: %v", err)
	}
	if !st.AutosaveEnabled || st.AutosaveInterval != 1500 {
		t.Errorf("state = %+v", st)
	}
	if s := e.Service.Settings(); !s.AutosaveEnabled || s.AutosaveInterval != 1500 {
		t.Errorf("settings = %+v", s)
	}

	if _, err := e.Service.SetAutosave(ctx, true, 10*time.Millisecond); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("interval below minimum: %v", err)
	}
}

func TestViewportOperations(t *testing.T) {
	e := testutil.NewEditor(t)
	if st, err := e.Service.Zoom("in"); err != nil || st.Zoom != 1.2 {
		t.Errorf("Zoom = %+v, %v", st, err)
	}
	if _, err := e.Service.Zoom("sideways"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad direction: %v", err)
	}
	_, _ = e.Service.Pointer("down", 0, 0, 0)
	st, _ := e.Service.Pointer("move", 0, 15, -5)
	if st.Pan.X != 15 || st.Pan.Y != -5 {
		t.Errorf("pan = %+v", st.Pan)
	}
	if _, err := e.Service.Pointer("hover", 0, 0, 0); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad phase: %v", err)
	}
	if st := e.Service.ResetViewport(); st.Zoom != 1 || st.Pan.X != 0 {
		t.Errorf("reset = %+v", st)
	}
}

func TestSetDiagramTheme(t *testing.T) {
	e := testutil.NewEditor(t)
	ctx := context.Background()
	if _, err := e.Service.SetDiagramTheme(ctx, "dark"); err != nil {
		t.Fatalf("SetDiagramTheme: %v", err)
	}
	if _, err := e.Service.SetDiagramTheme(ctx, "neon"); !errors.Is(err, apperr.ErrInvalidFormat) {
		t.Errorf("unknown theme: %v", err)
	}
}

func TestRenderAndExportDocument(t *testing.T) {
	e := testutil.NewEditor(t)
	ctx := context.Background()
	writeFile(t, e.Dir, "seq.mmd", "sequenceDiagram\nA->>B: hi")

	art, err := e.Service.RenderDocument(ctx, "seq.mmd")
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	if art.Mode != render.ModeDiagramOnly {
		t.Errorf("mode = %q", art.Mode)
	}
	res, err := e.Service.ExportDocument(ctx, "seq.mmd", "svg")
	if err != nil || !strings.Contains(string(res.Data), "<svg") {
		t.Errorf("ExportDocument = %v", err)
	}
	if _, err := e.Service.RenderDocument(ctx, "missing.md"); !errors.Is(err, apperr.ErrIO) {
		t.Errorf("missing file: %v", err)
	}
}
