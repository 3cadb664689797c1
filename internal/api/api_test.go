package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/inkpad/internal/editorservice"
	"github.com/starford/inkpad/internal/models"
	"github.com/starford/inkpad/internal/settings"
	"github.com/starford/inkpad/internal/testutil"
	"github.com/starford/inkpad/internal/viewport"
)

// testEnv wires an editor over a temp workspace and mounts the router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*testutil.Editor, http.Handler) {
	t.Helper()
	e := testutil.NewEditor(t)
	return e, NewRouter(e.Service, authToken != "", authToken, nil)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body %s)", err, w.Body.String())
	}
	return v
}

func TestCreateFileAndList(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/workspace/files", CreateFileRequest{Name: "flow"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	doc := decode[models.DocumentInfo](t, w)
	if doc.Path != "flow.md" || !doc.Active {
		t.Errorf("created doc = %+v", doc)
	}

	w = do(t, router, http.MethodPost, "/workspace/files", CreateFileRequest{Name: "flow.md"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}

	w = do(t, router, http.MethodGet, "/workspace/entries", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decode[EntryListResponse](t, w)
	if len(list.Entries) != 1 || list.Entries[0].Name != "flow.md" {
		t.Errorf("entries = %+v", list.Entries)
	}
}

func TestCreateFileMissingName(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/workspace/files", CreateFileRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("create without name = %d, want 400", w.Code)
	}
}

func TestOpenUpdateSave(t *testing.T) {
	e, router := testEnv(t, "")
	writeFile(t, e.Dir, "hello.md", "# Hello")

	w := do(t, router, http.MethodPost, "/session/documents", OpenDocumentRequest{Path: "hello.md"})
	if w.Code != http.StatusOK {
		t.Fatalf("open status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPut, "/session/documents/hello.md", UpdateContentRequest{Content: "# Hello\nWorld"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	if doc := decode[models.DocumentInfo](t, w); !doc.Dirty {
		t.Errorf("updated doc not dirty: %+v", doc)
	}

	w = do(t, router, http.MethodPost, "/session/save/hello.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}
	if doc := decode[models.DocumentInfo](t, w); doc.Dirty {
		t.Errorf("saved doc still dirty: %+v", doc)
	}
	data, _ := os.ReadFile(filepath.Join(e.Dir, "hello.md"))
	if string(data) != "# Hello\nWorld" {
		t.Errorf("disk = %q", data)
	}

	w = do(t, router, http.MethodGet, "/session", nil)
	st := decode[editorservice.SessionState](t, w)
	if st.Active != "hello.md" || len(st.Documents) != 1 {
		t.Errorf("session = %+v", st)
	}
}

func TestEncodedDocumentPath(t *testing.T) {
	e, router := testEnv(t, "")
	if err := os.MkdirAll(filepath.Join(e.Dir, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, e.Dir, "notes/a.md", "a")
	do(t, router, http.MethodPost, "/session/documents", OpenDocumentRequest{Path: "notes/a.md"})

	w := do(t, router, http.MethodGet, "/session/documents/notes%2Fa.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get encoded = %d, body = %s", w.Code, w.Body.String())
	}
	if doc := decode[models.DocumentInfo](t, w); doc.Content != "a" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestDocumentNotOpen(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/session/documents/ghost.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("get unopened = %d, want 404", w.Code)
	}
	w := do(t, router, http.MethodPut, "/session/documents/ghost.md", UpdateContentRequest{Content: "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update unopened = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/session/active", OpenDocumentRequest{Path: "ghost.md"}); w.Code != http.StatusNotFound {
		t.Errorf("activate unopened = %d, want 404", w.Code)
	}
}

func TestCloseDirtyNeedsDiscard(t *testing.T) {
	e, router := testEnv(t, "")
	writeFile(t, e.Dir, "a.md", "a")
	do(t, router, http.MethodPost, "/session/documents", OpenDocumentRequest{Path: "a.md"})
	do(t, router, http.MethodPut, "/session/documents/a.md", UpdateContentRequest{Content: "b"})

	if w := do(t, router, http.MethodDelete, "/session/documents/a.md", nil); w.Code != http.StatusConflict {
		t.Errorf("close dirty = %d, want 409", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/session/documents/a.md?discard=true", nil); w.Code != http.StatusNoContent {
		t.Errorf("close with discard = %d, want 204", w.Code)
	}
}

func TestSaveAsEndpoint(t *testing.T) {
	e, router := testEnv(t, "")
	writeFile(t, e.Dir, "a.md", "a")
	do(t, router, http.MethodPost, "/session/documents", OpenDocumentRequest{Path: "a.md"})

	w := do(t, router, http.MethodPost, "/session/save-as", SaveAsRequest{Source: "a.md", Content: "copy"})
	if w.Code != http.StatusNoContent {
		t.Errorf("save-as without destination = %d, want 204", w.Code)
	}

	w = do(t, router, http.MethodPost, "/session/save-as", SaveAsRequest{Source: "a.md", Destination: "b.md", Content: "copy"})
	if w.Code != http.StatusOK {
		t.Fatalf("save-as = %d, body = %s", w.Code, w.Body.String())
	}
	if doc := decode[models.DocumentInfo](t, w); doc.Path != "b.md" || !doc.Active || doc.Dirty {
		t.Errorf("save-as doc = %+v", doc)
	}
}

func TestHistoryAndRestore(t *testing.T) {
	e, router := testEnv(t, "")
	writeFile(t, e.Dir, "a.md", "v0")
	do(t, router, http.MethodPost, "/session/documents", OpenDocumentRequest{Path: "a.md"})
	do(t, router, http.MethodPut, "/session/documents/a.md", UpdateContentRequest{Content: "v1"})
	do(t, router, http.MethodPost, "/session/save/a.md", nil)
	do(t, router, http.MethodPut, "/session/documents/a.md", UpdateContentRequest{Content: "v2 longer"})
	do(t, router, http.MethodPost, "/session/save/a.md", nil)

	w := do(t, router, http.MethodGet, "/history/a.md", nil)
	if !strings.Contains(w.Body.String(), `"size":9`) {
		t.Errorf("history body lacks snapshot size: %s", w.Body.String())
	}
	hist := decode[HistoryResponse](t, w)
	if len(hist.Snapshots) != 2 || hist.Snapshots[0].Content != "v2 longer" {
		t.Fatalf("history = %+v", hist)
	}
	if hist.Snapshots[0].Size != 9 || hist.Snapshots[1].Size != 2 {
		t.Errorf("sizes = %d, %d", hist.Snapshots[0].Size, hist.Snapshots[1].Size)
	}

	older := hist.Snapshots[1].ID
	if w := do(t, router, http.MethodPost, "/session/restore/a.md", RestoreRequest{SnapshotID: older}); w.Code != http.StatusConflict {
		t.Errorf("restore unconfirmed = %d, want 409", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/session/restore/a.md", RestoreRequest{SnapshotID: "nope", Confirm: true}); w.Code != http.StatusNotFound {
		t.Errorf("restore unknown = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodPost, "/session/restore/a.md", RestoreRequest{SnapshotID: older, Confirm: true})
	if w.Code != http.StatusOK {
		t.Fatalf("restore = %d, body = %s", w.Code, w.Body.String())
	}
	if doc := decode[models.DocumentInfo](t, w); doc.Content != "v1" || !doc.Dirty {
		t.Errorf("restored = %+v", doc)
	}

	if w := do(t, router, http.MethodDelete, "/history/a.md", nil); w.Code != http.StatusNoContent {
		t.Errorf("clear history = %d", w.Code)
	}
	hist = decode[HistoryResponse](t, do(t, router, http.MethodGet, "/history/a.md", nil))
	if len(hist.Snapshots) != 0 {
		t.Errorf("history after clear = %+v", hist.Snapshots)
	}
}

func TestPreviewAndExport(t *testing.T) {
	e, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/preview/export?format=svg", nil); w.Code != http.StatusConflict {
		t.Errorf("export before render = %d, want 409", w.Code)
	}

	writeFile(t, e.Dir, "flow.mmd", "graph TD\nA-->B")
	do(t, router, http.MethodPost, "/session/documents", OpenDocumentRequest{Path: "flow.mmd"})

	var preview PreviewResponse
	testutil.Eventually(t, 2*time.Second, func() bool {
		preview = decode[PreviewResponse](t, do(t, router, http.MethodGet, "/preview", nil))
		return preview.Artifact != nil
	})
	if preview.Artifact.Identity != "flow.mmd" || len(preview.Artifact.Graphics) != 1 {
		t.Errorf("artifact = %+v", preview.Artifact)
	}

	if w := do(t, router, http.MethodGet, "/preview/export?format=gif", nil); w.Code != http.StatusBadRequest {
		t.Errorf("export gif = %d, want 400", w.Code)
	}

	w := do(t, router, http.MethodGet, "/preview/export?format=svg", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export svg = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "diagram.svg") {
		t.Errorf("disposition = %q", w.Header().Get("Content-Disposition"))
	}

	w = do(t, router, http.MethodGet, "/preview/export?format=pdf", nil)
	if w.Code != http.StatusOK || !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Errorf("export pdf = %d", w.Code)
	}
	if o := w.Header().Get("X-Page-Orientation"); o != "landscape" {
		t.Errorf("orientation = %q", o)
	}
}

func TestDiagramThemeEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPut, "/preview/theme", ThemeRequest{Theme: "sepia"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown theme = %d, want 400", w.Code)
	}
	w := do(t, router, http.MethodPut, "/preview/theme", ThemeRequest{Theme: "dark"})
	if w.Code != http.StatusOK {
		t.Fatalf("set theme = %d", w.Code)
	}
	preview := decode[PreviewResponse](t, do(t, router, http.MethodGet, "/preview", nil))
	if preview.Theme != "dark" {
		t.Errorf("theme = %q", preview.Theme)
	}
}

func TestViewportEndpoints(t *testing.T) {
	_, router := testEnv(t, "")

	st := decode[viewport.State](t, do(t, router, http.MethodPost, "/viewport/zoom", ZoomRequest{Direction: "in"}))
	if st.Zoom != 1.2 {
		t.Errorf("zoom in = %v", st.Zoom)
	}
	if w := do(t, router, http.MethodPost, "/viewport/zoom", ZoomRequest{Direction: "sideways"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad direction = %d, want 400", w.Code)
	}

	st = decode[viewport.State](t, do(t, router, http.MethodPost, "/viewport/wheel", WheelRequest{DeltaY: 100}))
	if st.Zoom != 1.2 {
		t.Errorf("wheel without modifier changed zoom to %v", st.Zoom)
	}
	st = decode[viewport.State](t, do(t, router, http.MethodPost, "/viewport/wheel", WheelRequest{DeltaY: 100, Modifier: true}))
	if st.Zoom != 1.1 {
		t.Errorf("wheel out = %v", st.Zoom)
	}

	do(t, router, http.MethodPost, "/viewport/pointer", PointerRequest{Phase: "down", X: 10, Y: 10})
	st = decode[viewport.State](t, do(t, router, http.MethodPost, "/viewport/pointer", PointerRequest{Phase: "move", X: 40, Y: 30}))
	if st.Pan.X != 30 || st.Pan.Y != 20 || !st.Dragging {
		t.Errorf("drag state = %+v", st)
	}
	if w := do(t, router, http.MethodPost, "/viewport/pointer", PointerRequest{Phase: "hover"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad phase = %d, want 400", w.Code)
	}

	st = decode[viewport.State](t, do(t, router, http.MethodPost, "/viewport/reset", nil))
	if st.Zoom != 1 || st.Pan.X != 0 || st.Pan.Y != 0 || st.Dragging {
		t.Errorf("reset = %+v", st)
	}
	if st.Transform != "translate(0px, 0px) scale(1)" {
		t.Errorf("transform = %q", st.Transform)
	}
}

func TestSettingsMasked(t *testing.T) {
	_, router := testEnv(t, "")

	cur := decode[settings.Settings](t, do(t, router, http.MethodGet, "/settings", nil))
	cur.APIKey = "sk-secret-1234"
	w := do(t, router, http.MethodPut, "/settings", cur)
	if w.Code != http.StatusOK {
		t.Fatalf("update settings = %d, body = %s", w.Code, w.Body.String())
	}
	saved := decode[settings.Settings](t, w)
	if saved.APIKey == "sk-secret-1234" || !strings.HasSuffix(saved.APIKey, "1234") {
		t.Errorf("api key not masked: %q", saved.APIKey)
	}

	// Echoing the masked key back keeps the stored one.
	saved.FontSize = 16
	w = do(t, router, http.MethodPut, "/settings", saved)
	again := decode[settings.Settings](t, w)
	if again.APIKey != saved.APIKey || again.FontSize != 16 {
		t.Errorf("settings after echo = %+v", again)
	}

	saved.FontSize = 99
	if w := do(t, router, http.MethodPut, "/settings", saved); w.Code != http.StatusBadRequest {
		t.Errorf("invalid font size = %d, want 400", w.Code)
	}
}

func TestAutosaveEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/session/autosave", AutosaveRequest{Enabled: false, IntervalMS: 5000})
	if w.Code != http.StatusOK {
		t.Fatalf("autosave = %d, body = %s", w.Code, w.Body.String())
	}
	st := decode[editorservice.SessionState](t, w)
	if st.AutosaveEnabled || st.AutosaveInterval != 5000 {
		t.Errorf("session = %+v", st)
	}
	if w := do(t, router, http.MethodPut, "/session/autosave", AutosaveRequest{Enabled: true, IntervalMS: 10}); w.Code != http.StatusBadRequest {
		t.Errorf("short interval = %d, want 400", w.Code)
	}
}

func TestAppThemeEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPut, "/settings/theme", ThemeRequest{Theme: "dark"}); w.Code != http.StatusOK {
		t.Fatalf("set app theme = %d", w.Code)
	}
	got := decode[ThemeRequest](t, do(t, router, http.MethodGet, "/settings/theme", nil))
	if got.Theme != "dark" {
		t.Errorf("app theme = %q", got.Theme)
	}
	if w := do(t, router, http.MethodPut, "/settings/theme", ThemeRequest{Theme: "purple"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown app theme = %d, want 400", w.Code)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/session/documents", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid json = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed session = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	e := testutil.NewEditor(t)
	router := NewRouter(e.Service, true, "secret", e.Broker)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	e := testutil.NewEditor(t)
	router := NewRouter(e.Service, true, "tok", e.Broker)

	// The handler streams until the request context ends.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session?access_token=secret123", nil))
	if w.Code != http.StatusOK {
		t.Errorf("query token on GET = %d, want 200", w.Code)
	}

	// Mutating requests must use the header.
	body := strings.NewReader(`{"path":"a.md"}`)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/session/documents?access_token=secret123", body))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query token on POST = %d, want 401", w.Code)
	}
}
