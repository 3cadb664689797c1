package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkpad/internal/editorservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *editorservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Workspace.
	r.Get("/workspace/entries", h.ListEntries)
	r.Post("/workspace/files", h.CreateFile)

	// Session.
	r.Get("/session", h.GetSession)
	r.Post("/session/documents", h.OpenDocument)
	r.Get("/session/documents/*", h.GetDocument)
	r.Put("/session/documents/*", h.UpdateDocument)
	r.Delete("/session/documents/*", h.CloseDocument)
	r.Post("/session/active", h.ActivateDocument)
	r.Post("/session/save/*", h.SaveDocument)
	r.Post("/session/save-as", h.SaveAs)
	r.Put("/session/autosave", h.SetAutosave)
	r.Post("/session/restore/*", h.RestoreVersion)

	// History.
	r.Get("/history/*", h.ListHistory)
	r.Delete("/history/*", h.ClearHistory)

	// Preview and export.
	r.Get("/preview", h.GetPreview)
	r.Put("/preview/theme", h.SetDiagramTheme)
	r.Get("/preview/export", h.ExportPreview)

	// Viewport.
	r.Get("/viewport", h.GetViewport)
	r.Post("/viewport/zoom", h.Zoom)
	r.Post("/viewport/wheel", h.Wheel)
	r.Post("/viewport/pointer", h.Pointer)
	r.Post("/viewport/reset", h.ResetViewport)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	r.Get("/settings/theme", h.GetAppTheme)
	r.Put("/settings/theme", h.SetAppTheme)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
