package api

import (
	"fmt"
	"net/http"

	"github.com/starford/inkpad/internal/settings"
)

// GetPreview handles GET /api/preview.
//
//	@Summary		Current preview of the active document
//	@Description	The artifact is null while nothing has rendered for the active document.
//	@Tags			preview
//	@Produce		json
//	@Success		200	{object}	PreviewResponse
//	@Security		BearerAuth
//	@Router			/preview [get]
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PreviewResponse{
		Busy:     h.svc.PreviewBusy(),
		Theme:    h.svc.DiagramTheme(),
		Artifact: h.svc.Preview(),
	})
}

// SetDiagramTheme handles PUT /api/preview/theme.
//
//	@Summary		Switch the diagram theme
//	@Tags			preview
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ThemeRequest	true	"Theme"
//	@Success		200		{object}	ThemeRequest
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preview/theme [put]
func (h *Handler) SetDiagramTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.SetDiagramTheme(r.Context(), req.Theme)
	if err != nil {
		writeError(w, "set diagram theme", err)
		return
	}
	writeJSON(w, http.StatusOK, ThemeRequest{Theme: string(t)})
}

// ExportPreview handles GET /api/preview/export.
//
//	@Summary		Download the current diagram
//	@Tags			preview
//	@Produce		image/svg+xml
//	@Produce		image/png
//	@Produce		application/pdf
//	@Param			format	query	string	true	"Export format"	Enums(svg, png, pdf)
//	@Success		200		{file}	binary
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preview/export [get]
func (h *Handler) ExportPreview(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Export(r.Context(), r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, "export preview", err)
		return
	}
	w.Header().Set("Content-Type", res.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	if res.Orientation != "" {
		w.Header().Set("X-Page-Orientation", res.Orientation)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

// GetViewport handles GET /api/viewport.
//
//	@Summary		Current zoom and pan
//	@Tags			viewport
//	@Produce		json
//	@Success		200	{object}	viewport.State
//	@Security		BearerAuth
//	@Router			/viewport [get]
func (h *Handler) GetViewport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Viewport())
}

// Zoom handles POST /api/viewport/zoom.
//
//	@Summary		Zoom in or out by one step
//	@Tags			viewport
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ZoomRequest	true	"Direction"
//	@Success		200		{object}	viewport.State
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/viewport/zoom [post]
func (h *Handler) Zoom(w http.ResponseWriter, r *http.Request) {
	var req ZoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.Zoom(req.Direction)
	if err != nil {
		writeError(w, "zoom", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Wheel handles POST /api/viewport/wheel.
//
//	@Summary		Apply a scroll gesture
//	@Tags			viewport
//	@Accept			json
//	@Produce		json
//	@Param			body	body		WheelRequest	true	"Scroll delta"
//	@Success		200		{object}	viewport.State
//	@Security		BearerAuth
//	@Router			/viewport/wheel [post]
func (h *Handler) Wheel(w http.ResponseWriter, r *http.Request) {
	var req WheelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Wheel(req.DeltaY, req.Modifier))
}

// Pointer handles POST /api/viewport/pointer.
//
//	@Summary		Apply a pointer gesture
//	@Tags			viewport
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PointerRequest	true	"Pointer event"
//	@Success		200		{object}	viewport.State
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/viewport/pointer [post]
func (h *Handler) Pointer(w http.ResponseWriter, r *http.Request) {
	var req PointerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.Pointer(req.Phase, req.Button, req.X, req.Y)
	if err != nil {
		writeError(w, "pointer", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ResetViewport handles POST /api/viewport/reset.
//
//	@Summary		Reset zoom and pan
//	@Tags			viewport
//	@Produce		json
//	@Success		200	{object}	viewport.State
//	@Security		BearerAuth
//	@Router			/viewport/reset [post]
func (h *Handler) ResetViewport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ResetViewport())
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Editor settings with the API key masked
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	settings.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// UpdateSettings handles PUT /api/settings.
//
//	@Summary		Validate and persist editor settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		settings.Settings	true	"Settings"
//	@Success		200		{object}	settings.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settings.Settings
	if !decodeJSON(w, r, &req) {
		return
	}
	saved, err := h.svc.UpdateSettings(r.Context(), req)
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// GetAppTheme handles GET /api/settings/theme.
//
//	@Summary		Light or dark application theme
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	ThemeRequest
//	@Security		BearerAuth
//	@Router			/settings/theme [get]
func (h *Handler) GetAppTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ThemeRequest{Theme: h.svc.AppTheme()})
}

// SetAppTheme handles PUT /api/settings/theme.
//
//	@Summary		Persist the application theme
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ThemeRequest	true	"Theme"
//	@Success		200		{object}	ThemeRequest
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/theme [put]
func (h *Handler) SetAppTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.SetAppTheme(r.Context(), req.Theme); err != nil {
		writeError(w, "set app theme", err)
		return
	}
	writeJSON(w, http.StatusOK, ThemeRequest{Theme: h.svc.AppTheme()})
}
