// Package api implements the inkpad REST API using chi.
package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkpad/internal/editorservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *editorservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *editorservice.Service) *Handler {
	return &Handler{svc: svc}
}

// docPath extracts the document path from the wildcard URL segment.
// Supports encoded slashes (e.g. diagrams%2Fflow.mmd).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func requirePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := docPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return "", false
	}
	return p, true
}

// ListEntries handles GET /api/workspace/entries.
//
//	@Summary		List a workspace directory
//	@Tags			workspace
//	@Produce		json
//	@Param			dir	query		string	false	"Directory relative to the workspace root"
//	@Success		200	{object}	EntryListResponse
//	@Security		BearerAuth
//	@Router			/workspace/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.ListEntries(r.Context(), r.URL.Query().Get("dir"))
	if err != nil {
		writeError(w, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: entries})
}

// CreateFile handles POST /api/workspace/files.
//
//	@Summary		Create an empty document and open it
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateFileRequest	true	"File to create"
//	@Success		201		{object}	models.DocumentInfo
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/files [post]
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req CreateFileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	doc, err := h.svc.CreateFile(r.Context(), req.Dir, req.Name)
	if err != nil {
		writeError(w, "create file", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// GetSession handles GET /api/session.
//
//	@Summary		List open documents
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Session())
}

// OpenDocument handles POST /api/session/documents.
//
//	@Summary		Open a document or activate it when already open
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenDocumentRequest	true	"Document to open"
//	@Success		200		{object}	models.DocumentInfo
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/documents [post]
func (h *Handler) OpenDocument(w http.ResponseWriter, r *http.Request) {
	var req OpenDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.Open(r.Context(), req.Path)
	if err != nil {
		writeError(w, "open document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetDocument handles GET /api/session/documents/*.
//
//	@Summary		Get an open document with its content
//	@Tags			session
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	models.DocumentInfo
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.Document(r.Context(), path)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// UpdateDocument handles PUT /api/session/documents/*.
//
//	@Summary		Replace the active document's content
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string					true	"Document path"
//	@Param			body	body		UpdateContentRequest	true	"New content"
//	@Success		200		{object}	models.DocumentInfo
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/documents/{path} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	var req UpdateContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := h.svc.Update(r.Context(), path, req.Content)
	if err != nil {
		writeError(w, "update document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ActivateDocument handles POST /api/session/active.
//
//	@Summary		Switch the active document
//	@Tags			session
//	@Accept			json
//	@Param			body	body	OpenDocumentRequest	true	"Document to activate"
//	@Success		204		"Activated"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/active [post]
func (h *Handler) ActivateDocument(w http.ResponseWriter, r *http.Request) {
	var req OpenDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Activate(r.Context(), req.Path); err != nil {
		writeError(w, "activate document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CloseDocument handles DELETE /api/session/documents/*.
//
//	@Summary		Close a document
//	@Tags			session
//	@Param			path	path	string	true	"Document path"
//	@Param			discard	query	bool	false	"Discard unsaved changes"
//	@Success		204		"Closed"
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/documents/{path} [delete]
func (h *Handler) CloseDocument(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	discard, _ := strconv.ParseBool(r.URL.Query().Get("discard"))
	if err := h.svc.Close(r.Context(), path, discard); err != nil {
		writeError(w, "close document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveDocument handles POST /api/session/save/*.
//
//	@Summary		Save a document to disk
//	@Tags			session
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Param			silent	query		bool	false	"Suppress the failure notification"
//	@Success		200		{object}	models.DocumentInfo
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/save/{path} [post]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	silent, _ := strconv.ParseBool(r.URL.Query().Get("silent"))
	doc, err := h.svc.Save(r.Context(), path, silent)
	if err != nil {
		writeError(w, "save document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// SaveAs handles POST /api/session/save-as.
//
//	@Summary		Save content under a new path
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveAsRequest	true	"Source, destination and content"
//	@Success		200		{object}	models.DocumentInfo
//	@Success		204		"Cancelled (no destination)"
//	@Security		BearerAuth
//	@Router			/session/save-as [post]
func (h *Handler) SaveAs(w http.ResponseWriter, r *http.Request) {
	var req SaveAsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, saved, err := h.svc.SaveAs(r.Context(), req.Source, req.Destination, req.Content)
	if err != nil {
		writeError(w, "save as", err)
		return
	}
	if !saved {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// SetAutosave handles PUT /api/session/autosave.
//
//	@Summary		Configure autosave
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AutosaveRequest	true	"Autosave settings"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/autosave [put]
func (h *Handler) SetAutosave(w http.ResponseWriter, r *http.Request) {
	var req AutosaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.SetAutosave(r.Context(), req.Enabled, time.Duration(req.IntervalMS)*time.Millisecond)
	if err != nil {
		writeError(w, "set autosave", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListHistory handles GET /api/history/*.
//
//	@Summary		List saved versions, newest first
//	@Tags			history
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/history/{path} [get]
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Path: path, Snapshots: toSnapshotDTOs(h.svc.History(r.Context(), path))})
}

// ClearHistory handles DELETE /api/history/*.
//
//	@Summary		Discard all saved versions of a document
//	@Tags			history
//	@Param			path	path	string	true	"Document path"
//	@Success		204		"Cleared"
//	@Security		BearerAuth
//	@Router			/history/{path} [delete]
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	h.svc.ClearHistory(r.Context(), path)
	w.WriteHeader(http.StatusNoContent)
}

// RestoreVersion handles POST /api/session/restore/*.
//
//	@Summary		Replace the active document's content with a saved version
//	@Tags			history
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string			true	"Document path"
//	@Param			body	body		RestoreRequest	true	"Version to restore"
//	@Success		200		{object}	models.DocumentInfo
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/restore/{path} [post]
func (h *Handler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	var req RestoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := h.svc.Restore(r.Context(), path, req.SnapshotID, req.Confirm)
	if err != nil {
		writeError(w, "restore version", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
