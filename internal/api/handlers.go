package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/skald/internal/edit"
	"github.com/halvard/skald/internal/mdlint"
	"github.com/halvard/skald/internal/noteservice"
	"github.com/halvard/skald/internal/sse"
)

const maxBodyBytes = 10 << 20

// Handler holds the interactive-surface route handlers. userID is the
// account all interactive requests act as.
type Handler struct {
	notes  *noteservice.Service
	editor *edit.Orchestrator
	broker *sse.Broker
	userID string
}

// NewHandler creates a new Handler. broker may be nil.
func NewHandler(notes *noteservice.Service, editor *edit.Orchestrator, broker *sse.Broker, userID string) *Handler {
	return &Handler{notes: notes, editor: editor, broker: broker, userID: userID}
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.notes.ListNotes(r.Context(), h.userID, limit, offset)
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if items == nil {
		items = []NoteListItem{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.notes.GetNote(r.Context(), h.userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", note.Version)
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Title == "" {
		badRequest(w, "title is required")
		return
	}
	note, err := h.notes.CreateNote(r.Context(), h.userID, req.Title, req.Content)
	if err != nil {
		slog.Error("create note failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}. The If-Match header carries
// the version tag for optimistic concurrency; absent means last write
// wins.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	id := chi.URLParam(r, "id")
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	note, err := h.notes.UpdateNote(r.Context(), h.userID, id, req.Title, req.Content, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", note.Version)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.notes.DeleteNote(r.Context(), h.userID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunEdits handles POST /api/edits. The response is always the full
// pipeline result; partial failures are reported inside it rather than
// as an HTTP error, so clients see exactly which steps applied.
func (h *Handler) RunEdits(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	res := h.editor.Run(r.Context(), req.Content, req.Options)
	if h.broker != nil {
		h.broker.PublishEditCompleted(res.Success, len(res.AppliedEdits), len(res.FailedEdits))
	}
	writeJSON(w, http.StatusOK, res)
}

// Lint handles POST /api/lint.
func (h *Handler) Lint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req LintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	resp := LintResponse{Findings: mdlint.Check(req.Content)}
	if resp.Findings == nil {
		resp.Findings = []mdlint.Finding{}
	}
	if req.Fix {
		resp.FixedContent, resp.Fixed = mdlint.Fix(req.Content)
	}
	writeJSON(w, http.StatusOK, resp)
}
