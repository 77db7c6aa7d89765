package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/skald/internal/agentauth"
	"github.com/halvard/skald/internal/models"
	"github.com/halvard/skald/internal/noteservice"
)

// AgentHandler serves the machine-facing note surface. Requests carry
// agent tokens; all auth, rate-limit, and ownership decisions live in
// the guard.
type AgentHandler struct {
	guard *agentauth.Guard
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(guard *agentauth.Guard) *AgentHandler {
	return &AgentHandler{guard: guard}
}

// ReadNote handles GET /api/agent/notes/{id}.
func (h *AgentHandler) ReadNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.guard.ReadNote(r.Context(), r.Header.Get("Authorization"), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AgentNoteResponse{
		ID:        note.ID,
		Title:     note.Title,
		Content:   note.Content,
		Version:   noteservice.Version(note.UpdatedAt),
		UpdatedAt: note.UpdatedAt,
	})
}

// WriteNote handles POST /api/agent/notes/{id}. Append mode requires
// expected_version; replace mode accepts it optionally.
func (h *AgentHandler) WriteNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	id := chi.URLParam(r, "id")
	var req AgentWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	wr := agentauth.WriteRequest{NoteID: id, Content: req.Content}
	switch req.Operation {
	case models.OpAppend:
		wr.Append = true
	case models.OpReplace, "":
	default:
		badRequest(w, "operation must be replace or append")
		return
	}
	if req.ExpectedVersion != "" {
		v, err := noteservice.ParseVersion(req.ExpectedVersion)
		if err != nil {
			badRequest(w, "expected_version is not a valid version tag")
			return
		}
		wr.ExpectedVersion = &v
	}

	receipt, err := h.guard.WriteNote(r.Context(), r.Header.Get("Authorization"), wr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
