package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/skald/internal/agentauth"
)

// TokenHandler manages the agent-token lifecycle for the interactive
// user.
type TokenHandler struct {
	svc    *agentauth.Service
	userID string
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(svc *agentauth.Service, userID string) *TokenHandler {
	return &TokenHandler{svc: svc, userID: userID}
}

// Create handles POST /api/tokens. The plaintext token appears in this
// response only; it cannot be recovered later.
func (h *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}
	plaintext, tok, err := h.svc.CreateToken(h.userID, req.Name)
	if err != nil {
		slog.Error("create token failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	resp := tokenResponse(*tok)
	resp.Token = plaintext
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /api/tokens.
func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	toks, err := h.svc.ListTokens(h.userID)
	if err != nil {
		slog.Error("list tokens failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	out := make([]TokenResponse, len(toks))
	for i, t := range toks {
		out[i] = tokenResponse(t)
	}
	writeJSON(w, http.StatusOK, TokenListResponse{Tokens: out})
}

// Revoke handles DELETE /api/tokens/{id}.
func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.RevokeToken(h.userID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
