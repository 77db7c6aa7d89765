package api

import (
	"time"

	"github.com/halvard/skald/internal/mdlint"
	"github.com/halvard/skald/internal/models"
	"github.com/halvard/skald/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateNoteRequest is the request body for updating a note. Title is
// optional; the current title is kept when it is empty.
type UpdateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
	Total int            `json:"total"`
}

// EditRequest is the request body for running the edit pipeline.
type EditRequest struct {
	Content string             `json:"content"`
	Options models.EditOptions `json:"options"`
}

// LintRequest is the request body for markdown structure checks.
type LintRequest struct {
	Content string `json:"content"`
	Fix     bool   `json:"fix"`
}

// LintResponse reports structural findings and, when requested, the
// auto-fixed content.
type LintResponse struct {
	Findings     []mdlint.Finding `json:"findings"`
	FixedContent string           `json:"fixed_content,omitempty"`
	Fixed        bool             `json:"fixed"`
}

// CreateTokenRequest is the request body for minting an agent token.
type CreateTokenRequest struct {
	Name string `json:"name"`
}

// TokenResponse describes one agent token. The plaintext Token is set
// only in the create response and never stored.
type TokenResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	TokenPrefix string     `json:"token_prefix"`
	Token       string     `json:"token,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

func tokenResponse(t models.AgentToken) TokenResponse {
	return TokenResponse{
		ID:          t.ID,
		Name:        t.Name,
		TokenPrefix: t.TokenPrefix,
		CreatedAt:   t.CreatedAt,
		ExpiresAt:   t.ExpiresAt,
		RevokedAt:   t.RevokedAt,
		LastUsedAt:  t.LastUsedAt,
	}
}

// TokenListResponse wraps the token listing.
type TokenListResponse struct {
	Tokens []TokenResponse `json:"tokens"`
}

// AgentWriteRequest is the request body for an agent note write.
type AgentWriteRequest struct {
	Content         string `json:"content"`
	Operation       string `json:"operation"`
	ExpectedVersion string `json:"expected_version,omitempty"`
}

// AgentNoteResponse is the agent-facing note representation.
type AgentNoteResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
