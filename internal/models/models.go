// Package models defines the domain types for Skald.
package models

import "time"

// Note is a stored note. UpdatedAt doubles as the optimistic-concurrency
// version stamp for agent writes.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AgentToken is a long-lived machine credential. Only the salted hash
// of the secret is persisted; the plaintext is shown once at mint time.
// A token is usable iff RevokedAt is nil, now is before ExpiresAt, and
// FailedAttempts is below the auto-revoke threshold.
type AgentToken struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	TokenHash        string     `json:"-"`
	TokenSalt        string     `json:"-"`
	TokenPrefix      string     `json:"token_prefix"`
	Name             string     `json:"name"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
	RequestsCount    int        `json:"requests_count"`
	RateLimitResetAt time.Time  `json:"rate_limit_reset_at"`
	FailedAttempts   int        `json:"failed_attempts"`
	LastFailedAt     *time.Time `json:"last_failed_at,omitempty"`
}

// Agent write operation kinds.
const (
	OpReplace = "replace"
	OpAppend  = "append"
)

// AgentWriteLogEntry is an append-only audit record of one agent write.
// Writing it is best-effort: a log failure never fails the parent request.
type AgentWriteLogEntry struct {
	ID            string    `json:"id"`
	TokenID       string    `json:"token_id"`
	NoteID        string    `json:"note_id"`
	ContentHash   string    `json:"content_hash"`
	ContentLength int       `json:"content_length"`
	OperationType string    `json:"operation_type"` // OpReplace or OpAppend
	WrittenAt     time.Time `json:"written_at"`
}
