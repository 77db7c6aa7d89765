package agentauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/halvard/skald/internal/apperr"
	"github.com/halvard/skald/internal/checksum"
	"github.com/halvard/skald/internal/models"
	"github.com/halvard/skald/internal/validate"
)

// WriteRequest is one agent write. ExpectedVersion is the note's
// last-known updated_at; mandatory for append mode, optional for
// replace.
type WriteRequest struct {
	NoteID          string
	Content         string
	Append          bool
	ExpectedVersion *time.Time
}

// WriteReceipt confirms a successful agent write.
type WriteReceipt struct {
	NoteID      string    `json:"note_id"`
	UpdatedAt   time.Time `json:"updated_at"`
	ContentHash string    `json:"content_hash"`
	Message     string    `json:"message"`
}

// EventFunc is notified after a successful agent write so the caller
// can fan the change out (SSE, cache invalidation).
type EventFunc func(noteID string)

// Guard gates agent reads and writes of note content: authentication,
// rate limiting, ownership, and (for writes) the optimistic
// concurrency check, in that order.
type Guard struct {
	svc     *Service
	logger  *slog.Logger
	onWrite EventFunc
}

// NewGuard creates a guard over the auth service. onWrite may be nil.
func NewGuard(svc *Service, onWrite EventFunc) *Guard {
	return &Guard{svc: svc, logger: svc.logger, onWrite: onWrite}
}

// ReadNote authenticates, rate-limits, and ownership-checks a read.
func (g *Guard) ReadNote(ctx context.Context, authHeader, noteID string) (*models.Note, error) {
	tok, err := g.svc.Authenticate(ctx, authHeader)
	if err != nil {
		return nil, err
	}
	if err := g.svc.CheckRateLimit(tok); err != nil {
		return nil, err
	}
	return g.ownedNote(noteID, tok)
}

// WriteNote performs a guarded write. Content passes the agent-side
// size/XSS validator before anything else touches the note. On
// success a best-effort audit entry is recorded; audit failures are
// logged and never fail the write.
func (g *Guard) WriteNote(ctx context.Context, authHeader string, req WriteRequest) (*WriteReceipt, error) {
	tok, err := g.svc.Authenticate(ctx, authHeader)
	if err != nil {
		return nil, err
	}
	if err := g.svc.CheckRateLimit(tok); err != nil {
		return nil, err
	}
	if err := validate.AgentContent(req.Content); err != nil {
		return nil, err
	}

	note, err := g.ownedNote(req.NoteID, tok)
	if err != nil {
		return nil, err
	}

	if req.Append && req.ExpectedVersion == nil {
		// Append without a version check risks silently duplicating
		// content under concurrent writers.
		return nil, apperr.New(apperr.CodeMissingExpectedVersion,
			"expected_version is required for append writes")
	}

	var expected time.Time
	if req.ExpectedVersion != nil {
		expected = *req.ExpectedVersion
		if !expected.Equal(note.UpdatedAt) {
			return nil, g.versionConflict(note.UpdatedAt)
		}
	}

	final := req.Content
	op := models.OpReplace
	if req.Append {
		final = note.Content + "\n\n" + req.Content
		op = models.OpAppend
	}

	stamp, err := g.svc.db.UpdateNoteContent(note.ID, note.Title, final, expected, g.svc.now())
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			// Lost the race between our read and the update.
			if current, readErr := g.svc.db.GetNote(note.ID); readErr == nil {
				return nil, g.versionConflict(current.UpdatedAt)
			}
			return nil, g.versionConflict(note.UpdatedAt)
		}
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.New(apperr.CodeNoteNotFound, "note not found")
		}
		return nil, apperr.Wrap(apperr.CodeServiceUnavailable, "write failed", err)
	}

	hash := checksum.Sum([]byte(final))
	g.auditWrite(models.AgentWriteLogEntry{
		ID:            uuid.NewString(),
		TokenID:       tok.ID,
		NoteID:        note.ID,
		ContentHash:   hash,
		ContentLength: len(final),
		OperationType: op,
		WrittenAt:     stamp,
	})
	if g.onWrite != nil {
		g.onWrite(note.ID)
	}

	return &WriteReceipt{
		NoteID:      note.ID,
		UpdatedAt:   stamp,
		ContentHash: hash,
		Message:     "note " + op + " successful",
	}, nil
}

func (g *Guard) ownedNote(noteID string, tok *models.AgentToken) (*models.Note, error) {
	note, err := g.svc.db.GetNote(noteID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.New(apperr.CodeNoteNotFound, "note not found")
		}
		return nil, apperr.Wrap(apperr.CodeServiceUnavailable, "note lookup failed", err)
	}
	if note.UserID != tok.UserID {
		return nil, apperr.New(apperr.CodeUnauthorizedNote, "note does not belong to this token's user")
	}
	return note, nil
}

func (g *Guard) versionConflict(current time.Time) *apperr.Error {
	e := apperr.New(apperr.CodeVersionConflict, "note was modified by another writer")
	e.CurrentVersion = current
	return e
}

func (g *Guard) auditWrite(e models.AgentWriteLogEntry) {
	if err := g.svc.db.InsertWriteLog(e); err != nil {
		g.logger.Warn("agent write audit log failed",
			slog.String("note_id", e.NoteID),
			slog.String("error", err.Error()))
	}
}
