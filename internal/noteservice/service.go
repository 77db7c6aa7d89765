// Package noteservice implements interactive note CRUD on top of the
// SQLite store, with optimistic concurrency and change events.
package noteservice

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/halvard/skald/internal/apperr"
	"github.com/halvard/skald/internal/checksum"
	"github.com/halvard/skald/internal/models"
	"github.com/halvard/skald/internal/store"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Checksum  string    `json:"checksum"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Publisher receives note change notifications.
type Publisher interface {
	PublishNoteUpdated(noteID, source string)
}

// Service coordinates note persistence and change notifications.
type Service struct {
	db     *store.DB
	events Publisher
	now    func() time.Time
}

// NewService creates a new note service. events may be nil.
func NewService(db *store.DB, events Publisher) *Service {
	return &Service{db: db, events: events, now: func() time.Time { return time.Now().UTC() }}
}

// Version renders an updated_at timestamp as an opaque version tag for
// If-Match headers. Versions compare equal iff the timestamps do.
func Version(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseVersion is the inverse of Version.
func ParseVersion(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func detail(n *models.Note) *NoteDetail {
	return &NoteDetail{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Checksum:  checksum.Sum([]byte(n.Content)),
		Version:   Version(n.UpdatedAt),
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// GetNote returns a note owned by userID.
func (s *Service) GetNote(_ context.Context, userID, id string) (*NoteDetail, error) {
	n, err := s.ownedNote(userID, id)
	if err != nil {
		return nil, err
	}
	return detail(n), nil
}

// CreateNote persists a new note for userID.
func (s *Service) CreateNote(_ context.Context, userID, title, content string) (*NoteDetail, error) {
	now := s.now()
	n := models.Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.InsertNote(n); err != nil {
		return nil, err
	}
	s.notify(n.ID)
	return detail(&n), nil
}

// UpdateNote writes updated content with optimistic concurrency. A
// non-empty ifMatch must equal the note's current version tag.
func (s *Service) UpdateNote(_ context.Context, userID, id, title, content, ifMatch string) (*NoteDetail, error) {
	n, err := s.ownedNote(userID, id)
	if err != nil {
		return nil, err
	}

	var expected time.Time
	if ifMatch != "" {
		expected, err = ParseVersion(ifMatch)
		if err != nil {
			return nil, apperr.ErrConflict
		}
	}
	if title == "" {
		title = n.Title
	}

	updatedAt, err := s.db.UpdateNoteContent(id, title, content, expected, s.now())
	if err != nil {
		return nil, err
	}

	n.Title = title
	n.Content = content
	n.UpdatedAt = updatedAt
	s.notify(id)
	return detail(n), nil
}

// DeleteNote removes a note owned by userID.
func (s *Service) DeleteNote(_ context.Context, userID, id string) error {
	if _, err := s.ownedNote(userID, id); err != nil {
		return err
	}
	if err := s.db.DeleteNote(id, userID); err != nil {
		return err
	}
	s.notify(id)
	return nil
}

// ListNotes returns paginated notes owned by userID, newest first.
func (s *Service) ListNotes(_ context.Context, userID string, limit, offset int) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, n := range rows {
		items[i] = NoteListItem{
			ID:        n.ID,
			Title:     n.Title,
			Checksum:  checksum.Sum([]byte(n.Content)),
			UpdatedAt: n.UpdatedAt,
		}
	}
	return items, total, nil
}

// ownedNote fetches a note and hides other users' notes behind not-found.
func (s *Service) ownedNote(userID, id string) (*models.Note, error) {
	n, err := s.db.GetNote(id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	return n, nil
}

func (s *Service) notify(noteID string) {
	if s.events != nil {
		s.events.PublishNoteUpdated(noteID, "user")
	}
}
