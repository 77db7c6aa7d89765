package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/halvard/skald/internal/apperr"
	"github.com/halvard/skald/internal/models"
)

// InsertNote stores a new note row.
func (db *DB) InsertNote(n models.Note) error {
	return retryOnContention(func() error {
		_, err := db.conn.Exec(`
			INSERT INTO notes (id, user_id, title, content, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			n.ID, n.UserID, n.Title, n.Content, fmtTime(n.CreatedAt), fmtTime(n.UpdatedAt))
		if err != nil {
			return fmt.Errorf("store: insert note: %w", err)
		}
		return nil
	})
}

// GetNote returns one note by id, or apperr.ErrNotFound.
func (db *DB) GetNote(id string) (*models.Note, error) {
	var n models.Note
	var created, updated string
	err := db.conn.QueryRow(`
		SELECT id, user_id, title, content, created_at, updated_at
		FROM notes WHERE id = ?`, id).
		Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	n.CreatedAt = parseTime(created)
	n.UpdatedAt = parseTime(updated)
	return &n, nil
}

// ListNotes returns a page of one user's notes, newest first, plus the
// total count.
func (db *DB) ListNotes(userID string, limit, offset int) ([]models.Note, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM notes WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count notes: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, user_id, title, content, created_at, updated_at
		FROM notes WHERE user_id = ?
		ORDER BY updated_at DESC LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		var created, updated string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &created, &updated); err != nil {
			return nil, 0, err
		}
		n.CreatedAt = parseTime(created)
		n.UpdatedAt = parseTime(updated)
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// UpdateNoteContent replaces a note's content with optimistic
// concurrency. When expectedVersion is non-zero the update succeeds
// only if the stored updated_at still matches it exactly; otherwise
// apperr.ErrConflict. The new version stamp is returned so callers can
// hand it back to clients.
func (db *DB) UpdateNoteContent(id, title, content string, expectedVersion time.Time, now time.Time) (time.Time, error) {
	newStamp := now.UTC()
	err := retryOnContention(func() error {
		var res sql.Result
		var err error
		if expectedVersion.IsZero() {
			res, err = db.conn.Exec(`
				UPDATE notes SET title = ?, content = ?, updated_at = ?
				WHERE id = ?`,
				title, content, fmtTime(newStamp), id)
		} else {
			res, err = db.conn.Exec(`
				UPDATE notes SET title = ?, content = ?, updated_at = ?
				WHERE id = ? AND updated_at = ?`,
				title, content, fmtTime(newStamp), id, fmtTime(expectedVersion))
		}
		if err != nil {
			return fmt.Errorf("store: update note: %w", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			// Distinguish a missing note from a lost race.
			var one int
			scanErr := db.conn.QueryRow(`SELECT 1 FROM notes WHERE id = ?`, id).Scan(&one)
			if errors.Is(scanErr, sql.ErrNoRows) {
				return apperr.ErrNotFound
			}
			return apperr.ErrConflict
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return newStamp, nil
}

// DeleteNote removes a note. Missing notes return apperr.ErrNotFound.
func (db *DB) DeleteNote(id, userID string) error {
	return retryOnContention(func() error {
		res, err := db.conn.Exec(`DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("store: delete note: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}
