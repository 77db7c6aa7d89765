package store

import (
	"fmt"

	"github.com/halvard/skald/internal/models"
)

// InsertWriteLog appends one agent write audit record.
func (db *DB) InsertWriteLog(e models.AgentWriteLogEntry) error {
	return retryOnContention(func() error {
		_, err := db.conn.Exec(`
			INSERT INTO agent_write_log (id, token_id, note_id, content_hash, content_length, operation_type, written_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.TokenID, e.NoteID, e.ContentHash, e.ContentLength, e.OperationType, fmtTime(e.WrittenAt))
		if err != nil {
			return fmt.Errorf("store: insert write log: %w", err)
		}
		return nil
	})
}

// WriteLogForNote returns the audit trail for one note, oldest first.
func (db *DB) WriteLogForNote(noteID string) ([]models.AgentWriteLogEntry, error) {
	rows, err := db.conn.Query(`
		SELECT id, token_id, note_id, content_hash, content_length, operation_type, written_at
		FROM agent_write_log WHERE note_id = ? ORDER BY written_at ASC`, noteID)
	if err != nil {
		return nil, fmt.Errorf("store: write log: %w", err)
	}
	defer rows.Close()

	var out []models.AgentWriteLogEntry
	for rows.Next() {
		var e models.AgentWriteLogEntry
		var written string
		if err := rows.Scan(&e.ID, &e.TokenID, &e.NoteID, &e.ContentHash, &e.ContentLength, &e.OperationType, &written); err != nil {
			return nil, err
		}
		e.WrittenAt = parseTime(written)
		out = append(out, e)
	}
	return out, rows.Err()
}
