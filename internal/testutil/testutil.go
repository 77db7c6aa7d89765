// Package testutil provides shared test helpers for setting up
// databases and fixture rows.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/halvard/skald/internal/models"
	"github.com/halvard/skald/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "skald-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedNote inserts a note for userID and returns it.
func SeedNote(t *testing.T, db *store.DB, userID, title, content string) models.Note {
	t.Helper()
	now := time.Now().UTC()
	n := models.Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.InsertNote(n); err != nil {
		t.Fatalf("seed note: %v", err)
	}
	stored, err := db.GetNote(n.ID)
	if err != nil {
		t.Fatalf("read back note: %v", err)
	}
	return *stored
}
