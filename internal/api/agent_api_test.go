package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/halvard/skald/internal/models"
	"github.com/halvard/skald/internal/noteservice"
	"github.com/halvard/skald/internal/testutil"
)

// mintAgentToken creates a token for userID and returns its plaintext.
func mintAgentToken(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	plaintext, _, err := env.tokens.CreateToken(userID, "test agent")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	return plaintext
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestAgentReadNote(t *testing.T) {
	env := newTestEnv(t, "")
	note := testutil.SeedNote(t, env.db, testUserID, "Journal", "first entry text")
	token := mintAgentToken(t, env, testUserID)

	w := env.do(t, http.MethodGet, "/agent/notes/"+note.ID, nil, bearer(token))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp AgentNoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Content != "first entry text" || resp.Version == "" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestAgentReadRequiresAuth(t *testing.T) {
	env := newTestEnv(t, "")
	note := testutil.SeedNote(t, env.db, testUserID, "Journal", "first entry text")

	w := env.do(t, http.MethodGet, "/agent/notes/"+note.ID, nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if code := errCode(t, w); code != "MISSING_AUTH_HEADER" {
		t.Errorf("code = %q", code)
	}

	w = env.do(t, http.MethodGet, "/agent/notes/"+note.ID, nil, bearer("agt_"+strings.Repeat("0", 64)))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", w.Code)
	}
	if code := errCode(t, w); code != "INVALID_TOKEN" {
		t.Errorf("code = %q", code)
	}
}

func TestAgentReplaceWrite(t *testing.T) {
	env := newTestEnv(t, "")
	note := testutil.SeedNote(t, env.db, testUserID, "Journal", "old entry text")
	token := mintAgentToken(t, env, testUserID)

	w := env.do(t, http.MethodPost, "/agent/notes/"+note.ID, AgentWriteRequest{
		Content:   "replacement entry text",
		Operation: models.OpReplace,
	}, bearer(token))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	stored, err := env.db.GetNote(note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Content != "replacement entry text" {
		t.Errorf("content = %q", stored.Content)
	}
}

func TestAgentAppendRequiresExpectedVersion(t *testing.T) {
	env := newTestEnv(t, "")
	note := testutil.SeedNote(t, env.db, testUserID, "Journal", "first entry text")
	token := mintAgentToken(t, env, testUserID)

	w := env.do(t, http.MethodPost, "/agent/notes/"+note.ID, AgentWriteRequest{
		Content:   "second entry text",
		Operation: models.OpAppend,
	}, bearer(token))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "MISSING_EXPECTED_VERSION" {
		t.Errorf("code = %q", code)
	}

	// With the version it succeeds and joins with a blank line.
	w = env.do(t, http.MethodPost, "/agent/notes/"+note.ID, AgentWriteRequest{
		Content:         "second entry text",
		Operation:       models.OpAppend,
		ExpectedVersion: noteservice.Version(note.UpdatedAt),
	}, bearer(token))
	if w.Code != http.StatusOK {
		t.Fatalf("append status = %d, body = %s", w.Code, w.Body.String())
	}

	stored, _ := env.db.GetNote(note.ID)
	if stored.Content != "first entry text\n\nsecond entry text" {
		t.Errorf("content = %q", stored.Content)
	}
}

func TestAgentStaleVersionConflict(t *testing.T) {
	env := newTestEnv(t, "")
	note := testutil.SeedNote(t, env.db, testUserID, "Journal", "first entry text")
	token := mintAgentToken(t, env, testUserID)

	stale := note.UpdatedAt.Add(-time.Second)
	w := env.do(t, http.MethodPost, "/agent/notes/"+note.ID, AgentWriteRequest{
		Content:         "conflicting entry text",
		Operation:       models.OpAppend,
		ExpectedVersion: noteservice.Version(stale),
	}, bearer(token))
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Code != "VERSION_CONFLICT" || resp.Error.CurrentVersion == "" {
		t.Fatalf("error = %+v, want VERSION_CONFLICT with current_version", resp.Error)
	}
}

func TestAgentWriteRejectsDangerousContent(t *testing.T) {
	env := newTestEnv(t, "")
	note := testutil.SeedNote(t, env.db, testUserID, "Journal", "first entry text")
	token := mintAgentToken(t, env, testUserID)

	w := env.do(t, http.MethodPost, "/agent/notes/"+note.ID, AgentWriteRequest{
		Content:   `<script>alert("x")</script>`,
		Operation: models.OpReplace,
	}, bearer(token))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "DANGEROUS_CONTENT" {
		t.Errorf("code = %q", code)
	}
}

func TestAgentCannotTouchForeignNote(t *testing.T) {
	env := newTestEnv(t, "")
	note := testutil.SeedNote(t, env.db, "someone-else", "Theirs", "private entry text")
	token := mintAgentToken(t, env, testUserID)

	w := env.do(t, http.MethodGet, "/agent/notes/"+note.ID, nil, bearer(token))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "UNAUTHORIZED_NOTE" {
		t.Errorf("code = %q", code)
	}
}
