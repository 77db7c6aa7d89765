package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/halvard/skald/internal/edit"
	"github.com/halvard/skald/internal/genai"
	"github.com/halvard/skald/internal/models"
	"github.com/halvard/skald/internal/noteservice"
	"github.com/halvard/skald/internal/prompts"
	"github.com/halvard/skald/internal/store"
	"github.com/halvard/skald/internal/testutil"
)

const testUserID = "mcp-user"

type fixedGen struct {
	out string
}

func (g *fixedGen) Generate(_ context.Context, _ genai.Request) (string, error) {
	return g.out, nil
}

func testServer(t *testing.T) (*Server, *store.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	notes := noteservice.NewService(db, nil)
	editor := edit.NewOrchestrator(&fixedGen{out: "Polished note content."}, prompts.NewLibrary())
	return New(notes, editor, testUserID), db
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handler
	// functions are invoked directly.
	var result *mcp.CallToolResult
	var err error
	switch name {
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "update_note":
		result, err = srv.updateNote(ctx, req)
	case "apply_edits":
		result, err = srv.applyEdits(ctx, req)
	case "lint_note":
		result, err = srv.lintNote(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]any{
		"title":   "Test",
		"content": "hello from the agent",
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "created: ") {
		t.Fatalf("create result = %q", text)
	}
	id := strings.TrimPrefix(text, "created: ")

	r = callTool(t, srv, "read_note", map[string]any{"id": id})
	text = resultText(r)
	if !strings.Contains(text, "hello from the agent") || !strings.Contains(text, `"version"`) {
		t.Errorf("read result = %q", text)
	}
}

func TestReadMissingNote(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Fatalf("expected error result, got %q", resultText(r))
	}
}

func TestListNotes(t *testing.T) {
	srv, db := testServer(t)
	testutil.SeedNote(t, db, testUserID, "One", "alpha body text")
	testutil.SeedNote(t, db, testUserID, "Two", "beta body text")

	r := callTool(t, srv, "list_notes", map[string]any{})
	text := resultText(r)
	if !strings.Contains(text, `"total": 2`) {
		t.Errorf("list result = %q", text)
	}
}

func TestUpdateNoteVersionGuard(t *testing.T) {
	srv, db := testServer(t)
	n := testutil.SeedNote(t, db, testUserID, "Draft", "original body text")

	r := callTool(t, srv, "update_note", map[string]any{
		"id":      n.ID,
		"content": "revised body text",
		"version": noteservice.Version(n.UpdatedAt),
	})
	if r.IsError {
		t.Fatalf("update failed: %q", resultText(r))
	}

	// The old version tag is now stale.
	r = callTool(t, srv, "update_note", map[string]any{
		"id":      n.ID,
		"content": "conflicting body text",
		"version": noteservice.Version(n.UpdatedAt),
	})
	if !r.IsError {
		t.Fatal("expected stale-version update to fail")
	}
}

func TestApplyEditsSavesResult(t *testing.T) {
	srv, db := testServer(t)
	n := testutil.SeedNote(t, db, testUserID, "Draft", "this text has sum typos in it")

	r := callTool(t, srv, "apply_edits", map[string]any{
		"id":    n.ID,
		"edits": "fix_grammar",
	})
	text := resultText(r)
	if r.IsError {
		t.Fatalf("apply_edits failed: %q", text)
	}
	if !strings.Contains(text, `"success": true`) {
		t.Fatalf("result = %q", text)
	}

	stored, err := db.GetNote(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Content != "Polished note content." {
		t.Errorf("content = %q, want pipeline output saved", stored.Content)
	}
}

func TestApplyEditsRejectsUnknownKind(t *testing.T) {
	srv, db := testServer(t)
	n := testutil.SeedNote(t, db, testUserID, "Draft", "some reasonable body text")

	r := callTool(t, srv, "apply_edits", map[string]any{
		"id":    n.ID,
		"edits": "make_it_pop",
	})
	if !r.IsError {
		t.Fatalf("expected error, got %q", resultText(r))
	}
}

func TestLintNoteWithFix(t *testing.T) {
	srv, db := testServer(t)
	n := testutil.SeedNote(t, db, testUserID, "Snippets", "# Title\n\n```go\nfunc main() {}\n")

	r := callTool(t, srv, "lint_note", map[string]any{"id": n.ID, "fix": "true"})
	text := resultText(r)
	if r.IsError {
		t.Fatalf("lint failed: %q", text)
	}
	if !strings.Contains(text, `"fixed": true`) {
		t.Fatalf("result = %q", text)
	}

	stored, _ := db.GetNote(n.ID)
	if !strings.HasSuffix(strings.TrimRight(stored.Content, "\n"), "```") {
		t.Errorf("fence not closed: %q", stored.Content)
	}
}

func TestParseEdits(t *testing.T) {
	opts, err := parseEdits("format_markdown, fix_grammar", "concise")
	if err != nil {
		t.Fatal(err)
	}
	want := models.EditOptions{FormatMarkdown: true, FixGrammar: true, LengthAdjustment: models.LengthConcise}
	if opts != want {
		t.Errorf("opts = %+v, want %+v", opts, want)
	}

	if _, err := parseEdits("fix_grammar", "shorter"); err == nil {
		t.Error("expected error for unknown length adjustment")
	}
}
