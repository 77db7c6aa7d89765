// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Skald's notes and AI edit pipeline for LLM integration
// via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/halvard/skald/internal/edit"
	"github.com/halvard/skald/internal/mdlint"
	"github.com/halvard/skald/internal/models"
	"github.com/halvard/skald/internal/noteservice"
)

// Server wraps the MCP server with Skald tools. All tools act as the
// single configured user.
type Server struct {
	mcp    *server.MCPServer
	notes  *noteservice.Service
	editor *edit.Orchestrator
	userID string
}

// New creates a new MCP server with all Skald tools registered.
func New(notes *noteservice.Service, editor *edit.Orchestrator, userID string) *Server {
	s := &Server{notes: notes, editor: editor, userID: userID}

	s.mcp = server.NewMCPServer(
		"Skald",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the user's notes, newest first."),
		mcp.WithString("limit", mcp.Description("Optional page size (default 50)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note's title, content, and version tag."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace a note's content. Pass the version tag from read_note "+
			"to fail instead of overwriting concurrent changes."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown content")),
		mcp.WithString("version", mcp.Description("Optional version tag for optimistic concurrency")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("apply_edits",
		mcp.WithDescription("Run AI edits over a note and save the result. "+
			"Read the skald://edit-options resource for the available edit kinds."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("edits", mcp.Required(),
			mcp.Description("Comma-separated edit kinds, e.g. format_markdown,fix_grammar,add_headings,improve_structure")),
		mcp.WithString("length", mcp.Description("Optional length adjustment: concise or expand")),
	), s.applyEdits)

	s.mcp.AddTool(mcp.NewTool("lint_note",
		mcp.WithDescription("Check a note's Markdown structure: heading level skips and unclosed code fences."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("fix", mcp.Description("Pass \"true\" to auto-close unclosed fences and save")),
	), s.lintNote)

	// Resource: the edit-options reference.
	s.mcp.AddResource(
		mcp.NewResource("skald://edit-options", "Edit Options Reference",
			mcp.WithResourceDescription("The edit kinds the AI pipeline can apply and their run order."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEditOptionsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 0
	if raw, err := req.RequireString("limit"); err == nil {
		fmt.Sscanf(raw, "%d", &limit)
	}
	items, total, err := s.notes.ListNotes(ctx, s.userID, limit, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"notes": items, "total": total}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.notes.GetNote(ctx, s.userID, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.notes.CreateNote(ctx, s.userID, title, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.ID)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	version := ""
	if v, vErr := req.RequireString("version"); vErr == nil {
		version = v
	}
	note, err := s.notes.UpdateNote(ctx, s.userID, id, "", content, version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (version %s)", note.ID, note.Version)), nil
}

// parseEdits maps a comma-separated kind list plus an optional length
// selector onto the pipeline's option set.
func parseEdits(edits, length string) (models.EditOptions, error) {
	var opts models.EditOptions
	for _, raw := range strings.Split(edits, ",") {
		switch models.EditKind(strings.TrimSpace(raw)) {
		case models.EditFormatMarkdown:
			opts.FormatMarkdown = true
		case models.EditFixGrammar:
			opts.FixGrammar = true
		case models.EditAddHeadings:
			opts.AddHeadings = true
		case models.EditImproveStructure:
			opts.ImproveStructure = true
		case "":
		default:
			return opts, fmt.Errorf("unknown edit kind: %s", strings.TrimSpace(raw))
		}
	}
	switch models.LengthAdjustment(length) {
	case models.LengthConcise:
		opts.LengthAdjustment = models.LengthConcise
	case models.LengthExpand:
		opts.LengthAdjustment = models.LengthExpand
	case models.LengthKeep, "":
	default:
		return opts, fmt.Errorf("unknown length adjustment: %s", length)
	}
	return opts, nil
}

func (s *Server) applyEdits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edits, err := req.RequireString("edits")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	length := ""
	if l, lErr := req.RequireString("length"); lErr == nil {
		length = l
	}
	opts, err := parseEdits(edits, length)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.notes.GetNote(ctx, s.userID, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}

	res := s.editor.Run(ctx, note.Content, opts)
	if res.Success {
		// Save under the version we read so a concurrent change
		// surfaces as a conflict instead of being overwritten.
		if _, err := s.notes.UpdateNote(ctx, s.userID, id, "", res.Content, note.Version); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("edits ran but saving failed: %v", err)), nil
		}
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) lintNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fix := false
	if f, fErr := req.RequireString("fix"); fErr == nil {
		fix = f == "true"
	}

	note, err := s.notes.GetNote(ctx, s.userID, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}

	findings := mdlint.Check(note.Content)
	if findings == nil {
		findings = []mdlint.Finding{}
	}
	fixed := false
	if fix {
		var fixedContent string
		if fixedContent, fixed = mdlint.Fix(note.Content); fixed {
			if _, err := s.notes.UpdateNote(ctx, s.userID, id, "", fixedContent, note.Version); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("fix computed but saving failed: %v", err)), nil
			}
		}
	}
	out, _ := json.MarshalIndent(map[string]any{"findings": findings, "fixed": fixed}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readEditOptionsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "skald://edit-options",
			MIMEType: "text/markdown",
			Text:     EditOptionsReference,
		},
	}, nil
}
