// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Scriptorium tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/prompt"
	"github.com/starford/scriptorium/internal/transcriptservice"
)

const templateURI = "scriptorium://prompt-template"

// Server wraps the MCP server with Scriptorium tools. A stdio server has a
// single client, so it keeps a single prompt session.
type Server struct {
	mcp     *server.MCPServer
	svc     *transcriptservice.Service
	session *prompt.Session
}

// New creates a new MCP server with all Scriptorium tools registered.
func New(svc *transcriptservice.Service, version string) *Server {
	s := &Server{svc: svc, session: &prompt.Session{}}

	s.mcp = server.NewMCPServer(
		"Scriptorium",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_transcripts",
		mcp.WithDescription("List saved transcripts (id, filename, language, duration, style) in the order they were saved."),
	), s.listTranscripts)

	s.mcp.AddTool(mcp.NewTool("read_transcript",
		mcp.WithDescription("Read a saved transcript as plain text or as SRT subtitles."),
		mcp.WithString("id", mcp.Required(), mcp.Description("12-character transcript id")),
		mcp.WithString("format", mcp.Description("txt (default) or srt"), mcp.Enum("txt", "srt")),
	), s.readTranscript)

	s.mcp.AddTool(mcp.NewTool("search_transcripts",
		mcp.WithDescription("Full-text search through transcript text and filenames."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTranscripts)

	s.mcp.AddTool(mcp.NewTool("build_prompt",
		mcp.WithDescription("Combine saved transcripts into a prompt. Each transcript is inserted "+
			"with a header line at the "+prompt.Marker+" marker of the template."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated transcript ids, in the desired order")),
		mcp.WithString("template", mcp.Description("Template to use instead of the current one")),
	), s.buildPrompt)

	s.mcp.AddTool(mcp.NewTool("get_prompt_template",
		mcp.WithDescription("Returns the current prompt template."),
	), s.getPromptTemplate)

	s.mcp.AddTool(mcp.NewTool("set_prompt_template",
		mcp.WithDescription("Replace the prompt template for this session. Pass an empty string "+
			"with reset=true to restore the default."),
		mcp.WithString("template", mcp.Description("New template text")),
		mcp.WithBoolean("reset", mcp.Description("Restore the default template")),
	), s.setPromptTemplate)

	s.mcp.AddTool(mcp.NewTool("transcribe_media",
		mcp.WithDescription("Download an audio or video file (http/https URL or base64 data URI), "+
			"transcribe it and save it to the repository."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Media URL or data URI")),
		mcp.WithString("filename", mcp.Description("File name to record; derived from the URL when empty")),
		mcp.WithString("style", mcp.Description("Document style"), mcp.Enum("Minimal", "Presentation", "Bullet List")),
		mcp.WithBoolean("include_timestamps", mcp.Description("Prefix document paragraphs with time ranges (default true)")),
	), s.transcribeMedia)

	s.mcp.AddResource(
		mcp.NewResource(templateURI, "Prompt Template",
			mcp.WithResourceDescription("The template build_prompt fills with transcripts."),
			mcp.WithMIMEType("text/plain"),
		),
		s.readTemplateResource,
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

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("internal error: %v", err))
}

func (s *Server) listTranscripts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.List(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no saved transcripts"), nil
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind := models.ArtifactKind(req.GetString("format", string(models.ArtifactTXT)))
	if kind != models.ArtifactTXT && kind != models.ArtifactSRT {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported format: %s", kind)), nil
	}
	data, err := s.svc.Artifact(ctx, id, kind)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) searchTranscripts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) buildPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids := splitIDs(raw)
	if len(ids) == 0 {
		return mcp.NewToolResultError("select at least one saved transcript"), nil
	}

	var tmpl *string
	if t, err := req.RequireString("template"); err == nil {
		tmpl = &t
	}
	res, err := s.svc.BuildPrompt(ctx, s.session, ids, tmpl)
	if err != nil {
		return toolError(err), nil
	}
	if res.MarkerMissing {
		return mcp.NewToolResultText("warning: template has no " + prompt.Marker + " marker; returned unchanged\n\n" + res.Prompt), nil
	}
	return mcp.NewToolResultText(res.Prompt), nil
}

// splitIDs accepts ids separated by commas and/or whitespace.
func splitIDs(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
}

func (s *Server) getPromptTemplate(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.session.Template()), nil
}

func (s *Server) setPromptTemplate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("reset", false) {
		s.session.Reset()
		return mcp.NewToolResultText("template reset to default"), nil
	}
	t, err := req.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.session.SetTemplate(t)
	if !prompt.HasMarker(t) {
		return mcp.NewToolResultText("template saved; it has no " + prompt.Marker + " marker, so prompts will not include transcripts"), nil
	}
	return mcp.NewToolResultText("template saved"), nil
}

func (s *Server) readTemplateResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      templateURI,
			MIMEType: "text/plain",
			Text:     s.session.Template(),
		},
	}, nil
}
