// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes inkpad editing tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/inkpad/internal/editorservice"
	"github.com/starford/inkpad/internal/export"
)

const formatURI = "inkpad://document-format"

// Server wraps the MCP server with inkpad tools.
type Server struct {
	mcp *server.MCPServer
	svc *editorservice.Service
}

// New creates a new MCP server with all inkpad tools registered.
func New(svc *editorservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Inkpad",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List the files and folders of a workspace directory."),
		mcp.WithString("dir", mcp.Description("Directory relative to the workspace root (empty for the root)")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("open_document",
		mcp.WithDescription("Open a workspace document in the editor and make it active. "+
			"Opening an already open document only activates it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. diagrams/flow.mmd)")),
	), s.openDocument)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the editor buffer of an open document, including unsaved changes."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of an open document")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("update_document",
		mcp.WithDescription("Replace the content of the active document. The preview re-renders after a short pause. "+
			"Read the format guide via the "+formatURI+" resource first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the active document")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New document text")),
	), s.updateDocument)

	s.mcp.AddTool(mcp.NewTool("save_document",
		mcp.WithDescription("Write an open document to disk and record a version in its history."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of an open document")),
	), s.saveDocument)

	s.mcp.AddTool(mcp.NewTool("list_history",
		mcp.WithDescription("List saved versions of a document, newest first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
	), s.listHistory)

	s.mcp.AddTool(mcp.NewTool("render_preview",
		mcp.WithDescription("Render a document now and return the preview HTML, diagram SVGs and render errors."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path (open or on disk)")),
	), s.renderPreview)

	s.mcp.AddTool(mcp.NewTool("export_preview",
		mcp.WithDescription("Export the diagram currently shown in the preview."),
		mcp.WithString("format", mcp.Required(), mcp.Description("svg, png or pdf"), mcp.Enum("svg", "png", "pdf")),
	), s.exportPreview)

	s.mcp.AddTool(mcp.NewTool("save_export",
		mcp.WithDescription("Export the diagram currently shown in the preview into the workspace exports folder."),
		mcp.WithString("format", mcp.Required(), mcp.Description("svg, png or pdf"), mcp.Enum("svg", "png", "pdf")),
		mcp.WithString("filename", mcp.Description("Optional file name; the extension is set from the format")),
	), s.saveExport)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Document Format",
			mcp.WithResourceDescription("How inkpad picks between diagram and rich-text previews."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.ListEntries(ctx, req.GetString("dir", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDirectory {
			lines = append(lines, e.Path+"/")
			continue
		}
		lines = append(lines, e.Path)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) openDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Open(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("opened: %s", doc.Path)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Document(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not open: %s", path)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) updateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Update(ctx, path, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", path)), nil
}

func (s *Server) saveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Save(ctx, path, true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s (%s)", doc.Path, doc.Checksum)), nil
}

type historyItem struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Size      int    `json:"size"`
}

func (s *Server) listHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snaps := s.svc.History(ctx, path)
	if len(snaps) == 0 {
		return mcp.NewToolResultText("no saved versions"), nil
	}
	items := make([]historyItem, 0, len(snaps))
	for _, sn := range snaps {
		items = append(items, historyItem{ID: sn.ID, Timestamp: sn.Timestamp.Format("2006-01-02T15:04:05Z07:00"), Size: sn.Size()})
	}
	return jsonResult(items), nil
}

func (s *Server) renderPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	art, err := s.svc.RenderDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(art), nil
}

func (s *Server) exportPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Export(ctx, format)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return exportResult(res), nil
}

func exportResult(res *export.Result) *mcp.CallToolResult {
	encoded := base64.StdEncoding.EncodeToString(res.Data)
	switch res.MIME {
	case "image/svg+xml":
		return mcp.NewToolResultText(string(res.Data))
	case "image/png":
		return mcp.NewToolResultImage(res.Filename, encoded, res.MIME)
	default:
		return mcp.NewToolResultResource(res.Filename, mcp.BlobResourceContents{
			URI:      "inkpad://export/" + res.Filename,
			MIMEType: res.MIME,
			Blob:     encoded,
		})
	}
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     documentFormatGuide(),
		},
	}, nil
}
