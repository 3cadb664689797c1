package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/inkpad/internal/export"
)

// ExportDir is the workspace folder exports are written to.
const ExportDir = "exports"

var (
	formatExt = map[export.Format]string{
		export.Vector:   ".svg",
		export.Raster:   ".png",
		export.Document: ".pdf",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

type saveResult struct {
	SavedPath     string `json:"savedPath"`
	Orientation   string `json:"orientation,omitempty"`
	MarkdownImage string `json:"markdownImage,omitempty"`
}

func (s *Server) saveExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := export.ParseFormat(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ext := formatExt[f]
	dest := path.Join(ExportDir, exportFilename(req.GetString("filename", ""), ext))

	if s.exists(ctx, dest) {
		return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s", dest)), nil
	}

	res, err := s.svc.Export(ctx, f.String())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := validateMagicBytes(res.Data, ext); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.WriteExport(ctx, res, dest); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save export: %v", err)), nil
	}

	out := saveResult{SavedPath: dest, Orientation: res.Orientation}
	if f != export.Document {
		out.MarkdownImage = fmt.Sprintf("![%s](%s)", path.Base(dest), dest)
	}
	data, _ := json.Marshal(out)
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) exists(ctx context.Context, p string) bool {
	entries, err := s.svc.ListEntries(ctx, path.Dir(p))
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Path == p {
			return true
		}
	}
	return false
}

// exportFilename sanitises name and forces ext, falling back to a UUID.
func exportFilename(name, ext string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "_" {
		name = uuid.Must(uuid.NewV7()).String()
	}
	return name + ext
}

// validateMagicBytes verifies exported content matches the target extension.
func validateMagicBytes(data []byte, ext string) error {
	switch ext {
	case ".svg":
		prefix := data
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !bytes.Contains(prefix, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag)")
		}
	case ".png":
		if detected := http.DetectContentType(data); detected != "image/png" {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	case ".pdf":
		if detected := http.DetectContentType(data); detected != "application/pdf" {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	}
	return nil
}
