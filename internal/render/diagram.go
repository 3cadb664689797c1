package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/starford/inkpad/internal/apperr"
)

// DiagramRenderer turns diagram source into SVG markup. id must be unique per
// call; it scopes element ids inside the produced SVG.
type DiagramRenderer interface {
	Render(ctx context.Context, id, source string, theme Theme) (string, error)
}

// RenderError reports a diagram that failed to render.
type RenderError struct {
	RenderID string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.RenderID, e.Err)
}

func (e *RenderError) Unwrap() []error {
	return []error{apperr.ErrRender, e.Err}
}

// DefaultCommand is the mermaid-cli executable name.
const DefaultCommand = "mmdc"

// CommandRenderer renders diagrams by running mermaid-cli in a scratch directory.
type CommandRenderer struct {
	Command string
	Args    []string
}

// NewCommandRenderer returns a renderer for the given executable. An empty
// command falls back to DefaultCommand.
func NewCommandRenderer(command string, extraArgs ...string) *CommandRenderer {
	if command == "" {
		command = DefaultCommand
	}
	return &CommandRenderer{Command: command, Args: extraArgs}
}

func (c *CommandRenderer) Render(ctx context.Context, id, source string, theme Theme) (string, error) {
	dir, err := os.MkdirTemp("", "inkpad-render-*")
	if err != nil {
		return "", &RenderError{RenderID: id, Err: err}
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.mmd")
	out := filepath.Join(dir, "output.svg")
	if err := os.WriteFile(in, []byte(source), 0o600); err != nil {
		return "", &RenderError{RenderID: id, Err: err}
	}

	args := append([]string{"-i", in, "-o", out, "-t", string(theme), "-b", "transparent"}, c.Args...)
	cmd := exec.CommandContext(ctx, c.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", &RenderError{RenderID: id, Err: err}
	}

	svg, err := os.ReadFile(out)
	if err != nil {
		return "", &RenderError{RenderID: id, Err: err}
	}
	if len(bytes.TrimSpace(svg)) == 0 {
		return "", &RenderError{RenderID: id, Err: errors.New("renderer produced no output")}
	}
	return string(svg), nil
}
