package editorservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/export"
	"github.com/starford/inkpad/internal/render"
	"github.com/starford/inkpad/internal/sse"
	"github.com/starford/inkpad/internal/viewport"
)

// Preview returns the artifact for the active document, or nil when the
// last render belongs to another document or nothing has rendered yet.
func (s *Service) Preview() *render.Artifact {
	art := s.pipeline.Artifact()
	if art == nil || !s.isCurrent(art) {
		return nil
	}
	return art
}

// PreviewBusy reports whether a render is running.
func (s *Service) PreviewBusy() bool {
	return s.pipeline.Busy()
}

// DiagramTheme returns the active diagram theme.
func (s *Service) DiagramTheme() render.Theme {
	return s.pipeline.Theme()
}

// SetDiagramTheme switches the diagram theme and re-renders.
func (s *Service) SetDiagramTheme(_ context.Context, name string) (render.Theme, error) {
	t, err := render.ParseTheme(name)
	if err != nil {
		return "", err
	}
	s.pipeline.SetTheme(t)
	return t, nil
}

// Export serialises the current preview graphic.
func (s *Service) Export(ctx context.Context, format string) (*export.Result, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	res, err := s.exporter.Export(ctx, s.Preview(), f)
	if err != nil {
		s.notifyError(err)
		return nil, err
	}
	return res, nil
}

// WriteExport writes an export result into the workspace at dest.
func (s *Service) WriteExport(_ context.Context, res *export.Result, dest string) error {
	if err := s.files.WriteText(dest, string(res.Data)); err != nil {
		s.notifyError(err)
		return err
	}
	s.pub.PublishEntryEvent("created", dest)
	return nil
}

// RenderDocument renders an open document, or a workspace file when it is
// not open, synchronously and without publishing.
func (s *Service) RenderDocument(ctx context.Context, path string) (*render.Artifact, error) {
	content, err := s.contentOf(path)
	if err != nil {
		return nil, err
	}
	return s.pipeline.RenderNow(ctx, path, content)
}

// ExportDocument renders path and serialises it in one step.
func (s *Service) ExportDocument(ctx context.Context, path, format string) (*export.Result, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	art, err := s.RenderDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, art, f)
}

func (s *Service) contentOf(path string) (string, error) {
	if d, err := s.session.Get(path); err == nil {
		return d.Content, nil
	}
	content, err := s.files.ReadText(path)
	if err != nil {
		return "", apperr.Wrap("render", path, apperr.ErrIO, err)
	}
	return content, nil
}

// Viewport returns the current transform.
func (s *Service) Viewport() viewport.State {
	return s.viewport.State()
}

// Zoom applies one zoom-control step.
func (s *Service) Zoom(dir string) (viewport.State, error) {
	d := viewport.Direction(dir)
	if d != viewport.DirectionIn && d != viewport.DirectionOut {
		return viewport.State{}, apperr.Wrap("zoom", dir, apperr.ErrInvalidInput, fmt.Errorf("editorservice: direction must be in or out"))
	}
	return s.publishViewport(s.viewport.Zoom(d)), nil
}

// Wheel applies a scroll notch.
func (s *Service) Wheel(deltaY float64, modifier bool) viewport.State {
	return s.publishViewport(s.viewport.Wheel(deltaY, modifier))
}

// Pointer phases.
const (
	PointerDown  = "down"
	PointerMove  = "move"
	PointerUp    = "up"
	PointerLeave = "leave"
)

// Pointer applies a pointer gesture.
func (s *Service) Pointer(phase string, button int, x, y float64) (viewport.State, error) {
	var st viewport.State
	switch phase {
	case PointerDown:
		st = s.viewport.PointerDown(button, x, y)
	case PointerMove:
		st = s.viewport.PointerMove(x, y)
	case PointerUp:
		st = s.viewport.PointerUp()
	case PointerLeave:
		st = s.viewport.PointerLeave()
	default:
		return viewport.State{}, apperr.Wrap("pointer", phase, apperr.ErrInvalidInput, fmt.Errorf("editorservice: unknown pointer phase %q", phase))
	}
	return s.publishViewport(st), nil
}

// ResetViewport restores the identity transform.
func (s *Service) ResetViewport() viewport.State {
	return s.publishViewport(s.viewport.Reset())
}

func (s *Service) publishViewport(st viewport.State) viewport.State {
	s.pub.Publish(sse.Event{Type: sse.TypeViewportChanged, Data: st})
	return st
}

func (s *Service) isCurrent(art *render.Artifact) bool {
	active, ok := s.session.Active()
	if !ok {
		return art.Identity == ""
	}
	return active.Path == art.Identity
}

// onRendered publishes a finished render unless the document it was made
// for is no longer active.
func (s *Service) onRendered(art *render.Artifact) {
	if !s.isCurrent(art) {
		s.logger.Debug("stale render dropped", slog.String("identity", art.Identity), slog.String("render_id", art.RenderID))
		return
	}
	s.pub.Publish(sse.Event{Type: sse.TypePreviewRendered, Data: art})
}
