// Package viewport tracks the zoom and pan transform applied to the preview.
package viewport

import (
	"fmt"
	"math"
	"sync"
)

const (
	MinZoom     = 0.1
	MaxZoom     = 5.0
	DefaultZoom = 1.0

	// ButtonStep is the zoom change of the zoom-in/zoom-out controls.
	ButtonStep = 0.2
	// WheelStep is the zoom change per modifier-qualified wheel notch.
	WheelStep = 0.1

	// PrimaryButton is the only pointer button that starts a drag.
	PrimaryButton = 0
)

// Direction selects a zoom control.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Point is a 2D coordinate in display pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is a snapshot of the viewport.
type State struct {
	Zoom      float64 `json:"zoom"`
	Pan       Point   `json:"pan"`
	Dragging  bool    `json:"dragging"`
	Transform string  `json:"transform"`
}

// Controller owns the viewport transform. It is safe for concurrent use.
type Controller struct {
	mu        sync.Mutex
	zoom      float64
	pan       Point
	dragging  bool
	dragStart Point
}

func New() *Controller {
	return &Controller{zoom: DefaultZoom}
}

// Zoom applies one step of the zoom controls.
func (c *Controller) Zoom(d Direction) State {
	switch d {
	case DirectionIn:
		return c.adjust(ButtonStep)
	case DirectionOut:
		return c.adjust(-ButtonStep)
	}
	return c.State()
}

func (c *Controller) ZoomIn() State  { return c.Zoom(DirectionIn) }
func (c *Controller) ZoomOut() State { return c.Zoom(DirectionOut) }

// Wheel handles a scroll notch. Without the modifier the gesture scrolls
// the page and the viewport is unchanged; scrolling down zooms out.
func (c *Controller) Wheel(deltaY float64, modifier bool) State {
	if !modifier || deltaY == 0 {
		return c.State()
	}
	if deltaY > 0 {
		return c.adjust(-WheelStep)
	}
	return c.adjust(WheelStep)
}

func (c *Controller) adjust(step float64) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = clamp(round2(c.zoom + step))
	return c.stateLocked()
}

// PointerDown starts a drag when the primary button is pressed.
func (c *Controller) PointerDown(button int, x, y float64) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if button == PrimaryButton {
		c.dragging = true
		c.dragStart = Point{X: x - c.pan.X, Y: y - c.pan.Y}
	}
	return c.stateLocked()
}

// PointerMove pans relative to the drag start while a drag is held.
func (c *Controller) PointerMove(x, y float64) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dragging {
		c.pan = Point{X: x - c.dragStart.X, Y: y - c.dragStart.Y}
	}
	return c.stateLocked()
}

// PointerUp ends the drag.
func (c *Controller) PointerUp() State {
	return c.endDrag()
}

// PointerLeave ends the drag when the pointer leaves the tracked region.
func (c *Controller) PointerLeave() State {
	return c.endDrag()
}

func (c *Controller) endDrag() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = false
	return c.stateLocked()
}

// Reset restores zoom 1 and pan (0,0).
func (c *Controller) Reset() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = DefaultZoom
	c.pan = Point{}
	c.dragging = false
	return c.stateLocked()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		Zoom:      c.zoom,
		Pan:       c.pan,
		Dragging:  c.dragging,
		Transform: Transform(c.zoom, c.pan),
	}
}

// Transform renders the CSS transform for zoom z and pan p.
func Transform(z float64, p Point) string {
	return fmt.Sprintf("translate(%gpx, %gpx) scale(%g)", p.X, p.Y, z)
}

func clamp(z float64) float64 {
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

// round2 rounds to hundredths so repeated steps do not drift.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
