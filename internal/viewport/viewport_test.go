package viewport

import "testing"

func TestZoomButtons(t *testing.T) {
	c := New()
	if s := c.ZoomIn(); s.Zoom != 1.2 {
		t.Errorf("zoom in = %v", s.Zoom)
	}
	c.ZoomOut()
	if s := c.ZoomOut(); s.Zoom != 0.8 {
		t.Errorf("zoom out = %v", s.Zoom)
	}
}

func TestZoomClamped(t *testing.T) {
	c := New()
	for i := 0; i < 50; i++ {
		c.ZoomIn()
	}
	if z := c.State().Zoom; z != MaxZoom {
		t.Errorf("upper clamp = %v", z)
	}
	for i := 0; i < 100; i++ {
		c.Wheel(120, true)
	}
	if z := c.State().Zoom; z != MinZoom {
		t.Errorf("lower clamp = %v", z)
	}
}

func TestWheel(t *testing.T) {
	c := New()
	if s := c.Wheel(-100, false); s.Zoom != 1 {
		t.Errorf("wheel without modifier changed zoom: %v", s.Zoom)
	}
	if s := c.Wheel(-100, true); s.Zoom != 1.1 {
		t.Errorf("wheel up = %v", s.Zoom)
	}
	if s := c.Wheel(100, true); s.Zoom != 1 {
		t.Errorf("wheel down = %v", s.Zoom)
	}
}

func TestPan(t *testing.T) {
	c := New()
	c.PointerDown(0, 10, 10)
	c.PointerMove(30, 50)
	s := c.PointerUp()
	if s.Pan != (Point{X: 20, Y: 40}) || s.Dragging {
		t.Fatalf("state after drag = %+v", s)
	}

	// Moves without a held drag do nothing.
	if s := c.PointerMove(500, 500); s.Pan != (Point{X: 20, Y: 40}) {
		t.Errorf("pan changed without drag: %+v", s.Pan)
	}

	// A second drag accumulates from the current offset.
	c.PointerDown(0, 100, 100)
	c.PointerMove(110, 90)
	s = c.PointerLeave()
	if s.Pan != (Point{X: 30, Y: 30}) || s.Dragging {
		t.Errorf("second drag = %+v", s)
	}
}

func TestSecondaryButtonIgnored(t *testing.T) {
	c := New()
	c.PointerDown(2, 0, 0)
	if s := c.PointerMove(40, 40); s.Dragging || s.Pan != (Point{}) {
		t.Errorf("non-primary button started drag: %+v", s)
	}
}

func TestReset(t *testing.T) {
	c := New()
	c.ZoomIn()
	c.PointerDown(0, 0, 0)
	c.PointerMove(5, 5)
	s := c.Reset()
	if s.Zoom != 1 || s.Pan != (Point{}) || s.Dragging {
		t.Errorf("reset state = %+v", s)
	}
	if s.Transform != "translate(0px, 0px) scale(1)" {
		t.Errorf("transform = %q", s.Transform)
	}
}

func TestTransform(t *testing.T) {
	if got := Transform(1.5, Point{X: -12.5, Y: 4}); got != "translate(-12.5px, 4px) scale(1.5)" {
		t.Errorf("Transform = %q", got)
	}
}
