package render

import (
	"fmt"
	"time"

	"github.com/starford/inkpad/internal/apperr"
)

// Theme is a diagram colour theme.
type Theme string

const (
	ThemeDefault Theme = "default"
	ThemeForest  Theme = "forest"
	ThemeDark    Theme = "dark"
	ThemeNeutral Theme = "neutral"
	ThemeBase    Theme = "base"
)

// Themes lists every accepted diagram theme.
var Themes = []Theme{ThemeDefault, ThemeForest, ThemeDark, ThemeNeutral, ThemeBase}

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	for _, t := range Themes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", apperr.Wrap("theme", s, apperr.ErrInvalidFormat, fmt.Errorf("render: unknown theme %q", s))
}

// Background returns the canvas colour raster exports use under this theme.
func (t Theme) Background() string {
	if t == ThemeDark {
		return "#1e1e1e"
	}
	return "#ffffff"
}

// Graphic is one rendered diagram.
type Graphic struct {
	ID  string `json:"id"`
	SVG string `json:"svg"`
}

// Artifact is the output of one render. It is replaced wholesale on every
// render and never mutated after publication.
type Artifact struct {
	RenderID   string    `json:"render_id"`
	Identity   string    `json:"identity"`
	Mode       Mode      `json:"mode"`
	Theme      Theme     `json:"theme"`
	HTML       string    `json:"html"`
	Graphics   []Graphic `json:"graphics,omitempty"`
	Errors     []string  `json:"errors,omitempty"`
	Empty      bool      `json:"empty"`
	RenderedAt time.Time `json:"rendered_at"`
}

// Graphic returns the first rendered diagram, if any.
func (a *Artifact) Graphic() (Graphic, bool) {
	if a == nil || len(a.Graphics) == 0 {
		return Graphic{}, false
	}
	return a.Graphics[0], true
}
