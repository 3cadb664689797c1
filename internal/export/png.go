package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// normalize flattens a captured PNG onto bg at exactly ceil(w) x ceil(h)
// pixels. Captures of fractional layout sizes come back a pixel off and are
// resampled.
func normalize(data []byte, w, h float64, bg string) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("export: decode capture: %w", err)
	}
	pw, ph := int(math.Ceil(w)), int(math.Ceil(h))
	if pw <= 0 || ph <= 0 {
		return nil, fmt.Errorf("export: svg has no size")
	}

	dst := image.NewRGBA(image.Rect(0, 0, pw, ph))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(parseHex(bg)), image.Point{}, draw.Src)
	if src.Bounds().Dx() == pw && src.Bounds().Dy() == ph {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("export: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// parseHex reads #rrggbb; anything else is white.
func parseHex(s string) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	v, err := strconv.ParseUint(s, 16, 32)
	if len(s) != 6 || err != nil {
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
