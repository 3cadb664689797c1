package export

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var maxWidthRe = regexp.MustCompile(`max-width:\s*([0-9.]+)px`)

// svgSize returns the displayed size of an svg document in CSS pixels. Absolute
// width and height attributes win; otherwise the viewBox gives the aspect
// ratio and one absolute width, height or style max-width fixes the scale.
func svgSize(svg string) (float64, float64, error) {
	root, err := svgRoot(svg)
	if err != nil {
		return 0, 0, err
	}
	attr := func(name string) string {
		for _, a := range root.Attr {
			if a.Name.Local == name {
				return a.Value
			}
		}
		return ""
	}

	w, wok := cssLength(attr("width"))
	h, hok := cssLength(attr("height"))
	if wok && hok {
		return w, h, nil
	}
	vw, vh, ok := viewBox(attr("viewBox"))
	if !ok {
		if wok || hok {
			return 0, 0, fmt.Errorf("export: svg has only one absolute dimension and no viewBox")
		}
		return 0, 0, fmt.Errorf("export: svg has no size")
	}
	switch {
	case wok:
		return w, w * vh / vw, nil
	case hok:
		return h * vw / vh, h, nil
	}
	if m := maxWidthRe.FindStringSubmatch(attr("style")); m != nil {
		if mw, err := strconv.ParseFloat(m[1], 64); err == nil && mw > 0 {
			return mw, mw * vh / vw, nil
		}
	}
	return vw, vh, nil
}

func svgRoot(svg string) (xml.StartElement, error) {
	dec := xml.NewDecoder(strings.NewReader(svg))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return xml.StartElement{}, fmt.Errorf("export: no svg element")
		}
		if err != nil {
			return xml.StartElement{}, fmt.Errorf("export: parse svg: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != "svg" {
				return xml.StartElement{}, fmt.Errorf("export: root element is %q, not svg", se.Name.Local)
			}
			return se, nil
		}
	}
}

// cssLength accepts unitless or px lengths; relative units do not fix a size.
func cssLength(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func viewBox(s string) (float64, float64, bool) {
	f := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	if len(f) != 4 {
		return 0, 0, false
	}
	w, err1 := strconv.ParseFloat(f[2], 64)
	h, err2 := strconv.ParseFloat(f[3], 64)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
