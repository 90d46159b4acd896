package mapper

import (
	"strings"

	"github.com/mj1618/rum-replay/internal/model"
)

const (
	fontSansSerif = "roboto, sans-serif"
	fontSerif     = "serif"
	fontMonospace = "monospace"

	defaultTextColor = "#000000ff"
)

// globalBounds converts element pixel bounds to density-independent units.
func globalBounds(el model.Element, sys model.SystemInformation) (x, y, w, h int64) {
	return sys.Normalize(el.Bounds[0]), sys.Normalize(el.Bounds[1]),
		sys.Normalize(el.Bounds[2]), sys.Normalize(el.Bounds[3])
}

// normalizeColor turns #RRGGBB and #RRGGBBAA into lower-case #RRGGBBAA.
// Anything else is returned unchanged.
func normalizeColor(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if len(c) == 7 && c[0] == '#' {
		return c + "ff"
	}
	return c
}

// shapeStyleAndBorder resolves the background decoration of an element.
func shapeStyleAndBorder(el model.Element, sys model.SystemInformation) (*model.ShapeStyle, *model.Border) {
	var style *model.ShapeStyle
	if el.Background != "" {
		style = &model.ShapeStyle{
			BackgroundColor: normalizeColor(el.Background),
			Opacity:         el.Opacity(),
			CornerRadius:    el.Corner / density(sys),
		}
	}
	var border *model.Border
	if el.BorderColor != "" && el.BorderWidth > 0 {
		border = &model.Border{
			Color: normalizeColor(el.BorderColor),
			Width: max(1, sys.Normalize(el.BorderWidth)),
		}
	}
	return style, border
}

func density(sys model.SystemInformation) float64 {
	if sys.Density <= 0 {
		return 1
	}
	return sys.Density
}

// shapeWireframe builds the background shape of an element, identified by
// the index-th wireframe id of the element.
func shapeWireframe(el model.Element, ctx Context, index int) *model.Wireframe {
	x, y, w, h := globalBounds(el, ctx.System)
	style, border := shapeStyleAndBorder(el, ctx.System)
	return &model.Wireframe{
		ID:         model.WireframeID(el, ctx.Path, index),
		Type:       model.WireframeShape,
		X:          x,
		Y:          y,
		Width:      w,
		Height:     h,
		ShapeStyle: style,
		Border:     border,
	}
}

func fontFamily(font string) string {
	switch strings.ToLower(font) {
	case "serif":
		return fontSerif
	case "monospace", "mono":
		return fontMonospace
	}
	return fontSansSerif
}

func alignment(align string) *model.Alignment {
	switch strings.ToLower(align) {
	case "center":
		return &model.Alignment{Horizontal: "center", Vertical: "center"}
	case "end", "right":
		return &model.Alignment{Horizontal: "right", Vertical: "center"}
	case "top":
		return &model.Alignment{Horizontal: "left", Vertical: "top"}
	case "bottom":
		return &model.Alignment{Horizontal: "left", Vertical: "bottom"}
	}
	return &model.Alignment{Horizontal: "left", Vertical: "center"}
}

func padding(el model.Element, sys model.SystemInformation) *model.Padding {
	return &model.Padding{
		Top:    sys.Normalize(el.Padding[0]),
		Right:  sys.Normalize(el.Padding[1]),
		Bottom: sys.Normalize(el.Padding[2]),
		Left:   sys.Normalize(el.Padding[3]),
	}
}
