package model

// WireframeType discriminates the Wireframe variants.
type WireframeType string

const (
	WireframeShape WireframeType = "shape"
	WireframeText  WireframeType = "text"
	WireframeImage WireframeType = "image"
)

// Wireframe is one serializable visual primitive. Variant-specific fields
// are only meaningful for the matching Type.
type Wireframe struct {
	ID     int64         `yaml:"id"     json:"id"`
	Type   WireframeType `yaml:"type"   json:"type"`
	X      int64         `yaml:"x"      json:"x"`
	Y      int64         `yaml:"y"      json:"y"`
	Width  int64         `yaml:"width"  json:"width"`
	Height int64         `yaml:"height" json:"height"`
	Clip   *Clip         `yaml:"clip,omitempty"   json:"clip,omitempty"`

	ShapeStyle *ShapeStyle `yaml:"shapeStyle,omitempty" json:"shapeStyle,omitempty"`
	Border     *Border     `yaml:"border,omitempty"     json:"border,omitempty"`

	// text
	Text         string        `yaml:"text,omitempty"         json:"text,omitempty"`
	TextStyle    *TextStyle    `yaml:"textStyle,omitempty"    json:"textStyle,omitempty"`
	TextPosition *TextPosition `yaml:"textPosition,omitempty" json:"textPosition,omitempty"`

	// image
	Base64   string `yaml:"base64,omitempty"   json:"base64,omitempty"`
	MimeType string `yaml:"mimeType,omitempty" json:"mimeType,omitempty"`
	IsEmpty  bool   `yaml:"isEmpty,omitempty"  json:"isEmpty,omitempty"`
}

type Clip struct {
	Top    int64 `yaml:"top"    json:"top"`
	Bottom int64 `yaml:"bottom" json:"bottom"`
	Left   int64 `yaml:"left"   json:"left"`
	Right  int64 `yaml:"right"  json:"right"`
}

type ShapeStyle struct {
	BackgroundColor string  `yaml:"backgroundColor,omitempty" json:"backgroundColor,omitempty"`
	Opacity         float64 `yaml:"opacity"                   json:"opacity"`
	CornerRadius    float64 `yaml:"cornerRadius,omitempty"    json:"cornerRadius,omitempty"`
}

type Border struct {
	Color string `yaml:"color" json:"color"`
	Width int64  `yaml:"width" json:"width"`
}

type TextStyle struct {
	Family string `yaml:"family" json:"family"`
	Size   int64  `yaml:"size"   json:"size"`
	Color  string `yaml:"color"  json:"color"`
}

type Padding struct {
	Top    int64 `yaml:"top"    json:"top"`
	Bottom int64 `yaml:"bottom" json:"bottom"`
	Left   int64 `yaml:"left"   json:"left"`
	Right  int64 `yaml:"right"  json:"right"`
}

type Alignment struct {
	Horizontal string `yaml:"horizontal" json:"horizontal"` // left, center, right
	Vertical   string `yaml:"vertical"   json:"vertical"`   // top, center, bottom
}

type TextPosition struct {
	Padding   *Padding   `yaml:"padding,omitempty"   json:"padding,omitempty"`
	Alignment *Alignment `yaml:"alignment,omitempty" json:"alignment,omitempty"`
}

// Bounds returns [x, y, width, height].
func (w Wireframe) Bounds() [4]int64 {
	return [4]int64{w.X, w.Y, w.Width, w.Height}
}

// IsOpaque reports whether the wireframe hides everything drawn beneath it.
func (w Wireframe) IsOpaque() bool {
	if w.Type != WireframeShape || w.ShapeStyle == nil || w.Clip != nil {
		return false
	}
	s := w.ShapeStyle
	return s.Opacity >= 1 && s.CornerRadius == 0 && isOpaqueColor(s.BackgroundColor)
}

// isOpaqueColor reports whether a #RRGGBBAA color has a full alpha channel.
func isOpaqueColor(c string) bool {
	if len(c) != 9 || c[0] != '#' {
		return false
	}
	return c[7:] == "ff" || c[7:] == "FF"
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTextPosition(a, b *TextPosition) bool {
	if a == nil || b == nil {
		return a == b
	}
	return equalPtr(a.Padding, b.Padding) && equalPtr(a.Alignment, b.Alignment)
}

// Equal compares every attribute of two wireframes.
func (w Wireframe) Equal(o Wireframe) bool {
	return w.ID == o.ID && w.Type == o.Type &&
		w.Bounds() == o.Bounds() &&
		equalPtr(w.Clip, o.Clip) &&
		equalPtr(w.ShapeStyle, o.ShapeStyle) &&
		equalPtr(w.Border, o.Border) &&
		w.Text == o.Text &&
		equalPtr(w.TextStyle, o.TextStyle) &&
		equalTextPosition(w.TextPosition, o.TextPosition) &&
		w.Base64 == o.Base64 && w.MimeType == o.MimeType && w.IsEmpty == o.IsEmpty
}

// Node is the intermediate tree produced while walking the UI hierarchy.
// Parents holds the wireframes of every ancestor, outermost first.
type Node struct {
	Wireframes []*Wireframe
	Children   []Node
	Parents    []*Wireframe
}
