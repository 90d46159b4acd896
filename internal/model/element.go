package model

// Element represents a UI element in the live view hierarchy.
type Element struct {
	ID          int64     `yaml:"id"                    json:"id"`                    // Stable view identity
	Kind        Kind      `yaml:"kind"                  json:"kind"`                  // Element kind, see kinds.go
	Bounds      [4]int    `yaml:"bounds"                json:"bounds"`                // [x, y, width, height] in pixels, global
	Hidden      bool      `yaml:"hidden,omitempty"      json:"hidden,omitempty"`      // Not rendered
	Alpha       *float64  `yaml:"alpha,omitempty"       json:"alpha,omitempty"`       // nil = opaque
	SystemNoise bool      `yaml:"system,omitempty"      json:"system,omitempty"`      // Status/navigation bar backgrounds
	Background  string    `yaml:"background,omitempty"  json:"background,omitempty"`  // #RRGGBBAA
	BorderColor string    `yaml:"border,omitempty"      json:"border,omitempty"`      // #RRGGBBAA
	BorderWidth int       `yaml:"border_width,omitempty" json:"border_width,omitempty"`
	Corner      float64   `yaml:"corner,omitempty"      json:"corner,omitempty"`
	Text        string    `yaml:"text,omitempty"        json:"text,omitempty"`
	Hint        string    `yaml:"hint,omitempty"        json:"hint,omitempty"`
	TextColor   string    `yaml:"text_color,omitempty"  json:"text_color,omitempty"`
	HintColor   string    `yaml:"hint_color,omitempty"  json:"hint_color,omitempty"`
	TextSize    float64   `yaml:"text_size,omitempty"   json:"text_size,omitempty"`   // pixels
	Font        string    `yaml:"font,omitempty"        json:"font,omitempty"`        // sans-serif, serif, monospace
	Align       string    `yaml:"align,omitempty"       json:"align,omitempty"`       // start, center, end
	Padding     [4]int    `yaml:"padding,omitempty"     json:"padding,omitempty"`     // top, right, bottom, left in pixels
	Sensitive   bool      `yaml:"sensitive,omitempty"   json:"sensitive,omitempty"`   // password, email, phone input
	Checked     bool      `yaml:"checked,omitempty"     json:"checked,omitempty"`
	Image       *Image    `yaml:"image,omitempty"       json:"image,omitempty"`
	Children    []Element `yaml:"children,omitempty"    json:"children,omitempty"`
}

// Image describes the visual source rendered by an element.
type Image struct {
	Key    string `yaml:"key,omitempty"    json:"key,omitempty"`    // Cache identity; defaults to the element id
	Path   string `yaml:"path,omitempty"   json:"path,omitempty"`   // PNG/JPEG file backing the image
	Color  string `yaml:"color,omitempty"  json:"color,omitempty"`  // Solid fill when no file is given
	Width  int    `yaml:"width,omitempty"  json:"width,omitempty"`  // Intrinsic width in pixels
	Height int    `yaml:"height,omitempty" json:"height,omitempty"` // Intrinsic height in pixels
}

// Opacity returns the element alpha in [0,1].
func (el Element) Opacity() float64 {
	if el.Alpha == nil {
		return 1
	}
	a := *el.Alpha
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

// Window is one captured UI hierarchy with the device state it was read in.
type Window struct {
	System SystemInformation `yaml:"system" json:"system"`
	Root   Element           `yaml:"root"   json:"root"`
}
