package model

// Orientation of the device screen.
type Orientation string

const (
	OrientationUndefined Orientation = ""
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// ScreenBounds is the screen size in density-independent units.
type ScreenBounds struct {
	Width  int64 `yaml:"width"  json:"width"`
	Height int64 `yaml:"height" json:"height"`
}

// SystemInformation is the device state a snapshot was captured in.
type SystemInformation struct {
	Screen      ScreenBounds `yaml:"screen"                json:"screen"`
	Orientation Orientation  `yaml:"orientation,omitempty" json:"orientation,omitempty"`
	Density     float64      `yaml:"density,omitempty"     json:"density,omitempty"` // pixels per dp
	ThemeColor  string       `yaml:"theme_color,omitempty" json:"theme_color,omitempty"`
}

// Normalize converts a pixel value to density-independent units.
func (s SystemInformation) Normalize(px int) int64 {
	if s.Density <= 0 {
		return int64(px)
	}
	return int64(float64(px) / s.Density)
}

// NormalizeFloat is Normalize for fractional sizes such as text size.
func (s SystemInformation) NormalizeFloat(px float64) int64 {
	if s.Density <= 0 {
		return int64(px)
	}
	return int64(px / s.Density)
}
