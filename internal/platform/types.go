package platform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mj1618/rum-replay/internal/model"
)

// ParseScreen parses a "WIDTHxHEIGHT" string into screen bounds. The
// orientation follows the longer side.
func ParseScreen(s string) (model.ScreenBounds, model.Orientation, error) {
	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) != 2 {
		return model.ScreenBounds{}, "", fmt.Errorf("invalid screen %q: expected WIDTHxHEIGHT", s)
	}
	vals := make([]int64, 2)
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return model.ScreenBounds{}, "", fmt.Errorf("invalid screen %q: %w", s, err)
		}
		if v <= 0 {
			return model.ScreenBounds{}, "", fmt.Errorf("invalid screen %q: sides must be positive", s)
		}
		vals[i] = v
	}
	orientation := model.OrientationPortrait
	if vals[0] > vals[1] {
		orientation = model.OrientationLandscape
	}
	return model.ScreenBounds{Width: vals[0], Height: vals[1]}, orientation, nil
}

// OverrideScreen wraps r so every window it reads reports the given screen.
func OverrideScreen(r Reader, screen model.ScreenBounds, orientation model.Orientation) Reader {
	return screenOverride{Reader: r, screen: screen, orientation: orientation}
}

type screenOverride struct {
	Reader
	screen      model.ScreenBounds
	orientation model.Orientation
}

func (o screenOverride) ReadWindow() (*model.Window, error) {
	win, err := o.Reader.ReadWindow()
	if err != nil {
		return nil, err
	}
	win.System.Screen = o.screen
	win.System.Orientation = o.orientation
	return win, nil
}
