package mapper

import (
	"strings"
	"unicode"

	"github.com/mj1618/rum-replay/internal/model"
)

// StaticMask replaces sensitive input and option-selector labels whole, so
// not even their length is recorded.
const StaticMask = "***"

// TextMapper maps text-bearing elements to a single text wireframe that also
// carries the element background.
type TextMapper struct{}

func (TextMapper) Map(el model.Element, ctx Context, _ *AsyncJobs) ([]*model.Wireframe, error) {
	return []*model.Wireframe{textWireframe(el, ctx)}, nil
}

func textWireframe(el model.Element, ctx Context) *model.Wireframe {
	x, y, w, h := globalBounds(el, ctx.System)
	style, border := shapeStyleAndBorder(el, ctx.System)
	return &model.Wireframe{
		ID:         model.WireframeID(el, ctx.Path, 0),
		Type:       model.WireframeText,
		X:          x,
		Y:          y,
		Width:      w,
		Height:     h,
		ShapeStyle: style,
		Border:     border,
		Text:       maskedText(el, ctx),
		TextStyle: &model.TextStyle{
			Family: fontFamily(el.Font),
			Size:   ctx.System.NormalizeFloat(el.TextSize),
			Color:  textColor(el),
		},
		TextPosition: &model.TextPosition{
			Padding:   padding(el, ctx.System),
			Alignment: alignment(el.Align),
		},
	}
}

// displayedText is the text when set, else the hint.
func displayedText(el model.Element) string {
	if el.Text == "" {
		return el.Hint
	}
	return el.Text
}

func maskedText(el model.Element, ctx Context) string {
	text := displayedText(el)
	if el.Sensitive {
		return StaticMask
	}
	if ctx.Privacy == PrivacyAllow {
		return text
	}
	if ctx.HasOptionSelectorParent {
		return StaticMask
	}
	return Obfuscate(text)
}

// Obfuscate replaces every non-whitespace character with 'x', keeping the
// shape of the text.
func Obfuscate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('x')
	}
	return b.String()
}

func textColor(el model.Element) string {
	color := el.TextColor
	if el.Text == "" && el.HintColor != "" {
		color = el.HintColor
	}
	if color == "" {
		return defaultTextColor
	}
	return normalizeColor(color)
}

// CheckableMapper maps checkboxes, radio buttons and switches: the label as
// text plus a square box at the start of the element, filled when checked.
// Masked recordings never reveal the checked state.
type CheckableMapper struct {
	Text *TextMapper
}

// checkBoxSize is the box side in density-independent units.
const checkBoxSize = 16

func (m *CheckableMapper) Map(el model.Element, ctx Context, jobs *AsyncJobs) ([]*model.Wireframe, error) {
	var text TextMapper
	if m.Text != nil {
		text = *m.Text
	}
	wfs, err := text.Map(el, ctx, jobs)
	if err != nil {
		return nil, err
	}
	x, y, _, h := globalBounds(el, ctx.System)
	size := min(int64(checkBoxSize), h)
	if size <= 0 {
		return wfs, nil
	}
	color := textColor(el)
	box := &model.Wireframe{
		ID:     model.WireframeID(el, ctx.Path, 1),
		Type:   model.WireframeShape,
		X:      x,
		Y:      y + (h-size)/2,
		Width:  size,
		Height: size,
		Border: &model.Border{Color: color, Width: 1},
	}
	if el.Checked && ctx.Privacy == PrivacyAllow {
		box.ShapeStyle = &model.ShapeStyle{BackgroundColor: color, Opacity: el.Opacity()}
	}
	return append(wfs, box), nil
}
