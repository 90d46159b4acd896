package mapper

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mj1618/rum-replay/internal/model"
)

// parseColor decodes #RRGGBB or #RRGGBBAA.
func parseColor(s string) (color.NRGBA, bool) {
	s = normalizeColor(s)
	if len(s) != 9 || s[0] != '#' {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

// subtreeSource rasterizes an element and its visible descendants as one
// picture. Backgrounds, borders and labels are drawn; images are drawn as
// their solid color when they have one.
type subtreeSource struct {
	root model.Element
	ctx  Context
	key  string
}

func newSubtreeSource(el model.Element, ctx Context) *subtreeSource {
	s := &subtreeSource{root: el, ctx: ctx}
	if data, err := json.Marshal(struct {
		El      model.Element
		Privacy Privacy
	}{el, ctx.Privacy}); err == nil {
		sum := sha256.Sum256(data)
		s.key = "subtree:" + hex.EncodeToString(sum[:12])
	}
	return s
}

func (s *subtreeSource) CacheKey() string { return s.key }

func (s *subtreeSource) Size() (int, int) { return s.root.Bounds[2], s.root.Bounds[3] }

func (s *subtreeSource) Draw(dst draw.Image) error {
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("subtree %s has no area", s.ctx.Path)
	}
	b := dst.Bounds()
	r := rasterizer{
		dst:     dst,
		originX: s.root.Bounds[0],
		originY: s.root.Bounds[1],
		scaleX:  float64(b.Dx()) / float64(w),
		scaleY:  float64(b.Dy()) / float64(h),
		ctx:     s.ctx,
	}
	draw.Draw(dst, b, image.Transparent, image.Point{}, draw.Src)
	r.drawElement(s.root)
	return nil
}

type rasterizer struct {
	dst              draw.Image
	originX, originY int
	scaleX, scaleY   float64
	ctx              Context
}

func (r *rasterizer) rect(bounds [4]int) image.Rectangle {
	at := r.dst.Bounds().Min
	x := at.X + int(float64(bounds[0]-r.originX)*r.scaleX)
	y := at.Y + int(float64(bounds[1]-r.originY)*r.scaleY)
	w := int(float64(bounds[2]) * r.scaleX)
	h := int(float64(bounds[3]) * r.scaleY)
	return image.Rect(x, y, x+w, y+h).Intersect(r.dst.Bounds())
}

func (r *rasterizer) drawElement(el model.Element) {
	if !model.IsVisible(el) || model.IsSystemNoise(el) {
		return
	}
	rect := r.rect(el.Bounds)
	if rect.Empty() {
		return
	}
	if c, ok := parseColor(el.Background); ok {
		c.A = uint8(float64(c.A) * el.Opacity())
		draw.Draw(r.dst, rect, image.NewUniform(c), image.Point{}, draw.Over)
	}
	if el.Image != nil {
		if c, ok := parseColor(el.Image.Color); ok {
			draw.Draw(r.dst, rect, image.NewUniform(c), image.Point{}, draw.Over)
		}
	}
	if c, ok := parseColor(el.BorderColor); ok && el.BorderWidth > 0 {
		drawRectangle(r.dst, rect, c)
	}
	if el.Kind.IsA(model.KindText) {
		if text := maskedText(el, r.ctx); text != "" {
			c, ok := parseColor(textColor(el))
			if !ok {
				c = color.NRGBA{A: 255}
			}
			drawText(r.dst, rect, text, c)
		}
	}
	for _, child := range el.Children {
		r.drawElement(child)
	}
}

// drawRectangle draws a one pixel outline of rect.
func drawRectangle(img draw.Image, rect image.Rectangle, c color.Color) {
	for x := rect.Min.X; x < rect.Max.X; x++ {
		img.Set(x, rect.Min.Y, c)
		img.Set(x, rect.Max.Y-1, c)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		img.Set(rect.Min.X, y, c)
		img.Set(rect.Max.X-1, y, c)
	}
}

// drawText writes text vertically centered at the start of rect using the
// fixed 7x13 face, clipped to rect.
func drawText(img draw.Image, rect image.Rectangle, text string, c color.Color) {
	const textHeight = 13
	y := rect.Min.Y + (rect.Dy()+textHeight)/2 - 2
	d := &font.Drawer{
		Dst:  clipped{img, rect},
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(rect.Min.X + 2), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// clipped restricts drawing to a sub-rectangle of an image.
type clipped struct {
	draw.Image
	r image.Rectangle
}

func (c clipped) Bounds() image.Rectangle { return c.r }

func (c clipped) Set(x, y int, col color.Color) {
	if image.Pt(x, y).In(c.r) {
		c.Image.Set(x, y, col)
	}
}
