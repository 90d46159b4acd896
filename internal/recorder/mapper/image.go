package mapper

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/mj1618/rum-replay/internal/bitmap"
	"github.com/mj1618/rum-replay/internal/model"
)

// BitmapHandler encodes visual sources asynchronously. It is satisfied by
// *bitmap.Serializer.
type BitmapHandler interface {
	HandleBitmap(src bitmap.Source, cb func(bitmap.Result))
}

// ImageMapper maps image elements to their background shape plus an image
// wireframe whose pixels are filled in once the bitmap is encoded. Elements
// without an image source (collapsed composites) are rasterized as a whole.
type ImageMapper struct {
	Bitmaps BitmapHandler
}

func (m *ImageMapper) Map(el model.Element, ctx Context, jobs *AsyncJobs) ([]*model.Wireframe, error) {
	x, y, w, h := globalBounds(el, ctx.System)
	var wfs []*model.Wireframe
	if bg := shapeWireframe(el, ctx, 0); bg.ShapeStyle != nil || bg.Border != nil {
		wfs = append(wfs, bg)
	}
	img := &model.Wireframe{
		ID:       model.WireframeID(el, ctx.Path, 1),
		Type:     model.WireframeImage,
		X:        x,
		Y:        y,
		Width:    w,
		Height:   h,
		MimeType: bitmap.MimeType,
	}
	wfs = append(wfs, img)

	// Masked recordings keep image content out; collapsed composites are
	// still drawn since their labels are masked while rasterizing.
	src := sourceFor(el, ctx)
	if src == nil || m.Bitmaps == nil || (ctx.Privacy == PrivacyMask && el.Image != nil) {
		img.IsEmpty = true
		return wfs, nil
	}

	job := jobs.Begin()
	m.Bitmaps.HandleBitmap(src, func(res bitmap.Result) {
		job.Finish(func() {
			if res.IsEmpty() {
				img.IsEmpty = true
				return
			}
			img.Base64 = res.Base64
			img.MimeType = res.MimeType
		})
	})
	return wfs, nil
}

func sourceFor(el model.Element, ctx Context) bitmap.Source {
	if el.Image == nil {
		if len(el.Children) == 0 && el.Background == "" {
			return nil
		}
		return newSubtreeSource(el, ctx)
	}
	w, h := el.Image.Width, el.Image.Height
	if w <= 0 || h <= 0 {
		w, h = el.Bounds[2], el.Bounds[3]
	}
	key := el.Image.Key
	switch {
	case el.Image.Path != "":
		if key == "" {
			key = "file:" + el.Image.Path
		}
		return &fileSource{key: key, path: el.Image.Path, w: w, h: h}
	case el.Image.Color != "":
		if key == "" {
			key = fmt.Sprintf("color:%s:%dx%d", normalizeColor(el.Image.Color), w, h)
		}
		return &colorSource{key: key, color: el.Image.Color, w: w, h: h}
	}
	return nil
}

// fileSource is an image decoded from a PNG or JPEG file.
type fileSource struct {
	key  string
	path string
	w, h int
}

func (s *fileSource) CacheKey() string { return s.key }
func (s *fileSource) Size() (int, int) { return s.w, s.h }

func (s *fileSource) Native() (image.Image, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return img, nil
}

func (s *fileSource) Draw(dst draw.Image) error {
	img, err := s.Native()
	if err != nil {
		return err
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return nil
}

// colorSource is a solid fill.
type colorSource struct {
	key   string
	color string
	w, h  int
}

func (s *colorSource) CacheKey() string { return s.key }
func (s *colorSource) Size() (int, int) { return s.w, s.h }

func (s *colorSource) Draw(dst draw.Image) error {
	c, ok := parseColor(s.color)
	if !ok {
		return fmt.Errorf("invalid color %q", s.color)
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return nil
}
