package mapper

import "github.com/mj1618/rum-replay/internal/model"

// ViewMapper maps any element to its background shape. Elements without a
// background or border produce a shape that draws nothing; the flattener
// drops it.
type ViewMapper struct{}

func (ViewMapper) Map(el model.Element, ctx Context, _ *AsyncJobs) ([]*model.Wireframe, error) {
	return []*model.Wireframe{shapeWireframe(el, ctx, 0)}, nil
}

// DecorMapper maps the window root. The root always paints an opaque
// background: its own, else the theme color, else white.
type DecorMapper struct {
	View ViewMapper
}

const defaultWindowColor = "#ffffffff"

func (m DecorMapper) Map(el model.Element, ctx Context, jobs *AsyncJobs) ([]*model.Wireframe, error) {
	wfs, err := m.View.Map(el, ctx, jobs)
	if err != nil || len(wfs) == 0 {
		return wfs, err
	}
	root := wfs[0]
	if root.ShapeStyle == nil {
		color := normalizeColor(ctx.System.ThemeColor)
		if color == "" {
			color = defaultWindowColor
		}
		root.ShapeStyle = &model.ShapeStyle{BackgroundColor: color, Opacity: 1}
	}
	return wfs, nil
}
