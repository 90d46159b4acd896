// Package recorder captures session replay snapshots: it walks the live UI
// tree on the UI loop, maps every element to wireframes and hands the
// resulting node tree to a background consumer that feeds the processor.
package recorder

import (
	"github.com/mj1618/rum-replay/internal/model"
	"github.com/mj1618/rum-replay/internal/recorder/mapper"
)

// Strategy tells the walker what to do after mapping an element.
type Strategy int

const (
	// TraverseAllChildren keeps the element's wireframes and walks its
	// children.
	TraverseAllChildren Strategy = iota
	// StopAndReturnNode keeps the element's wireframes and skips its
	// children.
	StopAndReturnNode
	// StopAndDropNode drops the element together with its subtree.
	StopAndDropNode
)

func (s Strategy) String() string {
	switch s {
	case TraverseAllChildren:
		return "traverse_all_children"
	case StopAndReturnNode:
		return "stop_and_return_node"
	case StopAndDropNode:
		return "stop_and_drop_node"
	}
	return "unknown"
}

// Traversal decides how each element is mapped and whether the walk
// continues below it.
type Traversal struct {
	registry mapper.Registry
	view     mapper.Mapper
	decor    mapper.Mapper
	collapse mapper.Mapper
}

// NewTraversal builds a traversal over registry. bitmaps encodes collapsed
// subtrees when the registry has no image mapper.
func NewTraversal(registry mapper.Registry, bitmaps mapper.BitmapHandler) *Traversal {
	view := mapper.ViewMapper{}
	return &Traversal{
		registry: registry,
		view:     view,
		decor:    mapper.DecorMapper{View: view},
		collapse: &mapper.ImageMapper{Bitmaps: bitmaps},
	}
}

// Traverse maps el. Invisible elements and system chrome are dropped,
// toolbars are collapsed into one image, registered kinds use their mapper
// and everything else falls back to the decor mapper for the window root or
// the generic view mapper.
func (t *Traversal) Traverse(el model.Element, ctx mapper.Context, jobs *mapper.AsyncJobs) ([]*model.Wireframe, Strategy, error) {
	if !model.IsVisible(el) || model.IsSystemNoise(el) {
		return nil, StopAndDropNode, nil
	}

	if model.IsToolbar(el) {
		m := t.collapse
		if e, ok := t.registry.Lookup(model.KindImage); ok {
			m = e.Mapper
		}
		wfs, err := m.Map(el, ctx, jobs)
		return wfs, StopAndReturnNode, err
	}

	if e, ok := t.registry.Lookup(el.Kind); ok {
		wfs, err := e.Mapper.Map(el, ctx, jobs)
		if e.Descend {
			return wfs, TraverseAllChildren, err
		}
		return wfs, StopAndReturnNode, err
	}

	m := t.view
	if ctx.Root {
		m = t.decor
	}
	wfs, err := m.Map(el, ctx, jobs)
	return wfs, TraverseAllChildren, err
}
