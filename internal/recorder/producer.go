package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mj1618/rum-replay/internal/model"
	"github.com/mj1618/rum-replay/internal/observability"
	"github.com/mj1618/rum-replay/internal/recorder/mapper"
	"github.com/mj1618/rum-replay/internal/uithread"
)

// SnapshotProducer converts a live UI tree into a node tree. It must run on
// the UI loop; the returned tree no longer references the live elements.
type SnapshotProducer struct {
	traversal *Traversal
	privacy   mapper.Privacy
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

func NewSnapshotProducer(t *Traversal, privacy mapper.Privacy, logger zerolog.Logger, metrics *observability.Metrics) *SnapshotProducer {
	return &SnapshotProducer{traversal: t, privacy: privacy, logger: logger, metrics: metrics}
}

// Produce walks root depth first. It returns nil when the root itself is
// dropped. Mapper failures drop the failing node and its subtree only.
func (p *SnapshotProducer) Produce(root model.Element, sys model.SystemInformation, jobs *mapper.AsyncJobs) *model.Node {
	ctx := mapper.Context{
		System:  sys,
		Privacy: p.privacy,
		Path:    model.ElementPath("", root, 0),
		Root:    true,
	}
	return p.convert(root, ctx, nil, jobs)
}

func (p *SnapshotProducer) convert(el model.Element, ctx mapper.Context, parents []*model.Wireframe, jobs *mapper.AsyncJobs) (node *model.Node) {
	defer func() {
		if r := recover(); r != nil {
			p.drop(ctx, fmt.Errorf("panic: %v", r))
			node = nil
		}
	}()

	wfs, strategy, err := p.traversal.Traverse(el, ctx, jobs)
	if err != nil {
		p.drop(ctx, err)
		return nil
	}
	switch strategy {
	case StopAndDropNode:
		return nil
	case StopAndReturnNode:
		return &model.Node{Wireframes: wfs, Parents: parents}
	}

	childParents := make([]*model.Wireframe, 0, len(parents)+len(wfs))
	childParents = append(childParents, parents...)
	childParents = append(childParents, wfs...)

	childCtx := ctx
	childCtx.Root = false
	if model.IsOptionSelector(el) {
		childCtx.HasOptionSelectorParent = true
	}

	var children []model.Node
	for i, child := range el.Children {
		childCtx.Path = model.ElementPath(ctx.Path, child, i)
		if n := p.convert(child, childCtx, childParents, jobs); n != nil {
			children = append(children, *n)
		}
	}
	return &model.Node{Wireframes: wfs, Children: children, Parents: parents}
}

func (p *SnapshotProducer) drop(ctx mapper.Context, err error) {
	p.metrics.IncDroppedNode()
	p.logger.Debug().Err(err).Str("path", ctx.Path).Msg("node dropped")
}

// Wireframes walks win on loop, gives image jobs up to wait to finish and
// returns the flattened snapshot. It is the one-shot form of a capture.
func (p *SnapshotProducer) Wireframes(ctx context.Context, loop *uithread.Loop, win *model.Window, wait time.Duration) ([]model.Wireframe, error) {
	jobs := &mapper.AsyncJobs{}
	var node *model.Node
	err := loop.Run(ctx, func() error {
		node = p.Produce(win.Root, win.System, jobs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk window: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := jobs.Wait(waitCtx); err != nil {
		p.logger.Warn().Err(err).Int("jobs", jobs.Pending()).Msg("images not ready, recording without their pixels")
	}
	if node == nil {
		return nil, nil
	}
	return model.FlattenNodes([]model.Node{*node}), nil
}
