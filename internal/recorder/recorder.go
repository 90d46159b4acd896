package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mj1618/rum-replay/internal/clock"
	"github.com/mj1618/rum-replay/internal/model"
	"github.com/mj1618/rum-replay/internal/observability"
	"github.com/mj1618/rum-replay/internal/processor"
	"github.com/mj1618/rum-replay/internal/recorder/mapper"
	"github.com/mj1618/rum-replay/internal/rum"
	"github.com/mj1618/rum-replay/internal/uithread"
)

const tracerName = "github.com/mj1618/rum-replay/internal/recorder"

var (
	// ErrQueueFull is returned when a capture is dropped because the
	// background consumer is behind.
	ErrQueueFull = errors.New("record queue full")
	// ErrStopped is returned by captures after Stop.
	ErrStopped = errors.New("recorder stopped")
)

// WindowSource reads the current UI hierarchy. It is only called on the UI
// loop.
type WindowSource interface {
	ReadWindow() (*model.Window, error)
}

// WindowSourceFunc adapts a function to WindowSource.
type WindowSourceFunc func() (*model.Window, error)

func (f WindowSourceFunc) ReadWindow() (*model.Window, error) { return f() }

// Options configures a Recorder. Source, Context, Producer, Processor and
// Loop are required.
type Options struct {
	Source    WindowSource
	Context   rum.ContextProvider
	Producer  *SnapshotProducer
	Processor *processor.Processor
	Loop      *uithread.Loop

	Clock            clock.Clock
	QueueSize        int
	ImageWaitTimeout time.Duration
	Tracer           trace.Tracer
	Logger           zerolog.Logger
	Metrics          *observability.Metrics
}

// capture is one unit of work for the consumer: either a walked tree or a
// batch of touch records.
type capture struct {
	ctx       processor.ReplayContext
	timestamp int64
	node      *model.Node
	system    model.SystemInformation
	jobs      *mapper.AsyncJobs
	touch     []model.Record
}

// Recorder captures snapshots on the UI loop and processes them in order on
// a single background goroutine.
type Recorder struct {
	source    WindowSource
	context   rum.ContextProvider
	producer  *SnapshotProducer
	processor *processor.Processor
	loop      *uithread.Loop
	clock     clock.Clock
	imageWait time.Duration
	tracer    trace.Tracer
	logger    zerolog.Logger
	metrics   *observability.Metrics

	queue   chan capture
	prevCtx processor.ReplayContext
	group   *errgroup.Group

	mu      sync.RWMutex
	started bool
	stopped bool
}

func New(opts Options) (*Recorder, error) {
	switch {
	case opts.Source == nil:
		return nil, errors.New("recorder: window source is required")
	case opts.Context == nil:
		return nil, errors.New("recorder: context provider is required")
	case opts.Producer == nil || opts.Processor == nil:
		return nil, errors.New("recorder: producer and processor are required")
	case opts.Loop == nil:
		return nil, errors.New("recorder: ui loop is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.ImageWaitTimeout <= 0 {
		opts.ImageWaitTimeout = 2 * time.Second
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	return &Recorder{
		source:    opts.Source,
		context:   opts.Context,
		producer:  opts.Producer,
		processor: opts.Processor,
		loop:      opts.Loop,
		clock:     opts.Clock,
		imageWait: opts.ImageWaitTimeout,
		tracer:    opts.Tracer,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		queue:     make(chan capture, opts.QueueSize),
	}, nil
}

// Start launches the background consumer. Cancelling ctx abandons image
// waits but queued captures are still processed until Stop.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for c := range r.queue {
			r.process(gctx, c)
		}
		return nil
	})
	r.group = g
}

// Stop rejects new captures, drains the queue and waits for the consumer.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.queue)
	g := r.group
	r.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

// Capture walks the current window on the UI loop and queues the node tree.
// Nothing is captured while the RUM session is not sampled.
func (r *Recorder) Capture(ctx context.Context) error {
	rc := processor.FromRum(r.context.Context())
	if !rc.IsValid() {
		r.logger.Debug().Msg("capture skipped, no sampled session or view")
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "replay.walk", trace.WithAttributes(
		attribute.String("rum.view_id", rc.ViewID),
	))
	defer span.End()

	jobs := &mapper.AsyncJobs{}
	c := capture{ctx: rc, jobs: jobs}
	err := r.loop.Run(ctx, func() error {
		win, err := r.source.ReadWindow()
		if err != nil {
			return err
		}
		c.system = win.System
		c.node = r.producer.Produce(win.Root, win.System, jobs)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("capture: %w", err)
	}
	c.timestamp = r.clock.NowMillis()
	span.SetAttributes(attribute.Int("replay.image_jobs", jobs.Pending()))
	return r.enqueue(c)
}

// RecordTouch queues pointer records under the current context.
func (r *Recorder) RecordTouch(records []model.Record) error {
	rc := processor.FromRum(r.context.Context())
	if !rc.IsValid() || len(records) == 0 {
		return nil
	}
	return r.enqueue(capture{ctx: rc, timestamp: r.clock.NowMillis(), touch: records})
}

func (r *Recorder) enqueue(c capture) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return ErrStopped
	}
	select {
	case r.queue <- c:
		return nil
	default:
		r.metrics.IncDroppedCapture()
		r.logger.Warn().Str("view_id", c.ctx.ViewID).Msg("record queue full, capture dropped")
		return ErrQueueFull
	}
}

func (r *Recorder) process(ctx context.Context, c capture) {
	ctx, span := r.tracer.Start(ctx, "replay.process", trace.WithAttributes(
		attribute.String("rum.view_id", c.ctx.ViewID),
	))
	defer span.End()

	if c.touch != nil {
		r.processor.ProcessTouchEventsRecords(c.ctx, c.touch)
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, r.imageWait)
	err := c.jobs.Wait(waitCtx)
	cancel()
	if err != nil {
		span.AddEvent("image wait timed out")
		r.logger.Warn().Err(err).Int("jobs", c.jobs.Pending()).Msg("images not ready, recording without their pixels")
	}

	var nodes []model.Node
	if c.node != nil {
		nodes = []model.Node{*c.node}
	}
	if r.processor.ProcessScreenSnapshots(nodes, c.system, r.prevCtx, c.ctx, c.timestamp) {
		r.prevCtx = c.ctx
	}
}
