// Package processor sequences replay records: it decides between full and
// incremental snapshots, tracks view transitions and bundles records under
// their RUM identity before handing them to a Writer.
package processor

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mj1618/rum-replay/internal/clock"
	"github.com/mj1618/rum-replay/internal/model"
	"github.com/mj1618/rum-replay/internal/observability"
	"github.com/mj1618/rum-replay/internal/rum"
)

// DefaultFullSnapshotInterval is how long incremental snapshots are sent
// before a full snapshot is forced.
const DefaultFullSnapshotInterval = 3 * time.Second

// Writer receives enriched records. Write must be safe to call from a
// background goroutine and must not block for long.
type Writer interface {
	Write(rec model.EnrichedRecord)
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(rec model.EnrichedRecord)

func (f WriterFunc) Write(rec model.EnrichedRecord) { f(rec) }

// RecordCallback is told which view has replay data. It is called once per
// processing call, whether or not a record was written.
type RecordCallback interface {
	OnRecordForViewSent(viewID string)
}

// RecordCallbackFunc adapts a function to the RecordCallback interface.
type RecordCallbackFunc func(viewID string)

func (f RecordCallbackFunc) OnRecordForViewSent(viewID string) { f(viewID) }

// ReplayContext is the RUM identity records are bundled under.
type ReplayContext struct {
	ApplicationID string `yaml:"application_id" json:"application_id"`
	SessionID     string `yaml:"session_id"     json:"session_id"`
	ViewID        string `yaml:"view_id"        json:"view_id"`
}

// FromRum extracts the replay identity of a RUM context.
func FromRum(c rum.Context) ReplayContext {
	return ReplayContext{ApplicationID: c.ApplicationID, SessionID: c.SessionID, ViewID: c.ViewID}
}

// IsValid reports whether the context identifies a sampled session and view.
func (c ReplayContext) IsValid() bool {
	return c.ApplicationID != "" &&
		c.SessionID != "" && c.SessionID != rum.NullUUID &&
		c.ViewID != "" && c.ViewID != rum.NullUUID
}

// Options configures a Processor.
type Options struct {
	Clock                clock.Clock
	FullSnapshotInterval time.Duration
	Logger               zerolog.Logger
	Metrics              *observability.Metrics
}

// Processor turns captured node trees into replay records. One mutex guards
// the retained snapshot, the full-snapshot timer and the screen state.
type Processor struct {
	writer   Writer
	callback RecordCallback
	clock    clock.Clock
	interval int64
	logger   zerolog.Logger
	metrics  *observability.Metrics

	mu              sync.Mutex
	prevSnapshot    []model.Wireframe
	lastFullNs      int64
	hasFull         bool
	prevOrientation model.Orientation
	prevScreen      model.ScreenBounds
}

// New creates a Processor writing to w. callback may be nil.
func New(w Writer, callback RecordCallback, opts Options) *Processor {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.FullSnapshotInterval <= 0 {
		opts.FullSnapshotInterval = DefaultFullSnapshotInterval
	}
	return &Processor{
		writer:   w,
		callback: callback,
		clock:    opts.Clock,
		interval: int64(opts.FullSnapshotInterval),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// ProcessScreenSnapshots flattens nodes and writes the records for one
// capture. prevCtx is the identity of the previous capture; a change of
// identity ends the previous view and starts the new one with a full
// snapshot. timestamp is the capture time in epoch milliseconds.
//
// It reports whether the capture was consumed. An empty capture is not, and
// the caller must pass the same prevCtx again so a pending view transition
// is written with the next non-empty capture.
func (p *Processor) ProcessScreenSnapshots(nodes []model.Node, sys model.SystemInformation, prevCtx, newCtx ReplayContext, timestamp int64) bool {
	p.viewSent(newCtx)

	wireframes := model.FlattenNodes(nodes)
	if len(wireframes) == 0 {
		p.logger.Debug().Str("view_id", newCtx.ViewID).Msg("capture produced no wireframes")
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var records []model.Record
	newView := prevCtx != newCtx
	if newView {
		if prevCtx.IsValid() {
			p.write(prevCtx, []model.Record{model.NewViewEndRecord(timestamp)})
		}
		records = append(records,
			model.NewMetaRecord(timestamp, sys.Screen),
			model.NewFocusRecord(timestamp, true))
	}

	resized := p.hasFull && sys.Orientation != p.prevOrientation && sys.Screen != p.prevScreen
	if resized {
		records = append(records, model.NewViewportResizeRecord(timestamp, sys.Screen))
	}

	if newView || resized || p.fullSnapshotDue() {
		records = append(records, model.NewFullSnapshotRecord(timestamp, wireframes))
		p.lastFullNs = p.clock.NanoTime()
		p.hasFull = true
	} else if m := model.ResolveMutations(p.prevSnapshot, wireframes); m != nil {
		records = append(records, model.NewMutationRecord(timestamp, *m))
	}

	p.prevSnapshot = wireframes
	p.prevOrientation = sys.Orientation
	p.prevScreen = sys.Screen
	if len(records) > 0 {
		p.write(newCtx, records)
	}
	return true
}

// ProcessTouchEventsRecords bundles pointer records under newCtx without
// touching the snapshot state.
func (p *Processor) ProcessTouchEventsRecords(newCtx ReplayContext, records []model.Record) {
	p.viewSent(newCtx)
	if len(records) == 0 {
		return
	}
	p.write(newCtx, records)
}

func (p *Processor) fullSnapshotDue() bool {
	return !p.hasFull || p.clock.NanoTime()-p.lastFullNs >= p.interval
}

func (p *Processor) viewSent(ctx ReplayContext) {
	if p.callback != nil {
		p.callback.OnRecordForViewSent(ctx.ViewID)
	}
}

func (p *Processor) write(ctx ReplayContext, records []model.Record) {
	for _, r := range records {
		p.metrics.IncReplayRecord(r.Type.String())
	}
	p.writer.Write(model.EnrichedRecord{
		ApplicationID: ctx.ApplicationID,
		SessionID:     ctx.SessionID,
		ViewID:        ctx.ViewID,
		Records:       records,
	})
}
