package rum

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/mj1618/rum-replay/internal/clock"
	"github.com/mj1618/rum-replay/internal/observability"
)

// ErrMonitorClosed is returned by Sync after Close.
var ErrMonitorClosed = errors.New("rum monitor closed")

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	QueueSize int
	Clock     clock.Clock
	Logger    zerolog.Logger
	Metrics   *observability.Metrics
}

// Monitor is the entry point for reporting RUM events. Events are queued on
// a bounded channel and applied to the scope tree by a single goroutine; the
// active context is republished after every event and can be read from any
// goroutine.
type Monitor struct {
	app     *ApplicationScope
	writer  Writer
	clock   clock.Clock
	logger  zerolog.Logger
	metrics *observability.Metrics

	events  chan RawEvent
	current atomic.Pointer[Context]

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// barrier is queued by Sync and released once every earlier event has been
// applied.
type barrier struct {
	EventTime
	done chan struct{}
}

// NewMonitor starts the event goroutine.
func NewMonitor(app *ApplicationScope, w Writer, opts MonitorOptions) *Monitor {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	m := &Monitor{
		app:     app,
		writer:  w,
		clock:   opts.Clock,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		events:  make(chan RawEvent, opts.QueueSize),
	}
	initial := app.ActiveContext()
	m.current.Store(&initial)
	m.wg.Add(1)
	go m.run()
	return m
}

func (m *Monitor) run() {
	defer m.wg.Done()
	w := WriterFunc(func(e Event) {
		m.metrics.IncRumEvent(string(e.Type))
		m.writer.Write(e)
	})
	for e := range m.events {
		if b, ok := e.(barrier); ok {
			close(b.done)
			continue
		}
		m.apply(e, w)
	}
}

func (m *Monitor) apply(e RawEvent, w Writer) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("rum event handling panicked")
		}
	}()
	m.app.HandleEvent(e, w)
	ctx := m.app.ActiveContext()
	m.current.Store(&ctx)
}

// Context returns the context published after the last applied event, or
// NullContext once that session has expired without a newer event.
func (m *Monitor) Context() Context {
	if m.app.Session().Expired() {
		return NullContext()
	}
	return *m.current.Load()
}

// Handle queues e. It never blocks; it reports false when the queue is full
// or the monitor is closed.
func (m *Monitor) Handle(e RawEvent) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false
	}
	select {
	case m.events <- e:
		return true
	default:
		m.logger.Warn().Msg("rum event queue full, event dropped")
		return false
	}
}

// Sync waits until every event queued before the call has been applied.
func (m *Monitor) Sync(ctx context.Context) error {
	b := barrier{EventTime: Now(m.clock), done: make(chan struct{})}
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrMonitorClosed
	}
	select {
	case m.events <- b:
	case <-ctx.Done():
		m.mu.RUnlock()
		return ctx.Err()
	}
	m.mu.RUnlock()
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for queued events to be applied.
func (m *Monitor) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.events)
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Monitor) now() EventTime { return Now(m.clock) }

func (m *Monitor) StartView(key, name string) bool {
	return m.Handle(StartView{EventTime: m.now(), Key: key, Name: name})
}

func (m *Monitor) StopView(key string) bool {
	return m.Handle(StopView{EventTime: m.now(), Key: key})
}

func (m *Monitor) AddAction(typ ActionType, name string) bool {
	return m.Handle(StartAction{EventTime: m.now(), Type: typ, Name: name})
}

func (m *Monitor) StartAction(typ ActionType, name string) bool {
	return m.Handle(StartAction{EventTime: m.now(), Type: typ, Name: name, WaitForStop: true})
}

func (m *Monitor) StopAction(typ ActionType, name string) bool {
	return m.Handle(StopAction{EventTime: m.now(), Type: typ, Name: name})
}

func (m *Monitor) StartResource(key, method, url string) bool {
	return m.Handle(StartResource{EventTime: m.now(), Key: key, Method: method, URL: url})
}

func (m *Monitor) StopResource(key string, statusCode int, size int64, kind string) bool {
	return m.Handle(StopResource{EventTime: m.now(), Key: key, StatusCode: statusCode, Size: size, Kind: kind})
}

func (m *Monitor) StopResourceWithError(key, message string) bool {
	return m.Handle(StopResourceWithError{EventTime: m.now(), Key: key, Message: message, Source: SourceNetwork})
}

func (m *Monitor) AddError(message string, source ErrorSource) bool {
	return m.Handle(AddError{EventTime: m.now(), Message: message, Source: source})
}

func (m *Monitor) ResetSession() bool {
	return m.Handle(ResetSession{EventTime: m.now()})
}
