package rum

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mj1618/rum-replay/internal/clock"
	"github.com/mj1618/rum-replay/internal/observability"
)

const (
	DefaultSessionInactivity  = 15 * time.Minute
	DefaultSessionMaxDuration = 4 * time.Hour
)

// MessageMissingView is logged when an event needs a view and none is active.
const MessageMissingView = "a RUM event was detected but no view is active; start a view before reporting events"

// SessionListener is notified of every session rotation.
type SessionListener interface {
	OnSessionStarted(sessionID string, discarded bool)
}

// SessionListenerFunc adapts a function to SessionListener.
type SessionListenerFunc func(sessionID string, discarded bool)

func (f SessionListenerFunc) OnSessionStarted(sessionID string, discarded bool) {
	f(sessionID, discarded)
}

// SessionOptions configures a SessionScope. Zero values select defaults.
type SessionOptions struct {
	// SampleRate is the percentage of sessions kept, in [0,100].
	SampleRate float64

	Inactivity  time.Duration
	MaxDuration time.Duration
	Clock       clock.Clock

	// ProcessStartNanos is the monotonic process start, reported by the
	// application start action of the first view.
	ProcessStartNanos int64

	// Sampler returns a uniform value in [0,100).
	Sampler  func() float64
	NewID    func() string
	Listener SessionListener
	Logger   zerolog.Logger
	Metrics  *observability.Metrics
}

// SessionScope owns the sampling decision and the session identity. One
// mutex covers the rotation decision and every session field.
type SessionScope struct {
	parent Scope
	opts   SessionOptions

	mu                   sync.Mutex
	sessionID            string
	keepSession          bool
	startNs              int64
	lastInteractionNs    int64
	applicationDisplayed bool
	resetNs              *int64

	children []Scope
}

// NewSessionScope creates a session scope under parent. The first event
// starts the first session.
func NewSessionScope(parent Scope, opts SessionOptions) *SessionScope {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = DefaultSessionInactivity
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultSessionMaxDuration
	}
	if opts.Sampler == nil {
		opts.Sampler = func() float64 { return rand.Float64() * 100 }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &SessionScope{
		parent:    parent,
		opts:      opts,
		sessionID: NullUUID,
		startNs:   opts.Clock.NanoTime(),
	}
}

func (s *SessionScope) HandleEvent(e RawEvent, w Writer) Scope {
	if _, ok := e.(ResetSession); ok {
		s.reset()
		s.children = forward(s.children, e, NoOpWriter)
		return s
	}
	keep := s.updateSessionIDIfNeeded()

	writer := w
	if !keep {
		writer = NoOpWriter
	}

	s.children = forward(s.children, e, writer)

	if sv, ok := e.(StartView); ok {
		view := NewViewScope(s, sv, s.opts.Logger)
		s.onApplicationDisplayed(sv, view, writer)
		if view.version == 0 {
			view.writeView(writer, sv.EventTime)
		}
		s.children = append(s.children, view)
	} else if len(s.children) == 0 {
		s.handleOrphanEvent(e, writer)
	}
	return s
}

// Context returns the parent context with the session id when the session
// is kept, and NullContext otherwise. Reading the context does not count as
// an interaction.
func (s *SessionScope) Context() Context {
	s.mu.Lock()
	id, keep := s.sessionID, s.keepSession
	s.mu.Unlock()
	if !keep || id == NullUUID {
		return NullContext()
	}
	ctx := s.parent.Context()
	ctx.SessionID = id
	return ctx
}

// ActiveContext is the context of the newest active view, falling back to
// the session context. It must be called from the goroutine driving events.
func (s *SessionScope) ActiveContext() Context {
	for i := len(s.children) - 1; i >= 0; i-- {
		if v, ok := s.children[i].(*ViewScope); ok && v.IsActive() {
			return v.Context()
		}
	}
	return s.Context()
}

// Expired reports whether the current session has outlived the inactivity
// or max duration window. It does not rotate the session or count as an
// interaction; the next event does the rotation.
func (s *SessionScope) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID == NullUUID {
		return false
	}
	now := s.opts.Clock.NanoTime()
	return now-s.lastInteractionNs >= int64(s.opts.Inactivity) ||
		now-s.startNs >= int64(s.opts.MaxDuration)
}

// State reports the session id and sampling decision without refreshing.
func (s *SessionScope) State() (sessionID string, keep bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID, s.keepSession
}

// Children returns the active child scopes.
func (s *SessionScope) Children() []Scope {
	return append([]Scope(nil), s.children...)
}

func (s *SessionScope) handleOrphanEvent(e RawEvent, w Writer) {
	switch e.(type) {
	case AddError, AddLongTask, StartAction, StartResource:
		view := newBackgroundViewScope(s, e.Time(), s.opts.Logger)
		if view.HandleEvent(e, w) != nil {
			s.children = append(s.children, view)
		}
	default:
		s.opts.Logger.Warn().Msg(MessageMissingView)
	}
}

func (s *SessionScope) onApplicationDisplayed(sv StartView, view *ViewScope, w Writer) {
	s.mu.Lock()
	if s.applicationDisplayed {
		s.mu.Unlock()
		return
	}
	s.applicationDisplayed = true
	startup := s.opts.ProcessStartNanos
	if s.resetNs != nil {
		startup = *s.resetNs
	}
	s.mu.Unlock()
	view.HandleEvent(ApplicationStarted{EventTime: sv.EventTime, StartupNanos: startup}, w)
}

// reset ends the current session. The next event starts a new one and the
// first view after it reports the reset as the application start.
func (s *SessionScope) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Clock.NanoTime()
	s.sessionID = NullUUID
	s.keepSession = false
	s.resetNs = &now
	s.applicationDisplayed = false
}

// updateSessionIDIfNeeded rotates the session when there is none, when it
// has been inactive too long or when it has lasted too long. Every call
// counts as an interaction. It reports whether the session is kept.
func (s *SessionScope) updateSessionIDIfNeeded() bool {
	s.mu.Lock()
	now := s.opts.Clock.NanoTime()
	isNew := s.sessionID == NullUUID
	isInactive := now-s.lastInteractionNs >= int64(s.opts.Inactivity)
	isLong := now-s.startNs >= int64(s.opts.MaxDuration)

	rotated := isNew || isInactive || isLong
	if rotated {
		s.keepSession = s.opts.Sampler() < s.opts.SampleRate
		s.startNs = now
		s.sessionID = s.opts.NewID()
	}
	s.lastInteractionNs = now
	id, keep := s.sessionID, s.keepSession
	s.mu.Unlock()

	if rotated {
		s.opts.Metrics.IncSession(keep)
		s.opts.Logger.Debug().Str("session_id", id).Bool("sampled", keep).Msg("session started")
		if s.opts.Listener != nil {
			s.opts.Listener.OnSessionStarted(id, !keep)
		}
	}
	return keep
}
