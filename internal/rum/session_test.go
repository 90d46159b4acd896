package rum

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/mj1618/rum-replay/internal/clock"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Write(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (l *eventLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

type rotations struct {
	ids       []string
	discarded []bool
}

func (r *rotations) OnSessionStarted(id string, discarded bool) {
	r.ids = append(r.ids, id)
	r.discarded = append(r.discarded, discarded)
}

func newTestApp(rate float64) (*ApplicationScope, *clock.Fake, *rotations) {
	clk := clock.NewFake(1_700_000_000_000)
	rot := &rotations{}
	app := NewApplicationScope("app-id", SessionOptions{
		SampleRate: rate,
		Clock:      clk,
		Listener:   rot,
	})
	return app, clk, rot
}

func TestSession_FirstEventStartsSession(t *testing.T) {
	app, clk, rot := newTestApp(100)
	s := app.Session()
	if id, _ := s.State(); id != NullUUID {
		t.Fatalf("expected no session before the first event, got %s", id)
	}

	app.HandleEvent(KeepAlive{EventTime: Now(clk)}, NoOpWriter)
	id, keep := s.State()
	if id == NullUUID || id == "" || !keep {
		t.Fatalf("expected a kept session, got %q keep=%v", id, keep)
	}
	if len(rot.ids) != 1 || rot.ids[0] != id || rot.discarded[0] {
		t.Errorf("unexpected listener calls %+v", rot)
	}
	ctx := s.Context()
	if ctx.ApplicationID != "app-id" || ctx.SessionID != id {
		t.Errorf("unexpected context %+v", ctx)
	}
}

func TestSession_IDNeverEmptyWhileKept(t *testing.T) {
	app, clk, _ := newTestApp(50)
	rng := rand.New(rand.NewPCG(7, 11))
	s := app.Session()
	log := &eventLog{}

	for i := 0; i < 2000; i++ {
		clk.Advance(time.Duration(rng.IntN(int(20 * time.Minute))))
		var e RawEvent
		switch rng.IntN(6) {
		case 0:
			e = ResetSession{EventTime: Now(clk)}
		case 1:
			e = StartView{EventTime: Now(clk), Key: fmt.Sprintf("view-%d", rng.IntN(3))}
		case 2:
			e = AddError{EventTime: Now(clk), Message: "boom"}
		case 3:
			e = StartAction{EventTime: Now(clk), Type: ActionTap}
		case 4:
			e = StopView{EventTime: Now(clk), Key: "view-0"}
		default:
			e = KeepAlive{EventTime: Now(clk)}
		}
		app.HandleEvent(e, log)

		id, keep := s.State()
		if _, reset := e.(ResetSession); reset {
			if id != NullUUID || keep {
				t.Fatalf("step %d: expected the null session after a reset, got %q keep=%v", i, id, keep)
			}
			continue
		}
		if keep && (id == "" || id == NullUUID) {
			t.Fatalf("step %d: kept session without an id", i)
		}
	}
}

func TestSession_SamplingConverges(t *testing.T) {
	for _, rate := range []float64{0, 12.5, 50, 87, 100} {
		t.Run(fmt.Sprint(rate), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(42, uint64(rate*10)))
			clk := clock.NewFake(0)
			s := NewSessionScope(&ApplicationScope{applicationID: "app"}, SessionOptions{
				SampleRate: rate,
				Clock:      clk,
				Sampler:    func() float64 { return rng.Float64() * 100 },
			})

			const n = 20000
			kept := 0
			for i := 0; i < n; i++ {
				s.reset()
				if s.updateSessionIDIfNeeded() {
					kept++
				}
			}
			got := float64(kept) / n
			if math.Abs(got-rate/100) > 0.015 {
				t.Errorf("kept fraction %.4f, want %.4f", got, rate/100)
			}
		})
	}
}

func TestSession_InactivityRotation(t *testing.T) {
	app, clk, rot := newTestApp(100)
	s := app.Session()

	app.HandleEvent(StartView{EventTime: Now(clk), Key: "home"}, NoOpWriter)
	first, _ := s.State()

	clk.Advance(14 * time.Minute)
	app.HandleEvent(KeepAlive{EventTime: Now(clk)}, NoOpWriter)
	if id, _ := s.State(); id != first {
		t.Fatalf("expected the session to survive 14 minutes of inactivity")
	}

	clk.Advance(15*time.Minute + time.Second)
	app.HandleEvent(AddError{EventTime: Now(clk), Message: "late"}, NoOpWriter)
	second, keep := s.State()
	if second == first || !keep {
		t.Fatalf("expected rotation after inactivity, got %s (was %s)", second, first)
	}
	if len(rot.ids) != 2 {
		t.Errorf("expected 2 rotations, got %d", len(rot.ids))
	}
}

func TestSession_MaxDurationRotation(t *testing.T) {
	app, clk, rot := newTestApp(100)
	app.HandleEvent(KeepAlive{EventTime: Now(clk)}, NoOpWriter)
	for i := 0; i < 24; i++ {
		clk.Advance(10 * time.Minute)
		app.HandleEvent(KeepAlive{EventTime: Now(clk)}, NoOpWriter)
	}
	if len(rot.ids) != 2 {
		t.Fatalf("expected a rotation after 4 hours, got %d sessions", len(rot.ids))
	}
}

func TestSession_UnsampledWritesNothing(t *testing.T) {
	app, clk, rot := newTestApp(0)
	log := &eventLog{}
	app.HandleEvent(StartView{EventTime: Now(clk), Key: "home"}, log)
	app.HandleEvent(AddError{EventTime: Now(clk), Message: "boom"}, log)

	if log.len() != 0 {
		t.Errorf("expected no writes for an unsampled session, got %d", log.len())
	}
	if len(rot.discarded) != 1 || !rot.discarded[0] {
		t.Errorf("expected a discarded session notification, got %+v", rot)
	}
	if ctx := app.ActiveContext(); ctx.SessionID != NullUUID {
		t.Errorf("expected the null session in context, got %+v", ctx)
	}
	if len(app.Session().Children()) != 1 {
		t.Errorf("expected the view to be tracked anyway")
	}
}

func TestSession_OrphanEvents(t *testing.T) {
	tests := []struct {
		name       string
		event      func(EventTime) RawEvent
		wantView   bool
		wantWrites EventType
	}{
		{"error", func(at EventTime) RawEvent { return AddError{EventTime: at, Message: "x"} }, true, EventError},
		{"long task", func(at EventTime) RawEvent { return AddLongTask{EventTime: at, Duration: time.Second} }, true, EventLongTask},
		{"action", func(at EventTime) RawEvent { return StartAction{EventTime: at, Type: ActionTap} }, true, ""},
		{"resource", func(at EventTime) RawEvent { return StartResource{EventTime: at, Key: "r", URL: "https://x"} }, true, ""},
		{"stop view", func(at EventTime) RawEvent { return StopView{EventTime: at, Key: "x"} }, false, ""},
		{"stop resource", func(at EventTime) RawEvent { return StopResource{EventTime: at, Key: "r"} }, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, clk, _ := newTestApp(100)
			log := &eventLog{}
			app.HandleEvent(tt.event(Now(clk)), log)

			children := app.Session().Children()
			if got := len(children) == 1; got != tt.wantView {
				t.Fatalf("background view created = %v, want %v", got, tt.wantView)
			}
			if !tt.wantView {
				return
			}
			v := children[0].(*ViewScope)
			if !v.IsBackground() || v.Context().ViewURL != BackgroundViewURL || v.Context().ViewName != BackgroundViewName {
				t.Errorf("expected a background view, got %+v", v.Context())
			}
			if tt.wantWrites != "" {
				got := log.ofType(tt.wantWrites)
				if len(got) != 1 || got[0].Context.ViewURL != BackgroundViewURL {
					t.Errorf("expected one %s event on the background view, got %+v", tt.wantWrites, got)
				}
			}
		})
	}
}

func TestSession_ApplicationStarted(t *testing.T) {
	clk := clock.NewFake(1_000)
	clk.Advance(5 * time.Second)
	app := NewApplicationScope("app", SessionOptions{SampleRate: 100, Clock: clk, ProcessStartNanos: int64(time.Second)})
	log := &eventLog{}

	app.HandleEvent(StartView{EventTime: Now(clk), Key: "a"}, log)
	clk.Advance(time.Second)
	app.HandleEvent(StartView{EventTime: Now(clk), Key: "b"}, log)

	starts := appStarts(log)
	if len(starts) != 1 {
		t.Fatalf("expected one application start, got %d", len(starts))
	}
	if got := starts[0].Action.LoadingTime; got != int64(4*time.Second) {
		t.Errorf("loading time = %v, want 4s", time.Duration(got))
	}

	clk.Advance(time.Second)
	app.HandleEvent(ResetSession{EventTime: Now(clk)}, log)
	resetAt := clk.NanoTime()
	clk.Advance(500 * time.Millisecond)
	app.HandleEvent(StartView{EventTime: Now(clk), Key: "c"}, log)

	starts = appStarts(log)
	if len(starts) != 2 {
		t.Fatalf("expected a second application start after reset, got %d", len(starts))
	}
	if got := starts[1].Action.LoadingTime; got != clk.NanoTime()-resetAt {
		t.Errorf("loading time after reset = %v, want 500ms", time.Duration(got))
	}
}

func appStarts(log *eventLog) []Event {
	var out []Event
	for _, e := range log.ofType(EventAction) {
		if e.Action.Type == ActionApplicationStart {
			out = append(out, e)
		}
	}
	return out
}
