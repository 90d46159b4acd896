package rum

import (
	"time"

	"github.com/mj1618/rum-replay/internal/clock"
)

// EventTime is when a raw event happened on both clocks: Timestamp in epoch
// milliseconds for written events, Nanos on the monotonic clock for session
// and scope timing.
type EventTime struct {
	Timestamp int64
	Nanos     int64
}

// Now reads both clocks.
func Now(c clock.Clock) EventTime {
	return EventTime{Timestamp: c.NowMillis(), Nanos: c.NanoTime()}
}

// Time returns the event time. Embedding EventTime makes a struct a RawEvent.
func (t EventTime) Time() EventTime { return t }

func (EventTime) isRawEvent() {}

// RawEvent is an input to the scope tree. The set of events is closed.
type RawEvent interface {
	Time() EventTime
	isRawEvent()
}

// ActionType classifies user actions.
type ActionType string

const (
	ActionTap              ActionType = "tap"
	ActionScroll           ActionType = "scroll"
	ActionSwipe            ActionType = "swipe"
	ActionClick            ActionType = "click"
	ActionCustom           ActionType = "custom"
	ActionApplicationStart ActionType = "application_start"
)

// ErrorSource tells where an error came from.
type ErrorSource string

const (
	SourceSource  ErrorSource = "source"
	SourceNetwork ErrorSource = "network"
	SourceLogger  ErrorSource = "logger"
	SourceConsole ErrorSource = "console"
)

type StartView struct {
	EventTime
	Key  string
	Name string
	URL  string
}

type StopView struct {
	EventTime
	Key string
}

type StartAction struct {
	EventTime
	Type ActionType
	Name string

	// WaitForStop marks a continuous action that ends with StopAction rather
	// than after a short inactivity window.
	WaitForStop bool
}

type StopAction struct {
	EventTime
	Type ActionType
	Name string
}

type StartResource struct {
	EventTime
	Key    string
	URL    string
	Method string
}

type StopResource struct {
	EventTime
	Key        string
	StatusCode int
	Size       int64
	Kind       string
}

type StopResourceWithError struct {
	EventTime
	Key     string
	Message string
	Source  ErrorSource
}

type AddError struct {
	EventTime
	Message string
	Source  ErrorSource
	IsFatal bool
}

type AddLongTask struct {
	EventTime
	Duration time.Duration
	Target   string
}

// ResetSession invalidates the current session; the next event starts a new
// one.
type ResetSession struct {
	EventTime
}

// KeepAlive carries no data. It lets time-based scopes such as actions
// expire when nothing else happens.
type KeepAlive struct {
	EventTime
}

// ApplicationStarted is sent to the first view of a session. StartupNanos is
// the monotonic time the application (or the reset session) started.
type ApplicationStarted struct {
	EventTime
	StartupNanos int64
}
