package rum

import (
	"time"

	"github.com/google/uuid"
)

const (
	// ActionInactivityThreshold ends an instantaneous action once no side
	// effect (resource, error) has been seen for this long.
	ActionInactivityThreshold = 100 * time.Millisecond
	ActionMaxDuration         = 10 * time.Second
)

// ActionScope tracks one user action and the side effects it triggers.
type ActionScope struct {
	parent      *ViewScope
	id          string
	typ         ActionType
	name        string
	waitForStop bool
	start       EventTime

	lastSideEffectNs int64
	ongoing          map[string]struct{}
	resourceCount    int64
	errorCount       int64
	stopped          bool
	sent             bool
}

func newActionScope(parent *ViewScope, e StartAction) *ActionScope {
	return &ActionScope{
		parent:           parent,
		id:               uuid.NewString(),
		typ:              e.Type,
		name:             e.Name,
		waitForStop:      e.WaitForStop,
		start:            e.EventTime,
		lastSideEffectNs: e.Nanos,
		ongoing:          map[string]struct{}{},
	}
}

func (a *ActionScope) Context() Context {
	ctx := a.parent.Context()
	ctx.ActionID = a.id
	return ctx
}

func (a *ActionScope) HandleEvent(e RawEvent, w Writer) Scope {
	now := e.Time().Nanos
	inactive := now-a.lastSideEffectNs >= int64(ActionInactivityThreshold)
	if inactive && len(a.ongoing) == 0 && (!a.waitForStop || a.stopped) {
		return a.send(w)
	}
	if now-a.start.Nanos >= int64(ActionMaxDuration) {
		return a.send(w)
	}

	switch ev := e.(type) {
	case StartView, StopView:
		return a.send(w)
	case StopAction:
		if !a.waitForStop {
			break
		}
		if ev.Type != "" {
			a.typ = ev.Type
		}
		if ev.Name != "" {
			a.name = ev.Name
		}
		a.stopped = true
		a.lastSideEffectNs = now
		if len(a.ongoing) == 0 {
			return a.send(w)
		}
	case StartResource:
		a.ongoing[ev.Key] = struct{}{}
		a.lastSideEffectNs = now
	case StopResource:
		if _, ok := a.ongoing[ev.Key]; ok {
			delete(a.ongoing, ev.Key)
			a.resourceCount++
			a.lastSideEffectNs = now
		}
	case StopResourceWithError:
		if _, ok := a.ongoing[ev.Key]; ok {
			delete(a.ongoing, ev.Key)
			a.errorCount++
			a.lastSideEffectNs = now
		}
	case AddError:
		a.errorCount++
		a.lastSideEffectNs = now
	}
	return a
}

func (a *ActionScope) send(w Writer) Scope {
	if a.sent {
		return nil
	}
	a.sent = true
	w.Write(Event{
		Type:      EventAction,
		Timestamp: a.start.Timestamp,
		Context:   a.Context(),
		Action: &ActionData{
			ID:            a.id,
			Type:          a.typ,
			Name:          a.name,
			LoadingTime:   max(a.lastSideEffectNs-a.start.Nanos, 1),
			ResourceCount: a.resourceCount,
			ErrorCount:    a.errorCount,
		},
	})
	return nil
}
