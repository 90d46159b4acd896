package rum

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Background views collect events reported while no view is active.
const (
	BackgroundViewURL  = "com/datadog/background/view"
	BackgroundViewName = "Background"
)

// ViewScope tracks one view. It owns at most one action and any number of
// resources; after it stops it lives on until they have all ended.
type ViewScope struct {
	parent     Scope
	id         string
	key        string
	name       string
	url        string
	background bool
	start      EventTime
	logger     zerolog.Logger

	version       int64
	stopped       bool
	stopNanos     int64
	actionCount   int64
	resourceCount int64
	errorCount    int64
	longTaskCount int64

	action    *ActionScope
	resources map[string]*ResourceScope
}

// NewViewScope starts a view for a StartView event.
func NewViewScope(parent Scope, e StartView, logger zerolog.Logger) *ViewScope {
	url := e.URL
	if url == "" {
		url = e.Key
	}
	name := e.Name
	if name == "" {
		name = e.Key
	}
	return &ViewScope{
		parent:    parent,
		id:        uuid.NewString(),
		key:       e.Key,
		name:      name,
		url:       url,
		start:     e.EventTime,
		logger:    logger,
		resources: map[string]*ResourceScope{},
	}
}

func newBackgroundViewScope(parent Scope, at EventTime, logger zerolog.Logger) *ViewScope {
	v := NewViewScope(parent, StartView{EventTime: at, Name: BackgroundViewName, URL: BackgroundViewURL}, logger)
	v.background = true
	return v
}

func (v *ViewScope) ID() string         { return v.id }
func (v *ViewScope) Key() string        { return v.key }
func (v *ViewScope) IsBackground() bool { return v.background }
func (v *ViewScope) IsActive() bool     { return !v.stopped }

func (v *ViewScope) Context() Context {
	ctx := v.parent.Context()
	ctx.ViewID = v.id
	ctx.ViewName = v.name
	ctx.ViewURL = v.url
	if v.action != nil {
		ctx.ActionID = v.action.id
	}
	return ctx
}

func (v *ViewScope) HandleEvent(e RawEvent, w Writer) Scope {
	changed := v.delegateToChildren(e, w)

	switch ev := e.(type) {
	case StartView:
		changed = v.stop(ev.Nanos) || changed
	case StopView:
		if ev.Key == v.key {
			changed = v.stop(ev.Nanos) || changed
		}
	case KeepAlive:
		changed = changed || !v.stopped
	case StartAction:
		v.startAction(ev)
	case StartResource:
		if !v.stopped {
			v.resources[ev.Key] = newResourceScope(v, ev)
		}
	case AddError:
		if !v.stopped {
			v.writeError(w, ev.Timestamp, ErrorData{Message: ev.Message, Source: ev.Source, IsFatal: ev.IsFatal})
			v.errorCount++
			changed = true
		}
	case AddLongTask:
		if !v.stopped {
			w.Write(Event{
				Type:      EventLongTask,
				Timestamp: ev.Timestamp - ev.Duration.Milliseconds(),
				Context:   v.Context(),
				LongTask:  &LongTaskData{Duration: int64(ev.Duration), Target: ev.Target},
			})
			v.longTaskCount++
			changed = true
		}
	case ApplicationStarted:
		if !v.stopped {
			ctx := v.Context()
			w.Write(Event{
				Type:      EventAction,
				Timestamp: ev.Timestamp,
				Context:   ctx,
				Action: &ActionData{
					ID:          uuid.NewString(),
					Type:        ActionApplicationStart,
					LoadingTime: ev.Nanos - ev.StartupNanos,
				},
			})
			v.actionCount++
			changed = true
		}
	}

	if changed {
		v.writeView(w, e.Time())
	}
	if v.stopped && v.action == nil && len(v.resources) == 0 {
		return nil
	}
	return v
}

// delegateToChildren forwards e to the active action and resources and
// reports whether any of them ended.
func (v *ViewScope) delegateToChildren(e RawEvent, w Writer) bool {
	changed := false
	if a := v.action; a != nil && a.HandleEvent(e, w) == nil {
		v.action = nil
		if a.sent {
			v.actionCount++
			changed = true
		}
	}
	for key, r := range v.resources {
		if r.HandleEvent(e, w) != nil {
			continue
		}
		delete(v.resources, key)
		if r.failed {
			v.errorCount++
		} else {
			v.resourceCount++
		}
		changed = true
	}
	return changed
}

func (v *ViewScope) startAction(e StartAction) {
	switch {
	case v.stopped:
		return
	case v.action != nil:
		v.logger.Debug().Str("action", e.Name).Str("active", v.action.name).
			Msg("action dropped, another action is still active")
	default:
		v.action = newActionScope(v, e)
	}
}

func (v *ViewScope) stop(nanos int64) bool {
	if v.stopped {
		return false
	}
	v.stopped = true
	v.stopNanos = nanos
	return true
}

func (v *ViewScope) writeError(w Writer, ts int64, data ErrorData) {
	if data.Source == "" {
		data.Source = SourceSource
	}
	w.Write(Event{Type: EventError, Timestamp: ts, Context: v.Context(), Error: &data})
}

func (v *ViewScope) writeView(w Writer, at EventTime) {
	v.version++
	end := at.Nanos
	if v.stopped {
		end = v.stopNanos
	}
	ctx := v.Context()
	ctx.ActionID = ""
	w.Write(Event{
		Type:      EventView,
		Timestamp: v.start.Timestamp,
		Context:   ctx,
		View: &ViewData{
			ID:            v.id,
			Name:          v.name,
			URL:           v.url,
			TimeSpent:     max(end-v.start.Nanos, 1),
			Version:       v.version,
			IsActive:      !v.stopped,
			ActionCount:   v.actionCount,
			ResourceCount: v.resourceCount,
			ErrorCount:    v.errorCount,
			LongTaskCount: v.longTaskCount,
		},
	})
}
