package rum

import "github.com/google/uuid"

// ResourceScope tracks one resource load until it stops or fails.
type ResourceScope struct {
	parent *ViewScope
	id     string
	key    string
	url    string
	method string
	start  EventTime
	failed bool
}

func newResourceScope(parent *ViewScope, e StartResource) *ResourceScope {
	method := e.Method
	if method == "" {
		method = "GET"
	}
	return &ResourceScope{
		parent: parent,
		id:     uuid.NewString(),
		key:    e.Key,
		url:    e.URL,
		method: method,
		start:  e.EventTime,
	}
}

func (r *ResourceScope) Context() Context { return r.parent.Context() }

func (r *ResourceScope) HandleEvent(e RawEvent, w Writer) Scope {
	switch ev := e.(type) {
	case StopResource:
		if ev.Key != r.key {
			return r
		}
		w.Write(Event{
			Type:      EventResource,
			Timestamp: r.start.Timestamp,
			Context:   r.Context(),
			Resource: &ResourceData{
				ID:         r.id,
				URL:        r.url,
				Method:     r.method,
				Kind:       ev.Kind,
				StatusCode: ev.StatusCode,
				Size:       ev.Size,
				Duration:   max(ev.Nanos-r.start.Nanos, 1),
			},
		})
		return nil
	case StopResourceWithError:
		if ev.Key != r.key {
			return r
		}
		r.failed = true
		source := ev.Source
		if source == "" {
			source = SourceNetwork
		}
		w.Write(Event{
			Type:      EventError,
			Timestamp: ev.Timestamp,
			Context:   r.Context(),
			Error:     &ErrorData{Message: ev.Message, Source: source, ResourceURL: r.url},
		})
		return nil
	}
	return r
}
