package rum

// Scope consumes raw events. HandleEvent returns the scope itself while it
// is still active and nil once it has ended; parents drop ended children.
// Scopes are driven from a single goroutine.
type Scope interface {
	HandleEvent(e RawEvent, w Writer) Scope
	Context() Context
}

// ApplicationScope is the root of the scope tree. It owns exactly one
// SessionScope, which renews its own identity on rotation.
type ApplicationScope struct {
	applicationID string
	session       *SessionScope
}

// NewApplicationScope builds the root scope and its session.
func NewApplicationScope(applicationID string, opts SessionOptions) *ApplicationScope {
	a := &ApplicationScope{applicationID: applicationID}
	a.session = NewSessionScope(a, opts)
	return a
}

func (a *ApplicationScope) HandleEvent(e RawEvent, w Writer) Scope {
	a.session.HandleEvent(e, w)
	return a
}

func (a *ApplicationScope) Context() Context {
	return Context{ApplicationID: a.applicationID}
}

// Session returns the session scope.
func (a *ApplicationScope) Session() *SessionScope { return a.session }

// ActiveContext is the context of the active view, or the session context
// when no view is active.
func (a *ApplicationScope) ActiveContext() Context {
	return a.session.ActiveContext()
}

// forward hands e to each child and returns the children still active.
func forward(children []Scope, e RawEvent, w Writer) []Scope {
	kept := children[:0]
	for _, c := range children {
		if c.HandleEvent(e, w) != nil {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(children); i++ {
		children[i] = nil
	}
	return kept
}
