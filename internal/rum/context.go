// Package rum tracks Real User Monitoring sessions. A tree of scopes
// (application, session, view, action, resource) consumes raw events, decides
// session sampling and rotation, and writes RUM events to a Writer.
package rum

// NullUUID identifies "no session yet" and unsampled contexts.
const NullUUID = "00000000-0000-0000-0000-000000000000"

// Context is the identity attached to every RUM event. It is a value type;
// transitions produce modified copies.
type Context struct {
	ApplicationID string `yaml:"application_id"      json:"application_id"`
	SessionID     string `yaml:"session_id"          json:"session_id"`
	ViewID        string `yaml:"view_id,omitempty"   json:"view_id,omitempty"`
	ViewName      string `yaml:"view_name,omitempty" json:"view_name,omitempty"`
	ViewURL       string `yaml:"view_url,omitempty"  json:"view_url,omitempty"`
	ActionID      string `yaml:"action_id,omitempty" json:"action_id,omitempty"`
}

// NullContext is the context reported while no sampled session exists.
func NullContext() Context {
	return Context{ApplicationID: NullUUID, SessionID: NullUUID, ViewID: NullUUID}
}

// ContextProvider exposes the current RUM context to other features, such as
// the session replay recorder.
type ContextProvider interface {
	Context() Context
}

// ContextProviderFunc adapts a function to ContextProvider.
type ContextProviderFunc func() Context

func (f ContextProviderFunc) Context() Context { return f() }

// StaticContext always returns the same context.
type StaticContext Context

func (c StaticContext) Context() Context { return Context(c) }
