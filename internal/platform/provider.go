package platform

import (
	"errors"
	"fmt"
)

// Provider bundles the backends for one UI source.
type Provider struct {
	Reader Reader

	// Watcher is nil when the source cannot report changes.
	Watcher Watcher
}

// ErrUnsupported is returned when no backend is registered.
var ErrUnsupported = errors.New("no UI source backend registered")

// NewProviderFunc is set by backend packages via init().
// See internal/platform/fixture for the file-backed registration.
var NewProviderFunc func(source string) (*Provider, error)

// NewProvider returns a Provider reading from source.
func NewProvider(source string) (*Provider, error) {
	if NewProviderFunc == nil {
		return nil, ErrUnsupported
	}
	if source == "" {
		return nil, fmt.Errorf("ui source is required")
	}
	return NewProviderFunc(source)
}
