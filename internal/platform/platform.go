// Package platform abstracts where live UI hierarchies come from. Backends
// register themselves through NewProviderFunc from an init function.
package platform

import "github.com/mj1618/rum-replay/internal/model"

// Reader reads the current UI hierarchy together with the device state it
// was captured in.
type Reader interface {
	ReadWindow() (*model.Window, error)
}

// Watcher reports when the hierarchy behind a Reader may have changed.
// Backends that cannot observe changes do not implement it.
type Watcher interface {
	// Watch sends on the returned channel after every change until stop is
	// closed.
	Watch(stop <-chan struct{}) (<-chan struct{}, error)
}
