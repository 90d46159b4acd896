// Package uithread provides the single designated execution context that owns
// the live UI hierarchy and the drawing canvas. Work posted to a Loop runs
// serially on one goroutine, in submission order.
package uithread

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned when work is submitted to a closed loop.
var ErrClosed = errors.New("ui loop closed")

// Loop runs posted functions one at a time on a dedicated goroutine.
type Loop struct {
	tasks chan func()

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts a loop whose queue holds up to queueSize pending functions.
func New(queueSize int) *Loop {
	if queueSize < 1 {
		queueSize = 1
	}
	l := &Loop{
		tasks: make(chan func(), queueSize),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for task := range l.tasks {
		l.invoke(task)
	}
}

// invoke shields the loop from a panicking task.
func (l *Loop) invoke(task func()) {
	defer func() { _ = recover() }()
	task()
}

// Post schedules fn without waiting. It returns false when the loop is
// closed or its queue is full.
func (l *Loop) Post(fn func()) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return false
	}
	select {
	case l.tasks <- fn:
		return true
	default:
		return false
	}
}

// Run executes fn on the loop and waits for it to return. A panic inside fn
// is converted to an error.
func (l *Loop) Run(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("ui task panicked: %v", r)
			}
		}()
		result <- fn()
	}

	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrClosed
	}
	select {
	case l.tasks <- task:
		l.mu.RUnlock()
	case <-ctx.Done():
		l.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, drains queued functions and waits for the
// loop goroutine to exit. It is safe to call more than once.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.tasks)
	}
	l.mu.Unlock()
	l.wg.Wait()
}
