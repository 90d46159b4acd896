// Package clock separates the two time sources the SDK relies on: a
// monotonic nanosecond counter for session and snapshot cadence, and the
// wall clock in epoch milliseconds for event and record timestamps.
package clock

import (
	"sync"
	"time"
)

// Clock provides monotonic and wall time. The two values are not
// interchangeable and must never be compared with each other.
type Clock interface {
	// NanoTime returns monotonic nanoseconds since an arbitrary origin.
	NanoTime() int64
	// NowMillis returns the wall clock in epoch milliseconds.
	NowMillis() int64
}

// processStart is the origin of the System monotonic counter.
var processStart = time.Now()

// System is the production clock.
type System struct{}

func (System) NanoTime() int64 { return int64(time.Since(processStart)) }

func (System) NowMillis() int64 { return time.Now().UnixMilli() }

// ProcessStartNanos returns the monotonic time at which the process started,
// expressed on the System clock.
func ProcessStartNanos() int64 { return 0 }

// Fake is a manually advanced clock for tests and simulations.
type Fake struct {
	mu     sync.Mutex
	nanos  int64
	millis int64
}

// NewFake returns a Fake clock whose wall time starts at wallMillis.
func NewFake(wallMillis int64) *Fake {
	return &Fake{millis: wallMillis}
}

func (f *Fake) NanoTime() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nanos
}

func (f *Fake) NowMillis() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.millis
}

// Advance moves both time sources forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.nanos += int64(d)
	f.millis += d.Milliseconds()
	f.mu.Unlock()
}
