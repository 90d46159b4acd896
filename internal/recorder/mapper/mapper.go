// Package mapper converts live UI elements into replay wireframes. Each
// mapper handles one element kind; a Registry resolves the mapper for an
// element by walking its kind chain in registration order.
package mapper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mj1618/rum-replay/internal/model"
)

// Privacy controls how much user content is recorded.
type Privacy string

const (
	PrivacyAllow Privacy = "allow"
	PrivacyMask  Privacy = "mask"
)

// ParsePrivacy converts a config value to a Privacy level.
func ParsePrivacy(s string) (Privacy, error) {
	switch Privacy(strings.ToLower(strings.TrimSpace(s))) {
	case PrivacyAllow:
		return PrivacyAllow, nil
	case PrivacyMask, "":
		return PrivacyMask, nil
	}
	return PrivacyMask, fmt.Errorf("unknown privacy level: %q (expected allow or mask)", s)
}

// Context carries what a mapper needs to know about where an element sits.
type Context struct {
	System                  model.SystemInformation
	Privacy                 Privacy
	Path                    string // hierarchy path of the element being mapped
	Root                    bool   // element is the window root
	HasOptionSelectorParent bool
}

// Mapper produces the wireframes of a single element. Mappers run on the UI
// loop and must not block; slow work is handed off through jobs.
type Mapper interface {
	Map(el model.Element, ctx Context, jobs *AsyncJobs) ([]*model.Wireframe, error)
}

// MapperFunc adapts a function to the Mapper interface.
type MapperFunc func(el model.Element, ctx Context, jobs *AsyncJobs) ([]*model.Wireframe, error)

func (f MapperFunc) Map(el model.Element, ctx Context, jobs *AsyncJobs) ([]*model.Wireframe, error) {
	return f(el, ctx, jobs)
}

// Entry registers a mapper for a kind and all kinds descending from it.
// Descend keeps walking the element's children after mapping it.
type Entry struct {
	Kind    model.Kind
	Mapper  Mapper
	Descend bool
}

// Registry is an ordered, read-only list of entries. More specific kinds
// must be registered before their ancestors.
type Registry []Entry

// Lookup returns the first entry whose kind k satisfies.
func (r Registry) Lookup(k model.Kind) (Entry, bool) {
	for _, e := range r {
		if k.IsA(e.Kind) {
			return e, true
		}
	}
	return Entry{}, false
}

// AsyncJobs tracks work started while mapping one snapshot, such as bitmap
// encoding, whose results are written into wireframes later. Once Wait
// returns, the tracker is sealed and late results are discarded, so the
// snapshot can be read without further synchronization.
type AsyncJobs struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	sealed bool
	count  int
}

// Job is one pending unit of work.
type Job struct {
	jobs *AsyncJobs
	once sync.Once
}

// Begin registers a pending job.
func (a *AsyncJobs) Begin() *Job {
	a.mu.Lock()
	a.count++
	a.mu.Unlock()
	a.wg.Add(1)
	return &Job{jobs: a}
}

// Pending returns the number of jobs started so far.
func (a *AsyncJobs) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// Finish applies the job result and marks it done. apply is skipped when
// the tracker was already sealed. Only the first call has any effect.
func (j *Job) Finish(apply func()) {
	j.once.Do(func() {
		j.jobs.mu.Lock()
		if !j.jobs.sealed && apply != nil {
			apply()
		}
		j.jobs.mu.Unlock()
		j.jobs.wg.Done()
	})
}

// Wait blocks until every job finished or ctx is done, then seals the
// tracker. It returns ctx.Err() when jobs were still pending.
func (a *AsyncJobs) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	a.mu.Lock()
	a.sealed = true
	a.mu.Unlock()
	return err
}

// Default returns the built-in registry, most specific kinds first.
func Default(bitmaps BitmapHandler) Registry {
	text := &TextMapper{}
	return Registry{
		{Kind: model.KindCompound, Mapper: &CheckableMapper{Text: text}},
		{Kind: model.KindImage, Mapper: &ImageMapper{Bitmaps: bitmaps}},
		{Kind: model.KindText, Mapper: text},
	}
}
