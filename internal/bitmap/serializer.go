// Package bitmap turns visual sources into size-bounded, base64 encoded PNG
// images off the UI loop, memoizing the results in an LRU cache.
package bitmap

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	"golang.org/x/sync/singleflight"

	"github.com/mj1618/rum-replay/internal/observability"
	"github.com/mj1618/rum-replay/internal/uithread"
)

// MimeType of every encoded bitmap.
const MimeType = "image/png"

// Source is a visual that can be rasterized at an arbitrary size.
type Source interface {
	// CacheKey identifies the visual. Empty keys are never cached.
	CacheKey() string
	// Size returns the intrinsic size in pixels.
	Size() (int, int)
	// Draw renders the visual scaled to fill dst.Bounds().
	Draw(dst draw.Image) error
}

// NativeSource is implemented by sources already backed by decoded pixels.
// Those are scaled on a worker instead of being drawn on the UI loop.
type NativeSource interface {
	Source
	Native() (image.Image, error)
}

// Result is the outcome of one HandleBitmap call. A zero Result means the
// bitmap could not be produced.
type Result struct {
	Base64   string
	MimeType string
	Width    int
	Height   int
}

// IsEmpty reports whether no data was produced.
func (r Result) IsEmpty() bool { return r.Base64 == "" }

// Options configures a Serializer.
type Options struct {
	MaxBytes     int // uncompressed size ceiling per bitmap
	CacheEntries int
	CacheBytes   int
	Workers      int
	QueueSize    int
	DrawTimeout  time.Duration
	// Loop is the designated drawing context. Nil draws on the worker.
	Loop    *uithread.Loop
	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

type job struct {
	src Source
	cb  func(Result)
}

// Serializer encodes bitmaps on a fixed pool of workers fed by a bounded
// queue. Callbacks may run on the caller goroutine (cache hits) or on a
// worker; each HandleBitmap call receives exactly one callback.
type Serializer struct {
	cache       *Cache
	group       singleflight.Group
	jobs        chan job
	maxBytes    int
	drawTimeout time.Duration
	loop        *uithread.Loop
	logger      zerolog.Logger
	metrics     *observability.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts a serializer and its workers.
func New(opts Options) (*Serializer, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.CacheEntries <= 0 {
		opts.CacheEntries = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = opts.Workers * 16
	}
	if opts.DrawTimeout <= 0 {
		opts.DrawTimeout = 2 * time.Second
	}
	cache, err := NewCache(opts.CacheEntries, opts.CacheBytes)
	if err != nil {
		return nil, fmt.Errorf("bitmap cache: %w", err)
	}
	s := &Serializer{
		cache:       cache,
		jobs:        make(chan job, opts.QueueSize),
		maxBytes:    opts.MaxBytes,
		drawTimeout: opts.DrawTimeout,
		loop:        opts.Loop,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
	for i := 0; i < opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s, nil
}

// HandleBitmap delivers the encoded form of src to cb. Cache hits call back
// synchronously; misses are encoded asynchronously. When the queue is full,
// the serializer is closed or encoding fails, cb receives an empty Result.
func (s *Serializer) HandleBitmap(src Source, cb func(Result)) {
	if key := src.CacheKey(); key != "" {
		if encoded, ok := s.cache.Get(key); ok {
			s.metrics.IncBitmapCache(true)
			cb(s.cached(src, encoded))
			return
		}
		s.metrics.IncBitmapCache(false)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		cb(Result{})
		return
	}
	select {
	case s.jobs <- job{src: src, cb: cb}:
	default:
		s.logger.Warn().Str("key", src.CacheKey()).Msg("bitmap queue full, dropping image")
		s.metrics.IncBitmapFailure()
		cb(Result{})
	}
}

// OnMemoryPressure releases every cached bitmap.
func (s *Serializer) OnMemoryPressure() {
	s.cache.Purge()
}

// Cache exposes the underlying cache.
func (s *Serializer) Cache() *Cache { return s.cache }

// Close stops the workers after the queued jobs have been served.
func (s *Serializer) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Serializer) worker() {
	defer s.wg.Done()
	for j := range s.jobs {
		j.cb(s.process(j.src))
	}
}

func (s *Serializer) process(src Source) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn().Str("key", src.CacheKey()).Interface("panic", r).Msg("bitmap encoding panicked")
			s.metrics.IncBitmapFailure()
			res = Result{}
		}
	}()

	key := src.CacheKey()
	if key == "" {
		r, err := s.encode(src)
		if err != nil {
			s.fail(src, err)
			return Result{}
		}
		return r
	}
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if encoded, ok := s.cache.Get(key); ok {
			return s.cached(src, encoded), nil
		}
		r, err := s.encode(src)
		if err != nil {
			return nil, err
		}
		s.cache.Put(key, r.Base64)
		return r, nil
	})
	if err != nil {
		s.fail(src, err)
		return Result{}
	}
	return v.(Result)
}

func (s *Serializer) fail(src Source, err error) {
	s.logger.Debug().Err(err).Str("key", src.CacheKey()).Msg("bitmap not produced")
	s.metrics.IncBitmapFailure()
}

var errEmptySize = errors.New("bitmap has no area")

func (s *Serializer) encode(src Source) (Result, error) {
	w, h := src.Size()
	w, h = ScaledSize(w, h, s.maxBytes)
	if w <= 0 || h <= 0 {
		return Result{}, errEmptySize
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := s.rasterize(src, dst); err != nil {
		return Result{}, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return Result{}, fmt.Errorf("encode png: %w", err)
	}
	return Result{
		Base64:   base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType: MimeType,
		Width:    w,
		Height:   h,
	}, nil
}

func (s *Serializer) rasterize(src Source, dst *image.RGBA) error {
	if native, ok := src.(NativeSource); ok {
		img, err := native.Native()
		if err == nil && img != nil && !img.Bounds().Empty() {
			draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
			return nil
		}
		// Fall back to drawing when the native pixels are unusable.
	}
	if s.loop == nil {
		return src.Draw(dst)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.drawTimeout)
	defer cancel()
	return s.loop.Run(ctx, func() error { return src.Draw(dst) })
}

func (s *Serializer) cached(src Source, encoded string) Result {
	w, h := src.Size()
	w, h = ScaledSize(w, h, s.maxBytes)
	return Result{Base64: encoded, MimeType: MimeType, Width: w, Height: h}
}
