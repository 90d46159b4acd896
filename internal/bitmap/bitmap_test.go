package bitmap

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/image/draw"

	"github.com/mj1618/rum-replay/internal/observability"
	"github.com/mj1618/rum-replay/internal/uithread"
)

type fakeSource struct {
	key   string
	w, h  int
	err   error
	delay time.Duration
	draws atomic.Int32
}

func (f *fakeSource) CacheKey() string { return f.key }
func (f *fakeSource) Size() (int, int) { return f.w, f.h }
func (f *fakeSource) Draw(dst draw.Image) error {
	f.draws.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return f.err
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.RGBA{R: 255, A: 255}), image.Point{}, draw.Src)
	return nil
}

type nativeSource struct {
	fakeSource
	img image.Image
}

func (n *nativeSource) Native() (image.Image, error) { return n.img, nil }

func await(t *testing.T, s *Serializer, src Source) Result {
	t.Helper()
	ch := make(chan Result, 1)
	s.HandleBitmap(src, func(r Result) { ch <- r })
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}
	return Result{}
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h, limit  int
		wantW, wantH int
	}{
		{"fits", 10, 10, 15000, 10, 10},
		{"exact", 50, 75, 15000, 50, 75},
		{"wide", 400, 100, 15000, 61, 15},
		{"tall", 100, 400, 15000, 15, 61},
		{"square", 200, 200, 15000, 61, 61},
		{"empty", 0, 10, 15000, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := ScaledSize(tt.w, tt.h, tt.limit)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("ScaledSize(%d, %d) = %dx%d, want %dx%d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
			}
			if tt.w > 0 && w*h*4 > tt.limit {
				t.Errorf("scaled size %dx%d exceeds %d bytes", w, h, tt.limit)
			}
		})
	}
}

func TestCache_EntryBound(t *testing.T) {
	c, err := NewCache(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	c.Put("a", "1")
	c.Put("b", "2")
	c.Get("a")
	c.Put("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Error("expected least recently used entry to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected recently used entry to survive")
	}
	if c.Bytes() != 2 {
		t.Errorf("expected 2 bytes tracked, got %d", c.Bytes())
	}
}

func TestCache_ByteBound(t *testing.T) {
	c, _ := NewCache(100, 10)
	c.Put("a", "xxxx")
	c.Put("b", "yyyy")
	c.Put("c", "zzzz")
	if c.Len() != 2 {
		t.Errorf("expected 2 entries under byte bound, got %d", c.Len())
	}
	if c.Bytes() > 10 {
		t.Errorf("byte bound exceeded: %d", c.Bytes())
	}
	c.Put("big", strings.Repeat("x", 11))
	if _, ok := c.Get("big"); ok {
		t.Error("value larger than the bound should not be stored")
	}
	c.Put("c", "z")
	if c.Bytes() != 5 {
		t.Errorf("expected replaced value accounted, got %d bytes", c.Bytes())
	}
}

func TestCache_Purge(t *testing.T) {
	c, _ := NewCache(10, 0)
	c.Put("a", "1")
	c.Purge()
	if c.Len() != 0 || c.Bytes() != 0 {
		t.Errorf("expected empty cache, got %d entries %d bytes", c.Len(), c.Bytes())
	}
}

func TestSerializer_EncodesPNG(t *testing.T) {
	s, err := New(Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	r := await(t, s, &fakeSource{key: "red", w: 200, h: 100})
	if r.IsEmpty() || r.MimeType != MimeType {
		t.Fatalf("expected encoded png, got %+v", r)
	}
	raw, err := base64.StdEncoding.DecodeString(r.Base64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != r.Width || b.Dy() != r.Height {
		t.Errorf("decoded %dx%d, result says %dx%d", b.Dx(), b.Dy(), r.Width, r.Height)
	}
	if b.Dx()*b.Dy()*4 > DefaultMaxBytes {
		t.Errorf("bitmap %dx%d exceeds the size ceiling", b.Dx(), b.Dy())
	}
}

func TestSerializer_CacheHitIsSynchronous(t *testing.T) {
	m := observability.NewMetrics()
	s, _ := New(Options{Workers: 1, Metrics: m})
	defer s.Close()

	src := &fakeSource{key: "k", w: 10, h: 10}
	first := await(t, s, src)

	called := false
	s.HandleBitmap(src, func(r Result) {
		called = true
		if r.Base64 != first.Base64 {
			t.Error("cache hit returned different data")
		}
	})
	if !called {
		t.Error("expected synchronous callback on cache hit")
	}
	if src.draws.Load() != 1 {
		t.Errorf("expected one draw, got %d", src.draws.Load())
	}
	if got := testutil.ToFloat64(m.BitmapCache.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 cache hit, got %v", got)
	}
}

func TestSerializer_FailureYieldsEmptyResult(t *testing.T) {
	s, _ := New(Options{Workers: 1})
	defer s.Close()

	r := await(t, s, &fakeSource{key: "broken", w: 10, h: 10, err: errors.New("no canvas")})
	if !r.IsEmpty() {
		t.Errorf("expected empty result, got %+v", r)
	}
	if s.Cache().Len() != 0 {
		t.Error("failed bitmaps must not be cached")
	}
	r = await(t, s, &fakeSource{key: "zero", w: 0, h: 0})
	if !r.IsEmpty() {
		t.Errorf("expected empty result for zero size, got %+v", r)
	}
}

func TestSerializer_ConcurrentSameKey(t *testing.T) {
	s, _ := New(Options{Workers: 4, QueueSize: 64})
	defer s.Close()

	src := &fakeSource{key: "shared", w: 20, h: 20, delay: 20 * time.Millisecond}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var results []Result
	for i := 0; i < 8; i++ {
		wg.Add(1)
		s.HandleBitmap(src, func(r Result) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	if len(results) != 8 {
		t.Fatalf("expected 8 callbacks, got %d", len(results))
	}
	for _, r := range results {
		if r.IsEmpty() || r.Base64 != results[0].Base64 {
			t.Fatal("every caller should receive the same encoded bitmap")
		}
	}
	if n := src.draws.Load(); n >= 8 {
		t.Errorf("expected coalesced work, got %d draws", n)
	}
}

func TestSerializer_DrawsOnLoop(t *testing.T) {
	loop := uithread.New(4)
	defer loop.Close()
	s, _ := New(Options{Workers: 1, Loop: loop})
	defer s.Close()

	r := await(t, s, &fakeSource{key: "loop", w: 8, h: 8})
	if r.IsEmpty() {
		t.Error("expected bitmap drawn on the loop")
	}
}

func TestSerializer_NativeImageScaled(t *testing.T) {
	s, _ := New(Options{Workers: 1, MaxBytes: 400})
	defer s.Close()

	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	src := &nativeSource{fakeSource: fakeSource{key: "native", w: 100, h: 50}, img: img}
	r := await(t, s, src)
	if r.IsEmpty() {
		t.Fatal("expected encoded bitmap")
	}
	if r.Width != 10 || r.Height != 5 {
		t.Errorf("expected 10x5, got %dx%d", r.Width, r.Height)
	}
	if src.draws.Load() != 0 {
		t.Error("native images should be scaled, not drawn")
	}
}

func TestSerializer_QueueFull(t *testing.T) {
	loop := uithread.New(1)
	defer loop.Close()
	block := make(chan struct{})
	loop.Post(func() { <-block })

	s, _ := New(Options{Workers: 1, QueueSize: 1, Loop: loop, DrawTimeout: time.Second})
	defer s.Close()
	defer close(block)

	var empty atomic.Int32
	cb := func(r Result) {
		if r.IsEmpty() {
			empty.Add(1)
		}
	}
	// One job occupies the worker, one fills the queue, the rest are dropped.
	for i := 0; i < 5; i++ {
		s.HandleBitmap(&fakeSource{w: 4, h: 4}, cb)
	}
	if empty.Load() == 0 {
		t.Error("expected dropped jobs to receive an empty result")
	}
}

func TestSerializer_MemoryPressure(t *testing.T) {
	s, _ := New(Options{Workers: 1})
	defer s.Close()
	await(t, s, &fakeSource{key: "a", w: 4, h: 4})
	s.OnMemoryPressure()
	if s.Cache().Len() != 0 {
		t.Error("expected memory pressure to purge the cache")
	}
}

func TestSerializer_Closed(t *testing.T) {
	s, _ := New(Options{Workers: 1})
	s.Close()
	r := await(t, s, &fakeSource{key: "late", w: 4, h: 4})
	if !r.IsEmpty() {
		t.Error("expected empty result after close")
	}
}
