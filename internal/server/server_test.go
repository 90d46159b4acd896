package server

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/rum-replay/internal/clock"
	"github.com/mj1618/rum-replay/internal/model"
	"github.com/mj1618/rum-replay/internal/observability"
	"github.com/mj1618/rum-replay/internal/platform"
	"github.com/mj1618/rum-replay/internal/recorder"
	"github.com/mj1618/rum-replay/internal/recorder/mapper"
	"github.com/mj1618/rum-replay/internal/rum"
	"github.com/mj1618/rum-replay/internal/uithread"
)

type staticReader struct {
	win   model.Window
	reads *int
}

func (r staticReader) ReadWindow() (*model.Window, error) {
	if r.reads != nil {
		*r.reads++
	}
	w := r.win
	return &w, nil
}

func window(label string) model.Window {
	return model.Window{
		System: model.SystemInformation{Screen: model.ScreenBounds{Width: 400, Height: 800}, Density: 1},
		Root: model.Element{ID: 1, Kind: model.KindGroup, Bounds: [4]int{0, 0, 400, 800}, Children: []model.Element{
			{ID: 2, Kind: model.KindText, Bounds: [4]int{10, 10, 200, 40}, Text: label},
		}},
	}
}

func newTestServer(t *testing.T, sources map[string]model.Window) *Server {
	t.Helper()
	loop := uithread.New(8)
	t.Cleanup(loop.Close)
	clk := clock.NewFake(1_700_000_000_000)
	app := rum.NewApplicationScope("app", rum.SessionOptions{SampleRate: 100, Clock: clk})
	monitor := rum.NewMonitor(app, rum.NoOpWriter, rum.MonitorOptions{Clock: clk})
	t.Cleanup(monitor.Close)

	s, err := New(Options{
		Traversal: recorder.NewTraversal(mapper.Default(nil), nil),
		Loop:      loop,
		Monitor:   monitor,
		Open: func(source string) (platform.Reader, error) {
			win, ok := sources[source]
			if !ok {
				return nil, errors.New("no such source")
			}
			return staticReader{win: win}, nil
		},
		ImageWait: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult, err error) string {
	t.Helper()
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content %T", res.Content[0])
	}
	return tc.Text
}

func TestSnapshot(t *testing.T) {
	s := newTestServer(t, map[string]model.Window{"home": window("Hello Ada")})
	tests := []struct {
		privacy string
		want    string
	}{
		{"allow", "Hello Ada"},
		{"mask", "xxxxx xxx"},
	}
	for _, tt := range tests {
		t.Run(tt.privacy, func(t *testing.T) {
			res, err := s.handleSnapshot(context.Background(), call(map[string]interface{}{"source": "home", "privacy": tt.privacy}))
			text := resultText(t, res, err)
			if res.IsError {
				t.Fatalf("tool error: %s", text)
			}
			var out SnapshotResult
			if err := yaml.Unmarshal([]byte(text), &out); err != nil {
				t.Fatal(err)
			}
			if out.Elements != 2 || len(out.Wireframes) != 2 || out.Wireframes[1].Text != tt.want {
				t.Errorf("unexpected snapshot %+v", out)
			}
		})
	}
}

func TestSnapshot_CountsDroppedNodes(t *testing.T) {
	loop := uithread.New(8)
	t.Cleanup(loop.Close)
	monitor := rum.NewMonitor(rum.NewApplicationScope("app", rum.SessionOptions{}), rum.NoOpWriter, rum.MonitorOptions{})
	t.Cleanup(monitor.Close)
	metrics := observability.NewMetrics()

	fail := mapper.MapperFunc(func(model.Element, mapper.Context, *mapper.AsyncJobs) ([]*model.Wireframe, error) {
		return nil, errors.New("broken mapper")
	})
	broken := mapper.Registry{{Kind: model.KindText, Mapper: fail}}
	s, err := New(Options{
		Traversal: recorder.NewTraversal(broken, nil),
		Loop:      loop,
		Monitor:   monitor,
		Open: func(string) (platform.Reader, error) {
			return staticReader{win: window("Hello")}, nil
		},
		ImageWait: 10 * time.Millisecond,
		Metrics:   metrics,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.handleSnapshot(context.Background(), call(map[string]interface{}{"source": "home"}))
	if text := resultText(t, res, err); res.IsError {
		t.Fatalf("tool error: %s", text)
	}
	if got := testutil.ToFloat64(metrics.DroppedNodes); got != 1 {
		t.Errorf("dropped nodes = %v, want 1", got)
	}
}

func TestSnapshot_Errors(t *testing.T) {
	s := newTestServer(t, map[string]model.Window{"home": window("x")})
	tests := []map[string]interface{}{
		{},
		{"source": "missing"},
		{"source": "home", "privacy": "blur"},
	}
	for _, args := range tests {
		res, err := s.handleSnapshot(context.Background(), call(args))
		resultText(t, res, err)
		if !res.IsError {
			t.Errorf("expected a tool error for %v", args)
		}
	}
}

func TestDiff(t *testing.T) {
	s := newTestServer(t, map[string]model.Window{
		"a": window("one"),
		"b": window("two"),
	})
	res, err := s.handleDiff(context.Background(), call(map[string]interface{}{"before": "a", "after": "b", "privacy": "allow"}))
	text := resultText(t, res, err)
	var out DiffResult
	if err := yaml.Unmarshal([]byte(text), &out); err != nil {
		t.Fatal(err)
	}
	if out.Mutation == nil || len(out.Mutation.Updates) != 1 || *out.Mutation.Updates[0].Text != "two" {
		t.Errorf("unexpected diff %s", text)
	}

	res, err = s.handleDiff(context.Background(), call(map[string]interface{}{"before": "a", "after": "a"}))
	text = resultText(t, res, err)
	if !strings.Contains(text, "mutation: null") {
		t.Errorf("expected no mutation, got %s", text)
	}
}

func TestSessionContext(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	res, err := s.handleSessionContext(ctx, call(map[string]interface{}{"view": "home", "name": "Home"}))
	var first rum.Context
	if err := yaml.Unmarshal([]byte(resultText(t, res, err)), &first); err != nil {
		t.Fatal(err)
	}
	if first.ViewName != "Home" || first.SessionID == rum.NullUUID || first.ApplicationID != "app" {
		t.Fatalf("unexpected context %+v", first)
	}

	res, err = s.handleSessionContext(ctx, call(map[string]interface{}{"reset": true, "view": "cart"}))
	var second rum.Context
	if err := yaml.Unmarshal([]byte(resultText(t, res, err)), &second); err != nil {
		t.Fatal(err)
	}
	if second.SessionID == first.SessionID || second.ViewName != "cart" {
		t.Errorf("expected a new session on cart, got %+v", second)
	}
}

func TestWindowCache(t *testing.T) {
	var reads int
	r := staticReader{win: window("a"), reads: &reads}

	c := NewWindowCache(time.Minute)
	for i := 0; i < 3; i++ {
		if _, err := c.ReadWindow("home", r); err != nil {
			t.Fatal(err)
		}
	}
	if reads != 1 {
		t.Errorf("reads = %d, want 1", reads)
	}
	c.Invalidate("home")
	_, _ = c.ReadWindow("home", r)
	c.InvalidateAll()
	_, _ = c.ReadWindow("home", r)
	if reads != 3 {
		t.Errorf("reads = %d, want 3", reads)
	}

	reads = 0
	off := NewWindowCache(0)
	_, _ = off.ReadWindow("home", r)
	_, _ = off.ReadWindow("home", r)
	if reads != 2 {
		t.Errorf("disabled cache reads = %d, want 2", reads)
	}
}

func TestNew_RequiresPipeline(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected an error")
	}
}
