package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", &buf)
	log.Warn().Str("view", "home").Msg("missing view")
	log.Debug().Msg("filtered out")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if m["view"] != "home" || m["level"] != "warn" {
		t.Errorf("unexpected entry: %v", m)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.IncRumEvent("view")
	m.IncSession(true)
	m.IncReplayRecord("meta")
	m.IncDroppedNode()
	m.IncBitmapCache(true)
	m.IncBitmapFailure()
	m.IncDroppedCapture()
}

func TestMetrics_Counts(t *testing.T) {
	m := NewMetrics()
	m.IncRumEvent("error")
	m.IncRumEvent("error")
	m.IncSession(false)
	m.IncBitmapCache(false)

	if got := testutil.ToFloat64(m.RumEvents.WithLabelValues("error")); got != 2 {
		t.Errorf("rum events: got %v", got)
	}
	if got := testutil.ToFloat64(m.Sessions.WithLabelValues("false")); got != 1 {
		t.Errorf("sessions: got %v", got)
	}
	if got := testutil.ToFloat64(m.BitmapCache.WithLabelValues("miss")); got != 1 {
		t.Errorf("cache misses: got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "rum_replay_rum_events_total") {
		t.Error("metrics endpoint should expose rum_events_total")
	}
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
