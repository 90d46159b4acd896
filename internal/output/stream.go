package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/rum-replay/internal/model"
	"github.com/mj1618/rum-replay/internal/rum"
)

// Stream writes a sequence of values: one JSON object per line, or one YAML
// document per value. It is safe for concurrent use. The first encoding
// error is kept and later values are discarded.
type Stream struct {
	mu   sync.Mutex
	json *json.Encoder
	yaml *yaml.Encoder
	n    int
	err  error
}

func NewStream(w io.Writer, f Format) (*Stream, error) {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return &Stream{json: enc}, nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return &Stream{yaml: enc}, nil
	}
	return nil, fmt.Errorf("unsupported output format: %s", f)
}

// Encode appends v to the stream.
func (s *Stream) Encode(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.json != nil {
		s.err = s.json.Encode(v)
	} else {
		s.err = s.yaml.Encode(v)
	}
	if s.err != nil {
		s.err = fmt.Errorf("encode stream value: %w", s.err)
		return s.err
	}
	s.n++
	return nil
}

// Count returns how many values were written.
func (s *Stream) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Err returns the first encoding error.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close flushes a YAML stream.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.yaml != nil {
		if err := s.yaml.Close(); err != nil && s.err == nil {
			s.err = err
		}
	}
	return s.err
}

// RecordWriter streams enriched replay records.
type RecordWriter struct{ *Stream }

func (w RecordWriter) Write(rec model.EnrichedRecord) { _ = w.Encode(rec) }

// EventWriter streams RUM events.
type EventWriter struct{ *Stream }

func (w EventWriter) Write(e rum.Event) { _ = w.Encode(e) }
