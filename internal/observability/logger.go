// Package observability wires logging, metrics and tracing for the SDK.
package observability

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger returns a leveled zerolog logger writing to w (stderr when nil).
func NewLogger(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
