// Package output renders command results and record streams as YAML or
// JSON.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// ParseFormat converts a flag value to a Format. Empty means YAML.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatYAML, "":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return FormatYAML, fmt.Errorf("unsupported format: %s (use yaml or json)", s)
}

// Print serializes v to stdout in the current output format.
func Print(v interface{}) error {
	return Fprint(os.Stdout, OutputFormat, v)
}

// Fprint serializes v to w in format f.
func Fprint(w io.Writer, f Format, v interface{}) error {
	switch f {
	case FormatJSON:
		return PrintJSON(w, v, PrettyOutput)
	case FormatYAML:
		return PrintYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", f)
	}
}
