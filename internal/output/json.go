package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// PrintJSON writes v to w as one JSON value, indented when pretty is set.
func PrintJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}
