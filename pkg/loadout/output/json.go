package output

import (
	"bytes"
	"encoding/json"
)

// JSONFormatter emits the report as indented JSON for machine
// consumption.
type JSONFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
