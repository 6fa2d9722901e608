package output

import (
	"encoding/json"
	"io"

	"github.com/vegasq/prefcat/pivot"
)

// JSONFormatter outputs a table as one JSON object per line
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes the table as a single line of JSON
func (j *JSONFormatter) Format(t *pivot.Table) error {
	return json.NewEncoder(j.writer).Encode(t)
}
