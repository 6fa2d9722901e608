package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/prefcat/pivot"
)

// CSVFormatter outputs tables as CSV format
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes the table as CSV: a header row, one row per row bucket and
// a final totals row
func (c *CSVFormatter) Format(t *pivot.Table) error {
	csvWriter := csv.NewWriter(c.writer)

	records := [][]string{header(t)}
	records = append(records, rows(t)...)
	records = append(records, footer(t))

	for _, record := range records {
		for i, v := range record {
			record[i] = formatValue(v)
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	// Flush and check for errors
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}

	return nil
}

// formatValue makes a cell safe to open in a spreadsheet
func formatValue(val string) string {
	// Sanitize against CSV injection by prefixing dangerous characters
	// that could trigger formula execution in spreadsheet applications.
	// Negative numbers are left alone.
	if len(val) > 0 {
		firstChar := val[0]
		if firstChar == '-' && isNumber(val[1:]) {
			return val
		}
		if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' || firstChar == '\t' || firstChar == '\r' || firstChar == '\n' || firstChar == '|' {
			// Escape existing single quotes and prefix with quote to prevent formula injection
			return "'" + strings.ReplaceAll(val, "'", "''")
		}
	}
	return val
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
