// Package output provides formatters for pivot tables.
//
// Currently supported formats:
//   - table: aligned text grid with row and column totals
//   - csv: comma-separated values with a header row
//   - json: the table as a single JSON object
//
// Example usage:
//
//	formatter, err := output.New("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := formatter.Format(table); err != nil {
//	    log.Fatal(err)
//	}
package output

import (
	"fmt"
	"io"

	"github.com/vegasq/prefcat/pivot"
)

// Formatter defines the interface for output formatters.
//
// Implementers must provide Format to render a table in the target format
// and SetOutput to change the output destination.
type Formatter interface {
	// Format writes the table in the formatter's specific format
	Format(t *pivot.Table) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// Formats lists the names accepted by New
var Formats = []string{"table", "csv", "json"}

// New returns the formatter for a format name
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "table", "":
		return NewTableFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want table, csv or json)", format)
}

// header returns the column header row: a corner cell naming the table,
// the column labels and a totals column
func header(t *pivot.Table) []string {
	h := make([]string, 0, len(t.ColLabels)+2)
	corner := t.Title
	if corner == "" {
		corner = t.Mode
	}
	h = append(h, corner)
	h = append(h, t.ColLabels...)
	return append(h, "total")
}

// rows returns the body rows, each prefixed by its label and followed by
// its total
func rows(t *pivot.Table) [][]string {
	totals := t.RowTotals()
	out := make([][]string, len(t.Counts))
	for r, counts := range t.Counts {
		row := make([]string, 0, len(counts)+2)
		row = append(row, t.RowLabels[r])
		for _, n := range counts {
			row = append(row, fmt.Sprintf("%d", n))
		}
		out[r] = append(row, fmt.Sprintf("%d", totals[r]))
	}
	return out
}

// footer returns the column totals row
func footer(t *pivot.Table) []string {
	f := make([]string, 0, len(t.ColLabels)+2)
	f = append(f, "total")
	for _, n := range t.ColTotals() {
		f = append(f, fmt.Sprintf("%d", n))
	}
	return append(f, fmt.Sprintf("%d", t.Sum()))
}
