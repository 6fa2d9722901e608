package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/prefcat/pivot"
)

// TableFormatter outputs a table as an aligned text grid
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new text grid formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (f *TableFormatter) SetOutput(w io.Writer) {
	f.writer = w
}

// Format renders the grid with row and column totals and a caption
// giving the ballot counts
func (f *TableFormatter) Format(t *pivot.Table) error {
	tw := tablewriter.NewWriter(f.writer)
	tw.SetHeader(header(t))
	tw.SetAutoFormatHeaders(false)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.AppendBulk(rows(t))
	tw.SetFooter(footer(t))
	tw.SetCaption(true, fmt.Sprintf("%d ballots read, %d passed the filter", t.Total, t.Filtered))
	tw.Render()
	return nil
}
