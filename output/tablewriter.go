package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/shardstat/table"
)

// TableFormatter renders an aligned text table for terminals.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new text table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (f *TableFormatter) SetOutput(w io.Writer) {
	f.writer = w
}

// Format writes t as a bordered table. Nulls print as "null".
func (f *TableFormatter) Format(t *table.Table) error {
	tw := tablewriter.NewWriter(f.writer)
	tw.SetHeader(t.Schema().Names())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)

	alignments := make([]int, t.NumCols())
	for i, col := range t.Columns() {
		if col.Kind().Numeric() {
			alignments[i] = tablewriter.ALIGN_RIGHT
		} else {
			alignments[i] = tablewriter.ALIGN_LEFT
		}
	}
	tw.SetColumnAlignment(alignments)

	for i := 0; i < t.NumRows(); i++ {
		row := make([]string, t.NumCols())
		for j, col := range t.Columns() {
			row[j] = formatValue(col.Value(i), "null")
		}
		tw.Append(row)
	}
	tw.Render()
	return nil
}
