package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vegasq/shardstat/table"
)

// CSVFormatter outputs tables as CSV with a header row. Nulls are empty
// cells.
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

// Format writes t as CSV
func (c *CSVFormatter) Format(t *table.Table) error {
	csvWriter := csv.NewWriter(c.writer)

	if err := csvWriter.Write(t.Schema().Names()); err != nil {
		return err
	}

	record := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j, col := range t.Columns() {
			record[j] = sanitize(formatValue(col.Value(i), ""))
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatValue renders one cell, using null for missing values.
func formatValue(v interface{}, null string) string {
	switch val := v.(type) {
	case nil:
		return null
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// sanitize guards against CSV injection by prefixing characters that could
// trigger formula execution in spreadsheet applications. Negative numbers
// are left alone.
func sanitize(val string) string {
	if val == "" {
		return val
	}
	switch val[0] {
	case '=', '+', '-', '@', '\t', '\r', '\n', '|':
		if val[0] == '-' {
			if _, err := strconv.ParseFloat(val, 64); err == nil {
				return val
			}
		}
		return "'" + strings.ReplaceAll(val, "'", "''")
	}
	return val
}
