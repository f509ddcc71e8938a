package output

import (
	"bufio"
	"encoding/json"
	"io"
	"math"

	"github.com/vegasq/shardstat/table"
)

// JSONFormatter outputs tables as JSON Lines, keys in column order.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes one JSON object per row
func (j *JSONFormatter) Format(t *table.Table) error {
	w := bufio.NewWriter(j.writer)
	keys := make([][]byte, t.NumCols())
	for i, name := range t.Schema().Names() {
		k, err := json.Marshal(name)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	for i := 0; i < t.NumRows(); i++ {
		_ = w.WriteByte('{')
		for c, col := range t.Columns() {
			if c > 0 {
				_ = w.WriteByte(',')
			}
			_, _ = w.Write(keys[c])
			_ = w.WriteByte(':')
			v := col.Value(i)
			// JSON has no NaN or Inf
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				v = nil
			}
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			_, _ = w.Write(b)
		}
		_, _ = w.WriteString("}\n")
	}
	return w.Flush()
}
