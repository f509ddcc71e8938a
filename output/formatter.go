package output

import (
	"io"
	"strings"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/table"
)

// Formatter defines the interface for output formatters.
//
// Implementers must provide Format to render a table in the target format
// and SetOutput to change the output destination.
type Formatter interface {
	// Format writes every row of t, columns in table order
	Format(t *table.Table) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// Names lists the accepted formatter names.
var Names = []string{"table", "csv", "json"}

// New returns the formatter registered under name.
func New(name string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(name) {
	case "table", "":
		return NewTableFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "json", "jsonl":
		return NewJSONFormatter(w), nil
	}
	return nil, errors.Newf(errors.ErrInvalidConfig, "unknown output format %q (want one of %s)", name, strings.Join(Names, ", "))
}
