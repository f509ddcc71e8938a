package reader

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/table"
)

// CSVDecoder decodes delimited text shards with a header row.
//
// Only requested columns are materialized. Each column's kind is inferred
// from its non-empty cells: int64 if every cell parses as an integer,
// float64 if every cell parses as a number, string otherwise. Empty cells
// are null. A column with no non-empty cell is a null float64 column.
type CSVDecoder struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// Decode implements Decoder.
func (d CSVDecoder) Decode(path string, columns []string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(bufio.NewReaderSize(f, 1<<16))
	if d.Comma != 0 {
		r.Comma = d.Comma
	}
	r.ReuseRecord = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.Newf(errors.ErrDecode, "%s: missing header row", path)
	}
	if err != nil {
		return nil, errors.Newf(errors.ErrDecode, "%s: %v", path, err)
	}

	positions := make(map[string]int, len(header))
	names := make([]string, len(header))
	for i, name := range header {
		if _, dup := positions[name]; dup {
			return nil, errors.Newf(errors.ErrDecode, "%s: duplicate header %q", path, name)
		}
		positions[name] = i
		names[i] = name
	}
	if columns == nil {
		columns = names
	}

	idx := make([]int, len(columns))
	for j, name := range columns {
		pos, ok := positions[name]
		if !ok {
			return nil, errors.Newf(errors.ErrSchema, "column %q not found in %s", name, path)
		}
		idx[j] = pos
	}

	raw := make([][]string, len(columns))
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Newf(errors.ErrDecode, "%s: %v", path, err)
		}
		for j, pos := range idx {
			raw[j] = append(raw[j], rec[pos])
		}
	}

	cols := make([]*table.Column, len(columns))
	for j, name := range columns {
		cols[j] = inferColumn(name, raw[j])
	}
	t, err := table.NewTable(cols...)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return t.WithSource(path), nil
}

func inferColumn(name string, cells []string) *table.Column {
	kind := inferKind(cells)
	b := table.NewBuilder(name, kind, len(cells))
	for _, cell := range cells {
		if cell == "" {
			b.AppendNull()
			continue
		}
		switch kind {
		case table.Int64:
			v, _ := strconv.ParseInt(cell, 10, 64)
			b.AppendInt64(v)
		case table.Float64:
			v, _ := strconv.ParseFloat(cell, 64)
			b.AppendFloat64(v)
		default:
			b.AppendString(cell)
		}
	}
	return b.Build()
}

// inferKind narrows int64 -> float64 -> string as cells fail to parse.
func inferKind(cells []string) table.Kind {
	kind := table.Int64
	seen := false
	for _, cell := range cells {
		if cell == "" {
			continue
		}
		seen = true
		if kind == table.Int64 {
			if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
				continue
			}
			kind = table.Float64
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return table.String
		}
	}
	if !seen {
		return table.Float64
	}
	return kind
}
