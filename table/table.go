// Package table provides the in-memory columnar relation that flows through
// the shardstat pipeline.
//
// A Table is an ordered sequence of named columns of equal length. Each
// column is a tagged variant over a closed set of kinds (Float64, Int64,
// String) backed by a contiguous slice, with nulls tracked in a roaring
// bitmap. Operations dispatch on the kind once per column, not per cell.
//
// Example:
//
//	t, err := table.NewTable(
//	    table.NewStringColumn("A", []string{"x", "y"}),
//	    table.NewInt64Column("I", []int64{10, 5}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(t.NumRows(), t.Schema())
package table

import (
	"github.com/vegasq/shardstat/errors"
)

// Table is an immutable columnar relation.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
	source  string
}

// NewTable validates that every column has the same length and a unique
// name and returns the Table holding them.
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{
		columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.index[c.Name()]; dup {
			return nil, errors.Newf(errors.ErrSchema, "duplicate column name %q", c.Name())
		}
		t.index[c.Name()] = i
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, errors.Newf(errors.ErrSchema, "column %q has %d rows, want %d", c.Name(), c.Len(), t.rows)
		}
	}
	return t, nil
}

// MustNewTable is NewTable for callers that construct columns they know to
// be consistent. It panics on error.
func MustNewTable(columns ...*Column) *Table {
	t, err := NewTable(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a zero-row Table with the given schema.
func Empty(schema Schema) *Table {
	cols := make([]*Column, len(schema))
	for i, f := range schema {
		cols[i] = NewBuilder(f.Name, f.Kind, 0).Build()
	}
	return MustNewTable(cols...)
}

// WithSource returns a shallow copy of t labelled with the file it came
// from. The label only feeds error messages.
func (t *Table) WithSource(source string) *Table {
	out := *t
	out.source = source
	return &out
}

// Source returns the file this table was decoded from, if known.
func (t *Table) Source() string { return t.source }

func (t *Table) NumRows() int { return t.rows }
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns the columns in order. The slice must not be modified.
func (t *Table) Columns() []*Column { return t.columns }

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) *Column { return t.columns[i] }

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Schema returns the field list of t.
func (t *Table) Schema() Schema {
	s := make(Schema, len(t.columns))
	for i, c := range t.columns {
		s[i] = Field{Name: c.Name(), Kind: c.Kind()}
	}
	return s
}

// Project returns a Table holding only the named columns, in the given
// order. Column data is shared, not copied.
func (t *Table) Project(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, errors.Newf(errors.ErrSchema, "column %q not found%s", name, t.describeSource())
		}
		cols = append(cols, c)
	}
	out, err := NewTable(cols...)
	if err != nil {
		return nil, err
	}
	out.source = t.source
	return out, nil
}

// Row returns row i as a map keyed by column name, nil for null cells.
func (t *Table) Row(i int) map[string]interface{} {
	row := make(map[string]interface{}, len(t.columns))
	for _, c := range t.columns {
		row[c.Name()] = c.Value(i)
	}
	return row
}

// Rows returns every row as a map.
func (t *Table) Rows() []map[string]interface{} {
	rows := make([]map[string]interface{}, t.rows)
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return rows
}

func (t *Table) describeSource() string {
	if t.source == "" {
		return ""
	}
	return " in " + t.source
}
