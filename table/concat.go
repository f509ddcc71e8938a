package table

import (
	"fmt"

	"github.com/vegasq/shardstat/errors"
)

// Concat stacks tables row-wise in argument order. Every table must share
// the first table's column names and order; numeric kinds may differ and
// are promoted to Float64. A column whose rows are all null fits any kind,
// since a decoder cannot always tell the kind of a column it saw no value
// for; its rows become nulls of the resolved kind.
//
// With no tables, Concat returns an empty Table of the given schema. With a
// single table, that table is returned as is.
func Concat(schema Schema, tables ...*Table) (*Table, error) {
	switch len(tables) {
	case 0:
		return Empty(schema), nil
	case 1:
		return tables[0], nil
	}

	ref := tables[0]
	for _, t := range tables {
		if t.NumRows() > 0 {
			ref = t
			break
		}
	}

	st := NewStack(ref)
	rows := 0
	for i, t := range tables {
		if err := st.Add(t, i); err != nil {
			return nil, err
		}
		rows += t.NumRows()
	}

	cols := make([]*Column, ref.NumCols())
	for j, f := range st.Schema() {
		b := NewBuilder(f.Name, f.Kind, rows)
		for _, t := range tables {
			if t.NumRows() > 0 {
				b.AppendColumn(t.ColumnAt(j))
			}
		}
		cols[j] = b.Build()
	}
	return NewTable(cols...)
}

// Stack checks tables for row-wise stacking one at a time and tracks the
// kind each column resolves to.
type Stack struct {
	ref     *Table
	kinds   []Kind
	settled []bool
}

// NewStack starts a stack whose names and order come from ref.
func NewStack(ref *Table) *Stack {
	s := &Stack{
		ref:     ref,
		kinds:   make([]Kind, ref.NumCols()),
		settled: make([]bool, ref.NumCols()),
	}
	for j, f := range ref.Schema() {
		s.kinds[j] = f.Kind
	}
	return s
}

// Add checks t, the i-th input, against the tables added so far. All-null
// columns are skipped when resolving kinds.
func (s *Stack) Add(t *Table, i int) error {
	if err := CheckConcat(s.ref, t, i); err != nil {
		return err
	}
	for j, c := range t.Columns() {
		if c.AllNull() {
			continue
		}
		switch {
		case !s.settled[j]:
			s.kinds[j], s.settled[j] = c.Kind(), true
		case Compatible(s.kinds[j], c.Kind()):
			s.kinds[j] = Promote(s.kinds[j], c.Kind())
		default:
			return errors.Newf(errors.ErrSchemaMismatch,
				"column %q of %s is %s, earlier tables have %s",
				c.Name(), label(t, i), c.Kind(), s.kinds[j])
		}
	}
	return nil
}

// Schema returns the stacked schema. A column that was null in every table
// keeps the kind it has in the reference table.
func (s *Stack) Schema() Schema {
	out := s.ref.Schema()
	for j := range out {
		out[j].Kind = s.kinds[j]
	}
	return out
}

// CheckConcat reports whether t, the i-th input, can be stacked under ref:
// same names in the same order, and compatible kinds wherever neither
// column is all null.
func CheckConcat(ref, t *Table, i int) error {
	s, want := t.Schema(), ref.Schema()
	ok := len(s) == len(want)
	for j := 0; ok && j < len(s); j++ {
		ok = s[j].Name == want[j].Name &&
			(Compatible(s[j].Kind, want[j].Kind) || t.ColumnAt(j).AllNull() || ref.ColumnAt(j).AllNull())
	}
	if !ok {
		return errors.Newf(errors.ErrSchemaMismatch,
			"schema of %s %v differs from %s %v",
			label(t, i), s, label(ref, -1), want)
	}
	return nil
}

func label(t *Table, i int) string {
	if t.Source() != "" {
		return t.Source()
	}
	if i < 0 {
		return "first table"
	}
	return fmt.Sprintf("table #%d", i)
}
