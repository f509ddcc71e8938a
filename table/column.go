package table

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Column is a named, typed, contiguous vector of values. Exactly one of the
// backing slices is populated, selected by kind. Null rows are tracked in a
// roaring bitmap; the backing slice holds a zero value at those rows.
type Column struct {
	name   string
	kind   Kind
	floats []float64
	ints   []int64
	strs   []string
	nulls  *roaring.Bitmap
}

// NewFloat64Column returns a float column. Rows listed in nulls are null.
func NewFloat64Column(name string, values []float64, nulls ...int) *Column {
	return &Column{name: name, kind: Float64, floats: values, nulls: nullBitmap(nulls)}
}

// NewInt64Column returns an integer column. Rows listed in nulls are null.
func NewInt64Column(name string, values []int64, nulls ...int) *Column {
	return &Column{name: name, kind: Int64, ints: values, nulls: nullBitmap(nulls)}
}

// NewStringColumn returns a categorical column. Rows listed in nulls are null.
func NewStringColumn(name string, values []string, nulls ...int) *Column {
	return &Column{name: name, kind: String, strs: values, nulls: nullBitmap(nulls)}
}

func nullBitmap(rows []int) *roaring.Bitmap {
	if len(rows) == 0 {
		return nil
	}
	bm := roaring.New()
	for _, r := range rows {
		bm.Add(uint32(r))
	}
	return bm
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }

// Len returns the number of rows.
func (c *Column) Len() int {
	switch c.kind {
	case Float64:
		return len(c.floats)
	case Int64:
		return len(c.ints)
	default:
		return len(c.strs)
	}
}

// NullCount returns the number of null rows.
func (c *Column) NullCount() int {
	if c.nulls == nil {
		return 0
	}
	return int(c.nulls.GetCardinality())
}

// AllNull reports whether every row is null. A column without rows is all
// null. Such a column says nothing about its kind.
func (c *Column) AllNull() bool { return c.NullCount() == c.Len() }

// IsNull reports whether row i is null.
func (c *Column) IsNull(i int) bool {
	return c.nulls != nil && c.nulls.Contains(uint32(i))
}

// Float64s returns the backing slice of a Float64 column.
func (c *Column) Float64s() []float64 { return c.floats }

// Int64s returns the backing slice of an Int64 column.
func (c *Column) Int64s() []int64 { return c.ints }

// Strings returns the backing slice of a String column.
func (c *Column) Strings() []string { return c.strs }

// Value returns row i as an interface value, nil when null.
func (c *Column) Value(i int) interface{} {
	if c.IsNull(i) {
		return nil
	}
	switch c.kind {
	case Float64:
		return c.floats[i]
	case Int64:
		return c.ints[i]
	default:
		return c.strs[i]
	}
}

// NumericReader returns an accessor yielding row values as float64 and
// whether the row is non-null. The kind switch happens here, once per
// column. ok is false for String columns.
func (c *Column) NumericReader() (read func(i int) (float64, bool), ok bool) {
	nulls := c.nulls
	if nulls != nil && nulls.IsEmpty() {
		nulls = nil
	}
	switch c.kind {
	case Float64:
		vals := c.floats
		if nulls == nil {
			return func(i int) (float64, bool) { return vals[i], true }, true
		}
		return func(i int) (float64, bool) {
			if nulls.Contains(uint32(i)) {
				return 0, false
			}
			return vals[i], true
		}, true
	case Int64:
		vals := c.ints
		if nulls == nil {
			return func(i int) (float64, bool) { return float64(vals[i]), true }, true
		}
		return func(i int) (float64, bool) {
			if nulls.Contains(uint32(i)) {
				return 0, false
			}
			return float64(vals[i]), true
		}, true
	default:
		return nil, false
	}
}

// Rename returns a column sharing c's data under a new name.
func (c *Column) Rename(name string) *Column {
	out := *c
	out.name = name
	return &out
}

// Take gathers rows by index into a new column. An index of -1 yields a
// null row.
func (c *Column) Take(indices []int) *Column {
	b := NewBuilder(c.name, c.kind, len(indices))
	for _, i := range indices {
		if i < 0 {
			b.AppendNull()
			continue
		}
		b.AppendFrom(c, i)
	}
	return b.Build()
}
