package table

import (
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
)

// Builder appends values to a column of a fixed kind. Appending an Int64
// value to a Float64 builder converts it.
type Builder struct {
	name   string
	kind   Kind
	floats []float64
	ints   []int64
	strs   []string
	nulls  *roaring.Bitmap
	n      int
}

// NewBuilder returns a builder for a column of the given kind.
func NewBuilder(name string, kind Kind, capacity int) *Builder {
	b := &Builder{name: name, kind: kind}
	switch kind {
	case Float64:
		b.floats = make([]float64, 0, capacity)
	case Int64:
		b.ints = make([]int64, 0, capacity)
	default:
		b.strs = make([]string, 0, capacity)
	}
	return b
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int { return b.n }

func (b *Builder) Kind() Kind { return b.kind }

func (b *Builder) AppendFloat64(v float64) {
	switch b.kind {
	case Float64:
		b.floats = append(b.floats, v)
	case Int64:
		b.ints = append(b.ints, int64(v))
	default:
		b.strs = append(b.strs, strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.n++
}

func (b *Builder) AppendInt64(v int64) {
	switch b.kind {
	case Float64:
		b.floats = append(b.floats, float64(v))
	case Int64:
		b.ints = append(b.ints, v)
	default:
		b.strs = append(b.strs, strconv.FormatInt(v, 10))
	}
	b.n++
}

func (b *Builder) AppendString(v string) {
	if b.kind != String {
		// strings never convert to numbers
		b.AppendNull()
		return
	}
	b.strs = append(b.strs, v)
	b.n++
}

// AppendNull appends a null row.
func (b *Builder) AppendNull() {
	if b.nulls == nil {
		b.nulls = roaring.New()
	}
	b.nulls.Add(uint32(b.n))
	switch b.kind {
	case Float64:
		b.floats = append(b.floats, 0)
	case Int64:
		b.ints = append(b.ints, 0)
	default:
		b.strs = append(b.strs, "")
	}
	b.n++
}

// AppendFrom appends row i of c.
func (b *Builder) AppendFrom(c *Column, i int) {
	if c.IsNull(i) {
		b.AppendNull()
		return
	}
	switch c.kind {
	case Float64:
		b.AppendFloat64(c.floats[i])
	case Int64:
		b.AppendInt64(c.ints[i])
	default:
		b.AppendString(c.strs[i])
	}
}

// AppendColumn appends every row of c.
func (b *Builder) AppendColumn(c *Column) {
	base := b.n
	switch {
	case c.kind == b.kind && b.kind == Float64:
		b.floats = append(b.floats, c.floats...)
	case c.kind == b.kind && b.kind == Int64:
		b.ints = append(b.ints, c.ints...)
	case c.kind == b.kind:
		b.strs = append(b.strs, c.strs...)
	default:
		for i := 0; i < c.Len(); i++ {
			b.AppendFrom(c, i)
		}
		return
	}
	b.n += c.Len()
	if c.nulls != nil && !c.nulls.IsEmpty() {
		if b.nulls == nil {
			b.nulls = roaring.New()
		}
		it := c.nulls.Iterator()
		for it.HasNext() {
			b.nulls.Add(uint32(base) + it.Next())
		}
	}
}

// Build returns the finished column. The builder must not be used after.
func (b *Builder) Build() *Column {
	return &Column{
		name:   b.name,
		kind:   b.kind,
		floats: b.floats,
		ints:   b.ints,
		strs:   b.strs,
		nulls:  b.nulls,
	}
}
