package query

import (
	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/table"
)

// collisionSuffix is appended to right-side columns whose name already
// exists on the left.
const collisionSuffix = "_right"

// hashIndex maps join key values of the right table to row numbers.
type hashIndex struct {
	column string
	kind   table.Kind
	strs   map[string][]int
	nums   map[numKey][]int
}

func newHashIndex(c *table.Column) *hashIndex {
	h := &hashIndex{column: c.Name(), kind: c.Kind()}
	if c.Kind() == table.String {
		h.strs = make(map[string][]int, c.Len())
		for i, s := range c.Strings() {
			if c.IsNull(i) {
				continue
			}
			h.strs[s] = append(h.strs[s], i)
		}
		return h
	}

	read := view{col: c}.numKeys()
	h.nums = make(map[numKey][]int, c.Len())
	for i := 0; i < c.Len(); i++ {
		if k, ok := read(i); ok {
			h.nums[k] = append(h.nums[k], i)
		}
	}
	return h
}

// lookup returns the right rows matching each row of the left key column.
// Null keys match nothing, so an all-null key column of any kind matches
// nothing.
func (h *hashIndex) lookup(left *table.Column) (func(i int) []int, error) {
	if left.AllNull() {
		return func(int) []int { return nil }, nil
	}
	if !table.Compatible(left.Kind(), h.kind) {
		return nil, errors.Newf(errors.ErrJoinKeyType,
			"join key %q (%s) cannot be compared with %q (%s)",
			left.Name(), left.Kind(), h.column, h.kind)
	}
	if h.kind == table.String {
		strs := left.Strings()
		return func(i int) []int {
			if left.IsNull(i) {
				return nil
			}
			return h.strs[strs[i]]
		}, nil
	}
	read := view{col: left}.numKeys()
	return func(i int) []int {
		k, ok := read(i)
		if !ok {
			return nil
		}
		return h.nums[k]
	}, nil
}

// passenger is a right-side column carried into the joined output.
type passenger struct {
	column *table.Column
	name   string
}

// joinLayout is a left join prepared against one right table. It can be
// matched against any number of left tables sharing a schema.
type joinLayout struct {
	leftOn     string
	index      *hashIndex
	passengers []passenger
}

func newJoinLayout(left table.Schema, right *table.Table, leftOn, rightOn string) (*joinLayout, error) {
	if left.Index(leftOn) < 0 {
		return nil, errors.Newf(errors.ErrSchema, "join column %q not found in left table %v", leftOn, left)
	}
	key, ok := right.Column(rightOn)
	if !ok {
		return nil, errors.Newf(errors.ErrSchema, "join column %q not found%s", rightOn, describe(right))
	}
	j := &joinLayout{leftOn: leftOn, index: newHashIndex(key)}
	taken := make(map[string]bool, len(left)+right.NumCols())
	for _, f := range left {
		taken[f.Name] = true
	}
	for _, c := range right.Columns() {
		if c.Name() == rightOn {
			continue
		}
		name := c.Name()
		for taken[name] {
			name += collisionSuffix
		}
		taken[name] = true
		j.passengers = append(j.passengers, passenger{column: c, name: name})
	}
	return j, nil
}

// schema returns the joined schema for a left table of the given schema.
func (j *joinLayout) schema(left table.Schema) table.Schema {
	out := make(table.Schema, 0, len(left)+len(j.passengers))
	out = append(out, left...)
	for _, p := range j.passengers {
		out = append(out, table.Field{Name: p.name, Kind: p.column.Kind()})
	}
	return out
}

// match pairs every left row with its right matches. rightRows holds -1
// where a left row has no match. leftRows is nil when every left row
// appears exactly once, in order.
func (j *joinLayout) match(left *table.Table) (leftRows, rightRows []int, err error) {
	key, ok := left.Column(j.leftOn)
	if !ok {
		return nil, nil, errors.Newf(errors.ErrSchema, "join column %q not found%s", j.leftOn, describe(left))
	}
	lookup, err := j.index.lookup(key)
	if err != nil {
		return nil, nil, err
	}

	n := left.NumRows()
	rightRows = make([]int, 0, n)
	multiplied := false
	for i := 0; i < n; i++ {
		matches := lookup(i)
		switch len(matches) {
		case 0:
			rightRows = append(rightRows, -1)
		case 1:
			rightRows = append(rightRows, matches[0])
		default:
			if !multiplied {
				multiplied = true
				leftRows = make([]int, i, n+len(matches))
				for r := range leftRows {
					leftRows[r] = r
				}
			}
			for _, m := range matches {
				leftRows = append(leftRows, i)
				rightRows = append(rightRows, m)
			}
			continue
		}
		if multiplied {
			leftRows = append(leftRows, i)
		}
	}
	return leftRows, rightRows, nil
}

// LeftJoin attaches to every row of left the rows of right whose rightOn
// value equals the row's leftOn value. Unmatched rows get null passenger
// columns; duplicate right keys multiply the matching left rows.
//
// The rightOn column is not carried into the result. A right column whose
// name already exists on the left is renamed with a "_right" suffix.
func LeftJoin(left, right *table.Table, leftOn, rightOn string) (*table.Table, error) {
	j, err := newJoinLayout(left.Schema(), right, leftOn, rightOn)
	if err != nil {
		return nil, err
	}
	leftRows, rightRows, err := j.match(left)
	if err != nil {
		return nil, err
	}

	cols := make([]*table.Column, 0, left.NumCols()+len(j.passengers))
	for _, c := range left.Columns() {
		if leftRows == nil {
			cols = append(cols, c)
		} else {
			cols = append(cols, c.Take(leftRows))
		}
	}
	for _, p := range j.passengers {
		cols = append(cols, p.column.Take(rightRows).Rename(p.name))
	}
	return table.NewTable(cols...)
}

func describe(t *table.Table) string {
	if t.Source() == "" {
		return ""
	}
	return " in " + t.Source()
}
