package query

import (
	"math"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/table"
)

// view is a column seen through an optional row mapping. rows nil means
// row r of the view is row r of the column; a -1 entry is a null row.
type view struct {
	name string
	col  *table.Column
	rows []int
}

func (v view) source(r int) int {
	if v.rows == nil {
		return r
	}
	return v.rows[r]
}

func (v view) numeric() func(r int) (float64, bool) {
	read, ok := v.col.NumericReader()
	if !ok {
		return nil
	}
	if v.rows == nil {
		return read
	}
	rows := v.rows
	return func(r int) (float64, bool) {
		if rows[r] < 0 {
			return 0, false
		}
		return read(rows[r])
	}
}

func tableViews(t *table.Table) []view {
	views := make([]view, t.NumCols())
	for i, c := range t.Columns() {
		views[i] = view{name: c.Name(), col: c}
	}
	return views
}

// grouper assigns dense group ids in order of first appearance. Null keys
// share one group of their own. The key kind is settled by the first view
// holding a non-null key; all-null views fit any kind.
type grouper struct {
	name     string
	kind     table.Kind
	settled  bool
	strs     map[string]int
	nums     map[numKey]int
	strKeys  []string
	numKeys  []numKey
	sawFloat bool
	nullID   int
	n        int
}

func newGrouper(name string, kind table.Kind) *grouper {
	g := &grouper{name: name, nullID: -1}
	g.reset(kind)
	return g
}

// reset switches the key kind. Only nulls may have been assigned before.
func (g *grouper) reset(kind table.Kind) {
	g.kind = kind
	g.strs, g.nums = nil, nil
	if kind == table.String {
		g.strs = make(map[string]int)
	} else {
		g.nums = make(map[numKey]int)
	}
}

func (g *grouper) null() int {
	if g.nullID < 0 {
		g.nullID = g.n
		g.n++
		g.strKeys = append(g.strKeys, "")
		g.numKeys = append(g.numKeys, numKey{})
	}
	return g.nullID
}

// assign appends the group id of each of the n rows of v to ids.
func (g *grouper) assign(v view, n int, ids []int) ([]int, error) {
	if v.col.AllNull() {
		for r := 0; r < n; r++ {
			ids = append(ids, g.null())
		}
		return ids, nil
	}
	switch {
	case !g.settled:
		if v.col.Kind() != g.kind {
			g.reset(v.col.Kind())
		}
		g.settled = true
	case !table.Compatible(g.kind, v.col.Kind()):
		return nil, errors.Newf(errors.ErrSchemaMismatch,
			"group column %q is %s, earlier input had %s", g.name, v.col.Kind(), g.kind)
	}

	if g.kind == table.String {
		strs := v.col.Strings()
		for r := 0; r < n; r++ {
			i := v.source(r)
			if i < 0 || v.col.IsNull(i) {
				ids = append(ids, g.null())
				continue
			}
			id, ok := g.strs[strs[i]]
			if !ok {
				id = g.n
				g.n++
				g.strs[strs[i]] = id
				g.strKeys = append(g.strKeys, strs[i])
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	if v.col.Kind() == table.Float64 {
		g.sawFloat = true
	}
	read := v.numKeys()
	for r := 0; r < n; r++ {
		k, ok := read(r)
		if !ok {
			ids = append(ids, g.null())
			continue
		}
		id, seen := g.nums[k]
		if !seen {
			id = g.n
			g.n++
			g.nums[k] = id
			g.numKeys = append(g.numKeys, k)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// column returns the distinct keys in group id order.
func (g *grouper) column() *table.Column {
	var nulls []int
	if g.nullID >= 0 {
		nulls = []int{g.nullID}
	}
	switch {
	case g.kind == table.String:
		return table.NewStringColumn(g.name, g.strKeys, nulls...)
	case g.sawFloat || g.kind == table.Float64:
		floats := make([]float64, len(g.numKeys))
		for i, k := range g.numKeys {
			floats[i] = k.value()
		}
		return table.NewFloat64Column(g.name, floats, nulls...)
	default:
		ints := make([]int64, len(g.numKeys))
		for i, k := range g.numKeys {
			ints[i] = k.i
		}
		return table.NewInt64Column(g.name, ints, nulls...)
	}
}

// meanAcc keeps a null-skipping running mean per group.
type meanAcc struct {
	name   string
	sums   []float64
	counts []int64
}

func (a *meanAcc) add(v view, ids []int) {
	read := v.numeric()
	if read == nil {
		// an all-null column of another kind adds no values
		return
	}
	for r, id := range ids {
		for id >= len(a.sums) {
			a.sums = append(a.sums, 0)
			a.counts = append(a.counts, 0)
		}
		if val, ok := read(r); ok {
			a.sums[id] += val
			a.counts[id]++
		}
	}
}

func (a *meanAcc) column(groups int) *table.Column {
	means := make([]float64, groups)
	var nulls []int
	for id := 0; id < groups; id++ {
		if id >= len(a.counts) || a.counts[id] == 0 {
			nulls = append(nulls, id)
			continue
		}
		means[id] = a.sums[id] / float64(a.counts[id])
	}
	return table.NewFloat64Column(a.name, means, nulls...)
}

// groupMeans folds batches of rows into per-group means of every numeric
// column except the group column. Batches must share the column names of
// the first one. A column's kind is settled by the first batch where it
// holds a value; all-null columns fit any kind.
type groupMeans struct {
	groupBy string
	grouper *grouper
	layout  table.Schema
	settled []bool
	accs    []*meanAcc // by layout position, nil for skipped columns
	ids     []int
}

func newGroupMeans(groupBy string) *groupMeans {
	return &groupMeans{groupBy: groupBy}
}

func (g *groupMeans) init(views []view) error {
	g.layout = make(table.Schema, len(views))
	for i, v := range views {
		g.layout[i] = table.Field{Name: v.name, Kind: v.col.Kind()}
	}
	idx := g.layout.Index(g.groupBy)
	if idx < 0 {
		return errors.Newf(errors.ErrSchema, "group column %q not found in %v", g.groupBy, g.layout)
	}
	g.grouper = newGrouper(g.groupBy, g.layout[idx].Kind)
	g.settled = make([]bool, len(views))
	g.accs = make([]*meanAcc, len(views))
	for i := range g.layout {
		g.settle(i, g.layout[i].Kind)
	}
	return nil
}

// settle fixes the kind of column i and whether it is averaged.
func (g *groupMeans) settle(i int, kind table.Kind) {
	f := &g.layout[i]
	f.Kind = kind
	switch {
	case f.Name == g.groupBy || !kind.Numeric():
		g.accs[i] = nil
	case g.accs[i] == nil:
		g.accs[i] = &meanAcc{name: f.Name}
	}
}

// add folds n rows given as one view per column.
func (g *groupMeans) add(views []view, n int) error {
	if g.grouper == nil {
		if err := g.init(views); err != nil {
			return err
		}
	}
	if len(views) != len(g.layout) {
		return errors.Newf(errors.ErrSchemaMismatch, "batch has %d columns, want %d", len(views), len(g.layout))
	}

	var groupView view
	for i, v := range views {
		f := g.layout[i]
		if v.name != f.Name {
			return errors.Newf(errors.ErrSchemaMismatch,
				"column %d is %s:%s, want %s:%s", i, v.name, v.col.Kind(), f.Name, f.Kind)
		}
		if v.name == g.groupBy {
			groupView = v
		}
		if v.col.AllNull() {
			continue
		}
		switch {
		case !g.settled[i]:
			g.settle(i, v.col.Kind())
			g.settled[i] = true
		case !table.Compatible(v.col.Kind(), f.Kind):
			return errors.Newf(errors.ErrSchemaMismatch,
				"column %d is %s:%s, want %s:%s", i, v.name, v.col.Kind(), f.Name, f.Kind)
		}
	}

	ids, err := g.grouper.assign(groupView, n, g.ids[:0])
	if err != nil {
		return err
	}
	g.ids = ids

	for i, v := range views {
		if a := g.accs[i]; a != nil {
			a.add(v, ids)
		}
	}
	return nil
}

// result returns one row per group: the group key then each mean.
func (g *groupMeans) result() *table.Table {
	groups := g.grouper.n
	cols := make([]*table.Column, 0, len(g.accs)+1)
	cols = append(cols, g.grouper.column())
	for _, a := range g.accs {
		if a != nil {
			cols = append(cols, a.column(groups))
		}
	}
	return table.MustNewTable(cols...)
}

// GroupMeans partitions t by the distinct values of groupBy and returns,
// for every group, the mean of each numeric column other than groupBy.
//
// Groups appear in order of first appearance; null keys form one group.
// Means skip nulls, and a group with no non-null value gets a null mean.
// Mean columns are always float64.
func GroupMeans(t *table.Table, groupBy string) (*table.Table, error) {
	g := newGroupMeans(groupBy)
	if err := g.add(tableViews(t), t.NumRows()); err != nil {
		return nil, err
	}
	return g.result(), nil
}

// Summary holds, for each mean column of a grouped result, the unweighted
// mean of its non-null group means.
type Summary struct {
	Columns []string
	Values  []float64
	Valid   []bool
}

// Get returns the summary value of a column, and false if it is null or
// absent.
func (s *Summary) Get(name string) (float64, bool) {
	for i, c := range s.Columns {
		if c == name {
			return s.Values[i], s.Valid[i]
		}
	}
	return math.NaN(), false
}

// Table renders the summary as a one-row table.
func (s *Summary) Table() *table.Table {
	cols := make([]*table.Column, len(s.Columns))
	for i, name := range s.Columns {
		if s.Valid[i] {
			cols[i] = table.NewFloat64Column(name, []float64{s.Values[i]})
		} else {
			cols[i] = table.NewFloat64Column(name, []float64{0}, 0)
		}
	}
	return table.MustNewTable(cols...)
}

// Summarize reduces a grouped result to the mean of group means of every
// numeric column except groupBy. Each group weighs the same regardless of
// how many rows it had.
func Summarize(grouped *table.Table, groupBy string) *Summary {
	s := &Summary{}
	for _, c := range grouped.Columns() {
		if c.Name() == groupBy {
			continue
		}
		read, ok := c.NumericReader()
		if !ok {
			continue
		}
		var sum float64
		var n int
		for i := 0; i < c.Len(); i++ {
			if v, ok := read(i); ok {
				sum += v
				n++
			}
		}
		s.Columns = append(s.Columns, c.Name())
		if n == 0 {
			s.Values = append(s.Values, 0)
			s.Valid = append(s.Valid, false)
			continue
		}
		s.Values = append(s.Values, sum/float64(n))
		s.Valid = append(s.Valid, true)
	}
	return s
}
