package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/shardstat/errors"
)

var factSchema = Schema{
	{Name: "A", Kind: String},
	{Name: "I", Kind: Int64},
	{Name: "P", Kind: Float64},
}

func TestConcat_Cardinality(t *testing.T) {
	s1 := shard(t, "table_0.csv", []string{"x"}, []int64{10}, []float64{1})
	s2 := shard(t, "table_1.csv", []string{"x", "y"}, []int64{20, 5}, []float64{3, 5})
	s3 := shard(t, "table_2.csv", nil, nil, nil)

	tests := []struct {
		name   string
		tables []*Table
		rows   int
	}{
		{name: "empty set", tables: nil, rows: 0},
		{name: "one shard", tables: []*Table{s2}, rows: 2},
		{name: "two shards", tables: []*Table{s1, s2}, rows: 3},
		{name: "with empty shard", tables: []*Table{s1, s3, s2}, rows: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Concat(factSchema, tt.tables...)
			require.NoError(t, err)
			assert.Equal(t, tt.rows, got.NumRows())
			assert.Equal(t, factSchema.Names(), got.Schema().Names())
		})
	}
}

func TestConcat_PreservesOrder(t *testing.T) {
	s1 := shard(t, "", []string{"x"}, []int64{10}, []float64{1})
	s2 := shard(t, "", []string{"x", "y"}, []int64{20, 5}, []float64{3, 5})

	got, err := Concat(factSchema, s1, s2)
	require.NoError(t, err)

	a, _ := got.Column("A")
	i, _ := got.Column("I")
	assert.Equal(t, []string{"x", "x", "y"}, a.Strings())
	assert.Equal(t, []int64{10, 20, 5}, i.Int64s())
}

func TestConcat_SingleTableNotCopied(t *testing.T) {
	s1 := shard(t, "", []string{"x"}, []int64{10}, []float64{1})
	got, err := Concat(factSchema, s1)
	require.NoError(t, err)
	assert.Same(t, s1, got)
}

func TestConcat_PromotesNumericKinds(t *testing.T) {
	a := MustNewTable(NewInt64Column("P", []int64{1, 2}))
	b := MustNewTable(NewFloat64Column("P", []float64{2.5}))

	got, err := Concat(nil, a, b)
	require.NoError(t, err)
	p, _ := got.Column("P")
	assert.Equal(t, Float64, p.Kind())
	assert.Equal(t, []float64{1, 2, 2.5}, p.Float64s())
}

func TestConcat_SchemaMismatch(t *testing.T) {
	good := shard(t, "table_0.parquet", []string{"x"}, []int64{10}, []float64{1})

	tests := []struct {
		name string
		bad  *Table
	}{
		{
			name: "different order",
			bad: MustNewTable(
				NewInt64Column("I", []int64{1}),
				NewStringColumn("A", []string{"x"}),
				NewFloat64Column("P", []float64{1}),
			).WithSource("table_1.parquet"),
		},
		{
			name: "missing column",
			bad: MustNewTable(
				NewStringColumn("A", []string{"x"}),
				NewInt64Column("I", []int64{1}),
			).WithSource("table_1.parquet"),
		},
		{
			name: "string where number expected",
			bad: MustNewTable(
				NewStringColumn("A", []string{"x"}),
				NewStringColumn("I", []string{"ten"}),
				NewFloat64Column("P", []float64{1}),
			).WithSource("table_1.parquet"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Concat(factSchema, good, tt.bad)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrSchemaMismatch), "got %v", err)
			assert.Contains(t, err.Error(), "table_1.parquet")
		})
	}
}

func TestConcat_AllNullColumnFitsAnyKind(t *testing.T) {
	str := MustNewTable(NewStringColumn("A", []string{"x"}), NewInt64Column("I", []int64{10}))
	// an empty CSV column decodes as null float64
	empty := MustNewTable(NewFloat64Column("A", []float64{0}, 0), NewInt64Column("I", []int64{20}))

	tests := []struct {
		name   string
		tables []*Table
		want   []interface{}
	}{
		{name: "null shard last", tables: []*Table{str, empty}, want: []interface{}{"x", nil}},
		{name: "null shard first", tables: []*Table{empty, str}, want: []interface{}{nil, "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Concat(nil, tt.tables...)
			require.NoError(t, err)
			a, _ := got.Column("A")
			assert.Equal(t, String, a.Kind())
			assert.Equal(t, tt.want, []interface{}{a.Value(0), a.Value(1)})
		})
	}
}

func TestStack_ConflictAfterNullColumn(t *testing.T) {
	empty := MustNewTable(NewFloat64Column("A", []float64{0}, 0))
	str := MustNewTable(NewStringColumn("A", []string{"x"}))
	num := MustNewTable(NewInt64Column("A", []int64{1})).WithSource("table_2.csv")

	st := NewStack(empty)
	require.NoError(t, st.Add(empty, 0))
	require.NoError(t, st.Add(str, 1))
	assert.Equal(t, Schema{{Name: "A", Kind: String}}, st.Schema())

	err := st.Add(num, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSchemaMismatch), "got %v", err)
	assert.Contains(t, err.Error(), "table_2.csv")
}

func TestStack_UnsettledColumnKeepsReferenceKind(t *testing.T) {
	a := MustNewTable(NewFloat64Column("A", []float64{0}, 0))
	b := MustNewTable(NewStringColumn("A", []string{""}, 0))

	st := NewStack(a)
	require.NoError(t, st.Add(a, 0))
	require.NoError(t, st.Add(b, 1))
	assert.Equal(t, Schema{{Name: "A", Kind: Float64}}, st.Schema())
}
