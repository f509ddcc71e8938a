package query

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/logger"
	"github.com/vegasq/shardstat/metrics"
	"github.com/vegasq/shardstat/reader"
	"github.com/vegasq/shardstat/table"
)

func TestPipeline_EndToEnd(t *testing.T) {
	for _, mode := range Modes {
		t.Run(string(mode), func(t *testing.T) {
			p := &Pipeline{Decoder: newMemDecoder(scenarioFiles()), Concurrency: 2, Logger: logger.NewLogfLogger(t)}

			res, err := p.Run(context.Background(), scenarioRequest(mode))
			require.NoError(t, err)

			want := []map[string]interface{}{
				{"A": "x", "I": 15.0, "P": 2.0, "extra": 100.0},
				{"A": "y", "I": 5.0, "P": 5.0, "extra": nil},
			}
			if diff := cmp.Diff(want, res.Groups.Rows()); diff != "" {
				t.Errorf("groups mismatch (-want +got):\n%s", diff)
			}

			for col, v := range map[string]float64{"I": 10, "P": 3.5, "extra": 100} {
				got, ok := res.Summary.Get(col)
				assert.True(t, ok, col)
				assert.Equal(t, v, got, col)
			}
			assert.Equal(t, mode, res.Mode)
			assert.NotEmpty(t, res.RunID)
		})
	}
}

// A CSV shard whose group column is empty in every row decodes as a null
// float64 column; it still stacks under the string column of other shards.
func TestPipeline_EmptyCSVColumnStacksWithStrings(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"table_0.csv":   "A,I,P\nx,10,1\n",
		"table_1.csv":   "A,I,P\n,20,3\n",
		"key_table.csv": "key,extra\nx,100\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	for _, mode := range Modes {
		t.Run(string(mode), func(t *testing.T) {
			req := scenarioRequest(mode)
			req.FactPaths = []string{filepath.Join(dir, "table_0.csv"), filepath.Join(dir, "table_1.csv")}
			req.KeyPaths = []string{filepath.Join(dir, "key_table.csv")}
			p := &Pipeline{Decoder: reader.CSVDecoder{}, Logger: logger.NewLogfLogger(t)}

			res, err := p.Run(context.Background(), req)
			require.NoError(t, err)

			want := []map[string]interface{}{
				{"A": "x", "I": 10.0, "P": 1.0, "extra": 100.0},
				{"A": nil, "I": 20.0, "P": 3.0, "extra": nil},
			}
			if diff := cmp.Diff(want, res.Groups.Rows()); diff != "" {
				t.Errorf("groups mismatch (-want +got):\n%s", diff)
			}
			a, _ := res.Groups.Column("A")
			assert.Equal(t, table.String, a.Kind())
		})
	}
}

// randomFiles builds shards with nulls, unequal group sizes and a key table
// with a duplicate key.
func randomFiles(seed int64, shards int) (map[string]*table.Table, Request) {
	rng := rand.New(rand.NewSource(seed))
	files := make(map[string]*table.Table)
	req := Request{
		KeyPaths:     []string{"key_table.parquet"},
		GroupColumn:  "A",
		JoinLeft:     "A",
		JoinRight:    "key",
		ValueColumns: []string{"A", "I", "P"},
	}
	for s := 0; s < shards; s++ {
		n := rng.Intn(50)
		a := make([]string, n)
		i := make([]int64, n)
		p := make([]float64, n)
		var nulls []int
		for r := 0; r < n; r++ {
			a[r] = string(rune('a' + rng.Intn(8)))
			i[r] = int64(rng.Intn(26) + 1)
			p[r] = rng.Float64()
			if rng.Intn(10) == 0 {
				nulls = append(nulls, r)
			}
		}
		path := fmt.Sprintf("table_%02d.parquet", s)
		files[path] = table.MustNewTable(
			table.NewStringColumn("A", a),
			table.NewInt64Column("I", i, nulls...),
			table.NewFloat64Column("P", p),
			table.NewFloat64Column("Q", p),
		)
		req.FactPaths = append(req.FactPaths, path)
	}
	files["key_table.parquet"] = table.MustNewTable(
		table.NewStringColumn("key", []string{"a", "b", "c", "a"}),
		table.NewInt64Column("0", []int64{-5, -4, -3, -2}),
		table.NewStringColumn("note", []string{"p", "q", "r", "s"}),
	)
	return files, req
}

func TestPipeline_ModeEquivalence(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		files, req := randomFiles(seed, 7)
		p := &Pipeline{Decoder: newMemDecoder(files), Concurrency: 3}

		req.Mode = Eager
		eager, err := p.Run(context.Background(), req)
		require.NoError(t, err)
		req.Mode = Lazy
		lazy, err := p.Run(context.Background(), req)
		require.NoError(t, err)

		if diff := cmp.Diff(eager.Groups.Rows(), lazy.Groups.Rows()); diff != "" {
			t.Errorf("seed %d: eager and lazy groups differ (-eager +lazy):\n%s", seed, diff)
		}
		assert.Equal(t, eager.Summary, lazy.Summary, "seed %d", seed)
		assert.Equal(t, []string{"I", "P", "0"}, eager.Summary.Columns)
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	files, req := randomFiles(42, 10)
	req.Mode = Lazy
	p := &Pipeline{Decoder: newMemDecoder(files), Concurrency: 8}

	first, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := p.Run(context.Background(), req)
		require.NoError(t, err)
		if diff := cmp.Diff(first.Groups.Rows(), again.Groups.Rows()); diff != "" {
			t.Fatalf("run %d differs:\n%s", i, diff)
		}
	}
}

func TestPipeline_LazyReadsNothingUntilCollect(t *testing.T) {
	dec := newMemDecoder(scenarioFiles())
	p := &Pipeline{Decoder: dec}

	lf := p.Plan(nil, scenarioRequest(Lazy))
	_ = lf.Explain()
	assert.Equal(t, 0, dec.readCount())

	_, err := lf.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, dec.readCount())
}

func TestPipeline_Errors(t *testing.T) {
	tests := []struct {
		name string
		edit func(files map[string]*table.Table, req *Request)
		code errors.Code
	}{
		{
			name: "no fact shards",
			edit: func(_ map[string]*table.Table, req *Request) { req.FactPaths = nil },
			code: errors.ErrNotFound,
		},
		{
			name: "no key table",
			edit: func(_ map[string]*table.Table, req *Request) { req.KeyPaths = nil },
			code: errors.ErrNotFound,
		},
		{
			name: "unreadable shard",
			edit: func(_ map[string]*table.Table, req *Request) {
				req.FactPaths = append(req.FactPaths, "table_9.csv")
			},
			code: errors.ErrDecode,
		},
		{
			name: "missing value column",
			edit: func(_ map[string]*table.Table, req *Request) { req.ValueColumns = []string{"A", "Q"} },
			code: errors.ErrSchema,
		},
		{
			name: "shards disagree",
			edit: func(files map[string]*table.Table, _ *Request) {
				files["table_1.csv"] = table.MustNewTable(
					table.NewStringColumn("A", []string{"x"}),
					table.NewStringColumn("I", []string{"ten"}),
					table.NewFloat64Column("P", []float64{3}),
				)
			},
			code: errors.ErrSchemaMismatch,
		},
		{
			name: "join key types",
			edit: func(files map[string]*table.Table, _ *Request) {
				files["key_table.csv"] = table.MustNewTable(table.NewInt64Column("key", []int64{1}))
			},
			code: errors.ErrJoinKeyType,
		},
	}

	for _, tt := range tests {
		for _, mode := range Modes {
			t.Run(tt.name+"/"+string(mode), func(t *testing.T) {
				files := scenarioFiles()
				req := scenarioRequest(mode)
				tt.edit(files, &req)
				m := metrics.New()
				p := &Pipeline{Decoder: newMemDecoder(files), Metrics: m}

				res, err := p.Run(context.Background(), req)
				require.Error(t, err)
				assert.Nil(t, res)
				assert.True(t, errors.Is(err, tt.code), "got %v", err)
			})
		}
	}
}

func TestPipeline_LogsKeyTablePolicy(t *testing.T) {
	files := scenarioFiles()
	files["other_table.csv"] = files["key_table.csv"]
	req := scenarioRequest(Eager)
	req.KeyPaths = []string{"key_table.csv", "other_table.csv"}

	log := logger.NewBufferLogger()
	p := &Pipeline{Decoder: newMemDecoder(files), Logger: log}
	_, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	found := false
	for _, line := range log.Lines() {
		if strings.HasPrefix(line, "INFO") && strings.Contains(line, "2 key table candidates, using key_table.csv") {
			found = true
		}
	}
	assert.True(t, found, "lines: %q", log.Lines())
}

func TestRequest_Columns(t *testing.T) {
	req := Request{GroupColumn: "A", JoinLeft: "B", ValueColumns: []string{"I", "A", "P"}}
	assert.Equal(t, []string{"I", "A", "P", "B"}, req.Columns())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("LAZY")
	require.NoError(t, err)
	assert.Equal(t, Lazy, m)
	_, err = ParseMode("streaming")
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}
