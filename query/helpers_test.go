package query

import (
	"sync"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/table"
)

// memDecoder serves tables from memory and records every read.
type memDecoder struct {
	files map[string]*table.Table

	mu    sync.Mutex
	reads []string
}

func newMemDecoder(files map[string]*table.Table) *memDecoder {
	return &memDecoder{files: files}
}

func (m *memDecoder) Decode(path string, columns []string) (*table.Table, error) {
	m.mu.Lock()
	m.reads = append(m.reads, path)
	m.mu.Unlock()

	t, ok := m.files[path]
	if !ok {
		return nil, errors.Newf(errors.ErrDecode, "%s: no such file", path)
	}
	t = t.WithSource(path)
	if columns == nil {
		return t, nil
	}
	return t.Project(columns...)
}

func (m *memDecoder) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reads)
}

// scenarioFiles is the two-shard dataset with a one-row key table.
func scenarioFiles() map[string]*table.Table {
	return map[string]*table.Table{
		"table_0.csv": table.MustNewTable(
			table.NewStringColumn("A", []string{"x"}),
			table.NewInt64Column("I", []int64{10}),
			table.NewFloat64Column("P", []float64{1}),
		),
		"table_1.csv": table.MustNewTable(
			table.NewStringColumn("A", []string{"x", "y"}),
			table.NewInt64Column("I", []int64{20, 5}),
			table.NewFloat64Column("P", []float64{3, 5}),
		),
		"key_table.csv": table.MustNewTable(
			table.NewStringColumn("key", []string{"x"}),
			table.NewInt64Column("extra", []int64{100}),
		),
	}
}

func scenarioRequest(mode Mode) Request {
	return Request{
		FactPaths:    []string{"table_0.csv", "table_1.csv"},
		KeyPaths:     []string{"key_table.csv"},
		GroupColumn:  "A",
		JoinLeft:     "A",
		JoinRight:    "key",
		ValueColumns: []string{"A", "I", "P"},
		Mode:         mode,
	}
}
