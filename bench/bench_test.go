package bench_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/shardstat/bench"
	"github.com/vegasq/shardstat/config"
	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/generate"
	"github.com/vegasq/shardstat/logger"
	"github.com/vegasq/shardstat/metrics"
	"github.com/vegasq/shardstat/query"
	"github.com/vegasq/shardstat/reader"
)

func smallDataset(t *testing.T) string {
	t.Helper()
	opts := generate.DefaultOptions()
	opts.Dir = t.TempDir()
	opts.Shards = 3
	opts.Rows = 200
	_, err := generate.Generate(context.Background(), opts, logger.NopLogger)
	require.NoError(t, err)
	return opts.Dir
}

func TestRun(t *testing.T) {
	dir := smallDataset(t)
	cfg := config.Default()
	cfg.DataDir = dir

	m := metrics.New()
	log := logger.NewBufferLogger()
	rep, err := bench.Run(context.Background(), bench.Options{
		Config:   *cfg,
		Variants: bench.Variants(reader.Formats, query.Modes),
		Repeat:   2,
		Logger:   log,
		Metrics:  m,
	})
	require.NoError(t, err)

	require.Len(t, rep.Timings, 4)
	names := make([]string, len(rep.Timings))
	for i, tm := range rep.Timings {
		names[i] = tm.Variant.Name()
		assert.Equal(t, 2, tm.Runs)
		assert.LessOrEqual(t, tm.Min, tm.Mean)
		assert.LessOrEqual(t, tm.Mean, tm.Max)
		assert.Positive(t, tm.Bytes)
	}
	assert.Equal(t, []string{"csv_eager", "csv_lazy", "parquet_eager", "parquet_lazy"}, names)
	assert.Empty(t, rep.Mismatches)
	assert.Len(t, rep.Summaries, 4)

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Contains(t, buf.String(), `shardstat_runs_total{mode="lazy",status="ok"} 4`)
}

func TestRunErrors(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	_, err := bench.Run(context.Background(), bench.Options{Config: *cfg, Variants: bench.Variants(reader.Formats, query.Modes)})
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig), "got %v", err)

	_, err = bench.Run(context.Background(), bench.Options{Config: *cfg, Repeat: 1})
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig), "got %v", err)

	// empty directory: no shards
	_, err = bench.Run(context.Background(), bench.Options{
		Config:   *cfg,
		Variants: []bench.Variant{{Format: reader.CSV, Mode: query.Eager}},
		Repeat:   1,
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
	assert.Contains(t, err.Error(), "csv_eager")
}

func TestSameSummary(t *testing.T) {
	a := &query.Summary{Columns: []string{"I", "P"}, Values: []float64{10, 0.5}, Valid: []bool{true, true}}

	tests := []struct {
		name string
		b    *query.Summary
		exp  bool
	}{
		{name: "equal", b: &query.Summary{Columns: []string{"I", "P"}, Values: []float64{10, 0.5}, Valid: []bool{true, true}}, exp: true},
		{name: "within tolerance", b: &query.Summary{Columns: []string{"I", "P"}, Values: []float64{10 + 1e-12, 0.5}, Valid: []bool{true, true}}, exp: true},
		{name: "different value", b: &query.Summary{Columns: []string{"I", "P"}, Values: []float64{10.1, 0.5}, Valid: []bool{true, true}}, exp: false},
		{name: "different null", b: &query.Summary{Columns: []string{"I", "P"}, Values: []float64{10, 0}, Valid: []bool{true, false}}, exp: false},
		{name: "different columns", b: &query.Summary{Columns: []string{"I"}, Values: []float64{10}, Valid: []bool{true}}, exp: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.exp, bench.SameSummary(a, test.b, 1e-9))
		})
	}
}

func TestReportFiles(t *testing.T) {
	rep := &bench.Report{Timings: []bench.Timing{
		{Variant: bench.Variant{Format: reader.CSV, Mode: query.Eager}, Runs: 3, Min: 2 * time.Second, Mean: 3 * time.Second, Max: 4 * time.Second},
		{Variant: bench.Variant{Format: reader.Parquet, Mode: query.Lazy}, Runs: 3, Min: 500 * time.Millisecond, Mean: time.Second, Max: 2 * time.Second},
	}}
	dir := t.TempDir()

	path := filepath.Join(dir, bench.MinTimesFile)
	require.NoError(t, rep.WriteCSV(path))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"variant", "format", "mode", "runs", "min_seconds", "mean_seconds", "max_seconds"},
		{"csv_eager", "csv", "eager", "3", "2", "3", "4"},
		{"parquet_lazy", "parquet", "lazy", "3", "0.5", "1", "2"},
	}, records)

	png := filepath.Join(dir, "min_times.png")
	require.NoError(t, rep.Plot(png))
	b, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))

	assert.Error(t, (&bench.Report{}).Plot(png))
}
