// Package bench times the pipeline over every storage format and
// evaluation mode, and checks that all of them agree on the answer.
package bench

import (
	"context"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vegasq/shardstat/config"
	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/logger"
	"github.com/vegasq/shardstat/metrics"
	"github.com/vegasq/shardstat/query"
	"github.com/vegasq/shardstat/reader"
	"github.com/vegasq/shardstat/table"
)

// Variant is one way of running the pipeline.
type Variant struct {
	Format reader.Format
	Mode   query.Mode
}

// Name returns e.g. "parquet_lazy".
func (v Variant) Name() string { return string(v.Format) + "_" + string(v.Mode) }

// Variants returns every format and mode combination, formats outermost.
func Variants(formats []reader.Format, modes []query.Mode) []Variant {
	vs := make([]Variant, 0, len(formats)*len(modes))
	for _, f := range formats {
		for _, m := range modes {
			vs = append(vs, Variant{Format: f, Mode: m})
		}
	}
	return vs
}

// Options configures a benchmark.
type Options struct {
	// Config supplies the data directory, patterns and columns. Its Format
	// and Mode are overridden per variant.
	Config config.Config

	Variants []Variant
	Repeat   int

	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// Timing aggregates the wall times of one variant.
type Timing struct {
	Variant Variant
	Runs    int
	Min     time.Duration
	Mean    time.Duration
	Max     time.Duration
	Bytes   int64
}

// Report is the outcome of a benchmark.
type Report struct {
	Timings []Timing

	// Summaries holds the summary of the last run of each variant, by name.
	Summaries map[string]*query.Summary

	// Mismatches lists variants whose summary differs from the first
	// variant's.
	Mismatches []string
}

// Run executes every variant opts.Repeat times, in order. A failed run
// aborts the benchmark.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Repeat < 1 {
		return nil, errors.Newf(errors.ErrInvalidConfig, "repeat must be at least 1, got %d", opts.Repeat)
	}
	if len(opts.Variants) == 0 {
		return nil, errors.New(errors.ErrInvalidConfig, "no variants to run")
	}
	log := opts.Logger
	if log == nil {
		log = logger.NopLogger
	}

	rep := &Report{Summaries: make(map[string]*query.Summary)}
	var first *query.Summary
	for _, v := range opts.Variants {
		cfg := opts.Config
		cfg.Format = string(v.Format)
		cfg.Mode = string(v.Mode)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		req, err := cfg.Request()
		if err != nil {
			return nil, err
		}
		dec, err := reader.DecoderFor(v.Format)
		if err != nil {
			return nil, err
		}
		p := &query.Pipeline{
			Decoder:     dec,
			Concurrency: cfg.Concurrency,
			Logger:      log.WithPrefix(v.Name() + " "),
			Metrics:     opts.Metrics,
		}

		tm := Timing{Variant: v, Min: time.Duration(math.MaxInt64), Bytes: inputBytes(req)}
		var total time.Duration
		var summary *query.Summary
		for i := 0; i < opts.Repeat; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res, err := p.Run(ctx, req)
			if err != nil {
				return nil, errors.Wrapf(err, "variant %s", v.Name())
			}
			tm.Runs++
			total += res.Elapsed
			tm.Min = min(tm.Min, res.Elapsed)
			tm.Max = max(tm.Max, res.Elapsed)
			summary = res.Summary
		}
		tm.Mean = total / time.Duration(tm.Runs)
		rep.Timings = append(rep.Timings, tm)
		rep.Summaries[v.Name()] = summary

		log.Infof("%s: min %v, mean %v over %d runs (%s of input)",
			v.Name(), tm.Min, tm.Mean, tm.Runs, humanize.Bytes(uint64(tm.Bytes)))

		if first == nil {
			first = summary
		} else if !SameSummary(first, summary, 1e-9) {
			log.Warnf("%s summary differs from %s", v.Name(), opts.Variants[0].Name())
			rep.Mismatches = append(rep.Mismatches, v.Name())
		}
	}
	return rep, nil
}

func inputBytes(req query.Request) int64 {
	var n int64
	for _, p := range append(append([]string(nil), req.FactPaths...), req.KeyPaths...) {
		if st, err := os.Stat(p); err == nil {
			n += st.Size()
		}
	}
	return n
}

// SameSummary reports whether a and b have the same columns, the same
// null values, and values within a relative tolerance of each other.
func SameSummary(a, b *query.Summary, tol float64) bool {
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for i, name := range a.Columns {
		if b.Columns[i] != name || a.Valid[i] != b.Valid[i] {
			return false
		}
		if !a.Valid[i] {
			continue
		}
		x, y := a.Values[i], b.Values[i]
		if x == y {
			continue
		}
		if math.Abs(x-y) > tol*math.Max(math.Abs(x), math.Abs(y)) {
			return false
		}
	}
	return true
}

// Table renders the timings one row per variant, in seconds.
func (r *Report) Table() *table.Table {
	n := len(r.Timings)
	var (
		names   = make([]string, n)
		formats = make([]string, n)
		modes   = make([]string, n)
		runs    = make([]int64, n)
		mins    = make([]float64, n)
		means   = make([]float64, n)
		maxes   = make([]float64, n)
	)
	for i, tm := range r.Timings {
		names[i] = tm.Variant.Name()
		formats[i] = string(tm.Variant.Format)
		modes[i] = string(tm.Variant.Mode)
		runs[i] = int64(tm.Runs)
		mins[i] = tm.Min.Seconds()
		means[i] = tm.Mean.Seconds()
		maxes[i] = tm.Max.Seconds()
	}
	return table.MustNewTable(
		table.NewStringColumn("variant", names),
		table.NewStringColumn("format", formats),
		table.NewStringColumn("mode", modes),
		table.NewInt64Column("runs", runs),
		table.NewFloat64Column("min_seconds", mins),
		table.NewFloat64Column("mean_seconds", means),
		table.NewFloat64Column("max_seconds", maxes),
	)
}

