// Package generate writes synthetic shard sets for running and timing the
// pipeline.
//
// A dataset is a directory holding N fact shards named table_<i>.<ext>
// and one key table named key_table.<ext>, in every requested format. Fact
// shards have columns named A, B, C... The first quarter hold lowercase
// letters, the second quarter integers in [1, letters], the second half
// floats in [0, 1). The key table maps each letter to a few integer
// columns named 0, 1, 2... holding values in [-5, -1), that is -5 to -2.
package generate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/logger"
	"github.com/vegasq/shardstat/reader"
	"github.com/vegasq/shardstat/table"
)

// Options controls the size and shape of a generated dataset.
type Options struct {
	Dir        string
	Shards     int
	Rows       int
	Columns    int
	Letters    int
	KeyColumns int
	Seed       uint64
	Formats    []reader.Format

	// Concurrency bounds how many shards are built and written at once.
	Concurrency int
}

// DefaultOptions returns the full-size dataset: 100 shards of 100,000 rows
// and 20 columns, in both formats.
func DefaultOptions() Options {
	return Options{
		Shards:      100,
		Rows:        100_000,
		Columns:     20,
		Letters:     26,
		KeyColumns:  3,
		Seed:        1,
		Formats:     reader.Formats,
		Concurrency: 4,
	}
}

func (o Options) validate() error {
	switch {
	case o.Dir == "":
		return errors.New(errors.ErrInvalidConfig, "output directory is required")
	case o.Shards < 0 || o.Rows < 0:
		return errors.New(errors.ErrInvalidConfig, "shards and rows must not be negative")
	case o.Columns < 4 || o.Columns > 26:
		return errors.Newf(errors.ErrInvalidConfig, "columns must be between 4 and 26, got %d", o.Columns)
	case o.Letters < 1 || o.Letters > 26:
		return errors.Newf(errors.ErrInvalidConfig, "letters must be between 1 and 26, got %d", o.Letters)
	case o.KeyColumns < 0:
		return errors.New(errors.ErrInvalidConfig, "key columns must not be negative")
	case len(o.Formats) == 0:
		return errors.New(errors.ErrInvalidConfig, "at least one format is required")
	}
	return nil
}

// Manifest lists what Generate wrote.
type Manifest struct {
	FactPaths map[reader.Format][]string
	KeyPaths  map[reader.Format]string
	Rows      int64
	Bytes     int64
}

// Generate writes the dataset described by opts. Shard i is built from a
// generator seeded with (Seed, i), so output does not depend on
// concurrency.
func Generate(ctx context.Context, opts Options, log logger.Logger) (*Manifest, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", opts.Dir, err)
	}

	m := &Manifest{
		FactPaths: make(map[reader.Format][]string),
		KeyPaths:  make(map[reader.Format]string),
	}
	for _, format := range opts.Formats {
		m.FactPaths[format] = make([]string, opts.Shards)
	}

	key := KeyTable(opts.Letters, opts.KeyColumns, rand.New(rand.NewPCG(opts.Seed, ^uint64(0))))
	for _, format := range opts.Formats {
		path := filepath.Join(opts.Dir, "key_table"+format.Ext())
		if err := WriteFile(path, format, key); err != nil {
			return nil, err
		}
		m.KeyPaths[format] = path
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i := 0; i < opts.Shards; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			shard := FactTable(opts.Rows, opts.Columns, opts.Letters, rand.New(rand.NewPCG(opts.Seed, uint64(i))))
			for _, format := range opts.Formats {
				path := filepath.Join(opts.Dir, "table_"+strconv.Itoa(i)+format.Ext())
				if err := WriteFile(path, format, shard); err != nil {
					return err
				}
				m.FactPaths[format][i] = path
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.Rows = int64(opts.Shards) * int64(opts.Rows)
	for _, paths := range m.FactPaths {
		for _, p := range paths {
			if st, err := os.Stat(p); err == nil {
				m.Bytes += st.Size()
			}
		}
	}
	log.Infof("generated %d shards of %s rows in %s (%s on disk)",
		opts.Shards, humanize.Comma(int64(opts.Rows)), opts.Dir, humanize.Bytes(uint64(m.Bytes)))
	return m, nil
}

// FactTable builds one fact shard.
func FactTable(rows, columns, letters int, rng *rand.Rand) *table.Table {
	half := columns / 2
	quarter := half / 2
	cols := make([]*table.Column, columns)
	for j := 0; j < columns; j++ {
		name := string(rune('A' + j))
		switch {
		case j < quarter:
			vals := make([]string, rows)
			for i := range vals {
				vals[i] = string(rune('a' + rng.IntN(letters)))
			}
			cols[j] = table.NewStringColumn(name, vals)
		case j < half:
			vals := make([]int64, rows)
			for i := range vals {
				vals[i] = int64(rng.IntN(letters) + 1)
			}
			cols[j] = table.NewInt64Column(name, vals)
		default:
			vals := make([]float64, rows)
			for i := range vals {
				vals[i] = rng.Float64()
			}
			cols[j] = table.NewFloat64Column(name, vals)
		}
	}
	return table.MustNewTable(cols...)
}

// KeyTable builds the lookup table: one row per letter.
func KeyTable(letters, columns int, rng *rand.Rand) *table.Table {
	keys := make([]string, letters)
	for i := range keys {
		keys[i] = string(rune('a' + i))
	}
	cols := []*table.Column{table.NewStringColumn("key", keys)}
	for j := 0; j < columns; j++ {
		vals := make([]int64, letters)
		for i := range vals {
			vals[i] = int64(rng.IntN(4) - 5)
		}
		cols = append(cols, table.NewInt64Column(strconv.Itoa(j), vals))
	}
	return table.MustNewTable(cols...)
}
