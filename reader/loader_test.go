package reader

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/logger"
	"github.com/vegasq/shardstat/table"
)

// fakeDecoder builds a one-row table per path and records peak concurrency.
type fakeDecoder struct {
	delay   func(path string) time.Duration
	fail    string
	active  int32
	peak    int32
	mu      sync.Mutex
	decoded []string
}

func (d *fakeDecoder) Decode(path string, columns []string) (*table.Table, error) {
	n := atomic.AddInt32(&d.active, 1)
	defer atomic.AddInt32(&d.active, -1)
	for {
		p := atomic.LoadInt32(&d.peak)
		if n <= p || atomic.CompareAndSwapInt32(&d.peak, p, n) {
			break
		}
	}
	if d.delay != nil {
		time.Sleep(d.delay(path))
	}
	d.mu.Lock()
	d.decoded = append(d.decoded, path)
	d.mu.Unlock()
	if path == d.fail {
		return nil, errors.Newf(errors.ErrDecode, "%s: corrupt", path)
	}
	return table.MustNewTable(table.NewStringColumn("path", []string{path})).WithSource(path), nil
}

func shardPaths(n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("table_%02d.csv", i)
	}
	return paths
}

func TestLoader_LoadKeepsPathOrder(t *testing.T) {
	paths := shardPaths(12)
	rank := make(map[string]int, len(paths))
	for i, p := range paths {
		rank[p] = i
	}
	dec := &fakeDecoder{delay: func(path string) time.Duration {
		// earlier shards finish last
		return time.Duration(len(paths)-rank[path]) * time.Millisecond
	}}
	l := &Loader{Decoder: dec, Concurrency: 4}

	tables, err := l.Load(context.Background(), paths, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for i, tbl := range tables {
		if tbl.Source() != paths[i] {
			t.Errorf("tables[%d] from %s, want %s", i, tbl.Source(), paths[i])
		}
	}
	if peak := atomic.LoadInt32(&dec.peak); peak > 4 {
		t.Errorf("peak concurrency = %d, want <= 4", peak)
	}
}

func TestLoader_StreamCallsInOrder(t *testing.T) {
	paths := shardPaths(20)
	dec := &fakeDecoder{delay: func(path string) time.Duration {
		if path == paths[0] {
			return 20 * time.Millisecond
		}
		return 0
	}}
	l := &Loader{Decoder: dec, Concurrency: 3}

	var seen []int
	err := l.Stream(context.Background(), paths, nil, func(i int, tbl *table.Table) error {
		seen = append(seen, i)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	want := make([]int, len(paths))
	for i := range want {
		want[i] = i
	}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("Stream() order = %v", seen)
	}
	if peak := atomic.LoadInt32(&dec.peak); peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestLoader_FailFast(t *testing.T) {
	paths := shardPaths(8)
	dec := &fakeDecoder{fail: paths[2]}
	l := &Loader{Decoder: dec, Concurrency: 2}

	_, err := l.Load(context.Background(), paths, nil)
	if !errors.Is(err, errors.ErrDecode) {
		t.Fatalf("Load() error = %v, want DecodeError", err)
	}
	if !strings.Contains(err.Error(), paths[2]) {
		t.Errorf("error %q should name the failing shard", err)
	}
}

func TestLoader_CallbackErrorStops(t *testing.T) {
	l := &Loader{Decoder: &fakeDecoder{}, Concurrency: 2}
	stop := errors.New(errors.ErrUncoded, "stop")
	calls := 0
	err := l.Stream(context.Background(), shardPaths(10), nil, func(i int, tbl *table.Table) error {
		calls++
		if i == 1 {
			return stop
		}
		return nil
	})
	if err != stop {
		t.Fatalf("Stream() error = %v, want %v", err, stop)
	}
	if calls != 2 {
		t.Errorf("callback ran %d times, want 2", calls)
	}
}

func TestLoader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &Loader{Decoder: &fakeDecoder{}}
	if _, err := l.Load(ctx, shardPaths(3), nil); err == nil {
		t.Fatal("Load() expected error on cancelled context")
	}
}

func TestLoader_Empty(t *testing.T) {
	l := &Loader{Decoder: &fakeDecoder{}}
	tables, err := l.Load(context.Background(), nil, nil)
	if err != nil || len(tables) != 0 {
		t.Fatalf("Load(nil) = %v, %v", tables, err)
	}
}

func TestLoader_ParquetProjection(t *testing.T) {
	dir := t.TempDir()
	writeParquet(t, dir, "table_0.parquet", []shardRow{{A: "x", I: 10, P: floatPtr(1)}})
	writeParquet(t, dir, "table_1.parquet", []shardRow{{A: "x", I: 20, P: floatPtr(3)}, {A: "y", I: 5, P: floatPtr(5)}})
	writeParquet(t, dir, "key_table.parquet", []shardRow{{A: "k"}})

	paths, err := Glob(dir, "table_*", Parquet)
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "table_0.parquet" {
		t.Fatalf("Glob() = %v", paths)
	}

	l := &Loader{Decoder: ParquetDecoder{}, Concurrency: 2, Logger: logger.NopLogger}
	tables, err := l.Load(context.Background(), paths, []string{"A", "I"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tables[0].NumRows() != 1 || tables[1].NumRows() != 2 {
		t.Errorf("rows = %d, %d", tables[0].NumRows(), tables[1].NumRows())
	}
	if names := tables[1].Schema().Names(); !reflect.DeepEqual(names, []string{"A", "I"}) {
		t.Errorf("columns = %v", names)
	}
}

func TestKeyResolver_FirstMatchWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "key_table.csv", "key,extra\nx,100\n")
	writeFile(t, dir, "other_table.csv", "key,extra\nx,1\n")

	paths, err := Glob(dir, "*table", CSV)
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	log := logger.NewBufferLogger()
	r := &KeyResolver{Decoder: CSVDecoder{}, Logger: log}

	got, err := r.Resolve(paths)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if filepath.Base(got.Source()) != "key_table.csv" {
		t.Errorf("Resolve() picked %s", got.Source())
	}
	lines := log.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "2 key table candidates") {
		t.Errorf("log lines = %q", lines)
	}
}

func TestKeyResolver_NotFound(t *testing.T) {
	r := &KeyResolver{Decoder: CSVDecoder{}}
	_, err := r.Resolve(nil)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("Resolve() error = %v, want NotFound", err)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" Parquet "); err != nil || f != Parquet {
		t.Errorf("ParseFormat(Parquet) = %v, %v", f, err)
	}
	if _, err := ParseFormat("arrow"); !errors.Is(err, errors.ErrInvalidConfig) {
		t.Errorf("ParseFormat(arrow) error = %v", err)
	}
}
