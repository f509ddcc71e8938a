package query

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/logger"
	"github.com/vegasq/shardstat/metrics"
	"github.com/vegasq/shardstat/reader"
	"github.com/vegasq/shardstat/table"
)

// Executor runs plans against shard files.
type Executor struct {
	Loader  *reader.Loader
	Keys    *reader.KeyResolver
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// NewExecutor returns an Executor decoding files with dec and loading up
// to concurrency shards at once.
func NewExecutor(dec reader.Decoder, concurrency int, log logger.Logger, m *metrics.Metrics) *Executor {
	if log == nil {
		log = logger.NopLogger
	}
	return &Executor{
		Loader:  &reader.Loader{Decoder: dec, Concurrency: concurrency, Logger: log},
		Keys:    &reader.KeyResolver{Decoder: dec, Logger: log},
		Logger:  log,
		Metrics: m,
	}
}

// Execute evaluates a plan, optimized or not, to a table.
func (e *Executor) Execute(ctx context.Context, n *Node) (*table.Table, error) {
	switch n.Kind {
	case ScanNode:
		if n.KeyTable {
			return e.scanKeyTable(n)
		}
		return e.scanShards(ctx, n)

	case ProjectNode:
		in, err := e.Execute(ctx, n.Input)
		if err != nil {
			return nil, err
		}
		return in.Project(n.Columns...)

	case JoinNode:
		left, err := e.Execute(ctx, n.Input)
		if err != nil {
			return nil, err
		}
		right, err := e.Execute(ctx, n.Right)
		if err != nil {
			return nil, err
		}
		return LeftJoin(left, right, n.LeftOn, n.RightOn)

	case GroupAggNode:
		if n.Fused {
			return e.fusedGroupJoin(ctx, n)
		}
		in, err := e.Execute(ctx, n.Input)
		if err != nil {
			return nil, err
		}
		return GroupMeans(in, n.GroupBy)

	default:
		return nil, fmt.Errorf("unknown plan node %v", n.Kind)
	}
}

func (e *Executor) scanKeyTable(n *Node) (*table.Table, error) {
	t, err := e.Keys.Resolve(n.Paths)
	if err != nil {
		return nil, err
	}
	if n.Columns != nil {
		return t.Project(n.Columns...)
	}
	return t, nil
}

func (e *Executor) scanShards(ctx context.Context, n *Node) (*table.Table, error) {
	if len(n.Paths) == 0 {
		return nil, errors.New(errors.ErrNotFound, "no fact shards found")
	}
	tables, err := e.Loader.Load(ctx, n.Paths, n.Columns)
	if err != nil {
		return nil, err
	}
	e.Metrics.AddShards(len(tables))
	return table.Concat(nil, tables...)
}

// fusedGroupJoin streams fact shards in path order, joins each one against
// the key table and folds the joined rows straight into the aggregates.
// The rows reach the accumulators in the same order they would after a
// full concatenation and join, so the sums are identical.
func (e *Executor) fusedGroupJoin(ctx context.Context, n *Node) (*table.Table, error) {
	join := n.Input
	facts := join.Input
	if len(facts.Paths) == 0 {
		return nil, errors.New(errors.ErrNotFound, "no fact shards found")
	}

	right, err := e.Execute(ctx, join.Right)
	if err != nil {
		return nil, err
	}

	type emptyShard struct {
		i int
		t *table.Table
	}
	var (
		layout  *joinLayout
		stack   *table.Stack
		empties []emptyShard
		rows    int
	)
	agg := newGroupMeans(n.GroupBy)

	fold := func(shard *table.Table) error {
		leftRows, rightRows, err := layout.match(shard)
		if err != nil {
			return err
		}
		views := make([]view, 0, shard.NumCols()+len(layout.passengers))
		for _, c := range shard.Columns() {
			views = append(views, view{name: c.Name(), col: c, rows: leftRows})
		}
		for _, p := range layout.passengers {
			views = append(views, view{name: p.name, col: p.column, rows: rightRows})
		}
		rows += len(rightRows)
		return agg.add(views, len(rightRows))
	}
	start := func(first *table.Table) (err error) {
		stack = table.NewStack(first)
		layout, err = newJoinLayout(first.Schema(), right, join.LeftOn, join.RightOn)
		return err
	}

	err = e.Loader.Stream(ctx, facts.Paths, facts.Columns, func(i int, shard *table.Table) error {
		e.Metrics.AddShards(1)
		if shard.NumRows() == 0 {
			empties = append(empties, emptyShard{i: i, t: shard})
			return nil
		}
		if stack == nil {
			if err := start(shard); err != nil {
				return err
			}
		}
		if err := stack.Add(shard, i); err != nil {
			return err
		}
		return fold(shard)
	})
	if err != nil {
		return nil, err
	}

	if stack == nil {
		// every shard was empty
		if err := start(empties[0].t); err != nil {
			return nil, err
		}
		if err := fold(empties[0].t); err != nil {
			return nil, err
		}
	}
	for _, es := range empties {
		if err := stack.Add(es.t, es.i); err != nil {
			return nil, err
		}
	}
	e.Metrics.AddRows("join", rows)
	e.Logger.Debugf("fused scan folded %s joined rows from %d shards", humanize.Comma(int64(rows)), len(facts.Paths))
	return agg.result(), nil
}
