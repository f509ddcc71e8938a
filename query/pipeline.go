package query

import (
	"context"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/logger"
	"github.com/vegasq/shardstat/metrics"
	"github.com/vegasq/shardstat/reader"
	"github.com/vegasq/shardstat/table"
)

// Mode selects how a Pipeline evaluates a Request.
type Mode string

const (
	// Eager runs every step to completion before starting the next one.
	Eager Mode = "eager"
	// Lazy builds a plan and runs it once, optimized, on Collect.
	Lazy Mode = "lazy"
)

// Modes lists every mode in a stable order.
var Modes = []Mode{Eager, Lazy}

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Eager:
		return Eager, nil
	case Lazy:
		return Lazy, nil
	}
	return "", errors.Newf(errors.ErrInvalidConfig, "unknown mode %q (want eager or lazy)", s)
}

// Request describes one join-aggregate run.
type Request struct {
	FactPaths []string
	KeyPaths  []string

	GroupColumn  string
	JoinLeft     string
	JoinRight    string
	ValueColumns []string

	Mode Mode
}

// Columns returns the fact projection: the value columns, then the group
// and join columns if not already present.
func (r Request) Columns() []string {
	cols := make([]string, 0, len(r.ValueColumns)+2)
	seen := make(map[string]bool, cap(cols))
	for _, c := range append(append([]string(nil), r.ValueColumns...), r.GroupColumn, r.JoinLeft) {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cols = append(cols, c)
	}
	return cols
}

// Result is the outcome of one run.
type Result struct {
	RunID   string
	Mode    Mode
	Groups  *table.Table
	Summary *Summary
	Elapsed time.Duration
}

// Pipeline runs the join-aggregate query over shard files.
type Pipeline struct {
	Decoder     reader.Decoder
	Concurrency int
	Logger      logger.Logger
	Metrics     *metrics.Metrics
}

// Run loads the key table and the fact shards, left-joins them, computes
// per-group means and reduces those to a Summary. Any failure aborts the
// run; there is no partial result.
func (p *Pipeline) Run(ctx context.Context, req Request) (res *Result, err error) {
	if req.Mode == "" {
		req.Mode = Eager
	}
	runID := uuid.New().String()
	log := p.Logger
	if log == nil {
		log = logger.NopLogger
	}
	log = log.WithPrefix("[" + runID[:8] + "] ")
	exec := NewExecutor(p.Decoder, p.Concurrency, log, p.Metrics)

	start := time.Now()
	defer func() {
		p.Metrics.RunDone(string(req.Mode), err)
		if err != nil {
			log.Errorf("%s run failed after %v: %v", req.Mode, time.Since(start), err)
		}
	}()

	if len(req.FactPaths) == 0 {
		return nil, errors.New(errors.ErrNotFound, "no fact shards found")
	}
	log.Infof("%s run over %d shards, group by %s, join %s = %s",
		req.Mode, len(req.FactPaths), req.GroupColumn, req.JoinLeft, req.JoinRight)

	var groups *table.Table
	switch req.Mode {
	case Eager:
		groups, err = p.runEager(ctx, exec, req)
	case Lazy:
		groups, err = p.runLazy(ctx, exec, req)
	default:
		err = errors.Newf(errors.ErrInvalidConfig, "unknown mode %q", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	done := p.Metrics.Stage(string(req.Mode), "summarize")
	summary := Summarize(groups, req.GroupColumn)
	done()

	res = &Result{
		RunID:   runID,
		Mode:    req.Mode,
		Groups:  groups,
		Summary: summary,
		Elapsed: time.Since(start),
	}
	log.Infof("%s run done in %v: %d groups", req.Mode, res.Elapsed, groups.NumRows())
	return res, nil
}

// runEager materializes each intermediate table before the next step.
func (p *Pipeline) runEager(ctx context.Context, exec *Executor, req Request) (*table.Table, error) {
	const mode = string(Eager)
	log := exec.Logger

	done := p.Metrics.Stage(mode, "load_key")
	key, err := exec.Keys.Resolve(req.KeyPaths)
	done()
	if err != nil {
		return nil, err
	}

	done = p.Metrics.Stage(mode, "load_shards")
	shards, err := exec.Loader.Load(ctx, req.FactPaths, req.Columns())
	done()
	if err != nil {
		return nil, err
	}
	p.Metrics.AddShards(len(shards))

	done = p.Metrics.Stage(mode, "concat")
	fact, err := table.Concat(nil, shards...)
	done()
	if err != nil {
		return nil, err
	}
	p.Metrics.AddRows("concat", fact.NumRows())
	log.Debugf("fact table has %s rows", humanize.Comma(int64(fact.NumRows())))

	done = p.Metrics.Stage(mode, "join")
	joined, err := LeftJoin(fact, key, req.JoinLeft, req.JoinRight)
	done()
	if err != nil {
		return nil, err
	}
	p.Metrics.AddRows("join", joined.NumRows())

	done = p.Metrics.Stage(mode, "group")
	defer done()
	return GroupMeans(joined, req.GroupColumn)
}

// runLazy builds the plan and collects it once.
func (p *Pipeline) runLazy(ctx context.Context, exec *Executor, req Request) (*table.Table, error) {
	lf := p.Plan(exec, req)
	exec.Logger.Debugf("plan:\n%s", lf.Explain())

	done := p.Metrics.Stage(string(Lazy), "collect")
	defer done()
	return lf.Collect(ctx)
}

// Plan returns the deferred form of req. Building it reads nothing.
func (p *Pipeline) Plan(exec *Executor, req Request) *LazyFrame {
	if exec == nil {
		exec = NewExecutor(p.Decoder, p.Concurrency, p.Logger, p.Metrics)
	}
	return exec.Scan(req.FactPaths).
		Select(req.Columns()...).
		LeftJoin(exec.ScanKeyTable(req.KeyPaths), req.JoinLeft, req.JoinRight).
		GroupByMean(req.GroupColumn)
}
