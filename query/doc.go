// Package query implements the join-aggregate pipeline over shard tables.
//
// The pipeline loads a key table and a set of fact shards, stacks the
// shards, left-joins them to the key table, groups the joined rows and
// computes per-group means, then reduces those to a mean of group means.
//
// It runs in one of two modes. Eager runs every step on fully materialized
// tables. Lazy builds a plan of Scan, Project, Join and GroupAgg nodes
// first; Optimize pushes the projection into the shard scan and fuses the
// join and aggregation so that each shard is joined and folded into the
// aggregates on its own, without a concatenated copy ever existing:
//
//	exec := query.NewExecutor(reader.ParquetDecoder{}, 8, log, nil)
//	groups, err := exec.Scan(facts).
//	    Select("A", "I", "P").
//	    LeftJoin(exec.ScanKeyTable(keys), "A", "key").
//	    GroupByMean("A").
//	    Collect(ctx)
//
// Both modes feed rows to the accumulators in the same order and produce
// bit-identical means.
package query
