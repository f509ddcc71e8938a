package query

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vegasq/shardstat/table"
)

// NodeKind tags the variant held by a Node.
type NodeKind int

const (
	ScanNode NodeKind = iota
	ProjectNode
	JoinNode
	GroupAggNode
)

func (k NodeKind) String() string {
	switch k {
	case ScanNode:
		return "Scan"
	case ProjectNode:
		return "Project"
	case JoinNode:
		return "Join"
	case GroupAggNode:
		return "GroupAgg"
	default:
		return "Unknown"
	}
}

// Node is one logical operator of a deferred plan. Only the fields of its
// Kind are meaningful:
//
//	Scan:     Paths, KeyTable, Columns (nil reads every column)
//	Project:  Input, Columns
//	Join:     Input (left), Right, LeftOn, RightOn
//	GroupAgg: Input, GroupBy, Fused
//
// Nodes are immutable once built; the optimizer returns new nodes.
type Node struct {
	Kind NodeKind

	Paths    []string
	KeyTable bool
	Columns  []string

	Input *Node
	Right *Node

	LeftOn  string
	RightOn string

	GroupBy string
	Fused   bool
}

// LazyFrame builds a plan without touching data. Nothing is read until
// Collect.
type LazyFrame struct {
	node *Node
	exec *Executor
}

// Scan starts a plan over a set of fact shards, stacked in path order.
func (e *Executor) Scan(paths []string) *LazyFrame {
	return &LazyFrame{
		node: &Node{Kind: ScanNode, Paths: append([]string(nil), paths...)},
		exec: e,
	}
}

// ScanKeyTable starts a plan over key table candidates. Only the first
// path is read.
func (e *Executor) ScanKeyTable(paths []string) *LazyFrame {
	return &LazyFrame{
		node: &Node{Kind: ScanNode, Paths: append([]string(nil), paths...), KeyTable: true},
		exec: e,
	}
}

// Select keeps the named columns in the given order.
func (lf *LazyFrame) Select(columns ...string) *LazyFrame {
	return &LazyFrame{
		node: &Node{Kind: ProjectNode, Input: lf.node, Columns: append([]string(nil), columns...)},
		exec: lf.exec,
	}
}

// LeftJoin joins right onto lf; see the eager LeftJoin for the semantics.
func (lf *LazyFrame) LeftJoin(right *LazyFrame, leftOn, rightOn string) *LazyFrame {
	return &LazyFrame{
		node: &Node{Kind: JoinNode, Input: lf.node, Right: right.node, LeftOn: leftOn, RightOn: rightOn},
		exec: lf.exec,
	}
}

// GroupByMean computes per-group means of every numeric column; see
// GroupMeans.
func (lf *LazyFrame) GroupByMean(groupBy string) *LazyFrame {
	return &LazyFrame{
		node: &Node{Kind: GroupAggNode, Input: lf.node, GroupBy: groupBy},
		exec: lf.exec,
	}
}

// Plan returns the logical plan as built.
func (lf *LazyFrame) Plan() *Node { return lf.node }

// Collect optimizes and executes the plan.
func (lf *LazyFrame) Collect(ctx context.Context) (*table.Table, error) {
	return lf.exec.Execute(ctx, Optimize(lf.node))
}

// Explain renders the logical plan followed by the optimized one.
func (lf *LazyFrame) Explain() string {
	var b strings.Builder
	b.WriteString("logical plan:\n")
	writeNode(&b, lf.node, 1)
	b.WriteString("optimized plan:\n")
	writeNode(&b, Optimize(lf.node), 1)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Kind {
	case ScanNode:
		what := "SCAN"
		if n.KeyTable {
			what = "SCAN KEY TABLE"
		}
		fmt.Fprintf(b, "%s%s %s columns=%s\n", indent, what, describePaths(n.Paths), describeColumns(n.Columns))
	case ProjectNode:
		fmt.Fprintf(b, "%sPROJECT %s\n", indent, describeColumns(n.Columns))
		writeNode(b, n.Input, depth+1)
	case JoinNode:
		fmt.Fprintf(b, "%sLEFT JOIN %s = %s\n", indent, n.LeftOn, n.RightOn)
		writeNode(b, n.Input, depth+1)
		writeNode(b, n.Right, depth+1)
	case GroupAggNode:
		fused := ""
		if n.Fused {
			fused = " [fused scan+join]"
		}
		fmt.Fprintf(b, "%sGROUP BY %s MEAN(*)%s\n", indent, n.GroupBy, fused)
		writeNode(b, n.Input, depth+1)
	}
}

func describePaths(paths []string) string {
	switch len(paths) {
	case 0:
		return "[]"
	case 1:
		return "[" + filepath.Base(paths[0]) + "]"
	default:
		return fmt.Sprintf("[%s .. %s] (%d files)", filepath.Base(paths[0]), filepath.Base(paths[len(paths)-1]), len(paths))
	}
}

func describeColumns(cols []string) string {
	if cols == nil {
		return "*"
	}
	return "[" + strings.Join(cols, " ") + "]"
}

// Optimize rewrites a plan:
//
//   - adjacent projections collapse into the outer one
//   - a projection directly over a scan becomes the scan's column list, so
//     the decoder only reads those columns
//   - a group-by over a join of two scans is marked fused: shards are
//     joined and folded into the aggregates one at a time, never
//     concatenated
func Optimize(n *Node) *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Input = Optimize(n.Input)
	out.Right = Optimize(n.Right)

	switch out.Kind {
	case ProjectNode:
		in := out.Input
		if in.Kind == ProjectNode && subset(out.Columns, in.Columns) {
			merged := out
			merged.Input = in.Input
			return Optimize(&merged)
		}
		if in.Kind == ScanNode && (in.Columns == nil || subset(out.Columns, in.Columns)) {
			scan := *in
			scan.Columns = append([]string(nil), out.Columns...)
			return &scan
		}
	case GroupAggNode:
		join := out.Input
		if join.Kind == JoinNode && join.Input.Kind == ScanNode && !join.Input.KeyTable && join.Right.Kind == ScanNode {
			out.Fused = true
		}
	}
	return &out
}

func subset(cols, of []string) bool {
	set := make(map[string]bool, len(of))
	for _, c := range of {
		set[c] = true
	}
	for _, c := range cols {
		if !set[c] {
			return false
		}
	}
	return true
}
