// Package graphkmer exposes the implicit 8-regular k-mer graph of spec.md
// §4.3 as a gonum graph.Graph, and drives unbounded traversals of it with
// gonum's traverse.BreadthFirst — the connected-component walk (§4.3.1) and
// the unbounded exact-partitioning walk (§4.3.2). The budget-tracking
// truncated walk (§4.3.3) cannot be expressed this way (it needs the BFS
// frontier's queue length, which traverse.BreadthFirst does not expose) and
// is implemented with an explicit queue in package partition; see
// DESIGN.md.
package graphkmer

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/hmmm42/kmercount/internal/counttable"
	"github.com/hmmm42/kmercount/internal/kmer"
)

// bases are visited in a fixed order so that, when a traversal is truncated,
// the same vertices populate `seen` first across runs (spec.md §4.3.1 "Tie-
// breaks and ordering").
var bases = [4]byte{'A', 'C', 'G', 'T'}

// Node is a vertex of the implicit k-mer graph: a concrete (forward,
// reverse-complement) encoding. Two Nodes with different (F, R) pairs that
// canonicalize to the same key represent the same counted vertex and carry
// the same ID.
type Node struct {
	F, R uint64
}

// ID implements graph.Node. It is the canonical key of the (F, R) pair,
// cast to int64 — gonum IDs need only be distinct per node, not ordered.
func (n Node) ID() int64 { return int64(kmer.Canonical(n.F, n.R)) }

// Key returns the canonical key as a uint64, for count-table lookups.
func (n Node) Key() uint64 { return kmer.Canonical(n.F, n.R) }

// Graph is a gonum graph.Graph view of the count table: a vertex exists iff
// its canonical key has a non-zero counter, and edges join k-mers
// overlapping by k-1 bases on either strand (the 4 forward + 4 backward
// single-base extensions). The graph is generated lazily — From and Node
// only resolve ids this Graph has previously handed out via seeding or
// expansion, which is sufficient for BFS/DFS traversal starting from a
// caller-supplied vertex.
type Graph struct {
	table *counttable.Table
	codec *kmer.Codec
	cache map[int64]Node
}

// New constructs a lazy graph view over table.
func New(table *counttable.Table) *Graph {
	return &Graph{
		table: table,
		codec: table.Codec(),
		cache: make(map[int64]Node),
	}
}

// Seed registers (f, r) as a graph vertex the caller intends to start a
// traversal from, so that Node/From can resolve its id.
func (g *Graph) Seed(f, r uint64) Node {
	n := Node{F: f, R: r}
	g.cache[n.ID()] = n
	return n
}

// Present reports whether the vertex for (f, r) is counted.
func (g *Graph) Present(f, r uint64) bool {
	return g.table.Present(kmer.Canonical(f, r))
}

// Neighbors returns the (up to) 8 counted single-base extensions of (f, r),
// forward-A,C,G,T then backward-A,C,G,T, for callers that need raw (f, r)
// pairs rather than a gonum graph.Node (e.g. the truncated partitioning
// walk's hand-rolled queue, which must test each neighbor against a tag map
// keyed by forward encoding, not by canonical id).
func (g *Graph) Neighbors(f, r uint64) []Node { return g.neighbors(Node{F: f, R: r}) }

func (g *Graph) neighbors(n Node) []Node {
	out := make([]Node, 0, 8)
	for _, b := range bases {
		if nf, nr, err := g.codec.RollForward(n.F, n.R, b); err == nil && g.Present(nf, nr) {
			out = append(out, Node{F: nf, R: nr})
		}
	}
	for _, b := range bases {
		if nf, nr, err := g.codec.RollBackward(n.F, n.R, b); err == nil && g.Present(nf, nr) {
			out = append(out, Node{F: nf, R: nr})
		}
	}
	return out
}

// Node implements graph.Graph.
func (g *Graph) Node(id int64) graph.Node {
	if n, ok := g.cache[id]; ok {
		return n
	}
	return nil
}

// Nodes implements graph.Graph. It only iterates vertices this Graph has
// discovered so far (seeded or reached via From); the true vertex set is
// the whole count table and is never materialized.
func (g *Graph) Nodes() graph.Nodes {
	nodes := make([]graph.Node, 0, len(g.cache))
	for _, n := range g.cache {
		nodes = append(nodes, n)
	}
	return iterator.NewOrderedNodes(nodes)
}

// From implements graph.Graph: the (up to) 8 counted neighbors of id.
func (g *Graph) From(id int64) graph.Nodes {
	n, ok := g.cache[id]
	if !ok {
		return iterator.NewOrderedNodes(nil)
	}
	neighbors := g.neighbors(n)
	nodes := make([]graph.Node, 0, len(neighbors))
	for _, nb := range neighbors {
		g.cache[nb.ID()] = nb
		nodes = append(nodes, nb)
	}
	return iterator.NewOrderedNodes(nodes)
}

// HasEdgeBetween implements graph.Graph.
func (g *Graph) HasEdgeBetween(xid, yid int64) bool {
	x, ok := g.cache[xid]
	if !ok {
		return false
	}
	for _, nb := range g.neighbors(x) {
		if nb.ID() == yid {
			return true
		}
	}
	return false
}

// Edge implements graph.Graph.
func (g *Graph) Edge(uid, vid int64) graph.Edge {
	if !g.HasEdgeBetween(uid, vid) {
		return nil
	}
	return simple.Edge{F: g.cache[uid], T: g.cache[vid]}
}

// ComponentWalker drives repeated connected-component walks over a Graph,
// sharing one `seen` set across calls the way spec.md §4.3.1's
// `calc_connected_graph_size(start_key, &count, &seen, threshold)` shares
// its out-parameters across a whole file pass (e.g. trim_graphs iterating
// every read in a FASTA stream).
type ComponentWalker struct {
	graph *Graph
	bf    traverse.BreadthFirst

	// big records every vertex visited during a call whose component was
	// classified "big" (threshold reached). A later call that lands on an
	// already-seen vertex has no way to re-derive that classification from
	// `seen` alone, since `seen` forgets which component a vertex belongs
	// to — big is the classification callers like trim_graphs fold back in
	// via Big.
	big map[uint64]bool
}

// NewComponentWalker creates a walker with a fresh, empty `seen` set.
func NewComponentWalker(g *Graph) *ComponentWalker {
	return &ComponentWalker{graph: g, big: make(map[uint64]bool)}
}

// Reset clears the shared `seen` set and big-component classification,
// starting a new component enumeration.
func (w *ComponentWalker) Reset() {
	w.bf.Reset()
	w.big = make(map[uint64]bool)
}

// Seen reports whether the vertex for (f, r) has already been visited by
// this walker.
func (w *ComponentWalker) Seen(f, r uint64) bool {
	n := Node{F: f, R: r}
	return w.bf.Visited(n)
}

// Big reports whether (f, r) was visited as part of a component a prior
// call classified as having reached its threshold, even if the vertex
// itself contributed zero to *this* call's count because it was already in
// `seen`.
func (w *ComponentWalker) Big(f, r uint64) bool {
	return w.big[kmer.Canonical(f, r)]
}

// CalcConnectedGraphSize performs the connected-component walk of spec.md
// §4.3.1 starting at (startF, startR). If the start vertex is uncounted it
// is ignored (not an error — the component size contribution is zero). If
// it is already in `seen` it is skipped entirely, consistent with "skip any
// vertex already in seen" (callers that need to know whether that prior
// visit belonged to a big component should consult Big). When threshold >
// 0, traversal stops the instant this call's visited count first reaches
// threshold — the returned count is then a lower bound, not the exact
// component size, and every vertex visited during this call, together with
// the frontier vertices already queued into `seen`, is recorded as
// belonging to a big component.
//
// visitedThisCall reports how many *new* vertices this call added to the
// shared seen set (the conventional "count" delta callers fold into their
// own running total).
func (w *ComponentWalker) CalcConnectedGraphSize(startF, startR uint64, threshold int) (visitedThisCall int) {
	if !w.graph.Present(startF, startR) {
		return 0
	}
	start := w.graph.Seed(startF, startR)
	if w.bf.Visited(start) {
		return 0
	}

	var visited []uint64
	until := func(n graph.Node, _ int) bool {
		visitedThisCall++
		visited = append(visited, n.(Node).Key())
		if threshold > 0 && visitedThisCall >= threshold {
			return true
		}
		return false
	}
	if w.bf.Walk(w.graph, start, until) != nil {
		// Stopping early leaves the rest of the frontier queued inside bf,
		// where a later call would dequeue it first. Drain the queue without
		// following any edge; those vertices are already in `seen`, so they
		// are recorded as part of this big component too.
		w.bf.Traverse = func(graph.Edge) bool { return false }
		w.bf.Walk(w.graph, start, func(n graph.Node, _ int) bool {
			visited = append(visited, n.(Node).Key())
			return false
		})
		w.bf.Traverse = nil
	}
	if threshold > 0 && visitedThisCall >= threshold {
		for _, key := range visited {
			w.big[key] = true
		}
	}
	return visitedThisCall
}

// WalkTaggedComponent performs the unbounded exact-partitioning walk of
// spec.md §4.3.2: visit the whole connected component of (startF, startR)
// and call onVisit for every vertex (including the start vertex). It uses a
// fresh, call-scoped BreadthFirst walker — exact partitioning does not share
// `seen` across reads the way the truncated pass does; each read's tag gets
// its own full walk (§4.3.2 operates over the partition map's tag set, not a
// cross-read visited set).
func WalkTaggedComponent(g *Graph, startF, startR uint64, onVisit func(f, r uint64)) {
	if !g.Present(startF, startR) {
		return
	}
	start := g.Seed(startF, startR)
	var bf traverse.BreadthFirst
	bf.Walk(g, start, func(n graph.Node, _ int) bool {
		kn := n.(Node)
		onVisit(kn.F, kn.R)
		return false
	})
}
