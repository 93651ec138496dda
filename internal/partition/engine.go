// Package partition implements the graph + partition engine of spec.md
// §4.3: exact and truncated tag-based partitioning over the implicit k-mer
// graph, backed by an arena of mutable partition cells (spec.md §9
// "Cell-of-pointers → arena + index") rather than raw pointers.
package partition

import (
	"github.com/hmmm42/kmercount/internal/counttable"
	"github.com/hmmm42/kmercount/internal/graphkmer"
	"github.com/hmmm42/kmercount/internal/kerr"
	"github.com/hmmm42/kmercount/internal/kmer"
)

// PartitionID is a positive identifier for an equivalence class of tagged
// k-mers. 0 is never assigned — it serves as the zero value's "no
// partition" sentinel where needed.
type PartitionID uint32

// CellIndex addresses a slot in the engine's partition-cell arena.
type CellIndex int

// NullCell marks a tag that has been recorded in the partition map but not
// yet bound to any cell ("tagged, not yet assigned", spec.md §4.3.2 step 1).
const NullCell CellIndex = -1

// Budgets, spec.md §6 "Tunables exposed as configuration".
const (
	DefaultPartitionAllTagDepth     = 500
	DefaultPartitionMaxTagExamined  = 1_000_000
)

// Engine holds the partition map, the cell arena, and the reverse index
// (PartitionID -> set of cells) for one partitioning session over a single
// count table / graph. It is NOT safe for concurrent use (spec.md §5 "The
// partition engine is NOT thread-safe").
type Engine struct {
	table *counttable.Table
	codec *kmer.Codec
	graph *graphkmer.Graph

	// tags maps a tag's forward encoding to its cell. Only forward
	// encodings are ever used as map keys (spec.md §3); matching either
	// strand is done by probing both f and r against this map.
	tags    map[uint64]CellIndex
	tagOrder []uint64 // insertion order, for deterministic iteration (§4.3.2 step 2)

	cells   []PartitionID // arena: CellIndex -> owning PartitionID
	reverse map[PartitionID]map[CellIndex]struct{}
	nextPID PartitionID

	surrender map[PartitionID]struct{}

	AllTagDepth     int
	MaxTagExamined  int
}

// New constructs a partition engine over table, using graph as the implicit
// k-mer graph view. Budgets default to spec.md §6's compiled-in constants;
// set Engine.AllTagDepth / MaxTagExamined to override for tests.
func New(table *counttable.Table, graph *graphkmer.Graph) *Engine {
	return &Engine{
		table:          table,
		codec:          table.Codec(),
		graph:          graph,
		tags:           make(map[uint64]CellIndex),
		reverse:        make(map[PartitionID]map[CellIndex]struct{}),
		surrender:      make(map[PartitionID]struct{}),
		AllTagDepth:    DefaultPartitionAllTagDepth,
		MaxTagExamined: DefaultPartitionMaxTagExamined,
	}
}

// TagCount returns the number of distinct first-k-mers tagged so far
// (hashtable.cc's n_tags(), a tag-density reporting helper, not part of
// CORE).
func (e *Engine) TagCount() int { return len(e.tagOrder) }

// TagFirstKmer records seq's first k-mer as a tag with a null cell, unless
// it is already tagged. This is the producer side of spec.md §4.3.2 step 1
// and of the per-read bookkeeping that precedes truncated partitioning.
func (e *Engine) TagFirstKmer(seq string) (f, r uint64, err error) {
	f, r, err = e.codec.HashInit(seq)
	if err != nil {
		return 0, 0, kerr.Wrap(kerr.KindInputInvalid, err)
	}
	if _, ok := e.tags[f]; !ok {
		e.tags[f] = NullCell
		e.tagOrder = append(e.tagOrder, f)
	}
	return f, r, nil
}

func (e *Engine) allocatePID() PartitionID {
	e.nextPID++
	return e.nextPID
}

func (e *Engine) newCell(pid PartitionID) CellIndex {
	idx := CellIndex(len(e.cells))
	e.cells = append(e.cells, pid)
	if e.reverse[pid] == nil {
		e.reverse[pid] = make(map[CellIndex]struct{})
	}
	e.reverse[pid][idx] = struct{}{}
	return idx
}

// cellOf returns the non-null cell bound to a tag key, if any.
func (e *Engine) cellOf(key uint64) (CellIndex, bool) {
	c, ok := e.tags[key]
	if !ok || c == NullCell {
		return 0, false
	}
	return c, true
}

// tagKeyFor returns whichever of (f, r) is a recorded tag key, matching
// either strand per spec.md §3 ("lookups that need to match either strand
// test both f and r").
func (e *Engine) tagKeyFor(f, r uint64) (uint64, bool) {
	if _, ok := e.tags[f]; ok {
		return f, true
	}
	if _, ok := e.tags[r]; ok {
		return r, true
	}
	return 0, false
}

// PartitionIDOf returns the partition id currently bound to tag key f, if
// any.
func (e *Engine) PartitionIDOf(f uint64) (PartitionID, bool) {
	cell, ok := e.cellOf(f)
	if !ok {
		return 0, false
	}
	return e.cells[cell], true
}

// IsSurrendered reports whether pid is in the surrender set.
func (e *Engine) IsSurrendered(pid PartitionID) bool {
	_, ok := e.surrender[pid]
	return ok
}

// SurrenderCount returns the number of distinct surrendered partitions.
func (e *Engine) SurrenderCount() int { return len(e.surrender) }

func minPID(pids map[PartitionID]struct{}) PartitionID {
	var min PartitionID
	first := true
	for pid := range pids {
		if first || pid < min {
			min = pid
			first = false
		}
	}
	return min
}

// checkInvariants verifies I1-I3 (spec.md §3). It is a debug assertion, not
// user-triggerable, per spec.md §7 ("Internal invariants MAY be checked via
// debug assertions but MUST NOT be user-triggerable").
func (e *Engine) checkInvariants() error {
	for key, cell := range e.tags {
		if cell == NullCell {
			continue
		}
		pid := e.cells[cell]
		if _, ok := e.reverse[pid][cell]; !ok {
			return kerr.New(kerr.KindIO, "partition: I1 violated for tag %d: reverse[%d] missing cell %d", key, pid, cell)
		}
	}
	for pid, cells := range e.reverse {
		for cell := range cells {
			if e.cells[cell] != pid {
				return kerr.New(kerr.KindIO, "partition: I2 violated: cell %d in reverse[%d] but holds %d", cell, pid, e.cells[cell])
			}
		}
	}
	for pid := range e.surrender {
		if _, ok := e.reverse[pid]; !ok {
			return kerr.New(kerr.KindIO, "partition: I3 violated: surrendered pid %d is not live", pid)
		}
	}
	return nil
}

// AssignPartitionID implements spec.md §4.3.3 step 3: bind tag f to a
// partition, merging in every partition already reachable through
// taggedKmers (and through f's own prior cell, if it has one).
//
//   - If no partition is reachable, allocate a fresh cell/id for f.
//   - Otherwise, union: the chosen id is the minimum across every reachable
//     id; every cell of every other reachable id is rewritten in place to
//     the chosen id and merged into its reverse-index set (commutative in
//     the set of ids involved, so union order never changes the result —
//     spec.md T5).
//   - If surrender is true, the chosen id is added to the surrender set.
func (e *Engine) AssignPartitionID(f uint64, taggedKmers []uint64, surrender bool) PartitionID {
	pids := make(map[PartitionID]struct{})
	selfCell, hasSelf := e.cellOf(f)
	if hasSelf {
		pids[e.cells[selfCell]] = struct{}{}
	}
	for _, tk := range taggedKmers {
		if c, ok := e.cellOf(tk); ok {
			pids[e.cells[c]] = struct{}{}
		}
	}

	var chosen PartitionID
	if len(pids) == 0 {
		chosen = e.allocatePID()
		cell := e.newCell(chosen)
		e.tags[f] = cell
		if !containsTag(e.tagOrder, f) {
			e.tagOrder = append(e.tagOrder, f)
		}
	} else {
		chosen = minPID(pids)
		for pid := range pids {
			if pid == chosen {
				continue
			}
			for c := range e.reverse[pid] {
				e.cells[c] = chosen
				e.reverse[chosen][c] = struct{}{}
			}
			delete(e.reverse, pid)
		}
		if !hasSelf {
			var rep CellIndex
			for c := range e.reverse[chosen] {
				rep = c
				break
			}
			e.tags[f] = rep
			if !containsTag(e.tagOrder, f) {
				e.tagOrder = append(e.tagOrder, f)
			}
		}
	}

	if surrender {
		e.surrender[chosen] = struct{}{}
	}
	return chosen
}

func containsTag(order []uint64, f uint64) bool {
	for _, x := range order {
		if x == f {
			return true
		}
	}
	return false
}

// PartitionExact implements spec.md §4.3.2: an unbounded walk over every
// still-untagged-cell in iteration order (insertion order of TagFirstKmer
// calls, which is the only deterministic order available once reads have
// been consumed — spec.md leaves the exact iteration order unspecified
// beyond requiring determinism for testing).
func (e *Engine) PartitionExact() {
	for _, f := range append([]uint64(nil), e.tagOrder...) {
		if cell, ok := e.tags[f]; ok && cell != NullCell {
			continue
		}
		pid := e.allocatePID()
		cell := e.newCell(pid)
		e.tags[f] = cell

		seq := kmer.Decode(f, e.codec.K())
		sf, sr, err := e.codec.HashInit(seq)
		if err != nil {
			continue
		}
		graphkmer.WalkTaggedComponent(e.graph, sf, sr, func(vf, vr uint64) {
			if tk, ok := e.tagKeyFor(vf, vr); ok {
				e.tags[tk] = cell
			}
		})
	}
}

// findAllTags implements partition_find_all_tags (spec.md §4.3.3 step 2): a
// hand-rolled BFS (per spec.md §9 "Recursion -> explicit queue") from
// (startF, startR) that collects every already-tagged k-mer reachable
// through counted vertices, surrendering if the frontier or total-examined
// budget is exceeded. The start k-mer's own forward key never self-matches;
// a separate tag recorded on its reverse-complement strand is collected, and
// every other vertex contributes each of its strands that is a tag key.
func (e *Engine) findAllTags(startF, startR uint64) (tagged []uint64, surrendered bool) {
	type item struct{ f, r uint64 }

	startKey := kmer.Canonical(startF, startR)
	visited := map[uint64]bool{startKey: true}
	queue := []item{{startF, startR}}
	examined := 0
	if _, ok := e.tags[startR]; ok && startR != startF {
		tagged = append(tagged, startR)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		examined++
		if examined > e.MaxTagExamined {
			return tagged, true
		}

		for _, nb := range e.graph.Neighbors(cur.f, cur.r) {
			key := kmer.Canonical(nb.F, nb.R)
			if visited[key] {
				continue
			}
			visited[key] = true
			if _, ok := e.tags[nb.F]; ok {
				tagged = append(tagged, nb.F)
			}
			if _, ok := e.tags[nb.R]; ok && nb.R != nb.F {
				tagged = append(tagged, nb.R)
			}
			queue = append(queue, item{nb.F, nb.R})
			if len(queue) > e.AllTagDepth {
				return tagged, true
			}
		}
	}
	return tagged, false
}

// PartitionRead implements the per-read truncated-partitioning pass of
// spec.md §4.3.3: tag the read's first k-mer (if not already tagged),
// find its reachable tags under budget, and assign (or merge into) a
// partition id.
func (e *Engine) PartitionRead(seq string) (PartitionID, error) {
	if !kmer.IsValidRead(seq, e.codec.K()) {
		return 0, kerr.New(kerr.KindInputInvalid, "partition: invalid read (len=%d, k=%d)", len(seq), e.codec.K())
	}
	f, r, err := e.TagFirstKmer(seq)
	if err != nil {
		return 0, err
	}
	tagged, surrendered := e.findAllTags(f, r)
	return e.AssignPartitionID(f, tagged, surrendered), nil
}
