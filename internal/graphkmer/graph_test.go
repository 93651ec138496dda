package graphkmer

import (
	"testing"

	"github.com/hmmm42/kmercount/internal/counttable"
)

func buildChain(t *testing.T, seq string, k int) (*counttable.Table, *Graph) {
	t.Helper()
	tbl, err := counttable.New(k, 1_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.IncrementSequence(seq, 0, 0); err != nil {
		t.Fatal(err)
	}
	return tbl, New(tbl)
}

// B4: CalcConnectedGraphSize stops exactly when this call's visited count
// first reaches threshold, never exploring further.
func TestCalcConnectedGraphSizeStopsAtThreshold(t *testing.T) {
	// A 10-base chain over k=4 has 7 distinct 4-mers, all in one component
	// (each overlaps its neighbor by k-1=3 bases).
	seq := "AACAGATTGC"
	tbl, g := buildChain(t, seq, 4)
	codec := tbl.Codec()

	startF, startR, err := codec.HashInit(seq[:4])
	if err != nil {
		t.Fatal(err)
	}

	w := NewComponentWalker(g)
	got := w.CalcConnectedGraphSize(startF, startR, 3)
	if got != 3 {
		t.Errorf("got %d newly-visited vertices, want exactly 3 (truncated at threshold)", got)
	}
}

// Unbounded walk (threshold == 0) visits the whole component.
func TestCalcConnectedGraphSizeUnbounded(t *testing.T) {
	seq := "AACAGATTGC"
	tbl, g := buildChain(t, seq, 4)
	codec := tbl.Codec()
	startF, startR, err := codec.HashInit(seq[:4])
	if err != nil {
		t.Fatal(err)
	}

	w := NewComponentWalker(g)
	got := w.CalcConnectedGraphSize(startF, startR, 0)
	if got != 7 {
		t.Errorf("got %d, want all 7 distinct 4-mers of the chain", got)
	}
}

// A vertex already in `seen` (from an earlier call on the shared walker) is
// skipped entirely by a later call: it contributes zero new visits.
func TestCalcConnectedGraphSizeSkipsAlreadySeen(t *testing.T) {
	seq := "ACGTACGTAC"
	tbl, g := buildChain(t, seq, 4)
	codec := tbl.Codec()
	startF, startR, err := codec.HashInit(seq[:4])
	if err != nil {
		t.Fatal(err)
	}

	w := NewComponentWalker(g)
	first := w.CalcConnectedGraphSize(startF, startR, 0)
	if first != 7 {
		t.Fatalf("first call: got %d, want 7", first)
	}
	second := w.CalcConnectedGraphSize(startF, startR, 0)
	if second != 0 {
		t.Errorf("second call on already-visited start: got %d, want 0", second)
	}
}

// An uncounted start vertex (count == 0) is ignored: zero contribution, no
// panic, no mutation of `seen`.
func TestCalcConnectedGraphSizeIgnoresUncountedStart(t *testing.T) {
	tbl, err := counttable.New(4, 1_000_000)
	if err != nil {
		t.Fatal(err)
	}
	g := New(tbl)
	codec := tbl.Codec()
	f, r, err := codec.HashInit("GGGG")
	if err != nil {
		t.Fatal(err)
	}
	w := NewComponentWalker(g)
	if got := w.CalcConnectedGraphSize(f, r, 0); got != 0 {
		t.Errorf("got %d for uncounted start, want 0", got)
	}
}

// Reset starts a fresh component enumeration: a vertex visited before Reset
// can be visited again afterward.
func TestComponentWalkerReset(t *testing.T) {
	seq := "AACAGATTGC"
	_, g := buildChain(t, seq, 4)
	f, r, err := g.codec.HashInit(seq[:4])
	if err != nil {
		t.Fatal(err)
	}

	w := NewComponentWalker(g)
	w.CalcConnectedGraphSize(f, r, 0)
	w.Reset()
	got := w.CalcConnectedGraphSize(f, r, 0)
	if got != 7 {
		t.Errorf("after Reset, got %d, want 7 (fresh seen set)", got)
	}
}

// WalkTaggedComponent visits every vertex of the component exactly once and
// never visits anything outside it.
func TestWalkTaggedComponentVisitsWholeComponent(t *testing.T) {
	seq := "AACAGATTGC"
	tbl, g := buildChain(t, seq, 4)
	codec := tbl.Codec()
	startF, startR, err := codec.HashInit(seq[:4])
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[uint64]bool)
	WalkTaggedComponent(g, startF, startR, func(f, r uint64) {
		seen[Node{F: f, R: r}.Key()] = true
	})
	if len(seen) != 7 {
		t.Errorf("visited %d distinct vertices, want 7", len(seen))
	}
}

// Graph.From returns only counted neighbors, never a 4-mer absent from the
// table.
func TestGraphFromFiltersToCountedNeighbors(t *testing.T) {
	tbl, g := buildChain(t, "ACGTACGTAC", 4)
	codec := tbl.Codec()
	f, r, err := codec.HashInit("ACGT")
	if err != nil {
		t.Fatal(err)
	}
	start := g.Seed(f, r)
	neighbors := g.From(start.ID())
	count := 0
	for neighbors.Next() {
		n := neighbors.Node().(Node)
		if !g.Present(n.F, n.R) {
			t.Errorf("From returned an uncounted neighbor")
		}
		count++
	}
	if count == 0 {
		t.Error("expected at least one neighbor in a 10-base chain")
	}
}
