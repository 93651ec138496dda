package partition

import (
	"bytes"
	"sort"
	"testing"

	"github.com/hmmm42/kmercount/internal/counttable"
	"github.com/hmmm42/kmercount/internal/graphkmer"
)

func setup(t *testing.T, k int, seqs ...string) (*counttable.Table, *graphkmer.Graph) {
	t.Helper()
	tbl, err := counttable.New(k, 1_000_000)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range seqs {
		if _, err := tbl.IncrementSequence(s, 0, 0); err != nil {
			t.Fatal(err)
		}
	}
	return tbl, graphkmer.New(tbl)
}

// Scenario 3: two disjoint components, exact partitioning yields exactly 2
// partitions.
func TestPartitionExactTwoDisjointComponents(t *testing.T) {
	tbl, g := setup(t, 5, "AAAAAAAAAA", "CCCCCCCCCC")
	e := New(tbl, g)

	fA, _, err := e.TagFirstKmer("AAAAAAAAAA")
	if err != nil {
		t.Fatal(err)
	}
	fC, _, err := e.TagFirstKmer("CCCCCCCCCC")
	if err != nil {
		t.Fatal(err)
	}

	e.PartitionExact()

	pidA, ok := e.PartitionIDOf(fA)
	if !ok {
		t.Fatal("A's first k-mer was never assigned a partition")
	}
	pidC, ok := e.PartitionIDOf(fC)
	if !ok {
		t.Fatal("C's first k-mer was never assigned a partition")
	}
	if pidA == pidC {
		t.Errorf("disjoint components merged into one partition: %d", pidA)
	}
	if len(e.reverse) != 2 {
		t.Errorf("got %d live partitions, want 2", len(e.reverse))
	}
	if err := e.checkInvariants(); err != nil {
		t.Error(err)
	}
}

// Scenario 4 (adapted): a component whose exploration exceeds the
// configured MaxTagExamined budget surrenders.
func TestPartitionReadStressSurrenders(t *testing.T) {
	seq := "ACGTGCATGCATGCTAGCTAGGATCGATCGTACGATCGTAGCATCGATCG"
	tbl, g := setup(t, 5, seq)
	e := New(tbl, g)
	e.MaxTagExamined = 3 // force surrender on a component that would otherwise fit easily

	pid, err := e.PartitionRead(seq)
	if err != nil {
		t.Fatal(err)
	}
	if !e.IsSurrendered(pid) {
		t.Error("expected partition to be surrendered under a tiny MaxTagExamined budget")
	}
	if err := e.checkInvariants(); err != nil {
		t.Error(err)
	}
}

// Scenario 6: three reads tagging three first-k-mers of one connected
// component, processed in read order, all resolve to the smallest assigned
// PartitionID.
func TestPartitionReadMergesThreeTagsInOneComponent(t *testing.T) {
	master := "ACGTACGATCGATCGTAGCTAGCATCGTAGCATG"
	tbl, g := setup(t, 5, master)
	e := New(tbl, g)

	reads := []string{master, master[5:], master[10:]}
	var pids []PartitionID
	for _, r := range reads {
		pid, err := e.PartitionRead(r)
		if err != nil {
			t.Fatal(err)
		}
		pids = append(pids, pid)
		if err := e.checkInvariants(); err != nil { // T6
			t.Fatal(err)
		}
	}
	for i, pid := range pids {
		if pid != pids[0] {
			t.Errorf("read %d resolved to pid %d, want %d (same as first read)", i, pid, pids[0])
		}
	}
}

// equivalenceClasses groups tag keys by the PartitionID their cell holds,
// independent of the numeric id assigned (T5 cares about grouping, not
// labels).
func equivalenceClasses(e *Engine) [][]uint64 {
	byPID := make(map[PartitionID][]uint64)
	for _, f := range e.tagOrder {
		pid, ok := e.PartitionIDOf(f)
		if !ok {
			continue
		}
		byPID[pid] = append(byPID[pid], f)
	}
	var classes [][]uint64
	for _, members := range byPID {
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		classes = append(classes, members)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i][0] < classes[j][0] })
	return classes
}

func classesEqual(a, b [][]uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

// T5: union commutativity. Merging the same three reads in two different
// orders yields the same final equivalence classes.
func TestUnionCommutativity(t *testing.T) {
	master := "ACGTACGATCGATCGTAGCTAGCATCGTAGCATG"
	reads := []string{master, master[5:], master[10:]}

	tbl1, g1 := setup(t, 5, master)
	e1 := New(tbl1, g1)
	for _, r := range reads {
		if _, err := e1.PartitionRead(r); err != nil {
			t.Fatal(err)
		}
	}

	tbl2, g2 := setup(t, 5, master)
	e2 := New(tbl2, g2)
	reversedReads := []string{reads[2], reads[1], reads[0]}
	for _, r := range reversedReads {
		if _, err := e2.PartitionRead(r); err != nil {
			t.Fatal(err)
		}
	}

	c1 := equivalenceClasses(e1)
	c2 := equivalenceClasses(e2)
	if !classesEqual(c1, c2) {
		t.Errorf("union order changed equivalence classes:\n%v\nvs\n%v", c1, c2)
	}
}

// T4: checkpoint save/load reproduces equivalence classes and the surrender
// set exactly.
func TestCheckpointRoundTrip(t *testing.T) {
	master := "ACGTACGATCGATCGTAGCTAGCATCGTAGCATG"
	tbl, g := setup(t, 5, master)
	e := New(tbl, g)
	e.MaxTagExamined = 2 // force at least one surrender for the test to exercise it

	reads := []string{master, master[5:], master[10:]}
	for _, r := range reads {
		if _, err := e.PartitionRead(r); err != nil {
			t.Fatal(err)
		}
	}

	var mapBuf, survBuf bytes.Buffer
	if err := e.SaveMap(&mapBuf); err != nil {
		t.Fatal(err)
	}
	if err := e.SaveSurrender(&survBuf); err != nil {
		t.Fatal(err)
	}

	reloaded := New(tbl, g)
	if err := reloaded.LoadMap(bytes.NewReader(mapBuf.Bytes())); err != nil {
		t.Fatal(err)
	}
	if err := reloaded.LoadSurrender(bytes.NewReader(survBuf.Bytes())); err != nil {
		t.Fatal(err)
	}

	want := equivalenceClasses(e)
	got := equivalenceClasses(reloaded)
	if !classesEqual(want, got) {
		t.Errorf("reload produced different equivalence classes:\n%v\nvs\n%v", got, want)
	}

	for pid := range e.surrender {
		if !reloaded.IsSurrendered(pid) {
			t.Errorf("surrendered pid %d not reloaded", pid)
		}
	}
	if reloaded.SurrenderCount() != e.SurrenderCount() {
		t.Errorf("got %d surrendered pids after reload, want %d", reloaded.SurrenderCount(), e.SurrenderCount())
	}
}

// LoadSurrender reads the surrender set from the dedicated surrender stream
// that SaveSurrender wrote, not from the partition-map stream (the original
// bug spec.md §9 calls out).
func TestLoadSurrenderReadsOnlyItsOwnStream(t *testing.T) {
	master := "ACGTACGATCGATCGTAGCTAGCATCGTAGCATG"
	tbl, g := setup(t, 5, master)
	e := New(tbl, g)
	e.MaxTagExamined = 2
	if _, err := e.PartitionRead(master); err != nil {
		t.Fatal(err)
	}

	var mapBuf, survBuf bytes.Buffer
	if err := e.SaveMap(&mapBuf); err != nil {
		t.Fatal(err)
	}
	if err := e.SaveSurrender(&survBuf); err != nil {
		t.Fatal(err)
	}

	reloaded := New(tbl, g)
	// Each loader is handed its own stream: the map from the 12-byte-record
	// map stream, the surrender set from the 4-byte-record surrender stream.
	if err := reloaded.LoadMap(bytes.NewReader(mapBuf.Bytes())); err != nil {
		t.Fatal(err)
	}
	if err := reloaded.LoadSurrender(bytes.NewReader(survBuf.Bytes())); err != nil {
		t.Fatal(err)
	}
	if reloaded.SurrenderCount() != e.SurrenderCount() {
		t.Errorf("got %d surrendered pids via the correct stream, want %d", reloaded.SurrenderCount(), e.SurrenderCount())
	}
}
