package ingest

import (
	"strings"
	"testing"

	"github.com/hmmm42/kmercount/internal/counttable"
	"github.com/hmmm42/kmercount/internal/fasta"
)

func newTable(t *testing.T, k int) *counttable.Table {
	t.Helper()
	tbl, err := counttable.New(k, 1_000_000)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

// Scenario 5: a read containing N is rejected; mask bit cleared; counts
// unchanged for everything else.
func TestConsumeFastaRejectsInvalidReadAndClearsMask(t *testing.T) {
	tbl := newTable(t, 4)
	in := fasta.NewReader(strings.NewReader(">r1\nACGTN\n>r2\nACGTACGT\n"))

	res, err := ConsumeFasta(in, tbl, 0, 0, nil, true, 0, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalReads != 2 {
		t.Fatalf("got %d total reads, want 2", res.TotalReads)
	}
	if res.Consumed != 5 { // n_consumed is a k-mer-increment count: 8-base read, k=4, 5 positions
		t.Fatalf("got %d consumed, want 5", res.Consumed)
	}
	if res.Mask == nil {
		t.Fatal("expected a freshly allocated mask")
	}
	if res.Mask.Get(0) {
		t.Error("expected mask bit 0 cleared for the invalid read")
	}
	if !res.Mask.Get(1) {
		t.Error("expected mask bit 1 still set for the valid read")
	}
	c, _ := tbl.GetCountBySequence("ACGT")
	if c == 0 {
		t.Error("valid read's k-mers should have been counted")
	}
}

func TestConsumeFastaSkipsReadsMaskedOut(t *testing.T) {
	tbl := newTable(t, 4)
	in := fasta.NewReader(strings.NewReader(">r1\nAAAA\n>r2\nCCCC\n"))
	mask := NewBitMask(2)
	mask.Clear(0)

	res, err := ConsumeFasta(in, tbl, 0, 0, mask, false, 0, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Consumed != 1 { // one k-mer increment: the single valid read is exactly k bases long
		t.Fatalf("got %d consumed, want 1", res.Consumed)
	}
	if c, _ := tbl.GetCountBySequence("AAAA"); c != 0 {
		t.Error("masked-out read must not be counted")
	}
	if c, _ := tbl.GetCountBySequence("CCCC"); c == 0 {
		t.Error("non-masked read should have been counted")
	}
}

func TestConsumeFastaProgressCallbackFiresAndCanAbort(t *testing.T) {
	tbl := newTable(t, 4)
	var seqs strings.Builder
	for i := 0; i < 5; i++ {
		seqs.WriteString(">r\nACGT\n")
	}
	in := fasta.NewReader(strings.NewReader(seqs.String()))

	var calls int
	progress := func(stage string, _ any, processed, kept uint64) error {
		calls++
		return nil
	}
	if _, err := ConsumeFasta(in, tbl, 0, 0, nil, false, 2, progress, nil); err != nil {
		t.Fatal(err)
	}
	if calls != 2 { // fires at processed==2 and processed==4, out of 5 reads
		t.Errorf("got %d callback invocations, want 2", calls)
	}

	in2 := fasta.NewReader(strings.NewReader(seqs.String()))
	_, err := ConsumeFasta(in2, tbl, 0, 0, nil, false, 1, func(string, any, uint64, uint64) error {
		return errAbort
	}, nil)
	if err == nil {
		t.Fatal("expected abort error to propagate")
	}
}

var errAbort = &abortSentinel{}

type abortSentinel struct{}

func (*abortSentinel) Error() string { return "caller requested abort" }

func TestFilterReadsKeepsOnlyReadsInBand(t *testing.T) {
	tbl := newTable(t, 4)
	if _, err := tbl.IncrementSequence("AAAACCCC", 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.IncrementSequence("AAAACCCC", 0, 0); err != nil { // every k-mer of AAAACCCC now counts 2
		t.Fatal(err)
	}
	if _, err := tbl.IncrementSequence("GATTACAG", 0, 0); err != nil { // count 1; shares no canonical k-mer with AAAACCCC
		t.Fatal(err)
	}

	in := fasta.NewReader(strings.NewReader(">a\nAAAACCCC\n>b\nGATTACAG\n"))
	var out strings.Builder
	w := fasta.NewWriter(&out)

	kept, err := FilterReads(tbl, in, w, 2, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if kept != 1 {
		t.Fatalf("got %d kept, want 1", kept)
	}
	if !strings.Contains(out.String(), ">a\n") {
		t.Error("expected the min-count==2 read to be kept")
	}
	if strings.Contains(out.String(), ">b\n") {
		t.Error("expected the min-count==1 read to be dropped")
	}
}

