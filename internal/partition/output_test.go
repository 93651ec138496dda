package partition

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hmmm42/kmercount/internal/fasta"
)

func TestOutputPartitionedFileMarksSurrendered(t *testing.T) {
	master := "ACGTACGATCGATCGTAGCTAGCATCGTAGCATG"
	tbl, g := setup(t, 5, master)
	e := New(tbl, g)
	e.MaxTagExamined = 2

	pid, err := e.PartitionRead(master)
	if err != nil {
		t.Fatal(err)
	}

	in := fasta.NewReader(strings.NewReader(">r1\n" + master + "\n"))
	var out bytes.Buffer
	w := fasta.NewWriter(&out)

	n, err := e.OutputPartitionedFile(in, w)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("got %d distinct pids, want 1", n)
	}

	wantFlag := " "
	if e.IsSurrendered(pid) {
		wantFlag = "*"
	}
	want := ">r1\t" + itoa(uint32(pid)) + wantFlag + "\n" + master + "\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestTrimGraphsDropsSmallComponents(t *testing.T) {
	big := "ACGTACGATCGATCGTAGCTAGCATCGTAGCATG" // long chain, many 5-mers
	small := "TTTTT"                          // isolated single 5-mer, tiny component
	tbl, g := setup(t, 5, big, small)

	in := fasta.NewReader(strings.NewReader(
		">big\n" + big + "\n>small\n" + small + "\n",
	))
	var out bytes.Buffer
	w := fasta.NewWriter(&out)

	if err := TrimGraphs(g, tbl.Codec(), in, w, 5); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, ">big\n") {
		t.Error("expected the big component's read to survive trimming")
	}
	if strings.Contains(got, ">small\n") {
		t.Error("expected the tiny isolated component's read to be dropped")
	}
}
