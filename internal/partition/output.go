package partition

import (
	"github.com/hmmm42/kmercount/internal/fasta"
	"github.com/hmmm42/kmercount/internal/graphkmer"
	"github.com/hmmm42/kmercount/internal/kerr"
	"github.com/hmmm42/kmercount/internal/kmer"
)

// OutputPartitionedFile implements spec.md §4.3.4: re-read in's FASTA
// stream, re-derive each valid read's first-k-mer forward encoding, look up
// its partition id, and write `>name\t<pid><flag>\n<seq>\n` to out. Returns
// the number of distinct partition ids observed.
func (e *Engine) OutputPartitionedFile(in *fasta.Reader, out *fasta.Writer) (int, error) {
	seen := make(map[PartitionID]struct{})
	for !in.IsComplete() {
		rec, ok, err := in.Next()
		if err != nil {
			return len(seen), err
		}
		if !ok {
			break
		}
		if !kmer.IsValidRead(rec.Seq, e.codec.K()) {
			continue // invalid read: not re-tagged, not written (it was never assigned a pid)
		}
		f, _, err := e.codec.HashInit(rec.Seq)
		if err != nil {
			continue
		}
		pid, ok := e.PartitionIDOf(f)
		if !ok {
			continue
		}
		seen[pid] = struct{}{}
		if err := out.WritePartitioned(rec, uint32(pid), e.IsSurrendered(pid)); err != nil {
			return len(seen), err
		}
	}
	if err := out.Flush(); err != nil {
		return len(seen), kerr.Wrap(kerr.KindIO, err)
	}
	return len(seen), nil
}

// TrimGraphs implements spec.md §4.3.5: using the connected-component walk
// of §4.3.1 with threshold=minSize, write every read whose first k-mer's
// component reaches minSize vertices verbatim, dropping the rest. One
// ComponentWalker (and its shared `seen` set) is used across the whole
// pass. A read whose start vertex was already visited by an earlier read's
// walk is classified using that earlier walk's outcome (walker.Big), since
// the shared `seen` set alone forgets which component a vertex belonged to.
func TrimGraphs(g *graphkmer.Graph, codec *kmer.Codec, in *fasta.Reader, out *fasta.Writer, minSize int) error {
	walker := graphkmer.NewComponentWalker(g)
	for !in.IsComplete() {
		rec, ok, err := in.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		f, r, err := codec.HashInit(rec.Seq)
		if err != nil {
			continue
		}
		count := walker.CalcConnectedGraphSize(f, r, minSize)
		big := count >= minSize || walker.Big(f, r)
		if !big {
			continue
		}
		if err := out.Write(rec); err != nil {
			return err
		}
	}
	return out.Flush()
}
