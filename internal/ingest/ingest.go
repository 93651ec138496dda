// Package ingest implements the read-stream-driven public façade of
// spec.md §4.4: consume_fasta's mask-aware bulk ingest, progress callbacks
// firing every CALLBACK_PERIOD reads, and the ancillary filtered-output
// helper sanctioned by spec.md §1 ("simple consumers of the core's count
// query API").
package ingest

import (
	"github.com/hmmm42/kmercount/internal/counttable"
	"github.com/hmmm42/kmercount/internal/fasta"
	"github.com/hmmm42/kmercount/internal/kerr"
	"github.com/hmmm42/kmercount/internal/kmer"
)

// DefaultCallbackPeriod is spec.md §6's CALLBACK_PERIOD default.
const DefaultCallbackPeriod = 10_000

// ProgressFunc is the external progress-callback collaborator of spec.md
// §6: `callback(stage_name, opaque_data, processed_count, kept_count)`. An
// error return signals caller-requested early termination (spec.md §7
// "caller-signaled abort").
type ProgressFunc func(stage string, opaque any, processed, kept uint64) error

// Result summarizes one consume_fasta pass.
type Result struct {
	TotalReads int
	// Consumed is n_consumed (hashtable.cc): the cumulative count of k-mer
	// increments folded into the table across every valid read, not a
	// count of reads.
	Consumed int
	// Mask is the mask the pass ended with: the caller-supplied mask
	// (mutated in place) if one was given, or a freshly allocated one if
	// updateMask was requested but no mask was supplied.
	Mask *BitMask
}

// ConsumeFasta implements spec.md §4.4. It iterates r until end-of-stream;
// for each read, a caller-supplied mask bit of 0 skips the read entirely
// (not even validated); otherwise the read is validated and, if valid,
// folded into table via IncrementSequence restricted to [lo, hi). An
// invalid read never propagates an error — it is recorded via updateMask
// and ingest continues (spec.md §7 "input-invalid ... never propagated").
func ConsumeFasta(
	r *fasta.Reader,
	table *counttable.Table,
	lo, hi uint64,
	mask *BitMask,
	updateMask bool,
	callbackPeriod int,
	progress ProgressFunc,
	opaque any,
) (*Result, error) {
	if callbackPeriod <= 0 {
		callbackPeriod = DefaultCallbackPeriod
	}
	k := table.K()

	var totalReads, consumed int
	var invalidWithoutMask []int

	for !r.IsComplete() {
		rec, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		idx := totalReads
		totalReads++

		if mask == nil || mask.Get(idx) {
			if kmer.IsValidRead(rec.Seq, k) {
				n, err := table.IncrementSequence(rec.Seq, lo, hi)
				if err != nil {
					return nil, kerr.Wrap(kerr.KindIO, err)
				}
				consumed += n
			} else if updateMask {
				if mask != nil {
					mask.Clear(idx)
				} else {
					invalidWithoutMask = append(invalidWithoutMask, idx)
				}
			}
		}

		if progress != nil && totalReads%callbackPeriod == 0 {
			if err := progress("ingest", opaque, uint64(totalReads), uint64(consumed)); err != nil {
				return nil, kerr.Wrap(kerr.KindAborted, err)
			}
		}
	}

	resultMask := mask
	if updateMask && mask == nil {
		resultMask = NewBitMask(totalReads)
		for _, idx := range invalidWithoutMask {
			resultMask.Clear(idx)
		}
	}

	return &Result{TotalReads: totalReads, Consumed: consumed, Mask: resultMask}, nil
}

// FilterReads writes only the reads of in whose per-k-mer count (minimum,
// or maximum when useMax is set) falls within [minCount, maxCount] to out.
// This generalizes spec.md §4.2's min_count_over/max_count_over into a
// filtered-output writer, one of the "simple consumers of the core's count
// query API" spec.md §1 places outside CORE. Returns the number of reads
// kept.
func FilterReads(table *counttable.Table, in *fasta.Reader, out *fasta.Writer, minCount, maxCount uint8, useMax bool) (int, error) {
	kept := 0
	for !in.IsComplete() {
		rec, ok, err := in.Next()
		if err != nil {
			return kept, err
		}
		if !ok {
			break
		}
		if !kmer.IsValidRead(rec.Seq, table.K()) {
			continue
		}
		var c uint8
		if useMax {
			c = table.MaxCountOver(rec.Seq, 0, 0)
		} else {
			c = table.MinCountOver(rec.Seq, 0, 0)
		}
		if c < minCount || c > maxCount {
			continue
		}
		if err := out.Write(rec); err != nil {
			return kept, err
		}
		kept++
	}
	if err := out.Flush(); err != nil {
		return kept, err
	}
	return kept, nil
}
