// Package counttable implements the bounded, saturating k-mer count table of
// spec.md §4.2: a dense array of 8-bit saturating counters indexed by
// canonical_key mod T, written under a single process-wide mutex and read
// without locking (single-byte counters are naturally atomic).
package counttable

import (
	"sync"

	"github.com/hmmm42/kmercount/internal/kerr"
	"github.com/hmmm42/kmercount/internal/kmer"
)

// MaxCount is the saturation ceiling for a single counter (§3).
const MaxCount = 255

// Table is a fixed-size array of saturating counters over canonical k-mer
// keys. It is created once with (k, tableSize) and lives for the session.
type Table struct {
	codec     *kmer.Codec
	tableSize uint64

	mu     sync.Mutex
	counts []uint8
}

// New constructs a count table for k-mers of length k with tableSize bins.
func New(k int, tableSize uint64) (*Table, error) {
	if tableSize == 0 {
		return nil, kerr.New(kerr.KindIO, "counttable: tableSize must be positive")
	}
	codec, err := kmer.NewCodec(k)
	if err != nil {
		return nil, err
	}
	return &Table{
		codec:     codec,
		tableSize: tableSize,
		counts:    make([]uint8, tableSize),
	}, nil
}

// K returns the table's fixed k-mer length.
func (t *Table) K() int { return t.codec.K() }

// TableSize returns the number of counter bins.
func (t *Table) TableSize() uint64 { return t.tableSize }

// Codec returns the codec backing this table's canonical keys.
func (t *Table) Codec() *kmer.Codec { return t.codec }

func (t *Table) index(key uint64) uint64 { return key % t.tableSize }

// GetCountByKey returns the saturating counter for an already-computed
// canonical key. Unlocked: reads race benignly with concurrent increments.
func (t *Table) GetCountByKey(key uint64) uint8 {
	return t.counts[t.index(key)]
}

// GetCountBySequence encodes kmerSeq (which must have length exactly k) and
// returns its counter.
func (t *Table) GetCountBySequence(kmerSeq string) (uint8, error) {
	f, r, err := t.codec.HashInit(kmerSeq)
	if err != nil {
		return 0, kerr.Wrap(kerr.KindInputInvalid, err)
	}
	return t.GetCountByKey(kmer.Canonical(f, r)), nil
}

// boundsActive reports whether the [lo, hi) bound is active: lo==hi==0 means
// "no filter", per spec.md §4.2.
func boundsActive(lo, hi uint64) bool { return !(lo == 0 && hi == 0) }

func inBounds(key, lo, hi uint64) bool {
	if !boundsActive(lo, hi) {
		return true
	}
	return lo <= key && key < hi
}

func (t *Table) incrementAt(idx uint64) {
	if t.counts[idx] < MaxCount {
		t.counts[idx]++
	}
}

// IncrementSequence walks every k-mer of seq, and for each whose canonical
// key falls in [lo, hi) (or unconditionally if lo==hi==0), saturates its
// counter. It returns the number of k-mers incremented. The whole call holds
// the table's single writer lock, released on every exit path including
// error.
func (t *Table) IncrementSequence(seq string, lo, hi uint64) (int, error) {
	k := t.codec.K()
	if !kmer.IsValidRead(seq, k) {
		return 0, kerr.New(kerr.KindInputInvalid, "counttable: invalid read (len=%d, k=%d)", len(seq), k)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	f, r, err := t.codec.HashInit(seq)
	if err != nil {
		return 0, kerr.Wrap(kerr.KindInputInvalid, err)
	}

	n := 0
	key := kmer.Canonical(f, r)
	if inBounds(key, lo, hi) {
		t.incrementAt(t.index(key))
		n++
	}
	for i := k; i < len(seq); i++ {
		f, r, err = t.codec.RollForward(f, r, seq[i])
		if err != nil {
			return n, kerr.Wrap(kerr.KindInputInvalid, err)
		}
		key = kmer.Canonical(f, r)
		if inBounds(key, lo, hi) {
			t.incrementAt(t.index(key))
			n++
		}
	}
	return n, nil
}

// perKmerCounts calls visit with the counter of every k-mer of seq whose
// canonical key is in bounds. It returns false when seq is too short for even
// one k-mer or holds a non-ACGT base (k-mers before that base have already
// been visited), true otherwise.
func (t *Table) perKmerCounts(seq string, lo, hi uint64, visit func(count uint8)) bool {
	k := t.codec.K()
	if len(seq) < k {
		return false
	}
	f, r, err := t.codec.HashInit(seq)
	if err != nil {
		return false
	}
	key := kmer.Canonical(f, r)
	if inBounds(key, lo, hi) {
		visit(t.GetCountByKey(key))
	}
	for i := k; i < len(seq); i++ {
		f, r, err = t.codec.RollForward(f, r, seq[i])
		if err != nil {
			return false
		}
		key = kmer.Canonical(f, r)
		if inBounds(key, lo, hi) {
			visit(t.GetCountByKey(key))
		}
	}
	return true
}

// MinCountOver folds the minimum counter value over seq's k-mers (optionally
// bounds-filtered). An empty or too-short input returns MaxCount, per
// spec.md §4.2.
func (t *Table) MinCountOver(seq string, lo, hi uint64) uint8 {
	min := uint8(MaxCount)
	any := false
	t.perKmerCounts(seq, lo, hi, func(c uint8) {
		any = true
		if c < min {
			min = c
		}
	})
	if !any {
		return MaxCount
	}
	return min
}

// MaxCountOver folds the maximum counter value over seq's k-mers (optionally
// bounds-filtered). An empty or too-short input returns 0.
func (t *Table) MaxCountOver(seq string, lo, hi uint64) uint8 {
	var max uint8
	t.perKmerCounts(seq, lo, hi, func(c uint8) {
		if c > max {
			max = c
		}
	})
	return max
}

// AbundanceDistribution returns a 256-bucket histogram of counter values
// across the whole table.
func (t *Table) AbundanceDistribution() [256]uint64 {
	var hist [256]uint64
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.counts {
		hist[c]++
	}
	return hist
}

// Present reports whether the vertex for canonical key is counted (count >
// 0), the definition of vertex membership in the implicit graph (§4.3).
func (t *Table) Present(key uint64) bool { return t.GetCountByKey(key) > 0 }
