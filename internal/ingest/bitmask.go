package ingest

import (
	"encoding/binary"
	"io"

	"github.com/hmmm42/kmercount/internal/kerr"
)

// BitMask is a dense bit-per-read mask: bit i is 1 iff read i should be
// consumed. New masks start fully set (every read valid) and bits are
// cleared as reads are found invalid (spec.md §4.4).
type BitMask struct {
	bits []byte
	n    int
}

// NewBitMask allocates a mask for n reads, all bits initially set.
func NewBitMask(n int) *BitMask {
	bm := &BitMask{bits: make([]byte, (n+7)/8), n: n}
	for i := range bm.bits {
		bm.bits[i] = 0xFF
	}
	return bm
}

// Len returns the number of reads the mask covers.
func (m *BitMask) Len() int { return m.n }

// Get reports whether bit i is set. An out-of-range index is treated as
// set (no masking applied).
func (m *BitMask) Get(i int) bool {
	if i < 0 || i >= m.n {
		return true
	}
	return m.bits[i/8]&(1<<uint(i%8)) != 0
}

// Clear unsets bit i.
func (m *BitMask) Clear(i int) {
	if i < 0 || i >= m.n {
		return
	}
	m.bits[i/8] &^= 1 << uint(i%8)
}

// WriteTo serializes the mask as a little-endian read count followed by its
// raw bitset, so a `count --mask-out` run can be handed to a later
// `partition`/`resume` pass without re-validating every read.
func (m *BitMask) WriteTo(w io.Writer) (int64, error) {
	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(m.n))
	if _, err := w.Write(header[:]); err != nil {
		return 0, kerr.Wrap(kerr.KindIO, err)
	}
	if _, err := w.Write(m.bits); err != nil {
		return 0, kerr.Wrap(kerr.KindIO, err)
	}
	return int64(len(header) + len(m.bits)), nil
}

// ReadBitMask deserializes a mask written by WriteTo.
func ReadBitMask(r io.Reader) (*BitMask, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, kerr.Wrap(kerr.KindIO, err)
	}
	n := int(binary.LittleEndian.Uint64(header[:]))
	bm := &BitMask{bits: make([]byte, (n+7)/8), n: n}
	if _, err := io.ReadFull(r, bm.bits); err != nil {
		return nil, kerr.Wrap(kerr.KindIO, err)
	}
	return bm, nil
}
