// Package fasta is the minimal FASTA reader/writer external collaborator of
// spec.md §6: a two-line-per-record stream reader with an is_complete
// predicate, and a writer for plain and partition-tagged output. It is
// deliberately thin — framing only, no validation of bases (that is the
// core's job via kmer.IsValidRead).
package fasta

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hmmm42/kmercount/internal/kerr"
)

// Record is one FASTA entry: a name line (without the leading '>') and its
// sequence line.
type Record struct {
	Name string
	Seq  string
}

// Reader scans single-line-sequence FASTA records from an underlying
// io.Reader, grounded in the parseFastaRecord scanner pattern used
// elsewhere in the corpus for read-stream parsing.
type Reader struct {
	sc   *bufio.Scanner
	done bool
}

// NewReader wraps r. The scanner's buffer is grown well past bufio's 64KiB
// default so long reads don't truncate.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Reader{sc: sc}
}

// IsComplete reports whether the stream has been fully consumed. Per
// spec.md §9's open question about `filter_fasta_file_run`'s loop
// condition, callers MUST iterate `for !r.IsComplete()`, not
// `for r.IsComplete()` — the latter reading would never enter the loop.
func (r *Reader) IsComplete() bool { return r.done }

// Next returns the next record. ok is false once the stream is exhausted;
// a malformed stream (a name line with no following sequence line) is an
// I/O-kind error, not end-of-stream.
func (r *Reader) Next() (rec Record, ok bool, err error) {
	if r.done {
		return Record{}, false, nil
	}
	if !r.sc.Scan() {
		r.done = true
		if err := r.sc.Err(); err != nil {
			return Record{}, false, kerr.Wrap(kerr.KindIO, err)
		}
		return Record{}, false, nil
	}
	name := strings.TrimPrefix(r.sc.Text(), ">")
	if !r.sc.Scan() {
		r.done = true
		return Record{}, false, kerr.New(kerr.KindIO, "fasta: record %q missing sequence line", name)
	}
	return Record{Name: name, Seq: r.sc.Text()}, true, nil
}

// Writer emits plain and partition-tagged FASTA records.
type Writer struct {
	bw *bufio.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer { return &Writer{bw: bufio.NewWriter(w)} }

// Write emits a plain `>name\nseq\n` record.
func (w *Writer) Write(rec Record) error {
	if _, err := fmt.Fprintf(w.bw, ">%s\n%s\n", rec.Name, rec.Seq); err != nil {
		return kerr.Wrap(kerr.KindIO, err)
	}
	return nil
}

// WritePartitioned emits `>name\t<pid><flag>\nseq\n` per spec.md §4.3.4/§6,
// where flag is '*' for a surrendered partition, a space otherwise.
func (w *Writer) WritePartitioned(rec Record, pid uint32, surrendered bool) error {
	flag := " "
	if surrendered {
		flag = "*"
	}
	if _, err := fmt.Fprintf(w.bw, ">%s\t%d%s\n%s\n", rec.Name, pid, flag, rec.Seq); err != nil {
		return kerr.Wrap(kerr.KindIO, err)
	}
	return nil
}

// Flush flushes the underlying buffer.
func (w *Writer) Flush() error {
	if err := w.bw.Flush(); err != nil {
		return kerr.Wrap(kerr.KindIO, err)
	}
	return nil
}
