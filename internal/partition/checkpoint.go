package partition

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/hmmm42/kmercount/internal/kerr"
)

// checkpointBufferSize matches spec.md §6: checkpoint streams are buffered
// in 1 MiB blocks.
const checkpointBufferSize = 1 << 20

// SaveMap writes the partition map as concatenated (u64 forward_encoding,
// u32 partition_id) records, one per tagged-and-assigned key.
func (e *Engine) SaveMap(w io.Writer) error {
	bw := bufio.NewWriterSize(w, checkpointBufferSize)
	var buf [12]byte
	for _, f := range e.tagOrder {
		cell, ok := e.tags[f]
		if !ok || cell == NullCell {
			continue
		}
		binary.LittleEndian.PutUint64(buf[0:8], f)
		binary.LittleEndian.PutUint32(buf[8:12], uint32(e.cells[cell]))
		if _, err := bw.Write(buf[:]); err != nil {
			return kerr.Wrap(kerr.KindIO, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return kerr.Wrap(kerr.KindIO, err)
	}
	return nil
}

// SaveSurrender writes the surrender set as concatenated u32 partition_id
// values, to its own stream — NOT the partition-map stream (see LoadSurrender).
func (e *Engine) SaveSurrender(w io.Writer) error {
	bw := bufio.NewWriterSize(w, checkpointBufferSize)
	var buf [4]byte
	for pid := range e.surrender {
		binary.LittleEndian.PutUint32(buf[:], uint32(pid))
		if _, err := bw.Write(buf[:]); err != nil {
			return kerr.Wrap(kerr.KindIO, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return kerr.Wrap(kerr.KindIO, err)
	}
	return nil
}

type mapRecord struct {
	forward uint64
	pid     PartitionID
}

func readMapRecords(r io.Reader) ([]mapRecord, error) {
	br := bufio.NewReaderSize(r, checkpointBufferSize)
	var records []mapRecord
	var buf [12]byte
	for {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, kerr.Wrap(kerr.KindIO, err)
		}
		records = append(records, mapRecord{
			forward: binary.LittleEndian.Uint64(buf[0:8]),
			pid:     PartitionID(binary.LittleEndian.Uint32(buf[8:12])),
		})
	}
	return records, nil
}

// LoadMap reconstructs the partition map from r in two passes (spec.md §6):
// pass 1 discovers the distinct partition ids present on disk and allocates
// exactly one cell per id; pass 2 binds each forward encoding to its id's
// cell. This preserves on-disk pid numbering and re-establishes sharing —
// two keys that were merged before saving come back pointing at the same
// cell.
func (e *Engine) LoadMap(r io.Reader) error {
	records, err := readMapRecords(r)
	if err != nil {
		return err
	}

	cellForPID := make(map[PartitionID]CellIndex, len(records))
	for _, rec := range records {
		if _, ok := cellForPID[rec.pid]; ok {
			continue
		}
		cellForPID[rec.pid] = e.newCell(rec.pid)
		if rec.pid > e.nextPID {
			e.nextPID = rec.pid
		}
	}

	for _, rec := range records {
		if _, ok := e.tags[rec.forward]; !ok {
			e.tagOrder = append(e.tagOrder, rec.forward)
		}
		e.tags[rec.forward] = cellForPID[rec.pid]
	}
	return nil
}

// LoadSurrender reconstructs the surrender set by reading u32 partition_id
// values from r. Unlike the original khmer implementation, which reloads
// the surrender set from the partition-map stream (a bug — see spec.md §9
// Open Questions), this reads the dedicated surrender stream the data was
// written to by SaveSurrender.
func (e *Engine) LoadSurrender(r io.Reader) error {
	br := bufio.NewReaderSize(r, checkpointBufferSize)
	var buf [4]byte
	for {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			if err == io.EOF {
				break
			}
			return kerr.Wrap(kerr.KindIO, err)
		}
		pid := PartitionID(binary.LittleEndian.Uint32(buf[:]))
		e.surrender[pid] = struct{}{}
	}
	return nil
}
