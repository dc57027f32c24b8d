package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/hupe1980/vdb/core"
	"github.com/hupe1980/vdb/internal/conv"
	"github.com/hupe1980/vdb/internal/fs"
)

// maxMetadataLen guards length-prefix decoding against torn or garbage
// prefixes that would otherwise trigger multi-gigabyte allocations.
const maxMetadataLen = 64 << 20

// segmentSet holds the three append-only column files of one open
// collection: raw float32 embeddings (stride = dim*4), fixed 64-byte
// null-padded id slots, and length-prefixed metadata records.
type segmentSet struct {
	embeddings fs.File
	ids        fs.File
	metadata   fs.File
}

// openSegments opens the three segment files for sequential appends,
// creating them if absent. truncate additionally resets them to empty
// (collection creation only). If any open fails, the handles opened so far
// are closed before the error is returned.
func openSegments(fsys fs.FileSystem, p Paths, truncate bool) (*segmentSet, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags |= os.O_TRUNC
	}

	s := &segmentSet{}
	for _, target := range []struct {
		path string
		file *fs.File
	}{
		{p.Embeddings(), &s.embeddings},
		{p.IDs(), &s.ids},
		{p.Metadata(), &s.metadata},
	} {
		f, err := fsys.OpenFile(target.path, flags, 0o600)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("%w: open %s: %w", ErrIO, target.path, err)
		}
		*target.file = f
	}

	return s, nil
}

// Close releases all three files. Safe on a partially opened set.
func (s *segmentSet) Close() error {
	var errs []error
	for _, f := range []fs.File{s.embeddings, s.ids, s.metadata} {
		if f != nil {
			errs = append(errs, f.Close())
		}
	}
	s.embeddings, s.ids, s.metadata = nil, nil, nil
	return errors.Join(errs...)
}

// append writes one item across the three segments, syncing each file after
// its write. The caller has already logged the item to the WAL, so a torn
// write here is repaired on the next open.
func (s *segmentSet) append(item core.Item, c *counters) error {
	for _, rec := range []struct {
		file fs.File
		name string
		data []byte
	}{
		{s.embeddings, EmbeddingsFileName, encodeEmbedding(item.Vector)},
		{s.ids, IDsFileName, encodeIDSlot(item.ID)},
		{s.metadata, MetadataFileName, encodeMetadataRecord(item.Metadata)},
	} {
		n, err := rec.file.Write(rec.data)
		if err != nil {
			return fmt.Errorf("%w: append to %s: %w", ErrIO, rec.name, err)
		}
		if n != len(rec.data) {
			return fmt.Errorf("%w: short write to %s: %d of %d bytes", ErrIO, rec.name, n, len(rec.data))
		}
		if err := rec.file.Sync(); err != nil {
			return fmt.Errorf("%w: sync %s: %w", ErrIO, rec.name, err)
		}
		c.fsyncs.Add(1)
		c.bytesWritten.Add(uint64(n))
	}
	return nil
}

// encodeEmbedding serializes a vector as little-endian float32 values with
// no separators; record boundaries in the segment are implicit.
func encodeEmbedding(v core.Vector) []byte {
	buf := make([]byte, 4*len(v.Data))
	for i, f := range v.Data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeEmbedding is the inverse of encodeEmbedding for one stride.
func decodeEmbedding(buf []byte, dim uint32) core.Vector {
	data := make([]float32, dim)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return core.Vector{Dim: dim, Data: data}
}

// encodeIDSlot serializes an id as a fixed null-padded 64-byte slot.
func encodeIDSlot(id string) []byte {
	slot := make([]byte, core.IDSlotSize)
	copy(slot, id)
	return slot
}

// decodeIDSlot trims the null padding of a slot.
func decodeIDSlot(slot []byte) string {
	if i := strings.IndexByte(string(slot), 0); i >= 0 {
		return string(slot[:i])
	}
	return string(slot)
}

// encodeMetadataRecord serializes metadata as a u32 length prefix followed
// by the bytes. Length 0 means absent metadata.
func encodeMetadataRecord(md []byte) []byte {
	buf := make([]byte, 4+len(md))
	binary.LittleEndian.PutUint32(buf, uint32(len(md)))
	copy(buf[4:], md)
	return buf
}

// Iterate opens the three segment files read-only and reads them strictly
// in lockstep from offset zero, one record per file per iteration, invoking
// visit for each stored item. A visit returning false stops the iteration
// without error. A clean simultaneous EOF across all three files ends the
// iteration successfully; any other length or stride failure is an I/O
// error. The WAL is never consulted.
func Iterate(fsys fs.FileSystem, p Paths, dim uint32, visit func(item core.Item) bool) error {
	if visit == nil {
		return fmt.Errorf("%w: nil visitor", ErrInvalidArgument)
	}
	if !core.ValidDim(dim) {
		return fmt.Errorf("%w: invalid dimension %d", ErrInvalidArgument, dim)
	}

	var files []fs.File
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	readers := make([]*bufio.Reader, 0, 3)
	for _, path := range []string{p.IDs(), p.Embeddings(), p.Metadata()} {
		f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			return fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
		}
		files = append(files, f)
		readers = append(readers, bufio.NewReader(f))
	}
	idsR, embR, metaR := readers[0], readers[1], readers[2]

	stride, err := conv.Uint32ToInt(dim * 4)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	idSlot := make([]byte, core.IDSlotSize)
	embBuf := make([]byte, stride)
	var lenBuf [4]byte

	for {
		// The id slot leads; EOF here must coincide with EOF on the
		// other two files.
		if _, err := io.ReadFull(idsR, idSlot); err != nil {
			if errors.Is(err, io.EOF) {
				if !atEOF(embR) {
					return fmt.Errorf("%w: embeddings segment has data past the last id record", ErrIO)
				}
				if !atEOF(metaR) {
					return fmt.Errorf("%w: metadata segment has data past the last id record", ErrIO)
				}
				return nil
			}
			return fmt.Errorf("%w: torn id slot: %w", ErrIO, err)
		}

		if _, err := io.ReadFull(embR, embBuf); err != nil {
			return fmt.Errorf("%w: read embedding stride: %w", ErrIO, err)
		}

		if _, err := io.ReadFull(metaR, lenBuf[:]); err != nil {
			return fmt.Errorf("%w: read metadata length: %w", ErrIO, err)
		}
		mdLen := binary.LittleEndian.Uint32(lenBuf[:])
		if mdLen > maxMetadataLen {
			return fmt.Errorf("%w: metadata record length %d exceeds limit", ErrCorrupted, mdLen)
		}
		var md []byte
		if mdLen > 0 {
			md = make([]byte, mdLen)
			if _, err := io.ReadFull(metaR, md); err != nil {
				return fmt.Errorf("%w: read metadata record: %w", ErrIO, err)
			}
		}

		item := core.Item{
			ID:       decodeIDSlot(idSlot),
			Vector:   decodeEmbedding(embBuf, dim),
			Metadata: md,
		}
		if !visit(item) {
			return nil
		}
	}
}

// atEOF reports whether r has no bytes left.
func atEOF(r *bufio.Reader) bool {
	_, err := r.Peek(1)
	return errors.Is(err, io.EOF)
}

// segmentState is the result of inspecting the segment files on open: the
// number of complete records per file and whether each file ends exactly on
// a record boundary.
type segmentState struct {
	idRecords uint64
	idExact   bool

	embRecords uint64
	embExact   bool

	// metaOffsets[i] is the byte offset where metadata record i starts;
	// metaEnd is the offset just past the last complete record.
	metaOffsets []int64
	metaEnd     int64
	metaExact   bool
}

func (st segmentState) metaRecords() uint64 { return uint64(len(st.metaOffsets)) }

// consistent reports whether all three files hold the same number of
// records with no trailing partial bytes.
func (st segmentState) consistent() bool {
	return st.idExact && st.embExact && st.metaExact &&
		st.idRecords == st.embRecords && st.idRecords == st.metaRecords()
}

// base returns the common full-record prefix across the three files.
func (st segmentState) base() uint64 {
	return min(st.idRecords, st.embRecords, st.metaRecords())
}

// metaOffsetAt returns the byte offset of metadata record n, or the end of
// the last complete record when n equals the record count.
func (st segmentState) metaOffsetAt(n uint64) int64 {
	if n < st.metaRecords() {
		return st.metaOffsets[n]
	}
	return st.metaEnd
}

// inspectSegments measures the three segment files. Absent files count as
// empty, which only occurs before creation finishes.
func inspectSegments(fsys fs.FileSystem, p Paths, dim uint32) (segmentState, error) {
	st := segmentState{idExact: true, embExact: true, metaExact: true}

	idSize, err := fileSize(fsys, p.IDs())
	if err != nil {
		return st, err
	}
	st.idRecords = uint64(idSize) / core.IDSlotSize
	st.idExact = idSize%core.IDSlotSize == 0

	stride := int64(dim) * 4
	embSize, err := fileSize(fsys, p.Embeddings())
	if err != nil {
		return st, err
	}
	st.embRecords = uint64(embSize / stride)
	st.embExact = embSize%stride == 0

	if err := walkMetadataSegment(fsys, p.Metadata(), &st); err != nil {
		return st, err
	}

	return st, nil
}

// walkMetadataSegment scans the length-prefixed records of the metadata
// segment and fills in the offsets of every complete record.
func walkMetadataSegment(fsys fs.FileSystem, path string, st *segmentState) error {
	f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	var offset int64
	var lenBuf [4]byte

	for {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				st.metaEnd = offset
				return nil
			}
			// Partial length prefix: torn record.
			st.metaEnd = offset
			st.metaExact = false
			return nil
		}
		mdLen := binary.LittleEndian.Uint32(lenBuf[:])
		if mdLen > maxMetadataLen {
			return fmt.Errorf("%w: metadata record length %d exceeds limit", ErrCorrupted, mdLen)
		}
		if _, err := io.CopyN(io.Discard, r, int64(mdLen)); err != nil {
			// Partial payload: torn record.
			st.metaEnd = offset
			st.metaExact = false
			return nil
		}
		st.metaOffsets = append(st.metaOffsets, offset)
		offset += 4 + int64(mdLen)
		st.metaEnd = offset
	}
}

// truncateSegments cuts all three files back to exactly n records, using
// the inspected offsets for the variable-width metadata segment.
func truncateSegments(fsys fs.FileSystem, p Paths, dim uint32, st segmentState, n uint64) error {
	count, err := conv.Uint64ToInt(n)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupted, err)
	}
	for _, target := range []struct {
		path string
		size int64
	}{
		{p.IDs(), int64(count) * core.IDSlotSize},
		{p.Embeddings(), int64(count) * int64(dim) * 4},
		{p.Metadata(), st.metaOffsetAt(n)},
	} {
		if err := fsys.Truncate(target.path, target.size); err != nil {
			return fmt.Errorf("%w: truncate %s: %w", ErrIO, target.path, err)
		}
	}
	return nil
}

// tailMatches reports whether the last record of every segment equals the
// serialized item. Used by recovery to decide whether a pending WAL record
// was already applied.
func tailMatches(fsys fs.FileSystem, p Paths, dim uint32, st segmentState, item core.Item) (bool, error) {
	n := st.base()
	if n == 0 {
		return false, nil
	}

	idOff := int64(n-1) * core.IDSlotSize
	ok, err := regionEquals(fsys, p.IDs(), idOff, encodeIDSlot(item.ID))
	if err != nil || !ok {
		return false, err
	}

	stride := int64(dim) * 4
	ok, err = regionEquals(fsys, p.Embeddings(), int64(n-1)*stride, encodeEmbedding(item.Vector))
	if err != nil || !ok {
		return false, err
	}

	return regionEquals(fsys, p.Metadata(), st.metaOffsets[n-1], encodeMetadataRecord(item.Metadata))
}

// regionEquals compares len(want) bytes of the file at off against want.
func regionEquals(fsys fs.FileSystem, path string, off int64, want []byte) (bool, error) {
	f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return false, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer func() { _ = f.Close() }()

	got := make([]byte, len(want))
	if _, err := f.ReadAt(got, off); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}
	return string(got) == string(want), nil
}

// fileSize returns the size of path, or 0 if it does not exist.
func fileSize(fsys fs.FileSystem, path string) (int64, error) {
	st, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}
	return st.Size(), nil
}
