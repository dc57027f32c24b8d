package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/vdb/core"
	"github.com/hupe1980/vdb/internal/conv"
	"github.com/hupe1980/vdb/internal/fs"
)

// WAL record types.
const walRecordAppend byte = 1

// walHeaderSize is the fixed header of a WAL record:
// type (u8), id length (u32), vector dimension (u32), metadata length (u32).
const walHeaderSize = 13

// errTornWALRecord marks a WAL that ends mid-record. The append it belongs
// to was never acknowledged, so recovery discards it.
var errTornWALRecord = errors.New("torn WAL record")

// wal is the write-ahead log of one collection: a single file holding zero
// or one pending append record.
type wal struct {
	fsys fs.FileSystem
	path string
	file fs.File
}

// openWAL opens (creating if absent) the WAL file.
func openWAL(fsys fs.FileSystem, path string) (*wal, error) {
	f, err := fsys.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	return &wal{fsys: fsys, path: path, file: f}, nil
}

// appendAndSync writes the record for item and forces it to durable
// storage. On any failure the WAL state is undefined and the caller must
// not proceed to the segment writes.
func (w *wal) appendAndSync(item core.Item, c *counters) error {
	buf, err := encodeWALRecord(item)
	if err != nil {
		return err
	}

	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("%w: seek %s: %w", ErrIO, w.path, err)
	}
	n, err := w.file.Write(buf)
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, w.path, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: short write to %s: %d of %d bytes", ErrIO, w.path, n, len(buf))
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", ErrIO, w.path, err)
	}

	c.fsyncs.Add(1)
	c.bytesWritten.Add(uint64(n))
	return nil
}

// truncate resets the WAL to empty length.
func (w *wal) truncate() error {
	if err := w.fsys.Truncate(w.path, 0); err != nil {
		return fmt.Errorf("%w: truncate %s: %w", ErrIO, w.path, err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek %s: %w", ErrIO, w.path, err)
	}
	return nil
}

// contents reads the whole WAL.
func (w *wal) contents() ([]byte, error) {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek %s: %w", ErrIO, w.path, err)
	}
	data, err := io.ReadAll(w.file)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, w.path, err)
	}
	return data, nil
}

// Close releases the WAL file.
func (w *wal) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// encodeWALRecord serializes the pending append: the fixed header followed
// by the id bytes, the raw vector bytes, and the metadata bytes.
func encodeWALRecord(item core.Item) ([]byte, error) {
	idLen, err := conv.IntToUint32(len(item.ID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	mdLen, err := conv.IntToUint32(len(item.Metadata))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	vecBytes := encodeEmbedding(item.Vector)
	buf := make([]byte, 0, walHeaderSize+len(item.ID)+len(vecBytes)+len(item.Metadata))

	buf = append(buf, walRecordAppend)
	buf = binary.LittleEndian.AppendUint32(buf, idLen)
	buf = binary.LittleEndian.AppendUint32(buf, item.Vector.Dim)
	buf = binary.LittleEndian.AppendUint32(buf, mdLen)
	buf = append(buf, item.ID...)
	buf = append(buf, vecBytes...)
	buf = append(buf, item.Metadata...)

	return buf, nil
}

// decodeWALRecord parses the single pending record at the start of data.
// Short or implausibly framed data yields errTornWALRecord: the record was
// still being written when the crash happened and must be discarded. Extra
// bytes past a complete record are ignored; the recovery truncate clears
// them either way.
func decodeWALRecord(data []byte) (core.Item, error) {
	if len(data) < walHeaderSize {
		return core.Item{}, errTornWALRecord
	}
	if data[0] != walRecordAppend {
		return core.Item{}, fmt.Errorf("%w: unknown record type %d", errTornWALRecord, data[0])
	}

	idLen := binary.LittleEndian.Uint32(data[1:5])
	dim := binary.LittleEndian.Uint32(data[5:9])
	mdLen := binary.LittleEndian.Uint32(data[9:13])

	if idLen == 0 || idLen > core.MaxIDLen || !core.ValidDim(dim) || mdLen > maxMetadataLen {
		return core.Item{}, fmt.Errorf("%w: implausible header (id_len=%d dim=%d metadata_len=%d)",
			errTornWALRecord, idLen, dim, mdLen)
	}

	total := walHeaderSize + int64(idLen) + int64(dim)*4 + int64(mdLen)
	if int64(len(data)) < total {
		return core.Item{}, errTornWALRecord
	}

	off := int64(walHeaderSize)
	id := string(data[off : off+int64(idLen)])
	off += int64(idLen)

	vec := decodeEmbedding(data[off:off+int64(dim)*4], dim)
	off += int64(dim) * 4

	var md []byte
	if mdLen > 0 {
		md = make([]byte, mdLen)
		copy(md, data[off:off+int64(mdLen)])
	}

	return core.Item{ID: id, Vector: vec, Metadata: md}, nil
}
