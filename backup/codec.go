package backup

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec compresses and decompresses snapshot streams.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Name is the stable identifier recorded in the backup manifest.
	Name() string

	// Compress wraps w; the returned writer must be closed to flush.
	Compress(w io.Writer) (io.WriteCloser, error)

	// Decompress wraps r.
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// Default is the codec used when none is configured.
var Default Codec = Zstd{}

// ByName returns a built-in codec by its stable name.
//
// Restore uses this to pick the codec recorded in the manifest, so renaming
// a codec breaks old backups.
func ByName(name string) (Codec, error) {
	switch name {
	case "zstd":
		return Zstd{}, nil
	case "lz4":
		return LZ4{}, nil
	case "none":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown backup codec %q", name)
	}
}

// Zstd compresses with klauspost zstd at the default speed level.
type Zstd struct{}

// Name returns "zstd".
func (Zstd) Name() string { return "zstd" }

// Compress wraps w in a zstd encoder.
func (Zstd) Compress(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

// Decompress wraps r in a zstd decoder.
func (Zstd) Decompress(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

// LZ4 compresses with lz4 frames. Faster than zstd, lower ratio.
type LZ4 struct{}

// Name returns "lz4".
func (LZ4) Name() string { return "lz4" }

// Compress wraps w in an lz4 frame writer.
func (LZ4) Compress(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

// Decompress wraps r in an lz4 frame reader.
func (LZ4) Decompress(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

// None stores streams uncompressed.
type None struct{}

// Name returns "none".
func (None) Name() string { return "none" }

// Compress returns w unchanged.
func (None) Compress(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

// Decompress returns r unchanged.
func (None) Decompress(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
