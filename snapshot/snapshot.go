// Package snapshot exports and imports whole disk images as compressed
// streams, for archiving a filesystem or shipping it between machines.
// The stream is a small fixed header followed by the raw image bytes run
// through the chosen compressor.
package snapshot

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/blockfs/go-blockfs/backend"
)

const (
	// "BFSS" little-endian
	magic   uint32 = 0x53534642
	version uint16 = 1

	headerSize = 16
)

// Compression identifies the compressor a snapshot stream was written with
type Compression int8

const (
	// CompressionNone store the image bytes as-is
	CompressionNone Compression = iota
	// CompressionLZ4 fast compression, moderate ratio
	CompressionLZ4
	// CompressionXZ slow compression, high ratio
	CompressionXZ
)

// Export writes the first size bytes of the image held in src to w as a
// snapshot stream compressed with c.
func Export(src backend.Storage, size int64, w io.Writer, c Compression) error {
	if size <= 0 {
		return fmt.Errorf("invalid image size %d", size)
	}
	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(hdr[0:4], magic)
	binary.LittleEndian.PutUint16(hdr[4:6], version)
	hdr[6] = byte(c)
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(size))
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	cw, err := newCompressWriter(c, w)
	if err != nil {
		return err
	}
	if _, err := io.Copy(cw, io.NewSectionReader(src, 0, size)); err != nil {
		return fmt.Errorf("write snapshot body: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("finish snapshot body: %w", err)
	}
	return nil
}

// Import reads a snapshot stream from r and writes the image bytes into
// dst, which must be writable and at least as large as the recorded image.
// Returns the image size in bytes.
func Import(r io.Reader, dst backend.Storage) (int64, error) {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return 0, fmt.Errorf("read snapshot header: %w", err)
	}
	if m := binary.LittleEndian.Uint32(hdr[0:4]); m != magic {
		return 0, fmt.Errorf("not a snapshot stream")
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != version {
		return 0, fmt.Errorf("unsupported snapshot version %d", v)
	}
	c := Compression(hdr[6])
	size := int64(binary.LittleEndian.Uint64(hdr[8:16]))
	if size <= 0 {
		return 0, fmt.Errorf("snapshot declares invalid image size %d", size)
	}

	cr, err := newDecompressReader(c, r)
	if err != nil {
		return 0, err
	}
	w, err := dst.Writable()
	if err != nil {
		return 0, err
	}
	if _, err := io.CopyN(io.NewOffsetWriter(w, 0), cr, size); err != nil {
		return 0, fmt.Errorf("restore snapshot body: %w", err)
	}
	return size, nil
}

func newCompressWriter(c Compression, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case CompressionXZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("create xz writer: %w", err)
		}
		return xw, nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", c)
	}
}

func newDecompressReader(c Compression, r io.Reader) (io.Reader, error) {
	switch c {
	case CompressionNone:
		return r, nil
	case CompressionLZ4:
		return lz4.NewReader(r), nil
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create xz reader: %w", err)
		}
		return xr, nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", c)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
