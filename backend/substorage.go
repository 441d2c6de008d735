package backend

import (
	"io"
	"io/fs"
	"os"
)

// SubStorage exposes a window of an underlying Storage as its own Storage.
// It is used to address a filesystem that does not begin at byte 0 of the
// image, so the filesystem code can work in filesystem-relative offsets.
type SubStorage struct {
	underlying Storage
	offset     int64
	size       int64
}

// Sub returns a Storage covering size bytes of u beginning at offset.
func Sub(u Storage, offset, size int64) Storage {
	return SubStorage{
		underlying: u,
		offset:     offset,
		size:       size,
	}
}

func (s SubStorage) Stat() (fs.FileInfo, error) {
	return s.underlying.Stat()
}

func (s SubStorage) Read(b []byte) (int, error) {
	return s.underlying.Read(b)
}

func (s SubStorage) Close() error {
	return s.underlying.Close()
}

func (s SubStorage) ReadAt(p []byte, off int64) (n int, err error) {
	return s.underlying.ReadAt(p, s.offset+off)
}

func (s SubStorage) Seek(offset int64, whence int) (int64, error) {
	var (
		pos int64
		err error
	)
	switch whence {
	case io.SeekStart:
		pos, err = s.underlying.Seek(s.offset+offset, io.SeekStart)
	case io.SeekCurrent:
		pos, err = s.underlying.Seek(offset, io.SeekCurrent)
	case io.SeekEnd:
		pos, err = s.underlying.Seek(s.offset+s.size+offset, io.SeekStart)
	default:
		return 0, fs.ErrInvalid
	}
	return pos - s.offset, err
}

func (s SubStorage) Sys() (*os.File, error) {
	return s.underlying.Sys()
}

func (s SubStorage) Writable() (WritableFile, error) {
	w, err := s.underlying.Writable()
	if err != nil {
		return nil, err
	}
	return subWritable{w, s.offset, s.size}, nil
}

type subWritable struct {
	underlying WritableFile
	offset     int64
	size       int64
}

func (s subWritable) Stat() (fs.FileInfo, error) { return s.underlying.Stat() }
func (s subWritable) Read(b []byte) (int, error) { return s.underlying.Read(b) }
func (s subWritable) Close() error               { return s.underlying.Close() }

func (s subWritable) ReadAt(p []byte, off int64) (int, error) {
	return s.underlying.ReadAt(p, s.offset+off)
}

func (s subWritable) WriteAt(p []byte, off int64) (int, error) {
	return s.underlying.WriteAt(p, s.offset+off)
}

func (s subWritable) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekStart {
		offset += s.offset
	}
	pos, err := s.underlying.Seek(offset, whence)
	return pos - s.offset, err
}
