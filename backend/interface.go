// Package backend abstracts the storage that holds a disk image: a plain
// file, a block device, or a stub in tests. All filesystem code performs
// its I/O through a Storage.
package backend

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

var (
	ErrIncorrectOpenMode = errors.New("disk file or device not open for write")
	ErrNotSuitable       = errors.New("backing file is not suitable")
)

// File is the read-only view of a backing image.
type File interface {
	fs.File
	io.ReaderAt
	io.Seeker
	io.Closer
}

// WritableFile is a File that also accepts writes at arbitrary offsets.
type WritableFile interface {
	File
	io.WriterAt
}

// Storage is a backing image. Writable returns the write handle, or an
// error if the image was opened read-only.
type Storage interface {
	File
	// Sys returns the underlying *os.File for ioctl calls via fd,
	// where one exists
	Sys() (*os.File, error)
	// Writable returns the handle for read-write operations
	Writable() (WritableFile, error)
}
