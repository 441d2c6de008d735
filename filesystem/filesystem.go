// Package filesystem provides interfaces and constants required for
// filesystem implementations. The implementation is in the subpackage
// github.com/blockfs/go-blockfs/filesystem/bfs
package filesystem

import (
	"errors"
	"os"
)

var (
	ErrNotSupported       = errors.New("method not supported by this filesystem")
	ErrReadonlyFilesystem = errors.New("read-only filesystem")
)

// FileSystem is a reference to a single filesystem on a disk
type FileSystem interface {
	// Type return the type of filesystem
	Type() Type
	// OpenFile open a handle to read or write to a file
	OpenFile(name string, flag int) (File, error)
	// ReadDir read the contents of the (single, flat) directory.
	// The pathname must name the root, i.e. "", "." or "/".
	ReadDir(pathname string) ([]os.FileInfo, error)
	// Label get the volume label, or "" if none
	Label() string
	// SetLabel changes the label on a writable filesystem
	SetLabel(label string) error
	// Close release any resources held by the filesystem
	Close() error
}

// Type represents the type of filesystem this is
type Type int

const (
	// TypeBFS is a flat single-directory block filesystem
	TypeBFS Type = iota
)
