package filesystem

import "io"

// File is a reference to a single file on disk
type File interface {
	io.ReadWriteSeeker
	io.Closer
}
