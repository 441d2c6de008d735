// Package disk provides utilities for working directly with a disk image
// or block device: it binds a backend.Storage to its geometry and creates
// or reads the filesystem held inside it.
package disk

import (
	"errors"
	"fmt"

	"github.com/blockfs/go-blockfs/backend"
	"github.com/blockfs/go-blockfs/filesystem"
	"github.com/blockfs/go-blockfs/filesystem/bfs"
)

// Disk is a reference to a single disk block device or image that has been
// Create() or Open()
type Disk struct {
	Backend           backend.Storage
	Size              int64
	LogicalBlocksize  int64
	PhysicalBlocksize int64
	Type              Type
}

// Type represents the type of disk this is
type Type int

const (
	// File is a file-based disk image
	File Type = iota
	// Device is an OS-managed block device
	Device
)

// FilesystemSpec represents the specification of a filesystem to be created
type FilesystemSpec struct {
	// Start how many bytes into the disk the filesystem begins; 0 means
	// the whole disk
	Start int64
	// BlockSize filesystem block size; 0 picks the default
	BlockSize int64
	// Params further creation parameters, may be nil
	Params *bfs.Params
}

// CreateFilesystem creates a filesystem on a disk image, the kind and
// geometry determined by the spec. A filesystem that does not begin at byte
// 0 of the image is addressed through a backend window so that all of its
// internal offsets stay filesystem-relative.
func (d *Disk) CreateFilesystem(spec FilesystemSpec) (filesystem.FileSystem, error) {
	if d.Backend == nil {
		return nil, errors.New("disk is closed or was never opened")
	}
	if spec.Start < 0 || spec.Start >= d.Size {
		return nil, fmt.Errorf("filesystem start %d outside disk of size %d", spec.Start, d.Size)
	}
	size := d.Size - spec.Start
	b := d.Backend
	if spec.Start != 0 {
		b = backend.Sub(b, spec.Start, size)
	}
	return bfs.Create(b, size, 0, spec.BlockSize, spec.Params)
}

// GetFilesystem reads the filesystem that begins start bytes into the disk
func (d *Disk) GetFilesystem(start int64) (filesystem.FileSystem, error) {
	if d.Backend == nil {
		return nil, errors.New("disk is closed or was never opened")
	}
	if start < 0 || start >= d.Size {
		return nil, fmt.Errorf("filesystem start %d outside disk of size %d", start, d.Size)
	}
	size := d.Size - start
	b := d.Backend
	if start != 0 {
		b = backend.Sub(b, start, size)
	}
	return bfs.Read(b, size, 0, 0)
}

// Close releases the disk's backing storage
func (d *Disk) Close() error {
	if d.Backend == nil {
		return nil
	}
	err := d.Backend.Close()
	d.Backend = nil
	return err
}
