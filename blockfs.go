// Package blockfs implements methods for creating and manipulating disk
// images that hold a simple flat block filesystem ("BFS").
//
// It does not mount anything through the operating system; it manipulates
// the image bytes directly. A typical flow:
//
//	import "github.com/blockfs/go-blockfs"
//
//	d, err := blockfs.Create("/tmp/bfs.img", 10*1024*1024)
//	fs, err := d.CreateFilesystem(disk.FilesystemSpec{})
//	f, err := fs.OpenFile("hello.txt", os.O_RDWR|os.O_CREATE)
//	_, err = f.Write([]byte("HELLOWORLD"))
//
// and later:
//
//	d, err := blockfs.Open("/tmp/bfs.img")
//	fs, err := d.GetFilesystem(0)
package blockfs

import (
	"errors"
	"fmt"
	"os"

	"github.com/blockfs/go-blockfs/backend"
	"github.com/blockfs/go-blockfs/backend/file"
	"github.com/blockfs/go-blockfs/disk"
)

// when we open a block device we cannot always learn its sector geometry
// from the kernel, so fall back to the conventional 512
const defaultBlocksize int64 = 512

// Open a Disk from a path to a device or image file.
// Should pass a path to a block device e.g. /dev/sdb or a path to a file
// /tmp/bfs.img. The provided path must exist at the time you call Open().
func Open(device string) (*disk.Disk, error) {
	b, err := file.OpenFromPath(device, false)
	if err != nil {
		return nil, err
	}
	return OpenBackend(b)
}

// OpenReadOnly is Open without write access; filesystems read from the
// resulting Disk reject all mutating operations.
func OpenReadOnly(device string) (*disk.Disk, error) {
	b, err := file.OpenFromPath(device, true)
	if err != nil {
		return nil, err
	}
	return OpenBackend(b)
}

// Create a Disk as a new image file of the given size in bytes.
// The provided path must not exist at the time you call Create().
func Create(device string, size int64) (*disk.Disk, error) {
	b, err := file.CreateFromPath(device, size)
	if err != nil {
		return nil, err
	}
	return OpenBackend(b)
}

// OpenBackend builds a Disk around an already-open backend.Storage,
// detecting whether it is a regular image file or a block device.
func OpenBackend(b backend.Storage) (*disk.Disk, error) {
	info, err := b.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not get info for backend: %w", err)
	}

	var (
		diskType disk.Type
		size     int64
		lblksize = defaultBlocksize
		pblksize = defaultBlocksize
	)
	mode := info.Mode()
	switch {
	case mode.IsRegular():
		diskType = disk.File
		size = info.Size()
		if size <= 0 {
			return nil, errors.New("could not get file size for backend")
		}
	case mode&os.ModeDevice != 0:
		diskType = disk.Device
		osFile, err := b.Sys()
		if err != nil {
			return nil, fmt.Errorf("block device backend unusable: %w", err)
		}
		size, err = deviceSize(osFile)
		if err != nil {
			return nil, fmt.Errorf("could not get size of device %s: %w", osFile.Name(), err)
		}
		lblksize, pblksize, err = sectorSizes(osFile)
		if err != nil {
			return nil, fmt.Errorf("could not get sector sizes for device %s: %w", osFile.Name(), err)
		}
	default:
		return nil, errors.New("backend is neither a block device nor a regular file")
	}

	return &disk.Disk{
		Backend:           b,
		Size:              size,
		LogicalBlocksize:  lblksize,
		PhysicalBlocksize: pblksize,
		Type:              diskType,
	}, nil
}
