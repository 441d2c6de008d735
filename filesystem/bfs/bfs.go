// Package bfs implements a simple flat block filesystem ("BFS") inside a
// disk image or device: one superblock, a fixed inode table, a single flat
// directory, a block allocation bitmap and data blocks, all in fixed-size
// blocks. Files are read and written through a per-descriptor cursor; the
// package translates byte-range requests into whole-block operations on the
// backing store.
package bfs

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blockfs/go-blockfs/backend"
	"github.com/blockfs/go-blockfs/filesystem"
	"github.com/blockfs/go-blockfs/util/bitmap"
	"github.com/blockfs/go-blockfs/util/timestamp"
)

const (
	// MinBlockSize smallest supported block size
	MinBlockSize uint32 = 512
	// MaxBlockSize largest supported block size
	MaxBlockSize uint32 = 32768
	// DefaultBlockSize used when no block size is requested
	DefaultBlockSize uint32 = 512
	// DefaultInodeCount used when no inode count is requested; also the
	// maximum number of files, as the directory has one slot per inode
	DefaultInodeCount uint32 = 64
	// DefaultVolumeLabel used when no label is requested
	DefaultVolumeLabel = "go-blockfs"
)

var log = logrus.WithField("package", "bfs")

// Params control the geometry of a filesystem at creation time. The zero
// value picks sensible defaults.
type Params struct {
	// InodeCount how many files the filesystem can hold; 0 means
	// DefaultInodeCount
	InodeCount uint32
	// Label the volume label; "" means DefaultVolumeLabel
	Label string
	// UUID the volume UUID; nil means a random one
	UUID *uuid.UUID
}

// FileSystem implements the filesystem.FileSystem interface
type FileSystem struct {
	superblock *superblock
	bitmap     *bitmap.Bitmap
	size       int64
	start      int64
	backend    backend.Storage
	oft        *openFileTable
}

// interface guard
var _ filesystem.FileSystem = (*FileSystem)(nil)

// Equal compare if two filesystems are equal
func (fs *FileSystem) Equal(a *FileSystem) bool {
	return fs.backend == a.backend && fs.superblock.equal(a.superblock)
}

// Create creates a BFS filesystem in a given file or device.
//
// It requires the backend.Storage where to create the filesystem, size is
// the size of the filesystem in bytes, start is how far in bytes from the
// beginning of the backend.Storage the filesystem begins, and blocksize is
// the size of the blocks, a power of two between MinBlockSize and
// MaxBlockSize; 0 picks DefaultBlockSize.
//
// Everything in the image is laid out at creation time: superblock, inode
// table, flat directory, allocation bitmap, then data blocks.
func Create(b backend.Storage, size, start, blocksize int64, p *Params) (*FileSystem, error) {
	if p == nil {
		p = &Params{}
	}
	if size <= 0 {
		return nil, fmt.Errorf("requested size %d is invalid", size)
	}
	if start < 0 {
		return nil, fmt.Errorf("requested start %d is invalid", start)
	}
	if blocksize == 0 {
		blocksize = int64(DefaultBlockSize)
	}
	bs := uint32(blocksize)
	if bs < MinBlockSize || bs > MaxBlockSize || bs&(bs-1) != 0 {
		return nil, fmt.Errorf("blocksize %d must be a power of two between %d and %d", blocksize, MinBlockSize, MaxBlockSize)
	}

	inodeCount := p.InodeCount
	if inodeCount == 0 {
		inodeCount = DefaultInodeCount
	}
	label := p.Label
	if label == "" {
		label = DefaultVolumeLabel
	}
	if len(label) > maxLabelLength {
		return nil, fmt.Errorf("label %q longer than maximum %d bytes", label, maxLabelLength)
	}
	volumeUUID := p.UUID
	if volumeUUID == nil {
		u, _ := uuid.NewRandom()
		volumeUUID = &u
	}

	// compute the region layout
	blockCount := uint32(size / int64(bs))
	blocksFor := func(bytes uint32) uint32 {
		return (bytes + bs - 1) / bs
	}
	sb := superblock{
		blockSize:        bs,
		blockCount:       blockCount,
		inodeCount:       inodeCount,
		inodeTableStart:  1,
		inodeTableBlocks: blocksFor(inodeCount * inodeSize),
		volumeUUID:       *volumeUUID,
		label:            label,
		formattedAt:      timestamp.GetTime(),
		lastMountAt:      timestamp.GetTime(),
	}
	sb.dirStart = sb.inodeTableStart + sb.inodeTableBlocks
	sb.dirBlocks = blocksFor(inodeCount * dirEntrySize)
	sb.bitmapStart = sb.dirStart + sb.dirBlocks
	sb.bitmapBlocks = blocksFor((blockCount + 7) / 8)
	sb.dataStart = sb.bitmapStart + sb.bitmapBlocks
	if sb.dataStart >= blockCount {
		return nil, fmt.Errorf("size %d leaves no room for data blocks after %d metadata blocks of %d bytes", size, sb.dataStart, bs)
	}

	// all metadata blocks are in use from the start
	bm := bitmap.New(int(blockCount))
	for i := uint32(0); i < sb.dataStart; i++ {
		if err := bm.Set(int(i)); err != nil {
			return nil, err
		}
	}

	fs := &FileSystem{
		superblock: &sb,
		bitmap:     bm,
		size:       size,
		start:      start,
		backend:    b,
		oft:        newOpenFileTable(),
	}

	if err := fs.writeSuperblock(); err != nil {
		return nil, fmt.Errorf("could not write superblock: %w", err)
	}
	// zero the inode table and directory so every inode and directory
	// slot starts out free
	zero := make([]byte, bs)
	for dbn := sb.inodeTableStart; dbn < sb.bitmapStart; dbn++ {
		if err := fs.writeBlock(dbn, zero); err != nil {
			return nil, fmt.Errorf("could not initialize metadata block %d: %w", dbn, err)
		}
	}
	if err := fs.writeBitmap(); err != nil {
		return nil, fmt.Errorf("could not write free list: %w", err)
	}

	log.WithFields(logrus.Fields{
		"blocks":    blockCount,
		"blocksize": bs,
		"inodes":    inodeCount,
		"uuid":      volumeUUID.String(),
	}).Debug("created filesystem")
	return fs, nil
}

// Read reads an existing BFS filesystem from the backend.Storage.
//
// It requires the backend.Storage that holds the filesystem, size is the
// size of the filesystem in bytes, start is how far in bytes from the
// beginning of the backend.Storage the filesystem begins, and blocksize is
// the expected block size; 0 accepts whatever the superblock declares.
//
// Returns ErrNotBFS if the superblock magic does not match.
func Read(b backend.Storage, size, start, blocksize int64) (*FileSystem, error) {
	if size <= 0 {
		return nil, fmt.Errorf("requested size %d is invalid", size)
	}
	if start < 0 {
		return nil, fmt.Errorf("requested start %d is invalid", start)
	}

	// the superblock always fits in the first MinBlockSize bytes
	raw := make([]byte, MinBlockSize)
	if _, err := b.ReadAt(raw, start); err != nil {
		return nil, fmt.Errorf("could not read superblock: %w", err)
	}
	sb, err := superblockFromBytes(raw)
	if err != nil {
		return nil, err
	}
	if blocksize != 0 && blocksize != int64(sb.blockSize) {
		return nil, fmt.Errorf("requested blocksize %d does not match filesystem blocksize %d", blocksize, sb.blockSize)
	}
	if int64(sb.blockCount)*int64(sb.blockSize) > size {
		return nil, fmt.Errorf("superblock declares %d blocks of %d bytes, beyond the %d bytes available", sb.blockCount, sb.blockSize, size)
	}

	fs := &FileSystem{
		superblock: sb,
		size:       size,
		start:      start,
		backend:    b,
		oft:        newOpenFileTable(),
	}

	// load the free list
	bitmapBytes := make([]byte, sb.bitmapBlocks*sb.blockSize)
	if _, err := b.ReadAt(bitmapBytes, start+int64(sb.bitmapStart)*int64(sb.blockSize)); err != nil {
		return nil, fmt.Errorf("could not read free list: %w", err)
	}
	fs.bitmap = bitmap.FromBytes(bitmapBytes[:(sb.blockCount+7)/8])

	// record the mount time; skipped silently on read-only backends
	sb.lastMountAt = timestamp.GetTime()
	if _, err := b.Writable(); err == nil {
		if err := fs.writeSuperblock(); err != nil {
			return nil, fmt.Errorf("could not update superblock mount time: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"blocks":    sb.blockCount,
		"blocksize": sb.blockSize,
		"label":     sb.label,
	}).Debug("mounted filesystem")
	return fs, nil
}

// Type returns the type of filesystem
func (fs *FileSystem) Type() filesystem.Type {
	return filesystem.TypeBFS
}

// Label get the volume label
func (fs *FileSystem) Label() string {
	if fs.superblock == nil {
		return ""
	}
	return fs.superblock.label
}

// SetLabel changes the volume label on a writable filesystem
func (fs *FileSystem) SetLabel(label string) error {
	if len(label) > maxLabelLength {
		return fmt.Errorf("label %q longer than maximum %d bytes", label, maxLabelLength)
	}
	fs.superblock.label = label
	return fs.writeSuperblock()
}

// UUID returns the volume UUID assigned at creation time
func (fs *FileSystem) UUID() uuid.UUID {
	return fs.superblock.volumeUUID
}

// FreeSpace returns how many bytes of data blocks remain unallocated
func (fs *FileSystem) FreeSpace() int64 {
	return int64(fs.bitmap.CountFree()) * int64(fs.superblock.blockSize)
}

// Close release the filesystem and its backing storage
func (fs *FileSystem) Close() error {
	if fs.backend == nil {
		return nil
	}
	err := fs.backend.Close()
	fs.backend = nil
	return err
}

// Open opens the existing named file for reading and writing.
// Returns ErrNotFound if no such file exists.
func (fs *FileSystem) Open(name string) (*File, error) {
	f, err := fs.OpenFile(name, os.O_RDWR)
	if err != nil {
		return nil, err
	}
	return f.(*File), nil
}

// Create creates the named file, overwriting (truncating) any existing file
// of the same name, and opens it for reading and writing.
func (fs *FileSystem) Create(name string) (*File, error) {
	f, err := fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return nil, err
	}
	return f.(*File), nil
}

// OpenFile open a handle to read or write a file, honoring the os.O_RDWR,
// os.O_CREATE and os.O_TRUNC flags. Opening a nonexistent file without
// os.O_CREATE returns ErrNotFound and leaves the store unchanged.
func (fs *FileSystem) OpenFile(name string, flag int) (filesystem.File, error) {
	entry, err := fs.lookupName(name)
	switch {
	case err == nil:
		if flag&os.O_TRUNC != 0 {
			in, err := fs.readInode(entry.inum)
			if err != nil {
				return nil, err
			}
			if err := fs.truncateInode(in); err != nil {
				return nil, fmt.Errorf("could not truncate %s: %w", name, err)
			}
		}
	case err == ErrNotFound && flag&os.O_CREATE != 0:
		if entry, err = fs.createName(name); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return &File{
		filesystem:  fs,
		entry:       fs.oft.open(entry.inum),
		isReadWrite: flag&(os.O_RDWR|os.O_WRONLY) != 0,
	}, nil
}

// ReadDir read the contents of the single flat directory. The pathname must
// name the root: "", "." or "/".
func (fs *FileSystem) ReadDir(pathname string) ([]os.FileInfo, error) {
	if pathname != "" && pathname != "." && pathname != "/" {
		return nil, fmt.Errorf("filesystem has no directory %s: %w", pathname, filesystem.ErrNotSupported)
	}
	entries, err := fs.readDirectory()
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		in, err := fs.readInode(e.inum)
		if err != nil {
			return nil, err
		}
		infos = append(infos, fileInfo{
			name:    e.name,
			size:    int64(in.size),
			modTime: fs.superblock.formattedAt,
		})
	}
	return infos, nil
}

// readBlock reads a single whole block by disk block number
func (fs *FileSystem) readBlock(dbn uint32) ([]byte, error) {
	if dbn >= fs.superblock.blockCount {
		return nil, fmt.Errorf("block %d out of range, filesystem has %d blocks", dbn, fs.superblock.blockCount)
	}
	b := make([]byte, fs.superblock.blockSize)
	if _, err := fs.backend.ReadAt(b, fs.start+int64(dbn)*int64(fs.superblock.blockSize)); err != nil {
		return nil, fmt.Errorf("could not read block %d: %w", dbn, err)
	}
	return b, nil
}

// writeBlock writes a single whole block by disk block number
func (fs *FileSystem) writeBlock(dbn uint32, b []byte) error {
	if dbn >= fs.superblock.blockCount {
		return fmt.Errorf("block %d out of range, filesystem has %d blocks", dbn, fs.superblock.blockCount)
	}
	if uint32(len(b)) != fs.superblock.blockSize {
		return fmt.Errorf("block write requires exactly %d bytes, received %d", fs.superblock.blockSize, len(b))
	}
	w, err := fs.backend.Writable()
	if err != nil {
		return err
	}
	if _, err := w.WriteAt(b, fs.start+int64(dbn)*int64(fs.superblock.blockSize)); err != nil {
		return fmt.Errorf("could not write block %d: %w", dbn, err)
	}
	return nil
}

// writeBitmap persists the free list into its reserved blocks, padded to
// whole blocks
func (fs *FileSystem) writeBitmap() error {
	padded := make([]byte, fs.superblock.bitmapBlocks*fs.superblock.blockSize)
	copy(padded, fs.bitmap.ToBytes())
	w, err := fs.backend.Writable()
	if err != nil {
		return err
	}
	if _, err := w.WriteAt(padded, fs.start+int64(fs.superblock.bitmapStart)*int64(fs.superblock.blockSize)); err != nil {
		return fmt.Errorf("could not write free list: %w", err)
	}
	return nil
}

func (fs *FileSystem) writeSuperblock() error {
	return fs.writeBlock(0, fs.superblock.toBytes())
}

// fileInfo implements os.FileInfo for directory listings
type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() os.FileMode  { return 0o644 }
func (fi fileInfo) ModTime() time.Time { return fi.modTime }
func (fi fileInfo) IsDir() bool        { return false }
func (fi fileInfo) Sys() interface{}   { return nil }
