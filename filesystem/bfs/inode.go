package bfs

import (
	"encoding/binary"
	"fmt"
)

const (
	inodeSize    = 64
	directBlocks = 8

	inodeFree  uint16 = 0
	inodeInUse uint16 = 1

	// dbnUnmapped block 0 holds the superblock, so it can never back file
	// data and doubles as the "no block mapped" sentinel
	dbnUnmapped uint32 = 0
)

// inode per-file metadata: logical size in bytes and the FBN->DBN block map,
// 8 direct entries plus one single-indirect block of uint32 entries.
//
// on-disk layout, little-endian:
//
//	0:2    state
//	2:4    reserved
//	4:8    size in bytes
//	8:40   direct block map
//	40:44  indirect block DBN
//	44:64  reserved
type inode struct {
	number   uint32
	state    uint16
	size     uint32
	direct   [directBlocks]uint32
	indirect uint32
}

func (in *inode) equal(a *inode) bool {
	if (in == nil) != (a == nil) {
		return false
	}
	if in == nil {
		return true
	}
	return *in == *a
}

func (in *inode) toBytes() []byte {
	b := make([]byte, inodeSize)
	binary.LittleEndian.PutUint16(b[0:2], in.state)
	binary.LittleEndian.PutUint32(b[4:8], in.size)
	for i, dbn := range in.direct {
		binary.LittleEndian.PutUint32(b[8+i*4:12+i*4], dbn)
	}
	binary.LittleEndian.PutUint32(b[40:44], in.indirect)
	return b
}

func inodeFromBytes(b []byte, number uint32) (*inode, error) {
	if len(b) < inodeSize {
		return nil, fmt.Errorf("inode requires %d bytes, received %d", inodeSize, len(b))
	}
	in := inode{
		number:   number,
		state:    binary.LittleEndian.Uint16(b[0:2]),
		size:     binary.LittleEndian.Uint32(b[4:8]),
		indirect: binary.LittleEndian.Uint32(b[40:44]),
	}
	for i := range in.direct {
		in.direct[i] = binary.LittleEndian.Uint32(b[8+i*4 : 12+i*4])
	}
	return &in, nil
}

// readInode reads the numbered inode from the inode table
func (fs *FileSystem) readInode(inum uint32) (*inode, error) {
	if inum >= fs.superblock.inodeCount {
		return nil, fmt.Errorf("inode %d out of range, filesystem has %d inodes", inum, fs.superblock.inodeCount)
	}
	perBlock := fs.superblock.blockSize / inodeSize
	blk, err := fs.readBlock(fs.superblock.inodeTableStart + inum/perBlock)
	if err != nil {
		return nil, fmt.Errorf("could not read inode table block for inode %d: %w", inum, err)
	}
	offset := (inum % perBlock) * inodeSize
	return inodeFromBytes(blk[offset:offset+inodeSize], inum)
}

// writeInode writes the inode back into its slot in the inode table
func (fs *FileSystem) writeInode(in *inode) error {
	if in.number >= fs.superblock.inodeCount {
		return fmt.Errorf("inode %d out of range, filesystem has %d inodes", in.number, fs.superblock.inodeCount)
	}
	perBlock := fs.superblock.blockSize / inodeSize
	dbn := fs.superblock.inodeTableStart + in.number/perBlock
	blk, err := fs.readBlock(dbn)
	if err != nil {
		return fmt.Errorf("could not read inode table block for inode %d: %w", in.number, err)
	}
	offset := (in.number % perBlock) * inodeSize
	copy(blk[offset:offset+inodeSize], in.toBytes())
	return fs.writeBlock(dbn, blk)
}

// maxFileBlocks how many FBNs a single inode can map
func (fs *FileSystem) maxFileBlocks() uint32 {
	return directBlocks + fs.superblock.blockSize/4
}

// maxFileSize the largest byte size a single file can reach
func (fs *FileSystem) maxFileSize() int64 {
	return int64(fs.maxFileBlocks()) * int64(fs.superblock.blockSize)
}

// resolveBlock maps an FBN to its DBN, returning dbnUnmapped when no block
// backs that FBN yet
func (fs *FileSystem) resolveBlock(in *inode, fbn uint32) (uint32, error) {
	if fbn >= fs.maxFileBlocks() {
		return dbnUnmapped, ErrFileTooLarge
	}
	if fbn < directBlocks {
		return in.direct[fbn], nil
	}
	if in.indirect == dbnUnmapped {
		return dbnUnmapped, nil
	}
	blk, err := fs.readBlock(in.indirect)
	if err != nil {
		return dbnUnmapped, fmt.Errorf("could not read indirect block of inode %d: %w", in.number, err)
	}
	idx := (fbn - directBlocks) * 4
	return binary.LittleEndian.Uint32(blk[idx : idx+4]), nil
}

// allocateBlock backs the given FBN with a freshly allocated, zero-filled
// disk block and persists the updated block map. The zero fill happens
// before the mapping is recorded, so a later partial overwrite can never
// expose stale block content.
func (fs *FileSystem) allocateBlock(in *inode, fbn uint32) (uint32, error) {
	if fbn >= fs.maxFileBlocks() {
		return dbnUnmapped, ErrFileTooLarge
	}
	dbn, err := fs.allocateDBN()
	if err != nil {
		return dbnUnmapped, err
	}
	switch {
	case fbn < directBlocks:
		in.direct[fbn] = dbn
	default:
		if in.indirect == dbnUnmapped {
			ind, err := fs.allocateDBN()
			if err != nil {
				return dbnUnmapped, err
			}
			in.indirect = ind
		}
		blk, err := fs.readBlock(in.indirect)
		if err != nil {
			return dbnUnmapped, fmt.Errorf("could not read indirect block of inode %d: %w", in.number, err)
		}
		idx := (fbn - directBlocks) * 4
		binary.LittleEndian.PutUint32(blk[idx:idx+4], dbn)
		if err := fs.writeBlock(in.indirect, blk); err != nil {
			return dbnUnmapped, err
		}
	}
	if err := fs.writeInode(in); err != nil {
		return dbnUnmapped, err
	}
	log.WithField("inode", in.number).WithField("fbn", fbn).WithField("dbn", dbn).Debug("allocated block")
	return dbn, nil
}

// allocateDBN claims the first free data block, zero-fills it on disk and
// persists the free list
func (fs *FileSystem) allocateDBN() (uint32, error) {
	free := fs.bitmap.FirstFree(int(fs.superblock.dataStart))
	if free < 0 || uint32(free) >= fs.superblock.blockCount {
		return dbnUnmapped, ErrNoSpace
	}
	dbn := uint32(free)
	if err := fs.bitmap.Set(free); err != nil {
		return dbnUnmapped, err
	}
	if err := fs.writeBitmap(); err != nil {
		return dbnUnmapped, err
	}
	if err := fs.writeBlock(dbn, make([]byte, fs.superblock.blockSize)); err != nil {
		return dbnUnmapped, err
	}
	return dbn, nil
}

// truncateInode releases every block backing the inode and resets its size
// to zero. Used when an existing file is overwritten by create.
func (fs *FileSystem) truncateInode(in *inode) error {
	for i, dbn := range in.direct {
		if dbn != dbnUnmapped {
			if err := fs.bitmap.Clear(int(dbn)); err != nil {
				return err
			}
			in.direct[i] = dbnUnmapped
		}
	}
	if in.indirect != dbnUnmapped {
		blk, err := fs.readBlock(in.indirect)
		if err != nil {
			return fmt.Errorf("could not read indirect block of inode %d: %w", in.number, err)
		}
		for idx := uint32(0); idx < fs.superblock.blockSize/4; idx++ {
			if dbn := binary.LittleEndian.Uint32(blk[idx*4 : idx*4+4]); dbn != dbnUnmapped {
				if err := fs.bitmap.Clear(int(dbn)); err != nil {
					return err
				}
			}
		}
		if err := fs.bitmap.Clear(int(in.indirect)); err != nil {
			return err
		}
		in.indirect = dbnUnmapped
	}
	in.size = 0
	if err := fs.writeBitmap(); err != nil {
		return err
	}
	return fs.writeInode(in)
}

// findFreeInode scans the inode table for the first unused inode
func (fs *FileSystem) findFreeInode() (*inode, error) {
	for inum := uint32(0); inum < fs.superblock.inodeCount; inum++ {
		in, err := fs.readInode(inum)
		if err != nil {
			return nil, err
		}
		if in.state == inodeFree {
			return in, nil
		}
	}
	return nil, ErrTooManyFiles
}
