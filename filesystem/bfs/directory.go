package bfs

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	dirEntrySize  = 32
	nameLength    = 28
	maxNameLength = nameLength - 1 // names are NUL-terminated on disk
)

// directoryEntry one slot of the flat directory table. A slot whose first
// name byte is NUL is free.
type directoryEntry struct {
	name string
	inum uint32
	slot uint32
}

func (de *directoryEntry) toBytes() []byte {
	b := make([]byte, dirEntrySize)
	copy(b[0:nameLength], de.name)
	binary.LittleEndian.PutUint32(b[nameLength:dirEntrySize], de.inum)
	return b
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("filename must not be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("filename %q longer than maximum %d bytes", name, maxNameLength)
	}
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("filename %q contains invalid characters", name)
	}
	return nil
}

// readDirectory parses every occupied slot of the directory region
func (fs *FileSystem) readDirectory() ([]*directoryEntry, error) {
	var entries []*directoryEntry
	perBlock := fs.superblock.blockSize / dirEntrySize
	for blkIdx := uint32(0); blkIdx < fs.superblock.dirBlocks; blkIdx++ {
		blk, err := fs.readBlock(fs.superblock.dirStart + blkIdx)
		if err != nil {
			return nil, fmt.Errorf("could not read directory block %d: %w", blkIdx, err)
		}
		for s := uint32(0); s < perBlock; s++ {
			slot := blk[s*dirEntrySize : (s+1)*dirEntrySize]
			if slot[0] == 0 {
				continue
			}
			entries = append(entries, &directoryEntry{
				name: strings.TrimRight(string(slot[0:nameLength]), "\x00"),
				inum: binary.LittleEndian.Uint32(slot[nameLength:dirEntrySize]),
				slot: blkIdx*perBlock + s,
			})
		}
	}
	return entries, nil
}

// lookupName finds the directory entry for name, or ErrNotFound
func (fs *FileSystem) lookupName(name string) (*directoryEntry, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	entries, err := fs.readDirectory()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.name == name {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

// createName binds name to a fresh inode in the first free directory slot.
// The caller must already have checked that the name does not exist.
func (fs *FileSystem) createName(name string) (*directoryEntry, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	slot, err := fs.findFreeSlot()
	if err != nil {
		return nil, err
	}
	in, err := fs.findFreeInode()
	if err != nil {
		return nil, err
	}
	in.state = inodeInUse
	in.size = 0
	if err := fs.writeInode(in); err != nil {
		return nil, err
	}
	entry := &directoryEntry{name: name, inum: in.number, slot: slot}
	if err := fs.writeDirectoryEntry(entry); err != nil {
		return nil, err
	}
	log.WithField("name", name).WithField("inode", in.number).Debug("created file")
	return entry, nil
}

// findFreeSlot returns the index of the first free directory slot
func (fs *FileSystem) findFreeSlot() (uint32, error) {
	perBlock := fs.superblock.blockSize / dirEntrySize
	for blkIdx := uint32(0); blkIdx < fs.superblock.dirBlocks; blkIdx++ {
		blk, err := fs.readBlock(fs.superblock.dirStart + blkIdx)
		if err != nil {
			return 0, fmt.Errorf("could not read directory block %d: %w", blkIdx, err)
		}
		for s := uint32(0); s < perBlock; s++ {
			if blk[s*dirEntrySize] == 0 {
				return blkIdx*perBlock + s, nil
			}
		}
	}
	return 0, ErrTooManyFiles
}

// writeDirectoryEntry persists the entry into its slot
func (fs *FileSystem) writeDirectoryEntry(de *directoryEntry) error {
	perBlock := fs.superblock.blockSize / dirEntrySize
	dbn := fs.superblock.dirStart + de.slot/perBlock
	blk, err := fs.readBlock(dbn)
	if err != nil {
		return fmt.Errorf("could not read directory block for slot %d: %w", de.slot, err)
	}
	offset := (de.slot % perBlock) * dirEntrySize
	copy(blk[offset:offset+dirEntrySize], de.toBytes())
	return fs.writeBlock(dbn, blk)
}
