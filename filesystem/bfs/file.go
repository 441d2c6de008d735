package bfs

import (
	"io"
	"os"

	"github.com/blockfs/go-blockfs/filesystem"
)

// File represents a single open file in a BFS filesystem. It translates
// byte-range reads and writes on a moving cursor into whole-block I/O
// against the backing store.
type File struct {
	filesystem  *FileSystem
	entry       *oftEntry
	isReadWrite bool
}

// Fd returns the small-integer descriptor bound to this file's open-file
// table entry
func (fl *File) Fd() int {
	return fl.entry.fd
}

// Read reads up to len(b) bytes from the File.
// It returns the number of bytes read and any error encountered.
// At end of file, Read returns 0, io.EOF.
// The delivered count is bounded by the file's declared size, so a request
// crossing end-of-file short-reads rather than failing, and zero-filled
// padding of a short final block is never delivered.
// Reads start at the cursor from the last read, write or seek and advance
// it by the number of bytes read.
func (fl *File) Read(b []byte) (int, error) {
	if fl == nil || fl.filesystem == nil {
		return 0, os.ErrClosed
	}
	fs := fl.filesystem
	in, err := fs.readInode(fl.entry.inum)
	if err != nil {
		return 0, err
	}
	blockSize := int64(fs.superblock.blockSize)
	cursor := fl.entry.cursor
	size := int64(in.size)

	// nothing left before end of file
	if size-cursor <= 0 {
		return 0, io.EOF
	}

	// we stop at the lesser of len(b) and the bytes left in the file
	maxRead := size - cursor
	if int64(len(b)) < maxRead {
		maxRead = int64(len(b))
	}

	var totalRead int64
	intra := cursor % blockSize
	for fbn := uint32(cursor / blockSize); totalRead < maxRead; fbn++ {
		blk, err := fs.readFileBlock(in, fbn)
		if err != nil {
			// the bytes already delivered are consumed
			fl.entry.cursor += totalRead
			return int(totalRead), err
		}
		toRead := blockSize - intra
		if left := maxRead - totalRead; toRead > left {
			toRead = left
		}
		copy(b[totalRead:totalRead+toRead], blk[intra:intra+toRead])
		totalRead += toRead
		// only the first block can start mid-block
		intra = 0
	}

	fl.entry.cursor += totalRead
	var retErr error
	if fl.entry.cursor >= size {
		retErr = io.EOF
	}
	return int(totalRead), retErr
}

// Write writes len(p) bytes to the File, extending it as needed.
// It returns the number of bytes written and an error, if any; the error is
// non-nil whenever n != len(p).
// Every block the write touches is either an existing block, whose bytes
// outside the written range are preserved, or a freshly allocated block
// that is zero-filled on disk before the partial overwrite, so reads of the
// untouched remainder of an extended region always return zeros.
// Writes start at the cursor and advance it by the number of bytes written.
func (fl *File) Write(p []byte) (int, error) {
	if fl == nil || fl.filesystem == nil {
		return 0, os.ErrClosed
	}
	if !fl.isReadWrite {
		return 0, filesystem.ErrReadonlyFilesystem
	}
	fs := fl.filesystem
	if _, err := fs.backend.Writable(); err != nil {
		return 0, err
	}
	in, err := fs.readInode(fl.entry.inum)
	if err != nil {
		return 0, err
	}
	blockSize := int64(fs.superblock.blockSize)
	cursor := fl.entry.cursor
	oldSize := int64(in.size)

	newSize := cursor + int64(len(p))
	if newSize < oldSize {
		newSize = oldSize
	}
	if newSize > fs.maxFileSize() {
		return 0, ErrFileTooLarge
	}
	if len(p) == 0 {
		return 0, nil
	}

	// writing past the current end allocates and zero-fills every
	// intermediate block first, so the gap reads back as zeros
	startFBN := uint32(cursor / blockSize)
	if cursor > oldSize {
		for fbn := uint32(oldSize / blockSize); fbn < startFBN; fbn++ {
			dbn, err := fs.resolveBlock(in, fbn)
			if err != nil {
				return 0, err
			}
			if dbn == dbnUnmapped {
				if _, err := fs.allocateBlock(in, fbn); err != nil {
					return 0, err
				}
			}
		}
	}

	totalWritten := 0
	intra := cursor % blockSize
	for fbn := startFBN; totalWritten < len(p); fbn++ {
		dbn, err := fs.resolveBlock(in, fbn)
		if err != nil {
			return totalWritten, err
		}
		if dbn == dbnUnmapped {
			if dbn, err = fs.allocateBlock(in, fbn); err != nil {
				return totalWritten, err
			}
		}
		// read-modify-write the whole block
		blk, err := fs.readBlock(dbn)
		if err != nil {
			return totalWritten, err
		}
		toWrite := blockSize - intra
		if left := int64(len(p) - totalWritten); toWrite > left {
			toWrite = left
		}
		copy(blk[intra:intra+toWrite], p[totalWritten:totalWritten+int(toWrite)])
		if err := fs.writeBlock(dbn, blk); err != nil {
			return totalWritten, err
		}
		totalWritten += int(toWrite)
		fl.entry.cursor += toWrite
		intra = 0
	}

	if newSize > oldSize {
		in.size = uint32(newSize)
		if err := fs.writeInode(in); err != nil {
			return totalWritten, err
		}
	}
	return totalWritten, nil
}

// Seek sets the cursor for the next Read or Write: io.SeekStart sets it to
// offset, io.SeekCurrent adds offset to it, io.SeekEnd sets it to the file
// size plus offset. It returns the new cursor.
//
// A negative offset argument is rejected with ErrBadCursor regardless of
// whence: the check is applied to the raw argument, not the computed
// position, retained for compatibility with the on-disk format's original
// semantics. Consequently the cursor can never go negative.
//
// Seeking past end of file extends the file's declared size without
// allocating blocks; the extended region reads back as zeros.
func (fl *File) Seek(offset int64, whence int) (int64, error) {
	if fl == nil || fl.filesystem == nil {
		return 0, os.ErrClosed
	}
	if offset < 0 {
		return fl.entry.cursor, ErrBadCursor
	}
	fs := fl.filesystem
	in, err := fs.readInode(fl.entry.inum)
	if err != nil {
		return fl.entry.cursor, err
	}

	var newOffset int64
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekCurrent:
		newOffset = fl.entry.cursor + offset
	case io.SeekEnd:
		newOffset = int64(in.size) + offset
	default:
		return fl.entry.cursor, ErrBadWhence
	}
	// a large offset added to the cursor or size can wrap negative
	if newOffset < 0 {
		return fl.entry.cursor, ErrBadCursor
	}

	// size tracks the highest offset reached by write or seek
	if newOffset > int64(in.size) {
		if newOffset > fs.maxFileSize() {
			return fl.entry.cursor, ErrFileTooLarge
		}
		in.size = uint32(newOffset)
		if err := fs.writeInode(in); err != nil {
			return fl.entry.cursor, err
		}
	}

	fl.entry.cursor = newOffset
	return newOffset, nil
}

// Tell returns the current cursor position
func (fl *File) Tell() int64 {
	return fl.entry.cursor
}

// Size returns the file size in bytes as tracked by the inode: the highest
// offset ever reached through write or seek, independent of how many blocks
// are actually allocated.
func (fl *File) Size() (int64, error) {
	if fl == nil || fl.filesystem == nil {
		return 0, os.ErrClosed
	}
	in, err := fl.filesystem.readInode(fl.entry.inum)
	if err != nil {
		return 0, err
	}
	return int64(in.size), nil
}

// Close releases this handle's reference on the open-file table entry
func (fl *File) Close() error {
	if fl.filesystem != nil {
		fl.filesystem.oft.release(fl.entry)
	}
	fl.filesystem = nil
	return nil
}

// readFileBlock fetches the block backing the given FBN, returning a
// zero-filled block for FBNs inside the file size that have no backing
// block yet (regions extended by seek and never written).
func (fs *FileSystem) readFileBlock(in *inode, fbn uint32) ([]byte, error) {
	dbn, err := fs.resolveBlock(in, fbn)
	if err != nil {
		return nil, err
	}
	if dbn == dbnUnmapped {
		return make([]byte, fs.superblock.blockSize), nil
	}
	return fs.readBlock(dbn)
}
