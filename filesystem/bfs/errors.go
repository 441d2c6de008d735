package bfs

import "errors"

var (
	// ErrNotFound no file with the requested name exists in the directory.
	// This is the only lookup failure callers are expected to branch on.
	ErrNotFound = errors.New("file not found")
	// ErrBadCursor a seek was requested with a negative offset argument
	ErrBadCursor = errors.New("negative seek offset")
	// ErrBadWhence a seek was requested with an unrecognized whence
	ErrBadWhence = errors.New("unrecognized seek whence")
	// ErrFileTooLarge the operation would grow a file past the maximum
	// size addressable by its block map
	ErrFileTooLarge = errors.New("file exceeds maximum size")
	// ErrNoSpace the free list has no blocks left
	ErrNoSpace = errors.New("no free blocks available")
	// ErrTooManyFiles the inode table or directory is full
	ErrTooManyFiles = errors.New("no free inodes or directory entries")
	// ErrNotBFS the superblock magic did not match on mount
	ErrNotBFS = errors.New("not a bfs filesystem")
)
