// Package converter adapts a filesystem.FileSystem to the standard library
// io/fs.FS interface, so a mounted image can be walked, globbed and read
// with stdlib tooling.
package converter

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/blockfs/go-blockfs/filesystem"
)

// WrapFS returns a read-only fs.FS view of the given filesystem. The
// wrapped filesystem is flat: every file lives at the root.
func WrapFS(f filesystem.FileSystem) fs.FS {
	return &fsCompatible{fs: f}
}

type fsCompatible struct {
	fs filesystem.FileSystem
}

var (
	_ fs.FS        = (*fsCompatible)(nil)
	_ fs.ReadDirFS = (*fsCompatible)(nil)
)

func (c *fsCompatible) Open(name string) (fs.File, error) {
	if name == "." {
		return &rootDir{c: c}, nil
	}
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	stat, err := c.stat(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	file, err := c.fs.OpenFile(name, os.O_RDONLY)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &fsFileWrapper{File: file, stat: stat}, nil
}

func (c *fsCompatible) ReadDir(name string) ([]fs.DirEntry, error) {
	if name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	infos, err := c.fs.ReadDir("/")
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, fs.FileInfoToDirEntry(info))
	}
	// io/fs requires directory entries in name order
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (c *fsCompatible) stat(name string) (fs.FileInfo, error) {
	infos, err := c.fs.ReadDir("/")
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Name() == name {
			return info, nil
		}
	}
	return nil, fs.ErrNotExist
}

// fsFileWrapper a file plus the stat information io/fs callers expect
type fsFileWrapper struct {
	filesystem.File
	stat fs.FileInfo
}

func (f *fsFileWrapper) Stat() (fs.FileInfo, error) {
	return f.stat, nil
}

// rootDir the single directory of a flat filesystem
type rootDir struct {
	c      *fsCompatible
	offset int
}

var _ fs.ReadDirFile = (*rootDir)(nil)

func (d *rootDir) Stat() (fs.FileInfo, error) { return dirInfo{}, nil }
func (d *rootDir) Close() error               { return nil }

func (d *rootDir) Read([]byte) (int, error) {
	return 0, fmt.Errorf("is a directory")
}

func (d *rootDir) ReadDir(n int) ([]fs.DirEntry, error) {
	entries, err := d.c.ReadDir(".")
	if err != nil {
		return nil, err
	}
	if d.offset >= len(entries) {
		if n <= 0 {
			return nil, nil
		}
		return nil, io.EOF
	}
	entries = entries[d.offset:]
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	d.offset += len(entries)
	return entries, nil
}

type dirInfo struct{}

func (dirInfo) Name() string       { return "." }
func (dirInfo) Size() int64        { return 0 }
func (dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o755 }
func (dirInfo) ModTime() time.Time { return time.Time{} }
func (dirInfo) IsDir() bool        { return true }
func (dirInfo) Sys() interface{}   { return nil }
