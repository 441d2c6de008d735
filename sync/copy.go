// Package sync copies regular files between a host filesystem (any io/fs.FS)
// and a flat image filesystem, preserving contents. The image filesystem has
// no directories, so only files at the root of the source are copied.
package sync

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/blockfs/go-blockfs/filesystem"
)

var log = logrus.WithField("package", "sync")

// excludedPaths these are excluded from any copy
var excludedPaths = map[string]bool{
	"lost+found":                true,
	".DS_Store":                 true,
	"System Volume Information": true,
}

// CopyIn copies every regular file at the root of src into dst, overwriting
// files of the same name. Directories and excluded names are skipped with a
// warning. Returns the number of files copied.
func CopyIn(src fs.FS, dst filesystem.FileSystem) (int, error) {
	entries, err := fs.ReadDir(src, ".")
	if err != nil {
		return 0, fmt.Errorf("read source dir: %w", err)
	}

	var count int
	for _, entry := range entries {
		name := entry.Name()
		if excludedPaths[name] {
			continue
		}
		if entry.IsDir() {
			log.WithField("name", name).Warn("skipping directory, destination filesystem is flat")
			continue
		}
		if err := copyFileIn(src, dst, name); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func copyFileIn(src fs.FS, dst filesystem.FileSystem, name string) error {
	in, err := src.Open(name)
	if err != nil {
		return fmt.Errorf("open source %s: %w", name, err)
	}
	defer in.Close()

	out, err := dst.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("create destination %s: %w", name, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return nil
}

// CopyOut copies every file of src into the host directory dstDir,
// overwriting files of the same name. Returns the number of files copied.
func CopyOut(src filesystem.FileSystem, dstDir string) (int, error) {
	infos, err := src.ReadDir("/")
	if err != nil {
		return 0, fmt.Errorf("read image dir: %w", err)
	}

	var count int
	for _, info := range infos {
		if err := copyFileOut(src, dstDir, info.Name()); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func copyFileOut(src filesystem.FileSystem, dstDir, name string) error {
	in, err := src.OpenFile(name, os.O_RDONLY)
	if err != nil {
		return fmt.Errorf("open image file %s: %w", name, err)
	}
	defer in.Close()

	out, err := os.Create(filepath.Join(dstDir, name))
	if err != nil {
		return fmt.Errorf("create host file %s: %w", name, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return nil
}
