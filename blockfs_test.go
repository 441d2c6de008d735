package blockfs_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	blockfs "github.com/blockfs/go-blockfs"
	"github.com/blockfs/go-blockfs/disk"
	"github.com/blockfs/go-blockfs/filesystem"
)

const testImageSize = 10 * 1024 * 1024

func TestCreateOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "create.img")
	d, err := blockfs.Create(path, testImageSize)
	if err != nil {
		t.Fatalf("error creating disk: %v", err)
	}
	if d.Type != disk.File || d.Size != testImageSize {
		t.Errorf("disk is type %v size %d, expected a file of %d bytes", d.Type, d.Size, testImageSize)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("error closing disk: %v", err)
	}

	// a second create of the same path must fail
	if _, err := blockfs.Create(path, testImageSize); err == nil {
		t.Errorf("expected error recreating an existing image")
	}

	reopened, err := blockfs.Open(path)
	if err != nil {
		t.Fatalf("error reopening image: %v", err)
	}
	if reopened.Size != testImageSize {
		t.Errorf("reopened disk has size %d, expected %d", reopened.Size, testImageSize)
	}
}

func TestOpenNonexistent(t *testing.T) {
	if _, err := blockfs.Open(filepath.Join(t.TempDir(), "missing.img")); err == nil {
		t.Errorf("expected error opening a nonexistent path")
	}
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.img")
	d, err := blockfs.Create(path, testImageSize)
	if err != nil {
		t.Fatalf("error creating disk: %v", err)
	}
	if _, err := d.CreateFilesystem(disk.FilesystemSpec{}); err != nil {
		t.Fatalf("error creating filesystem: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("error closing disk: %v", err)
	}

	rod, err := blockfs.OpenReadOnly(path)
	if err != nil {
		t.Fatalf("error reopening read-only: %v", err)
	}
	fs, err := rod.GetFilesystem(0)
	if err != nil {
		t.Fatalf("error reading filesystem: %v", err)
	}
	if _, err := fs.OpenFile("newfile", os.O_RDWR|os.O_CREATE); err == nil {
		t.Errorf("expected error creating a file on a read-only disk")
	}
}

func TestFullLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "life.img")
	d, err := blockfs.Create(path, testImageSize)
	if err != nil {
		t.Fatalf("error creating disk: %v", err)
	}
	fs, err := d.CreateFilesystem(disk.FilesystemSpec{})
	if err != nil {
		t.Fatalf("error creating filesystem: %v", err)
	}
	f, err := fs.OpenFile("hello.txt", os.O_RDWR|os.O_CREATE)
	if err != nil {
		t.Fatalf("error creating file: %v", err)
	}
	if _, err := f.Write([]byte("HELLOWORLD")); err != nil {
		t.Fatalf("error writing file: %v", err)
	}
	if err := fs.Close(); err != nil {
		t.Fatalf("error closing filesystem: %v", err)
	}

	// everything must be on disk now
	reopened, err := blockfs.Open(path)
	if err != nil {
		t.Fatalf("error reopening image: %v", err)
	}
	refs, err := reopened.GetFilesystem(0)
	if err != nil {
		t.Fatalf("error reading filesystem: %v", err)
	}
	if refs.Type() != filesystem.TypeBFS {
		t.Errorf("filesystem has type %v, expected TypeBFS", refs.Type())
	}
	rf, err := refs.OpenFile("hello.txt", os.O_RDONLY)
	if err != nil {
		t.Fatalf("error opening file: %v", err)
	}
	b := make([]byte, 10)
	if n, err := rf.Read(b); n != 10 || (err != nil && err != io.EOF) {
		t.Fatalf("read returned (%d, %v)", n, err)
	}
	if string(b) != "HELLOWORLD" {
		t.Errorf("file content is %q, expected %q", b, "HELLOWORLD")
	}
}
