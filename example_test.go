package blockfs_test

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	blockfs "github.com/blockfs/go-blockfs"
	"github.com/blockfs/go-blockfs/disk"
)

// Create an image, write a file into it, then read it back through a fresh
// open of the same image.
func Example() {
	dir, err := os.MkdirTemp("", "blockfs-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "example.img")

	d, err := blockfs.Create(path, 10*1024*1024)
	if err != nil {
		log.Fatal(err)
	}
	fs, err := d.CreateFilesystem(disk.FilesystemSpec{})
	if err != nil {
		log.Fatal(err)
	}
	f, err := fs.OpenFile("hello.txt", os.O_RDWR|os.O_CREATE)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := f.Write([]byte("HELLOWORLD")); err != nil {
		log.Fatal(err)
	}
	if err := fs.Close(); err != nil {
		log.Fatal(err)
	}

	d, err = blockfs.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	fs, err = d.GetFilesystem(0)
	if err != nil {
		log.Fatal(err)
	}
	f, err = fs.OpenFile("hello.txt", os.O_RDONLY)
	if err != nil {
		log.Fatal(err)
	}
	b, err := io.ReadAll(f)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
	// Output: HELLOWORLD
}
