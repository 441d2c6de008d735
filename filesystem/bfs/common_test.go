package bfs

import (
	"io"
	"testing"

	"github.com/blockfs/go-blockfs/testhelper"
)

const (
	testImageSize = 1 * 1024 * 1024
	testBlockSize = 512
)

// newMemoryBackend builds a backend.Storage over an in-memory buffer so the
// filesystem can be exercised without touching the host disk
func newMemoryBackend(size int64) (*testhelper.FileImpl, []byte) {
	buf := make([]byte, size)
	impl := &testhelper.FileImpl{
		Reader: func(b []byte, offset int64) (int, error) {
			if offset >= int64(len(buf)) {
				return 0, io.EOF
			}
			n := copy(b, buf[offset:])
			if n < len(b) {
				return n, io.EOF
			}
			return n, nil
		},
		Writer: func(b []byte, offset int64) (int, error) {
			if offset+int64(len(b)) > int64(len(buf)) {
				return 0, io.ErrShortWrite
			}
			return copy(buf[offset:], b), nil
		},
	}
	return impl, buf
}

func newTestFS(t *testing.T) *FileSystem {
	t.Helper()
	b, _ := newMemoryBackend(testImageSize)
	fs, err := Create(b, testImageSize, 0, testBlockSize, nil)
	if err != nil {
		t.Fatalf("creating filesystem failed: %v", err)
	}
	return fs
}
