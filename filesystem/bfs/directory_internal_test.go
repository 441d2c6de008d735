package bfs

import (
	"errors"
	"testing"

	"github.com/go-test/deep"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"hello.txt", true},
		{"a", true},
		{"abcdefghijklmnopqrstuvwxyz0", true}, // 27 bytes, the maximum
		{"", false},
		{"abcdefghijklmnopqrstuvwxyz01", false}, // 28 bytes, one too many
		{"dir/file", false},
		{"bad\x00name", false},
	}
	for _, tt := range tests {
		err := validateName(tt.name)
		if tt.ok && err != nil {
			t.Errorf("%q: unexpected error: %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%q: expected error, got none", tt.name)
		}
	}
}

func TestDirectoryEntryToBytes(t *testing.T) {
	de := &directoryEntry{name: "hello", inum: 7}
	b := de.toBytes()
	if len(b) != dirEntrySize {
		t.Fatalf("serialized entry is %d bytes, expected %d", len(b), dirEntrySize)
	}
	if string(b[0:5]) != "hello" || b[5] != 0 {
		t.Errorf("name not NUL-terminated in slot: % x", b[0:nameLength])
	}
	if b[nameLength] != 7 {
		t.Errorf("inum not serialized: % x", b[nameLength:])
	}
}

func TestLookupAndCreate(t *testing.T) {
	fs := newTestFS(t)

	if _, err := fs.lookupName("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}

	names := []string{"alpha", "beta", "gamma"}
	for _, name := range names {
		if _, err := fs.createName(name); err != nil {
			t.Fatalf("error creating %s: %v", name, err)
		}
	}

	entries, err := fs.readDirectory()
	if err != nil {
		t.Fatalf("error reading directory: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.name)
	}
	if diff := deep.Equal(names, got); diff != nil {
		t.Errorf("directory listing mismatch: %v", diff)
	}

	e, err := fs.lookupName("beta")
	if err != nil {
		t.Fatalf("error looking up beta: %v", err)
	}
	in, err := fs.readInode(e.inum)
	if err != nil {
		t.Fatalf("error reading inode %d: %v", e.inum, err)
	}
	if in.state != inodeInUse || in.size != 0 {
		t.Errorf("fresh file inode is state %d size %d, expected in-use and empty", in.state, in.size)
	}
}

func TestTooManyFiles(t *testing.T) {
	fs := newTestFS(t)
	for i := uint32(0); i < fs.superblock.inodeCount; i++ {
		name := string(rune('a'+i/26)) + string(rune('a'+i%26))
		if _, err := fs.createName(name); err != nil {
			t.Fatalf("error creating file %d: %v", i, err)
		}
	}
	if _, err := fs.createName("onemore"); !errors.Is(err, ErrTooManyFiles) {
		t.Errorf("expected ErrTooManyFiles, got: %v", err)
	}
}
