package bfs

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInodeRoundTrip(t *testing.T) {
	in := &inode{
		number:   5,
		state:    inodeInUse,
		size:     1234,
		direct:   [directBlocks]uint32{14, 15, 0, 17, 0, 0, 20, 0},
		indirect: 21,
	}
	b := in.toBytes()
	if len(b) != inodeSize {
		t.Fatalf("serialized inode is %d bytes, expected %d", len(b), inodeSize)
	}
	parsed, err := inodeFromBytes(b, in.number)
	if err != nil {
		t.Fatalf("error parsing inode: %v", err)
	}
	if diff := cmp.Diff(in, parsed, cmp.AllowUnexported(inode{})); diff != "" {
		t.Errorf("inode mismatch (-want +got):\n%s", diff)
	}
	if !in.equal(parsed) {
		t.Errorf("inode.equal returned false for identical inodes")
	}
}

func TestReadWriteInode(t *testing.T) {
	fs := newTestFS(t)
	in, err := fs.readInode(3)
	if err != nil {
		t.Fatalf("error reading fresh inode: %v", err)
	}
	if in.state != inodeFree {
		t.Fatalf("fresh inode is not free")
	}
	in.state = inodeInUse
	in.size = 99
	in.direct[0] = fs.superblock.dataStart
	if err := fs.writeInode(in); err != nil {
		t.Fatalf("error writing inode: %v", err)
	}
	back, err := fs.readInode(3)
	if err != nil {
		t.Fatalf("error re-reading inode: %v", err)
	}
	if !in.equal(back) {
		t.Errorf("inode did not round-trip through the inode table: %+v vs %+v", in, back)
	}

	if _, err := fs.readInode(fs.superblock.inodeCount); err == nil {
		t.Errorf("expected error reading out-of-range inode")
	}
}

func TestResolveAndAllocate(t *testing.T) {
	fs := newTestFS(t)
	in, err := fs.readInode(0)
	if err != nil {
		t.Fatalf("error reading inode: %v", err)
	}

	// nothing mapped yet
	for _, fbn := range []uint32{0, directBlocks - 1, directBlocks, directBlocks + 5} {
		dbn, err := fs.resolveBlock(in, fbn)
		if err != nil {
			t.Fatalf("fbn %d: unexpected resolve error: %v", fbn, err)
		}
		if dbn != dbnUnmapped {
			t.Fatalf("fbn %d: expected unmapped, got dbn %d", fbn, dbn)
		}
	}

	// direct allocation
	dbn, err := fs.allocateBlock(in, 0)
	if err != nil {
		t.Fatalf("error allocating direct block: %v", err)
	}
	if dbn < fs.superblock.dataStart {
		t.Fatalf("allocated dbn %d inside metadata region ending at %d", dbn, fs.superblock.dataStart)
	}
	if used, _ := fs.bitmap.IsSet(int(dbn)); !used {
		t.Errorf("allocated dbn %d not marked in free list", dbn)
	}

	// indirect allocation
	far := uint32(directBlocks + 3)
	farDbn, err := fs.allocateBlock(in, far)
	if err != nil {
		t.Fatalf("error allocating indirect-mapped block: %v", err)
	}
	if in.indirect == dbnUnmapped {
		t.Fatalf("indirect block not allocated")
	}

	// both mappings must survive a reload from disk
	reloaded, err := fs.readInode(0)
	if err != nil {
		t.Fatalf("error reloading inode: %v", err)
	}
	got, err := fs.resolveBlock(reloaded, 0)
	if err != nil || got != dbn {
		t.Errorf("direct mapping did not persist: got %d err %v, expected %d", got, err, dbn)
	}
	got, err = fs.resolveBlock(reloaded, far)
	if err != nil || got != farDbn {
		t.Errorf("indirect mapping did not persist: got %d err %v, expected %d", got, err, farDbn)
	}

	// beyond the addressable range
	if _, err := fs.resolveBlock(in, fs.maxFileBlocks()); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got: %v", err)
	}
}

func TestTruncateInode(t *testing.T) {
	fs := newTestFS(t)
	in, err := fs.readInode(0)
	if err != nil {
		t.Fatalf("error reading inode: %v", err)
	}
	freeBefore := fs.bitmap.CountFree()

	for _, fbn := range []uint32{0, 1, directBlocks + 1} {
		if _, err := fs.allocateBlock(in, fbn); err != nil {
			t.Fatalf("error allocating fbn %d: %v", fbn, err)
		}
	}
	in.size = 4000
	if err := fs.writeInode(in); err != nil {
		t.Fatalf("error writing inode: %v", err)
	}

	if err := fs.truncateInode(in); err != nil {
		t.Fatalf("error truncating inode: %v", err)
	}
	if in.size != 0 {
		t.Errorf("size after truncate is %d, expected 0", in.size)
	}
	if freeAfter := fs.bitmap.CountFree(); freeAfter != freeBefore {
		t.Errorf("free list has %d free blocks after truncate, expected %d", freeAfter, freeBefore)
	}
	for fbn := uint32(0); fbn < directBlocks+2; fbn++ {
		dbn, err := fs.resolveBlock(in, fbn)
		if err != nil {
			t.Fatalf("fbn %d: unexpected resolve error: %v", fbn, err)
		}
		if dbn != dbnUnmapped {
			t.Errorf("fbn %d still mapped to dbn %d after truncate", fbn, dbn)
		}
	}
}
