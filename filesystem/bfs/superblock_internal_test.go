package bfs

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func testSuperblock() *superblock {
	u := uuid.MustParse("f81d4fae-7dec-11d0-a765-00a0c91e6bf6")
	return &superblock{
		blockSize:        512,
		blockCount:       2048,
		inodeCount:       64,
		inodeTableStart:  1,
		inodeTableBlocks: 8,
		dirStart:         9,
		dirBlocks:        4,
		bitmapStart:      13,
		bitmapBlocks:     1,
		dataStart:        14,
		volumeUUID:       u,
		label:            "testvolume",
		formattedAt:      time.Unix(1000000000, 0).UTC(),
		lastMountAt:      time.Unix(1000000100, 0).UTC(),
	}
}

func TestSuperblockRoundTrip(t *testing.T) {
	sb := testSuperblock()
	b := sb.toBytes()
	if len(b) != int(sb.blockSize) {
		t.Fatalf("serialized superblock is %d bytes, expected a full %d byte block", len(b), sb.blockSize)
	}
	parsed, err := superblockFromBytes(b)
	if err != nil {
		t.Fatalf("error parsing superblock: %v", err)
	}
	if diff := cmp.Diff(sb, parsed, cmp.AllowUnexported(superblock{})); diff != "" {
		t.Errorf("superblock mismatch (-want +got):\n%s", diff)
	}
	if !sb.equal(parsed) {
		t.Errorf("superblock.equal returned false for identical superblocks")
	}
}

func TestSuperblockBadMagic(t *testing.T) {
	b := testSuperblock().toBytes()
	b[0] ^= 0xff
	if _, err := superblockFromBytes(b); !errors.Is(err, ErrNotBFS) {
		t.Errorf("expected ErrNotBFS, got: %v", err)
	}
}

func TestSuperblockShortBuffer(t *testing.T) {
	if _, err := superblockFromBytes(make([]byte, superblockSize-1)); err == nil {
		t.Errorf("expected error for short buffer")
	}
}

func TestSuperblockBadBlockSize(t *testing.T) {
	tests := []uint32{0, 256, 513, 1000, 65536}
	for _, bs := range tests {
		sb := testSuperblock()
		sb.blockSize = 512 // keep toBytes happy
		b := sb.toBytes()
		// overwrite the block size field directly
		b[8] = byte(bs)
		b[9] = byte(bs >> 8)
		b[10] = byte(bs >> 16)
		b[11] = byte(bs >> 24)
		if _, err := superblockFromBytes(b); err == nil {
			t.Errorf("block size %d: expected error, got none", bs)
		}
	}
}
