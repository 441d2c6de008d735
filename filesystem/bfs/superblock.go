package bfs

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// "BFS1" little-endian
	magic   uint32 = 0x31534642
	version uint16 = 1

	// serialized superblock footprint; always fits the first 512 bytes,
	// the minimum block size
	superblockSize = 112

	maxLabelLength = 32
)

// superblock block 0 of the filesystem: geometry, region offsets, identity
type superblock struct {
	blockSize        uint32
	blockCount       uint32
	inodeCount       uint32
	inodeTableStart  uint32
	inodeTableBlocks uint32
	dirStart         uint32
	dirBlocks        uint32
	bitmapStart      uint32
	bitmapBlocks     uint32
	dataStart        uint32
	volumeUUID       uuid.UUID
	label            string
	formattedAt      time.Time
	lastMountAt      time.Time
}

func (sb *superblock) equal(a *superblock) bool {
	if (sb == nil) != (a == nil) {
		return false
	}
	if sb == nil {
		return true
	}
	return sb.blockSize == a.blockSize &&
		sb.blockCount == a.blockCount &&
		sb.inodeCount == a.inodeCount &&
		sb.inodeTableStart == a.inodeTableStart &&
		sb.inodeTableBlocks == a.inodeTableBlocks &&
		sb.dirStart == a.dirStart &&
		sb.dirBlocks == a.dirBlocks &&
		sb.bitmapStart == a.bitmapStart &&
		sb.bitmapBlocks == a.bitmapBlocks &&
		sb.dataStart == a.dataStart &&
		sb.volumeUUID == a.volumeUUID &&
		sb.label == a.label &&
		sb.formattedAt.Unix() == a.formattedAt.Unix() &&
		sb.lastMountAt.Unix() == a.lastMountAt.Unix()
}

// toBytes serializes the superblock into a full block, ready to be written
// to disk as block 0
func (sb *superblock) toBytes() []byte {
	b := make([]byte, sb.blockSize)
	binary.LittleEndian.PutUint32(b[0:4], magic)
	binary.LittleEndian.PutUint16(b[4:6], version)
	binary.LittleEndian.PutUint32(b[8:12], sb.blockSize)
	binary.LittleEndian.PutUint32(b[12:16], sb.blockCount)
	binary.LittleEndian.PutUint32(b[16:20], sb.inodeCount)
	binary.LittleEndian.PutUint32(b[20:24], sb.inodeTableStart)
	binary.LittleEndian.PutUint32(b[24:28], sb.inodeTableBlocks)
	binary.LittleEndian.PutUint32(b[28:32], sb.dirStart)
	binary.LittleEndian.PutUint32(b[32:36], sb.dirBlocks)
	binary.LittleEndian.PutUint32(b[36:40], sb.bitmapStart)
	binary.LittleEndian.PutUint32(b[40:44], sb.bitmapBlocks)
	binary.LittleEndian.PutUint32(b[44:48], sb.dataStart)
	copy(b[48:64], sb.volumeUUID[:])
	copy(b[64:96], sb.label)
	binary.LittleEndian.PutUint64(b[96:104], uint64(sb.formattedAt.Unix()))
	binary.LittleEndian.PutUint64(b[104:112], uint64(sb.lastMountAt.Unix()))
	return b
}

// superblockFromBytes reads a superblock from the given bytes. Needs at
// least the first superblockSize bytes of block 0.
func superblockFromBytes(b []byte) (*superblock, error) {
	if len(b) < superblockSize {
		return nil, fmt.Errorf("superblock requires %d bytes, received %d", superblockSize, len(b))
	}
	if m := binary.LittleEndian.Uint32(b[0:4]); m != magic {
		return nil, ErrNotBFS
	}
	if v := binary.LittleEndian.Uint16(b[4:6]); v != version {
		return nil, fmt.Errorf("unsupported bfs version %d", v)
	}
	sb := superblock{
		blockSize:        binary.LittleEndian.Uint32(b[8:12]),
		blockCount:       binary.LittleEndian.Uint32(b[12:16]),
		inodeCount:       binary.LittleEndian.Uint32(b[16:20]),
		inodeTableStart:  binary.LittleEndian.Uint32(b[20:24]),
		inodeTableBlocks: binary.LittleEndian.Uint32(b[24:28]),
		dirStart:         binary.LittleEndian.Uint32(b[28:32]),
		dirBlocks:        binary.LittleEndian.Uint32(b[32:36]),
		bitmapStart:      binary.LittleEndian.Uint32(b[36:40]),
		bitmapBlocks:     binary.LittleEndian.Uint32(b[40:44]),
		dataStart:        binary.LittleEndian.Uint32(b[44:48]),
		label:            strings.TrimRight(string(b[64:96]), "\x00"),
		formattedAt:      time.Unix(int64(binary.LittleEndian.Uint64(b[96:104])), 0).UTC(),
		lastMountAt:      time.Unix(int64(binary.LittleEndian.Uint64(b[104:112])), 0).UTC(),
	}
	copy(sb.volumeUUID[:], b[48:64])
	if sb.blockSize < MinBlockSize || sb.blockSize > MaxBlockSize || sb.blockSize&(sb.blockSize-1) != 0 {
		return nil, fmt.Errorf("superblock has invalid block size %d", sb.blockSize)
	}
	return &sb, nil
}
