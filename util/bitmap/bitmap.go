// Package bitmap implements the block allocation bitmap used for the
// filesystem free list: one bit per disk block, a set bit means in use.
package bitmap

import "fmt"

// Bitmap is a structure holding an allocation bitmap
type Bitmap struct {
	bits []byte
}

// New creates a bitmap that can address nBits blocks, all initially free.
// The underlying storage is rounded up to whole bytes.
func New(nBits int) *Bitmap {
	if nBits < 0 {
		nBits = 0
	}
	return &Bitmap{
		bits: make([]byte, (nBits+7)/8),
	}
}

// FromBytes create a bitmap from its on-disk bytes
func FromBytes(b []byte) *Bitmap {
	bits := make([]byte, len(b))
	copy(bits, b)
	return &Bitmap{bits: bits}
}

// ToBytes returns the raw bytes underlying the bitmap, ready to be written
// to disk
func (bm *Bitmap) ToBytes() []byte {
	b := make([]byte, len(bm.bits))
	copy(b, bm.bits)
	return b
}

// IsSet check if a specific bit location is set
func (bm *Bitmap) IsSet(location int) (bool, error) {
	byteNumber, bitNumber, err := bm.findBit(location)
	if err != nil {
		return false, err
	}
	mask := byte(0x1) << bitNumber
	return bm.bits[byteNumber]&mask == mask, nil
}

// Set a specific bit location
func (bm *Bitmap) Set(location int) error {
	byteNumber, bitNumber, err := bm.findBit(location)
	if err != nil {
		return err
	}
	bm.bits[byteNumber] |= byte(0x1) << bitNumber
	return nil
}

// Clear a specific bit location
func (bm *Bitmap) Clear(location int) error {
	byteNumber, bitNumber, err := bm.findBit(location)
	if err != nil {
		return err
	}
	bm.bits[byteNumber] &^= byte(0x1) << bitNumber
	return nil
}

// FirstFree returns the first free bit at or after start, or -1 if the
// bitmap is full.
func (bm *Bitmap) FirstFree(start int) int {
	if start < 0 {
		start = 0
	}
	totalBits := len(bm.bits) * 8
	for i := start; i < totalBits; i++ {
		b := bm.bits[i/8]
		if b == 0xff {
			// skip to the end of this byte
			i |= 7
			continue
		}
		if b&(byte(0x1)<<uint8(i%8)) == 0 {
			return i
		}
	}
	return -1
}

// CountFree returns the number of free bits in the bitmap
func (bm *Bitmap) CountFree() int {
	var count int
	for _, b := range bm.bits {
		for j := uint8(0); j < 8; j++ {
			if b&(byte(0x1)<<j) == 0 {
				count++
			}
		}
	}
	return count
}

func (bm *Bitmap) findBit(location int) (byteNumber int, bitNumber uint8, err error) {
	if location < 0 {
		return 0, 0, fmt.Errorf("location %d is negative", location)
	}
	byteNumber, bitNumber = location/8, uint8(location%8)
	if byteNumber >= len(bm.bits) {
		return 0, 0, fmt.Errorf("location %d is not in %d size bitmap", location, len(bm.bits)*8)
	}
	return byteNumber, bitNumber, nil
}
