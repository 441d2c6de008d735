package blockfs

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	blksszGet = 0x1268
	blkbszGet = 0x80081270
)

// deviceSize reads the size in bytes of a block device from the kernel
func deviceSize(f *os.File) (int64, error) {
	devSizePath := fmt.Sprintf("/sys/class/block/%s/size", path.Base(f.Name()))
	sizeBytes, err := os.ReadFile(devSizePath)
	if err != nil {
		return 0, fmt.Errorf("could not read device size from kernel: %w", err)
	}
	// the kernel reports the count of 512-byte sectors
	sizeString := strings.TrimSuffix(string(sizeBytes), "\n")
	sectors, err := strconv.ParseInt(sizeString, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid device size %s: %w", sizeString, err)
	}
	return sectors * 512, nil
}

// sectorSizes gets the logical and physical sector sizes via ioctl
func sectorSizes(f *os.File) (logical, physical int64, err error) {
	fd := int(f.Fd())
	logicalSectorSize, err := unix.IoctlGetInt(fd, blksszGet)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get device logical sector size: %w", err)
	}
	physicalSectorSize, err := unix.IoctlGetInt(fd, blkbszGet)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get device physical sector size: %w", err)
	}
	return int64(logicalSectorSize), int64(physicalSectorSize), nil
}
