//go:build !linux

package blockfs

import (
	"errors"
	"os"
)

// block device geometry is only discoverable on linux; images still work
// everywhere

func deviceSize(*os.File) (int64, error) {
	return 0, errors.New("block device size detection not supported on this platform")
}

func sectorSizes(*os.File) (logical, physical int64, err error) {
	return defaultBlocksize, defaultBlocksize, nil
}
