// Package vfattesting provides in-memory disk image helpers shared by the
// test suites of every other package in this module.
package vfattesting

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/v9k/vfat/blockdev"
)

// BlankImage returns a writable in-memory stream of exactly sectorSize *
// totalSectors bytes, zero-filled, wrapped for use as blockdev.Device's
// backing store.
func BlankImage(t *testing.T, sectorSize, totalSectors int) io.ReadWriteSeeker {
	t.Helper()
	require.Greater(t, sectorSize, 0)
	require.Greater(t, totalSectors, 0)
	buf := make([]byte, sectorSize*totalSectors)
	return bytesextra.NewReadWriteSeeker(buf)
}

// NewBlankDevice is a convenience wrapper combining BlankImage with
// blockdev.New for tests that don't need direct access to the backing
// buffer.
func NewBlankDevice(t *testing.T, sectorSize, totalSectors int) *blockdev.Device {
	t.Helper()
	return blockdev.New(BlankImage(t, sectorSize, totalSectors), sectorSize)
}

// LoadImage wraps a caller-supplied byte slice (e.g. a fixture read from
// disk) as a blockdev.Device without copying it.
func LoadImage(data []byte, sectorSize int) *blockdev.Device {
	return blockdev.New(bytesextra.NewReadWriteSeeker(data), sectorSize)
}
