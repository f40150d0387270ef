// Package blockdev provides sector-addressed access to the io.ReadWriteSeeker
// backing a disk image, independent of the filesystem format stored on it.
package blockdev

import (
	"io"

	"github.com/v9k/vfat/vfaterr"
)

// Device is a fixed-sector-size block device backed by a stream. Every
// exported read/write operates in whole sectors; byte-level access within
// a sector is the caller's job.
type Device struct {
	stream     io.ReadWriteSeeker
	sectorSize int
	readOnly   bool

	// sectorOffset shifts sector 0 of this Device to sector sectorOffset
	// of the underlying stream, for addressing a partition embedded in a
	// larger image without copying it out.
	sectorOffset int
}

// New wraps stream as a Device with the given sector size.
func New(stream io.ReadWriteSeeker, sectorSize int) *Device {
	return &Device{stream: stream, sectorSize: sectorSize}
}

// NewReadOnly wraps stream as a read-only Device. Write and WriteSectors
// return vfaterr.ErrReadOnly.
func NewReadOnly(stream io.ReadWriteSeeker, sectorSize int) *Device {
	return &Device{stream: stream, sectorSize: sectorSize, readOnly: true}
}

// Slice returns a Device over the same underlying stream whose sector 0 is
// sector sectorOffset of d. Used to address a Victor hard disk partition
// (virtual volume) by its image_slice without copying the image.
func (d *Device) Slice(sectorOffset int) *Device {
	return &Device{
		stream:       d.stream,
		sectorSize:   d.sectorSize,
		readOnly:     d.readOnly,
		sectorOffset: d.sectorOffset + sectorOffset,
	}
}

// SectorSize returns the device's fixed sector size in bytes.
func (d *Device) SectorSize() int {
	return d.sectorSize
}

// ReadOnly reports whether the device rejects writes.
func (d *Device) ReadOnly() bool {
	return d.readOnly
}

// TotalSectors returns the number of whole sectors in the underlying
// stream, determined by seeking to its end.
func (d *Device) TotalSectors() (int, error) {
	size, err := d.stream.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, vfaterr.NewFromError(vfaterr.EIO, err)
	}
	return int(size) / d.sectorSize, nil
}

func (d *Device) seekToSector(sector int) error {
	offset := int64(sector+d.sectorOffset) * int64(d.sectorSize)
	if offset < 0 {
		return vfaterr.NewWithMessage(vfaterr.EINVAL, "negative sector index %d", sector)
	}
	_, err := d.stream.Seek(offset, io.SeekStart)
	if err != nil {
		return vfaterr.NewFromError(vfaterr.EIO, err)
	}
	return nil
}

// ReadSectors reads count sectors starting at sector index first, returning
// exactly count*SectorSize() bytes.
func (d *Device) ReadSectors(first, count int) ([]byte, error) {
	if count < 0 {
		return nil, vfaterr.NewWithMessage(vfaterr.EINVAL, "negative sector count %d", count)
	}
	if err := d.seekToSector(first); err != nil {
		return nil, err
	}
	buf := make([]byte, count*d.sectorSize)
	if _, err := io.ReadFull(d.stream, buf); err != nil {
		return nil, vfaterr.NewFromError(vfaterr.EIO, err).WithMessage(
			"reading %d sector(s) starting at %d: %v", count, first, err)
	}
	return buf, nil
}

// ReadSector reads a single sector.
func (d *Device) ReadSector(sector int) ([]byte, error) {
	return d.ReadSectors(sector, 1)
}

// WriteSectors writes data to count sectors starting at sector index first.
// len(data) must be an exact multiple of SectorSize().
func (d *Device) WriteSectors(first int, data []byte) error {
	if d.readOnly {
		return vfaterr.ErrReadOnly
	}
	if len(data)%d.sectorSize != 0 {
		return vfaterr.NewWithMessage(vfaterr.EINVAL,
			"write of %d bytes is not a multiple of sector size %d", len(data), d.sectorSize)
	}
	if err := d.seekToSector(first); err != nil {
		return err
	}
	if _, err := d.stream.Write(data); err != nil {
		return vfaterr.NewFromError(vfaterr.EIO, err)
	}
	return nil
}

// WriteSector writes a single sector. len(data) must equal SectorSize().
func (d *Device) WriteSector(sector int, data []byte) error {
	if len(data) != d.sectorSize {
		return vfaterr.NewWithMessage(vfaterr.EINVAL,
			"sector write of %d bytes, want exactly %d", len(data), d.sectorSize)
	}
	return d.WriteSectors(sector, data)
}

// Sync flushes the underlying stream if it supports it.
func (d *Device) Sync() error {
	if syncer, ok := d.stream.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return vfaterr.NewFromError(vfaterr.EIO, err)
		}
	}
	return nil
}
