package volume

import (
	"encoding/binary"
	"strings"

	"github.com/v9k/vfat/blockdev"
	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
)

// VictorFloppySides selects single- or double-sided geometry when
// formatting a new Victor 9000 floppy image.
type VictorFloppySides int

const (
	VictorSingleSided VictorFloppySides = iota
	VictorDoubleSided
)

// IBMFloppyFormat names one of the four standard IBM PC FAT12 floppy
// capacities this engine knows how to format.
type IBMFloppyFormat int

const (
	IBM360K IBMFloppyFormat = iota
	IBM720K
	IBM12M
	IBM144M
)

type ibmParams struct {
	totalSectors      int
	sectorsPerTrack   int
	heads             int
	sectorsPerCluster int
	reservedSectors   int
	fatCopies         int
	fatSectors        int
	rootEntries       int
	mediaDescriptor   byte
}

var ibmFloppyParams = map[IBMFloppyFormat]ibmParams{
	IBM360K: {totalSectors: 720, sectorsPerTrack: 9, heads: 2, sectorsPerCluster: 2, reservedSectors: 1, fatCopies: 2, fatSectors: 2, rootEntries: 112, mediaDescriptor: 0xFD},
	IBM720K: {totalSectors: 1440, sectorsPerTrack: 9, heads: 2, sectorsPerCluster: 2, reservedSectors: 1, fatCopies: 2, fatSectors: 3, rootEntries: 112, mediaDescriptor: 0xF9},
	IBM12M:  {totalSectors: 2400, sectorsPerTrack: 15, heads: 2, sectorsPerCluster: 1, reservedSectors: 1, fatCopies: 2, fatSectors: 7, rootEntries: 224, mediaDescriptor: 0xF9},
	IBM144M: {totalSectors: 2880, sectorsPerTrack: 18, heads: 2, sectorsPerCluster: 1, reservedSectors: 1, fatCopies: 2, fatSectors: 9, rootEntries: 224, mediaDescriptor: 0xF0},
}

// emptyFAT12 returns a freshly initialized FAT region with the media
// descriptor in entry 0 and the end-of-chain marker in entry 1, the only
// two entries a blank FAT12 table is required to set.
func emptyFAT12(totalClusters int, sectorBytes int, media byte) []byte {
	fatBytes := ((totalClusters+2)*3 + 1) / 2
	if fatBytes < sectorBytes {
		fatBytes = sectorBytes
	} else {
		// Round up to a whole number of sectors.
		fatBytes = ((fatBytes + sectorBytes - 1) / sectorBytes) * sectorBytes
	}
	fat := make([]byte, fatBytes)
	fat[0] = media
	fat[1] = 0xFF
	fat[2] = 0xFF
	return fat
}

// fillPatternChunkSectors bounds how much of a fill pass is buffered in
// memory at once; a 1.2MB Victor floppy or a multi-megabyte hard disk
// partition is filled in chunks of this many sectors rather than one
// giant allocation.
const fillPatternChunkSectors = 256

// fillDevice overwrites every sector of device with pattern, the
// whole-image pre-fill create_image performs before laying down the boot
// sector, FAT copies, and root directory on top.
func fillDevice(device *blockdev.Device, pattern byte) error {
	total, err := device.TotalSectors()
	if err != nil {
		return err
	}
	chunk := make([]byte, fillPatternChunkSectors*geometry.SectorSize)
	for i := range chunk {
		chunk[i] = pattern
	}
	for sector := 0; sector < total; sector += fillPatternChunkSectors {
		count := fillPatternChunkSectors
		if sector+count > total {
			count = total - sector
		}
		if err := device.WriteSectors(sector, chunk[:count*geometry.SectorSize]); err != nil {
			return err
		}
	}
	return nil
}

// CreateVictorFloppy formats a blank Victor 9000 floppy image onto
// device, which must already be sized to hold the full image. The whole
// device is first filled with 0xF6 bytes, matching what MS-DOS FORMAT
// leaves behind on an unwritten floppy, before the boot sector, FAT
// copies, and root directory are written on top.
func CreateVictorFloppy(device *blockdev.Device, sides VictorFloppySides, volumeLabel string) error {
	if err := fillDevice(device, 0xF6); err != nil {
		return err
	}

	doubleSided := sides == VictorDoubleSided
	layout := geometry.VictorFloppyLayout(doubleSided, 0)

	boot := make([]byte, geometry.SectorSize)
	boot[0], boot[1], boot[2] = 0xEB, 0x3C, 0x90
	binary.LittleEndian.PutUint16(boot[26:28], geometry.SectorSize)
	binary.LittleEndian.PutUint16(boot[28:30], uint16(layout.DataStart))
	flags := uint16(0)
	if doubleSided {
		flags = 1
	}
	binary.LittleEndian.PutUint16(boot[32:34], flags)
	boot[34] = 0x01
	if err := device.WriteSector(0, boot); err != nil {
		return err
	}

	fatSectorBytes := layout.FATSectors * geometry.SectorSize
	fat := emptyFAT12(layout.TotalClusters, fatSectorBytes, 0xF8)
	if len(fat) > fatSectorBytes {
		fat = fat[:fatSectorBytes]
	}
	for i := 0; i < layout.NumFATCopies; i++ {
		sector := layout.FATStart + i*layout.FATSectors
		padded := make([]byte, fatSectorBytes)
		copy(padded, fat)
		if err := device.WriteSectors(sector, padded); err != nil {
			return err
		}
	}

	root := make([]byte, layout.DirSectors*geometry.SectorSize)
	if volumeLabel != "" {
		entry, err := volumeLabelEntry(volumeLabel, 11)
		if err != nil {
			return err
		}
		copy(root[:32], entry)
	}
	return device.WriteSectors(layout.DirStart, root)
}

// CreateIBMFloppy formats a blank IBM PC FAT12 floppy image onto device.
// The whole device is first filled with zero bytes before the boot
// sector, FAT copies, and root directory are written on top.
func CreateIBMFloppy(device *blockdev.Device, format IBMFloppyFormat, volumeLabel, oemName string) error {
	params, ok := ibmFloppyParams[format]
	if !ok {
		return vfaterr.NewWithMessage(vfaterr.EINVAL, "unknown IBM floppy format %d", format)
	}

	if err := fillDevice(device, 0x00); err != nil {
		return err
	}

	rootDirSectors := (params.rootEntries*geometry.DirEntrySize + geometry.SectorSize - 1) / geometry.SectorSize
	dataStart := params.reservedSectors + params.fatCopies*params.fatSectors + rootDirSectors
	dataSectors := params.totalSectors - dataStart
	totalClusters := dataSectors / params.sectorsPerCluster

	boot := make([]byte, geometry.SectorSize)
	boot[0], boot[1], boot[2] = 0xEB, 0x3C, 0x90
	copy(boot[0x03:0x0B], padToEightASCII(oemName))

	binary.LittleEndian.PutUint16(boot[0x0B:0x0D], geometry.SectorSize)
	boot[0x0D] = byte(params.sectorsPerCluster)
	binary.LittleEndian.PutUint16(boot[0x0E:0x10], uint16(params.reservedSectors))
	boot[0x10] = byte(params.fatCopies)
	binary.LittleEndian.PutUint16(boot[0x11:0x13], uint16(params.rootEntries))
	binary.LittleEndian.PutUint16(boot[0x13:0x15], uint16(params.totalSectors))
	boot[0x15] = params.mediaDescriptor
	binary.LittleEndian.PutUint16(boot[0x16:0x18], uint16(params.fatSectors))
	binary.LittleEndian.PutUint16(boot[0x18:0x1A], uint16(params.sectorsPerTrack))
	binary.LittleEndian.PutUint16(boot[0x1A:0x1C], uint16(params.heads))

	boot[0x24] = 0x00
	boot[0x25] = 0x00
	boot[0x26] = 0x29
	binary.LittleEndian.PutUint32(boot[0x27:0x2B], 0x12345678)
	copy(boot[0x2B:0x36], []byte("NO NAME    "))
	copy(boot[0x36:0x3E], []byte("FAT12   "))
	binary.LittleEndian.PutUint16(boot[0x1FE:0x200], 0xAA55)

	if err := device.WriteSector(0, boot); err != nil {
		return err
	}

	fatSectorBytes := params.fatSectors * geometry.SectorSize
	fat := emptyFAT12(totalClusters, fatSectorBytes, params.mediaDescriptor)
	padded := make([]byte, fatSectorBytes)
	copy(padded, fat)
	fatStart := params.reservedSectors
	for i := 0; i < params.fatCopies; i++ {
		sector := fatStart + i*params.fatSectors
		if err := device.WriteSectors(sector, padded); err != nil {
			return err
		}
	}

	root := make([]byte, rootDirSectors*geometry.SectorSize)
	if volumeLabel != "" {
		entry, err := volumeLabelEntry(volumeLabel, 11)
		if err != nil {
			return err
		}
		copy(root[:32], entry)
	}
	rootDirStart := fatStart + params.fatCopies*params.fatSectors
	return device.WriteSectors(rootDirStart, root)
}

func volumeLabelEntry(label string, width int) ([]byte, error) {
	entry := make([]byte, 32)
	padded := padToWidthASCII(strings.ToUpper(label), width)
	copy(entry[0:width], padded)
	entry[11] = geometry.AttrVolume
	return entry, nil
}

func padToEightASCII(s string) []byte {
	return padToWidthASCII(s, 8)
}

func padToWidthASCII(s string, width int) []byte {
	upper := []byte(s)
	if len(upper) > width {
		upper = upper[:width]
	}
	out := make([]byte, width)
	copy(out, upper)
	for i := len(upper); i < width; i++ {
		out[i] = ' '
	}
	return out
}
