package victorhd

import (
	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/volume"
)

// Partition is one virtual volume of a Victor hard disk: an independent
// FAT12 filesystem whose sector addresses are local to its image_slice,
// the contiguous byte span [VolumeStartSector*512, (VolumeStartSector+
// VolumeCapacity)*512).
type Partition struct {
	Index int
	Label *VirtualVolumeLabel

	disk   *HardDiskImage
	layout *geometry.FAT12Layout
}

// Name returns the virtual volume's name with trailing padding trimmed.
func (p *Partition) Name() string {
	return p.Label.VolumeName
}

// SizeBytes returns the partition's total on-disk capacity.
func (p *Partition) SizeBytes() int64 {
	return int64(p.Label.VolumeCapacity) * int64(geometry.SectorSize)
}

// Layout returns the FAT12 geometry resolved for this partition.
func (p *Partition) Layout() *geometry.FAT12Layout {
	return p.layout
}

// Open returns a Volume over this partition's image_slice. Every sector
// address the returned Volume reads or writes is relative to the start of
// the partition; the underlying disk image is addressed through a sliced
// blockdev.Device so no data is copied.
func (p *Partition) Open(readOnly bool) (*volume.Volume, error) {
	device := p.disk.device.Slice(p.Label.VolumeStartSector)
	return volume.Open(device, p.layout, readOnly)
}

// deriveLayout computes FAT12 geometry for a virtual volume, including
// the FAT-size autodetection the reference tooling performs because a
// Victor hard disk's recorded capacity does not reliably predict FAT
// size: the directory region is located by scanning sectors after the
// volume label for the first one that looks like directory entries
// rather than FAT data, and the gap between the label and the directory
// is attributed, split evenly, to the two FAT copies.
func deriveLayout(disk *HardDiskImage, label *VirtualVolumeLabel) (*geometry.FAT12Layout, error) {
	sectorsPerCluster := int(label.AllocationUnit)
	if sectorsPerCluster == 0 {
		sectorsPerCluster = geometry.HDSectorsPerCluster
	}
	maxDirEntries := int(label.NumDirEntries)
	if maxDirEntries == 0 {
		maxDirEntries = geometry.HDMaxDirEntries
	}

	entriesPerSector := geometry.SectorSize / geometry.DirEntrySize
	dirSectors := (maxDirEntries + entriesPerSector - 1) / entriesPerSector

	fatSectors, err := detectFATSectors(disk, label, sectorsPerCluster)
	if err != nil {
		return nil, err
	}

	fatStart := 1
	dirStart := fatStart + 2*fatSectors
	dataStart := dirStart + dirSectors

	dataSectors := int(label.VolumeCapacity) - (1 + 2*fatSectors + dirSectors)
	totalClusters := 0
	if dataSectors > 0 {
		totalClusters = dataSectors / sectorsPerCluster
	}

	return &geometry.FAT12Layout{
		Format:            geometry.FormatVictorHardDisk,
		FATStart:          fatStart,
		FATSectors:        fatSectors,
		NumFATCopies:      2,
		DirStart:          dirStart,
		DirSectors:        dirSectors,
		DataStart:         dataStart,
		TotalClusters:     totalClusters,
		SectorsPerCluster: sectorsPerCluster,
		ClusterSize:       geometry.SectorSize * sectorsPerCluster,
	}, nil
}

const maxFATScanSectors = 100

// detectFATSectors scans forward from the sector after the volume label
// looking for the first sector that looks like a directory rather than
// FAT data, then derives the per-copy FAT size from how far it had to
// scan (two FAT copies precede the directory).
func detectFATSectors(disk *HardDiskImage, label *VirtualVolumeLabel, sectorsPerCluster int) (int, error) {
	estimatedClusters := int(label.VolumeCapacity) / sectorsPerCluster
	fatBytes := (estimatedClusters*3 + 1) / 2
	maxFATSectors := (fatBytes + geometry.SectorSize - 1) / geometry.SectorSize
	if maxFATSectors < 1 {
		maxFATSectors = 1
	}

	maxScan := maxFATSectors*2 + 10
	if maxScan > maxFATScanSectors {
		maxScan = maxFATScanSectors
	}

	for offset := 1; offset <= maxScan; offset++ {
		sector := label.VolumeStartSector + offset
		data, err := disk.device.ReadSector(sector)
		if err != nil {
			continue
		}
		if looksLikeDirectorySector(data) {
			fatSectors := (offset - 1) / 2
			if fatSectors < 1 {
				fatSectors = 1
			}
			return fatSectors, nil
		}
	}

	return maxFATSectors, nil
}


// looksLikeDirectorySector reports whether the first 32-byte slot of data
// looks like an 8.3 directory entry rather than FAT data: FAT sectors
// start with the media descriptor byte (0xF8) and directory entries use
// only a narrow character set in the name and extension fields.
func looksLikeDirectorySector(data []byte) bool {
	if len(data) < 32 {
		return false
	}
	if data[0] == 0xF8 || data[0] == 0x00 {
		return false
	}

	attr := data[11]
	if attr > 0x3F || attr == 0x0F {
		return false
	}

	if data[0] != 0xE5 {
		for _, b := range data[0:8] {
			if !isPlausibleNameByte(b) {
				return false
			}
		}
		for _, b := range data[8:11] {
			if !isPlausibleNameByte(b) {
				return false
			}
		}
	}
	return true
}

func isPlausibleNameByte(b byte) bool {
	switch {
	case b == 0x20, b == 0x2E:
		return true
	case b >= 0x30 && b <= 0x39:
		return true
	case b >= 0x41 && b <= 0x5A:
		return true
	}
	switch b {
	case 0x21, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28, 0x29,
		0x2D, 0x40, 0x5E, 0x5F, 0x60, 0x7B, 0x7D, 0x7E:
		return true
	}
	return false
}
