package geometry

import (
	"encoding/binary"

	"github.com/v9k/vfat/vfaterr"
)

// FAT12Layout describes where the FAT, root directory, and data regions of
// a FAT12-formatted volume sit, in sectors relative to the start of that
// volume (sector 0 of a floppy, or sector 0 of a hard-disk partition's
// private sector range).
type FAT12Layout struct {
	Format Format

	FATStart          int
	FATSectors        int
	NumFATCopies      int
	DirStart          int
	DirSectors        int
	DataStart         int
	TotalClusters     int
	SectorsPerCluster int
	ClusterSize       int
}

// RootDirCapacity returns the number of 32-byte entries the root directory
// region can hold.
func (g *FAT12Layout) RootDirCapacity() int {
	return (g.DirSectors * SectorSize) / DirEntrySize
}

// TotalSectors returns the minimum number of sectors a volume with this
// layout must span: the data region start plus enough sectors to hold
// every cluster in the heap.
func (g *FAT12Layout) TotalSectors() int {
	return g.DataStart + g.TotalClusters*g.SectorsPerCluster
}

// ClusterToSector converts a cluster number (>= 2) into the absolute
// sector, relative to the volume, where its data begins.
func (g *FAT12Layout) ClusterToSector(cluster int) (int, error) {
	if cluster < 2 {
		return 0, vfaterr.NewWithMessage(vfaterr.EINVAL, "cluster %d is below the first usable cluster 2", cluster)
	}
	return g.DataStart + (cluster-2)*g.SectorsPerCluster, nil
}

// VictorFloppyLayout returns the fixed geometry for a Victor 9000 floppy,
// selected by the double-sided flag read from its boot sector. dataStart
// overrides the default data-region start only when nonzero, matching the
// boot sector's own override field.
func VictorFloppyLayout(doubleSided bool, dataStartOverride int) *FAT12Layout {
	if doubleSided {
		g := &FAT12Layout{
			Format:            FormatVictorFloppy,
			FATStart:          1,
			FATSectors:        2,
			NumFATCopies:      2,
			DirStart:          5,
			DirSectors:        8,
			DataStart:         13,
			TotalClusters:     594,
			SectorsPerCluster: VictorSectorsPerCluster,
			ClusterSize:       VictorClusterSize,
		}
		if dataStartOverride != 0 {
			g.DataStart = dataStartOverride
		}
		return g
	}
	g := &FAT12Layout{
		Format:            FormatVictorFloppy,
		FATStart:          1,
		FATSectors:        1,
		NumFATCopies:      2,
		DirStart:          3,
		DirSectors:        8,
		DataStart:         11,
		TotalClusters:     303,
		SectorsPerCluster: VictorSectorsPerCluster,
		ClusterSize:       VictorClusterSize,
	}
	if dataStartOverride != 0 {
		g.DataStart = dataStartOverride
	}
	return g
}

// VictorBootSector holds the fields this engine reads out of sector 0 of a
// Victor 9000 floppy image. The boot sector format is not a standard BPB;
// fields are scattered at fixed, non-contiguous offsets.
type VictorBootSector struct {
	SectorSize  int
	DataStart   int
	DoubleSided bool
	DiscType    byte
}

// ParseVictorBootSector reads the Victor-specific fields out of a 512-byte
// boot sector. Unlike the IBM PC BPB there is no boot signature to check;
// a nonstandard sector size is silently normalized to 512, matching the
// reference implementation.
func ParseVictorBootSector(boot []byte) (*VictorBootSector, error) {
	if len(boot) < 512 {
		return nil, vfaterr.ErrCorruptBootSector.WithMessage("boot sector is %d bytes, want 512", len(boot))
	}

	sectorSize := int(binary.LittleEndian.Uint16(boot[26:28]))
	if sectorSize != SectorSize {
		sectorSize = SectorSize
	}

	flags := binary.LittleEndian.Uint16(boot[32:34])
	dataStart := int(binary.LittleEndian.Uint16(boot[28:30]))

	return &VictorBootSector{
		SectorSize:  sectorSize,
		DataStart:   dataStart,
		DoubleSided: flags&0x01 != 0,
		DiscType:    boot[34],
	}, nil
}

// BIOSParameterBlock is the subset of an IBM PC FAT12 BPB this engine
// needs, plus the fields derived from it.
type BIOSParameterBlock struct {
	OEMName            string
	BytesPerSector     int
	SectorsPerCluster  int
	ReservedSectors    int
	NumFATs            int
	RootEntryCount     int
	TotalSectors       int
	MediaDescriptor    byte
	FATSectors         int
	SectorsPerTrack    int
	NumHeads           int

	FATStart      int
	RootDirStart  int
	RootDirSectors int
	DataStart     int
	TotalClusters int
	ClusterSize   int
}

// ParseBPB parses and validates a BIOS Parameter Block out of a 512-byte
// IBM PC boot sector, rejecting anything that doesn't look like a sane
// FAT12 floppy.
func ParseBPB(boot []byte) (*BIOSParameterBlock, error) {
	if len(boot) < 512 {
		return nil, vfaterr.ErrCorruptBootSector.WithMessage("boot sector is %d bytes, want 512", len(boot))
	}

	bootSig := binary.LittleEndian.Uint16(boot[0x1FE:0x200])
	if bootSig != 0xAA55 {
		return nil, vfaterr.ErrCorruptBootSector.WithMessage("bad boot signature 0x%04X", bootSig)
	}

	bpb := &BIOSParameterBlock{
		OEMName:           trimOEM(boot[0x03:0x0B]),
		BytesPerSector:    int(binary.LittleEndian.Uint16(boot[0x0B:0x0D])),
		SectorsPerCluster: int(boot[0x0D]),
		ReservedSectors:   int(binary.LittleEndian.Uint16(boot[0x0E:0x10])),
		NumFATs:           int(boot[0x10]),
		RootEntryCount:    int(binary.LittleEndian.Uint16(boot[0x11:0x13])),
		MediaDescriptor:   boot[0x15],
		FATSectors:        int(binary.LittleEndian.Uint16(boot[0x16:0x18])),
		SectorsPerTrack:   int(binary.LittleEndian.Uint16(boot[0x18:0x1A])),
		NumHeads:          int(binary.LittleEndian.Uint16(boot[0x1A:0x1C])),
	}

	totalSectors16 := binary.LittleEndian.Uint16(boot[0x13:0x15])
	if totalSectors16 == 0 {
		bpb.TotalSectors = int(binary.LittleEndian.Uint32(boot[0x20:0x24]))
	} else {
		bpb.TotalSectors = int(totalSectors16)
	}

	if bpb.BytesPerSector != SectorSize {
		return nil, vfaterr.ErrCorruptBootSector.WithMessage("unsupported bytes per sector: %d", bpb.BytesPerSector)
	}
	switch bpb.SectorsPerCluster {
	case 1, 2, 4, 8:
	default:
		return nil, vfaterr.ErrCorruptBootSector.WithMessage("invalid sectors per cluster: %d", bpb.SectorsPerCluster)
	}
	if bpb.NumFATs == 0 {
		return nil, vfaterr.ErrCorruptBootSector.WithMessage("number of FATs cannot be zero")
	}
	if bpb.FATSectors == 0 {
		return nil, vfaterr.ErrCorruptBootSector.WithMessage("FAT size cannot be zero")
	}

	bpb.FATStart = bpb.ReservedSectors
	bpb.RootDirStart = bpb.FATStart + bpb.NumFATs*bpb.FATSectors
	bpb.RootDirSectors = (bpb.RootEntryCount*DirEntrySize + SectorSize - 1) / SectorSize
	bpb.DataStart = bpb.RootDirStart + bpb.RootDirSectors
	dataSectors := bpb.TotalSectors - bpb.DataStart
	bpb.TotalClusters = dataSectors / bpb.SectorsPerCluster
	bpb.ClusterSize = bpb.BytesPerSector * bpb.SectorsPerCluster

	return bpb, nil
}

// Layout converts a parsed BPB into the format-neutral FAT12Layout.
func (bpb *BIOSParameterBlock) Layout() *FAT12Layout {
	return &FAT12Layout{
		Format:            FormatIBMPCFloppy,
		FATStart:          bpb.FATStart,
		FATSectors:        bpb.FATSectors,
		NumFATCopies:      bpb.NumFATs,
		DirStart:          bpb.RootDirStart,
		DirSectors:        bpb.RootDirSectors,
		DataStart:         bpb.DataStart,
		TotalClusters:     bpb.TotalClusters,
		SectorsPerCluster: bpb.SectorsPerCluster,
		ClusterSize:       bpb.ClusterSize,
	}
}

func trimOEM(b []byte) string {
	n := len(b)
	for n > 0 && (b[n-1] == ' ' || b[n-1] == 0) {
		n--
	}
	return string(b[:n])
}
