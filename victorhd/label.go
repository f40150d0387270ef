// Package victorhd implements the Victor 9000 hard-disk physical/virtual
// volume label codecs and partition dispatch: a Victor hard disk carries
// one physical label at sector 0 listing the sector addresses of one or
// more virtual volume labels, each describing an independent FAT12
// filesystem embedded in the image.
package victorhd

import (
	"encoding/binary"
	"strings"

	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
)

// ValidLabelTypes enumerates the virtual volume label_type values this
// engine treats as a real (not uninitialized or garbage) partition.
var ValidLabelTypes = map[uint16]bool{
	0x0000: true,
	0x0001: true,
	0x0002: true,
	0xFFFF: true,
}

// PhysicalDiskLabel is the label at sector 0 (and part of sector 1) of a
// Victor 9000 hard disk, naming the sector address of every virtual
// volume's own label.
type PhysicalDiskLabel struct {
	LabelType           uint16
	DeviceID            uint16
	SerialNumber        string
	SectorSize          uint16
	IPLDiskAddress      uint32
	IPLLoadAddress      uint16
	IPLLoadLength       uint16
	IPLCodeEntry        uint32
	PrimaryBootVolume   uint16
	ControllerParams    []byte
	VirtualVolumeAddrs  []uint32
}

// ParsePhysicalDiskLabel reads a PhysicalDiskLabel out of the first two
// sectors of a Victor hard disk image, including the variable-length
// available-media, working-media, and virtual-volume lists that follow
// the fixed header.
func ParsePhysicalDiskLabel(data []byte) (*PhysicalDiskLabel, error) {
	if len(data) < 512 {
		return nil, vfaterr.ErrCorruptLabel.WithMessage("physical disk label needs 512 bytes, got %d", len(data))
	}

	label := &PhysicalDiskLabel{
		LabelType:         binary.LittleEndian.Uint16(data[geometry.PDLLabelType:]),
		DeviceID:          binary.LittleEndian.Uint16(data[geometry.PDLDeviceID:]),
		SerialNumber:      decodeLatin1String(data[geometry.PDLSerialNumber : geometry.PDLSerialNumber+16]),
		SectorSize:        binary.LittleEndian.Uint16(data[geometry.PDLSectorSize:]),
		IPLDiskAddress:    binary.LittleEndian.Uint32(data[geometry.PDLIPLDiskAddr:]),
		IPLLoadAddress:    binary.LittleEndian.Uint16(data[geometry.PDLIPLLoadAddr:]),
		IPLLoadLength:     binary.LittleEndian.Uint16(data[geometry.PDLIPLLoadLen:]),
		IPLCodeEntry:      binary.LittleEndian.Uint32(data[geometry.PDLIPLCodeEntry:]),
		PrimaryBootVolume: binary.LittleEndian.Uint16(data[geometry.PDLPrimaryBootVol:]),
	}
	label.ControllerParams = append([]byte(nil), data[geometry.PDLControllerParams:geometry.PDLControllerParams+16]...)

	offset := geometry.PDLControllerParams + 16

	if offset >= len(data) {
		return label, nil
	}
	availCount := int(data[offset])
	offset += 1 + availCount*8

	if offset >= len(data) {
		return label, nil
	}
	workCount := int(data[offset])
	offset += 1 + workCount*8

	if offset >= len(data) {
		return label, nil
	}
	volumeCount := int(data[offset])
	offset++
	for i := 0; i < volumeCount && offset+4 <= len(data); i++ {
		label.VirtualVolumeAddrs = append(label.VirtualVolumeAddrs, binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
	}

	return label, nil
}

// DriveAssignment maps a physical drive unit to an index into the
// physical label's virtual volume list, as recorded in a virtual volume
// label's Configuration Information block.
type DriveAssignment struct {
	DeviceUnit  uint16
	VolumeIndex uint16
}

// VirtualVolumeLabel describes one independent FAT12 filesystem embedded
// in a Victor hard disk image.
type VirtualVolumeLabel struct {
	LabelType         uint16
	VolumeName        string
	IPLDiskAddress    uint32
	IPLLoadAddress    uint16
	IPLLoadLength     uint16
	IPLCodeEntry      uint32
	VolumeCapacity    uint32
	DataStart         uint32
	HostBlockSize     uint16
	AllocationUnit    uint16
	NumDirEntries     uint16
	VolumeStartSector int
	Assignments       []DriveAssignment
}

const maxAssignments = 16

// ParseVirtualVolumeLabel reads a VirtualVolumeLabel out of the sector at
// volumeStartSector, the absolute sector address named by the physical
// label's virtual volume list.
func ParseVirtualVolumeLabel(data []byte, volumeStartSector int) (*VirtualVolumeLabel, error) {
	if len(data) < 64 {
		return nil, vfaterr.ErrCorruptLabel.WithMessage("virtual volume label needs 64 bytes, got %d", len(data))
	}

	label := &VirtualVolumeLabel{
		LabelType:         binary.LittleEndian.Uint16(data[geometry.VVLLabelType:]),
		VolumeName:        decodeLatin1String(data[geometry.VVLVolumeName : geometry.VVLVolumeName+16]),
		IPLDiskAddress:    binary.LittleEndian.Uint32(data[geometry.VVLIPLDiskAddr:]),
		IPLLoadAddress:    binary.LittleEndian.Uint16(data[geometry.VVLIPLDiskAddr+4:]),
		IPLLoadLength:     binary.LittleEndian.Uint16(data[geometry.VVLIPLDiskAddr+6:]),
		IPLCodeEntry:      binary.LittleEndian.Uint32(data[geometry.VVLIPLDiskAddr+8:]),
		VolumeCapacity:    binary.LittleEndian.Uint32(data[geometry.VVLVolumeCapacity:]),
		DataStart:         binary.LittleEndian.Uint32(data[geometry.VVLDataStart:]),
		HostBlockSize:     binary.LittleEndian.Uint16(data[geometry.VVLHostBlockSize:]),
		AllocationUnit:    binary.LittleEndian.Uint16(data[geometry.VVLAllocationUnit:]),
		NumDirEntries:     binary.LittleEndian.Uint16(data[geometry.VVLNumDirEntries:]),
		VolumeStartSector: volumeStartSector,
	}

	if len(data) > geometry.VVLAssignmentCount {
		count := int(data[geometry.VVLAssignmentCount])
		if count > maxAssignments {
			count = maxAssignments
		}
		offset := geometry.VVLAssignmentCount + 1
		for i := 0; i < count && offset+4 <= len(data); i++ {
			label.Assignments = append(label.Assignments, DriveAssignment{
				DeviceUnit:  binary.LittleEndian.Uint16(data[offset:]),
				VolumeIndex: binary.LittleEndian.Uint16(data[offset+2:]),
			})
			offset += 4
		}
	}

	return label, nil
}

func decodeLatin1String(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return strings.Trim(string(runes), "\x00")
}
