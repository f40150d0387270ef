package victorhd

import (
	"github.com/v9k/vfat/blockdev"
	"github.com/v9k/vfat/vfaterr"
)

// HardDiskImage is a Victor 9000 hard disk: a physical label at sector 0
// naming the sector addresses of one or more virtual volumes, each an
// independent FAT12 filesystem dispatched as a Partition.
type HardDiskImage struct {
	device     *blockdev.Device
	Label      *PhysicalDiskLabel
	partitions []*Partition
}

// Open reads the physical label from sector 0-1 of device and loads every
// virtual volume named in its virtual volume list, skipping any whose
// label_type is not one of the recognized values (0x0000, 0x0001, 0x0002,
// 0xFFFF) as uninitialized or garbage.
func Open(device *blockdev.Device) (*HardDiskImage, error) {
	header, err := device.ReadSectors(0, 2)
	if err != nil {
		return nil, err
	}
	label, err := ParsePhysicalDiskLabel(header)
	if err != nil {
		return nil, err
	}

	disk := &HardDiskImage{device: device, Label: label}

	for idx, addr := range label.VirtualVolumeAddrs {
		volData, err := device.ReadSector(int(addr))
		if err != nil {
			return nil, err
		}
		volLabel, err := ParseVirtualVolumeLabel(volData, int(addr))
		if err != nil {
			return nil, err
		}
		if !ValidLabelTypes[volLabel.LabelType] {
			continue
		}

		layout, err := deriveLayout(disk, volLabel)
		if err != nil {
			return nil, err
		}

		disk.partitions = append(disk.partitions, &Partition{
			Index:  idx,
			Label:  volLabel,
			disk:   disk,
			layout: layout,
		})
	}

	return disk, nil
}

// PartitionCount returns the number of recognized virtual volumes.
func (d *HardDiskImage) PartitionCount() int {
	return len(d.partitions)
}

// Partition returns the N-th virtual volume (zero-based), matching the
// spec's path-expression partition selector.
func (d *HardDiskImage) Partition(index int) (*Partition, error) {
	if index < 0 || index >= len(d.partitions) {
		return nil, vfaterr.ErrPartitionRange.WithMessage(
			"invalid partition index %d: valid range is [0, %d)", index, len(d.partitions))
	}
	return d.partitions[index], nil
}

// PartitionRow is one synthetic row of the partition table this package
// returns when a hard-disk path has no :N: selector.
type PartitionRow struct {
	Index int
	Name  string
	Size  int64
}

// ListPartitions returns the synthetic partition table: one row per
// virtual volume with its index, name, and size in bytes.
func (d *HardDiskImage) ListPartitions() []PartitionRow {
	rows := make([]PartitionRow, len(d.partitions))
	for i, p := range d.partitions {
		rows[i] = PartitionRow{Index: p.Index, Name: p.Name(), Size: p.SizeBytes()}
	}
	return rows
}
