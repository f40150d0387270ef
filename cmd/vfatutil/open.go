package main

import (
	"os"

	"github.com/v9k/vfat/blockdev"
	"github.com/v9k/vfat/cpm"
	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
	"github.com/v9k/vfat/victorhd"
	"github.com/v9k/vfat/volume"
)

// openedFile carries the underlying os.File alongside whatever driver
// the detected format resolved to, so callers can flush and close the
// file once they're done.
type openedFile struct {
	file   *os.File
	Volume *volume.Volume
	CPM    *cpm.Image
	HD     *victorhd.HardDiskImage
}

func (o *openedFile) Close() error {
	if o.Volume != nil && !o.Volume.ReadOnly() {
		if err := o.Volume.Flush(); err != nil {
			o.file.Close()
			return err
		}
	}
	return o.file.Close()
}

// openTarget opens the image named by spec and resolves it to exactly
// one of a Volume, a read-only CP/M image, or (when no partition
// selector was given) a hard-disk image whose only valid operation is
// listing the partition table.
func openTarget(spec *PathSpec, readOnly bool) (*openedFile, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	file, err := os.OpenFile(spec.ImagePath, flag, 0)
	if err != nil {
		return nil, vfaterr.NewFromError(vfaterr.EIO, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, vfaterr.NewFromError(vfaterr.EIO, err)
	}

	readAt := func(off int64, buf []byte) error {
		_, err := file.ReadAt(buf, off)
		return err
	}
	format, err := geometry.DetectFormat(info.Size(), readAt)
	if err != nil {
		file.Close()
		return nil, err
	}

	var device *blockdev.Device
	if readOnly {
		device = blockdev.NewReadOnly(file, geometry.SectorSize)
	} else {
		device = blockdev.New(file, geometry.SectorSize)
	}

	switch format {
	case geometry.FormatVictorHardDisk:
		disk, err := victorhd.Open(device)
		if err != nil {
			file.Close()
			return nil, err
		}
		if spec.Partition == nil {
			return &openedFile{file: file, HD: disk}, nil
		}
		partition, err := disk.Partition(*spec.Partition)
		if err != nil {
			file.Close()
			return nil, err
		}
		vol, err := partition.Open(readOnly)
		if err != nil {
			file.Close()
			return nil, err
		}
		return &openedFile{file: file, Volume: vol}, nil

	case geometry.FormatCPM:
		img, err := cpm.Open(device)
		if err != nil {
			file.Close()
			return nil, err
		}
		return &openedFile{file: file, CPM: img}, nil

	case geometry.FormatIBMPCFloppy:
		boot, err := device.ReadSector(0)
		if err != nil {
			file.Close()
			return nil, err
		}
		bpb, err := geometry.ParseBPB(boot)
		if err != nil {
			file.Close()
			return nil, err
		}
		vol, err := volume.Open(device, bpb.Layout(), readOnly)
		if err != nil {
			file.Close()
			return nil, err
		}
		return &openedFile{file: file, Volume: vol}, nil

	default: // FormatVictorFloppy
		boot, err := device.ReadSector(0)
		if err != nil {
			file.Close()
			return nil, err
		}
		vbs, err := geometry.ParseVictorBootSector(boot)
		if err != nil {
			file.Close()
			return nil, err
		}
		layout := geometry.VictorFloppyLayout(vbs.DoubleSided, vbs.DataStart)
		vol, err := volume.Open(device, layout, readOnly)
		if err != nil {
			file.Close()
			return nil, err
		}
		return &openedFile{file: file, Volume: vol}, nil
	}
}

// requireVolume returns the opened target's Volume, translating a hard
// disk opened without a partition selector into PartitionRequired and a
// CP/M image into ErrReadOnly for any operation that isn't list/extract.
func (o *openedFile) requireVolume() (*volume.Volume, error) {
	if o.Volume != nil {
		return o.Volume, nil
	}
	if o.HD != nil {
		return nil, vfaterr.ErrPartitionRequired
	}
	return nil, vfaterr.ErrReadOnly.WithMessage("CP/M images support list and extract only")
}
