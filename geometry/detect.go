package geometry

import (
	"encoding/binary"
	"io"

	"github.com/v9k/vfat/vfaterr"
)

// CPMCandidateSectors lists, in probe order, the directory-start sectors
// this engine tries when auto-detecting a CP/M-86 image. Victor CP/M
// disks almost always start their directory at sector 76; 94 and 1 cover
// the less common layouts seen in the wild.
var CPMCandidateSectors = []int{76, 94, 1}

// legacyIBMSizes lists the four standard IBM PC floppy capacities, in
// bytes, that the detector falls back to recognizing by exact image
// length alone when no header can be read at all.
var legacyIBMSizes = map[int64]bool{
	720 * int64(SectorSize):  true,
	1440 * int64(SectorSize): true,
	2400 * int64(SectorSize): true,
	2880 * int64(SectorSize): true,
}

// DetectFormat picks exactly one variant for an image using the ordered
// policy: a Victor hard disk first (images at least 2 MB long whose
// sector 0 satisfies the physical-label conjunction), then an IBM PC
// floppy by BPB and boot signature, then a CP/M-86 directory probe, and
// finally Victor floppy as the catch-all for anything with a readable
// boot sector. If no header can be read at all, a length match against
// one of the four standard IBM PC floppy sizes is the last resort before
// giving up with UnknownFormat. readAt reads len(buf) bytes starting at
// the given absolute offset.
func DetectFormat(size int64, readAt func(off int64, buf []byte) error) (Format, error) {
	const twoMiB = 2 * 1024 * 1024

	header := make([]byte, 2048)
	if err := readAt(0, header); err != nil {
		if legacyIBMSizes[size] {
			return FormatIBMPCFloppy, nil
		}
		return 0, vfaterr.ErrUnknownFormat.WithMessage("cannot read boot sector: %s", err)
	}

	if size >= twoMiB && looksLikeVictorHDLabel(header) {
		return FormatVictorHardDisk, nil
	}

	if looksLikeIBMPC(header) {
		return FormatIBMPCFloppy, nil
	}

	if header[0] == 0xFF || header[0] == 0xE5 || header[0] == 0x00 {
		if _, ok, err := DetectCPMDirSector(readAt); err == nil && ok {
			return FormatCPM, nil
		}
	}

	return FormatVictorFloppy, nil
}

// looksLikeIBMPC reports whether sector 0 carries a standard BPB: the
// 0x55AA boot signature plus the BPB consistency conjunction spec.md
// names (bytes_per_sector==512, sectors_per_cluster in {1,2,4,8},
// num_fats==2 exactly, total_sectors16>0, fat_size16>0).
func looksLikeIBMPC(sector0 []byte) bool {
	if len(sector0) < 512 {
		return false
	}
	bootSig := binary.LittleEndian.Uint16(sector0[0x1FE:0x200])
	bytesPerSector := binary.LittleEndian.Uint16(sector0[0x0B:0x0D])
	sectorsPerCluster := sector0[0x0D]
	numFATs := sector0[0x10]
	totalSectors16 := binary.LittleEndian.Uint16(sector0[0x13:0x15])
	fatSize16 := binary.LittleEndian.Uint16(sector0[0x16:0x18])

	if bootSig != 0xAA55 || bytesPerSector != SectorSize {
		return false
	}
	switch sectorsPerCluster {
	case 1, 2, 4, 8:
	default:
		return false
	}
	if numFATs != 2 {
		return false
	}
	return totalSectors16 > 0 && fatSize16 > 0
}

// looksLikeVictorHDLabel reports whether sector 0 is a Victor physical
// disk label by the conjunction spec.md §4.1 names: label_type has bit 0
// set, the recorded sector size is 512, and walking the variable-length
// available/working-media lists lands on a volume_count in [1,16]. The
// list-walking shape mirrors victorhd.ParsePhysicalDiskLabel, but is
// reimplemented here rather than imported, since victorhd itself depends
// on geometry.
func looksLikeVictorHDLabel(data []byte) bool {
	if len(data) < PDLSectorSize+2 {
		return false
	}
	labelType := binary.LittleEndian.Uint16(data[PDLLabelType : PDLLabelType+2])
	if labelType&0x0001 == 0 {
		return false
	}
	sectorSize := binary.LittleEndian.Uint16(data[PDLSectorSize : PDLSectorSize+2])
	if sectorSize != SectorSize {
		return false
	}

	offset := PDLControllerParams + 16
	if offset >= len(data) {
		return false
	}
	availCount := int(data[offset])
	offset += 1 + availCount*8
	if offset >= len(data) {
		return false
	}
	workCount := int(data[offset])
	offset += 1 + workCount*8
	if offset >= len(data) {
		return false
	}
	volumeCount := int(data[offset])
	return volumeCount >= 1 && volumeCount <= 16
}

// DetectCPMDirSector probes CPMCandidateSectors for a plausible CP/M
// directory and returns the first sector that looks like one.
func DetectCPMDirSector(readAt func(off int64, buf []byte) error) (int, bool, error) {
	for _, sector := range CPMCandidateSectors {
		buf := make([]byte, SectorSize)
		if err := readAt(int64(sector)*SectorSize, buf); err != nil {
			if err == io.EOF {
				continue
			}
			continue
		}
		if countPlausibleCPMEntries(buf) >= 2 {
			return sector, true, nil
		}
	}
	return 0, false, nil
}

func countPlausibleCPMEntries(sector []byte) int {
	valid := 0
	for i := 0; i < 4; i++ {
		entry := sector[i*32 : (i+1)*32]
		user := entry[0]
		if user > 15 && user != 0xE5 {
			continue
		}
		printable := true
		for _, b := range entry[1:9] {
			c := b & 0x7F
			if c < 32 || c >= 127 {
				printable = false
				break
			}
		}
		if printable {
			valid++
		}
	}
	return valid
}
