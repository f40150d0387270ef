package cpm

import (
	"io"
	"sort"
	"strings"

	"github.com/v9k/vfat/blockdev"
	"github.com/v9k/vfat/direntory"
	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
)

// FileInfo is a whole CP/M file, aggregated across every extent entry
// that shares its user number, name, and extension.
type FileInfo struct {
	User      int
	Filename  string
	Extension string
	Size      int
	Extents   []*DirectoryEntry
	ReadOnly  bool
	System    bool
}

// FullName returns "NAME.EXT", or just "NAME" when the extension is
// empty.
func (f *FileInfo) FullName() string {
	if f.Extension != "" {
		return f.Filename + "." + f.Extension
	}
	return f.Filename
}

// Image is a read-only handle onto a CP/M-86 floppy image.
type Image struct {
	device        *blockdev.Device
	dirStartSector int
}

// Open detects the directory start sector (probing the same candidate
// sectors geometry.DetectFormat uses to classify the image as CP/M in
// the first place) and returns a ready-to-use Image.
func Open(device *blockdev.Device) (*Image, error) {
	sector, ok, err := geometry.DetectCPMDirSector(func(off int64, buf []byte) error {
		sectorNum := int(off / geometry.SectorSize)
		data, err := device.ReadSector(sectorNum)
		if err != nil {
			return err
		}
		copy(buf, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		sector = geometry.CPMDirStartSector
	}
	return &Image{device: device, dirStartSector: sector}, nil
}

// blockToSector converts a CP/M allocation block number to the absolute
// sector where its data begins.
func (img *Image) blockToSector(block int) int {
	return geometry.CPMDataStartSector + block*geometry.CPMSectorsPerBlock
}

func (img *Image) readBlock(block int) ([]byte, error) {
	return img.device.ReadSectors(img.blockToSector(block), geometry.CPMSectorsPerBlock)
}

// readDirectoryEntries reads every non-deleted, printable directory
// entry off the interleaved directory sectors.
func (img *Image) readDirectoryEntries() ([]*DirectoryEntry, error) {
	var entries []*DirectoryEntry
	for i := 0; i < geometry.CPMDirSectors; i++ {
		sector := img.dirStartSector + i*geometry.CPMDirInterleave
		data, err := img.device.ReadSector(sector)
		if err != nil {
			continue
		}
		for slot := 0; slot < geometry.SectorSize/geometry.CPMDirEntrySize; slot++ {
			raw := data[slot*geometry.CPMDirEntrySize : (slot+1)*geometry.CPMDirEntrySize]
			if raw[0] == geometry.CPMDeleted {
				continue
			}
			if raw[0] > 15 {
				continue
			}
			entry, err := ParseDirectoryEntry(raw)
			if err != nil {
				continue
			}
			if entry.Filename == "" {
				continue
			}
			if !isPrintableName(entry.Filename) || !isPrintableName(entry.Extension) {
				continue
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// List returns every file on the disk, aggregated across extents and
// sorted by user number then name, matching the on-disk listing order
// the reference tool presents.
func (img *Image) List() ([]*FileInfo, error) {
	entries, err := img.readDirectoryEntries()
	if err != nil {
		return nil, err
	}

	type key struct {
		user int
		name string
		ext  string
	}
	grouped := map[key][]*DirectoryEntry{}
	var order []key
	for _, e := range entries {
		if e.IsDeleted {
			continue
		}
		k := key{e.User, strings.ToUpper(e.Filename), strings.ToUpper(e.Extension)}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], e)
	}

	var files []*FileInfo
	for _, k := range order {
		extents := grouped[k]
		sort.Slice(extents, func(i, j int) bool { return extents[i].Extent < extents[j].Extent })

		size := 0
		for i, extent := range extents {
			if i < len(extents)-1 {
				size += geometry.CPMRecordsPerExtent * geometry.CPMRecordSize
			} else {
				size += extent.RecordCount * geometry.CPMRecordSize
			}
		}

		first := extents[0]
		files = append(files, &FileInfo{
			User:      k.user,
			Filename:  strings.TrimRight(k.name, " "),
			Extension: strings.TrimRight(k.ext, " "),
			Size:      size,
			Extents:   extents,
			ReadOnly:  first.IsReadOnly(),
			System:    first.IsSystem(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].User != files[j].User {
			return files[i].User < files[j].User
		}
		return files[i].FullName() < files[j].FullName()
	})
	return files, nil
}

// Find locates a single file by its 8.3 name, independent of user
// number, matching the first one found.
func (img *Image) Find(filename string) (*FileInfo, error) {
	name, ext, err := direntory.ValidateFilename(filename)
	if err != nil {
		return nil, err
	}
	name = strings.TrimRight(strings.ToUpper(name), " ")
	ext = strings.TrimRight(strings.ToUpper(ext), " ")

	files, err := img.List()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if strings.ToUpper(f.Filename) == name && strings.ToUpper(f.Extension) == ext {
			return f, nil
		}
	}
	return nil, vfaterr.ErrNotExist.WithMessage("no such file: %s", filename)
}

// FindMatching returns every file whose name matches an 8.3 wildcard
// pattern such as "*.COM" or "REPORT.???".
func (img *Image) FindMatching(pattern string) ([]*FileInfo, error) {
	files, err := img.List()
	if err != nil {
		return nil, err
	}
	if !direntory.HasWildcards(pattern) {
		var matches []*FileInfo
		for _, f := range files {
			if strings.EqualFold(f.FullName(), pattern) {
				matches = append(matches, f)
			}
		}
		return matches, nil
	}
	var matches []*FileInfo
	for _, f := range files {
		if direntory.MatchFilename(pattern, f.FullName()) {
			matches = append(matches, f)
		}
	}
	return matches, nil
}

// Extract reads a file's full contents, in extent order, trimmed to its
// reported size, and writes them to w.
func (img *Image) Extract(filename string, w io.Writer) error {
	file, err := img.Find(filename)
	if err != nil {
		return err
	}

	var data []byte
	for _, extent := range file.Extents {
		for _, block := range extent.Blocks {
			chunk, err := img.readBlock(block)
			if err != nil {
				return err
			}
			data = append(data, chunk...)
		}
	}
	if len(data) > file.Size {
		data = data[:file.Size]
	}
	_, err = w.Write(data)
	return err
}

// WriteFile, Delete, and every other mutation this engine might
// otherwise support are out of scope for CP/M: the format is read-only
// here by design.
func (img *Image) WriteFile(string, io.Reader, int64) error {
	return vfaterr.ErrReadOnly
}

func (img *Image) Delete(string) error {
	return vfaterr.ErrReadOnly
}
