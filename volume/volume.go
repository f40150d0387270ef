// Package volume implements the read/write operations exposed against a
// single mounted FAT12 volume: Victor 9000 floppy, IBM PC floppy, or one
// partition of a Victor hard disk. It ties together geometry, fat12, and
// direntory into the file-level operations the CLI acts on.
package volume

import (
	"io"
	"time"

	"github.com/v9k/vfat/blockdev"
	"github.com/v9k/vfat/direntory"
	"github.com/v9k/vfat/fat12"
	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
)

// Volume is a mounted FAT12 filesystem, ready for List/CopyOut/CopyIn and
// the rest of the file-level API. Every sector address it uses is
// relative to the start of this volume, not of the whole image: for a
// floppy that's the same thing, but for a hard disk partition the caller
// has already translated absolute sectors into volume-relative ones by
// the time a Volume exists.
type Volume struct {
	device   *blockdev.Device
	layout   *geometry.FAT12Layout
	fats     []*fat12.Table // one Table per on-disk FAT copy; edits go to fats[0], Flush copies it over the rest
	alloc    *fat12.Allocator
	readOnly bool
	label    string // lazily filled by volumeLabel from the root directory's AttrVolume entry

	dirtyFAT  bool
	dirtyRoot bool
	rootRegion []byte // only used when layout uses a fixed-size root dir region
}

// Open reads the FAT copies off device according to layout and returns a
// ready-to-use Volume. device's sector addressing must already be
// relative to this volume.
func Open(device *blockdev.Device, layout *geometry.FAT12Layout, readOnly bool) (*Volume, error) {
	v := &Volume{device: device, layout: layout, readOnly: readOnly || device.ReadOnly()}

	fatBytes := layout.FATSectors * geometry.SectorSize
	for i := 0; i < layout.NumFATCopies; i++ {
		sector := layout.FATStart + i*layout.FATSectors
		raw, err := device.ReadSectors(sector, layout.FATSectors)
		if err != nil {
			return nil, err
		}
		if len(raw) != fatBytes {
			return nil, vfaterr.ErrCorruptBootSector.WithMessage("short FAT read: got %d bytes, want %d", len(raw), fatBytes)
		}
		v.fats = append(v.fats, fat12.NewTable(raw, layout.TotalClusters))
	}

	alloc, err := fat12.NewAllocator(v.fats[0], layout.TotalClusters)
	if err != nil {
		return nil, err
	}
	v.alloc = alloc

	root, err := device.ReadSectors(layout.DirStart, layout.DirSectors)
	if err != nil {
		return nil, err
	}
	v.rootRegion = root

	return v, nil
}

// Layout exposes the volume's geometry for callers that need it (catalog
// lookups, fsck reporting).
func (v *Volume) Layout() *geometry.FAT12Layout { return v.layout }

// ReadOnly reports whether mutating operations on this volume are
// rejected with vfaterr.ErrReadOnly.
func (v *Volume) ReadOnly() bool { return v.readOnly }

func (v *Volume) checkWritable() error {
	if v.readOnly {
		return vfaterr.ErrReadOnly
	}
	return nil
}

// readDirectory returns the live entries of the directory starting at
// cluster. Cluster 0 means the volume's root directory, which for FAT12
// is a fixed-size region outside the cluster heap; any other cluster is
// read by following its FAT chain and concatenating cluster contents.
func (v *Volume) readDirectory(cluster int) ([]*direntory.Entry, error) {
	if cluster == 0 {
		return direntory.DecodeDirectory(v.rootRegion)
	}

	data, err := v.readClusterChain(cluster)
	if err != nil {
		return nil, err
	}
	return direntory.DecodeDirectory(data)
}

// readClusterChain follows the chain starting at cluster and returns the
// concatenated contents of every cluster in it.
func (v *Volume) readClusterChain(cluster int) ([]byte, error) {
	chain, err := v.fats[0].FollowChain(cluster)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(chain)*v.layout.ClusterSize)
	for _, c := range chain {
		sector, err := v.layout.ClusterToSector(c)
		if err != nil {
			return nil, err
		}
		data, err := v.device.ReadSectors(sector, v.layout.SectorsPerCluster)
		if err != nil {
			return nil, err
		}
		buf = append(buf, data...)
	}
	return buf, nil
}

// reader adapts readDirectory to direntory.DirectoryReader.
func (v *Volume) reader() direntory.DirectoryReader {
	return v.readDirectory
}

// List returns the live, non-LFN, non-volume-label entries of the
// directory named by an internal path, or of the root directory if path
// is empty. When recursive is true, each subdirectory's own entries are
// appended immediately after it, pre-order (parent before children),
// skipping "." and "..".
func (v *Volume) List(path string, recursive bool) ([]*direntory.Entry, error) {
	components := direntory.SplitPath(path)
	cluster := 0
	if len(components) > 0 {
		resolved, err := direntory.Resolve(v.reader(), components)
		if err != nil {
			return nil, err
		}
		if resolved.Entry != nil {
			if !resolved.Entry.IsDirectory() {
				return nil, vfaterr.ErrNotDir.WithMessage("%q is not a directory", path)
			}
			cluster = resolved.Entry.FirstCluster
		}
	}

	return v.listDirectory(cluster, recursive)
}

func (v *Volume) listDirectory(cluster int, recursive bool) ([]*direntory.Entry, error) {
	entries, err := v.readDirectory(cluster)
	if err != nil {
		return nil, err
	}

	var live []*direntory.Entry
	for _, e := range entries {
		if e.IsDeleted || e.IsDotEntry() || e.IsVolumeLabel() {
			continue
		}
		live = append(live, e)
		if recursive && e.IsDirectory() {
			children, err := v.listDirectory(e.FirstCluster, true)
			if err != nil {
				return nil, err
			}
			live = append(live, children...)
		}
	}
	return live, nil
}

// Stat resolves an internal path to its directory entry.
func (v *Volume) Stat(path string) (*direntory.Entry, error) {
	components := direntory.SplitPath(path)
	resolved, err := direntory.Resolve(v.reader(), components)
	if err != nil {
		return nil, err
	}
	if resolved.Entry == nil {
		return nil, vfaterr.NewWithMessage(vfaterr.EINVAL, "path %q names the root directory", path)
	}
	return resolved.Entry, nil
}

// CopyOut writes the contents of the file named by internalPath to w.
func (v *Volume) CopyOut(internalPath string, w io.Writer) error {
	entry, err := v.Stat(internalPath)
	if err != nil {
		return err
	}
	if entry.IsDirectory() {
		return vfaterr.ErrIsDir.WithMessage("%q is a directory", internalPath)
	}

	if entry.FileSize == 0 {
		return nil
	}

	data, err := v.readClusterChain(entry.FirstCluster)
	if err != nil {
		return err
	}
	if int64(len(data)) < entry.FileSize {
		return vfaterr.ErrCorruptChain.WithMessage("%q: chain holds %d bytes, directory entry says %d", internalPath, len(data), entry.FileSize)
	}

	_, err = w.Write(data[:entry.FileSize])
	if err != nil {
		return vfaterr.NewFromError(vfaterr.EIO, err)
	}
	return nil
}

// Flush writes the pending FAT and root-directory changes to the
// underlying device, in the order FAT copy 1, FAT copy 2 (kept
// byte-identical to copy 1), then the root directory region. File data
// sectors and subdirectory clusters are not written here: each operation
// writes them to the device as it runs, so they reach the device before
// the FAT copies do. A crash therefore never leaves the FAT pointing at
// unwritten file data, but a subdirectory's updated entries can reach the
// device before the FAT that backs them.
func (v *Volume) Flush() error {
	if v.readOnly {
		return nil
	}
	if !v.dirtyFAT && !v.dirtyRoot {
		return nil
	}

	if v.dirtyFAT {
		canonical := v.fats[0].Bytes()
		for i := range v.fats {
			if i > 0 {
				copy(v.fats[i].Bytes(), canonical)
			}
			sector := v.layout.FATStart + i*v.layout.FATSectors
			if err := v.device.WriteSectors(sector, v.fats[i].Bytes()); err != nil {
				return err
			}
		}
		v.dirtyFAT = false
	}

	if v.dirtyRoot {
		if err := v.device.WriteSectors(v.layout.DirStart, v.rootRegion); err != nil {
			return err
		}
		v.dirtyRoot = false
	}

	return v.device.Sync()
}

// truncateToFATResolution returns a copy of t truncated to FAT's 2-second time
// resolution, matching what a real write would record.
func truncateToFATResolution(t time.Time) time.Time {
	return t.Truncate(2 * time.Second)
}
