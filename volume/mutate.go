package volume

import (
	"io"
	"strings"
	"time"

	"github.com/v9k/vfat/direntory"
	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
)

// writeDirectoryRegion persists an updated directory region. For the root
// directory (cluster 0) this just replaces the in-memory copy flushed
// later by Flush; for a subdirectory it writes the affected clusters back
// to the device immediately, since this engine doesn't cache subdirectory
// contents between calls.
func (v *Volume) writeDirectoryRegion(cluster int, region []byte) error {
	if cluster == 0 {
		v.rootRegion = region
		v.dirtyRoot = true
		return nil
	}

	chain, err := v.fats[0].FollowChain(cluster)
	if err != nil {
		return err
	}
	if len(region) != len(chain)*v.layout.ClusterSize {
		return vfaterr.NewWithMessage(vfaterr.EINVAL,
			"directory region is %d bytes, chain holds %d", len(region), len(chain)*v.layout.ClusterSize)
	}
	for i, c := range chain {
		sector, err := v.layout.ClusterToSector(c)
		if err != nil {
			return err
		}
		chunk := region[i*v.layout.ClusterSize : (i+1)*v.layout.ClusterSize]
		if err := v.device.WriteSectors(sector, chunk); err != nil {
			return err
		}
	}
	return nil
}

// findFreeSlotOffset scans a directory region for the offset of a reusable
// slot: a deleted entry, or the end-of-directory marker. If the region has
// no free slot and can grow (cluster != 0), it extends the chain by one
// cluster and returns the offset of the new first slot. The root
// directory cannot grow past its fixed capacity.
func (v *Volume) findFreeSlotOffset(cluster int, region []byte) ([]byte, int, error) {
	for offset := 0; offset+direntory.EntrySize <= len(region); offset += direntory.EntrySize {
		chunk := region[offset : offset+direntory.EntrySize]
		if chunk[0] == 0x00 || chunk[0] == 0xE5 {
			return region, offset, nil
		}
	}

	if cluster == 0 {
		return nil, 0, vfaterr.ErrDirFull.WithMessage("root directory is full")
	}

	chain, err := v.fats[0].FollowChain(cluster)
	if err != nil {
		return nil, 0, err
	}
	if _, err := v.alloc.ExtendChain(chain[len(chain)-1], 1); err != nil {
		return nil, 0, err
	}
	v.dirtyFAT = true

	newOffset := len(region)
	grown := append(region, make([]byte, v.layout.ClusterSize)...)
	return grown, newOffset, nil
}

// CopyIn creates or overwrites the file named by internalPath with the
// contents read from r, stopping after exactly size bytes. If a file
// already exists at internalPath and overwrite is false, it fails with
// ErrExist rather than touching the existing entry. attrs is applied to
// the new or replaced directory entry's attribute byte (the directory
// bit is always forced off; a file entry is never a subdirectory).
func (v *Volume) CopyIn(internalPath string, r io.Reader, size int64, overwrite bool, attrs int, now time.Time) error {
	if err := v.checkWritable(); err != nil {
		return err
	}

	components := direntory.SplitPath(internalPath)
	if len(components) == 0 {
		return vfaterr.NewWithMessage(vfaterr.EINVAL, "empty path")
	}
	parentCluster, last, err := direntory.ResolveParent(v.reader(), components)
	if err != nil {
		return err
	}
	name, ext, err := direntory.ValidateFilename(last)
	if err != nil {
		return err
	}
	attrs &^= geometry.AttrDirectory

	existingEntries, err := v.readDirectory(parentCluster)
	if err != nil {
		return err
	}
	for _, e := range existingEntries {
		if !e.IsDeleted && !e.IsDotEntry() && e.Name == (trimmedJoin(name, ext)) {
			if e.IsDirectory() {
				return vfaterr.ErrIsDir
			}
			if !overwrite {
				return vfaterr.ErrExist.WithMessage("%q already exists", internalPath)
			}
			return v.overwriteFile(parentCluster, e, r, size, attrs, now)
		}
	}

	return v.createFile(parentCluster, name, ext, r, size, attrs, now)
}

func trimmedJoin(name, ext string) string {
	n := strings.TrimRight(name, " ")
	e := strings.TrimRight(ext, " ")
	if e == "" {
		return n
	}
	return n + "." + e
}

func (v *Volume) writeFileData(r io.Reader, size int64) (firstCluster int, err error) {
	if size == 0 {
		return 0, nil
	}
	clustersNeeded := int((size + int64(v.layout.ClusterSize) - 1) / int64(v.layout.ClusterSize))
	chain, err := v.alloc.AllocateChain(clustersNeeded)
	if err != nil {
		return 0, err
	}
	v.dirtyFAT = true

	remaining := size
	for _, c := range chain {
		toRead := int64(v.layout.ClusterSize)
		if remaining < toRead {
			toRead = remaining
		}
		buf := make([]byte, v.layout.ClusterSize)
		n, readErr := io.ReadFull(r, buf[:toRead])
		if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
			v.alloc.FreeChain(chain)
			return 0, vfaterr.NewFromError(vfaterr.EIO, readErr)
		}
		_ = n
		sector, err := v.layout.ClusterToSector(c)
		if err != nil {
			v.alloc.FreeChain(chain)
			return 0, err
		}
		if err := v.device.WriteSectors(sector, buf); err != nil {
			v.alloc.FreeChain(chain)
			return 0, err
		}
		remaining -= toRead
	}
	return chain[0], nil
}

func (v *Volume) createFile(parentCluster int, name, ext string, r io.Reader, size int64, attrs int, now time.Time) error {
	firstCluster, err := v.writeFileData(r, size)
	if err != nil {
		return err
	}

	entry := &direntory.Entry{
		AttributeFlags: attrs,
		FirstCluster:   firstCluster,
		FileSize:       size,
		CreatedAt:      truncateToFATResolution(now),
		ModifiedAt:     truncateToFATResolution(now),
		AccessedAt:     truncateToFATResolution(now),
	}
	data, err := direntory.Encode(entry, name, ext)
	if err != nil {
		return err
	}

	region, err := v.readRegionBytes(parentCluster)
	if err != nil {
		return err
	}
	region, offset, err := v.findFreeSlotOffset(parentCluster, region)
	if err != nil {
		return err
	}
	copy(region[offset:offset+direntory.EntrySize], data)

	return v.writeDirectoryRegion(parentCluster, region)
}

func (v *Volume) overwriteFile(parentCluster int, existing *direntory.Entry, r io.Reader, size int64, attrs int, now time.Time) error {
	if existing.FirstCluster != 0 {
		chain, err := v.fats[0].FollowChain(existing.FirstCluster)
		if err == nil {
			v.alloc.FreeChain(chain)
			v.dirtyFAT = true
		}
	}

	firstCluster, err := v.writeFileData(r, size)
	if err != nil {
		return err
	}

	name, ext, err := direntory.ValidateFilename(existing.Name)
	if err != nil {
		return err
	}
	entry := &direntory.Entry{
		AttributeFlags: attrs,
		FirstCluster:   firstCluster,
		FileSize:       size,
		CreatedAt:      existing.CreatedAt,
		ModifiedAt:     truncateToFATResolution(now),
		AccessedAt:     truncateToFATResolution(now),
	}
	return v.replaceEntry(parentCluster, existing, entry, name, ext)
}

// replaceEntry finds existing's slot in parentCluster's directory region
// by first-cluster identity and overwrites it with a freshly encoded
// entry, preserving its position.
func (v *Volume) replaceEntry(parentCluster int, existing *direntory.Entry, replacement *direntory.Entry, name, ext string) error {
	region, err := v.readRegionBytes(parentCluster)
	if err != nil {
		return err
	}

	offset, err := v.findEntryOffset(region, existing)
	if err != nil {
		return err
	}

	data, err := direntory.Encode(replacement, name, ext)
	if err != nil {
		return err
	}
	copy(region[offset:offset+direntory.EntrySize], data)
	return v.writeDirectoryRegion(parentCluster, region)
}

// findEntryOffset locates the byte offset of the entry matching target by
// decoding the region afresh and comparing identity on name + first
// cluster, since that pair is unique within one directory.
func (v *Volume) findEntryOffset(region []byte, target *direntory.Entry) (int, error) {
	for offset := 0; offset+direntory.EntrySize <= len(region); offset += direntory.EntrySize {
		chunk := region[offset : offset+direntory.EntrySize]
		e, err := direntory.Decode(chunk)
		if err != nil {
			return 0, err
		}
		if e.IsEnd {
			break
		}
		if e.IsDeleted {
			continue
		}
		if e.Name == target.Name && e.FirstCluster == target.FirstCluster {
			return offset, nil
		}
	}
	return 0, vfaterr.ErrNotExist.WithMessage("entry %q no longer present", target.Name)
}

func (v *Volume) readRegionBytes(cluster int) ([]byte, error) {
	if cluster == 0 {
		out := make([]byte, len(v.rootRegion))
		copy(out, v.rootRegion)
		return out, nil
	}
	return v.readClusterChain(cluster)
}

// Delete removes the file named by internalPath, freeing its cluster
// chain and marking its directory entry deleted. Deleting a directory
// requires Rmdir instead so the empty-check can run.
func (v *Volume) Delete(internalPath string) error {
	if err := v.checkWritable(); err != nil {
		return err
	}

	components := direntory.SplitPath(internalPath)
	parentCluster, last, err := direntory.ResolveParent(v.reader(), components)
	if err != nil {
		return err
	}

	entries, err := v.readDirectory(parentCluster)
	if err != nil {
		return err
	}
	var target *direntory.Entry
	for _, e := range entries {
		if !e.IsDeleted && !e.IsDotEntry() && e.Name == last {
			target = e
			break
		}
	}
	if target == nil {
		return vfaterr.ErrNotExist.WithMessage("%q not found", internalPath)
	}
	if target.IsDirectory() {
		return vfaterr.ErrIsDir.WithMessage("%q is a directory", internalPath)
	}

	if target.FirstCluster != 0 {
		chain, err := v.fats[0].FollowChain(target.FirstCluster)
		if err == nil {
			if err := v.alloc.FreeChain(chain); err != nil {
				return err
			}
			v.dirtyFAT = true
		}
	}

	region, err := v.readRegionBytes(parentCluster)
	if err != nil {
		return err
	}
	offset, err := v.findEntryOffset(region, target)
	if err != nil {
		return err
	}
	deleted := direntory.EncodeDeletedMarker(region[offset : offset+direntory.EntrySize])
	copy(region[offset:offset+direntory.EntrySize], deleted)

	return v.writeDirectoryRegion(parentCluster, region)
}

// SetAttrs replaces the attribute byte of the entry named by internalPath,
// always preserving the AttrDirectory bit regardless of what attrs asks
// for, since clearing it would corrupt the filesystem's view of the tree.
func (v *Volume) SetAttrs(internalPath string, attrs int) error {
	if err := v.checkWritable(); err != nil {
		return err
	}
	return v.updateEntry(internalPath, func(e *direntory.Entry) {
		dirBit := e.AttributeFlags & 0x10
		e.AttributeFlags = (attrs &^ 0x10) | dirBit
	})
}

// Touch updates the modification timestamp of the entry named by
// internalPath to t.
func (v *Volume) Touch(internalPath string, t time.Time) error {
	if err := v.checkWritable(); err != nil {
		return err
	}
	return v.updateEntry(internalPath, func(e *direntory.Entry) {
		e.ModifiedAt = truncateToFATResolution(t)
	})
}

func (v *Volume) updateEntry(internalPath string, mutate func(*direntory.Entry)) error {
	components := direntory.SplitPath(internalPath)
	parentCluster, last, err := direntory.ResolveParent(v.reader(), components)
	if err != nil {
		return err
	}
	entries, err := v.readDirectory(parentCluster)
	if err != nil {
		return err
	}
	var target *direntory.Entry
	for _, e := range entries {
		if !e.IsDeleted && !e.IsDotEntry() && e.Name == last {
			target = e
			break
		}
	}
	if target == nil {
		return vfaterr.ErrNotExist.WithMessage("%q not found", internalPath)
	}

	updated := *target
	mutate(&updated)

	name, ext, err := direntory.ValidateFilename(target.Name)
	if err != nil {
		return err
	}
	return v.replaceEntry(parentCluster, target, &updated, name, ext)
}

// Rename gives the entry named by oldPath the name in newPath, re-encoding
// its name but keeping its cluster chain and timestamps untouched. Both
// paths must name the same parent directory; a rename across directories
// fails with EINVAL.
func (v *Volume) Rename(oldPath, newPath string) error {
	if err := v.checkWritable(); err != nil {
		return err
	}

	oldComponents := direntory.SplitPath(oldPath)
	oldParent, oldLast, err := direntory.ResolveParent(v.reader(), oldComponents)
	if err != nil {
		return err
	}
	newComponents := direntory.SplitPath(newPath)
	newParent, newLast, err := direntory.ResolveParent(v.reader(), newComponents)
	if err != nil {
		return err
	}
	if oldParent != newParent {
		return vfaterr.NewWithMessage(vfaterr.EINVAL, "rename across directories is not supported")
	}

	entries, err := v.readDirectory(oldParent)
	if err != nil {
		return err
	}
	var target *direntory.Entry
	for _, e := range entries {
		if !e.IsDeleted && !e.IsDotEntry() && e.Name == oldLast {
			target = e
			break
		}
	}
	if target == nil {
		return vfaterr.ErrNotExist.WithMessage("%q not found", oldPath)
	}
	for _, e := range entries {
		if !e.IsDeleted && !e.IsDotEntry() && e.Name == newLast {
			return vfaterr.ErrExist.WithMessage("%q already exists", newPath)
		}
	}

	name, ext, err := direntory.ValidateFilename(newLast)
	if err != nil {
		return err
	}
	updated := *target
	return v.replaceEntry(oldParent, target, &updated, name, ext)
}
