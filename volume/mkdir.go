package volume

import (
	"time"

	"github.com/v9k/vfat/direntory"
	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
)

// Mkdir creates a subdirectory named by internalPath, seeding it with "."
// and ".." entries the way every FAT filesystem does.
func (v *Volume) Mkdir(internalPath string, now time.Time) error {
	if err := v.checkWritable(); err != nil {
		return err
	}

	components := direntory.SplitPath(internalPath)
	parentCluster, last, err := direntory.ResolveParent(v.reader(), components)
	if err != nil {
		return err
	}
	name, ext, err := direntory.ValidateFilename(last)
	if err != nil {
		return err
	}

	entries, err := v.readDirectory(parentCluster)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDeleted && !e.IsDotEntry() && e.Name == trimmedJoin(name, ext) {
			return vfaterr.ErrExist.WithMessage("%q already exists", internalPath)
		}
	}

	chain, err := v.alloc.AllocateChain(1)
	if err != nil {
		return err
	}
	v.dirtyFAT = true
	selfCluster := chain[0]

	if err := v.seedDotEntries(selfCluster, parentCluster, now); err != nil {
		v.alloc.FreeChain(chain)
		return err
	}

	entry := &direntory.Entry{
		AttributeFlags: geometry.AttrDirectory,
		FirstCluster:   selfCluster,
		CreatedAt:      truncateToFATResolution(now),
		ModifiedAt:     truncateToFATResolution(now),
		AccessedAt:     truncateToFATResolution(now),
	}
	data, err := direntory.Encode(entry, name, ext)
	if err != nil {
		v.alloc.FreeChain(chain)
		return err
	}

	region, err := v.readRegionBytes(parentCluster)
	if err != nil {
		v.alloc.FreeChain(chain)
		return err
	}
	region, offset, err := v.findFreeSlotOffset(parentCluster, region)
	if err != nil {
		v.alloc.FreeChain(chain)
		return err
	}
	copy(region[offset:offset+direntory.EntrySize], data)

	return v.writeDirectoryRegion(parentCluster, region)
}

func (v *Volume) seedDotEntries(selfCluster, parentCluster int, now time.Time) error {
	region := make([]byte, v.layout.ClusterSize)

	dot := &direntory.Entry{
		AttributeFlags: geometry.AttrDirectory,
		FirstCluster:   selfCluster,
		CreatedAt:      truncateToFATResolution(now),
		ModifiedAt:     truncateToFATResolution(now),
	}
	dotData, err := direntory.Encode(dot, ".       ", "   ")
	if err != nil {
		return err
	}
	copy(region[0:direntory.EntrySize], dotData)

	dotdot := &direntory.Entry{
		AttributeFlags: geometry.AttrDirectory,
		FirstCluster:   parentCluster,
		CreatedAt:      truncateToFATResolution(now),
		ModifiedAt:     truncateToFATResolution(now),
	}
	dotdotData, err := direntory.Encode(dotdot, "..      ", "   ")
	if err != nil {
		return err
	}
	copy(region[direntory.EntrySize:2*direntory.EntrySize], dotdotData)

	return v.writeDirectoryRegion(selfCluster, region)
}

// Rmdir removes an empty subdirectory named by internalPath. The root
// directory can never be removed.
func (v *Volume) Rmdir(internalPath string) error {
	if err := v.checkWritable(); err != nil {
		return err
	}

	components := direntory.SplitPath(internalPath)
	if len(components) == 0 {
		return vfaterr.NewWithMessage(vfaterr.EINVAL, "cannot remove the root directory")
	}
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
	if !target.IsDirectory() {
		return vfaterr.ErrNotDir.WithMessage("%q is not a directory", internalPath)
	}

	children, err := v.readDirectory(target.FirstCluster)
	if err != nil {
		return err
	}
	for _, c := range children {
		if !c.IsDeleted && !c.IsDotEntry() {
			return vfaterr.NewWithMessage(vfaterr.EINVAL, "%q is not empty", internalPath)
		}
	}

	chain, err := v.fats[0].FollowChain(target.FirstCluster)
	if err == nil {
		if err := v.alloc.FreeChain(chain); err != nil {
			return err
		}
		v.dirtyFAT = true
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
