// Package fat12 implements the 12-bit File Allocation Table codec shared
// by Victor 9000 and IBM PC FAT12 volumes: entry packing, chain walking,
// and first-fit cluster allocation.
package fat12

import (
	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
)

// Table is an in-memory decode of one FAT copy. Packed 12-bit entries are
// addressed by cluster number; two clusters share three bytes.
type Table struct {
	raw           []byte
	totalClusters int
}

// NewTable wraps raw FAT sector bytes. raw is retained, not copied; callers
// that need to stage edits before committing should clone it first.
func NewTable(raw []byte, totalClusters int) *Table {
	return &Table{raw: raw, totalClusters: totalClusters}
}

// Bytes returns the table's backing storage.
func (t *Table) Bytes() []byte {
	return t.raw
}

// Clone returns a Table backed by an independent copy of the FAT bytes,
// for staging speculative edits that might be rolled back.
func (t *Table) Clone() *Table {
	buf := make([]byte, len(t.raw))
	copy(buf, t.raw)
	return &Table{raw: buf, totalClusters: t.totalClusters}
}

func (t *Table) checkRange(cluster int) error {
	if cluster < 0 || cluster >= t.totalClusters+2 {
		return vfaterr.NewWithMessage(vfaterr.EINVAL, "cluster %d out of range [0, %d)", cluster, t.totalClusters+2)
	}
	return nil
}

// Get returns the raw 12-bit value stored at the given cluster index.
// Cluster 0 and 1 hold the media descriptor and a reserved value
// respectively, same as every other FAT12 filesystem.
func (t *Table) Get(cluster int) (int, error) {
	if err := t.checkRange(cluster); err != nil {
		return 0, err
	}
	offset := cluster + cluster/2
	if offset+1 >= len(t.raw) {
		return 0, vfaterr.ErrCorruptChain.WithMessage("FAT truncated before cluster %d", cluster)
	}
	if cluster%2 == 0 {
		return int(t.raw[offset]) | (int(t.raw[offset+1]&0x0F) << 8), nil
	}
	return int(t.raw[offset]>>4) | (int(t.raw[offset+1]) << 4), nil
}

// Set stores a 12-bit value at the given cluster index, preserving the
// nibble shared with its neighboring cluster.
func (t *Table) Set(cluster int, value int) error {
	if err := t.checkRange(cluster); err != nil {
		return err
	}
	if value < 0 || value > 0xFFF {
		return vfaterr.NewWithMessage(vfaterr.EINVAL, "FAT value %#x out of 12-bit range", value)
	}
	offset := cluster + cluster/2
	if offset+1 >= len(t.raw) {
		return vfaterr.ErrCorruptChain.WithMessage("FAT truncated before cluster %d", cluster)
	}
	if cluster%2 == 0 {
		t.raw[offset] = byte(value & 0xFF)
		t.raw[offset+1] = (t.raw[offset+1] & 0xF0) | byte((value>>8)&0x0F)
	} else {
		t.raw[offset] = (t.raw[offset] & 0x0F) | byte((value&0x0F)<<4)
		t.raw[offset+1] = byte((value >> 4) & 0xFF)
	}
	return nil
}

// IsFree reports whether a FAT entry value denotes an unallocated cluster.
func IsFree(value int) bool { return value == geometry.FATFree }

// IsEndOfChain reports whether a FAT entry value marks the last cluster
// in a chain.
func IsEndOfChain(value int) bool { return value >= geometry.FATEOFMin && value <= geometry.FATEOFMax }

// IsBad reports whether a FAT entry value marks a cluster as unusable.
func IsBad(value int) bool { return value == geometry.FATBad }

// FollowChain walks the cluster chain starting at start, returning every
// cluster visited in order. It detects cycles and out-of-range links so a
// corrupt FAT can never cause an infinite loop or a panic.
func (t *Table) FollowChain(start int) ([]int, error) {
	if start < 2 {
		return nil, vfaterr.ErrCorruptChain.WithMessage("chain start %d is below first usable cluster 2", start)
	}

	var chain []int
	seen := make(map[int]bool)
	cluster := start

	for {
		if seen[cluster] {
			return nil, vfaterr.ErrCorruptChain.WithMessage("cycle detected in cluster chain at %d", cluster)
		}
		if cluster < 0x002 || cluster > 0xFEF {
			return nil, vfaterr.ErrCorruptChain.WithMessage("cluster %d outside valid chain range", cluster)
		}
		seen[cluster] = true
		chain = append(chain, cluster)

		value, err := t.Get(cluster)
		if err != nil {
			return nil, err
		}
		if IsEndOfChain(value) {
			break
		}
		if IsFree(value) || IsBad(value) {
			return nil, vfaterr.ErrCorruptChain.WithMessage("chain from %d hit invalid link %#x at cluster %d", start, value, cluster)
		}
		cluster = value
	}

	return chain, nil
}
