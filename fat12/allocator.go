package fat12

import (
	"github.com/boljen/go-bitmap"

	"github.com/v9k/vfat/vfaterr"
)

// Allocator tracks which clusters are free across a Table using an
// in-memory bitmap cache, so repeated allocation doesn't have to rescan
// the whole FAT for every request. The bitmap is a cache, not the source
// of truth: it is rebuilt from the Table on open and kept in sync by every
// allocation and free call that goes through the Allocator.
type Allocator struct {
	table              *Table
	freeBitmap         bitmap.Bitmap
	totalClusters      int
	lastAllocatedIndex int
}

// NewAllocator scans table for clusters 2..totalClusters+1 and builds the
// free-cluster bitmap cache used for first-fit allocation.
func NewAllocator(table *Table, totalClusters int) (*Allocator, error) {
	a := &Allocator{
		table:         table,
		freeBitmap:    bitmap.New(totalClusters),
		totalClusters: totalClusters,
	}
	for i := 0; i < totalClusters; i++ {
		value, err := table.Get(i + 2)
		if err != nil {
			return nil, err
		}
		a.freeBitmap.Set(i, !IsFree(value))
	}
	return a, nil
}

// FreeCount returns the number of clusters currently marked free.
func (a *Allocator) FreeCount() int {
	free := 0
	for i := 0; i < a.totalClusters; i++ {
		if !a.freeBitmap.Get(i) {
			free++
		}
	}
	return free
}

// AllocateSingle finds the first free cluster at or after the cursor left
// by the previous allocation, wrapping around once, marks it used in both
// the bitmap cache and the FAT, and returns its cluster number.
func (a *Allocator) AllocateSingle() (int, error) {
	start := a.lastAllocatedIndex
	for pass := 0; pass < 2; pass++ {
		from, to := start, a.totalClusters
		if pass == 1 {
			from, to = 0, start
		}
		for i := from; i < to; i++ {
			if !a.freeBitmap.Get(i) {
				return a.commitAllocation(i)
			}
		}
	}
	return 0, vfaterr.ErrNoSpace
}

func (a *Allocator) commitAllocation(bitmapIndex int) (int, error) {
	cluster := bitmapIndex + 2
	if err := a.table.Set(cluster, 0xFFF); err != nil {
		return 0, err
	}
	a.freeBitmap.Set(bitmapIndex, true)
	a.lastAllocatedIndex = bitmapIndex + 1
	return cluster, nil
}

// AllocateChain allocates count clusters, linking each to the next so the
// result is a ready-to-use cluster chain, and returns its clusters in
// order. On any failure, clusters already allocated in this call are
// freed before returning the error so partial allocations never leak.
func (a *Allocator) AllocateChain(count int) ([]int, error) {
	if count <= 0 {
		return nil, vfaterr.NewWithMessage(vfaterr.EINVAL, "chain length must be positive, got %d", count)
	}

	clusters := make([]int, 0, count)
	for i := 0; i < count; i++ {
		cluster, err := a.AllocateSingle()
		if err != nil {
			a.FreeChain(clusters)
			return nil, err
		}
		clusters = append(clusters, cluster)
	}

	for i := 0; i < len(clusters)-1; i++ {
		if err := a.table.Set(clusters[i], clusters[i+1]); err != nil {
			a.FreeChain(clusters)
			return nil, err
		}
	}
	return clusters, nil
}

// ExtendChain allocates count additional clusters and links them after
// the last cluster of an existing chain, returning the newly allocated
// clusters.
func (a *Allocator) ExtendChain(lastCluster, count int) ([]int, error) {
	newClusters, err := a.AllocateChain(count)
	if err != nil {
		return nil, err
	}
	if err := a.table.Set(lastCluster, newClusters[0]); err != nil {
		a.FreeChain(newClusters)
		return nil, err
	}
	return newClusters, nil
}

// FreeSingle marks one cluster free in both the FAT and the bitmap cache.
func (a *Allocator) FreeSingle(cluster int) error {
	if cluster < 2 || cluster-2 >= a.totalClusters {
		return vfaterr.NewWithMessage(vfaterr.EINVAL, "cluster %d out of range", cluster)
	}
	if err := a.table.Set(cluster, 0x000); err != nil {
		return err
	}
	a.freeBitmap.Set(cluster-2, false)
	return nil
}

// FreeChain frees every cluster in the slice, ignoring clusters already
// free so a partially-applied free never gets stuck halfway.
func (a *Allocator) FreeChain(clusters []int) error {
	var merr *vfaterr.DriverError
	for _, c := range clusters {
		if err := a.FreeSingle(c); err != nil {
			if de, ok := err.(*vfaterr.DriverError); ok {
				merr = de
			}
		}
	}
	if merr != nil {
		return merr
	}
	return nil
}
