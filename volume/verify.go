package volume

import (
	"sort"

	"github.com/v9k/vfat/fat12"
)

// VerifyReport summarizes the structural checks run against a volume: any
// cluster claimed by more than one file (cross-links), any broken chain
// encountered while walking the directory tree, any mismatch between a
// file's recorded size and the amount of data its chain actually holds,
// any cluster the FAT marks allocated but that no directory entry's chain
// reaches (orphaned), and any cluster where the volume's FAT copies
// disagree on the stored value.
type VerifyReport struct {
	CrossLinkedClusters  []CrossLink
	BrokenChains         []BrokenChain
	SizeMismatches       []SizeMismatch
	OrphanedClusters     []int
	FATDivergences       []FATDivergence
	FreeClustersReported int
	FreeClustersCounted  int
}

// FATDivergence names a cluster index where this volume's FAT copies
// disagree on the stored entry value.
type FATDivergence struct {
	Cluster   int
	FAT1Value int
	FAT2Value int
}

// CrossLink names a cluster claimed by two or more files, with the paths
// of every owner sorted for stable, deterministic reporting.
type CrossLink struct {
	Cluster int
	Owners  []string
}

// BrokenChain names a file whose cluster chain could not be walked.
type BrokenChain struct {
	Path  string
	Cause string
}

// SizeMismatch names a file whose directory-entry size disagrees with the
// number of bytes its cluster chain actually spans.
type SizeMismatch struct {
	Path           string
	RecordedSize   int64
	ChainByteCount int64
}

// OK reports whether the volume passed every check.
func (r *VerifyReport) OK() bool {
	return len(r.CrossLinkedClusters) == 0 && len(r.BrokenChains) == 0 && len(r.SizeMismatches) == 0 &&
		len(r.OrphanedClusters) == 0 && len(r.FATDivergences) == 0
}

// Verify walks the full directory tree from the root, recording every
// cluster visited by every file's chain, and reports any cluster visited
// by more than one file, any chain that fails to walk, and any file whose
// recorded size disagrees with its chain's capacity.
func (v *Volume) Verify() (*VerifyReport, error) {
	report := &VerifyReport{}
	owners := make(map[int][]string)

	var walk func(cluster int, prefix string) error
	walk = func(cluster int, prefix string) error {
		entries, err := v.readDirectory(cluster)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDeleted || e.IsDotEntry() {
				continue
			}
			path := prefix + e.Name

			if e.FirstCluster == 0 {
				if e.IsDirectory() {
					continue // empty directory entry, nothing to walk
				}
				continue
			}

			chain, err := v.fats[0].FollowChain(e.FirstCluster)
			if err != nil {
				report.BrokenChains = append(report.BrokenChains, BrokenChain{Path: path, Cause: err.Error()})
				continue
			}
			for _, c := range chain {
				owners[c] = append(owners[c], path)
			}

			if e.IsDirectory() {
				if err := walk(e.FirstCluster, path+`\`); err != nil {
					return err
				}
				continue
			}

			chainBytes := int64(len(chain)) * int64(v.layout.ClusterSize)
			expectedClusters := (e.FileSize + int64(v.layout.ClusterSize) - 1) / int64(v.layout.ClusterSize)
			if expectedClusters == 0 {
				expectedClusters = 0
			}
			if int64(len(chain)) != expectedClusters && e.FileSize > 0 {
				report.SizeMismatches = append(report.SizeMismatches, SizeMismatch{
					Path: path, RecordedSize: e.FileSize, ChainByteCount: chainBytes,
				})
			}
		}
		return nil
	}

	if err := walk(0, ""); err != nil {
		return nil, err
	}

	var crossLinkedClusters []int
	for cluster, paths := range owners {
		if len(paths) > 1 {
			crossLinkedClusters = append(crossLinkedClusters, cluster)
		}
	}
	sort.Ints(crossLinkedClusters)
	for _, cluster := range crossLinkedClusters {
		paths := owners[cluster]
		sort.Strings(paths)
		report.CrossLinkedClusters = append(report.CrossLinkedClusters, CrossLink{Cluster: cluster, Owners: paths})
	}

	var orphaned []int
	var divergences []FATDivergence
	freeCount := 0
	for c := 2; c < v.layout.TotalClusters+2; c++ {
		value, err := v.fats[0].Get(c)
		if err != nil {
			return nil, err
		}
		switch {
		case fat12.IsFree(value):
			freeCount++
		case !fat12.IsBad(value) && len(owners[c]) == 0:
			orphaned = append(orphaned, c)
		}

		// Pending FAT edits live only in fats[0] until Flush copies it over
		// the other copies, so the copies are compared only when none is
		// pending.
		if len(v.fats) > 1 && !v.dirtyFAT {
			other, err := v.fats[1].Get(c)
			if err != nil {
				return nil, err
			}
			if other != value {
				divergences = append(divergences, FATDivergence{Cluster: c, FAT1Value: value, FAT2Value: other})
			}
		}
	}
	report.OrphanedClusters = orphaned
	report.FATDivergences = divergences

	report.FreeClustersCounted = v.alloc.FreeCount()
	report.FreeClustersReported = freeCount

	return report, nil
}

// countLiveFiles is a small helper used by Info to report file counts
// without duplicating the tree walk in Verify.
func (v *Volume) countLiveFiles() (files, dirs int, err error) {
	var walk func(cluster int) error
	walk = func(cluster int) error {
		entries, err := v.readDirectory(cluster)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDeleted || e.IsDotEntry() || e.IsVolumeLabel() {
				continue
			}
			if e.IsDirectory() {
				dirs++
				if e.FirstCluster != 0 {
					if err := walk(e.FirstCluster); err != nil {
						return err
					}
				}
				continue
			}
			files++
		}
		return nil
	}
	err = walk(0)
	return files, dirs, err
}
