package volume

import "github.com/v9k/vfat/geometry"

// Info summarizes a volume's geometry and usage for the CLI's "info"
// subcommand.
type Info struct {
	Format            geometry.Format
	Label             string
	TotalClusters     int
	FreeClusters      int
	ClusterSize       int
	SectorsPerCluster int
	FileCount         int
	DirectoryCount    int
	ReadOnly          bool
}

// Info gathers volume statistics in one call.
func (v *Volume) Info() (*Info, error) {
	files, dirs, err := v.countLiveFiles()
	if err != nil {
		return nil, err
	}
	label, err := v.volumeLabel()
	if err != nil {
		return nil, err
	}
	return &Info{
		Format:            v.layout.Format,
		Label:             label,
		TotalClusters:     v.layout.TotalClusters,
		FreeClusters:      v.alloc.FreeCount(),
		ClusterSize:       v.layout.ClusterSize,
		SectorsPerCluster: v.layout.SectorsPerCluster,
		FileCount:         files,
		DirectoryCount:    dirs,
		ReadOnly:          v.readOnly,
	}, nil
}

// volumeLabel scans the root directory for its volume-label entry, caching
// the result on first lookup since the root directory's volume label is
// never expected to change out from under an open Volume.
func (v *Volume) volumeLabel() (string, error) {
	if v.label != "" {
		return v.label, nil
	}
	entries, err := v.readDirectory(0)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.IsDeleted || !e.IsVolumeLabel() {
			continue
		}
		v.label = trimmedJoin(e.RawName, e.RawExtension)
		break
	}
	return v.label, nil
}
