package direntory

import (
	"strings"

	"github.com/v9k/vfat/vfaterr"
)

// DirectoryReader reads the live entries of a directory given its first
// cluster, or of the root directory when cluster is 0. Volume packages
// implement this by following the FAT chain (or reading the fixed root
// region) and decoding it with DecodeDirectory.
type DirectoryReader func(cluster int) ([]*Entry, error)

// SplitPath breaks a backslash- or forward-slash-delimited internal path
// into uppercased components, dropping empty segments produced by a
// leading separator or doubled separators.
func SplitPath(path string) []string {
	path = strings.TrimLeft(path, `\/`)
	if path == "" {
		return nil
	}
	path = strings.ReplaceAll(path, "/", `\`)
	var out []string
	for _, part := range strings.Split(path, `\`) {
		if part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}

// Resolved is the result of walking a path to its final component.
type Resolved struct {
	Entry        *Entry // nil if the path names the root directory itself
	ParentCluster int   // first cluster of the containing directory, 0 for root
}

// Resolve walks components through nested directories starting at the
// root (cluster 0), returning the entry it names. An empty component list
// resolves to the root directory itself (Entry == nil).
func Resolve(read DirectoryReader, components []string) (*Resolved, error) {
	if len(components) == 0 {
		return &Resolved{ParentCluster: 0}, nil
	}

	currentCluster := 0
	for i, comp := range components {
		entries, err := read(currentCluster)
		if err != nil {
			return nil, err
		}

		var match *Entry
		for _, e := range entries {
			if e.IsDeleted || e.IsDotEntry() {
				continue
			}
			if strings.EqualFold(e.Name, comp) {
				if match != nil {
					return nil, vfaterr.ErrAmbiguous.WithMessage("path component %q matches more than one entry", comp)
				}
				match = e
			}
		}
		if match == nil {
			return nil, vfaterr.ErrNotExist.WithMessage("path component %q not found", comp)
		}

		isLast := i == len(components)-1
		if !isLast {
			if !match.IsDirectory() {
				return nil, vfaterr.ErrNotDir.WithMessage("%q is not a directory", comp)
			}
			currentCluster = match.FirstCluster
			continue
		}

		return &Resolved{Entry: match, ParentCluster: currentCluster}, nil
	}

	// Unreachable: the loop above always returns.
	return nil, vfaterr.ErrInvalid
}

// ResolveParent resolves every component but the last, returning the
// cluster of the directory that should contain it and the final,
// un-resolved component name (which may itself carry wildcards).
func ResolveParent(read DirectoryReader, components []string) (parentCluster int, last string, err error) {
	if len(components) == 0 {
		return 0, "", vfaterr.NewWithMessage(vfaterr.EINVAL, "empty path")
	}
	if len(components) == 1 {
		return 0, components[0], nil
	}

	resolved, err := Resolve(read, components[:len(components)-1])
	if err != nil {
		return 0, "", err
	}
	if resolved.Entry != nil && !resolved.Entry.IsDirectory() {
		return 0, "", vfaterr.ErrNotDir
	}
	cluster := 0
	if resolved.Entry != nil {
		cluster = resolved.Entry.FirstCluster
	}
	return cluster, components[len(components)-1], nil
}

// FindMatching resolves a path whose last component may contain wildcards,
// returning every live (non-deleted, non-dot) entry in the named directory
// that matches. A path with no wildcards behaves like Resolve but always
// returns a slice, erroring with EAMBIGUOUS only if asked to via
// requireUnique.
func FindMatching(read DirectoryReader, components []string, requireUnique bool) ([]*Entry, error) {
	parentCluster, pattern, err := ResolveParent(read, components)
	if err != nil {
		return nil, err
	}

	entries, err := read(parentCluster)
	if err != nil {
		return nil, err
	}

	var live []*Entry
	for _, e := range entries {
		if !e.IsDeleted && !e.IsDotEntry() {
			live = append(live, e)
		}
	}

	matches := MatchEntries(live, pattern)
	if len(matches) == 0 {
		return nil, vfaterr.ErrNotExist.WithMessage("no entry matches %q", pattern)
	}
	if requireUnique && len(matches) > 1 {
		return nil, vfaterr.ErrAmbiguous.WithMessage("%q matches %d entries", pattern, len(matches))
	}
	return matches, nil
}
