package main

import (
	"strconv"
	"strings"

	"github.com/v9k/vfat/vfaterr"
)

// PathSpec is a parsed "image.img" | "image.img:\..." |
// "image.img:N:\..." path expression. Partition is nil unless the
// expression named a partition selector.
type PathSpec struct {
	ImagePath    string
	Partition    *int
	InternalPath string
}

// ParsePathSpec splits a CLI path expression into its image file, an
// optional zero-based Victor hard-disk partition selector, and the
// internal filesystem path.
func ParsePathSpec(expr string) (*PathSpec, error) {
	colon := strings.IndexByte(expr, ':')
	if colon < 0 {
		return &PathSpec{ImagePath: expr}, nil
	}

	spec := &PathSpec{ImagePath: expr[:colon]}
	rest := expr[colon+1:]

	if rest == "" || rest[0] == '\\' || rest[0] == '/' {
		spec.InternalPath = rest
		return spec, nil
	}

	nextColon := strings.IndexByte(rest, ':')
	if nextColon < 0 {
		return nil, vfaterr.NewWithMessage(vfaterr.EINVAL, "malformed path expression %q", expr)
	}
	indexPart := rest[:nextColon]
	index, err := strconv.Atoi(indexPart)
	if err != nil || index < 0 {
		return nil, vfaterr.NewWithMessage(vfaterr.EINVAL, "invalid partition selector %q in %q", indexPart, expr)
	}
	spec.Partition = &index
	spec.InternalPath = rest[nextColon+1:]
	return spec, nil
}
