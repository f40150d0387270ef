// Package vfaterr defines the error taxonomy shared by every layer of the
// image engine. It follows a two-part design: a small POSIX-flavored Errno
// enumeration for conditions that map cleanly onto errno codes, extended
// with filesystem-specific codes for conditions errno never had to name
// (corrupt labels, cross-linked clusters, and the like).
package vfaterr

import "fmt"

// Errno is a compact error code, modeled on POSIX errno but extended with
// values specific to FAT12 image handling that have no POSIX equivalent.
type Errno int

const (
	EOK Errno = iota
	EPERM
	ENOENT
	EIO
	EEXIST
	ENOTDIR
	EISDIR
	EINVAL
	ENOSPC
	EROFS
	EACCES

	// Filesystem-specific codes, not part of POSIX. Numbered from 100 +
	// iota so they sit clear of the standard block's values.
	EUNKNOWNFORMAT Errno = 100 + iota
	ECORRUPTLABEL
	ECORRUPTBOOTSECTOR
	ECORRUPTCHAIN
	ECROSSLINK
	EDIRFULL
	EPARTITIONREQUIRED
	EPARTITIONRANGE
	EAMBIGUOUS
)

var errorMessagesByCode = map[Errno]string{
	EOK:                 "success",
	EPERM:               "operation not permitted",
	ENOENT:              "no such file or directory",
	EIO:                 "input/output error",
	EEXIST:              "file exists",
	ENOTDIR:             "not a directory",
	EISDIR:              "is a directory",
	EINVAL:              "invalid argument",
	ENOSPC:              "no space left on device",
	EROFS:               "read-only file system",
	EACCES:              "permission denied",
	EUNKNOWNFORMAT:      "unrecognized disk image format",
	ECORRUPTLABEL:       "corrupt Victor disk label",
	ECORRUPTBOOTSECTOR:  "corrupt boot sector",
	ECORRUPTCHAIN:       "corrupt FAT cluster chain",
	ECROSSLINK:          "cross-linked cluster",
	EDIRFULL:            "directory is full",
	EPARTITIONREQUIRED:  "a partition index is required for this image",
	EPARTITIONRANGE:     "partition index out of range",
	EAMBIGUOUS:          "ambiguous directory entry match",
}

// StrError returns the default human-readable message for an Errno.
func StrError(e Errno) string {
	if msg, ok := errorMessagesByCode[e]; ok {
		return msg
	}
	return fmt.Sprintf("unknown error %d", int(e))
}
