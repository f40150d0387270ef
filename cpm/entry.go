// Package cpm implements read-only access to the CP/M-86 filesystem
// found on some Victor 9000 floppies: directory listing and whole-file
// extraction only. CP/M has no concept of a subdirectory, and this
// package never mutates an image — every entry point that would modify
// one returns vfaterr.ErrReadOnly.
package cpm

import (
	"encoding/binary"
	"strings"

	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
)

// DirectoryEntry is one 32-byte CP/M directory extent. A file larger
// than one extent's worth of data (16 KiB) is represented by several
// entries sharing the same user/filename/extension and an increasing
// Extent number.
type DirectoryEntry struct {
	User        int
	Filename    string
	Extension   string
	Extent      int
	RecordCount int
	Blocks      []int
	IsDeleted   bool
	extRaw      [3]byte
}

// FullName returns "NAME.EXT", or just "NAME" when the extension is
// empty.
func (e *DirectoryEntry) FullName() string {
	if e.Extension != "" {
		return e.Filename + "." + e.Extension
	}
	return e.Filename
}

// IsReadOnly reports the high bit of the first extension byte, which
// CP/M overloads as a read-only flag.
func (e *DirectoryEntry) IsReadOnly() bool { return e.extRaw[0]&0x80 != 0 }

// IsSystem reports the high bit of the second extension byte, CP/M's
// system/hidden flag.
func (e *DirectoryEntry) IsSystem() bool { return e.extRaw[1]&0x80 != 0 }

// ParseDirectoryEntry decodes one 32-byte CP/M directory entry.
func ParseDirectoryEntry(data []byte) (*DirectoryEntry, error) {
	if len(data) != geometry.CPMDirEntrySize {
		return nil, vfaterr.ErrInvalid.WithMessage("CP/M directory entry must be %d bytes, got %d", geometry.CPMDirEntrySize, len(data))
	}

	user := int(data[0])
	isDeleted := user == geometry.CPMDeleted

	entry := &DirectoryEntry{
		User:      user,
		IsDeleted: isDeleted,
		Filename:  strings.TrimRight(maskHighBits(data[1:9]), " "),
		Extension: strings.TrimRight(maskHighBits(data[9:12]), " "),
	}
	copy(entry.extRaw[:], data[9:12])
	if isDeleted {
		entry.User = 0
	}

	el := int(data[12])
	s2 := int(data[14])
	entry.Extent = s2*32 + el
	entry.RecordCount = int(data[15])

	for i := 0; i < 8; i++ {
		block := int(binary.LittleEndian.Uint16(data[16+i*2:]))
		if block != 0 {
			entry.Blocks = append(entry.Blocks, block)
		}
	}

	return entry, nil
}

func maskHighBits(b []byte) string {
	runes := make([]byte, len(b))
	for i, c := range b {
		runes[i] = c & 0x7F
	}
	return string(runes)
}

// isPrintableName reports whether every byte in a masked name/extension
// field is printable ASCII, matching the reference implementation's
// directory-scan filter for garbage entries.
func isPrintableName(s string) bool {
	for _, c := range s {
		if c < 32 || c >= 127 {
			return false
		}
	}
	return true
}
