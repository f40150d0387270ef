// Package direntory implements the 32-byte FAT directory entry codec,
// 8.3 filename rules, wildcard matching, and path resolution shared by
// every FAT12 volume format this engine supports.
package direntory

import (
	"os"
	"strings"
	"time"

	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
)

// EntrySize is the size in bytes of one on-disk directory entry.
const EntrySize = geometry.DirEntrySize

// fatEpoch is the earliest representable FAT timestamp, 1980-01-01.
var fatEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// RawEntry is the on-disk layout of a 32-byte directory entry, broken
// into its constituent fields with no interpretation applied yet.
type RawEntry struct {
	Name             [8]byte
	Extension        [3]byte
	AttributeFlags   uint8
	Reserved         uint8
	CreateTimeMillis uint8
	CreateTime       uint16
	CreateDate       uint16
	LastAccessDate   uint16
	FirstClusterHigh uint16
	ModifyTime       uint16
	ModifyDate       uint16
	FirstClusterLow  uint16
	FileSize         uint32
}

// Entry is a directory entry in user-friendly form: names decoded,
// timestamps converted to time.Time, and sentinel first bytes resolved.
type Entry struct {
	Name           string // "NAME.EXT", dot already inserted
	RawName        string // 8-char space-padded base name, as stored
	RawExtension   string // 3-char space-padded extension, as stored
	AttributeFlags int
	FirstCluster   int
	FileSize       int64
	CreatedAt      time.Time
	ModifiedAt     time.Time
	AccessedAt     time.Time

	IsDeleted bool
	IsEnd     bool
}

// IsLongName reports whether this entry's attribute byte is the exact VFAT
// long-filename marker (0x0F), not just the AttrVolume|AttrSystem|AttrHidden|
// AttrReadOnly bits it happens to set.
func (e *Entry) IsLongName() bool    { return e.AttributeFlags == geometry.AttrLongName }
func (e *Entry) IsDirectory() bool   { return e.AttributeFlags&geometry.AttrDirectory != 0 }
func (e *Entry) IsVolumeLabel() bool { return e.AttributeFlags&geometry.AttrVolume != 0 }
func (e *Entry) IsReadOnly() bool    { return e.AttributeFlags&geometry.AttrReadOnly != 0 }
func (e *Entry) IsHidden() bool      { return e.AttributeFlags&geometry.AttrHidden != 0 }
func (e *Entry) IsSystem() bool      { return e.AttributeFlags&geometry.AttrSystem != 0 }
func (e *Entry) IsArchive() bool     { return e.AttributeFlags&geometry.AttrArchive != 0 }

// IsDotEntry reports whether this entry is "." or "..".
func (e *Entry) IsDotEntry() bool {
	return strings.HasPrefix(e.Name, ".")
}

// AttrString renders the attribute flags as a short letter code, e.g.
// "RHSDA", matching the convention DOS-family tools use in listings.
func (e *Entry) AttrString() string {
	var sb strings.Builder
	if e.IsReadOnly() {
		sb.WriteByte('R')
	}
	if e.IsHidden() {
		sb.WriteByte('H')
	}
	if e.IsSystem() {
		sb.WriteByte('S')
	}
	if e.IsDirectory() {
		sb.WriteByte('D')
	}
	if e.IsArchive() {
		sb.WriteByte('A')
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}

// FileMode converts the attribute flags into an os.FileMode, used when
// exposing entries through os.FileInfo-shaped wrappers.
func (e *Entry) FileMode() os.FileMode {
	var mode os.FileMode
	if e.IsReadOnly() {
		mode = 0o555
	} else {
		mode = 0o777
	}
	if e.IsDirectory() {
		mode |= os.ModeDir
	}
	return mode
}

// decodeLatin1 converts raw bytes into a string by mapping each byte to
// the Unicode code point of the same value, the behavior needed to
// losslessly round-trip any byte FAT permits in a filename field.
func decodeLatin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// encodeLatin1 is the inverse of decodeLatin1: every rune must be <= 0xFF.
func encodeLatin1(s string) ([]byte, error) {
	runes := []rune(s)
	out := make([]byte, len(runes))
	for i, r := range runes {
		if r > 0xFF {
			return nil, vfaterr.NewWithMessage(vfaterr.EINVAL, "character %q is not representable in Latin-1", r)
		}
		out[i] = byte(r)
	}
	return out, nil
}

// dateFromUint16 converts a packed FAT date into a time.Time at midnight.
func dateFromUint16(value uint16) time.Time {
	day := int(value & 0x1f)
	month := time.Month((value >> 5) & 0x0f)
	year := 1980 + int(value>>9)
	if day == 0 {
		day = 1
	}
	if month == 0 {
		month = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// dateToUint16 packs a time.Time into the FAT date format.
func dateToUint16(t time.Time) uint16 {
	year := t.Year() - 1980
	if year < 0 {
		year = 0
	}
	return uint16(year<<9) | uint16(int(t.Month())<<5) | uint16(t.Day())
}

// timeFromParts converts a packed FAT date/time pair into a time.Time.
func timeFromParts(datePart, timePart uint16, hundredths uint8) time.Time {
	d := dateFromUint16(datePart)
	seconds := int(timePart&0x1f) * 2
	if hundredths >= 100 {
		seconds++
	}
	minutes := int((timePart >> 5) & 0x3f)
	hours := int(timePart >> 11)
	return time.Date(d.Year(), d.Month(), d.Day(), hours, minutes, seconds, 0, time.UTC)
}

// timeToParts packs a time.Time into FAT date and time fields.
func timeToParts(t time.Time) (date, clock uint16) {
	date = dateToUint16(t)
	clock = uint16(t.Hour()<<11) | uint16(t.Minute()<<5) | uint16(t.Second()/2)
	return
}
