package direntory

import (
	"encoding/binary"

	"github.com/noxer/bytewriter"

	"github.com/v9k/vfat/vfaterr"
)

// DecodeRaw unpacks 32 bytes into a RawEntry.
func DecodeRaw(data []byte) (*RawEntry, error) {
	if len(data) != EntrySize {
		return nil, vfaterr.NewWithMessage(vfaterr.EINVAL, "directory entry is %d bytes, want %d", len(data), EntrySize)
	}

	raw := &RawEntry{
		AttributeFlags:   data[11],
		Reserved:         data[12],
		CreateTimeMillis: data[13],
		CreateTime:       binary.LittleEndian.Uint16(data[14:16]),
		CreateDate:       binary.LittleEndian.Uint16(data[16:18]),
		LastAccessDate:   binary.LittleEndian.Uint16(data[18:20]),
		FirstClusterHigh: binary.LittleEndian.Uint16(data[20:22]),
		ModifyTime:       binary.LittleEndian.Uint16(data[22:24]),
		ModifyDate:       binary.LittleEndian.Uint16(data[24:26]),
		FirstClusterLow:  binary.LittleEndian.Uint16(data[26:28]),
		FileSize:         binary.LittleEndian.Uint32(data[28:32]),
	}
	copy(raw.Name[:], data[0:8])
	copy(raw.Extension[:], data[8:11])
	return raw, nil
}

// EncodeRaw packs a RawEntry back into 32 bytes. It writes field-by-field
// with binary.Write into a fixed-size buffer obtained from bytewriter, the
// same low-level approach the rest of this engine uses for structured
// binary output.
func EncodeRaw(raw *RawEntry) ([]byte, error) {
	buf := make([]byte, EntrySize)
	w := bytewriter.New(buf)

	fields := []interface{}{
		raw.Name, raw.Extension, raw.AttributeFlags, raw.Reserved,
		raw.CreateTimeMillis, raw.CreateTime, raw.CreateDate, raw.LastAccessDate,
		raw.FirstClusterHigh, raw.ModifyTime, raw.ModifyDate, raw.FirstClusterLow,
		raw.FileSize,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return nil, vfaterr.NewFromError(vfaterr.EIO, err)
		}
	}
	return buf, nil
}

// Decode converts a raw 32-byte entry into its user-facing form. A
// first-byte sentinel of 0x00 marks the entry, and every entry after it in
// the directory, as never having been used; 0xE5 marks it deleted with the
// true first character escaped into CreateTimeMillis; 0x05 marks a literal
// 0xE5 as the first character of an in-use name.
func Decode(data []byte) (*Entry, error) {
	raw, err := DecodeRaw(data)
	if err != nil {
		return nil, err
	}
	return fromRaw(raw), nil
}

func fromRaw(raw *RawEntry) *Entry {
	if raw.Name[0] == 0x00 {
		return &Entry{IsEnd: true}
	}

	firstCluster := int(raw.FirstClusterHigh)<<16 | int(raw.FirstClusterLow)
	name := decodeLatin1(raw.Name[:])
	ext := decodeLatin1(raw.Extension[:])
	isDeleted := raw.Name[0] == 0xE5

	if isDeleted {
		name = string(rune(raw.CreateTimeMillis)) + string([]rune(name)[1:])
	} else if raw.Name[0] == 0x05 {
		name = "å" + name[1:]
	}

	trimmedName := trimRight(name)
	trimmedExt := trimRight(ext)

	fullName := trimmedName
	if trimmedExt != "" {
		fullName = trimmedName + "." + trimmedExt
	}

	e := &Entry{
		Name:           fullName,
		RawName:        name,
		RawExtension:   ext,
		AttributeFlags: int(raw.AttributeFlags),
		FirstCluster:   firstCluster,
		FileSize:       int64(raw.FileSize),
		IsDeleted:      isDeleted,
	}

	if !isDeleted {
		e.CreatedAt = timeFromParts(raw.CreateDate, raw.CreateTime, raw.CreateTimeMillis)
	}
	e.ModifiedAt = timeFromParts(raw.ModifyDate, raw.ModifyTime, 0)
	e.AccessedAt = dateFromUint16(raw.LastAccessDate)

	return e
}

func trimRight(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == ' ' {
		i--
	}
	return s[:i]
}

// Encode converts an Entry back into its 32-byte on-disk form. name and
// ext must already be validated, uppercased, and space-padded to 8 and 3
// characters respectively by ValidateFilename.
func Encode(e *Entry, name, ext string) ([]byte, error) {
	nameBytes, err := encodeLatin1(name)
	if err != nil {
		return nil, err
	}
	extBytes, err := encodeLatin1(ext)
	if err != nil {
		return nil, err
	}
	if len(nameBytes) != 8 || len(extBytes) != 3 {
		return nil, vfaterr.NewWithMessage(vfaterr.EINVAL, "name/extension must be pre-padded to 8/3 chars")
	}

	raw := &RawEntry{
		AttributeFlags:   uint8(e.AttributeFlags),
		FirstClusterHigh: uint16(e.FirstCluster >> 16),
		FirstClusterLow:  uint16(e.FirstCluster & 0xFFFF),
		FileSize:         uint32(e.FileSize),
	}
	copy(raw.Name[:], nameBytes)
	copy(raw.Extension[:], extBytes)

	if !e.CreatedAt.IsZero() {
		raw.CreateDate, raw.CreateTime = timeToParts(e.CreatedAt)
	}
	if !e.ModifiedAt.IsZero() {
		raw.ModifyDate, raw.ModifyTime = timeToParts(e.ModifiedAt)
	}
	if !e.AccessedAt.IsZero() {
		raw.LastAccessDate = dateToUint16(e.AccessedAt)
	}

	return EncodeRaw(raw)
}

// EncodeEndMarker returns a 32-byte entry whose first byte is the 0x00
// end-of-directory sentinel, the value written to terminate a directory
// region after the last live entry.
func EncodeEndMarker() []byte {
	return make([]byte, EntrySize)
}

// EncodeDeletedMarker returns data with its first byte rewritten to the
// 0xE5 deleted sentinel, preserving the rest of the entry so undelete
// tools (not implemented here) could still make sense of it.
func EncodeDeletedMarker(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	out[0] = 0xE5
	return out
}

// DecodeDirectory splits a byte region into individual Entry values,
// stopping at (but not including) the first end-of-directory marker. VFAT
// long-filename entries (attribute byte exactly 0x0F) are silently
// skipped rather than surfaced as garbled 8.3 entries.
func DecodeDirectory(region []byte) ([]*Entry, error) {
	var entries []*Entry
	for offset := 0; offset+EntrySize <= len(region); offset += EntrySize {
		chunk := region[offset : offset+EntrySize]
		e, err := Decode(chunk)
		if err != nil {
			return nil, err
		}
		if e.IsEnd {
			break
		}
		if e.IsLongName() {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
