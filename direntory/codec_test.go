package direntory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	e := &Entry{
		AttributeFlags: 0,
		FirstCluster:   5,
		FileSize:       4096,
		CreatedAt:      time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		ModifiedAt:     time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
	}
	name, ext, err := ValidateFilename("README.TXT")
	require.NoError(t, err)

	data, err := Encode(e, name, ext)
	require.NoError(t, err)
	require.Len(t, data, EntrySize)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "README.TXT", decoded.Name)
	assert.Equal(t, 5, decoded.FirstCluster)
	assert.Equal(t, int64(4096), decoded.FileSize)
}

func TestDecode_EndMarker(t *testing.T) {
	data := EncodeEndMarker()
	e, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, e.IsEnd)
}

func TestDecode_DeletedEntryRecoversFirstChar(t *testing.T) {
	e := &Entry{FirstCluster: 3}
	name, ext, err := ValidateFilename("FOO.TXT")
	require.NoError(t, err)
	data, err := Encode(e, name, ext)
	require.NoError(t, err)

	deleted := EncodeDeletedMarker(data)
	// The true first character is recovered from CreateTimeMillis, which
	// in this unset entry is zero, so the recovered name starts with NUL.
	decoded, err := Decode(deleted)
	require.NoError(t, err)
	assert.True(t, decoded.IsDeleted)
	assert.Equal(t, "\x00OO.TXT", decoded.Name)
}

func TestDecodeDirectory_StopsAtEndMarker(t *testing.T) {
	e1 := &Entry{FirstCluster: 2}
	name1, ext1, _ := ValidateFilename("A.TXT")
	d1, _ := Encode(e1, name1, ext1)

	region := append(d1, EncodeEndMarker()...)
	region = append(region, d1...) // should never be reached

	entries, err := DecodeDirectory(region)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A.TXT", entries[0].Name)
}

func TestDecodeDirectory_SkipsLongNameEntries(t *testing.T) {
	e1 := &Entry{FirstCluster: 2}
	name1, ext1, _ := ValidateFilename("A.TXT")
	d1, _ := Encode(e1, name1, ext1)

	lfn := make([]byte, EntrySize)
	lfn[11] = 0x0F // attribute byte exactly matches the LFN marker
	for i := range lfn[0:11] {
		lfn[i] = 0x41 // filler bytes a naive decode would surface as garbage
	}

	region := append(lfn, d1...)
	region = append(region, EncodeEndMarker()...)

	entries, err := DecodeDirectory(region)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A.TXT", entries[0].Name)
}

func TestValidateFilename_RejectsTooLong(t *testing.T) {
	_, _, err := ValidateFilename("TOOLONGNAME.TXT")
	assert.Error(t, err)
}

func TestValidateFilename_RejectsBadChar(t *testing.T) {
	_, _, err := ValidateFilename("BAD+.TXT")
	assert.Error(t, err)
}

func TestValidateFilename_PadsCorrectly(t *testing.T) {
	name, ext, err := ValidateFilename("A.B")
	require.NoError(t, err)
	assert.Equal(t, "A       ", name)
	assert.Equal(t, "B  ", ext)
}

func TestMatchFilename_StarVsStarDot(t *testing.T) {
	assert.True(t, MatchFilename("*", "README"))
	assert.True(t, MatchFilename("*", "README.TXT"))
	assert.False(t, MatchFilename("*.*", "README"))
	assert.True(t, MatchFilename("*.*", "README.TXT"))
}

func TestMatchFilename_QuestionMark(t *testing.T) {
	assert.True(t, MatchFilename("A?C.TXT", "ABC.TXT"))
	assert.False(t, MatchFilename("A?C.TXT", "ABCD.TXT"))
}

func TestMatchEntries_ExactWhenNoWildcard(t *testing.T) {
	entries := []*Entry{{Name: "FOO.TXT"}, {Name: "FOOBAR.TXT"}}
	matches := MatchEntries(entries, "foo.txt")
	require.Len(t, matches, 1)
	assert.Equal(t, "FOO.TXT", matches[0].Name)
}
