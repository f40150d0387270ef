package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_KnownSlug(t *testing.T) {
	g, err := Lookup("ibm144")
	require.NoError(t, err)
	assert.Equal(t, 2880, g.TotalSectors)
	assert.Equal(t, 224, g.RootDirEntries)
	assert.Equal(t, 1, g.SectorsPerCluster)
}

func TestLookup_UnknownSlug(t *testing.T) {
	_, err := Lookup("does-not-exist")
	assert.Error(t, err)
}

func TestAll_ReturnsEverySlugOnce(t *testing.T) {
	rows := All()
	seen := map[string]bool{}
	for _, row := range rows {
		assert.False(t, seen[row.Slug], "duplicate slug %q", row.Slug)
		seen[row.Slug] = true
	}
	assert.Equal(t, 6, len(rows))
	assert.True(t, seen["victor-ss"])
	assert.True(t, seen["victor-ds"])
}

func TestVictorGeometry_MatchesFixedLayoutConstants(t *testing.T) {
	ss, err := Lookup("victor-ss")
	require.NoError(t, err)
	assert.Equal(t, 1223, ss.TotalSectors)

	ds, err := Lookup("victor-ds")
	require.NoError(t, err)
	assert.Equal(t, 2389, ds.TotalSectors)
}
