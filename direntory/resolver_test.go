package direntory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeTree() DirectoryReader {
	root := []*Entry{
		{Name: "SUBDIR", AttributeFlags: 0x10, FirstCluster: 10},
		{Name: "FILE.TXT", FirstCluster: 20},
		{Name: "OTHER.DOC", FirstCluster: 21},
	}
	subdir := []*Entry{
		{Name: ".", AttributeFlags: 0x10, FirstCluster: 10},
		{Name: "..", AttributeFlags: 0x10, FirstCluster: 0},
		{Name: "NESTED.BIN", FirstCluster: 30},
	}
	return func(cluster int) ([]*Entry, error) {
		switch cluster {
		case 0:
			return root, nil
		case 10:
			return subdir, nil
		default:
			return nil, nil
		}
	}
}

func TestResolve_RootFile(t *testing.T) {
	resolved, err := Resolve(fakeTree(), []string{"FILE.TXT"})
	require.NoError(t, err)
	require.NotNil(t, resolved.Entry)
	assert.Equal(t, "FILE.TXT", resolved.Entry.Name)
}

func TestResolve_NestedFile(t *testing.T) {
	resolved, err := Resolve(fakeTree(), []string{"SUBDIR", "NESTED.BIN"})
	require.NoError(t, err)
	require.NotNil(t, resolved.Entry)
	assert.Equal(t, "NESTED.BIN", resolved.Entry.Name)
}

func TestResolve_NotFound(t *testing.T) {
	_, err := Resolve(fakeTree(), []string{"NOPE.TXT"})
	assert.Error(t, err)
}

func TestResolve_ComponentNotADirectory(t *testing.T) {
	_, err := Resolve(fakeTree(), []string{"FILE.TXT", "X.TXT"})
	assert.Error(t, err)
}

func TestFindMatching_Wildcard(t *testing.T) {
	matches, err := FindMatching(fakeTree(), []string{"*.TXT"}, false)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "FILE.TXT", matches[0].Name)
}

func TestFindMatching_StarMatchesEverything(t *testing.T) {
	matches, err := FindMatching(fakeTree(), []string{"*"}, false)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestFindMatching_AmbiguousWhenRequiredUnique(t *testing.T) {
	_, err := FindMatching(fakeTree(), []string{"*"}, true)
	assert.Error(t, err)
}
