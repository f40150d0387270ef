package fat12

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(totalClusters int) *Table {
	size := totalClusters + totalClusters/2 + 8
	return NewTable(make([]byte, size), totalClusters)
}

func TestSetGetRoundTrip_EvenCluster(t *testing.T) {
	tbl := newTestTable(10)
	require.NoError(t, tbl.Set(4, 0xABC))
	got, err := tbl.Get(4)
	require.NoError(t, err)
	assert.Equal(t, 0xABC, got)
}

func TestSetGetRoundTrip_OddCluster(t *testing.T) {
	tbl := newTestTable(10)
	require.NoError(t, tbl.Set(5, 0x123))
	got, err := tbl.Get(5)
	require.NoError(t, err)
	assert.Equal(t, 0x123, got)
}

func TestSetDoesNotClobberNeighbor(t *testing.T) {
	tbl := newTestTable(10)
	require.NoError(t, tbl.Set(4, 0xFFF))
	require.NoError(t, tbl.Set(5, 0x001))

	v4, err := tbl.Get(4)
	require.NoError(t, err)
	v5, err := tbl.Get(5)
	require.NoError(t, err)
	assert.Equal(t, 0xFFF, v4)
	assert.Equal(t, 0x001, v5)
}

func TestGet_RejectsOutOfRangeCluster(t *testing.T) {
	tbl := newTestTable(10)
	_, err := tbl.Get(9999)
	assert.Error(t, err)
}

func TestFollowChain_Simple(t *testing.T) {
	tbl := newTestTable(10)
	require.NoError(t, tbl.Set(2, 3))
	require.NoError(t, tbl.Set(3, 4))
	require.NoError(t, tbl.Set(4, 0xFFF))

	chain, err := tbl.FollowChain(2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, chain)
}

func TestFollowChain_DetectsCycle(t *testing.T) {
	tbl := newTestTable(10)
	require.NoError(t, tbl.Set(2, 3))
	require.NoError(t, tbl.Set(3, 2))

	_, err := tbl.FollowChain(2)
	assert.Error(t, err)
}

func TestFollowChain_RejectsFreeLink(t *testing.T) {
	tbl := newTestTable(10)
	require.NoError(t, tbl.Set(2, 0))

	_, err := tbl.FollowChain(2)
	assert.Error(t, err)
}

func TestClone_IsIndependent(t *testing.T) {
	tbl := newTestTable(10)
	require.NoError(t, tbl.Set(2, 5))
	clone := tbl.Clone()
	require.NoError(t, clone.Set(2, 9))

	orig, _ := tbl.Get(2)
	cloned, _ := clone.Get(2)
	assert.Equal(t, 5, orig)
	assert.Equal(t, 9, cloned)
}
