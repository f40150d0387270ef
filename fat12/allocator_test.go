package fat12

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateSingle_FirstFit(t *testing.T) {
	tbl := newTestTable(10)
	alloc, err := NewAllocator(tbl, 10)
	require.NoError(t, err)

	c, err := alloc.AllocateSingle()
	require.NoError(t, err)
	assert.Equal(t, 2, c)

	c2, err := alloc.AllocateSingle()
	require.NoError(t, err)
	assert.Equal(t, 3, c2)
}

func TestAllocateSingle_SkipsAlreadyUsed(t *testing.T) {
	tbl := newTestTable(10)
	require.NoError(t, tbl.Set(2, 0xFFF)) // cluster 2 pre-used
	alloc, err := NewAllocator(tbl, 10)
	require.NoError(t, err)

	c, err := alloc.AllocateSingle()
	require.NoError(t, err)
	assert.Equal(t, 3, c)
}

func TestAllocateSingle_ExhaustsSpace(t *testing.T) {
	tbl := newTestTable(2)
	alloc, err := NewAllocator(tbl, 2)
	require.NoError(t, err)

	_, err = alloc.AllocateSingle()
	require.NoError(t, err)
	_, err = alloc.AllocateSingle()
	require.NoError(t, err)
	_, err = alloc.AllocateSingle()
	assert.Error(t, err)
}

func TestAllocateChain_LinksClusters(t *testing.T) {
	tbl := newTestTable(10)
	alloc, err := NewAllocator(tbl, 10)
	require.NoError(t, err)

	chain, err := alloc.AllocateChain(3)
	require.NoError(t, err)
	require.Len(t, chain, 3)

	walked, err := tbl.FollowChain(chain[0])
	require.NoError(t, err)
	assert.Equal(t, chain, walked)
}

func TestAllocateChain_RollsBackOnFailure(t *testing.T) {
	tbl := newTestTable(3)
	alloc, err := NewAllocator(tbl, 3)
	require.NoError(t, err)

	_, err = alloc.AllocateChain(5)
	assert.Error(t, err)
	assert.Equal(t, 3, alloc.FreeCount())
}

func TestFreeSingle_ThenReallocate(t *testing.T) {
	tbl := newTestTable(3)
	alloc, err := NewAllocator(tbl, 3)
	require.NoError(t, err)

	c, err := alloc.AllocateSingle()
	require.NoError(t, err)
	require.NoError(t, alloc.FreeSingle(c))

	value, err := tbl.Get(c)
	require.NoError(t, err)
	assert.Equal(t, 0, value)

	// The cursor sits past c, so c comes back once the scan wraps around.
	for i := 0; i < 2; i++ {
		_, err = alloc.AllocateSingle()
		require.NoError(t, err)
	}
	again, err := alloc.AllocateSingle()
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestExtendChain_AppendsAfterLastCluster(t *testing.T) {
	tbl := newTestTable(10)
	alloc, err := NewAllocator(tbl, 10)
	require.NoError(t, err)

	chain, err := alloc.AllocateChain(2)
	require.NoError(t, err)

	added, err := alloc.ExtendChain(chain[len(chain)-1], 2)
	require.NoError(t, err)
	require.Len(t, added, 2)

	full, err := tbl.FollowChain(chain[0])
	require.NoError(t, err)
	assert.Equal(t, append(chain, added...), full)
}
