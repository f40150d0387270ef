package volume

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
	"github.com/v9k/vfat/vfattesting"
)

func newVictorVolume(t *testing.T) *Volume {
	t.Helper()
	layout := geometry.VictorFloppyLayout(true, 0)
	device := vfattesting.NewBlankDevice(t, geometry.SectorSize, layout.TotalSectors())
	require.NoError(t, CreateVictorFloppy(device, VictorDoubleSided, "TESTVOL"))

	vol, err := Open(device, layout, false)
	require.NoError(t, err)
	return vol
}

func TestCreateVictorFloppy_RootHasVolumeLabel(t *testing.T) {
	vol := newVictorVolume(t)
	entries, err := vol.readDirectory(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsVolumeLabel())
}

func TestCopyIn_ThenCopyOut_RoundTrip(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	content := bytes.Repeat([]byte("HELLO"), 1000) // 5000 bytes, spans clusters
	require.NoError(t, vol.CopyIn(`\DATA.BIN`, bytes.NewReader(content), int64(len(content)), true, 0, now))

	var out bytes.Buffer
	require.NoError(t, vol.CopyOut(`\DATA.BIN`, &out))
	assert.Equal(t, content, out.Bytes())
}

func TestCopyIn_Overwrite(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()

	require.NoError(t, vol.CopyIn(`\A.TXT`, bytes.NewReader([]byte("first")), 5, true, 0, now))
	require.NoError(t, vol.CopyIn(`\A.TXT`, bytes.NewReader([]byte("second content")), 15, true, 0, now))

	var out bytes.Buffer
	require.NoError(t, vol.CopyOut(`\A.TXT`, &out))
	assert.Equal(t, "second content", out.String())
}

func TestCopyIn_RejectsOverwriteWhenNotRequested(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()

	require.NoError(t, vol.CopyIn(`\A.TXT`, bytes.NewReader([]byte("first")), 5, true, 0, now))
	err := vol.CopyIn(`\A.TXT`, bytes.NewReader([]byte("second")), 6, false, 0, now)
	require.Error(t, err)
	assert.True(t, err.(*vfaterr.DriverError).Is(vfaterr.ErrExist))

	var out bytes.Buffer
	require.NoError(t, vol.CopyOut(`\A.TXT`, &out))
	assert.Equal(t, "first", out.String())
}

func TestCopyIn_AppliesAttrs(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()

	require.NoError(t, vol.CopyIn(`\A.TXT`, bytes.NewReader([]byte("x")), 1, true, geometry.AttrReadOnly, now))

	entry, err := vol.Stat(`\A.TXT`)
	require.NoError(t, err)
	assert.True(t, entry.IsReadOnly())
}

func TestList_ExcludesDeletedAndDotEntries(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()
	require.NoError(t, vol.CopyIn(`\ONE.TXT`, bytes.NewReader([]byte("x")), 1, true, 0, now))
	require.NoError(t, vol.Mkdir(`\SUBDIR`, now))
	require.NoError(t, vol.CopyIn(`\GONE.TXT`, bytes.NewReader([]byte("y")), 1, true, 0, now))
	require.NoError(t, vol.Delete(`\GONE.TXT`))

	entries, err := vol.List("", false)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	assert.True(t, names["ONE.TXT"])
	assert.True(t, names["SUBDIR"])
	assert.Len(t, entries, 2)
}

func TestList_ExcludesVolumeLabel(t *testing.T) {
	vol := newVictorVolume(t)
	entries, err := vol.List("", false)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, e.IsVolumeLabel())
	}
}

func TestList_RecursiveWalksSubdirectories(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()
	require.NoError(t, vol.Mkdir(`\SUB`, now))
	require.NoError(t, vol.CopyIn(`\SUB\NESTED.TXT`, bytes.NewReader([]byte("x")), 1, true, 0, now))
	require.NoError(t, vol.CopyIn(`\TOP.TXT`, bytes.NewReader([]byte("y")), 1, true, 0, now))

	entries, err := vol.List("", true)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	require.Equal(t, []string{"SUB", "NESTED.TXT", "TOP.TXT"}, names)
}

func TestDelete_FreesClusterChain(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()
	content := bytes.Repeat([]byte("Z"), 5000)
	require.NoError(t, vol.CopyIn(`\BIG.BIN`, bytes.NewReader(content), int64(len(content)), true, 0, now))

	before := vol.alloc.FreeCount()
	require.NoError(t, vol.Delete(`\BIG.BIN`))
	after := vol.alloc.FreeCount()
	assert.Greater(t, after, before)

	_, err := vol.Stat(`\BIG.BIN`)
	assert.Error(t, err)
}

func TestMkdir_SeedsDotEntries(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()
	require.NoError(t, vol.Mkdir(`\SUB`, now))

	entry, err := vol.Stat(`\SUB`)
	require.NoError(t, err)
	require.True(t, entry.IsDirectory())

	children, err := vol.readDirectory(entry.FirstCluster)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, ".", children[0].Name)
	assert.Equal(t, "..", children[1].Name)
}

func TestMkdir_NestedFileUnderSubdirectory(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()
	require.NoError(t, vol.Mkdir(`\SUB`, now))
	require.NoError(t, vol.CopyIn(`\SUB\NESTED.TXT`, bytes.NewReader([]byte("hi")), 2, true, 0, now))

	var out bytes.Buffer
	require.NoError(t, vol.CopyOut(`\SUB\NESTED.TXT`, &out))
	assert.Equal(t, "hi", out.String())
}

func TestRmdir_RejectsNonEmpty(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()
	require.NoError(t, vol.Mkdir(`\SUB`, now))
	require.NoError(t, vol.CopyIn(`\SUB\F.TXT`, bytes.NewReader([]byte("x")), 1, true, 0, now))

	err := vol.Rmdir(`\SUB`)
	assert.Error(t, err)
}

func TestRmdir_RemovesEmptyDirectory(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()
	require.NoError(t, vol.Mkdir(`\SUB`, now))
	require.NoError(t, vol.Rmdir(`\SUB`))

	_, err := vol.Stat(`\SUB`)
	assert.Error(t, err)
}

func TestSetAttrs_PreservesDirectoryBit(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()
	require.NoError(t, vol.Mkdir(`\SUB`, now))
	require.NoError(t, vol.SetAttrs(`\SUB`, geometry.AttrReadOnly))

	entry, err := vol.Stat(`\SUB`)
	require.NoError(t, err)
	assert.True(t, entry.IsDirectory())
	assert.True(t, entry.IsReadOnly())
}

func TestRename_WithinSameDirectory(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()
	require.NoError(t, vol.CopyIn(`\OLD.TXT`, bytes.NewReader([]byte("x")), 1, true, 0, now))
	require.NoError(t, vol.Rename(`\OLD.TXT`, `\NEW.TXT`))

	_, err := vol.Stat(`\OLD.TXT`)
	assert.Error(t, err)

	entry, err := vol.Stat(`\NEW.TXT`)
	require.NoError(t, err)
	assert.Equal(t, "NEW.TXT", entry.Name)
}

func TestVerify_CleanVolumeHasNoFindings(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()
	require.NoError(t, vol.CopyIn(`\A.TXT`, bytes.NewReader([]byte("hello")), 5, true, 0, now))
	require.NoError(t, vol.Mkdir(`\SUB`, now))
	require.NoError(t, vol.CopyIn(`\SUB\B.TXT`, bytes.NewReader([]byte("world")), 5, true, 0, now))

	report, err := vol.Verify()
	require.NoError(t, err)
	assert.True(t, report.OK())
}

func TestInfo_ReportsFileAndDirCounts(t *testing.T) {
	vol := newVictorVolume(t)
	now := time.Now()
	require.NoError(t, vol.CopyIn(`\A.TXT`, bytes.NewReader([]byte("x")), 1, true, 0, now))
	require.NoError(t, vol.Mkdir(`\SUB`, now))

	info, err := vol.Info()
	require.NoError(t, err)
	assert.Equal(t, 1, info.FileCount)
	assert.Equal(t, 1, info.DirectoryCount)
}

func TestVerify_DetectsOrphanedCluster(t *testing.T) {
	vol := newVictorVolume(t)
	orphan, err := vol.alloc.AllocateSingle()
	require.NoError(t, err)

	report, err := vol.Verify()
	require.NoError(t, err)
	assert.Contains(t, report.OrphanedClusters, orphan)
	assert.False(t, report.OK())
}

func TestVerify_DetectsFATDivergence(t *testing.T) {
	vol := newVictorVolume(t)
	require.NoError(t, vol.fats[1].Set(2, 0xFFF))

	report, err := vol.Verify()
	require.NoError(t, err)
	require.Len(t, report.FATDivergences, 1)
	assert.Equal(t, 2, report.FATDivergences[0].Cluster)
	assert.False(t, report.OK())
}

func TestInfo_ReportsVolumeLabel(t *testing.T) {
	vol := newVictorVolume(t)
	info, err := vol.Info()
	require.NoError(t, err)
	assert.Equal(t, "TESTVOL", info.Label)
}

func TestReadOnlyVolume_RejectsMutation(t *testing.T) {
	layout := geometry.VictorFloppyLayout(true, 0)
	device := vfattesting.NewBlankDevice(t, geometry.SectorSize, layout.TotalSectors())
	require.NoError(t, CreateVictorFloppy(device, VictorDoubleSided, ""))
	vol, err := Open(device, layout, true)
	require.NoError(t, err)

	err = vol.CopyIn(`\A.TXT`, bytes.NewReader([]byte("x")), 1, true, 0, time.Now())
	assert.Error(t, err)
}
