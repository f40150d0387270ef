package volume

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfattesting"
)

func TestCreateIBMFloppy_144MLayout(t *testing.T) {
	device := vfattesting.NewBlankDevice(t, geometry.SectorSize, 2880)
	require.NoError(t, CreateIBMFloppy(device, IBM144M, "MYDISK", "MSDOS5.0"))

	boot, err := device.ReadSector(0)
	require.NoError(t, err)
	bpb, err := geometry.ParseBPB(boot)
	require.NoError(t, err)

	assert.Equal(t, 1, bpb.FATStart)
	assert.Equal(t, 19, bpb.RootDirStart)
	assert.Equal(t, 33, bpb.DataStart)
	assert.Equal(t, 2847, bpb.TotalClusters)

	vol, err := Open(device, bpb.Layout(), false)
	require.NoError(t, err)

	entries, err := vol.readDirectory(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsVolumeLabel())
}

func TestCreateVictorFloppy_FillsUnusedSectorsWithF6(t *testing.T) {
	layout := geometry.VictorFloppyLayout(true, 0)
	device := vfattesting.NewBlankDevice(t, geometry.SectorSize, layout.TotalSectors())
	require.NoError(t, CreateVictorFloppy(device, VictorDoubleSided, ""))

	lastDataSector := layout.TotalSectors() - 1
	data, err := device.ReadSector(lastDataSector)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xF6}, geometry.SectorSize), data)
}

func TestCreateIBMFloppy_FillsUnusedSectorsWithZero(t *testing.T) {
	device := vfattesting.NewBlankDevice(t, geometry.SectorSize, 2880)
	require.NoError(t, CreateIBMFloppy(device, IBM144M, "", "MSDOS5.0"))

	data, err := device.ReadSector(2879)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, geometry.SectorSize), data)
}

func TestCreateIBMFloppy_WritableAfterFormat(t *testing.T) {
	device := vfattesting.NewBlankDevice(t, geometry.SectorSize, 2880)
	require.NoError(t, CreateIBMFloppy(device, IBM144M, "", "MSDOS5.0"))

	boot, err := device.ReadSector(0)
	require.NoError(t, err)
	bpb, err := geometry.ParseBPB(boot)
	require.NoError(t, err)

	vol, err := Open(device, bpb.Layout(), false)
	require.NoError(t, err)

	require.NoError(t, vol.CopyIn(`\COMMAND.COM`, bytes.NewReader(bytes.Repeat([]byte{0x90}, 1000)), 1000, true, 0, time.Now()))
	var out bytes.Buffer
	require.NoError(t, vol.CopyOut(`\COMMAND.COM`, &out))
	assert.Equal(t, 1000, out.Len())
}
