package geometry

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v9k/vfat/vfaterr"
)

func makeIBMPCBootSector(sectorsPerCluster byte, reservedSectors, rootEntries, totalSectors16 uint16, fatSectors uint16, numFATs byte) []byte {
	b := make([]byte, 512)
	b[0] = 0xEB // jmp short
	binary.LittleEndian.PutUint16(b[0x0B:], 512)
	b[0x0D] = sectorsPerCluster
	binary.LittleEndian.PutUint16(b[0x0E:], reservedSectors)
	b[0x10] = numFATs
	binary.LittleEndian.PutUint16(b[0x11:], rootEntries)
	binary.LittleEndian.PutUint16(b[0x13:], totalSectors16)
	b[0x15] = 0xF9
	binary.LittleEndian.PutUint16(b[0x16:], fatSectors)
	binary.LittleEndian.PutUint16(b[0x1FE:], 0xAA55)
	return b
}

func TestParseBPB_144MB(t *testing.T) {
	// Standard 1.44MB 3.5" floppy: 18 spt, 2 heads, 80 tracks = 2880 sectors.
	boot := makeIBMPCBootSector(1, 1, 224, 2880, 9, 2)
	bpb, err := ParseBPB(boot)
	require.NoError(t, err)
	assert.Equal(t, 1, bpb.FATStart)
	assert.Equal(t, 19, bpb.RootDirStart)
	assert.Equal(t, 14, bpb.RootDirSectors)
	assert.Equal(t, 33, bpb.DataStart)
	assert.Equal(t, 2847, bpb.TotalClusters)
}

func TestParseBPB_RejectsBadSignature(t *testing.T) {
	boot := makeIBMPCBootSector(1, 1, 224, 2880, 9, 2)
	boot[0x1FE] = 0
	boot[0x1FF] = 0
	_, err := ParseBPB(boot)
	assert.Error(t, err)
}

func TestParseBPB_RejectsZeroFATSectors(t *testing.T) {
	boot := makeIBMPCBootSector(1, 1, 224, 2880, 0, 2)
	_, err := ParseBPB(boot)
	assert.Error(t, err)
}

func TestVictorFloppyLayout_DoubleSided(t *testing.T) {
	g := VictorFloppyLayout(true, 0)
	assert.Equal(t, 594, g.TotalClusters)
	assert.Equal(t, 13, g.DataStart)
	assert.Equal(t, 2, g.NumFATCopies)
}

func TestVictorFloppyLayout_SingleSided(t *testing.T) {
	g := VictorFloppyLayout(false, 0)
	assert.Equal(t, 303, g.TotalClusters)
	assert.Equal(t, 11, g.DataStart)
}

func TestVictorFloppyLayout_DataStartOverride(t *testing.T) {
	g := VictorFloppyLayout(true, 99)
	assert.Equal(t, 99, g.DataStart)
}

func TestClusterToSector(t *testing.T) {
	g := VictorFloppyLayout(true, 0)
	sec, err := g.ClusterToSector(2)
	require.NoError(t, err)
	assert.Equal(t, 13, sec)

	sec, err = g.ClusterToSector(3)
	require.NoError(t, err)
	assert.Equal(t, 17, sec)

	_, err = g.ClusterToSector(1)
	assert.Error(t, err)
}

func TestParseVictorBootSector_SingleSided(t *testing.T) {
	boot := make([]byte, 512)
	binary.LittleEndian.PutUint16(boot[26:], 512)
	binary.LittleEndian.PutUint16(boot[28:], 0)
	binary.LittleEndian.PutUint16(boot[32:], 0)
	boot[34] = 3

	vb, err := ParseVictorBootSector(boot)
	require.NoError(t, err)
	assert.False(t, vb.DoubleSided)
	assert.Equal(t, 512, vb.SectorSize)
	assert.Equal(t, byte(3), vb.DiscType)
}

func TestParseVictorBootSector_DoubleSided(t *testing.T) {
	boot := make([]byte, 512)
	binary.LittleEndian.PutUint16(boot[26:], 512)
	binary.LittleEndian.PutUint16(boot[32:], 1)

	vb, err := ParseVictorBootSector(boot)
	require.NoError(t, err)
	assert.True(t, vb.DoubleSided)
}

func makeHeader(boot []byte) []byte {
	header := make([]byte, 2048)
	copy(header, boot)
	return header
}

func readerFor(header []byte) func(int64, []byte) error {
	return func(off int64, buf []byte) error {
		var n int
		if off < int64(len(header)) {
			n = copy(buf, header[off:])
		}
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		return nil
	}
}

// makeVictorHDLabel builds a minimal physical disk label satisfying the
// detection conjunction: label_type bit 0 set, sector_size==512, and an
// empty available/working-media list followed by a volume_count of 1.
func makeVictorHDLabel() []byte {
	label := make([]byte, 2048)
	binary.LittleEndian.PutUint16(label[PDLLabelType:], 0x0001)
	binary.LittleEndian.PutUint16(label[PDLSectorSize:], 512)
	offset := PDLControllerParams + 16
	label[offset] = 0   // available-media-list count
	offset++
	label[offset] = 0 // working-media-list count
	offset++
	label[offset] = 1 // volume_count
	return label
}

func TestDetectFormat_IBMPC(t *testing.T) {
	boot := makeIBMPCBootSector(1, 1, 224, 2880, 9, 2)
	format, err := DetectFormat(1474560, readerFor(makeHeader(boot)))
	require.NoError(t, err)
	assert.Equal(t, FormatIBMPCFloppy, format)
}

func TestDetectFormat_IBMPC_RejectsSingleFAT(t *testing.T) {
	boot := makeIBMPCBootSector(1, 1, 224, 2880, 9, 1)
	format, err := DetectFormat(1474560, readerFor(makeHeader(boot)))
	require.NoError(t, err)
	assert.Equal(t, FormatVictorFloppy, format)
}

func TestDetectFormat_VictorHardDisk(t *testing.T) {
	label := makeVictorHDLabel()
	format, err := DetectFormat(10*1024*1024, readerFor(label))
	require.NoError(t, err)
	assert.Equal(t, FormatVictorHardDisk, format)
}

func TestDetectFormat_IgnoresHDLabelUnderTwoMiB(t *testing.T) {
	label := makeVictorHDLabel()
	format, err := DetectFormat(1474560, readerFor(label))
	require.NoError(t, err)
	assert.Equal(t, FormatVictorFloppy, format)
}

func TestDetectFormat_FallsBackToVictorFloppy(t *testing.T) {
	blank := make([]byte, 2048)
	format, err := DetectFormat(1212416, readerFor(blank))
	require.NoError(t, err)
	assert.Equal(t, FormatVictorFloppy, format)
}

func TestDetectFormat_HeaderlessLegacyIBMBySize(t *testing.T) {
	format, err := DetectFormat(1474560, func(int64, []byte) error {
		return io.EOF
	})
	require.NoError(t, err)
	assert.Equal(t, FormatIBMPCFloppy, format)
}

func TestDetectFormat_UnknownFormatWhenUnreadableAndWrongSize(t *testing.T) {
	_, err := DetectFormat(12345, func(int64, []byte) error {
		return io.EOF
	})
	require.Error(t, err)
	assert.True(t, err.(*vfaterr.DriverError).Is(vfaterr.ErrUnknownFormat))
}
