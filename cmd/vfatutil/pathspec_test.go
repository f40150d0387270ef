package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePathSpec_BareImage(t *testing.T) {
	spec, err := ParsePathSpec("floppy.img")
	require.NoError(t, err)
	assert.Equal(t, "floppy.img", spec.ImagePath)
	assert.Nil(t, spec.Partition)
	assert.Equal(t, "", spec.InternalPath)
}

func TestParsePathSpec_ImageWithInternalPath(t *testing.T) {
	spec, err := ParsePathSpec(`floppy.img:\DIR\FILE.TXT`)
	require.NoError(t, err)
	assert.Equal(t, "floppy.img", spec.ImagePath)
	assert.Nil(t, spec.Partition)
	assert.Equal(t, `\DIR\FILE.TXT`, spec.InternalPath)
}

func TestParsePathSpec_ImageWithPartitionAndPath(t *testing.T) {
	spec, err := ParsePathSpec(`disk.img:2:\README.TXT`)
	require.NoError(t, err)
	assert.Equal(t, "disk.img", spec.ImagePath)
	require.NotNil(t, spec.Partition)
	assert.Equal(t, 2, *spec.Partition)
	assert.Equal(t, `\README.TXT`, spec.InternalPath)
}

func TestParsePathSpec_PartitionWithNoInternalPath(t *testing.T) {
	spec, err := ParsePathSpec(`disk.img:0:`)
	require.NoError(t, err)
	require.NotNil(t, spec.Partition)
	assert.Equal(t, 0, *spec.Partition)
	assert.Equal(t, "", spec.InternalPath)
}

func TestParsePathSpec_RejectsMalformedPartitionSelector(t *testing.T) {
	_, err := ParsePathSpec(`disk.img:not-a-number:\FILE.TXT`)
	assert.Error(t, err)
}
