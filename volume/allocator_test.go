package volume_test

import (
	"testing"

	"github.com/go-ext2fs/ext2fs/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorFirstFit(t *testing.T) {
	bits := volume.NewBitmap(16)
	alloc := volume.NewAllocator(bits, 16, 0)

	bits.Set(0, true)
	bits.Set(1, true)

	idx, err := alloc.Allocate()
	require.Nil(t, err)
	assert.Equal(t, 2, idx)
}

func TestAllocatorDeterministicSequence(t *testing.T) {
	bits := volume.NewBitmap(8)
	alloc := volume.NewAllocator(bits, 8, 0)

	var got []int
	for i := 0; i < 8; i++ {
		idx, err := alloc.Allocate()
		require.Nil(t, err)
		got = append(got, idx)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, got)

	_, err := alloc.Allocate()
	assert.NotNil(t, err)
}

func TestAllocatorFreeIsIdempotent(t *testing.T) {
	bits := volume.NewBitmap(4)
	alloc := volume.NewAllocator(bits, 4, 0)

	idx, err := alloc.Allocate()
	require.Nil(t, err)

	require.Nil(t, alloc.Free(idx))
	require.Nil(t, alloc.Free(idx)) // double free is a no-op, not an error
}

func TestAllocatorRespectsStartIndex(t *testing.T) {
	bits := volume.NewBitmap(8)
	alloc := volume.NewAllocator(bits, 8, 1)

	idx, err := alloc.Allocate()
	require.Nil(t, err)
	assert.Equal(t, 1, idx)
}

func TestBlockAllocatorSkipsMetadataRegion(t *testing.T) {
	bits := volume.NewBitmap(1024)
	for i := 0; i < volume.FirstDataBlock; i++ {
		bits.Set(i, true)
	}
	alloc := volume.NewBlockAllocator(bits)
	idx, err := alloc.Allocate()
	require.Nil(t, err)
	assert.Equal(t, volume.FirstDataBlock, idx)
	assert.Equal(t, 1024-volume.FirstDataBlock-1, alloc.FreeCount())
}
