package volume_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-ext2fs/ext2fs/device"
	"github.com/go-ext2fs/ext2fs/volume"
)

func TestSuperblockEncodeDecodeRoundTrip(t *testing.T) {
	sb := volume.NewSuperblock(1700000000)
	encoded, err := sb.Encode()
	require.Nil(t, err)
	assert.Len(t, encoded, device.BlockSize)

	decoded, err := volume.DecodeSuperblock(encoded)
	require.Nil(t, err)
	assert.Equal(t, sb, decoded)
}

func TestDecodeSuperblockRejectsBadMagic(t *testing.T) {
	raw := make([]byte, device.BlockSize)
	_, err := volume.DecodeSuperblock(raw)
	assert.NotNil(t, err)
}

func TestNewSuperblockCounters(t *testing.T) {
	sb := volume.NewSuperblock(0)
	assert.Equal(t, uint16(volume.Magic), sb.Magic)
	assert.Equal(t, uint32(device.TotalBlocks), sb.BlockCount)
	assert.Equal(t, uint32(volume.InodeCount), sb.InodeCount)
	assert.Equal(t, uint32(device.TotalBlocks-volume.FirstDataBlock), sb.FreeBlocksCount)
	assert.Equal(t, uint32(volume.InodeCount-2), sb.FreeInodesCount)
}

func TestBitmapBitAddressingIsLSBFirst(t *testing.T) {
	b := volume.NewBitmap(16)
	b.Set(9, true)

	block := b.ToBlock()
	// bit 9 lives in byte 1, bit 1 (LSB-first)
	assert.Equal(t, byte(0), block[0])
	assert.Equal(t, byte(1<<1), block[1])
}

func TestBitmapRoundTripThroughBlock(t *testing.T) {
	b := volume.NewBitmap(device.TotalBlocks)
	b.Set(0, true)
	b.Set(7, true)
	b.Set(1023, true)

	restored := volume.BitmapFromBlock(b.ToBlock(), device.TotalBlocks)
	assert.True(t, restored.Get(0))
	assert.True(t, restored.Get(7))
	assert.True(t, restored.Get(1023))
	assert.False(t, restored.Get(1))
	assert.Equal(t, 3, restored.PopCount(device.TotalBlocks))
}
