package inode_test

import (
	"testing"

	"github.com/xaionaro-go/bytesextra"

	"github.com/go-ext2fs/ext2fs/device"
	"github.com/go-ext2fs/ext2fs/inode"
	"github.com/go-ext2fs/ext2fs/volume"
)

type fixture struct {
	dev    *device.BlockDevice
	table  *inode.Table
	mapper *inode.Mapper
	blocks *volume.Allocator
	inodes *volume.Allocator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	buf := make([]byte, device.ImageSize)
	stream := bytesextra.NewReadWriteSeeker(buf)
	dev := device.New(stream)

	blockBits := volume.NewBitmap(device.TotalBlocks)
	inodeBits := volume.NewBitmap(volume.InodeCount)
	inodeBits.Set(0, true)

	blocks := volume.NewBlockAllocator(blockBits)
	inodes := volume.NewInodeAllocator(inodeBits)

	table := inode.NewTable(dev)
	mapper := inode.NewMapper(dev, table, blocks)

	return &fixture{dev: dev, table: table, mapper: mapper, blocks: blocks, inodes: inodes}
}

func (f *fixture) allocInode(t *testing.T) int {
	t.Helper()
	n, err := f.inodes.Allocate()
	if err != nil {
		t.Fatalf("allocate inode: %v", err)
	}
	raw := inode.Raw{Mode: inode.DefaultFileMode, Links: 1}
	if err := f.table.Write(n, raw); err != nil {
		t.Fatalf("write inode: %v", err)
	}
	return n
}
