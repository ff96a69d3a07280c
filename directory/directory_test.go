package directory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/go-ext2fs/ext2fs/device"
	"github.com/go-ext2fs/ext2fs/directory"
	"github.com/go-ext2fs/ext2fs/inode"
	"github.com/go-ext2fs/ext2fs/volume"
)

type fixture struct {
	file   *inode.File
	dir    *directory.Directory
	blocks *volume.Allocator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	buf := make([]byte, device.ImageSize)
	dev := device.New(bytesextra.NewReadWriteSeeker(buf))

	blockBits := volume.NewBitmap(device.TotalBlocks)
	blocks := volume.NewBlockAllocator(blockBits)
	inodeBits := volume.NewBitmap(volume.InodeCount)
	inodeBits.Set(0, true)
	inodes := volume.NewInodeAllocator(inodeBits)

	table := inode.NewTable(dev)
	mapper := inode.NewMapper(dev, table, blocks)

	n, err := inodes.Allocate()
	require.Nil(t, err)
	require.Nil(t, table.Write(n, inode.Raw{Mode: inode.DefaultDirMode, Links: 2}))

	file := inode.NewFile(mapper, table, blocks, n)
	return &fixture{file: file, dir: directory.New(file), blocks: blocks}
}

func TestInsertAndLookup(t *testing.T) {
	f := newFixture(t)
	size, err := f.dir.Insert(0, ".", 2, directory.FileTypeDir)
	require.Nil(t, err)
	size, err = f.dir.Insert(size, "..", 2, directory.FileTypeDir)
	require.Nil(t, err)
	size, err = f.dir.Insert(size, "alpha.txt", 5, directory.FileTypeRegular)
	require.Nil(t, err)

	entry, found, err := f.dir.Lookup(size, "alpha.txt")
	require.Nil(t, err)
	require.True(t, found)
	assert.Equal(t, uint32(5), entry.Inode)
}

func TestInsertDuplicateNameFails(t *testing.T) {
	f := newFixture(t)
	size, err := f.dir.Insert(0, "a", 5, directory.FileTypeRegular)
	require.Nil(t, err)

	_, err = f.dir.Insert(size, "a", 6, directory.FileTypeRegular)
	assert.NotNil(t, err)
}

func TestRemoveTombstonesAndRelookupFails(t *testing.T) {
	f := newFixture(t)
	size, err := f.dir.Insert(0, "a", 5, directory.FileTypeRegular)
	require.Nil(t, err)

	require.Nil(t, f.dir.Remove(size, "a"))

	_, found, err := f.dir.Lookup(size, "a")
	require.Nil(t, err)
	assert.False(t, found)
}

func TestInsertReusesTombstoneSlack(t *testing.T) {
	f := newFixture(t)
	size, err := f.dir.Insert(0, "longname.txt", 5, directory.FileTypeRegular)
	require.Nil(t, err)
	require.Nil(t, f.dir.Remove(size, "longname.txt"))

	freeBefore := f.blocks.FreeCount()
	size, err = f.dir.Insert(size, "x", 6, directory.FileTypeRegular)
	require.Nil(t, err)

	// Reusing the tombstone's slack must not allocate a new block.
	assert.Equal(t, freeBefore, f.blocks.FreeCount())

	entry, found, err := f.dir.Lookup(size, "x")
	require.Nil(t, err)
	require.True(t, found)
	assert.Equal(t, uint32(6), entry.Inode)
}

func TestIsEmptyTrueWithOnlyDotEntries(t *testing.T) {
	f := newFixture(t)
	size, err := f.dir.Insert(0, ".", 2, directory.FileTypeDir)
	require.Nil(t, err)
	size, err = f.dir.Insert(size, "..", 2, directory.FileTypeDir)
	require.Nil(t, err)

	empty, err := f.dir.IsEmpty(size)
	require.Nil(t, err)
	assert.True(t, empty)
}

func TestIsEmptyFalseWithExtraEntry(t *testing.T) {
	f := newFixture(t)
	size, err := f.dir.Insert(0, ".", 2, directory.FileTypeDir)
	require.Nil(t, err)
	size, err = f.dir.Insert(size, "..", 2, directory.FileTypeDir)
	require.Nil(t, err)
	size, err = f.dir.Insert(size, "child", 7, directory.FileTypeDir)
	require.Nil(t, err)

	empty, err := f.dir.IsEmpty(size)
	require.Nil(t, err)
	assert.False(t, empty)
}

func TestListReturnsAllLiveEntriesInOrder(t *testing.T) {
	f := newFixture(t)
	size, err := f.dir.Insert(0, "a", 3, directory.FileTypeRegular)
	require.Nil(t, err)
	size, err = f.dir.Insert(size, "b", 4, directory.FileTypeRegular)
	require.Nil(t, err)

	entries, err := f.dir.List(size)
	require.Nil(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
}
