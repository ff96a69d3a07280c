package inode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-ext2fs/ext2fs/inode"
)

func TestMapDirectHoleIsZero(t *testing.T) {
	f := newFixture(t)
	n := f.allocInode(t)
	raw, err := f.table.Read(n)
	require.Nil(t, err)

	physical, err := f.mapper.Map(n, &raw, 3)
	require.Nil(t, err)
	assert.Equal(t, uint32(0), physical)
}

func TestSetMapDirectThenMap(t *testing.T) {
	f := newFixture(t)
	n := f.allocInode(t)
	raw, err := f.table.Read(n)
	require.Nil(t, err)

	block, err := f.blocks.Allocate()
	require.Nil(t, err)
	require.Nil(t, f.mapper.SetMap(n, &raw, 0, uint32(block)))

	physical, err := f.mapper.Map(n, &raw, 0)
	require.Nil(t, err)
	assert.Equal(t, uint32(block), physical)
}

func TestSetMapAllocatesIndirectBlockOnDemand(t *testing.T) {
	f := newFixture(t)
	n := f.allocInode(t)
	raw, err := f.table.Read(n)
	require.Nil(t, err)

	block, err := f.blocks.Allocate()
	require.Nil(t, err)
	require.Nil(t, f.mapper.SetMap(n, &raw, inode.DirectPointers, uint32(block)))

	assert.NotZero(t, raw.Pointers[inode.IndirectSlot])

	physical, err := f.mapper.Map(n, &raw, inode.DirectPointers)
	require.Nil(t, err)
	assert.Equal(t, uint32(block), physical)
}

func TestMapRejectsIndexBeyondIndirectReach(t *testing.T) {
	f := newFixture(t)
	n := f.allocInode(t)
	raw, err := f.table.Read(n)
	require.Nil(t, err)

	_, err = f.mapper.Map(n, &raw, inode.MaxLogicalBlock)
	assert.NotNil(t, err)
}

func TestDeleteFreesDirectAndIndirectBlocks(t *testing.T) {
	f := newFixture(t)
	n := f.allocInode(t)
	raw, err := f.table.Read(n)
	require.Nil(t, err)

	direct, err := f.blocks.Allocate()
	require.Nil(t, err)
	require.Nil(t, f.mapper.SetMap(n, &raw, 0, uint32(direct)))

	indirectData, err := f.blocks.Allocate()
	require.Nil(t, err)
	require.Nil(t, f.mapper.SetMap(n, &raw, inode.DirectPointers, uint32(indirectData)))

	require.Nil(t, f.table.Write(n, raw))
	freeBefore := f.blocks.FreeCount()

	_, err = f.mapper.Delete(n, f.inodes)
	require.Nil(t, err)

	// direct block, indirect-data block and the indirect block itself come back.
	assert.Equal(t, freeBefore+3, f.blocks.FreeCount())

	after, err := f.table.Read(n)
	require.Nil(t, err)
	assert.False(t, after.IsAllocated())
}
