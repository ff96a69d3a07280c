package inode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-ext2fs/ext2fs/inode"
	"github.com/go-ext2fs/ext2fs/volume"
)

func TestTableReadUnallocatedIsZeroed(t *testing.T) {
	f := newFixture(t)
	r, err := f.table.Read(5)
	require.Nil(t, err)
	assert.False(t, r.IsAllocated())
}

func TestTableWriteReadRoundTrip(t *testing.T) {
	f := newFixture(t)
	raw := inode.Raw{Mode: inode.DefaultDirMode, Links: 2, Uid: 7, Gid: 7}
	require.Nil(t, f.table.Write(2, raw))

	got, err := f.table.Read(2)
	require.Nil(t, err)
	assert.Equal(t, raw, got)
}

func TestTableNeighboringInodesDontClobber(t *testing.T) {
	f := newFixture(t)
	a := inode.Raw{Links: 1, Uid: 1}
	b := inode.Raw{Links: 1, Uid: 2}

	require.Nil(t, f.table.Write(1, a))
	require.Nil(t, f.table.Write(2, b))

	gotA, err := f.table.Read(1)
	require.Nil(t, err)
	gotB, err := f.table.Read(2)
	require.Nil(t, err)

	assert.Equal(t, uint16(1), gotA.Uid)
	assert.Equal(t, uint16(2), gotB.Uid)
}

func TestTableRejectsOutOfRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.table.Read(0)
	assert.NotNil(t, err)
	_, err = f.table.Read(volume.InodeCount + 1)
	assert.NotNil(t, err)
}
