package fsvol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFileTableAssignsMonotonicDescriptors(t *testing.T) {
	tbl := NewOpenFileTable()
	fd1, err := tbl.Open(5, FlagReadOnly)
	require.Nil(t, err)
	fd2, err := tbl.Open(6, FlagReadWrite)
	require.Nil(t, err)
	assert.NotEqual(t, fd1, fd2)
}

func TestOpenFileTableLookupAndAdvance(t *testing.T) {
	tbl := NewOpenFileTable()
	fd, err := tbl.Open(7, FlagReadWrite)
	require.Nil(t, err)

	inodeNo, flags, offset, err := tbl.Lookup(fd)
	require.Nil(t, err)
	assert.Equal(t, 7, inodeNo)
	assert.Equal(t, FlagReadWrite, flags)
	assert.Equal(t, 0, offset)

	require.Nil(t, tbl.Advance(fd, 42))
	_, _, offset, err = tbl.Lookup(fd)
	require.Nil(t, err)
	assert.Equal(t, 42, offset)
}

func TestOpenFileTableCloseInvalidatesFD(t *testing.T) {
	tbl := NewOpenFileTable()
	fd, err := tbl.Open(1, FlagReadOnly)
	require.Nil(t, err)
	require.Nil(t, tbl.Close(fd))

	_, _, _, err = tbl.Lookup(fd)
	assert.NotNil(t, err)
	assert.NotNil(t, tbl.Close(fd))
}

func TestOpenFileTableRejectsBeyondCapacity(t *testing.T) {
	tbl := NewOpenFileTable()
	for i := 0; i < MaxOpenFiles; i++ {
		_, err := tbl.Open(i, FlagReadOnly)
		require.Nil(t, err)
	}
	_, err := tbl.Open(999, FlagReadOnly)
	assert.NotNil(t, err)
}

func TestOpenFileTableReusesClosedSlot(t *testing.T) {
	tbl := NewOpenFileTable()
	for i := 0; i < MaxOpenFiles; i++ {
		_, err := tbl.Open(i, FlagReadOnly)
		require.Nil(t, err)
	}
	require.Nil(t, tbl.Close(1))

	fd, err := tbl.Open(1000, FlagReadOnly)
	require.Nil(t, err)
	assert.NotEqual(t, 0, fd)
}
