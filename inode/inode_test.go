package inode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-ext2fs/ext2fs/inode"
)

func TestRawEncodeDecodeRoundTrip(t *testing.T) {
	r := inode.Raw{
		Mode:  0100644,
		Uid:   1,
		Gid:   1,
		Links: 1,
		Size:  4096,
	}
	r.Pointers[0] = 19
	r.Pointers[inode.IndirectSlot] = 35

	encoded, err := r.Encode()
	require.Nil(t, err)

	decoded, err := inode.Decode(encoded)
	require.Nil(t, err)
	assert.Equal(t, r, decoded)
}

func TestIsAllocated(t *testing.T) {
	var r inode.Raw
	assert.False(t, r.IsAllocated())
	r.Links = 1
	assert.True(t, r.IsAllocated())
}
