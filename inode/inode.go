// Package inode implements the fixed-size inode table, the direct+indirect
// block-mapping scheme, and byte-addressed file I/O built on top of it.
package inode

import (
	"bytes"
	"time"

	"github.com/lunixbochs/struc"

	"github.com/go-ext2fs/ext2fs/errors"
	"github.com/go-ext2fs/ext2fs/volume"
)

// DirectPointers is the number of direct block pointers in an inode (slot 0-11).
const DirectPointers = 12

// IndirectSlot is the index of the single-indirect pointer (slot 12).
const IndirectSlot = 12

// TotalSlots is the number of block pointer slots physically present on disk,
// including the two unused trailing slots (13, 14).
const TotalSlots = 15

// PointersPerIndirectBlock is how many 4-byte pointers fit in one indirect
// block: B/4.
const PointersPerIndirectBlock = 1024 / 4

// MaxLogicalBlock is one past the highest logical block index reachable via
// direct + single-indirect pointers.
const MaxLogicalBlock = DirectPointers + PointersPerIndirectBlock

// Raw is the on-disk inode record, exactly InodeSize (128) bytes. The wire
// layout is driven entirely by the struc tags; trailing bytes are reserved
// padding.
type Raw struct {
	Mode     uint16             `struc:"uint16,little"`
	Uid      uint16             `struc:"uint16,little"`
	Gid      uint16             `struc:"uint16,little"`
	Links    uint16             `struc:"uint16,little"`
	Size     uint32             `struc:"uint32,little"`
	Blocks   uint32             `struc:"uint32,little"`
	Atime    uint32             `struc:"uint32,little"`
	Mtime    uint32             `struc:"uint32,little"`
	Ctime    uint32             `struc:"uint32,little"`
	Pointers [TotalSlots]uint32 `struc:"[15]uint32,little"`
	Reserved [40]byte           `struc:"[40]pad"`
}

// Encode serializes the inode into exactly InodeSize bytes.
func (r *Raw) Encode() ([]byte, errors.DriverError) {
	var buf bytes.Buffer
	if err := struc.Pack(&buf, r); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	out := buf.Bytes()
	if len(out) != volume.InodeSize {
		return nil, errors.ErrFileSystemCorrupted.WithMessage("inode record did not pack to InodeSize")
	}
	return out, nil
}

// Decode parses exactly InodeSize bytes into a Raw inode.
func Decode(raw []byte) (Raw, errors.DriverError) {
	var r Raw
	if err := struc.Unpack(bytes.NewReader(raw), &r); err != nil {
		return Raw{}, errors.ErrIOFailed.WrapError(err)
	}
	return r, nil
}

// IsAllocated reports whether this record describes a live inode (as opposed
// to the zeroed record returned for an unallocated slot).
func (r *Raw) IsAllocated() bool {
	return r.Links > 0
}

func now() uint32 {
	return uint32(time.Now().Unix())
}
