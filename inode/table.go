package inode

import (
	"github.com/go-ext2fs/ext2fs/device"
	"github.com/go-ext2fs/ext2fs/errors"
	"github.com/go-ext2fs/ext2fs/volume"
)

// Table addresses the fixed-size inode table region of the image.
type Table struct {
	dev *device.BlockDevice
}

// NewTable wraps a block device already positioned over a mounted volume.
func NewTable(dev *device.BlockDevice) *Table {
	return &Table{dev: dev}
}

func inodeLocation(n int) (blockIndex int, byteOffset int) {
	byteInTable := (n - 1) * volume.InodeSize
	blockIndex = volume.InodeTableStart + byteInTable/device.BlockSize
	byteOffset = byteInTable % device.BlockSize
	return
}

// Read returns the raw record for inode n (1 <= n <= InodeCount). Reading an
// unallocated inode succeeds and returns the zeroed record.
func (t *Table) Read(n int) (Raw, errors.DriverError) {
	if n < 1 || n > volume.InodeCount {
		return Raw{}, errors.ErrInvalidArgument.WithMessage("inode number out of range")
	}

	blockIndex, byteOffset := inodeLocation(n)
	block := make([]byte, device.BlockSize)
	if err := t.dev.ReadBlock(blockIndex, block); err != nil {
		return Raw{}, err
	}
	return Decode(block[byteOffset : byteOffset+volume.InodeSize])
}

// Write persists the full record for inode n.
func (t *Table) Write(n int, raw Raw) errors.DriverError {
	if n < 1 || n > volume.InodeCount {
		return errors.ErrInvalidArgument.WithMessage("inode number out of range")
	}

	blockIndex, byteOffset := inodeLocation(n)
	block := make([]byte, device.BlockSize)
	if err := t.dev.ReadBlock(blockIndex, block); err != nil {
		return err
	}

	encoded, err := raw.Encode()
	if err != nil {
		return err
	}
	copy(block[byteOffset:byteOffset+volume.InodeSize], encoded)
	return t.dev.WriteBlock(blockIndex, block)
}
