package volume

import (
	"github.com/go-ext2fs/ext2fs/device"
	"github.com/go-ext2fs/ext2fs/errors"
)

// Allocator manages a single bitmap (blocks or inodes) plus the superblock's
// cached free-count projection of it, keeping the two write-through
// consistent. It always scans first-fit from a fixed starting index, lowest
// index wins — callers (tests included) depend on this determinism.
type Allocator struct {
	bits       *Bitmap
	size       int
	startIndex int

	// OnChange, if set, is invoked after every successful Allocate or Free so
	// callers can write the bitmap block and the superblock's free-count
	// projection back to disk immediately, keeping every mutation
	// write-through.
	OnChange func()
}

// NewAllocator wraps an existing bitmap. startIndex is the lowest index the
// allocator is allowed to hand out (1 for inodes, since inode 0 is reserved;
// FirstDataBlock for blocks, so the metadata region is never handed out).
func NewAllocator(bits *Bitmap, size int, startIndex int) *Allocator {
	return &Allocator{bits: bits, size: size, startIndex: startIndex}
}

// Allocate finds the lowest-index clear bit at or after startIndex, sets it,
// and returns its index. It returns (0, ErrNoSpaceOnDevice) if none remain.
func (a *Allocator) Allocate() (int, errors.DriverError) {
	for i := a.startIndex; i < a.size; i++ {
		if !a.bits.Get(i) {
			a.bits.Set(i, true)
			if a.OnChange != nil {
				a.OnChange()
			}
			return i, nil
		}
	}
	return 0, errors.ErrNoSpaceOnDevice
}

// Free clears bit index. Freeing an already-free index is a no-op that
// returns success: double-free during unwind must not compound errors.
func (a *Allocator) Free(index int) errors.DriverError {
	if index < a.startIndex || index >= a.size {
		return errors.ErrInvalidArgument.WithMessage("index out of range")
	}
	wasSet := a.bits.Get(index)
	a.bits.Set(index, false)
	if wasSet && a.OnChange != nil {
		a.OnChange()
	}
	return nil
}

// ReserveFixed marks index used unconditionally, bypassing the first-fit
// scan. Format uses this to plant the root directory at the fixed inode
// number 2 even though first-fit would otherwise hand out 1 first, leaving
// inode 1 free for ordinary allocation.
func (a *Allocator) ReserveFixed(index int) errors.DriverError {
	if index < a.startIndex || index >= a.size {
		return errors.ErrInvalidArgument.WithMessage("index out of range")
	}
	if a.bits.Get(index) {
		return errors.ErrInvalidArgument.WithMessage("index already in use")
	}
	a.bits.Set(index, true)
	if a.OnChange != nil {
		a.OnChange()
	}
	return nil
}

// FreeCount returns the number of clear bits at or after startIndex.
func (a *Allocator) FreeCount() int {
	used := 0
	for i := a.startIndex; i < a.size; i++ {
		if a.bits.Get(i) {
			used++
		}
	}
	return (a.size - a.startIndex) - used
}

// NewBlockAllocator builds the block allocator over the data region only:
// metadata blocks [0, FirstDataBlock) are pre-marked used and never touched.
func NewBlockAllocator(bits *Bitmap) *Allocator {
	return NewAllocator(bits, device.TotalBlocks, FirstDataBlock)
}

// NewInodeAllocator builds the inode allocator. Inode 0 is reserved and
// permanently marked used by Format; scanning starts at inode 1.
func NewInodeAllocator(bits *Bitmap) *Allocator {
	return NewAllocator(bits, InodeCount, 1)
}
