package volume

import (
	bitmap "github.com/boljen/go-bitmap"

	"github.com/go-ext2fs/ext2fs/device"
)

// Bitmap is a fixed-size, byte-packed bit array: bit k lives in byte k/8, bit
// k%8 (LSB-first), exactly as github.com/boljen/go-bitmap packs it.
type Bitmap struct {
	bits bitmap.Bitmap
	size int
}

// NewBitmap creates a bitmap with all bits clear.
func NewBitmap(size int) *Bitmap {
	return &Bitmap{bits: bitmap.New(size), size: size}
}

// BitmapFromBlock reconstructs a bitmap of size bits from a block's raw bytes.
func BitmapFromBlock(raw []byte, size int) *Bitmap {
	b := NewBitmap(size)
	copy(b.bits, raw)
	return b
}

// Get reports whether bit i (allocated) is set.
func (b *Bitmap) Get(i int) bool {
	return b.bits.Get(i)
}

// Set assigns bit i.
func (b *Bitmap) Set(i int, value bool) {
	b.bits.Set(i, value)
}

// PopCount returns the number of set bits among the first n bits (n <= size).
func (b *Bitmap) PopCount(n int) int {
	count := 0
	for i := 0; i < n; i++ {
		if b.bits.Get(i) {
			count++
		}
	}
	return count
}

// ToBlock returns the bitmap packed into exactly one disk block, zero-padded.
func (b *Bitmap) ToBlock() []byte {
	block := make([]byte, device.BlockSize)
	copy(block, b.bits.Data(false))
	return block
}
