// Package volume implements the superblock, the two allocation bitmaps, and
// the block/inode allocator that sit directly on top of the block device.
package volume

import (
	"bytes"

	"github.com/lunixbochs/struc"

	"github.com/go-ext2fs/ext2fs/device"
	"github.com/go-ext2fs/ext2fs/errors"
)

// Magic is the on-disk signature that identifies a formatted image.
const Magic = 0xEF53

// InodeCount is the fixed number of inodes the volume supports (NI).
const InodeCount = 128

// InodeSize is the fixed, on-disk size of one inode record (SI), in bytes.
const InodeSize = 128

// inodeTableBlocks is the number of blocks occupied by the fixed-size inode
// table: ceil(InodeCount * InodeSize / BlockSize).
const inodeTableBlocks = (InodeCount*InodeSize + device.BlockSize - 1) / device.BlockSize

const (
	// BlockBitmapBlock is the fixed block index of the block allocation bitmap.
	BlockBitmapBlock = 1
	// InodeBitmapBlock is the fixed block index of the inode allocation bitmap.
	InodeBitmapBlock = 2
	// InodeTableStart is the first block of the fixed-size inode table.
	InodeTableStart = 3
	// InodeTableBlocks is the number of blocks the inode table occupies.
	InodeTableBlocks = inodeTableBlocks
)

// FirstDataBlock is the first block available for file and directory content.
const FirstDataBlock = InodeTableStart + inodeTableBlocks

// Filesystem states, matching the spirit of EXT2's s_state field.
const (
	StateClean = 1
	StateError = 2
)

// Error policies, matching EXT2's s_errors field.
const (
	ErrorsContinue = 1
	ErrorsReadOnly = 2
	ErrorsPanic    = 3
)

// Superblock is the semantic content of block 0. The wire layout is driven
// entirely by the struc tags; the struct is padded out to exactly one block.
type Superblock struct {
	Magic           uint16    `struc:"uint16,little"`
	InodeCount      uint32    `struc:"uint32,little"`
	BlockCount      uint32    `struc:"uint32,little"`
	FreeBlocksCount uint32    `struc:"uint32,little"`
	FreeInodesCount uint32    `struc:"uint32,little"`
	FirstDataBlock  uint32    `struc:"uint32,little"`
	LogBlockSize    uint32    `struc:"uint32,little"`
	InodesPerGroup  uint32    `struc:"uint32,little"`
	InodeSize       uint16    `struc:"uint16,little"`
	State           uint16    `struc:"uint16,little"`
	ErrorPolicy     uint16    `struc:"uint16,little"`
	LastMountTime   uint32    `struc:"uint32,little"`
	LastWriteTime   uint32    `struc:"uint32,little"`
	LastCheckTime   uint32    `struc:"uint32,little"`
	Reserved        [976]byte `struc:"[976]pad"`
}

// NewSuperblock builds the superblock written by a fresh Format call.
func NewSuperblock(now uint32) Superblock {
	return Superblock{
		Magic:           Magic,
		InodeCount:      InodeCount,
		BlockCount:      device.TotalBlocks,
		FreeBlocksCount: device.TotalBlocks - FirstDataBlock,
		// 126 = 128 total inodes, minus the permanently-reserved inode 0 slot,
		// minus the root directory (inode 2) allocated at format time.
		FreeInodesCount: InodeCount - 2,
		FirstDataBlock:  FirstDataBlock,
		LogBlockSize:    0, // log2(1024/1024)
		InodesPerGroup:  InodeCount,
		InodeSize:       InodeSize,
		State:           StateClean,
		ErrorPolicy:     ErrorsContinue,
		LastMountTime:   now,
		LastWriteTime:   now,
		LastCheckTime:   now,
	}
}

// Encode serializes the superblock into exactly one block's worth of bytes.
func (sb *Superblock) Encode() ([]byte, errors.DriverError) {
	var buf bytes.Buffer
	if err := struc.Pack(&buf, sb); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	out := buf.Bytes()
	if len(out) != device.BlockSize {
		return nil, errors.ErrFileSystemCorrupted.WithMessage("superblock did not pack to one block")
	}
	return out, nil
}

// DecodeSuperblock parses a single block's worth of bytes into a Superblock
// and validates the magic number.
func DecodeSuperblock(raw []byte) (Superblock, errors.DriverError) {
	var sb Superblock
	if err := struc.Unpack(bytes.NewReader(raw), &sb); err != nil {
		return Superblock{}, errors.ErrIOFailed.WrapError(err)
	}
	if sb.Magic != Magic {
		return Superblock{}, errors.ErrBadFormat
	}
	return sb, nil
}
