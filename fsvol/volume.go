// Package fsvol ties the block device, superblock/bitmaps, inode machinery,
// directory, path resolver and identity packages into the volume lifecycle
// and command surface: format, mount, unmount, status, and the per-path/
// per-fd operations the shell issues.
package fsvol

import (
	"os"
	"time"

	"github.com/go-ext2fs/ext2fs/device"
	"github.com/go-ext2fs/ext2fs/directory"
	"github.com/go-ext2fs/ext2fs/errors"
	"github.com/go-ext2fs/ext2fs/identity"
	"github.com/go-ext2fs/ext2fs/inode"
	"github.com/go-ext2fs/ext2fs/pathresolve"
	"github.com/go-ext2fs/ext2fs/volume"
)

// RootInode is the fixed inode number of the filesystem root.
const RootInode = 2

// Volume is the single process-wide mounted-volume record: disk-image
// handle, superblock, bitmaps, open-file table, and identity, all reachable
// from one handle instead of hidden globals.
type Volume struct {
	imageFile *os.File
	dev       *device.BlockDevice

	sb        volume.Superblock
	blockBits *volume.Bitmap
	inodeBits *volume.Bitmap
	blocks    *volume.Allocator
	inodes    *volume.Allocator

	table    *inode.Table
	mapper   *inode.Mapper
	resolver *pathresolve.Resolver
	session  *identity.Session
	open     *OpenFileTable

	mounted bool
}

// New returns an unmounted volume handle.
func New() *Volume {
	return &Volume{session: identity.NewSession(RootInode), open: NewOpenFileTable()}
}

func now() uint32 { return uint32(time.Now().Unix()) }

// Format lays a fresh volume out on imagePath: NB zeroed blocks, a valid
// superblock, both bitmaps with the metadata region marked used, a zeroed
// inode table, and the root directory at inode 2 with "." and ".." entries
// and a link count of 2. It does not leave the volume mounted.
func Format(imagePath string) errors.DriverError {
	f, oserr := os.OpenFile(imagePath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if oserr != nil {
		return errors.ErrIOFailed.WrapError(oserr)
	}
	defer f.Close()

	dev := device.New(f)
	zero := make([]byte, device.BlockSize)
	for b := 0; b < device.TotalBlocks; b++ {
		if err := dev.WriteBlock(b, zero); err != nil {
			return err
		}
	}

	blockBits := volume.NewBitmap(device.TotalBlocks)
	for b := 0; b < volume.FirstDataBlock; b++ {
		blockBits.Set(b, true)
	}
	inodeBits := volume.NewBitmap(volume.InodeCount)
	inodeBits.Set(0, true) // inode 0 is reserved and never allocated

	blocks := volume.NewBlockAllocator(blockBits)
	inodes := volume.NewInodeAllocator(inodeBits)

	table := inode.NewTable(dev)
	mapper := inode.NewMapper(dev, table, blocks)

	rootNo := RootInode
	if err := inodes.ReserveFixed(rootNo); err != nil {
		return err
	}

	ts := now()
	root := inode.Raw{
		Mode:  inode.DefaultDirMode,
		Links: 2,
		Atime: ts,
		Mtime: ts,
		Ctime: ts,
	}
	if err := table.Write(rootNo, root); err != nil {
		return err
	}

	file := inode.NewFile(mapper, table, blocks, rootNo)
	dir := directory.New(file)
	size, err := dir.Insert(0, ".", uint32(rootNo), directory.FileTypeDir)
	if err != nil {
		return err
	}
	if _, err := dir.Insert(size, "..", uint32(rootNo), directory.FileTypeDir); err != nil {
		return err
	}

	sb := volume.NewSuperblock(ts)
	sb.FreeBlocksCount = uint32(blocks.FreeCount())
	sb.FreeInodesCount = uint32(inodes.FreeCount())
	encoded, err := sb.Encode()
	if err != nil {
		return err
	}
	if err := dev.WriteBlock(0, encoded); err != nil {
		return err
	}
	if err := dev.WriteBlock(volume.BlockBitmapBlock, blockBits.ToBlock()); err != nil {
		return err
	}
	if err := dev.WriteBlock(volume.InodeBitmapBlock, inodeBits.ToBlock()); err != nil {
		return err
	}

	return nil
}

// Mount opens imagePath, validates its superblock, and installs it as this
// handle's active volume. Mounting an already-mounted handle fails with
// ErrAlreadyMounted.
func (v *Volume) Mount(imagePath string) errors.DriverError {
	if v.mounted {
		return errors.ErrAlreadyMounted
	}

	f, oserr := os.OpenFile(imagePath, os.O_RDWR, 0644)
	if oserr != nil {
		return errors.ErrIOFailed.WrapError(oserr)
	}

	dev := device.New(f)
	sbBlock := make([]byte, device.BlockSize)
	if err := dev.ReadBlock(0, sbBlock); err != nil {
		f.Close()
		return err
	}
	sb, err := volume.DecodeSuperblock(sbBlock)
	if err != nil {
		f.Close()
		return err
	}

	blockBitBlock := make([]byte, device.BlockSize)
	if err := dev.ReadBlock(volume.BlockBitmapBlock, blockBitBlock); err != nil {
		f.Close()
		return err
	}
	inodeBitBlock := make([]byte, device.BlockSize)
	if err := dev.ReadBlock(volume.InodeBitmapBlock, inodeBitBlock); err != nil {
		f.Close()
		return err
	}

	v.imageFile = f
	v.dev = dev
	v.sb = sb
	v.blockBits = volume.BitmapFromBlock(blockBitBlock, device.TotalBlocks)
	v.inodeBits = volume.BitmapFromBlock(inodeBitBlock, volume.InodeCount)
	v.blocks = volume.NewBlockAllocator(v.blockBits)
	v.inodes = volume.NewInodeAllocator(v.inodeBits)
	v.blocks.OnChange = v.persistBlockState
	v.inodes.OnChange = v.persistInodeState

	v.table = inode.NewTable(v.dev)
	v.mapper = inode.NewMapper(v.dev, v.table, v.blocks)
	v.resolver = pathresolve.New(v.table, v.mapper, v.blocks, RootInode)
	v.session = identity.NewSession(RootInode)
	v.open = NewOpenFileTable()
	v.mounted = true

	v.sb.LastMountTime = now()
	v.persistSuperblock()

	return nil
}

// Unmount persists any final superblock state and releases the image file
// handle. Every mutation is already write-through, so unmount's own job is
// closing the resource, not flushing anything new. Open files do not
// survive: the open-file table is discarded, not flushed.
func (v *Volume) Unmount() errors.DriverError {
	if !v.mounted {
		return errors.ErrNotMounted
	}

	v.sb.LastWriteTime = now()
	v.persistSuperblock()

	v.open = NewOpenFileTable()
	v.mounted = false

	if err := v.imageFile.Close(); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	return nil
}

func (v *Volume) requireMounted() errors.DriverError {
	if !v.mounted {
		return errors.ErrNotMounted
	}
	return nil
}

func (v *Volume) persistSuperblock() errors.DriverError {
	encoded, err := v.sb.Encode()
	if err != nil {
		return err
	}
	return v.dev.WriteBlock(0, encoded)
}

func (v *Volume) persistBlockState() {
	v.sb.FreeBlocksCount = uint32(v.blocks.FreeCount())
	_ = v.dev.WriteBlock(volume.BlockBitmapBlock, v.blockBits.ToBlock())
	_ = v.persistSuperblock()
}

func (v *Volume) persistInodeState() {
	v.sb.FreeInodesCount = uint32(v.inodes.FreeCount())
	_ = v.dev.WriteBlock(volume.InodeBitmapBlock, v.inodeBits.ToBlock())
	_ = v.persistSuperblock()
}

// Status is the set of counters the `status` command dumps.
type Status struct {
	TotalBlocks int
	FreeBlocks  int
	TotalInodes int
	FreeInodes  int
}

// Status reports the current superblock counters.
func (v *Volume) Status() (Status, errors.DriverError) {
	if err := v.requireMounted(); err != nil {
		return Status{}, err
	}
	return Status{
		TotalBlocks: int(v.sb.BlockCount),
		FreeBlocks:  int(v.sb.FreeBlocksCount),
		TotalInodes: int(v.sb.InodeCount),
		FreeInodes:  int(v.sb.FreeInodesCount),
	}, nil
}

// Session exposes the identity session for login/logout/users commands.
func (v *Volume) Session() *identity.Session { return v.session }
