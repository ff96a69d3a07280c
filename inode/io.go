package inode

import (
	"github.com/go-ext2fs/ext2fs/device"
	"github.com/go-ext2fs/ext2fs/errors"
	"github.com/go-ext2fs/ext2fs/volume"
)

// File ties a Mapper to one inode's record for byte-addressed I/O.
type File struct {
	mapper *Mapper
	table  *Table
	blocks *volume.Allocator
	No     int
}

// NewFile opens byte-addressed access to inode no.
func NewFile(mapper *Mapper, table *Table, blocks *volume.Allocator, no int) *File {
	return &File{mapper: mapper, table: table, blocks: blocks, No: no}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Read copies up to size bytes starting at offset into buf (which must be at
// least size bytes), clamped to the inode's current size. Holes read as zero.
// It returns the number of bytes actually produced and updates atime on any
// non-empty read.
func (f *File) Read(buf []byte, size int, offset int) (int, errors.DriverError) {
	in, err := f.table.Read(f.No)
	if err != nil {
		return 0, err
	}

	end := offset + size
	if end > int(in.Size) {
		end = int(in.Size)
	}
	if end <= offset {
		return 0, nil
	}
	toRead := end - offset

	produced := 0
	for produced < toRead {
		logicalIndex := (offset + produced) / device.BlockSize
		blockOffset := (offset + produced) % device.BlockSize
		chunk := device.BlockSize - blockOffset
		if chunk > toRead-produced {
			chunk = toRead - produced
		}

		physical, err := f.mapper.Map(f.No, &in, logicalIndex)
		if err != nil {
			return produced, err
		}

		if physical == 0 {
			for i := 0; i < chunk; i++ {
				buf[produced+i] = 0
			}
		} else {
			block := make([]byte, device.BlockSize)
			if err := f.mapper.dev.ReadBlock(int(physical), block); err != nil {
				return produced, err
			}
			copy(buf[produced:produced+chunk], block[blockOffset:blockOffset+chunk])
		}
		produced += chunk
	}

	in.Atime = now()
	_ = f.table.Write(f.No, in) // timestamp update failures are logged and swallowed

	return produced, nil
}

// Write copies size bytes from buf, starting at offset, allocating blocks on
// demand. It stops and returns the partial count on allocation failure; bytes
// already copied remain persisted. It extends i_size/i_blocks when the write
// reaches past the current end of file, and updates mtime/ctime.
func (f *File) Write(buf []byte, size int, offset int) (int, errors.DriverError) {
	in, err := f.table.Read(f.No)
	if err != nil {
		return 0, err
	}

	written := 0
	var writeErr errors.DriverError
	for written < size {
		logicalIndex := (offset + written) / device.BlockSize
		blockOffset := (offset + written) % device.BlockSize
		chunk := device.BlockSize - blockOffset
		if chunk > size-written {
			chunk = size - written
		}

		physical, err := f.mapper.Map(f.No, &in, logicalIndex)
		if err != nil {
			writeErr = err
			break
		}
		if physical == 0 {
			blockNo, err := f.blocks.Allocate()
			if err != nil {
				writeErr = err
				break
			}
			if err := f.mapper.SetMap(f.No, &in, logicalIndex, uint32(blockNo)); err != nil {
				_ = f.blocks.Free(blockNo)
				writeErr = err
				break
			}
			physical = uint32(blockNo)
		}

		block := make([]byte, device.BlockSize)
		if blockOffset != 0 || chunk != device.BlockSize {
			if err := f.mapper.dev.ReadBlock(int(physical), block); err != nil {
				writeErr = err
				break
			}
		}
		copy(block[blockOffset:blockOffset+chunk], buf[written:written+chunk])
		if err := f.mapper.dev.WriteBlock(int(physical), block); err != nil {
			writeErr = err
			break
		}

		written += chunk
	}

	finalOffset := offset + written
	if finalOffset > int(in.Size) {
		in.Size = uint32(finalOffset)
		in.Blocks = uint32(ceilDiv(finalOffset, device.BlockSize))
	}
	in.Mtime = now()
	in.Ctime = now()
	_ = f.table.Write(f.No, in)

	return written, writeErr
}

// Truncate shortens the file to length bytes, freeing blocks whose logical
// index is >= ceil(length/BlockSize) and clearing their mapping. Extending via
// Truncate is a no-op.
func (f *File) Truncate(length int) errors.DriverError {
	in, err := f.table.Read(f.No)
	if err != nil {
		return err
	}
	if length >= int(in.Size) {
		return nil
	}

	keepBlocks := ceilDiv(length, device.BlockSize)
	totalBlocks := ceilDiv(int(in.Size), device.BlockSize)

	var agg multiError
	for logicalIndex := keepBlocks; logicalIndex < totalBlocks && logicalIndex < MaxLogicalBlock; logicalIndex++ {
		physical, err := f.mapper.Map(f.No, &in, logicalIndex)
		if err != nil {
			agg.add(err)
			continue
		}
		if physical == 0 {
			continue
		}
		agg.add(f.blocks.Free(int(physical)))
		agg.add(f.mapper.SetMap(f.No, &in, logicalIndex, 0))
	}

	// Reclaim the indirect block itself if truncation left no logical index
	// at or past the indirect range.
	if keepBlocks <= DirectPointers && in.Pointers[IndirectSlot] != 0 {
		agg.add(f.blocks.Free(int(in.Pointers[IndirectSlot])))
		in.Pointers[IndirectSlot] = 0
		f.mapper.cache.invalidate(f.No)
	}

	in.Size = uint32(length)
	in.Blocks = uint32(keepBlocks)
	in.Ctime = now()
	if err := f.table.Write(f.No, in); err != nil {
		agg.add(err)
	}

	return agg.errOrNil()
}
