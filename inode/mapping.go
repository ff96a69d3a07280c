package inode

import (
	"encoding/binary"

	"github.com/go-ext2fs/ext2fs/device"
	"github.com/go-ext2fs/ext2fs/errors"
	"github.com/go-ext2fs/ext2fs/volume"
)

// Mapper resolves (inode, logical block index) to physical block numbers and
// manages the direct + single-indirect pointer array.
type Mapper struct {
	dev    *device.BlockDevice
	table  *Table
	blocks *volume.Allocator
	cache  indirectCache
}

// NewMapper ties a Table to the block allocator that backs it.
func NewMapper(dev *device.BlockDevice, table *Table, blocks *volume.Allocator) *Mapper {
	return &Mapper{dev: dev, table: table, blocks: blocks}
}

func (m *Mapper) readIndirect(inodeNo int, indirectBlock uint32) ([PointersPerIndirectBlock]uint32, errors.DriverError) {
	if pointers, ok := m.cache.get(inodeNo); ok {
		return pointers, nil
	}

	raw := make([]byte, device.BlockSize)
	if err := m.dev.ReadBlock(int(indirectBlock), raw); err != nil {
		return [PointersPerIndirectBlock]uint32{}, err
	}

	var pointers [PointersPerIndirectBlock]uint32
	for i := range pointers {
		pointers[i] = binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
	}
	m.cache.put(inodeNo, pointers)
	return pointers, nil
}

func (m *Mapper) writeIndirect(inodeNo int, indirectBlock uint32, pointers [PointersPerIndirectBlock]uint32) errors.DriverError {
	raw := make([]byte, device.BlockSize)
	for i, p := range pointers {
		binary.LittleEndian.PutUint32(raw[i*4:i*4+4], p)
	}
	if err := m.dev.WriteBlock(int(indirectBlock), raw); err != nil {
		return err
	}
	m.cache.put(inodeNo, pointers)
	return nil
}

// Map performs a read-only logical-to-physical block lookup. A zero result
// with a nil error means a hole.
func (m *Mapper) Map(inodeNo int, in *Raw, logicalIndex int) (uint32, errors.DriverError) {
	if logicalIndex < 0 || logicalIndex >= MaxLogicalBlock {
		return 0, errors.ErrRangeError
	}

	if logicalIndex < DirectPointers {
		return in.Pointers[logicalIndex], nil
	}

	indirectBlock := in.Pointers[IndirectSlot]
	if indirectBlock == 0 {
		return 0, nil // hole: no indirect block allocated at all
	}

	pointers, err := m.readIndirect(inodeNo, indirectBlock)
	if err != nil {
		return 0, err
	}
	return pointers[logicalIndex-DirectPointers], nil
}

// SetMap assigns the physical block for a logical index, allocating the
// indirect block on demand. On failure the inode (in) is left unmodified.
func (m *Mapper) SetMap(inodeNo int, in *Raw, logicalIndex int, physicalBlock uint32) errors.DriverError {
	if logicalIndex < 0 || logicalIndex >= MaxLogicalBlock {
		return errors.ErrRangeError
	}

	if logicalIndex < DirectPointers {
		in.Pointers[logicalIndex] = physicalBlock
		return nil
	}

	indirectBlock := in.Pointers[IndirectSlot]
	newIndirect := indirectBlock == 0
	if newIndirect {
		newBlock, err := m.blocks.Allocate()
		if err != nil {
			return err
		}
		indirectBlock = uint32(newBlock)

		zero := make([]byte, device.BlockSize)
		if err := m.dev.WriteBlock(newBlock, zero); err != nil {
			_ = m.blocks.Free(newBlock)
			return err
		}
		m.cache.invalidate(inodeNo)
	}

	pointers, err := m.readIndirect(inodeNo, indirectBlock)
	if err == nil {
		pointers[logicalIndex-DirectPointers] = physicalBlock
		err = m.writeIndirect(inodeNo, indirectBlock, pointers)
	}
	if err != nil {
		if newIndirect {
			m.cache.invalidate(inodeNo)
			_ = m.blocks.Free(int(indirectBlock))
		}
		return err
	}
	if newIndirect {
		in.Pointers[IndirectSlot] = indirectBlock
	}
	return nil
}

// Delete walks every block pointer reachable from in (direct slots, then the
// indirect block's contents, then the indirect block itself), frees each one,
// zeroes the inode record, and returns it to the inode allocator. The zeroed
// record and any aggregate free-failures are returned to the caller.
func (m *Mapper) Delete(inodeNo int, inodes *volume.Allocator) (Raw, errors.DriverError) {
	in, err := m.table.Read(inodeNo)
	if err != nil {
		return Raw{}, err
	}

	var agg multiError
	for i := 0; i < DirectPointers; i++ {
		if in.Pointers[i] != 0 {
			agg.add(m.blocks.Free(int(in.Pointers[i])))
		}
	}

	if indirectBlock := in.Pointers[IndirectSlot]; indirectBlock != 0 {
		pointers, err := m.readIndirect(inodeNo, indirectBlock)
		if err == nil {
			for _, p := range pointers {
				if p != 0 {
					agg.add(m.blocks.Free(int(p)))
				}
			}
		} else {
			agg.add(err)
		}
		agg.add(m.blocks.Free(int(indirectBlock)))
		m.cache.invalidate(inodeNo)
	}

	zeroed := Raw{}
	if err := m.table.Write(inodeNo, zeroed); err != nil {
		agg.add(err)
	}
	agg.add(inodes.Free(inodeNo))

	return zeroed, agg.errOrNil()
}
