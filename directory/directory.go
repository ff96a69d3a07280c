package directory

import (
	"github.com/go-ext2fs/ext2fs/device"
	"github.com/go-ext2fs/ext2fs/errors"
	"github.com/go-ext2fs/ext2fs/inode"
)

// Directory is variable-length directory-entry storage layered over one
// directory inode's byte stream. Entries never span a block boundary: each
// block holds a self-contained chain of entries whose rec_len values sum to
// exactly BlockSize, the last entry's rec_len stretching to fill any
// trailing slack. This mirrors ext2 proper and keeps Insert/Remove scoped to
// a single block at a time.
type Directory struct {
	file *inode.File
}

// New wraps a directory inode's byte stream for entry-level access.
func New(file *inode.File) *Directory {
	return &Directory{file: file}
}

func (d *Directory) readBlock(blockIndex int) ([]byte, errors.DriverError) {
	block := make([]byte, device.BlockSize)
	n, err := d.file.Read(block, device.BlockSize, blockIndex*device.BlockSize)
	if err != nil {
		return nil, err
	}
	_ = n // directory sizes are whole blocks, so every index below blockCount reads in full
	return block, nil
}

func (d *Directory) writeBlock(blockIndex int, block []byte) errors.DriverError {
	_, err := d.file.Write(block, device.BlockSize, blockIndex*device.BlockSize)
	return err
}

func blockCount(sizeBytes int) int {
	return (sizeBytes + device.BlockSize - 1) / device.BlockSize
}

// List returns every non-tombstone entry across all of the directory's
// blocks, in on-disk order.
func (d *Directory) List(sizeBytes int) ([]Entry, errors.DriverError) {
	var out []Entry
	nBlocks := blockCount(sizeBytes)
	for b := 0; b < nBlocks; b++ {
		block, err := d.readBlock(b)
		if err != nil {
			return nil, err
		}
		offset := 0
		for offset < device.BlockSize {
			e, err := decodeEntry(block, offset)
			if err != nil {
				return nil, err
			}
			if !e.IsFree() {
				out = append(out, e)
			}
			offset += int(e.RecLen)
		}
	}
	return out, nil
}

// Lookup finds the entry named name. found is false if no live entry matches.
func (d *Directory) Lookup(sizeBytes int, name string) (entry Entry, found bool, err errors.DriverError) {
	entries, err := d.List(sizeBytes)
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// Insert adds a new entry for name, reusing a tombstone or carving slack out
// of an existing entry's trailing padding if one is large enough; otherwise
// it appends a new block. It returns ErrExists if name is already
// present, and the new size in bytes of the directory's data if it grew.
func (d *Directory) Insert(sizeBytes int, name string, inodeNo uint32, fileType byte) (int, errors.DriverError) {
	needed := minRecLen(len(name))

	if _, found, err := d.Lookup(sizeBytes, name); err != nil {
		return sizeBytes, err
	} else if found {
		return sizeBytes, errors.ErrExists
	}

	nBlocks := blockCount(sizeBytes)
	for b := 0; b < nBlocks; b++ {
		block, err := d.readBlock(b)
		if err != nil {
			return sizeBytes, err
		}

		offset := 0
		for offset < device.BlockSize {
			e, err := decodeEntry(block, offset)
			if err != nil {
				return sizeBytes, err
			}

			if e.IsFree() && e.RecLen >= needed {
				d.splitAndPlace(block, offset, e.RecLen, needed, name, inodeNo, fileType)
				return sizeBytes, d.writeBlock(b, block)
			}

			if !e.IsFree() {
				used := minRecLen(len(e.Name))
				slack := e.RecLen - used
				if slack >= needed {
					e.RecLen = used
					if err := encodeEntry(block[offset:offset+int(used)], e); err != nil {
						return sizeBytes, err
					}
					d.splitAndPlace(block, offset+int(used), slack, needed, name, inodeNo, fileType)
					return sizeBytes, d.writeBlock(b, block)
				}
			}

			offset += int(e.RecLen)
		}
	}

	// No room anywhere: append a fresh block whose single entry spans it.
	block := make([]byte, device.BlockSize)
	entry := Entry{Inode: inodeNo, RecLen: uint16(device.BlockSize), FileType: fileType, Name: name}
	if err := encodeEntry(block, entry); err != nil {
		return sizeBytes, err
	}
	if err := d.writeBlock(nBlocks, block); err != nil {
		return sizeBytes, err
	}
	return (nBlocks + 1) * device.BlockSize, nil
}

// splitAndPlace writes a tombstone-gap-filling entry for name at
// block[offset:offset+available], trimming it to exactly needed bytes and
// leaving any leftover slack as a fresh tombstone.
func (d *Directory) splitAndPlace(block []byte, offset int, available uint16, needed uint16, name string, inodeNo uint32, fileType byte) {
	leftover := available - needed
	// Only split off a new tombstone if the leftover itself can hold one;
	// otherwise fold the slack into this entry so no unaddressable gap remains.
	if leftover < entryHeaderSize {
		needed = available
	}

	entry := Entry{Inode: inodeNo, RecLen: needed, FileType: fileType, Name: name}
	_ = encodeEntry(block[offset:offset+int(needed)], entry)

	if needed < available {
		gap := Entry{Inode: 0, RecLen: available - needed}
		_ = encodeEntry(block[offset+int(needed):offset+int(available)], gap)
	}
}

// Remove tombstones the entry named name by zeroing its inode number. The
// slot's rec_len is left untouched so later entries in the block are not
// disturbed; adjacent tombstones are not coalesced.
func (d *Directory) Remove(sizeBytes int, name string) errors.DriverError {
	nBlocks := blockCount(sizeBytes)
	for b := 0; b < nBlocks; b++ {
		block, err := d.readBlock(b)
		if err != nil {
			return err
		}

		offset := 0
		for offset < device.BlockSize {
			e, err := decodeEntry(block, offset)
			if err != nil {
				return err
			}
			if !e.IsFree() && e.Name == name {
				e.Inode = 0
				if err := encodeEntry(block[offset:offset+int(e.RecLen)], e); err != nil {
					return err
				}
				return d.writeBlock(b, block)
			}
			offset += int(e.RecLen)
		}
	}
	return errors.ErrNotFound
}

// IsEmpty reports whether the directory holds nothing but "." and "..".
func (d *Directory) IsEmpty(sizeBytes int) (bool, errors.DriverError) {
	entries, err := d.List(sizeBytes)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Name != "." && e.Name != ".." {
			return false, nil
		}
	}
	return true, nil
}
