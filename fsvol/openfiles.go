package fsvol

import (
	"github.com/go-ext2fs/ext2fs/errors"
)

// Open-file access modes: 0 = read-only, 1 = write-only, 2 = read-write.
// Mutually exclusive.
const (
	FlagReadOnly  = 0
	FlagWriteOnly = 1
	FlagReadWrite = 2
)

// MaxOpenFiles is the fixed capacity of the open-file table.
const MaxOpenFiles = 64

type openFileSlot struct {
	isOpen  bool
	fd      int
	inodeNo int
	flags   int
	offset  int
}

// OpenFileTable is the fixed-capacity array of open-file slots, addressed by
// a monotonically increasing file descriptor.
type OpenFileTable struct {
	slots  [MaxOpenFiles]openFileSlot
	nextFD int
}

// NewOpenFileTable returns an empty table. Unmount discards the table
// wholesale rather than flushing it: open files never survive unmount.
func NewOpenFileTable() *OpenFileTable {
	return &OpenFileTable{nextFD: 1}
}

// Open finds the first free slot, assigns it the next fd, and returns it.
// It fails with ErrTooManyOpenFiles if the table is full.
func (t *OpenFileTable) Open(inodeNo int, flags int) (int, errors.DriverError) {
	for i := range t.slots {
		if !t.slots[i].isOpen {
			fd := t.nextFD
			t.nextFD++
			t.slots[i] = openFileSlot{isOpen: true, fd: fd, inodeNo: inodeNo, flags: flags}
			return fd, nil
		}
	}
	return 0, errors.ErrTooManyOpenFiles
}

func (t *OpenFileTable) find(fd int) (int, errors.DriverError) {
	for i := range t.slots {
		if t.slots[i].isOpen && t.slots[i].fd == fd {
			return i, nil
		}
	}
	return 0, errors.ErrInvalidFileDescriptor
}

// Close invalidates the slot matching fd.
func (t *OpenFileTable) Close(fd int) errors.DriverError {
	i, err := t.find(fd)
	if err != nil {
		return err
	}
	t.slots[i] = openFileSlot{}
	return nil
}

// Lookup returns the inode, access flags and current offset for fd.
func (t *OpenFileTable) Lookup(fd int) (inodeNo int, flags int, offset int, err errors.DriverError) {
	i, err := t.find(fd)
	if err != nil {
		return 0, 0, 0, err
	}
	s := t.slots[i]
	return s.inodeNo, s.flags, s.offset, nil
}

// Advance moves fd's offset forward by n bytes, as Read/Write do after a
// successful transfer.
func (t *OpenFileTable) Advance(fd int, n int) errors.DriverError {
	i, err := t.find(fd)
	if err != nil {
		return err
	}
	t.slots[i].offset += n
	return nil
}
