// Package directory implements the variable-length directory entry format
// and the insert/remove/lookup/list operations built on top of it: a 4-byte
// inode number, 2-byte rec_len, 1-byte name_len, 1-byte file type, followed
// by the raw name bytes, padded to a 4-byte boundary.
package directory

import (
	"encoding/binary"

	"github.com/go-ext2fs/ext2fs/errors"
)

// File type hints carried alongside each entry, mirroring ext2's d_file_type.
const (
	FileTypeUnknown byte = 0
	FileTypeRegular byte = 1
	FileTypeDir     byte = 2
)

// entryHeaderSize is the fixed portion of every entry: 4-byte inode number,
// 2-byte rec_len, 1-byte name_len, 1-byte file type.
const entryHeaderSize = 8

// Entry is one decoded directory entry. Inode == 0 marks a tombstone: a slot
// that once held an entry and was removed, kept around so its space can be
// reused or walked past without shifting later entries.
type Entry struct {
	Inode    uint32
	RecLen   uint16
	FileType byte
	Name     string
}

// IsFree reports whether this slot is a tombstone (removed or never used).
func (e Entry) IsFree() bool {
	return e.Inode == 0
}

// minRecLen returns the smallest rec_len that can hold a name of the given
// length, rounded up to a 4-byte boundary.
func minRecLen(nameLen int) uint16 {
	size := entryHeaderSize + nameLen
	return uint16((size + 3) &^ 3)
}

// encodeEntry writes e into dst[:e.RecLen]. dst must be at least e.RecLen
// bytes; the caller is responsible for that sizing.
func encodeEntry(dst []byte, e Entry) errors.DriverError {
	if int(e.RecLen) < int(minRecLen(len(e.Name))) {
		return errors.ErrInvalidArgument.WithMessage("rec_len too small for name")
	}
	if len(dst) < int(e.RecLen) {
		return errors.ErrInvalidArgument.WithMessage("destination shorter than rec_len")
	}

	binary.LittleEndian.PutUint32(dst[0:4], e.Inode)
	binary.LittleEndian.PutUint16(dst[4:6], e.RecLen)
	dst[6] = byte(len(e.Name))
	dst[7] = e.FileType
	copy(dst[entryHeaderSize:], e.Name)
	for i := entryHeaderSize + len(e.Name); i < int(e.RecLen); i++ {
		dst[i] = 0
	}
	return nil
}

// decodeEntry reads one entry starting at block[offset:].
func decodeEntry(block []byte, offset int) (Entry, errors.DriverError) {
	if offset+entryHeaderSize > len(block) {
		return Entry{}, errors.ErrFileSystemCorrupted.WithMessage("truncated directory entry header")
	}

	inode := binary.LittleEndian.Uint32(block[offset : offset+4])
	recLen := binary.LittleEndian.Uint16(block[offset+4 : offset+6])
	nameLen := int(block[offset+6])
	fileType := block[offset+7]

	if recLen < entryHeaderSize || offset+int(recLen) > len(block) {
		return Entry{}, errors.ErrFileSystemCorrupted.WithMessage("rec_len out of bounds")
	}
	if entryHeaderSize+nameLen > int(recLen) {
		return Entry{}, errors.ErrFileSystemCorrupted.WithMessage("name_len exceeds rec_len")
	}

	name := string(block[offset+entryHeaderSize : offset+entryHeaderSize+nameLen])
	return Entry{Inode: inode, RecLen: recLen, FileType: fileType, Name: name}, nil
}
