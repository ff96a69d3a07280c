// Package device provides random-access, block-addressed I/O over a fixed-size
// disk image stream. It is the bottom of the stack: every other package talks
// to the image exclusively through a *BlockDevice.
package device

import (
	"io"
	"strconv"

	"github.com/go-ext2fs/ext2fs/errors"
)

// BlockSize is the fixed size, in bytes, of a single block. It is part of the
// on-disk format contract and is never negotiated at runtime.
const BlockSize = 1024

// TotalBlocks is the fixed number of blocks in an image.
const TotalBlocks = 1024

// ImageSize is the exact size, in bytes, of a valid disk image file.
const ImageSize = BlockSize * TotalBlocks

// BlockDevice is a thin wrapper around an io.ReadWriteSeeker that exposes
// whole-block reads and writes. There is no caching beyond whatever the
// underlying stream (typically an *os.File) provides; every write is flushed
// before returning.
type BlockDevice struct {
	stream io.ReadWriteSeeker
}

// New wraps an already-open stream. The caller is responsible for making sure
// the stream is exactly ImageSize bytes long.
func New(stream io.ReadWriteSeeker) *BlockDevice {
	return &BlockDevice{stream: stream}
}

func (d *BlockDevice) checkRange(blockNo int) errors.DriverError {
	if blockNo < 0 || blockNo >= TotalBlocks {
		return errors.ErrIOOutOfRange.WithMessage(
			"block number out of range [0, " + strconv.Itoa(TotalBlocks) + ")")
	}
	return nil
}

// ReadBlock reads exactly BlockSize bytes from block blockNo into buf.
// buf must be exactly BlockSize bytes long.
func (d *BlockDevice) ReadBlock(blockNo int, buf []byte) errors.DriverError {
	if len(buf) != BlockSize {
		return errors.ErrInvalidArgument.WithMessage("buffer must be exactly one block")
	}
	if err := d.checkRange(blockNo); err != nil {
		return err
	}

	if _, err := d.stream.Seek(int64(blockNo)*BlockSize, io.SeekStart); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	if _, err := io.ReadFull(d.stream, buf); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	return nil
}

// WriteBlock writes exactly BlockSize bytes from buf to block blockNo. The
// write is flushed (via Sync, when the stream supports it) before returning.
func (d *BlockDevice) WriteBlock(blockNo int, buf []byte) errors.DriverError {
	if len(buf) != BlockSize {
		return errors.ErrInvalidArgument.WithMessage("buffer must be exactly one block")
	}
	if err := d.checkRange(blockNo); err != nil {
		return err
	}

	if _, err := d.stream.Seek(int64(blockNo)*BlockSize, io.SeekStart); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	if _, err := d.stream.Write(buf); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}

	type syncer interface{ Sync() error }
	if s, ok := d.stream.(syncer); ok {
		if err := s.Sync(); err != nil {
			return errors.ErrIOFailed.WrapError(err)
		}
	}
	return nil
}
