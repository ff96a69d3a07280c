package inode

import (
	"github.com/hashicorp/go-multierror"

	"github.com/go-ext2fs/ext2fs/errors"
)

// multiError aggregates failures from a sequence of independent cleanup steps
// (freeing direct pointers, the indirect block's contents, and the indirect
// block itself) so that one failure doesn't abort the rest of the unwind.
type multiError struct {
	err *multierror.Error
}

func (m *multiError) add(err errors.DriverError) {
	if err == nil {
		return
	}
	m.err = multierror.Append(m.err, err)
}

func (m *multiError) errOrNil() errors.DriverError {
	if m.err == nil || len(m.err.Errors) == 0 {
		return nil
	}
	return errors.ErrIOFailed.WrapError(m.err)
}
