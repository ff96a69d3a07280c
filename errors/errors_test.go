package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/go-ext2fs/ext2fs/errors"
	"github.com/stretchr/testify/assert"
)

func TestDiskoErrorWithMessage(t *testing.T) {
	newErr := errors.ErrNotFound.WithMessage("/etc/passwd")
	assert.Equal(
		t, "No such file or directory: /etc/passwd", newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, errors.ErrNotFound)
}

func TestDiskoErrorWrap(t *testing.T) {
	originalErr := stderrors.New("disk read failed")
	newErr := errors.ErrIOFailed.WrapError(originalErr)
	expectedMessage := "Input/output error: disk read failed"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, errors.ErrIOFailed, "DiskoError not set as parent")
}

func TestBadFormatIsDistinctFromNotMounted(t *testing.T) {
	assert.NotErrorIs(t, errors.ErrBadFormat, errors.ErrNotMounted)
}
