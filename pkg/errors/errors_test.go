package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	plain := New(ErrCodeBookNotFound, "book not found")
	assert.Equal(t, "[40402] book not found", plain.Error())

	wrapped := Wrap(errors.New("connection refused"), "query book failed")
	assert.Equal(t, "[50000] query book failed: connection refused", wrapped.Error())

	coded := WrapCode(errors.New("i/o timeout"), ErrCodeRedisError, "save session failed")
	assert.Equal(t, ErrCodeRedisError, coded.Code)
	assert.Equal(t, "[50002] save session failed: i/o timeout", coded.Error())
}

func TestGetAppError(t *testing.T) {
	cause := errors.New("boom")

	t.Run("passes through app errors", func(t *testing.T) {
		got := GetAppError(ErrForbidden)
		assert.Same(t, ErrForbidden, got)
	})

	t.Run("wraps foreign errors as internal", func(t *testing.T) {
		got := GetAppError(cause)
		assert.Equal(t, ErrCodeInternal, got.Code)
		assert.ErrorIs(t, got, cause)
	})

	t.Run("formats wrapped message", func(t *testing.T) {
		got := GetAppError(Wrapf(cause, "lock book %d", 7))
		assert.Equal(t, "lock book 7", got.Message)
		assert.True(t, IsAppError(got))
	})
}
