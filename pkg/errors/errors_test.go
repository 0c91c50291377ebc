package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := Wrap(errors.New("redis down"), ErrLockUnavailable.Code, ErrLockUnavailable.Status, "lock failed")
	got := FromError(wrapped)
	assert.Same(t, wrapped, got)
	assert.Equal(t, http.StatusServiceUnavailable, got.Status)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, "internal server error: boom", got.Error())
	assert.Nil(t, FromError(nil))
}

func TestCloneOverridesMessageOnly(t *testing.T) {
	clone := Clone(ErrEnrollmentLocked, "enrollment e1 is locked")
	assert.Equal(t, ErrEnrollmentLocked.Code, clone.Code)
	assert.Equal(t, "enrollment e1 is locked", clone.Message)
	assert.Equal(t, "enrollment is already being reconciled", ErrEnrollmentLocked.Message)
	assert.Nil(t, Clone(nil, "x"))
}

func TestIsMatchesByCode(t *testing.T) {
	locked := Clone(ErrEnrollmentLocked, "enrollment e1 is locked")
	assert.True(t, errors.Is(locked, ErrEnrollmentLocked))
	assert.True(t, errors.Is(fmt.Errorf("run: %w", locked), ErrEnrollmentLocked))
	assert.False(t, errors.Is(locked, ErrLockUnavailable))
	assert.False(t, errors.Is(errors.New("enrollment is already being reconciled"), ErrEnrollmentLocked))
}

func TestDomainSentinelStatuses(t *testing.T) {
	assert.Equal(t, http.StatusConflict, ErrEnrollmentLocked.Status)
	assert.Equal(t, http.StatusServiceUnavailable, ErrLockUnavailable.Status)
}
