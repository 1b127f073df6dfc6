package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calvinalkan/devlock/internal/errs"
)

func TestLockedError_UnwrapsToSentinel(t *testing.T) {
	t.Parallel()

	err := &errs.LockedError{Path: "/x.lock", HolderPID: 1, HolderTag: "t"}
	assert.ErrorIs(t, err, errs.ErrAlreadyLocked)
	assert.Contains(t, err.Error(), "pid 1")
	assert.Contains(t, err.Error(), "\"t\"")
}

func TestLockedError_OmitsTagWhenEmpty(t *testing.T) {
	t.Parallel()

	err := &errs.LockedError{Path: "/x.lock", HolderPID: 1}
	assert.NotContains(t, err.Error(), "tag")
}

func TestPermissionError_UnwrapsToSentinel(t *testing.T) {
	t.Parallel()

	err := &errs.PermissionError{Path: "/x.lock", HolderPID: 7}
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "pid 7")
}

func TestNotOwnedError_UnwrapsToSentinel(t *testing.T) {
	t.Parallel()

	err := &errs.NotOwnedError{Port: 8080, OwnerPID: 1, CallerPID: 2}
	assert.ErrorIs(t, err, errs.ErrNotOwned)
	assert.Contains(t, err.Error(), "8080")
}

func TestErrorsAsRecoversContext(t *testing.T) {
	t.Parallel()

	var wrapped error = &errs.LockedError{Path: "/x.lock", HolderPID: 99}

	var target *errs.LockedError
	ok := errors.As(wrapped, &target)
	assert.True(t, ok)
	assert.Equal(t, 99, target.HolderPID)
}
