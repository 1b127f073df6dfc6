// Package errs defines the typed error kinds shared by the semaphore and
// port registry cores (spec §7). Every public operation in this module
// returns one of these sentinels (directly, wrapped, or as the Unwrap target
// of a contextual error type) instead of throwing.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers branch on these with errors.Is/errors.As.
var (
	// ErrAlreadyLocked is returned when a lock path is already held by a
	// live, non-stale holder. Carried context: see [LockedError].
	ErrAlreadyLocked = errors.New("already locked")

	// ErrNotLocked is returned by release when no lock file exists, or when
	// the existing lock file cannot be parsed.
	ErrNotLocked = errors.New("not locked")

	// ErrPermissionDenied is returned by release when the caller is not the
	// recorded holder and force was not requested. Carried context: see
	// [PermissionError].
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTimeout is returned by a blocking acquire once the caller's timeout
	// budget has elapsed without success.
	ErrTimeout = errors.New("timeout")

	// ErrIO wraps an underlying filesystem condition that isn't one of the
	// other typed kinds (permission errors aside, disk full, etc).
	ErrIO = errors.New("io error")

	// ErrPathTraversal is returned by the path guard for any caller-supplied
	// path containing ".." segments or a NUL byte.
	ErrPathTraversal = errors.New("path traversal")

	// ErrParseError is returned when a lock record is missing a required
	// field. Registry parse failures are recovered locally (treated as an
	// empty registry) and never surface this kind.
	ErrParseError = errors.New("parse error")

	// ErrSizeLimit is returned by getMultiple when the batch would push the
	// registry past maxRegistrySize.
	ErrSizeLimit = errors.New("registry size limit exceeded")

	// ErrInvalidPort is returned for a port number outside 1-65535, or for a
	// batch request that cannot be satisfied within [minPort, maxPort].
	ErrInvalidPort = errors.New("invalid port")

	// ErrInvalidCount is returned by getMultiple for count < 1 or
	// count > maxPortsPerRequest.
	ErrInvalidCount = errors.New("invalid port count")

	// ErrNotRegistered is returned by release when no entry with the given
	// port exists at all.
	ErrNotRegistered = errors.New("port not registered")

	// ErrNotOwned is returned by release when the port is registered to a
	// different PID, whether or not that PID is still running. Carried
	// context: see [NotOwnedError].
	ErrNotOwned = errors.New("port not owned by current process")
)

// LockedError carries the identity of the current holder of a contested
// lock path, so callers can report "held by pid %d" without a second read.
type LockedError struct {
	Path      string
	HolderPID int
	HolderTag string
}

func (e *LockedError) Error() string {
	if e.HolderTag != "" {
		return fmt.Sprintf("lock %q held by pid %d (tag %q)", e.Path, e.HolderPID, e.HolderTag)
	}

	return fmt.Sprintf("lock %q held by pid %d", e.Path, e.HolderPID)
}

func (e *LockedError) Unwrap() error { return ErrAlreadyLocked }

// PermissionError carries the identity of the recorded holder when a
// release is rejected because the caller isn't the owner.
type PermissionError struct {
	Path      string
	HolderPID int
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("lock %q is held by pid %d, not the calling process", e.Path, e.HolderPID)
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }

// NotOwnedError carries the identity of the actual owner of a registered
// port when release is rejected.
type NotOwnedError struct {
	Port      int
	OwnerPID  int
	CallerPID int
}

func (e *NotOwnedError) Error() string {
	return fmt.Sprintf("port %d is registered to pid %d, not the calling process (pid %d)",
		e.Port, e.OwnerPID, e.CallerPID)
}

func (e *NotOwnedError) Unwrap() error { return ErrNotOwned }
