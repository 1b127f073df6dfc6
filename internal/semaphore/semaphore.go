// Package semaphore implements the cross-process, file-based mutual
// exclusion primitive described in spec §4.5: try-acquire, blocking acquire
// with timeout, owner-checked or forced release, status, and stale cleanup.
// It is built from the path guard, the lock file codec, the atomic writer,
// and the liveness probe.
package semaphore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/calvinalkan/devlock/internal/atomicfile"
	"github.com/calvinalkan/devlock/internal/errs"
	"github.com/calvinalkan/devlock/internal/fsx"
	"github.com/calvinalkan/devlock/internal/liveness"
	"github.com/calvinalkan/devlock/internal/lockfile"
	"github.com/calvinalkan/devlock/internal/pathguard"
)

// DefaultStaleTimeout is the age past which a non-live holder's lock is
// considered stale (spec §3).
const DefaultStaleTimeout = 10 * time.Second

// DefaultRetryInterval is the polling interval used by blocking Acquire
// (spec §4.5).
const DefaultRetryInterval = 100 * time.Millisecond

// Record is the content of a held lock.
type Record = lockfile.Record

// Status reports the current state of a lock path without mutating it.
type Status struct {
	Locked                  bool
	Record                  Record
	IsStale                 bool
	IsOwnedByCurrentProcess bool
}

// Semaphore is a mutual-exclusion primitive keyed by a filesystem path. A
// Semaphore value has no mutable state of its own beyond its configuration;
// all coordination state lives in the lock file on disk, so multiple
// Semaphore values (in this process or others) backed by the same resolved
// path interoperate correctly.
type Semaphore struct {
	path          string
	fs            fsx.FS
	staleTimeout  time.Duration
	retryInterval time.Duration
	now           func() time.Time
	pid           int
	audit         func(event string, holderPID int, age time.Duration)
}

// Option configures a Semaphore constructed by [New].
type Option func(*Semaphore)

// WithFS overrides the filesystem implementation. Used by tests to inject
// [fsx.Chaos].
func WithFS(fs fsx.FS) Option {
	return func(s *Semaphore) { s.fs = fs }
}

// WithStaleTimeout overrides [DefaultStaleTimeout].
func WithStaleTimeout(d time.Duration) Option {
	return func(s *Semaphore) { s.staleTimeout = d }
}

// WithRetryInterval overrides [DefaultRetryInterval].
func WithRetryInterval(d time.Duration) Option {
	return func(s *Semaphore) { s.retryInterval = d }
}

// WithAuditFunc registers a callback invoked whenever an acquisition
// reclaims another holder's lock: event is "stale" or "corrupted", holderPID
// is the previous holder (0 if the lock could not be parsed at all), and age
// is how long the reclaimed lock had existed. Used to back --verbose audit
// lines (spec §10/§12) without making the semaphore core depend on the CLI's
// IO type.
func WithAuditFunc(fn func(event string, holderPID int, age time.Duration)) Option {
	return func(s *Semaphore) { s.audit = fn }
}

// withClock overrides the time source. Test-only (unexported): production
// callers have no legitimate reason to fake "now".
func withClock(now func() time.Time) Option {
	return func(s *Semaphore) { s.now = now }
}

// New validates and resolves path (spec §4.1) and returns a Semaphore ready
// to acquire/release it.
func New(path string, opts ...Option) (*Semaphore, error) {
	resolved, err := pathguard.Resolve(path)
	if err != nil {
		return nil, err
	}

	s := &Semaphore{
		path:          resolved,
		fs:            fsx.NewReal(),
		staleTimeout:  DefaultStaleTimeout,
		retryInterval: DefaultRetryInterval,
		now:           time.Now,
		pid:           os.Getpid(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Path returns the fully resolved lock path this Semaphore guards.
func (s *Semaphore) Path() string { return s.path }

// TryAcquire attempts a single non-blocking acquisition. tag is sanitized
// per spec §4.1 before being stored.
func (s *Semaphore) TryAcquire(tag string) (Record, error) {
	return s.tryAcquireOnePass(tag)
}

// Acquire blocks, retrying at retryInterval, until it succeeds or timeout
// elapses on the wall clock (time.Now, not the Semaphore's own clock, which
// only stamps and ages lock records). A timeout of zero behaves as a single non-blocking attempt:
// ALREADY_LOCKED is returned immediately instead of TIMEOUT, per spec §4.5.
func (s *Semaphore) Acquire(ctx context.Context, timeout time.Duration, tag string) (Record, error) {
	deadline := time.Now().Add(timeout)

	rec, err := s.tryAcquireOnePass(tag)
	if err == nil {
		return rec, nil
	}

	if !errors.Is(err, errs.ErrAlreadyLocked) {
		return Record{}, err
	}

	if timeout <= 0 {
		return Record{}, err
	}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Record{}, fmt.Errorf("%w: acquiring %q after %s", errs.ErrTimeout, s.path, timeout)
		}

		wait := s.retryInterval
		if wait > remaining {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return Record{}, ctx.Err()
		case <-time.After(wait):
		}

		if !time.Now().Before(deadline) {
			rec, err = s.tryAcquireOnePass(tag)
			if err == nil {
				return rec, nil
			}

			if !errors.Is(err, errs.ErrAlreadyLocked) {
				return Record{}, err
			}

			return Record{}, fmt.Errorf("%w: acquiring %q after %s", errs.ErrTimeout, s.path, timeout)
		}

		rec, err = s.tryAcquireOnePass(tag)
		if err == nil {
			return rec, nil
		}

		if !errors.Is(err, errs.ErrAlreadyLocked) {
			return Record{}, err
		}
	}
}

// tryAcquireOnePass runs the acquisition algorithm of spec §4.5 steps 1-5,
// including exactly one retry after removing a stale or corrupted lock.
func (s *Semaphore) tryAcquireOnePass(tag string) (Record, error) {
	rec := Record{
		PID:       s.pid,
		Timestamp: s.now().Unix(),
		Tag:       pathguard.SanitizeTag(tag, pathguard.MaxTagLength),
	}

	content := lockfile.Encode(rec)

	err := atomicfile.WriteExclusive(s.fs, s.path, content)
	if err == nil {
		return rec, nil
	}

	if !errors.Is(err, atomicfile.ErrExists) {
		return Record{}, fmt.Errorf("%w: acquiring %q: %v", errs.ErrIO, s.path, err)
	}

	// Exists: read, decide whether to treat as stale/corrupted and retry
	// once, or surface ALREADY_LOCKED.
	existing, corrupted, readErr := s.readExistingDetailed()
	if readErr != nil {
		return Record{}, readErr
	}

	shouldRetry := existing == nil || s.isStale(*existing)
	if !shouldRetry {
		return Record{}, &errs.LockedError{Path: s.path, HolderPID: existing.PID, HolderTag: existing.Tag}
	}

	if s.audit != nil {
		switch {
		case corrupted:
			s.audit("corrupted", 0, 0)
		case existing != nil:
			age := time.Duration(s.now().Unix()-existing.Timestamp) * time.Second
			s.audit("stale", existing.PID, age)
		}
	}

	if removeErr := s.fs.Remove(s.path); removeErr != nil && !os.IsNotExist(removeErr) {
		return Record{}, fmt.Errorf("%w: removing stale lock %q: %v", errs.ErrIO, s.path, removeErr)
	}

	retryErr := atomicfile.WriteExclusive(s.fs, s.path, content)
	if retryErr == nil {
		return rec, nil
	}

	if !errors.Is(retryErr, atomicfile.ErrExists) {
		return Record{}, fmt.Errorf("%w: acquiring %q: %v", errs.ErrIO, s.path, retryErr)
	}

	// Lost the race on retry. Best-effort re-read for context; an empty
	// holder is acceptable if this too races away before we can read it.
	if existing, readErr := s.readExisting(); readErr == nil && existing != nil {
		return Record{}, &errs.LockedError{Path: s.path, HolderPID: existing.PID, HolderTag: existing.Tag}
	}

	return Record{}, fmt.Errorf("%w: %q", errs.ErrAlreadyLocked, s.path)
}

// readExisting reads and parses the current lock file. A missing file
// (lost race - released between the Link failure and this read) returns
// (nil, nil). A parse failure returns (nil, nil) too: spec §4.5 step 5d
// treats an unparseable lock as corrupted, which the caller handles the
// same way it handles staleness (delete and retry).
func (s *Semaphore) readExisting() (*Record, error) {
	rec, _, err := s.readExistingDetailed()

	return rec, err
}

// readExistingDetailed is readExisting plus a corrupted flag, so callers
// that care (the acquire audit hook) can tell "lock vanished from under us"
// apart from "lock content didn't parse" - both cases still return a nil
// record for the decide-whether-to-retry logic.
func (s *Semaphore) readExistingDetailed() (*Record, bool, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("%w: reading %q: %v", errs.ErrIO, s.path, err)
	}

	rec, err := lockfile.Decode(data)
	if err != nil {
		return nil, true, nil
	}

	return &rec, false, nil
}

// isStale reports whether rec's holder is not running and its age exceeds
// staleTimeout (spec §3).
func (s *Semaphore) isStale(rec Record) bool {
	if liveness.IsRunning(rec.PID) {
		return false
	}

	age := s.now().Unix() - rec.Timestamp

	return age > int64(s.staleTimeout.Seconds())
}

// Release removes the lock. Unless force is true, it only succeeds if the
// current process is the recorded holder.
func (s *Semaphore) Release(force bool) error {
	existing, err := s.readExisting()
	if err != nil {
		return err
	}

	if existing == nil {
		return fmt.Errorf("%w: %q", errs.ErrNotLocked, s.path)
	}

	if !force && existing.PID != s.pid {
		return &errs.PermissionError{Path: s.path, HolderPID: existing.PID}
	}

	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing %q: %v", errs.ErrIO, s.path, err)
	}

	return nil
}

// Status reports the current state of the lock without mutating it.
func (s *Semaphore) Status() (Status, error) {
	existing, err := s.readExisting()
	if err != nil {
		return Status{}, err
	}

	if existing == nil {
		return Status{}, nil
	}

	return Status{
		Locked:                  true,
		Record:                  *existing,
		IsStale:                 s.isStale(*existing),
		IsOwnedByCurrentProcess: existing.PID == s.pid,
	}, nil
}

// GetLockInfo returns the current lock record, or ok=false if unlocked.
// Unlike Status/TryAcquire, a corrupted lock surfaces [errs.ErrParseError]
// here instead of being silently treated as absent, since callers asking
// specifically for the record want to know about corruption.
func (s *Semaphore) GetLockInfo() (Record, bool, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, false, nil
		}

		return Record{}, false, fmt.Errorf("%w: reading %q: %v", errs.ErrIO, s.path, err)
	}

	rec, err := lockfile.Decode(data)
	if err != nil {
		return Record{}, false, err
	}

	return rec, true, nil
}

// CleanStale removes the lock file if it is currently stale, and any
// orphaned atomic-writer temp files older than staleTimeout. Returns
// whether anything was removed.
func (s *Semaphore) CleanStale() (bool, error) {
	removedLock := false

	existing, err := s.readExisting()
	if err != nil {
		return false, err
	}

	if existing != nil && s.isStale(*existing) {
		if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("%w: removing stale lock %q: %v", errs.ErrIO, s.path, err)
		}

		removedLock = true
	}

	removedTemp, err := atomicfile.CleanOrphans(s.fs, s.path, s.staleTimeout)
	if err != nil {
		return removedLock, fmt.Errorf("%w: cleaning orphan temp files for %q: %v", errs.ErrIO, s.path, err)
	}

	return removedLock || removedTemp, nil
}
