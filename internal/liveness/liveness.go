// Package liveness answers the one question the semaphore and the registry
// both need before declaring a foreign entry stale: is this PID still
// running on this host (spec §4.4)? Implemented with a signal-0 kill probe,
// which neither sends a signal nor blocks.
//
// Known limitation, documented rather than solved per spec §4.4: PID reuse
// after process death is an inherent race. Stale detection mitigates it by
// additionally requiring the entry's age to exceed staleTimeout (see
// internal/semaphore and internal/registry), so a freshly reused PID is
// never immediately treated as a continuation of a dead one.
package liveness

import "golang.org/x/sys/unix"

// IsRunning reports whether pid currently names a running process on this
// host. It never blocks and never fails: any ambiguous or unknown condition
// is reported as "not running", per spec §4.4's contract.
func IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}

	// EPERM means a process with this PID exists but we lack permission to
	// signal it — it is still running.
	return err == unix.EPERM
}
