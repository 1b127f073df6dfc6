package registry

import (
	"fmt"

	"github.com/calvinalkan/devlock/internal/errs"
)

// Release removes the registry entry for port, but only if it is owned by
// the current process.
func (r *Registry) Release(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %d", errs.ErrInvalidPort, port)
	}

	return r.withLock(func() error {
		rec, err := r.readRegistry()
		if err != nil {
			return err
		}

		idx := -1

		for i, e := range rec.Entries {
			if e.Port == port {
				idx = i

				break
			}
		}

		if idx == -1 {
			return fmt.Errorf("%w: port %d", errs.ErrNotRegistered, port)
		}

		owner := rec.Entries[idx]
		if owner.PID != r.pid {
			return &errs.NotOwnedError{Port: port, OwnerPID: owner.PID, CallerPID: r.pid}
		}

		rec.Entries = append(rec.Entries[:idx], rec.Entries[idx+1:]...)

		return r.writeRegistry(rec)
	})
}

// ReleaseAll removes every entry owned by the current process and returns
// how many were removed.
func (r *Registry) ReleaseAll() (int, error) {
	removed := 0

	err := r.withLock(func() error {
		rec, err := r.readRegistry()
		if err != nil {
			return err
		}

		filtered := rec.Entries[:0:0]

		for _, e := range rec.Entries {
			if e.PID == r.pid {
				removed++
				continue
			}

			filtered = append(filtered, e)
		}

		rec.Entries = filtered

		return r.writeRegistry(rec)
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}
