package registry

// Clean removes every stale entry (PID not running and older than
// StaleTimeout, see isStaleEntry) and returns how many were removed.
func (r *Registry) Clean() (int, error) {
	removed := 0

	err := r.withLock(func() error {
		rec, err := r.readRegistry()
		if err != nil {
			return err
		}

		var count int

		rec.Entries, count = r.filterStale(rec.Entries)
		removed = count

		return r.writeRegistry(rec)
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}
