package registry

// List returns the registry's current entries unchanged: no stale
// filtering, callers decide. Still performed under the semaphore so a
// half-written registry is never observed.
func (r *Registry) List() ([]Allocation, error) {
	var result []Allocation

	err := r.withLock(func() error {
		rec, err := r.readRegistry()
		if err != nil {
			return err
		}

		result = toAllocations(rec.Entries)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
