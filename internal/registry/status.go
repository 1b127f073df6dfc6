package registry

// Status computes a snapshot of the registry's current state from a single
// read under the semaphore.
func (r *Registry) Status() (Status, error) {
	var result Status

	err := r.withLock(func() error {
		rec, err := r.readRegistry()
		if err != nil {
			return err
		}

		_, staleCount := r.filterStale(rec.Entries)
		owned := 0

		for _, e := range rec.Entries {
			if e.PID == r.pid {
				owned++
			}
		}

		total := len(rec.Entries)

		result = Status{
			TotalEntries:          total,
			ActiveEntries:         total - staleCount,
			StaleEntries:          staleCount,
			OwnedByCurrentProcess: owned,
			PortRange:             [2]int{r.cfg.MinPort, r.cfg.MaxPort},
			CapacityRemaining:     r.cfg.MaxRegistrySize - total,
		}

		return nil
	})

	return result, err
}
