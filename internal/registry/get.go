package registry

import (
	"fmt"
	"math/rand/v2"

	"github.com/calvinalkan/devlock/internal/errs"
	"github.com/calvinalkan/devlock/internal/pathguard"
	"github.com/calvinalkan/devlock/internal/portprobe"
	"github.com/calvinalkan/devlock/internal/registryfile"
)

// randomProbeAttempts is the number of uniformly random candidates tried
// before falling back to a sequential scan (spec §4.8: "fast on sparse
// ranges").
const randomProbeAttempts = 100

// Get allocates a single port. Convenience over GetMultiple(1, tag).
func (r *Registry) Get(tag string) (Allocation, error) {
	allocs, err := r.GetMultiple(1, tag)
	if err != nil {
		return Allocation{}, err
	}

	return allocs[0], nil
}

// GetMultiple allocates count ports atomically: either all succeed and are
// persisted together, or none are (spec §4.8). Stale entries are cleaned
// in-memory as part of the same write before the size limit is checked.
func (r *Registry) GetMultiple(count int, tag string) ([]Allocation, error) {
	if count < 1 || count > r.cfg.MaxPortsPerRequest {
		return nil, fmt.Errorf("%w: count %d must be between 1 and %d", errs.ErrInvalidCount, count, r.cfg.MaxPortsPerRequest)
	}

	sanitizedTag := pathguard.SanitizeTag(tag, pathguard.MaxTagLength)

	var result []Allocation

	err := r.withLock(func() error {
		rec, err := r.readRegistry()
		if err != nil {
			return err
		}

		var staleRemoved int
		rec.Entries, staleRemoved = r.filterStale(rec.Entries)

		if staleRemoved > 0 && r.audit != nil {
			r.audit(staleRemoved)
		}

		if len(rec.Entries)+count > r.cfg.MaxRegistrySize {
			return fmt.Errorf("%w: adding %d entries would exceed max registry size %d",
				errs.ErrSizeLimit, count, r.cfg.MaxRegistrySize)
		}

		excluded := make(map[int]bool, len(rec.Entries)+count)
		for _, e := range rec.Entries {
			excluded[e.Port] = true
		}

		proposed := make([]registryfile.Entry, 0, count)
		nowMs := r.now().UnixMilli()

		for i := 0; i < count; i++ {
			port, ok := r.findAvailablePort(excluded)
			if !ok {
				// Roll back: none of the proposed entries are added to rec.
				return fmt.Errorf("%w: no available port in [%d, %d]", errs.ErrInvalidPort, r.cfg.MinPort, r.cfg.MaxPort)
			}

			entry := registryfile.Entry{Port: port, PID: r.pid, Timestamp: nowMs, Tag: sanitizedTag}
			proposed = append(proposed, entry)
			excluded[port] = true
		}

		rec.Entries = append(rec.Entries, proposed...)

		if err := r.writeRegistry(rec); err != nil {
			return err
		}

		result = toAllocations(proposed)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// findAvailablePort searches [MinPort, MaxPort] for a port that is neither
// in excluded nor already tried this call, and that probes as bindable. It
// tries up to randomProbeAttempts uniformly random candidates first, then
// falls back to a sequential scan of the remainder (spec §4.8).
func (r *Registry) findAvailablePort(excluded map[int]bool) (int, bool) {
	rangeSize := r.cfg.MaxPort - r.cfg.MinPort + 1
	if rangeSize <= 0 {
		return 0, false
	}

	tried := make(map[int]bool)

	attempts := randomProbeAttempts
	if attempts > rangeSize {
		attempts = rangeSize
	}

	for i := 0; i < attempts; i++ {
		port := r.cfg.MinPort + rand.IntN(rangeSize)
		if excluded[port] || tried[port] {
			continue
		}

		tried[port] = true

		if portprobe.Available(port) {
			return port, true
		}
	}

	for port := r.cfg.MinPort; port <= r.cfg.MaxPort; port++ {
		if excluded[port] || tried[port] {
			continue
		}

		if portprobe.Available(port) {
			return port, true
		}
	}

	return 0, false
}
