package registry

import "github.com/calvinalkan/devlock/internal/registryfile"

// Clear replaces the registry with an empty, current-version one,
// ignoring ownership entirely. Intended for administrative recovery.
func (r *Registry) Clear() error {
	return r.withLock(func() error {
		return r.writeRegistry(registryfile.Empty())
	})
}
