// Package registry implements the port registry (spec §4.8): a persisted
// mapping of allocated TCP ports to their owning processes, protected by
// one semaphore, with liveness-based reclamation.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calvinalkan/devlock/internal/errs"
	"github.com/calvinalkan/devlock/internal/fsx"
	"github.com/calvinalkan/devlock/internal/liveness"
	"github.com/calvinalkan/devlock/internal/pathguard"
	"github.com/calvinalkan/devlock/internal/registryfile"
	"github.com/calvinalkan/devlock/internal/semaphore"
)

// Defaults, per spec §4.8's configuration table.
const (
	DefaultMinPort            = 49152
	DefaultMaxPort            = 65535
	DefaultMaxPortsPerRequest = 100
	DefaultMaxRegistrySize    = 1000
	DefaultStaleTimeout       = time.Hour
	PrivilegedPortFloor       = 1024
)

// lockTimeout is how long Registry operations wait to acquire the
// registry's own semaphore before giving up. Kept short deliberately (spec
// §5: "short (~5s) to keep contention visible rather than hanging
// callers").
const lockTimeout = 5 * time.Second

const registryFileName = "registry.json"
const registryLockName = "registry.lock"

// Config configures a Registry. Zero-value fields are replaced with the
// documented defaults by [New].
type Config struct {
	MinPort            int
	MaxPort            int
	AllowPrivileged    bool
	MaxPortsPerRequest int
	MaxRegistrySize    int
	StaleTimeout       time.Duration
	RegistryDir        string
}

// Allocation is one entry returned to callers: the persisted state of a
// single allocated port.
type Allocation struct {
	Port      int
	PID       int
	Timestamp int64 // milliseconds since the epoch
	Tag       string
}

// Status summarizes the registry's current state (spec §4.8).
type Status struct {
	TotalEntries        int
	ActiveEntries       int
	StaleEntries        int
	OwnedByCurrentProcess int
	PortRange            [2]int
	CapacityRemaining    int
}

// Registry allocates and tracks TCP ports under a dedicated semaphore.
type Registry struct {
	cfg          Config
	fs           fsx.FS
	sem          *semaphore.Semaphore
	registryPath string
	pid          int
	now          func() time.Time
	audit        func(removed int)
}

// Option configures a Registry constructed by [New].
type Option func(*Registry)

// WithFS overrides the filesystem implementation. Used by tests to inject
// [fsx.Chaos].
func WithFS(fs fsx.FS) Option {
	return func(r *Registry) { r.fs = fs }
}

// withClock overrides the time source. Test-only.
func withClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithAuditFunc registers a callback invoked with the number of stale
// entries reclaimed in-memory during GetMultiple, before the batch is
// persisted. Backs the --verbose audit line (spec §10/§12), mirroring
// [github.com/calvinalkan/devlock/internal/semaphore.WithAuditFunc].
func WithAuditFunc(fn func(removed int)) Option {
	return func(r *Registry) { r.audit = fn }
}

// New resolves cfg.RegistryDir (creating nothing yet; the directory is
// created on the first operation, before the registry lock is taken) and
// returns a Registry ready to serve operations.
func New(cfg Config, opts ...Option) (*Registry, error) {
	cfg = applyDefaults(cfg)

	dir, err := pathguard.Resolve(cfg.RegistryDir)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		cfg:          cfg,
		fs:           fsx.NewReal(),
		registryPath: filepath.Join(dir, registryFileName),
		pid:          os.Getpid(),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	sem, err := semaphore.New(
		filepath.Join(dir, registryLockName),
		semaphore.WithFS(r.fs),
		semaphore.WithStaleTimeout(cfg.StaleTimeout),
	)
	if err != nil {
		return nil, err
	}

	r.sem = sem

	return r, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.MinPort == 0 {
		cfg.MinPort = DefaultMinPort
	}

	if cfg.MaxPort == 0 {
		cfg.MaxPort = DefaultMaxPort
	}

	if !cfg.AllowPrivileged && cfg.MinPort < PrivilegedPortFloor {
		cfg.MinPort = PrivilegedPortFloor
	}

	if cfg.MaxPortsPerRequest == 0 {
		cfg.MaxPortsPerRequest = DefaultMaxPortsPerRequest
	}

	if cfg.MaxRegistrySize == 0 {
		cfg.MaxRegistrySize = DefaultMaxRegistrySize
	}

	if cfg.StaleTimeout == 0 {
		cfg.StaleTimeout = DefaultStaleTimeout
	}

	if cfg.RegistryDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.RegistryDir = filepath.Join(home, ".devlock")
		} else {
			cfg.RegistryDir = ".devlock"
		}
	}

	return cfg
}

// Config returns the effective (defaulted) configuration.
func (r *Registry) Config() Config { return r.cfg }

// withLock creates the registry directory (owner-only) if it is missing,
// acquires the registry's semaphore, runs fn, and always releases it again,
// regardless of how fn returns.
func (r *Registry) withLock(fn func() error) error {
	dir := filepath.Dir(r.registryPath)
	if err := r.fs.MkdirAll(dir, registryfile.DirPerm); err != nil {
		return fmt.Errorf("%w: creating registry dir %q: %v", errs.ErrIO, dir, err)
	}

	_, err := r.sem.Acquire(context.Background(), lockTimeout, "")
	if err != nil {
		return fmt.Errorf("acquiring registry lock: %w", err)
	}

	defer func() { _ = r.sem.Release(false) }()

	return fn()
}

func (r *Registry) readRegistry() (registryfile.Record, error) {
	return registryfile.Read(r.fs, r.registryPath)
}

func (r *Registry) writeRegistry(rec registryfile.Record) error {
	return registryfile.Write(r.fs, r.registryPath, rec)
}

// isStaleEntry mirrors the lock staleness rule (spec §3) for registry
// entries: not live, and older than staleTimeout.
func (r *Registry) isStaleEntry(e registryfile.Entry) bool {
	if liveness.IsRunning(e.PID) {
		return false
	}

	age := time.Duration(r.now().UnixMilli()-e.Timestamp) * time.Millisecond

	return age > r.cfg.StaleTimeout
}

// filterStale splits entries into the ones that survive and a count of
// those removed as stale.
func (r *Registry) filterStale(entries []registryfile.Entry) ([]registryfile.Entry, int) {
	kept := make([]registryfile.Entry, 0, len(entries))
	removed := 0

	for _, e := range entries {
		if r.isStaleEntry(e) {
			removed++
			continue
		}

		kept = append(kept, e)
	}

	return kept, removed
}

func toAllocation(e registryfile.Entry) Allocation {
	return Allocation{Port: e.Port, PID: e.PID, Timestamp: e.Timestamp, Tag: e.Tag}
}

func toAllocations(entries []registryfile.Entry) []Allocation {
	out := make([]Allocation, len(entries))
	for i, e := range entries {
		out[i] = toAllocation(e)
	}

	return out
}
