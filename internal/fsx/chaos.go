package fsx

import (
	"math/rand/v2"
	"os"
	"sync"
	"syscall"
)

// ChaosConfig controls fault injection probabilities. Each rate is a
// float64 from 0.0 (never) to 1.0 (always). The zero value disables all
// fault injection. Trimmed from the teacher's pkg/fs.ChaosConfig down to
// the operations the semaphore and registry stores actually exercise on
// their IO_ERROR paths.
type ChaosConfig struct {
	OpenFailRate   float64
	WriteFailRate  float64
	RenameFailRate float64
	RemoveFailRate float64
	SyncFailRate   float64
}

// Chaos wraps another FS and injects faults according to Config. Safe for
// concurrent use.
type Chaos struct {
	inner  FS
	mu     sync.Mutex
	Config ChaosConfig
}

// NewChaos wraps inner with fault injection governed by cfg.
func NewChaos(inner FS, cfg ChaosConfig) *Chaos {
	return &Chaos{inner: inner, Config: cfg}
}

func (c *Chaos) roll(rate float64) bool {
	if rate <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return rand.Float64() < rate
}

func (c *Chaos) Open(path string) (File, error) {
	if c.roll(c.Config.OpenFailRate) {
		return nil, &os.PathError{Op: "open", Path: path, Err: syscall.EIO}
	}

	f, err := c.inner.Open(path)
	if err != nil {
		return nil, err
	}

	return &chaosFile{File: f, c: c}, nil
}

func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if c.roll(c.Config.OpenFailRate) {
		return nil, &os.PathError{Op: "open", Path: path, Err: syscall.EIO}
	}

	f, err := c.inner.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return &chaosFile{File: f, c: c}, nil
}

func (c *Chaos) Remove(path string) error {
	if c.roll(c.Config.RemoveFailRate) {
		return &os.PathError{Op: "remove", Path: path, Err: syscall.EIO}
	}

	return c.inner.Remove(path)
}

func (c *Chaos) Rename(oldPath, newPath string) error {
	if c.roll(c.Config.RenameFailRate) {
		return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: syscall.EIO}
	}

	return c.inner.Rename(oldPath, newPath)
}

func (c *Chaos) Link(oldPath, newPath string) error {
	if c.roll(c.Config.RenameFailRate) {
		return &os.LinkError{Op: "link", Old: oldPath, New: newPath, Err: syscall.EIO}
	}

	return c.inner.Link(oldPath, newPath)
}

func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	return c.inner.MkdirAll(path, perm)
}

func (c *Chaos) Stat(path string) (os.FileInfo, error) { return c.inner.Stat(path) }

func (c *Chaos) ReadDir(path string) ([]os.DirEntry, error) { return c.inner.ReadDir(path) }

func (c *Chaos) ReadFile(path string) ([]byte, error) {
	if c.roll(c.Config.OpenFailRate) {
		return nil, &os.PathError{Op: "open", Path: path, Err: syscall.EIO}
	}

	return c.inner.ReadFile(path)
}

func (c *Chaos) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if c.roll(c.Config.OpenFailRate) || c.roll(c.Config.WriteFailRate) {
		return &os.PathError{Op: "write", Path: path, Err: syscall.EIO}
	}

	if c.roll(c.Config.RenameFailRate) {
		return &os.LinkError{Op: "rename", Old: path + ".tmp", New: path, Err: syscall.EIO}
	}

	return c.inner.WriteFileAtomic(path, data, perm)
}

// chaosFile wraps a File to inject write/sync faults.
type chaosFile struct {
	File
	c *Chaos
}

func (f *chaosFile) Write(p []byte) (int, error) {
	if f.c.roll(f.c.Config.WriteFailRate) {
		return 0, &os.PathError{Op: "write", Err: syscall.EIO}
	}

	return f.File.Write(p)
}

func (f *chaosFile) Sync() error {
	if f.c.roll(f.c.Config.SyncFailRate) {
		return &os.PathError{Op: "sync", Err: syscall.EIO}
	}

	return f.File.Sync()
}
