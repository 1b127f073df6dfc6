// Package fsx provides the filesystem seam used by the atomic writer and the
// registry store, so IO_ERROR paths can be exercised deterministically in
// tests without faulting a real disk. Adapted from the teacher's
// pkg/fs package: same File/FS shape, trimmed to the operations the
// semaphore and registry actually call.
package fsx

import (
	"io"
	"os"
)

// File represents an open file descriptor. Satisfied by *os.File.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Sync() error
	Chmod(mode os.FileMode) error
}

// FS abstracts the filesystem operations the devlock core needs: opening
// and renaming files, creating directories, and removing stale entries.
// [Real] delegates to the os package; [Chaos] wraps another FS and injects
// faults for testing.
type FS interface {
	Open(path string) (File, error)
	OpenFile(path string, flag int, perm os.FileMode) (File, error)
	Remove(path string) error
	Rename(oldPath, newPath string) error
	Link(oldPath, newPath string) error
	MkdirAll(path string, perm os.FileMode) error
	Stat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]os.DirEntry, error)
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic overwrites path's contents unconditionally via
	// temp-write-then-rename, with owner-only permissions. Used by the
	// registry store (spec §4.7), which doesn't need WriteExclusive's
	// hardlink-based create-only publish since its writers are already
	// serialized by the registry's own semaphore.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error
}
