package fsx

import (
	"bytes"
	"os"

	"github.com/natefinch/atomic"
)

// Real is the production FS backed directly by the os package.
type Real struct{}

// NewReal returns a Real filesystem.
func NewReal() *Real { return &Real{} }

func (r *Real) Open(path string) (File, error) { return os.Open(path) }

func (r *Real) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(path, flag, perm)
}

func (r *Real) Remove(path string) error { return os.Remove(path) }

func (r *Real) Rename(oldPath, newPath string) error { return os.Rename(oldPath, newPath) }

func (r *Real) Link(oldPath, newPath string) error { return os.Link(oldPath, newPath) }

func (r *Real) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (r *Real) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

func (r *Real) ReadDir(path string) ([]os.DirEntry, error) { return os.ReadDir(path) }

func (r *Real) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// WriteFileAtomic publishes data at path via natefinch/atomic's
// temp-write-then-rename, then forces owner-only permissions (the library
// itself uses a private CreateTemp, which is already 0600 on most
// platforms, but we don't rely on that being guaranteed).
func (r *Real) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}

	return os.Chmod(path, perm)
}
