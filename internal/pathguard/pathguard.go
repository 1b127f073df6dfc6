// Package pathguard validates caller-supplied lock paths and sanitizes
// holder-supplied tag strings (spec §4.1). It is the first thing every
// semaphore and registry operation consults, before any filesystem call.
package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/devlock/internal/errs"
)

// MaxTagLength is the default cap applied by [SanitizeTag] when callers
// don't need a tighter bound. Spec §4.1 requires at least 256.
const MaxTagLength = 256

// Resolve validates path against traversal and NUL-byte injection, then
// resolves it to an absolute, normalized path with symlinks followed to
// their targets (including dangling ones).
//
// Rejects any path whose textual form, or its cleaned/absolute form,
// contains ".." as a path segment, or contains a NUL byte anywhere.
func Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", errs.ErrPathTraversal)
	}

	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("%w: %q contains a NUL byte", errs.ErrPathTraversal, path)
	}

	if hasDotDotSegment(path) {
		return "", fmt.Errorf("%w: %q contains a \"..\" segment", errs.ErrPathTraversal, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %q: %v", errs.ErrPathTraversal, path, err)
	}

	abs = filepath.Clean(abs)
	if hasDotDotSegment(abs) {
		return "", fmt.Errorf("%w: %q normalizes through \"..\"", errs.ErrPathTraversal, path)
	}

	resolved, err := resolveSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: resolving symlinks for %q: %v", errs.ErrPathTraversal, path, err)
	}

	if hasDotDotSegment(resolved) {
		return "", fmt.Errorf("%w: %q resolves through \"..\"", errs.ErrPathTraversal, path)
	}

	return resolved, nil
}

func hasDotDotSegment(p string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == ".." {
			return true
		}
	}

	return false
}

// resolveSymlinks walks up from the deepest existing ancestor of path,
// resolving any symlink components it finds, and reattaches the remaining
// (possibly non-existent) suffix unchanged. This lets callers name a lock
// path that doesn't exist yet while still following symlinks in directories
// that do. A component that is a dangling symlink is followed one level to
// its (non-existent) target.
func resolveSymlinks(absPath string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absPath)
	if err == nil {
		return resolved, nil
	}

	// EvalSymlinks fails on a dangling symlink, so read the link by hand and
	// resolve the directory its target would live in.
	if target, linkErr := os.Readlink(absPath); linkErr == nil {
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(absPath), target)
		}

		target = filepath.Clean(target)
		if resolvedDir, dirErr := filepath.EvalSymlinks(filepath.Dir(target)); dirErr == nil {
			return filepath.Join(resolvedDir, filepath.Base(target)), nil
		}
	}

	// Walk up to the first ancestor that exists and can be resolved; append
	// the unresolved suffix back on. This handles "path doesn't exist yet"
	// (the common case for a lock file about to be created).
	dir := filepath.Dir(absPath)
	base := filepath.Base(absPath)

	if dir == absPath {
		// Reached the root without success; surface the original error.
		return "", err
	}

	resolvedDir, dirErr := resolveSymlinks(dir)
	if dirErr != nil {
		return "", dirErr
	}

	return filepath.Join(resolvedDir, base), nil
}

// SanitizeTag strips all control characters (0x00-0x1F and 0x7F) from s and
// truncates the result to maxLen runes. An all-control-character input
// sanitizes to the empty string, which callers treat as "no tag".
func SanitizeTag(s string, maxLen int) string {
	var b strings.Builder

	b.Grow(len(s))

	count := 0

	for _, r := range s {
		if count >= maxLen {
			break
		}

		if r <= 0x1F || r == 0x7F {
			continue
		}

		b.WriteRune(r)
		count++
	}

	return b.String()
}
