// Package atomicfile implements the write-temp-then-publish discipline
// behind lock creation (spec §4.3): [WriteExclusive] uses a hardlink
// instead of a rename to publish, because unlike rename(2), link(2) fails
// with EEXIST rather than silently replacing an existing target — that's
// what gives the semaphore's lock-creation step its exclusivity. The
// registry file uses a different publish mode (plain overwrite, since the
// semaphore already serializes its writers); see
// [github.com/calvinalkan/devlock/internal/fsx.FS.WriteFileAtomic].
package atomicfile

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/calvinalkan/devlock/internal/fsx"
)

// Perm is the owner-only mode (spec §4.3: "0600 equivalent where
// supported") used for every lock and registry file this package writes.
const Perm = 0o600

// ErrExists is returned by WriteExclusive when the target path is already
// occupied at publish time.
var ErrExists = errors.New("target already exists")

// tempSuffixBytes gives >=64 bits of entropy in the temp file name (spec
// §4.3 requires "at least 64 bits" from a cryptographic RNG).
const tempSuffixBytes = 10

// tempPath builds the sibling temp file name for target, matching the
// pattern spec §4.3/§6 describes: "<target>.<pid>.<random>.tmp".
func tempPath(target string) (string, error) {
	var buf [tempSuffixBytes]byte

	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating random temp suffix: %w", err)
	}

	suffix := hex.EncodeToString(buf[:])

	return fmt.Sprintf("%s.%d.%s.tmp", target, os.Getpid(), suffix), nil
}

// writeTemp creates a new file at a sibling temp path (O_EXCL, never
// following a symlink at the temp location itself), writes content with
// owner-only permissions, and syncs it. Returns the temp path for the
// caller to publish or discard.
func writeTemp(fs fsx.FS, target string, content []byte) (string, error) {
	temp, err := tempPath(target)
	if err != nil {
		return "", err
	}

	f, err := fs.OpenFile(temp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, Perm)
	if err != nil {
		return "", fmt.Errorf("create temp file %q: %w", temp, err)
	}

	writeErr := writeAndSync(f, temp, content)
	closeErr := f.Close()

	if writeErr != nil || closeErr != nil {
		_ = fs.Remove(temp)

		return "", errors.Join(writeErr, wrapClose(temp, closeErr))
	}

	return temp, nil
}

func writeAndSync(f fsx.File, path string, content []byte) error {
	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("write temp file %q: %w", path, err)
	}

	if err := f.Chmod(Perm); err != nil {
		return fmt.Errorf("chmod temp file %q: %w", path, err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync temp file %q: %w", path, err)
	}

	return nil
}

func wrapClose(path string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("close temp file %q: %w", path, err)
}

// WriteExclusive atomically creates target with content, but only if target
// does not already exist. Publishes via a hardlink (not rename) so an
// existing target is never silently replaced: link(2) fails with EEXIST
// when the destination is already occupied, which rename(2) would not.
//
// Returns [ErrExists] if target already existed at publish time. Note this
// is inherently racy with a concurrent WriteExclusive against the same
// target — that race is exactly what gives the semaphore mutual exclusion:
// at most one caller's link call can win.
func WriteExclusive(fs fsx.FS, target string, content []byte) error {
	temp, err := writeTemp(fs, target, content)
	if err != nil {
		return err
	}

	defer func() { _ = fs.Remove(temp) }()

	if err := fs.Link(temp, target); err != nil {
		if os.IsExist(err) {
			return ErrExists
		}

		return fmt.Errorf("link %q to %q: %w", temp, target, err)
	}

	return nil
}

// CleanOrphans removes sibling temp files for target that are older than
// olderThan. Only names of tempPath's shape, "<target>.<decimal pid>.<hex>.tmp",
// are considered, so this is safe to call against a directory shared with
// unrelated files.
func CleanOrphans(fs fsx.FS, target string, olderThan time.Duration) (bool, error) {
	dir := filepath.Dir(target)
	base := filepath.Base(target)

	entries, err := fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("read dir %q: %w", dir, err)
	}

	prefix := base + "."
	removedAny := false
	now := time.Now()

	for _, entry := range entries {
		name := entry.Name()

		mid, hasPrefix := strings.CutPrefix(name, prefix)
		mid, hasSuffix := strings.CutSuffix(mid, ".tmp")
		pidPart, randPart, hasDot := strings.Cut(mid, ".")

		if !hasPrefix || !hasSuffix || !hasDot || randPart == "" {
			continue
		}

		if _, err := strconv.ParseUint(pidPart, 10, 64); err != nil {
			continue
		}

		if _, err := hex.DecodeString(randPart); err != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if now.Sub(info.ModTime()) <= olderThan {
			continue
		}

		path := filepath.Join(dir, name)
		if err := fs.Remove(path); err == nil {
			removedAny = true
		}
	}

	return removedAny, nil
}
