// Package registryfile implements the versioned, self-describing on-disk
// record for the port registry (spec §4.7 / §6): JSON-with-comments on
// read (so a hand-edited file tolerates trailing commas), plain indented
// JSON on write, published through the same atomic-write discipline as the
// lock file.
package registryfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/devlock/internal/atomicfile"
	"github.com/calvinalkan/devlock/internal/errs"
	"github.com/calvinalkan/devlock/internal/fsx"
)

// CurrentVersion is the only registry format version this package writes or
// accepts on read. Any other version is treated as not-current and the
// registry is read back as empty (spec §3: "unknown versions cause the
// registry to be treated as empty").
const CurrentVersion = 1

// DirPerm is the owner-only mode the registry directory is created with.
const DirPerm = 0o700

// Entry is one allocated port (spec §3).
type Entry struct {
	Port      int    `json:"port"`
	PID       int    `json:"pid"`
	Timestamp int64  `json:"timestamp"` // milliseconds since the epoch
	Tag       string `json:"tag,omitempty"`
}

// Record is the full registry file content.
type Record struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// Empty returns a fresh, current-version registry with no entries.
func Empty() Record {
	return Record{Version: CurrentVersion, Entries: []Entry{}}
}

// Read loads the registry file at path. Per spec §4.7, every form of
// recoverable corruption — a missing file, malformed JSON, a wrong or
// unknown version, or a non-array `entries` field — yields an empty,
// current-version registry with a nil error rather than a surfaced failure;
// the next successful Write silently repairs the on-disk state. Only a
// genuine filesystem failure (not "file does not exist") is returned as
// [errs.ErrIO].
func Read(fs fsx.FS, path string) (Record, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}

		return Record{}, fmt.Errorf("%w: reading registry %q: %v", errs.ErrIO, path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Empty(), nil
	}

	var rec Record

	if err := json.Unmarshal(standardized, &rec); err != nil {
		return Empty(), nil
	}

	if rec.Version != CurrentVersion {
		return Empty(), nil
	}

	if rec.Entries == nil {
		rec.Entries = []Entry{}
	}

	return rec, nil
}

// Write persists rec at path, creating path's parent directory with
// owner-only permissions if it doesn't exist yet, then publishing through
// the atomic writer.
func Write(fs fsx.FS, path string, rec Record) error {
	dir := filepath.Dir(path)

	if err := fs.MkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("%w: creating registry dir %q: %v", errs.ErrIO, dir, err)
	}

	if rec.Entries == nil {
		rec.Entries = []Entry{}
	}

	content, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding registry: %v", errs.ErrIO, err)
	}

	content = append(content, '\n')

	if err := fs.WriteFileAtomic(path, content, atomicfile.Perm); err != nil {
		return fmt.Errorf("%w: writing registry %q: %v", errs.ErrIO, path, err)
	}

	return nil
}
