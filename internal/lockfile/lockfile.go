// Package lockfile encodes and decodes the on-disk lock record described in
// spec §3 / §6: a line-oriented, UTF-8, key=value format that is
// bit-exact/interoperability-critical across language implementations.
package lockfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/devlock/internal/errs"
)

// Record is the decoded content of a lock file.
type Record struct {
	PID       int
	Timestamp int64 // seconds since the epoch
	Tag       string
}

// Encode serializes r as UTF-8 text with Unix line endings, one key=value
// pair per line. tag is omitted entirely when empty.
func Encode(r Record) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "pid=%d\n", r.PID)
	fmt.Fprintf(&b, "timestamp=%d\n", r.Timestamp)

	if r.Tag != "" {
		fmt.Fprintf(&b, "tag=%s\n", r.Tag)
	}

	return []byte(b.String())
}

// Decode parses a lock record. It tolerates blank lines, trailing
// whitespace, both Unix and DOS line endings, lines without "=", and
// unrecognized keys (forward compatibility). It returns [errs.ErrParseError]
// only when a required field (pid, timestamp) is missing or not a
// non-negative integer.
func Decode(data []byte) (Record, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	var (
		rec      Record
		havePID  bool
		haveTime bool
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "pid":
			n, err := parseNonNegativeInt(value)
			if err != nil {
				return Record{}, fmt.Errorf("%w: pid %q: %v", errs.ErrParseError, value, err)
			}

			rec.PID = n
			havePID = true
		case "timestamp":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n < 0 {
				return Record{}, fmt.Errorf("%w: timestamp %q is not a non-negative integer", errs.ErrParseError, value)
			}

			rec.Timestamp = n
			haveTime = true
		case "tag":
			rec.Tag = value
		default:
			// Unknown key: ignored for forward compatibility.
		}
	}

	if !havePID {
		return Record{}, fmt.Errorf("%w: missing required field %q", errs.ErrParseError, "pid")
	}

	if !haveTime {
		return Record{}, fmt.Errorf("%w: missing required field %q", errs.ErrParseError, "timestamp")
	}

	return rec, nil
}

func parseNonNegativeInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}

	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}

	return n, nil
}
