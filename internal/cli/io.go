package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// IO handles command input/output, including the `--json` and `--verbose`
// flags shared by both CLIs (spec §6). Adapted from the teacher's
// internal/cli.IO: plain-text commands still get warning visibility at both
// ends of output, while structured commands emit a single JSON object.
type IO struct {
	out     io.Writer
	errOut  io.Writer
	json    bool
	verbose bool

	warnings []string
	started  bool
}

// NewIO creates an IO instance. json and verbose mirror the command's
// --json/--verbose flags.
func NewIO(out, errOut io.Writer, jsonOutput, verbose bool) *IO {
	return &IO{out: out, errOut: errOut, json: jsonOutput, verbose: verbose}
}

// JSON reports whether --json output was requested.
func (o *IO) JSON() bool { return o.json }

// Verbosef writes an audit line to stderr, but only when --verbose was
// passed. Used for things like "stale lock removed" or "corrupted lock
// recovered" that should never be silently swallowed when a caller asked
// for visibility, per spec §10.
func (o *IO) Verbosef(format string, a ...any) {
	if !o.verbose {
		return
	}

	_, _ = fmt.Fprintf(o.errOut, format+"\n", a...)
}

// Warn records an actionable warning. Warnings are flushed to stderr at
// both the start and the end of output, so they survive truncation or
// piping through head/tail.
func (o *IO) Warn(msg string) {
	o.warnings = append(o.warnings, msg)
}

// Println writes to stdout, flushing any pending start-of-output warnings
// first.
func (o *IO) Println(a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout, flushing pending warnings
// first.
func (o *IO) Printf(format string, a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// PrintJSON writes v to stdout as indented JSON.
func (o *IO) PrintJSON(v any) error {
	o.flushWarningsStart()

	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// ErrPrintln writes to stderr directly, bypassing warning buffering.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish flushes any remaining warnings to stderr. Returns 1 if any
// warnings were recorded, 0 otherwise - callers that care fold this into
// their exit code decision.
func (o *IO) Finish() int {
	o.flushWarningsStart()

	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	if len(o.warnings) > 0 {
		return 1
	}

	return 0
}

func (o *IO) flushWarningsStart() {
	if o.started {
		return
	}

	o.started = true

	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}
}
