package cli

import (
	"context"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/devlock/internal/semaphore"
)

// FileSemDeps are the dependencies the filesem command table needs beyond
// what flags provide: the configured stale timeout and retry interval,
// already layered from defaults/config file by the caller.
type FileSemDeps struct {
	StaleTimeout  time.Duration
	RetryInterval time.Duration
}

func newSemaphore(deps FileSemDeps, o *IO, path string) (*semaphore.Semaphore, error) {
	opts := []semaphore.Option{
		semaphore.WithAuditFunc(func(event string, holderPID int, age time.Duration) {
			if event == "corrupted" {
				o.Verbosef("corrupted lock recovered for %s", path)
			} else {
				o.Verbosef("stale lock removed for %s (pid %d, age %s)", path, holderPID, age)
			}
		}),
	}

	if deps.StaleTimeout > 0 {
		opts = append(opts, semaphore.WithStaleTimeout(deps.StaleTimeout))
	}

	if deps.RetryInterval > 0 {
		opts = append(opts, semaphore.WithRetryInterval(deps.RetryInterval))
	}

	return semaphore.New(path, opts...)
}

// FileSemCommands returns the command table for the filesem CLI (spec §6).
func FileSemCommands(deps FileSemDeps) []*Command {
	return []*Command{
		tryAcquireCommand(deps),
		acquireCommand(deps),
		releaseCommand(deps),
		statusCommand(deps),
		cleanCommand(deps),
	}
}

func recordReport(sem *semaphore.Semaphore, rec semaphore.Record) map[string]any {
	return map[string]any{
		"status":    "success",
		"path":      sem.Path(),
		"pid":       rec.PID,
		"timestamp": rec.Timestamp,
		"tag":       rec.Tag,
	}
}

func tryAcquireCommand(deps FileSemDeps) *Command {
	fs := flag.NewFlagSet("tryAcquire", flag.ContinueOnError)
	tag := fs.String("tag", "", "optional tag to store with the lock")

	return &Command{
		Flags: fs,
		Usage: "tryAcquire <path> [--tag <s>]",
		Short: "attempt a single non-blocking acquisition",
		Exec: func(_ context.Context, o *IO, args []string) int {
			if len(args) != 1 {
				o.ErrPrintln("error: tryAcquire requires exactly one <path> argument")

				return 1
			}

			sem, err := newSemaphore(deps, o, args[0])
			if err != nil {
				return ReportError(o, err)
			}

			rec, err := sem.TryAcquire(*tag)
			if err != nil {
				return ReportError(o, err)
			}

			return reportAcquired(o, sem, rec)
		},
	}
}

func acquireCommand(deps FileSemDeps) *Command {
	fs := flag.NewFlagSet("acquire", flag.ContinueOnError)
	tag := fs.String("tag", "", "optional tag to store with the lock")
	timeoutMS := fs.Int64("timeout", 0, "acquisition timeout in milliseconds")

	return &Command{
		Flags: fs,
		Usage: "acquire <path> --timeout <ms> [--tag <s>]",
		Short: "acquire, blocking up to --timeout",
		Exec: func(ctx context.Context, o *IO, args []string) int {
			if len(args) != 1 {
				o.ErrPrintln("error: acquire requires exactly one <path> argument")

				return 1
			}

			sem, err := newSemaphore(deps, o, args[0])
			if err != nil {
				return ReportError(o, err)
			}

			rec, err := sem.Acquire(ctx, time.Duration(*timeoutMS)*time.Millisecond, *tag)
			if err != nil {
				return ReportError(o, err)
			}

			return reportAcquired(o, sem, rec)
		},
	}
}

func reportAcquired(o *IO, sem *semaphore.Semaphore, rec semaphore.Record) int {
	if o.JSON() {
		_ = o.PrintJSON(recordReport(sem, rec))
	} else {
		o.Printf("acquired %s (pid %d)\n", sem.Path(), rec.PID)
	}

	return 0
}

func releaseCommand(deps FileSemDeps) *Command {
	fs := flag.NewFlagSet("release", flag.ContinueOnError)
	force := fs.Bool("force", false, "release even if not the recorded holder")

	return &Command{
		Flags: fs,
		Usage: "release <path> [--force]",
		Short: "release the lock",
		Exec: func(_ context.Context, o *IO, args []string) int {
			if len(args) != 1 {
				o.ErrPrintln("error: release requires exactly one <path> argument")

				return 1
			}

			sem, err := newSemaphore(deps, o, args[0])
			if err != nil {
				return ReportError(o, err)
			}

			if err := sem.Release(*force); err != nil {
				return ReportError(o, err)
			}

			if o.JSON() {
				_ = o.PrintJSON(map[string]any{"status": "success", "path": sem.Path()})
			} else {
				o.Printf("released %s\n", sem.Path())
			}

			return 0
		},
	}
}

func statusCommand(deps FileSemDeps) *Command {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "status <path>",
		Short: "report whether the lock is held",
		Exec: func(_ context.Context, o *IO, args []string) int {
			if len(args) != 1 {
				o.ErrPrintln("error: status requires exactly one <path> argument")

				return 1
			}

			sem, err := newSemaphore(deps, o, args[0])
			if err != nil {
				return ReportError(o, err)
			}

			st, err := sem.Status()
			if err != nil {
				return ReportError(o, err)
			}

			if o.JSON() {
				report := map[string]any{
					"status": "success",
					"path":   sem.Path(),
					"locked": st.Locked,
				}

				if st.Locked {
					report["pid"] = st.Record.PID
					report["timestamp"] = st.Record.Timestamp
					report["tag"] = st.Record.Tag
					report["is_stale"] = st.IsStale
					report["is_owned_by_current_process"] = st.IsOwnedByCurrentProcess
					report["age_seconds"] = time.Now().Unix() - st.Record.Timestamp
				}

				_ = o.PrintJSON(report)
			} else if st.Locked {
				o.Printf("locked by pid %d (stale=%v, owned_by_us=%v)\n", st.Record.PID, st.IsStale, st.IsOwnedByCurrentProcess)
			} else {
				o.Println("not locked")
			}

			return 0
		},
	}
}

func cleanCommand(deps FileSemDeps) *Command {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "clean <path>",
		Short: "remove the lock if it is stale",
		Exec: func(_ context.Context, o *IO, args []string) int {
			if len(args) != 1 {
				o.ErrPrintln("error: clean requires exactly one <path> argument")

				return 1
			}

			sem, err := newSemaphore(deps, o, args[0])
			if err != nil {
				return ReportError(o, err)
			}

			removed, err := sem.CleanStale()
			if err != nil {
				return ReportError(o, err)
			}

			if removed {
				o.Verbosef("removed stale lock/orphan temp files for %s", sem.Path())
			}

			if o.JSON() {
				_ = o.PrintJSON(map[string]any{"status": "success", "path": sem.Path(), "removed": removed})
			} else {
				o.Printf("removed=%v\n", removed)
			}

			return 0
		},
	}
}
