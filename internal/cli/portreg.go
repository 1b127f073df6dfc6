package cli

import (
	"context"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/devlock/internal/registry"
)

// PortRegDeps are the shared flags every portreg command accepts (spec §6:
// "shared flags --min-port, --max-port, --registry-dir,
// --allow-privileged").
type PortRegDeps struct {
	MinPort            int
	MaxPort            int
	RegistryDir        string
	AllowPrivileged    bool
	MaxPortsPerRequest int
	MaxRegistrySize    int
}

func newRegistry(deps PortRegDeps, o *IO) (*registry.Registry, error) {
	return registry.New(registry.Config{
		MinPort:            deps.MinPort,
		MaxPort:            deps.MaxPort,
		RegistryDir:        deps.RegistryDir,
		AllowPrivileged:    deps.AllowPrivileged,
		MaxPortsPerRequest: deps.MaxPortsPerRequest,
		MaxRegistrySize:    deps.MaxRegistrySize,
	}, registry.WithAuditFunc(func(removed int) {
		o.Verbosef("reclaimed %d stale registry entr(y/ies) before allocating", removed)
	}))
}

func allocationReport(a registry.Allocation) map[string]any {
	return map[string]any{"port": a.Port, "pid": a.PID, "timestamp": a.Timestamp, "tag": a.Tag}
}

// PortRegCommands returns the command table for the portreg CLI (spec §6).
func PortRegCommands(deps PortRegDeps) []*Command {
	return []*Command{
		getCommand(deps),
		releasePortCommand(deps),
		releaseAllCommand(deps),
		listCommand(deps),
		cleanRegistryCommand(deps),
		registryStatusCommand(deps),
		clearCommand(deps),
	}
}

func getCommand(deps PortRegDeps) *Command {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	count := fs.Int("count", 1, "number of ports to allocate")
	tag := fs.String("tag", "", "optional tag to store with each allocation")

	return &Command{
		Flags: fs,
		Usage: "get [--count N] [--tag <s>]",
		Short: "allocate one or more ports",
		Exec: func(_ context.Context, o *IO, _ []string) int {
			reg, err := newRegistry(deps, o)
			if err != nil {
				return ReportError(o, err)
			}

			allocs, err := reg.GetMultiple(*count, *tag)
			if err != nil {
				return ReportError(o, err)
			}

			if o.JSON() {
				reports := make([]map[string]any, len(allocs))
				for i, a := range allocs {
					reports[i] = allocationReport(a)
				}

				_ = o.PrintJSON(map[string]any{"status": "success", "allocations": reports})
			} else {
				for _, a := range allocs {
					o.Printf("%d\n", a.Port)
				}
			}

			return 0
		},
	}
}

func releasePortCommand(deps PortRegDeps) *Command {
	fs := flag.NewFlagSet("release", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "release <port>",
		Short: "release a port this process owns",
		Exec: func(_ context.Context, o *IO, args []string) int {
			port, ok := parsePortArg(o, args)
			if !ok {
				return 1
			}

			reg, err := newRegistry(deps, o)
			if err != nil {
				return ReportError(o, err)
			}

			if err := reg.Release(port); err != nil {
				return ReportError(o, err)
			}

			if o.JSON() {
				_ = o.PrintJSON(map[string]any{"status": "success", "port": port})
			} else {
				o.Printf("released %d\n", port)
			}

			return 0
		},
	}
}

func releaseAllCommand(deps PortRegDeps) *Command {
	fs := flag.NewFlagSet("releaseAll", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "releaseAll",
		Short: "release every port this process owns",
		Exec: func(_ context.Context, o *IO, _ []string) int {
			reg, err := newRegistry(deps, o)
			if err != nil {
				return ReportError(o, err)
			}

			count, err := reg.ReleaseAll()
			if err != nil {
				return ReportError(o, err)
			}

			if o.JSON() {
				_ = o.PrintJSON(map[string]any{"status": "success", "released": count})
			} else {
				o.Printf("released %d port(s)\n", count)
			}

			return 0
		},
	}
}

func listCommand(deps PortRegDeps) *Command {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "list",
		Short: "list all registered ports",
		Exec: func(_ context.Context, o *IO, _ []string) int {
			reg, err := newRegistry(deps, o)
			if err != nil {
				return ReportError(o, err)
			}

			allocs, err := reg.List()
			if err != nil {
				return ReportError(o, err)
			}

			if o.JSON() {
				reports := make([]map[string]any, len(allocs))
				for i, a := range allocs {
					reports[i] = allocationReport(a)
				}

				_ = o.PrintJSON(map[string]any{"status": "success", "entries": reports})
			} else {
				for _, a := range allocs {
					o.Printf("%d\tpid=%d\ttag=%s\n", a.Port, a.PID, a.Tag)
				}
			}

			return 0
		},
	}
}

func cleanRegistryCommand(deps PortRegDeps) *Command {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "clean",
		Short: "remove stale registry entries",
		Exec: func(_ context.Context, o *IO, _ []string) int {
			reg, err := newRegistry(deps, o)
			if err != nil {
				return ReportError(o, err)
			}

			removed, err := reg.Clean()
			if err != nil {
				return ReportError(o, err)
			}

			if removed > 0 {
				o.Verbosef("removed %d stale registry entr(y/ies)", removed)
			}

			if o.JSON() {
				_ = o.PrintJSON(map[string]any{"status": "success", "removed": removed})
			} else {
				o.Printf("removed=%d\n", removed)
			}

			return 0
		},
	}
}

func registryStatusCommand(deps PortRegDeps) *Command {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "status",
		Short: "summarize the registry's current state",
		Exec: func(_ context.Context, o *IO, _ []string) int {
			reg, err := newRegistry(deps, o)
			if err != nil {
				return ReportError(o, err)
			}

			st, err := reg.Status()
			if err != nil {
				return ReportError(o, err)
			}

			if o.JSON() {
				_ = o.PrintJSON(map[string]any{
					"status":                  "success",
					"total_entries":           st.TotalEntries,
					"active_entries":          st.ActiveEntries,
					"stale_entries":           st.StaleEntries,
					"owned_by_current_process": st.OwnedByCurrentProcess,
					"port_range":              st.PortRange,
					"capacity_remaining":      st.CapacityRemaining,
				})
			} else {
				o.Printf("total=%d active=%d stale=%d owned=%d range=[%d,%d] capacity_remaining=%d\n",
					st.TotalEntries, st.ActiveEntries, st.StaleEntries, st.OwnedByCurrentProcess,
					st.PortRange[0], st.PortRange[1], st.CapacityRemaining)
			}

			return 0
		},
	}
}

func clearCommand(deps PortRegDeps) *Command {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "clear",
		Short: "replace the registry with an empty one",
		Exec: func(_ context.Context, o *IO, _ []string) int {
			reg, err := newRegistry(deps, o)
			if err != nil {
				return ReportError(o, err)
			}

			if err := reg.Clear(); err != nil {
				return ReportError(o, err)
			}

			if o.JSON() {
				_ = o.PrintJSON(map[string]any{"status": "success"})
			} else {
				o.Println("registry cleared")
			}

			return 0
		},
	}
}

func parsePortArg(o *IO, args []string) (int, bool) {
	if len(args) != 1 {
		o.ErrPrintln("error: release requires exactly one <port> argument")

		return 0, false
	}

	port, err := strconv.Atoi(args[0])
	if err != nil {
		o.ErrPrintln("error: invalid port", args[0])

		return 0, false
	}

	return port, true
}
