package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/devlock/internal/devconfig"
	"github.com/calvinalkan/devlock/internal/registry"
)

// RunFileSem is the entry point for the filesem binary. Returns the exit
// code.
func RunFileSem(_ io.Reader, out, errOut io.Writer, args []string, env map[string]string) int {
	global := flag.NewFlagSet("filesem", flag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(&strings.Builder{})

	flagHelp := global.BoolP("help", "h", false, "show help")
	flagJSON := global.Bool("json", false, "machine-readable JSON output")
	flagVerbose := global.Bool("verbose", false, "extra log lines on stderr")
	flagConfig := global.String("config", "", "use specified config file")

	if err := global.Parse(args[1:]); err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	o := NewIO(out, errOut, *flagJSON, *flagVerbose)

	cfg, err := devconfig.Load(*flagConfig, *flagConfig != "", env)
	if err != nil {
		return ReportError(o, err)
	}

	deps := FileSemDeps{
		StaleTimeout:  cfg.StaleTimeout(),
		RetryInterval: cfg.RetryInterval(),
	}

	commands := FileSemCommands(deps)

	return dispatch(context.Background(), o, "filesem", commands, global, *flagHelp)
}

// RunPortReg is the entry point for the portreg binary. Returns the exit
// code.
func RunPortReg(_ io.Reader, out, errOut io.Writer, args []string, env map[string]string) int {
	global := flag.NewFlagSet("portreg", flag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(&strings.Builder{})

	flagHelp := global.BoolP("help", "h", false, "show help")
	flagJSON := global.Bool("json", false, "machine-readable JSON output")
	flagVerbose := global.Bool("verbose", false, "extra log lines on stderr")
	flagConfig := global.String("config", "", "use specified config file")
	flagMinPort := global.Int("min-port", 0, "lower bound of the allocation range")
	flagMaxPort := global.Int("max-port", 0, "upper bound of the allocation range")
	flagRegistryDir := global.String("registry-dir", "", "directory holding the registry and its lock")
	flagAllowPrivileged := global.Bool("allow-privileged", false, "allow allocating ports below 1024")

	if err := global.Parse(args[1:]); err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	o := NewIO(out, errOut, *flagJSON, *flagVerbose)

	cfg, err := devconfig.Load(*flagConfig, *flagConfig != "", env)
	if err != nil {
		return ReportError(o, err)
	}

	deps := PortRegDeps{
		MinPort:            firstNonZero(*flagMinPort, cfg.MinPort, registry.DefaultMinPort),
		MaxPort:            firstNonZero(*flagMaxPort, cfg.MaxPort, registry.DefaultMaxPort),
		RegistryDir:        firstNonEmpty(*flagRegistryDir, cfg.RegistryDir),
		AllowPrivileged:    *flagAllowPrivileged || cfg.AllowPrivileged,
		MaxPortsPerRequest: firstNonZero(cfg.MaxPortsPerRequest, registry.DefaultMaxPortsPerRequest),
		MaxRegistrySize:    firstNonZero(cfg.MaxRegistrySize, registry.DefaultMaxRegistrySize),
	}

	commands := PortRegCommands(deps)

	return dispatch(context.Background(), o, "portreg", commands, global, *flagHelp)
}

func dispatch(ctx context.Context, o *IO, binary string, commands []*Command, global *flag.FlagSet, help bool) int {
	commandMap := make(map[string]*Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	commandAndArgs := global.Args()

	if help || (len(commandAndArgs) == 0 && global.NFlag() == 0) {
		printUsage(o, binary, commands)

		return 0
	}

	if len(commandAndArgs) == 0 {
		o.ErrPrintln("error: no command provided")
		printUsage(o, binary, commands)

		return 1
	}

	name := commandAndArgs[0]

	cmd, ok := commandMap[name]
	if !ok {
		o.ErrPrintln("error: unknown command:", name)
		printUsage(o, binary, commands)

		return 1
	}

	return cmd.Run(ctx, o, binary, commandAndArgs[1:])
}

func printUsage(o *IO, binary string, commands []*Command) {
	o.Println("Usage:", binary, "<command> [flags]")
	o.Println()
	o.Println("Commands:")

	for _, cmd := range commands {
		o.Println(cmd.HelpLine())
	}
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}

	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}
