package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines a CLI command with unified help generation. Adapted from
// the teacher's internal/cli.Command; shared verbatim between the filesem
// and portreg command tables (spec §0).
type Command struct {
	// Flags defines command-specific flags. --json and --verbose are global
	// flags parsed before the subcommand name (interspersed parsing is
	// disabled), so they must be given before, not after, the command.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after the binary name in
	// help. Includes the command name and arguments/flags.
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help. If empty, Short
	// is used instead.
	Long string

	// Exec runs the command after flags are parsed. Returns the exit code;
	// Exec is responsible for reporting its own errors via [ReportError]
	// so JSON and plain-text output stay consistent.
	Exec func(ctx context.Context, o *IO, args []string) int
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-28s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "<binary> <cmd> --help".
func (c *Command) PrintHelp(o *IO, binary string) {
	o.Println("Usage:", binary, c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder

		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command. Returns the exit code.
func (c *Command) Run(ctx context.Context, o *IO, binary string, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag's own error/usage output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o, binary)

			return 0
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o, binary)

		return 1
	}

	return c.Exec(ctx, o, c.Flags.Args())
}
