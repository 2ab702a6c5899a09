package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags. The FlagSet name is not used;
	// command identity comes from Usage.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "slotdb" in help.
	// Includes the command name and arguments.
	// Examples: "get <id>", "list [flags]"
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-26s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "slotdb <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: slotdb", c.Usage)
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
//
// Commands without flags receive their arguments unparsed, so negative ids
// such as "-1" reach the id check instead of failing as unknown flags.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	if err := ctx.Err(); err != nil {
		o.ErrPrintln("error:", err)

		return exitFatal
	}

	if c.Flags == nil || !c.Flags.HasFlags() {
		if hasHelpFlag(args) {
			c.PrintHelp(o)

			return exitOK
		}

		return c.exec(ctx, o, args)
	}

	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)

			return exitOK
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o.Stderr())

		return exitFatal
	}

	return c.exec(ctx, o, c.Flags.Args())
}

func (c *Command) exec(ctx context.Context, o *IO, args []string) int {
	err := c.Exec(ctx, o, args)
	if err != nil {
		o.ErrPrintln("error:", err)
	}

	return exitCode(err)
}

// wantArgs checks that exactly n positional arguments were given.
func (c *Command) wantArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s (got %d arguments, want %d)", errUsage, c.Usage, len(args), n)
	}

	return nil
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return true
		}
	}

	return false
}
