package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/slotdb/internal/config"
	"github.com/calvinalkan/slotdb/pkg/fs"
	"github.com/calvinalkan/slotdb/pkg/slotdb"
)

// Exit codes.
const (
	exitOK         = 0
	exitValidation = 1 // bad id, occupied or empty slot, existing file
	exitFatal      = 2 // I/O, resource, config and usage errors
)

var (
	errUsage          = errors.New("usage")
	errUnknownCommand = errors.New("unknown command")
)

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errDBExists), slotdb.KindOf(err) == slotdb.KindValidation:
		return exitValidation
	default:
		return exitFatal
	}
}

// Run is the main entry point. Returns the exit code.
//
// A value received on sigCh cancels the running command; it may be nil.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	return run(in, out, errOut, args, env, sigCh, fs.NewReal())
}

// run is [Run] with the filesystem every command goes through.
func run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal, fsys fs.FS) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if len(args) > 0 {
		args = args[1:] // program name
	}

	globals := newGlobalFlagSet()

	// Unbound commands are only used for help output.
	helpCommands := allCommands(&config.Config{}, fsys, in, env)

	err := globals.Parse(args)
	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globals, helpCommands)

		return exitFatal
	}

	if help, _ := globals.GetBool("help"); help {
		printUsage(out, globals, helpCommands)

		return exitOK
	}

	workDir, _ := globals.GetString("cwd")
	configPath, _ := globals.GetString("config")
	dbFile, _ := globals.GetString("file")
	noLock, _ := globals.GetBool("no-lock")

	if globals.Changed("file") && dbFile == "" {
		fprintln(errOut, "error:", config.ErrDBFileEmpty)

		return exitFatal
	}

	cfg, err := config.Load(config.Input{
		WorkDirOverride: workDir,
		ConfigPath:      configPath,
		DBFileOverride:  dbFile,
		NoLock:          noLock,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return exitFatal
	}

	commands := allCommands(&cfg, fsys, in, env)

	rest := globals.Args()
	if len(rest) == 0 {
		printUsage(out, globals, commands)

		return exitOK
	}

	o := NewIO(out, errOut)
	code := dispatch(ctx, o, commands, rest[0], rest[1:])
	o.Finish()

	return code
}

// allCommands returns every command bound to cfg and fsys, in help order.
func allCommands(cfg *config.Config, fsys fs.FS, in io.Reader, env map[string]string) []*Command {
	// The shell builds fresh commands for every line so flag values do not
	// leak between lines. It does not dispatch to itself.
	fresh := func() []*Command { return dbCommands(cfg, fsys) }

	return append(fresh(), ShellCmd(in, env, fresh))
}

func dbCommands(cfg *config.Config, fsys fs.FS) []*Command {
	return []*Command{
		CreateCmd(cfg, fsys),
		GetCmd(cfg, fsys),
		SetCmd(cfg, fsys),
		DeleteCmd(cfg, fsys),
		ListCmd(cfg, fsys),
		BackupCmd(cfg, fsys),
		PrintConfigCmd(cfg),
	}
}

func dispatch(ctx context.Context, o *IO, commands []*Command, name string, args []string) int {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd.Run(ctx, o, args)
		}
	}

	o.ErrPrintln("error:", fmt.Errorf("%w: %s", errUnknownCommand, name))

	return exitFatal
}

func newGlobalFlagSet() *flag.FlagSet {
	flags := flag.NewFlagSet("slotdb", flag.ContinueOnError)
	flags.SetOutput(&strings.Builder{}) // errors are printed by Run
	flags.SetInterspersed(false)        // everything after the command belongs to it

	flags.StringP("cwd", "C", "", "Run as if started in `dir`")
	flags.StringP("config", "c", "", "Use specified config `file`")
	flags.StringP("file", "f", "", "Database `path` (overrides db_file)")
	flags.Bool("no-lock", false, "Do not take the advisory lock")
	flags.BoolP("help", "h", false, "Show help")

	return flags
}

func printUsage(w io.Writer, globals *flag.FlagSet, commands []*Command) {
	fprintln(w, `slotdb - fixed-slot address database

Usage: slotdb [global flags] <command> [args]

Global flags:`)

	var buf strings.Builder
	globals.SetOutput(&buf)
	globals.PrintDefaults()
	globals.SetOutput(&strings.Builder{})
	_, _ = fmt.Fprint(w, buf.String())

	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}
