package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

const shellPrompt = "slotdb> "

// lineReader is the input side of the shell.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// ShellCmd returns the interactive shell command. Each input line is run as
// one command invocation with its own connection; newCommands supplies the
// commands for each line.
//
// On a terminal the shell uses liner for line editing and history. Any other
// input is read line by line without a prompt.
func ShellCmd(in io.Reader, env map[string]string, newCommands func() []*Command) *Command {
	return &Command{
		Usage: "shell",
		Short: "Run commands interactively",
		Long: `Read commands line by line and run each one against the database.

Arguments are split on whitespace. Type "help" for commands, "exit" to leave.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("%w: shell takes no arguments", errUsage)
			}

			reader, historyPath := newLineReader(in, env)
			defer func() { _ = reader.Close() }()

			err := runShell(ctx, o, reader, newCommands)

			if lr, ok := reader.(*linerReader); ok && historyPath != "" {
				lr.saveHistory(historyPath)
			}

			return err
		},
	}
}

func runShell(ctx context.Context, o *IO, reader lineReader, newCommands func() []*Command) error {
	for ctx.Err() == nil {
		line, err := reader.Prompt(shellPrompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		reader.AppendHistory(line)

		switch name := fields[0]; name {
		case "exit", "quit", "q":
			return nil
		case "help", "?":
			printShellHelp(o, newCommands())
		default:
			lineIO := NewIO(o.out, o.errOut)
			dispatch(ctx, lineIO, newCommands(), name, fields[1:])
			lineIO.Finish()
		}
	}

	return ctx.Err()
}

func printShellHelp(o *IO, commands []*Command) {
	o.Println("Commands:")

	for _, cmd := range commands {
		o.Println(cmd.HelpLine())
	}

	o.Printf("  %-26s %s\n", "help", "Show this help")
	o.Printf("  %-26s %s\n", "exit", "Leave the shell")
}

func newLineReader(in io.Reader, env map[string]string) (lineReader, string) {
	if f, ok := in.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		historyPath := ""
		if home := env["HOME"]; home != "" {
			historyPath = filepath.Join(home, ".slotdb_history")
		}

		return newLinerReader(historyPath), historyPath
	}

	if in == nil {
		in = strings.NewReader("")
	}

	return &scanReader{scanner: bufio.NewScanner(in)}, ""
}

// linerReader reads from the terminal with line editing and history.
type linerReader struct {
	state *liner.State
}

func newLinerReader(historyPath string) *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
	}

	return &linerReader{state: state}
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	return r.state.Prompt(prompt)
}

func (r *linerReader) AppendHistory(line string) {
	r.state.AppendHistory(line)
}

func (r *linerReader) Close() error {
	return r.state.Close()
}

func (r *linerReader) saveHistory(path string) {
	f, err := os.Create(path)
	if err != nil {
		return
	}

	_, _ = r.state.WriteHistory(f)
	_ = f.Close()
}

// scanReader reads lines from a non-interactive input.
type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}

	if err := r.scanner.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (*scanReader) AppendHistory(string) {}

func (*scanReader) Close() error { return nil }
