package cli

import (
	"fmt"
	"io"
)

// IO handles command output.
//
// Results go to stdout, errors and warnings to stderr. Warnings are printed
// at both the start and the end of the output so they stay visible when the
// output is truncated or piped through head/tail.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string
	started  bool
}

// NewIO creates a new IO instance.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn records a warning.
//
// Parameters:
//   - issue: what happened
//   - action: what the user can do about it
//
// Warnings never suppress normal output and do not change the exit code.
func (o *IO) Warn(issue string, action string) {
	o.warnings = append(o.warnings, fmt.Sprintf("%s: %s", issue, action))
}

// Println writes to stdout. On first call, any collected warnings
// are printed to stderr first.
func (o *IO) Println(a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout. On first call, any collected
// warnings are printed to stderr first.
func (o *IO) Printf(format string, a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Stderr returns an IO whose stdout is this IO's stderr. Used to print help
// after a usage error.
func (o *IO) Stderr() *IO {
	return &IO{out: o.errOut, errOut: o.errOut, started: true}
}

// Finish prints collected warnings to stderr once more. If nothing has
// been printed yet, they are printed only once.
func (o *IO) Finish() {
	if !o.started {
		o.flushWarningsStart()
		o.warnings = nil

		return
	}

	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	o.warnings = nil
}

func (o *IO) flushWarningsStart() {
	if !o.started && len(o.warnings) > 0 {
		for _, w := range o.warnings {
			_, _ = fmt.Fprintln(o.errOut, "warning:", w)
		}

		o.started = true
	}
}
