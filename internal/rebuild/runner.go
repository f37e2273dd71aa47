package rebuild

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	docerrors "github.com/conneroisu/cargo-docserver/internal/errors"
	"github.com/conneroisu/cargo-docserver/internal/validation"
)

// Runner executes one build with the given extra arguments.
type Runner interface {
	Run(ctx context.Context, args []string) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, args []string) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, args []string) error {
	return f(ctx, args)
}

// CommandRunner runs `Command BaseArgs... args...` and waits for it. Output is
// passed straight through to Stdout and Stderr.
type CommandRunner struct {
	Command  string
	BaseArgs []string
	Dir      string
	Stdout   io.Writer
	Stderr   io.Writer
}

// NewCommandRunner returns a runner for command with the process's own
// stdout and stderr.
func NewCommandRunner(command string, baseArgs []string) *CommandRunner {
	return &CommandRunner{
		Command:  command,
		BaseArgs: baseArgs,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// CommandLine returns the full argument vector for a build with args.
func (r *CommandRunner) CommandLine(args []string) []string {
	line := make([]string, 0, 1+len(r.BaseArgs)+len(args))
	line = append(line, r.Command)
	line = append(line, r.BaseArgs...)
	return append(line, args...)
}

// Run implements Runner. Failures to start the process are reported as
// spawn errors; a non-zero exit is returned as the *exec.ExitError.
func (r *CommandRunner) Run(ctx context.Context, args []string) error {
	if err := validation.ValidateCommand(r.Command, nil); err != nil {
		return docerrors.NewSpawnError(r.Command, err)
	}
	full := append(append([]string{}, r.BaseArgs...), args...)

	cmd := exec.CommandContext(ctx, r.Command, full...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Start(); err != nil {
		return docerrors.NewSpawnError(r.Command, err).
			WithContext("args", full)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s interrupted: %w", strings.Join(r.CommandLine(args), " "), ctx.Err())
		}
		return err
	}

	return nil
}

// ExitCode extracts the process exit code from a Run error. It returns 0 for
// nil and -1 when the process never produced one.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}

// ParseArgs splits a free-form recompile argument string on whitespace.
func ParseArgs(s string) []string {
	return strings.Fields(s)
}
