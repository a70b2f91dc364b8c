// Package shell runs external commands with bounded execution time.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stderr when present, stdout otherwise. nginx writes its
// diagnostics to stderr.
func (r Result) Combined() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Runner executes a command and returns its output. A command that ran and
// exited non-zero returns the Result together with an *ExitError.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExitError reports a command that ran but did not succeed.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// IsExit reports whether err means the command ran and exited non-zero,
// as opposed to failing to start or timing out.
func IsExit(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

const waitDelay = 2 * time.Second

// ExecRunner runs commands on the host.
type ExecRunner struct {
	// Timeout bounds every command. Zero means no extra bound beyond ctx.
	Timeout time.Duration
	// Prefix is prepended to every command, e.g. ["sudo", "-n"].
	Prefix []string
}

// NewExecRunner creates a runner with the given timeout.
func NewExecRunner(timeout time.Duration, prefix ...string) *ExecRunner {
	return &ExecRunner{Timeout: timeout, Prefix: prefix}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	if len(r.Prefix) > 0 {
		args = append(append(append([]string{}, r.Prefix[1:]...), name), args...)
		name = r.Prefix[0]
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// children that inherit the pipes must not hold Wait open past the deadline
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s timed out: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Code: res.ExitCode}
	}
	res.ExitCode = -1
	return res, err
}

// CommandLine renders a command for logs and error messages.
func CommandLine(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
