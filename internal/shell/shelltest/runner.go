// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/osa911/proxydesk/internal/shell"
)

// Response is the scripted outcome of one command line.
type Response struct {
	Result shell.Result
	Err    error
}

// Exit builds a response for a command that exited with code.
func Exit(code int, stdout, stderr string) Response {
	return Response{
		Result: shell.Result{Stdout: stdout, Stderr: stderr, ExitCode: code},
		Err:    &shell.ExitError{Code: code},
	}
}

// OK builds a response for a successful command.
func OK(stdout, stderr string) Response {
	return Response{Result: shell.Result{Stdout: stdout, Stderr: stderr}}
}

// Runner answers commands from a table keyed by shell.CommandLine. Unknown
// commands fail as if the binary were missing.
type Runner struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []string
}

// NewRunner creates a runner with the given responses.
func NewRunner(responses map[string]Response) *Runner {
	if responses == nil {
		responses = map[string]Response{}
	}
	return &Runner{responses: responses}
}

// Set replaces the response for a command line.
func (r *Runner) Set(command string, resp Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[command] = resp
}

// Calls returns the command lines run so far.
func (r *Runner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *Runner) Run(ctx context.Context, name string, args ...string) (shell.Result, error) {
	command := shell.CommandLine(name, args...)
	r.mu.Lock()
	r.calls = append(r.calls, command)
	resp, ok := r.responses[command]
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return shell.Result{ExitCode: -1}, fmt.Errorf("%s timed out: %w", name, err)
	}
	if !ok {
		return shell.Result{ExitCode: -1}, fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return resp.Result, resp.Err
}
