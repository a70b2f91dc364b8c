package shell

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerSuccess(t *testing.T) {
	requireSh(t)
	r := NewExecRunner(5 * time.Second)

	res, err := r.Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err", res.Combined())
	assert.Zero(t, res.ExitCode)
}

func TestExecRunnerExitError(t *testing.T) {
	requireSh(t)
	r := NewExecRunner(5 * time.Second)

	res, err := r.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.True(t, IsExit(err))
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "broken", res.Combined())
}

func TestExecRunnerTimeout(t *testing.T) {
	requireSh(t)
	r := NewExecRunner(50 * time.Millisecond)

	_, err := r.Run(context.Background(), "sh", "-c", "sleep 5")
	require.Error(t, err)
	assert.False(t, IsExit(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestExecRunnerMissingBinary(t *testing.T) {
	r := NewExecRunner(time.Second)
	_, err := r.Run(context.Background(), "definitely-not-a-real-binary-proxydesk")
	require.Error(t, err)
	assert.False(t, IsExit(err))
}

func TestExecRunnerPrefix(t *testing.T) {
	requireSh(t)
	r := NewExecRunner(5*time.Second, "sh", "-c")

	res, err := r.Run(context.Background(), "echo prefixed")
	require.NoError(t, err)
	assert.Equal(t, "prefixed\n", res.Stdout)
}

func TestCombinedFallsBackToStdout(t *testing.T) {
	assert.Equal(t, "ok", Result{Stdout: " ok \n"}.Combined())
	assert.Equal(t, "", Result{}.Combined())
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "nginx -t", CommandLine("nginx", "-t"))
	assert.Equal(t, "nginx", CommandLine("nginx"))
}
