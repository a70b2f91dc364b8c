package nginx

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/metrics"
	"github.com/osa911/proxydesk/internal/models"
	"github.com/osa911/proxydesk/internal/probe"
	"github.com/osa911/proxydesk/internal/shell/shelltest"
)

const okDiagnostic = "nginx: the configuration file /etc/nginx/nginx.conf syntax is ok\nnginx: configuration file /etc/nginx/nginx.conf test is successful"

// Mock SystemProbe
type mockProbe struct {
	running    bool
	runningErr error
	usage      models.ProcessInfo
	usageErr   error
}

func (m *mockProbe) ServiceRunning(context.Context) (bool, error) {
	return m.running, m.runningErr
}

func (m *mockProbe) ProcessUsage(context.Context) (models.ProcessInfo, error) {
	return m.usage, m.usageErr
}

func (m *mockProbe) DomainMembership(context.Context) (models.DomainInfo, error) {
	return models.DomainInfo{}, nil
}

func newController(runner *shelltest.Runner, p *mockProbe) *Controller {
	var sysProbe probe.SystemProbe
	if p != nil {
		sysProbe = p
	}
	return NewController(Options{Binary: "nginx"}, runner, sysProbe, metrics.NewCollector(prometheus.NewRegistry()), logging.Discard())
}

func TestValidateConfig(t *testing.T) {
	runner := shelltest.NewRunner(map[string]shelltest.Response{
		"nginx -t": shelltest.OK("", okDiagnostic),
	})
	c := newController(runner, nil)

	msg, err := c.ValidateConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, okDiagnostic, msg)
}

func TestValidateConfigRejected(t *testing.T) {
	diag := `nginx: [emerg] unexpected "}" in /etc/nginx/conf.d/bad.conf:7`
	runner := shelltest.NewRunner(map[string]shelltest.Response{
		"nginx -t": shelltest.Exit(1, "", diag),
	})
	c := newController(runner, nil)

	msg, err := c.ValidateConfig(context.Background())
	require.Error(t, err)
	assert.Equal(t, diag, msg)
	assert.ErrorIs(t, err, models.ErrValidation)

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, diag, verr.Diagnostic)
}

func TestValidateConfigCannotRun(t *testing.T) {
	c := newController(shelltest.NewRunner(nil), nil)

	_, err := c.ValidateConfig(context.Background())
	assert.ErrorIs(t, err, models.ErrExternalProcess)
	assert.NotErrorIs(t, err, models.ErrValidation)
}

func TestValidateConfigTimeout(t *testing.T) {
	runner := shelltest.NewRunner(map[string]shelltest.Response{
		"nginx -t": shelltest.OK("", okDiagnostic),
	})
	c := newController(runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ValidateConfig(ctx)
	assert.ErrorIs(t, err, models.ErrExternalProcess)
}

func TestArgsIncludePrefixAndConfig(t *testing.T) {
	runner := shelltest.NewRunner(map[string]shelltest.Response{
		"nginx.exe -p C:/nginx -c conf/nginx.conf -s reload": shelltest.OK("", ""),
	})
	c := NewController(Options{Binary: "nginx.exe", Prefix: "C:/nginx", ConfigFile: "conf/nginx.conf"}, runner, nil, nil, logging.Discard())

	require.NoError(t, c.Reload(context.Background()))
	assert.Equal(t, []string{"nginx.exe -p C:/nginx -c conf/nginx.conf -s reload"}, runner.Calls())
}

func TestReloadFailure(t *testing.T) {
	runner := shelltest.NewRunner(map[string]shelltest.Response{
		"nginx -s reload": shelltest.Exit(1, "", `nginx: [error] invalid PID number "" in "/run/nginx.pid"`),
	})
	c := newController(runner, nil)

	err := c.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExternalProcess)

	var perr *models.ProcessError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Output, "invalid PID")
	assert.Equal(t, "nginx -s reload", perr.Command)
}

func TestQueryRunningState(t *testing.T) {
	runner := shelltest.NewRunner(map[string]shelltest.Response{
		"nginx -t": shelltest.OK("", okDiagnostic),
	})
	p := &mockProbe{running: true, usage: models.ProcessInfo{Count: 3, MemoryBytes: 30 << 20, Memory: "30 MB"}}
	state := newController(runner, p).QueryRunningState(context.Background())

	assert.True(t, state.ConfigValid)
	assert.Equal(t, okDiagnostic, state.ConfigMessage)
	assert.True(t, state.ServiceRunning)
	assert.Equal(t, 3, state.Process.Count)
	assert.Nil(t, state.ProbeErrors)
	assert.False(t, state.CheckedAt.IsZero())
}

func TestQueryRunningStateDegradesPerProbe(t *testing.T) {
	runner := shelltest.NewRunner(map[string]shelltest.Response{
		"nginx -t": shelltest.Exit(1, "", "nginx: [emerg] bad"),
	})
	p := &mockProbe{running: true, usageErr: errors.New("ps missing")}
	state := newController(runner, p).QueryRunningState(context.Background())

	assert.False(t, state.ConfigValid)
	assert.Equal(t, "nginx: [emerg] bad", state.ConfigMessage)
	assert.True(t, state.ServiceRunning)
	assert.Zero(t, state.Process.Count)
	assert.Equal(t, map[string]string{"process": "ps missing"}, state.ProbeErrors)
}

func TestQueryRunningStateAllProbesFail(t *testing.T) {
	p := &mockProbe{runningErr: errors.New("systemctl missing"), usageErr: errors.New("ps missing")}
	state := newController(shelltest.NewRunner(nil), p).QueryRunningState(context.Background())

	assert.False(t, state.ConfigValid)
	assert.NotEmpty(t, state.ConfigMessage)
	assert.False(t, state.ServiceRunning)
	assert.Contains(t, state.ProbeErrors, "config")
	assert.Contains(t, state.ProbeErrors, "service")
	assert.Contains(t, state.ProbeErrors, "process")
}

func TestQueryRunningStateWithoutProbe(t *testing.T) {
	runner := shelltest.NewRunner(map[string]shelltest.Response{
		"nginx -t": shelltest.OK("", okDiagnostic),
	})
	state := newController(runner, nil).QueryRunningState(context.Background())

	assert.True(t, state.ConfigValid)
	assert.Contains(t, state.ProbeErrors, "service")
	assert.Contains(t, state.ProbeErrors, "process")
}
