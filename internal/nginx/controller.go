// Package nginx drives the nginx binary: configuration dry runs, reloads
// and the aggregated running-state report.
package nginx

import (
	"context"
	"errors"
	"time"

	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/metrics"
	"github.com/osa911/proxydesk/internal/models"
	"github.com/osa911/proxydesk/internal/probe"
	"github.com/osa911/proxydesk/internal/shell"
)

// Options configures the nginx command line.
type Options struct {
	// Binary is the nginx executable.
	Binary string
	// Prefix is passed as -p when set.
	Prefix string
	// ConfigFile is passed as -c when set.
	ConfigFile string
}

// Controller wraps the nginx command surface.
type Controller struct {
	opts    Options
	runner  shell.Runner
	probe   probe.SystemProbe
	metrics *metrics.Collector
	logger  *logging.Logger
}

// NewController creates a controller. probe may be nil, in which case the
// liveness and resource fields of the running state are always degraded.
func NewController(opts Options, runner shell.Runner, sysProbe probe.SystemProbe, collector *metrics.Collector, logger *logging.Logger) *Controller {
	if opts.Binary == "" {
		opts.Binary = "nginx"
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Controller{
		opts:    opts,
		runner:  runner,
		probe:   sysProbe,
		metrics: collector,
		logger:  logger,
	}
}

func (c *Controller) args(extra ...string) []string {
	var args []string
	if c.opts.Prefix != "" {
		args = append(args, "-p", c.opts.Prefix)
	}
	if c.opts.ConfigFile != "" {
		args = append(args, "-c", c.opts.ConfigFile)
	}
	return append(args, extra...)
}

func (c *Controller) exec(ctx context.Context, label string, extra ...string) (shell.Result, string, error) {
	args := c.args(extra...)
	command := shell.CommandLine(c.opts.Binary, args...)
	start := time.Now()
	res, err := c.runner.Run(ctx, c.opts.Binary, args...)
	c.metrics.ObserveCommand(label, time.Since(start), err)
	return res, command, err
}

// ValidateConfig runs the nginx dry run and returns its diagnostic text.
// A rejected configuration yields a *models.ValidationError carrying the
// same text; a command that could not run yields a *models.ProcessError.
func (c *Controller) ValidateConfig(ctx context.Context) (string, error) {
	res, command, err := c.exec(ctx, "test", "-t")
	diagnostic := res.Combined()
	if err != nil {
		if shell.IsExit(err) {
			c.logger.Error("Nginx config test failed: %s", diagnostic)
			c.metrics.SetConfigValid(false)
			return diagnostic, &models.ValidationError{Diagnostic: diagnostic, Err: err}
		}
		c.logger.Error("Nginx command error (%s): %v", command, err)
		return diagnostic, &models.ProcessError{Command: command, Output: diagnostic, Err: err}
	}
	c.metrics.SetConfigValid(true)
	c.logger.Debug("Nginx config test passed: %s", diagnostic)
	return diagnostic, nil
}

// Reload signals nginx to re-read its configuration.
func (c *Controller) Reload(ctx context.Context) error {
	res, command, err := c.exec(ctx, "reload", "-s", "reload")
	if err != nil {
		c.logger.Error("Nginx reload failed (%s): %v: %s", command, err, res.Combined())
		return &models.ProcessError{Command: command, Output: res.Combined(), Err: err}
	}
	c.logger.Info("Nginx reloaded")
	return nil
}

// QueryRunningState runs the dry run, liveness and resource probes. Each
// probe fails on its own: its field keeps the zero value and the reason
// is recorded in ProbeErrors.
func (c *Controller) QueryRunningState(ctx context.Context) models.RunningState {
	state := models.RunningState{
		ProbeErrors: map[string]string{},
		CheckedAt:   time.Now().UTC(),
	}

	message, err := c.ValidateConfig(ctx)
	state.ConfigMessage = message
	if err == nil {
		state.ConfigValid = true
	} else {
		var procErr *models.ProcessError
		if errors.As(err, &procErr) {
			state.ProbeErrors["config"] = err.Error()
			if state.ConfigMessage == "" {
				state.ConfigMessage = err.Error()
			}
		}
	}

	if c.probe == nil {
		state.ProbeErrors["service"] = "no system probe configured"
		state.ProbeErrors["process"] = "no system probe configured"
		return state
	}

	running, err := c.probe.ServiceRunning(ctx)
	if err != nil {
		c.logger.Warn("Service status check failed: %v", err)
		state.ProbeErrors["service"] = err.Error()
	} else {
		state.ServiceRunning = running
	}

	usage, err := c.probe.ProcessUsage(ctx)
	if err != nil {
		c.logger.Warn("Process info retrieval failed: %v", err)
		state.ProbeErrors["process"] = err.Error()
	} else {
		state.Process = usage
	}

	if len(state.ProbeErrors) == 0 {
		state.ProbeErrors = nil
	}
	return state
}
