package probe

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/osa911/proxydesk/internal/models"
	"github.com/osa911/proxydesk/internal/shell"
)

// SystemdProbe inspects a systemd unit and its processes.
type SystemdProbe struct {
	runner   shell.Runner
	unitName string
	process  string
}

// NewSystemdProbe creates a probe for the given unit
func NewSystemdProbe(runner shell.Runner, opts Options) *SystemdProbe {
	unit := opts.ServiceName
	if unit == "" {
		unit = "nginx"
	}
	// Accept either service name or full unit
	if !strings.HasSuffix(unit, ".service") {
		unit = unit + ".service"
	}
	process := opts.ProcessName
	if process == "" {
		process = "nginx"
	}
	return &SystemdProbe{runner: runner, unitName: unit, process: process}
}

func (p *SystemdProbe) ServiceRunning(ctx context.Context) (bool, error) {
	res, err := p.runner.Run(ctx, "systemctl", "is-active", p.unitName)
	if err != nil {
		// Non-zero exit means not active
		if shell.IsExit(err) {
			return false, nil
		}
		return false, fmt.Errorf("systemctl is-active %s: %w", p.unitName, err)
	}
	return strings.TrimSpace(res.Stdout) == "active", nil
}

func (p *SystemdProbe) ProcessUsage(ctx context.Context) (models.ProcessInfo, error) {
	res, err := p.runner.Run(ctx, "ps", "-C", p.process, "-o", "rss=")
	if err != nil {
		// ps exits 1 when nothing matched
		if shell.IsExit(err) && strings.TrimSpace(res.Stdout) == "" {
			return models.ProcessInfo{Memory: FormatMemory(0)}, nil
		}
		return models.ProcessInfo{}, fmt.Errorf("ps -C %s: %w", p.process, err)
	}
	return parseRSS(res.Stdout)
}

// parseRSS sums ps rss= output, one kilobyte figure per line.
func parseRSS(out string) (models.ProcessInfo, error) {
	var info models.ProcessInfo
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		kb, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return models.ProcessInfo{}, fmt.Errorf("unexpected ps output %q", line)
		}
		info.Count++
		info.MemoryBytes += kb * 1024
	}
	info.Memory = FormatMemory(info.MemoryBytes)
	return info, nil
}

func (p *SystemdProbe) DomainMembership(ctx context.Context) (models.DomainInfo, error) {
	res, err := p.runner.Run(ctx, "realm", "list", "--name-only")
	if err == nil {
		for _, line := range strings.Split(res.Stdout, "\n") {
			if domain := strings.TrimSpace(line); domain != "" {
				return models.DomainInfo{Joined: true, Domain: domain}, nil
			}
		}
		return models.DomainInfo{}, nil
	}

	// realmd is not always installed; fall back to the DNS domain
	res, err = p.runner.Run(ctx, "hostname", "-d")
	if err != nil {
		return models.DomainInfo{}, fmt.Errorf("domain lookup: %w", err)
	}
	if domain := strings.TrimSpace(res.Stdout); domain != "" {
		return models.DomainInfo{Joined: true, Domain: domain}, nil
	}
	return models.DomainInfo{}, nil
}
