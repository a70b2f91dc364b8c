package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/osa911/proxydesk/internal/models"
	"github.com/osa911/proxydesk/internal/shell"
)

// PowerShellProbe queries a Windows host through powershell.exe.
type PowerShellProbe struct {
	runner  shell.Runner
	service string
	process string
}

// NewPowerShellProbe creates a probe for the named Windows service.
func NewPowerShellProbe(runner shell.Runner, opts Options) *PowerShellProbe {
	service := opts.ServiceName
	if service == "" {
		service = "nginx"
	}
	process := opts.ProcessName
	if process == "" {
		process = "nginx"
	}
	return &PowerShellProbe{runner: runner, service: service, process: process}
}

func (p *PowerShellProbe) run(ctx context.Context, command string) (string, error) {
	res, err := p.runner.Run(ctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command", command)
	if err != nil {
		return "", fmt.Errorf("powershell %q: %w: %s", command, err, strings.TrimSpace(res.Stderr))
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (p *PowerShellProbe) ServiceRunning(ctx context.Context) (bool, error) {
	out, err := p.run(ctx, fmt.Sprintf("(Get-Service -Name '%s' -ErrorAction SilentlyContinue).Status", p.service))
	if err != nil {
		return false, err
	}
	return out == "Running", nil
}

type psProcess struct {
	ID           int    `json:"Id"`
	WorkingSet64 uint64 `json:"WorkingSet64"`
}

func (p *PowerShellProbe) ProcessUsage(ctx context.Context) (models.ProcessInfo, error) {
	out, err := p.run(ctx, fmt.Sprintf(
		"Get-Process -Name '%s' -ErrorAction SilentlyContinue | Select-Object Id, WorkingSet64 | ConvertTo-Json", p.process))
	if err != nil {
		return models.ProcessInfo{}, err
	}
	return parseProcessJSON(out)
}

// parseProcessJSON accepts ConvertTo-Json output, which is an object for a
// single process and an array for several.
func parseProcessJSON(out string) (models.ProcessInfo, error) {
	var info models.ProcessInfo
	if out == "" {
		info.Memory = FormatMemory(0)
		return info, nil
	}

	var procs []psProcess
	if strings.HasPrefix(out, "[") {
		if err := json.Unmarshal([]byte(out), &procs); err != nil {
			return info, fmt.Errorf("decode process list: %w", err)
		}
	} else {
		var single psProcess
		if err := json.Unmarshal([]byte(out), &single); err != nil {
			return info, fmt.Errorf("decode process: %w", err)
		}
		procs = append(procs, single)
	}

	for _, proc := range procs {
		info.Count++
		info.MemoryBytes += proc.WorkingSet64
	}
	info.Memory = FormatMemory(info.MemoryBytes)
	return info, nil
}

func (p *PowerShellProbe) DomainMembership(ctx context.Context) (models.DomainInfo, error) {
	out, err := p.run(ctx, "(Get-WmiObject -Class Win32_ComputerSystem).PartOfDomain")
	if err != nil {
		return models.DomainInfo{}, err
	}
	if out != "True" {
		return models.DomainInfo{}, nil
	}
	domain, err := p.run(ctx, "(Get-WmiObject -Class Win32_ComputerSystem).Domain")
	if err != nil {
		return models.DomainInfo{Joined: true}, err
	}
	return models.DomainInfo{Joined: true, Domain: domain}, nil
}
