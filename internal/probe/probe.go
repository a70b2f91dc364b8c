// Package probe answers host-level questions about the proxy server:
// whether its service is up, how much memory its processes use and
// whether the host belongs to a directory domain.
package probe

import (
	"context"
	"fmt"
	"runtime"

	"github.com/osa911/proxydesk/internal/models"
	"github.com/osa911/proxydesk/internal/shell"
)

// SystemProbe is the narrow host surface the reconciliation core needs.
type SystemProbe interface {
	ServiceRunning(ctx context.Context) (bool, error)
	ProcessUsage(ctx context.Context) (models.ProcessInfo, error)
	DomainMembership(ctx context.Context) (models.DomainInfo, error)
}

// Options names the service and process to inspect.
type Options struct {
	ServiceName string
	ProcessName string
}

// NewDefaultProbe returns a platform-appropriate SystemProbe.
// On Linux it uses systemd, on Windows PowerShell, elsewhere a no-op probe.
func NewDefaultProbe(runner shell.Runner, opts Options) SystemProbe {
	switch runtime.GOOS {
	case "linux":
		return NewSystemdProbe(runner, opts)
	case "windows":
		return NewPowerShellProbe(runner, opts)
	}
	return &noopProbe{}
}

// noopProbe is used on platforms without a supported service manager.
type noopProbe struct{}

func (n *noopProbe) ServiceRunning(context.Context) (bool, error) {
	return false, fmt.Errorf("service probe not supported on %s", runtime.GOOS)
}

func (n *noopProbe) ProcessUsage(context.Context) (models.ProcessInfo, error) {
	return models.ProcessInfo{}, fmt.Errorf("process probe not supported on %s", runtime.GOOS)
}

func (n *noopProbe) DomainMembership(context.Context) (models.DomainInfo, error) {
	return models.DomainInfo{}, nil
}

// FormatMemory renders a byte count in whole megabytes.
func FormatMemory(bytes uint64) string {
	return fmt.Sprintf("%d MB", (bytes+512*1024)/(1024*1024))
}
