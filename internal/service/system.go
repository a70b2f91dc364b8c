package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"go.opentelemetry.io/otel/attribute"

	"github.com/osa911/proxydesk/internal/logtail"
	"github.com/osa911/proxydesk/internal/models"
)

const gib = 1024 * 1024 * 1024

// SystemInfo reports the host overview. Memory, uptime and domain lookups
// are best effort and leave their fields at "unknown" or false on failure.
func (s *ProxyService) SystemInfo(ctx context.Context) (info models.SystemInfo, err error) {
	ctx, span := s.startSpan(ctx, "system")
	defer func() { s.endSpan(span, "system", err) }()

	info = models.SystemInfo{
		Platform:       runtime.GOOS,
		Arch:           runtime.GOARCH,
		CPUs:           runtime.NumCPU(),
		TotalMemory:    models.Unknown,
		FreeMemory:     models.Unknown,
		Uptime:         models.Unknown,
		RuntimeVersion: runtime.Version(),
		NginxPath:      s.opts.NginxPath,
	}

	if info.Hostname, err = os.Hostname(); err != nil {
		return models.SystemInfo{}, fmt.Errorf("hostname: %w", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		s.logger.Warn("Memory info retrieval failed: %v", err)
	} else {
		info.TotalMemory = formatGiB(vm.Total)
		info.FreeMemory = formatGiB(vm.Available)
	}

	if uptime, err := host.UptimeWithContext(ctx); err != nil {
		s.logger.Warn("Uptime retrieval failed: %v", err)
	} else {
		info.Uptime = fmt.Sprintf("%d hours", (uptime+1800)/3600)
	}

	if s.probe != nil {
		domain, err := s.probe.DomainMembership(ctx)
		if err != nil {
			s.logger.Warn("AD info retrieval failed: %v", err)
		} else {
			info.DomainInfo = domain
		}
	}

	span.SetAttributes(attribute.Bool("host.domain_joined", info.Joined))
	return info, nil
}

func formatGiB(bytes uint64) string {
	return fmt.Sprintf("%d GB", (bytes+gib/2)/gib)
}

// Logs returns the trailing lines of the access or error log. A missing
// log file is not an error: the result is empty and carries a message.
func (s *ProxyService) Logs(ctx context.Context, kind string, lines int) (tail models.LogTail, err error) {
	_, span := s.startSpan(ctx, "logs", attribute.String("log.type", kind))
	defer func() { s.endSpan(span, "logs", err) }()

	path, err := logtail.Path(s.opts.LogDir, kind)
	if err != nil {
		return models.LogTail{}, err
	}

	tail = models.LogTail{Type: kind, File: path, Lines: []string{}}
	out, err := logtail.Tail(path, lines)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			tail.Message = "Log file not found"
			return tail, nil
		}
		return models.LogTail{}, err
	}
	tail.Lines = out
	tail.Count = len(out)
	return tail, nil
}
