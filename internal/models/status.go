package models

import "time"

// ProcessInfo summarizes the proxy server's worker processes.
type ProcessInfo struct {
	Count       int    `json:"count"`
	MemoryBytes uint64 `json:"memoryBytes"`
	Memory      string `json:"memory,omitempty"`
}

// DomainInfo reports directory-domain membership of the host.
type DomainInfo struct {
	Joined bool   `json:"domainJoined"`
	Domain string `json:"domain,omitempty"`
}

// RunningState aggregates the dry-run, liveness and resource probes.
// A failing probe leaves its field at the zero value and is listed in
// ProbeErrors.
type RunningState struct {
	ConfigValid    bool              `json:"configValid"`
	ConfigMessage  string            `json:"configMessage"`
	ServiceRunning bool              `json:"serviceRunning"`
	Process        ProcessInfo       `json:"processInfo"`
	ProbeErrors    map[string]string `json:"probeErrors,omitempty"`
	CheckedAt      time.Time         `json:"timestamp"`
}

// SystemInfo is the host overview shown on the console dashboard.
type SystemInfo struct {
	Hostname       string `json:"hostname"`
	Platform       string `json:"platform"`
	Arch           string `json:"arch"`
	CPUs           int    `json:"cpus"`
	TotalMemory    string `json:"totalMemory"`
	FreeMemory     string `json:"freeMemory"`
	Uptime         string `json:"uptime"`
	RuntimeVersion string `json:"runtimeVersion"`
	NginxPath      string `json:"nginxPath"`
	DomainInfo
}

// BackupArtifact is a finalized configuration snapshot.
type BackupArtifact struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created"`
}

// LogTail is the trailing slice of an nginx log.
type LogTail struct {
	Type    string   `json:"type"`
	File    string   `json:"file"`
	Lines   []string `json:"logs"`
	Count   int      `json:"count"`
	Message string   `json:"message,omitempty"`
}
