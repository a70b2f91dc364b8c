package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, v, built, commit string) {
	t.Helper()
	oldV, oldB, oldC := Version, BuildTime, GitCommit
	Version, BuildTime, GitCommit = v, built, commit
	t.Cleanup(func() {
		Version, BuildTime, GitCommit = oldV, oldB, oldC
	})
}

func TestInfo(t *testing.T) {
	tests := []struct {
		name     string
		built    string
		commit   string
		expected string
	}{
		{"development", "unknown", "unknown", "v1.2.3 (development build)"},
		{"unparseable time", "yesterday", "abc", "v1.2.3 (built yesterday)"},
		{"full", "2025-03-01T10:20:30Z", "0123456789abcdef", "v1.2.3 (built 2025-03-01 10:20:30 UTC, commit 01234567)"},
		{"short commit", "2025-03-01T10:20:30Z", "abc", "v1.2.3 (built 2025-03-01 10:20:30 UTC, commit abc)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuild(t, "v1.2.3", tt.built, tt.commit)
			assert.Equal(t, tt.expected, Info())
		})
	}
}

func TestGetBuildInfo(t *testing.T) {
	withBuild(t, "v9.9.9", "unknown", "deadbeef")
	info := GetBuildInfo()
	assert.Equal(t, "v9.9.9", info.Version)
	assert.Equal(t, "deadbeef", info.GitCommit)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
