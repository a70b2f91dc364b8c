package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/models"
)

type layout struct {
	root  string
	paths Paths
}

func newLayout(t *testing.T, fragmentsOutside bool) layout {
	t.Helper()
	root := t.TempDir()
	l := layout{root: root, paths: Paths{
		BackupDir:   filepath.Join(root, "backups"),
		ConfigRoot:  filepath.Join(root, "conf"),
		FragmentDir: filepath.Join(root, "conf", "conf.d"),
		LedgerPath:  filepath.Join(root, "services.csv"),
	}}
	if fragmentsOutside {
		l.paths.FragmentDir = filepath.Join(root, "sites")
	}
	require.NoError(t, os.MkdirAll(l.paths.FragmentDir, 0o755))
	require.NoError(t, os.MkdirAll(l.paths.ConfigRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(l.paths.ConfigRoot, "nginx.conf"), []byte("events {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(l.paths.FragmentDir, "a.conf"), []byte("server { listen 80; }\n"), 0o644))
	require.NoError(t, os.WriteFile(l.paths.LedgerPath, []byte("ServiceName\na\n"), 0o644))
	return l
}

func newTestArchiver(paths Paths, now time.Time) *Archiver {
	a := NewArchiver(paths, logging.Discard())
	a.now = func() time.Time { return now }
	return a
}

func zipEntries(t *testing.T, path string) map[string][]byte {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	out := map[string][]byte{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = data
	}
	return out
}

func TestCreateSnapshot(t *testing.T) {
	l := newLayout(t, false)
	now := time.Date(2025, 6, 1, 12, 30, 45, 123_000_000, time.UTC)
	a := newTestArchiver(l.paths, now)

	artifact, err := a.CreateSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nginx-config-2025-06-01T12-30-45-123Z.zip", artifact.Name)
	assert.Equal(t, filepath.Join(l.paths.BackupDir, artifact.Name), artifact.Path)
	assert.Positive(t, artifact.Size)

	root := "nginx-config-2025-06-01T12-30-45-123Z"
	entries := zipEntries(t, artifact.Path)
	assert.Equal(t, []byte("events {}\n"), entries[root+"/conf/nginx.conf"])
	assert.Equal(t, []byte("server { listen 80; }\n"), entries[root+"/conf/conf.d/a.conf"])
	assert.Equal(t, []byte("ServiceName\na\n"), entries[root+"/services.csv"])
	assert.Contains(t, entries, root+"/manifest.yaml")
	for name := range entries {
		assert.False(t, strings.Contains(name, "/conf.d/") && !strings.Contains(name, "/conf/conf.d/"),
			"fragment dir inside the root must not be archived twice: %s", name)
	}

	m, err := ReadManifest(artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, artifact.Name, m.Name)
	assert.True(t, m.CreatedAt.Equal(now))
	require.Len(t, m.Files, 3)
	for _, f := range m.Files {
		sum := sha256.Sum256(entries[f.Path])
		assert.Equal(t, hex.EncodeToString(sum[:]), f.SHA256, f.Path)
		assert.Equal(t, int64(len(entries[f.Path])), f.Size)
	}

	leftovers, err := filepath.Glob(filepath.Join(l.paths.BackupDir, "*.partial"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCreateSnapshotFragmentsOutsideRoot(t *testing.T) {
	l := newLayout(t, true)
	a := newTestArchiver(l.paths, time.Now())

	artifact, err := a.CreateSnapshot(context.Background())
	require.NoError(t, err)

	root := strings.TrimSuffix(artifact.Name, ".zip")
	entries := zipEntries(t, artifact.Path)
	assert.Contains(t, entries, root+"/conf.d/a.conf")
	assert.Contains(t, entries, root+"/conf/nginx.conf")
}

func TestCreateSnapshotSkipsBackupDirInsideRoot(t *testing.T) {
	l := newLayout(t, false)
	l.paths.BackupDir = filepath.Join(l.paths.ConfigRoot, "backups")
	a := newTestArchiver(l.paths, time.Now())

	first, err := a.CreateSnapshot(context.Background())
	require.NoError(t, err)
	a.now = func() time.Time { return time.Now().Add(time.Second) }
	second, err := a.CreateSnapshot(context.Background())
	require.NoError(t, err)

	for name := range zipEntries(t, second.Path) {
		assert.NotContains(t, name, first.Name)
	}
}

func TestCreateSnapshotSameInstantDoesNotCollide(t *testing.T) {
	l := newLayout(t, false)
	a := newTestArchiver(l.paths, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	first, err := a.CreateSnapshot(context.Background())
	require.NoError(t, err)
	second, err := a.CreateSnapshot(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Name, second.Name)
	assert.True(t, strings.HasPrefix(second.Name, "nginx-config-"))
}

func TestCreateSnapshotCancelledLeavesNothing(t *testing.T) {
	l := newLayout(t, false)
	a := newTestArchiver(l.paths, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.CreateSnapshot(ctx)
	require.Error(t, err)

	entries, err := os.ReadDir(l.paths.BackupDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListSnapshotsNewestFirst(t *testing.T) {
	l := newLayout(t, false)
	a := newTestArchiver(l.paths, time.Now())

	list, err := a.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var names []string
	for i := 0; i < 3; i++ {
		a.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		artifact, err := a.CreateSnapshot(context.Background())
		require.NoError(t, err)
		mod := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(artifact.Path, mod, mod))
		names = append(names, artifact.Name)
	}
	require.NoError(t, os.WriteFile(filepath.Join(l.paths.BackupDir, "other.zip"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(l.paths.BackupDir, "nginx-config-x.zip.partial"), []byte("x"), 0o644))

	list, err = a.ListSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, names[2], list[0].Name)
	assert.Equal(t, names[1], list[1].Name)
	assert.Equal(t, names[0], list[2].Name)

	removed, err := a.Prune(context.Background(), 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, names[:2], removed)

	list, err = a.ListSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, names[2], list[0].Name)
}

func TestArchiveBeforeDelete(t *testing.T) {
	l := newLayout(t, false)
	now := time.UnixMilli(1_700_000_000_000)
	a := newTestArchiver(l.paths, now)
	src := filepath.Join(l.paths.FragmentDir, "a.conf")

	first, err := a.ArchiveBeforeDelete(src)
	require.NoError(t, err)
	assert.Equal(t, "a.conf.1700000000000.backup", first)

	second, err := a.ArchiveBeforeDelete(src)
	require.NoError(t, err)
	assert.Equal(t, "a.conf.1700000000001.backup", second)

	data, err := os.ReadFile(filepath.Join(l.paths.BackupDir, first))
	require.NoError(t, err)
	assert.Equal(t, "server { listen 80; }\n", string(data))

	_, err = a.ArchiveBeforeDelete(filepath.Join(l.paths.FragmentDir, "missing.conf"))
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = a.ArchiveBeforeDelete(l.paths.LedgerPath)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	// single-file copies are not snapshots
	list, err := a.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOpen(t *testing.T) {
	l := newLayout(t, false)
	a := newTestArchiver(l.paths, time.Now())
	artifact, err := a.CreateSnapshot(context.Background())
	require.NoError(t, err)

	path, err := a.Open(artifact.Name)
	require.NoError(t, err)
	assert.Equal(t, artifact.Path, path)

	_, err = a.Open("nginx-config-2020-01-01T00-00-00-000Z.zip")
	assert.ErrorIs(t, err, models.ErrNotFound)

	for _, bad := range []string{"../services.csv", "nginx-config-../x.zip", "a.conf.1.backup", ""} {
		_, err = a.Open(bad)
		assert.ErrorIs(t, err, models.ErrInvalidArgument, bad)
	}
}

func TestPruneDisabled(t *testing.T) {
	a := newTestArchiver(newLayout(t, false).paths, time.Now())
	removed, err := a.Prune(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
