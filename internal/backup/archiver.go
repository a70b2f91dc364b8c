// Package backup snapshots the nginx configuration and the ledger into
// zip archives and keeps single-file copies of deleted fragments.
package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/osa911/proxydesk/internal/fragment"
	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/models"
	"github.com/osa911/proxydesk/internal/version"
)

const (
	snapshotPrefix = "nginx-config-"
	snapshotExt    = ".zip"
	partialExt     = ".partial"
	fragmentBackup = ".backup"
	manifestName   = "manifest.yaml"
)

var snapshotNameRe = regexp.MustCompile(`^nginx-config-[0-9TZ-]+\.zip$`)

// Paths tells the archiver what to capture and where to put it.
type Paths struct {
	BackupDir   string
	ConfigRoot  string
	FragmentDir string
	LedgerPath  string
}

// Archiver creates and lists configuration snapshots.
type Archiver struct {
	paths  Paths
	logger *logging.Logger
	now    func() time.Time
}

// NewArchiver creates an archiver for the given paths.
func NewArchiver(paths Paths, logger *logging.Logger) *Archiver {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Archiver{
		paths:  paths,
		logger: logger,
		now:    time.Now,
	}
}

// Dir returns the backup directory.
func (a *Archiver) Dir() string {
	return a.paths.BackupDir
}

// Manifest describes the content of a snapshot.
type Manifest struct {
	Name      string         `yaml:"name"`
	CreatedAt time.Time      `yaml:"created_at"`
	Version   string         `yaml:"version"`
	Hostname  string         `yaml:"hostname,omitempty"`
	Files     []ManifestFile `yaml:"files"`
}

// ManifestFile is one archived file.
type ManifestFile struct {
	Path   string `yaml:"path"`
	Size   int64  `yaml:"size"`
	SHA256 string `yaml:"sha256"`
}

func (a *Archiver) snapshotName() string {
	ts := strings.ReplaceAll(a.now().UTC().Format("2006-01-02T15-04-05.000Z"), ".", "-")
	name := snapshotPrefix + ts + snapshotExt
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(a.paths.BackupDir, name)); errors.Is(err, fs.ErrNotExist) {
			return name
		}
		name = fmt.Sprintf("%s%s-%d%s", snapshotPrefix, ts, i, snapshotExt)
	}
}

// CreateSnapshot archives the configuration root, the fragment directory
// and the ledger. The archive is written under a temporary name and only
// renamed into place once complete, so a failed snapshot leaves nothing
// behind.
func (a *Archiver) CreateSnapshot(ctx context.Context) (models.BackupArtifact, error) {
	if err := os.MkdirAll(a.paths.BackupDir, 0o755); err != nil {
		return models.BackupArtifact{}, models.IOError("create backup directory", err)
	}

	name := a.snapshotName()
	final := filepath.Join(a.paths.BackupDir, name)
	partial := final + partialExt

	f, err := os.OpenFile(partial, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return models.BackupArtifact{}, models.IOError("create snapshot", err)
	}
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(partial)
		}
	}()

	root := strings.TrimSuffix(name, snapshotExt)
	hostname, _ := os.Hostname()
	manifest := Manifest{
		Name:      name,
		CreatedAt: a.now().UTC(),
		Version:   version.Version,
		Hostname:  hostname,
	}

	zw := zip.NewWriter(f)
	if err := a.writeContents(ctx, zw, root, &manifest); err != nil {
		return models.BackupArtifact{}, err
	}

	manifestBytes, err := yaml.Marshal(&manifest)
	if err != nil {
		return models.BackupArtifact{}, fmt.Errorf("encode manifest: %w", err)
	}
	w, err := zw.Create(root + "/" + manifestName)
	if err != nil {
		return models.BackupArtifact{}, models.IOError("write manifest", err)
	}
	if _, err := w.Write(manifestBytes); err != nil {
		return models.BackupArtifact{}, models.IOError("write manifest", err)
	}

	if err := zw.Close(); err != nil {
		return models.BackupArtifact{}, models.IOError("finalize snapshot", err)
	}
	if err := f.Sync(); err != nil {
		return models.BackupArtifact{}, models.IOError("sync snapshot", err)
	}
	if err := f.Close(); err != nil {
		return models.BackupArtifact{}, models.IOError("close snapshot", err)
	}
	if err := os.Rename(partial, final); err != nil {
		os.Remove(partial)
		committed = true
		return models.BackupArtifact{}, models.IOError("finalize snapshot", err)
	}
	committed = true

	info, err := os.Stat(final)
	if err != nil {
		return models.BackupArtifact{}, models.IOError("stat snapshot", err)
	}
	a.logger.Info("Backup created: %s (%d files, %d bytes)", final, len(manifest.Files), info.Size())
	return models.BackupArtifact{
		Name:      name,
		Path:      final,
		Size:      info.Size(),
		CreatedAt: info.ModTime().UTC(),
	}, nil
}

func (a *Archiver) writeContents(ctx context.Context, zw *zip.Writer, root string, manifest *Manifest) error {
	captured := false
	if a.paths.ConfigRoot != "" && isDir(a.paths.ConfigRoot) {
		if err := a.addTree(ctx, zw, a.paths.ConfigRoot, root+"/conf", manifest); err != nil {
			return err
		}
		captured = true
	}

	if a.paths.FragmentDir != "" && isDir(a.paths.FragmentDir) &&
		(!captured || !within(a.paths.ConfigRoot, a.paths.FragmentDir)) {
		if err := a.addTree(ctx, zw, a.paths.FragmentDir, root+"/conf.d", manifest); err != nil {
			return err
		}
	}

	if a.paths.LedgerPath != "" {
		info, err := os.Stat(a.paths.LedgerPath)
		switch {
		case err == nil && info.Mode().IsRegular():
			if err := addFile(zw, a.paths.LedgerPath, root+"/services.csv", info, manifest); err != nil {
				return err
			}
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return models.IOError("stat ledger", err)
		}
	}
	return nil
}

func (a *Archiver) addTree(ctx context.Context, zw *zip.Writer, dir, prefix string, manifest *Manifest) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return models.IOError("walk "+dir, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if a.paths.BackupDir != "" && sameDir(path, a.paths.BackupDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return models.IOError("stat "+path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, prefix+"/"+filepath.ToSlash(rel), info, manifest)
	})
}

func addFile(zw *zip.Writer, path, name string, info fs.FileInfo, manifest *Manifest) error {
	src, err := os.Open(path)
	if err != nil {
		return models.IOError("open "+path, err)
	}
	defer src.Close()

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header for %s: %w", path, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return models.IOError("add "+name, err)
	}
	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(w, hash), src)
	if err != nil {
		return models.IOError("copy "+path, err)
	}
	manifest.Files = append(manifest.Files, ManifestFile{
		Path:   name,
		Size:   n,
		SHA256: hex.EncodeToString(hash.Sum(nil)),
	})
	return nil
}

// ListSnapshots returns finalized snapshots, newest first.
func (a *Archiver) ListSnapshots(ctx context.Context) ([]models.BackupArtifact, error) {
	entries, err := os.ReadDir(a.paths.BackupDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.BackupArtifact{}, nil
		}
		return nil, models.IOError("read backup directory", err)
	}

	artifacts := make([]models.BackupArtifact, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			a.logger.Warn("Skipping backup %s: %v", name, err)
			continue
		}
		artifacts = append(artifacts, models.BackupArtifact{
			Name:      name,
			Path:      filepath.Join(a.paths.BackupDir, name),
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if !artifacts[i].CreatedAt.Equal(artifacts[j].CreatedAt) {
			return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
		}
		return artifacts[i].Name > artifacts[j].Name
	})
	return artifacts, nil
}

// Open resolves a snapshot name to its path for download.
func (a *Archiver) Open(name string) (string, error) {
	if !snapshotNameRe.MatchString(name) || filepath.Base(name) != name {
		return "", models.InvalidArgument("invalid backup name %q", name)
	}
	path := filepath.Join(a.paths.BackupDir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("backup %s: %w", name, models.ErrNotFound)
		}
		return "", models.IOError("stat backup", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("backup %s: %w", name, models.ErrNotFound)
	}
	return path, nil
}

// ArchiveBeforeDelete copies a fragment into the backup directory under
// <filename>.<unix millis>.backup and returns the backup file name.
func (a *Archiver) ArchiveBeforeDelete(fragmentPath string) (string, error) {
	filename := filepath.Base(fragmentPath)
	if err := fragment.ValidateFilename(filename); err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.paths.BackupDir, 0o755); err != nil {
		return "", models.IOError("create backup directory", err)
	}

	src, err := os.Open(fragmentPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("fragment %s: %w", filename, models.ErrNotFound)
		}
		return "", models.IOError("open fragment", err)
	}
	defer src.Close()

	stamp := a.now().UnixMilli()
	var dst *os.File
	var backupName string
	for {
		backupName = fmt.Sprintf("%s.%d%s", filename, stamp, fragmentBackup)
		dst, err = os.OpenFile(filepath.Join(a.paths.BackupDir, backupName), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", models.IOError("create fragment backup", err)
		}
		stamp++
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", models.IOError("copy fragment backup", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", models.IOError("close fragment backup", err)
	}

	a.logger.Info("Backup created: %s", backupName)
	return backupName, nil
}

// Prune removes all but the newest keep snapshots. keep <= 0 keeps all.
func (a *Archiver) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	artifacts, err := a.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	if len(artifacts) <= keep {
		return nil, nil
	}

	var removed []string
	for _, artifact := range artifacts[keep:] {
		if err := os.Remove(artifact.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, models.IOError("prune "+artifact.Name, err)
		}
		removed = append(removed, artifact.Name)
	}
	a.logger.Info("Pruned %d old backups", len(removed))
	return removed, nil
}

// ReadManifest loads the manifest stored inside a snapshot.
func ReadManifest(path string) (*Manifest, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, models.IOError("open snapshot", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if filepath.Base(f.Name) != manifestName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, models.IOError("open manifest", err)
		}
		defer rc.Close()

		var m Manifest
		if err := yaml.NewDecoder(rc).Decode(&m); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		return &m, nil
	}
	return nil, fmt.Errorf("manifest in %s: %w", filepath.Base(path), models.ErrNotFound)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// within reports whether child is parent or lies below it.
func within(parent, child string) bool {
	absParent, err := filepath.Abs(parent)
	if err != nil {
		return false
	}
	absChild, err := filepath.Abs(child)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absParent, absChild)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
