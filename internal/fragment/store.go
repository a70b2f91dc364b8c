// Package fragment keeps one nginx server block per file in a conf.d style
// directory and reads those files back into listing records.
package fragment

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/models"
)

var filenameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*\.conf$`)

// ValidateFilename checks that name is a bare fragment file name. Anything
// carrying a path separator or a parent reference is rejected.
func ValidateFilename(name string) error {
	if !strings.HasSuffix(name, models.FragmentExt) {
		return models.InvalidArgument("invalid filename %q: must end in %s", name, models.FragmentExt)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || filepath.Base(name) != name {
		return models.InvalidArgument("invalid filename %q", name)
	}
	if !filenameRe.MatchString(name) {
		return models.InvalidArgument("invalid filename %q", name)
	}
	return nil
}

// Store reads and writes fragments in a single directory.
type Store struct {
	dir    string
	logger *logging.Logger
	now    func() time.Time
}

// NewStore creates a store rooted at dir. The directory does not need to
// exist yet.
func NewStore(dir string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Store{
		dir:    dir,
		logger: logger,
		now:    time.Now,
	}
}

// Dir returns the fragment directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute location of a fragment file.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// CheckDir reports an error when the fragment directory exists but cannot
// be used. A directory that does not exist yet is fine.
func (s *Store) CheckDir() error {
	info, err := os.Stat(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return models.IOError("stat fragment directory", err)
	}
	if !info.IsDir() {
		return models.IOError("stat fragment directory", fmt.Errorf("%s is not a directory", s.dir))
	}
	return nil
}

// List parses every fragment in the directory. A missing directory yields
// an empty listing.
func (s *Store) List(ctx context.Context) ([]models.Fragment, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Fragment directory not found: %s", s.dir)
			return []models.Fragment{}, nil
		}
		return nil, models.IOError("read fragment directory", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), models.FragmentExt) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	fragments := make([]models.Fragment, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fragment, err := s.load(name)
		if err != nil {
			s.logger.Error("Fragment parsing error for %s: %v", name, err)
			continue
		}
		fragments = append(fragments, fragment)
	}

	s.logger.Debug("Fragments loaded: %d", len(fragments))
	return fragments, nil
}

func (s *Store) load(name string) (models.Fragment, error) {
	path := s.Path(name)
	content, err := os.ReadFile(path)
	if err != nil {
		return models.Fragment{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return models.Fragment{}, err
	}

	p := Parse(string(content))
	fragment := models.Fragment{
		Filename:       name,
		Name:           p.Name.Or(strings.TrimSuffix(name, models.FragmentExt)),
		Description:    p.Description.Or(""),
		ServerName:     p.ServerName.Or(models.Unknown),
		ListenPort:     p.ListenPort.Or(80),
		Backend:        p.Backend.Or(models.Unknown),
		BackendAddress: p.BackendAddress.Or(models.Unknown),
		BackendPort:    p.BackendPort.Or(0),
		URLPath:        p.URLPath.Or(models.Unknown),
		SSL:            p.SSL,
		TLSRequested:   p.TLSRequested,
		Size:           info.Size(),
		ModifiedAt:     info.ModTime().UTC(),
	}
	if p.SSLCertificate.Known {
		cert := p.SSLCertificate.Value
		fragment.SSLCertificate = &cert
	}
	return fragment, nil
}

// Write renders def into its fragment file, replacing any existing file
// of the same name.
func (s *Store) Write(def models.ProxyDefinition) (string, error) {
	filename := def.FragmentFilename()
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", models.IOError("create fragment directory", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".fragment-*.tmp")
	if err != nil {
		return "", models.IOError("create fragment", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(Render(def, s.now())); err != nil {
		tmp.Close()
		return "", models.IOError("write fragment", err)
	}
	if err := tmp.Close(); err != nil {
		return "", models.IOError("write fragment", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", models.IOError("write fragment", err)
	}
	if err := os.Rename(tmpName, s.Path(filename)); err != nil {
		return "", models.IOError("write fragment", err)
	}

	s.logger.Info("Proxy config created: %s", filename)
	return filename, nil
}

// Exists reports whether a fragment file is present.
func (s *Store) Exists(filename string) (bool, error) {
	if err := ValidateFilename(filename); err != nil {
		return false, err
	}
	_, err := os.Stat(s.Path(filename))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, models.IOError("stat fragment", err)
}

// Read returns the raw content of a fragment.
func (s *Store) Read(filename string) ([]byte, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(s.Path(filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("fragment %s: %w", filename, models.ErrNotFound)
		}
		return nil, models.IOError("read fragment", err)
	}
	return content, nil
}

// Remove deletes a fragment file.
func (s *Store) Remove(filename string) error {
	if err := ValidateFilename(filename); err != nil {
		return err
	}
	if err := os.Remove(s.Path(filename)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("fragment %s: %w", filename, models.ErrNotFound)
		}
		return models.IOError("remove fragment", err)
	}
	s.logger.Info("Proxy config removed: %s", filename)
	return nil
}
