// Package ledger appends one CSV row per proxy submission. Rows are never
// rewritten or removed; the file is an audit trail for operators.
package ledger

import (
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/osa911/proxydesk/internal/models"
)

// Header is written once when the ledger file is created.
var Header = []string{"ServiceName", "ARecord", "IP", "Port", "UseHTTPS", "CustomPath", "Description"}

// Ledger is an append-only CSV file.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// New returns a ledger backed by path. The file is created on first append.
func New(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// Append writes one row for def, creating the file with its header first
// when needed. Duplicate definitions simply accumulate.
func (l *Ledger) Append(def models.ProxyDefinition) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return models.IOError("create ledger directory", err)
	}

	writeHeader := false
	info, err := os.Stat(l.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		writeHeader = true
	case err != nil:
		return models.IOError("stat ledger", err)
	case info.Size() == 0:
		writeHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return models.IOError("open ledger", err)
	}

	w := csv.NewWriter(f)
	if writeHeader {
		w.Write(Header)
	}
	w.Write(Row(def))
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return models.IOError("append ledger", err)
	}
	if err := f.Close(); err != nil {
		return models.IOError("append ledger", err)
	}
	return nil
}

// Row renders the ledger columns for a definition.
func Row(def models.ProxyDefinition) []string {
	tls := "N"
	if def.UseTLS {
		tls = "Y"
	}
	return []string{
		def.Name,
		def.Hostname,
		def.BackendAddress,
		strconv.Itoa(def.BackendPort),
		tls,
		def.URLPath,
		def.Description,
	}
}
