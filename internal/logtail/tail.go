// Package logtail reads the last lines of the nginx access and error logs.
package logtail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/osa911/proxydesk/internal/models"
)

const (
	DefaultLines = 100
	MaxLines     = 1000

	chunkSize = 32 * 1024
)

// Kinds maps the accepted log type to its file name.
var Kinds = map[string]string{
	"access": "access.log",
	"error":  "error.log",
}

// ClampLines normalizes a requested line count.
func ClampLines(n int) int {
	switch {
	case n <= 0:
		return DefaultLines
	case n > MaxLines:
		return MaxLines
	default:
		return n
	}
}

// Path resolves a log type inside dir.
func Path(dir, kind string) (string, error) {
	name, ok := Kinds[kind]
	if !ok {
		return "", models.InvalidArgument("invalid log type %q", kind)
	}
	return filepath.Join(dir, name), nil
}

// Tail returns up to n trailing non-blank lines of the file, oldest first.
func Tail(path string, n int) ([]string, error) {
	n = ClampLines(n)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("log file %s: %w", filepath.Base(path), models.ErrNotFound)
		}
		return nil, models.IOError("open log", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, models.IOError("stat log", err)
	}
	return tailReader(f, info.Size(), n)
}

func tailReader(r io.ReaderAt, size int64, n int) ([]string, error) {
	var buf []byte
	offset := size
	for offset > 0 && countLines(buf) <= n {
		step := int64(chunkSize)
		if step > offset {
			step = offset
		}
		offset -= step
		chunk := make([]byte, step)
		if _, err := r.ReadAt(chunk, offset); err != nil && !errors.Is(err, io.EOF) {
			return nil, models.IOError("read log", err)
		}
		buf = append(chunk, buf...)
	}

	lines := bytes.Split(buf, []byte{'\n'})
	if offset > 0 && len(lines) > 0 {
		// first line is likely partial
		lines = lines[1:]
	}

	out := make([]string, 0, n)
	for _, line := range lines {
		line = bytes.TrimRight(line, "\r")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		out = append(out, string(line))
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// countLines counts non-blank lines in buf.
func countLines(buf []byte) int {
	count := 0
	for _, line := range bytes.Split(buf, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) > 0 {
			count++
		}
	}
	return count
}
