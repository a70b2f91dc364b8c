package fragment

import (
	"regexp"
	"strconv"
	"strings"
)

// Field is a value extracted from a fragment. Known is false when the
// directive was absent or unreadable.
type Field[T any] struct {
	Value T
	Known bool
}

// Or returns the value, or def when the field is unknown.
func (f Field[T]) Or(def T) T {
	if !f.Known {
		return def
	}
	return f.Value
}

func known[T any](v T) Field[T] {
	return Field[T]{Value: v, Known: true}
}

// Parsed is the partial record recovered from a fragment's text.
type Parsed struct {
	ServerName     Field[string]
	ListenPort     Field[int]
	ListenSSL      bool
	Backend        Field[string]
	BackendAddress Field[string]
	BackendPort    Field[int]
	URLPath        Field[string]
	SSLCertificate Field[string]
	SSL            bool
	Name           Field[string]
	Description    Field[string]
	TLSRequested   bool
}

var (
	serverNameRe = regexp.MustCompile(`server_name\s+([^;]+);`)
	listenRe     = regexp.MustCompile(`listen\s+(\d+)\s*(ssl)?`)
	proxyPassRe  = regexp.MustCompile(`proxy_pass\s+([^;]+);`)
	sslCertRe    = regexp.MustCompile(`ssl_certificate\s+([^;]+);`)
	locationRe   = regexp.MustCompile(`location\s+([^\s{]+)\s*\{`)
	headerRe     = regexp.MustCompile(`(?m)^#[ \t]*(.+?)[ \t]+-(?:[ \t]+(.*?))?[ \t]*$`)
	tlsMarkerRe  = regexp.MustCompile(`(?m)^#\s*TLS:\s*requested\s*$`)
	upstreamRe   = regexp.MustCompile(`^(?:https?://)?([^:/\s]+)(?::(\d+))?`)
)

// Parse extracts what it can from a fragment. Each field is matched on
// its own so a missing or malformed directive never hides the others.
func Parse(content string) Parsed {
	var p Parsed

	if m := serverNameRe.FindStringSubmatch(content); m != nil {
		p.ServerName = known(strings.TrimSpace(m[1]))
	}

	if m := listenRe.FindStringSubmatch(content); m != nil {
		if port, err := strconv.Atoi(m[1]); err == nil {
			p.ListenPort = known(port)
		}
		p.ListenSSL = m[2] != ""
	}

	if m := proxyPassRe.FindStringSubmatch(content); m != nil {
		backend := strings.TrimSpace(m[1])
		p.Backend = known(backend)
		if u := upstreamRe.FindStringSubmatch(backend); u != nil {
			p.BackendAddress = known(u[1])
			if u[2] != "" {
				if port, err := strconv.Atoi(u[2]); err == nil {
					p.BackendPort = known(port)
				}
			}
		}
	}

	if m := sslCertRe.FindStringSubmatch(content); m != nil {
		p.SSLCertificate = known(strings.TrimSpace(m[1]))
	}
	p.SSL = strings.Contains(content, "ssl_certificate")

	if m := locationRe.FindStringSubmatch(content); m != nil {
		p.URLPath = known(m[1])
	}

	if m := headerRe.FindStringSubmatch(content); m != nil {
		p.Name = known(strings.TrimSpace(m[1]))
		p.Description = known(strings.TrimSpace(m[2]))
	}
	p.TLSRequested = tlsMarkerRe.MatchString(content)

	return p
}
