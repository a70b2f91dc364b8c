package models

import (
	"regexp"
	"strings"
	"time"
)

// FragmentExt is the extension every proxy fragment file carries.
const FragmentExt = ".conf"

// Unknown is rendered for fragment fields the parser could not extract.
const Unknown = "unknown"

var whitespaceRun = regexp.MustCompile(`\s+`)

// ProxyDefinition is a client-submitted reverse proxy rule.
type ProxyDefinition struct {
	Name           string `json:"serviceName" validate:"required,servicename"`
	Hostname       string `json:"aRecord" validate:"required,servername"`
	BackendAddress string `json:"ip" validate:"required,ipv4addr"`
	BackendPort    int    `json:"port" validate:"required,min=1,max=65535"`
	UseTLS         bool   `json:"useHTTPS"`
	URLPath        string `json:"customPath" validate:"omitempty,urlpath"`
	Description    string `json:"description" validate:"max=500"`
}

// FragmentFilename derives the fragment file name from the service name:
// lower-cased, whitespace runs replaced by a dash.
func (d ProxyDefinition) FragmentFilename() string {
	name := strings.ToLower(strings.TrimSpace(d.Name))
	return whitespaceRun.ReplaceAllString(name, "-") + FragmentExt
}

// Location returns the location prefix, defaulting to the root.
func (d ProxyDefinition) Location() string {
	if d.URLPath == "" {
		return "/"
	}
	return d.URLPath
}

// Fragment is a proxy fragment as read back from the fragment directory.
type Fragment struct {
	Filename       string    `json:"filename"`
	Name           string    `json:"serviceName"`
	Description    string    `json:"description"`
	ServerName     string    `json:"serverName"`
	ListenPort     int       `json:"port"`
	Backend        string    `json:"backend"`
	BackendAddress string    `json:"backendAddress"`
	BackendPort    int       `json:"backendPort"`
	URLPath        string    `json:"customPath"`
	SSL            bool      `json:"ssl"`
	SSLCertificate *string   `json:"sslCert"`
	TLSRequested   bool      `json:"tlsRequested"`
	Size           int64     `json:"size"`
	ModifiedAt     time.Time `json:"modified"`
}

// AddResult is returned by a successful add.
type AddResult struct {
	Filename   string `json:"filename"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// DeleteResult is returned by a successful delete.
type DeleteResult struct {
	Filename string `json:"filename"`
	Backup   string `json:"backup"`
}
