package fragment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osa911/proxydesk/internal/models"
)

func TestParseRendered(t *testing.T) {
	def := models.ProxyDefinition{
		Name:           "Billing API",
		Hostname:       "billing.corp.local",
		BackendAddress: "192.168.1.20",
		BackendPort:    9000,
		UseTLS:         true,
		URLPath:        "/billing",
		Description:    "invoices",
	}
	p := Parse(Render(def, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))

	assert.Equal(t, known("billing.corp.local"), p.ServerName)
	assert.Equal(t, known(80), p.ListenPort)
	assert.False(t, p.ListenSSL)
	assert.Equal(t, known("http://192.168.1.20:9000"), p.Backend)
	assert.Equal(t, known("192.168.1.20"), p.BackendAddress)
	assert.Equal(t, known(9000), p.BackendPort)
	assert.Equal(t, known("/billing"), p.URLPath)
	assert.Equal(t, known("Billing API"), p.Name)
	assert.Equal(t, known("invoices"), p.Description)
	assert.True(t, p.TLSRequested)
	assert.False(t, p.SSL)
	assert.False(t, p.SSLCertificate.Known)
}

func TestParseFieldsIndependently(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, p Parsed)
	}{
		{
			name:    "empty",
			content: "",
			check: func(t *testing.T, p Parsed) {
				assert.False(t, p.ServerName.Known)
				assert.False(t, p.ListenPort.Known)
				assert.False(t, p.Backend.Known)
				assert.Equal(t, models.Unknown, p.ServerName.Or(models.Unknown))
			},
		},
		{
			name:    "only server_name",
			content: "server {\n  server_name example.com www.example.com;\n}\n",
			check: func(t *testing.T, p Parsed) {
				assert.Equal(t, known("example.com www.example.com"), p.ServerName)
				assert.False(t, p.ListenPort.Known)
				assert.False(t, p.Backend.Known)
			},
		},
		{
			name:    "broken server_name keeps proxy_pass",
			content: "server {\n  server_name\n  listen 443 ssl;\n  location / { proxy_pass http://backend; }\n",
			check: func(t *testing.T, p Parsed) {
				assert.Equal(t, known(443), p.ListenPort)
				assert.True(t, p.ListenSSL)
				assert.Equal(t, known("http://backend"), p.Backend)
				assert.Equal(t, known("backend"), p.BackendAddress)
				assert.False(t, p.BackendPort.Known)
			},
		},
		{
			name:    "ssl certificate",
			content: "listen 443 ssl;\nssl_certificate /etc/ssl/site.pem;\nssl_certificate_key /etc/ssl/site.key;\n",
			check: func(t *testing.T, p Parsed) {
				assert.True(t, p.SSL)
				assert.Equal(t, known("/etc/ssl/site.pem"), p.SSLCertificate)
			},
		},
		{
			name:    "no header comment",
			content: "# just a note\nserver { listen 8080; }\n",
			check: func(t *testing.T, p Parsed) {
				assert.False(t, p.Name.Known)
				assert.Equal(t, known(8080), p.ListenPort)
				assert.False(t, p.TLSRequested)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Parse(tt.content))
		})
	}
}

func TestRenderDefaults(t *testing.T) {
	out := Render(models.ProxyDefinition{
		Name:           "svc",
		Hostname:       "svc.local",
		BackendAddress: "10.1.1.1",
		BackendPort:    80,
		Description:    "  multi\nline  ",
	}, time.Unix(0, 0))

	assert.Contains(t, out, "# svc - multi line\n")
	assert.Contains(t, out, "location / {")
	assert.Contains(t, out, "proxy_pass http://10.1.1.1:80;")
	assert.Contains(t, out, "proxy_set_header X-Forwarded-Proto $scheme;")
	assert.NotContains(t, out, "TLS: requested")

	out = Render(models.ProxyDefinition{Name: "svc", Hostname: "h", BackendAddress: "10.1.1.1", BackendPort: 1}, time.Unix(0, 0))
	assert.Contains(t, out, "# svc -\n")
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		serviceName string
		description string
	}{
		{"name and description", "# svc - internal", "svc", "internal"},
		{"description with separator", "# svc - prod - internal", "svc", "prod - internal"},
		{"empty description", "# svc -", "svc", ""},
		{"empty description trailing space", "# svc - ", "svc", ""},
		{"spaces in name", "# Billing API v2 - invoices", "Billing API v2", "invoices"},
		{"dash inside name", "# api-prod - x", "api-prod", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(tt.header + "\n# Created: 2025-01-02T03:04:05Z\nserver { listen 80; }\n")
			assert.Equal(t, known(tt.serviceName), p.Name)
			assert.Equal(t, known(tt.description), p.Description)
		})
	}
}
