package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa911/proxydesk/internal/models"
)

func base() models.ProxyDefinition {
	return models.ProxyDefinition{
		Name:           "svc",
		Hostname:       "svc.corp.local",
		BackendAddress: "10.0.0.1",
		BackendPort:    8080,
	}
}

func TestProxyDefinitionValidation(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		mutate func(d *models.ProxyDefinition)
		field  string
		tag    string
	}{
		{"valid", func(d *models.ProxyDefinition) {}, "", ""},
		{"valid with path and spaces", func(d *models.ProxyDefinition) { d.Name = "My Service 2"; d.URLPath = "/app/v1/" }, "", ""},
		{"multiple server names", func(d *models.ProxyDefinition) { d.Hostname = "a.local *.b.local" }, "", ""},
		{"missing name", func(d *models.ProxyDefinition) { d.Name = "" }, "serviceName", "required"},
		{"name with slash", func(d *models.ProxyDefinition) { d.Name = "a/b" }, "serviceName", "servicename"},
		{"name with header separator", func(d *models.ProxyDefinition) { d.Name = "api - prod" }, "serviceName", "servicename"},
		{"name with dash after space", func(d *models.ProxyDefinition) { d.Name = "api -prod" }, "serviceName", "servicename"},
		{"name with inner dash", func(d *models.ProxyDefinition) { d.Name = "api-prod v2" }, "", ""},
		{"name with dots", func(d *models.ProxyDefinition) { d.Name = "a..b" }, "serviceName", "servicename"},
		{"hostname injection", func(d *models.ProxyDefinition) { d.Hostname = "a.local; include /etc/passwd" }, "aRecord", "servername"},
		{"hostname ip", func(d *models.ProxyDefinition) { d.BackendAddress = "host.local" }, "ip", "ipv4addr"},
		{"ipv6 rejected", func(d *models.ProxyDefinition) { d.BackendAddress = "::1" }, "ip", "ipv4addr"},
		{"ipv4-mapped ipv6 rejected", func(d *models.ProxyDefinition) { d.BackendAddress = "::ffff:10.0.0.5" }, "ip", "ipv4addr"},
		{"leading zero octet", func(d *models.ProxyDefinition) { d.BackendAddress = "10.0.0.01" }, "ip", "ipv4addr"},
		{"octet out of range", func(d *models.ProxyDefinition) { d.BackendAddress = "10.0.0.256" }, "ip", "ipv4addr"},
		{"port zero", func(d *models.ProxyDefinition) { d.BackendPort = 0 }, "port", "required"},
		{"port negative", func(d *models.ProxyDefinition) { d.BackendPort = -1 }, "port", "min"},
		{"port too large", func(d *models.ProxyDefinition) { d.BackendPort = 65536 }, "port", "max"},
		{"path without slash", func(d *models.ProxyDefinition) { d.URLPath = "app" }, "customPath", "urlpath"},
		{"path with brace", func(d *models.ProxyDefinition) { d.URLPath = "/a{" }, "customPath", "urlpath"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := base()
			tt.mutate(&def)
			err := v.Struct(def)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			fields := FormatValidationError(err)
			require.Len(t, fields, 1)
			assert.Equal(t, tt.field, fields[0].Field)
			assert.Equal(t, tt.tag, fields[0].Tag)
			assert.NotEmpty(t, fields[0].Message)
			assert.ErrorIs(t, fields, models.ErrInvalidArgument)
		})
	}
}

func TestPortMessage(t *testing.T) {
	def := base()
	def.BackendPort = 70000
	fields := FormatValidationError(New().Struct(def))
	require.Len(t, fields, 1)
	assert.Equal(t, "port must be between 1 and 65535", fields[0].Message)
}

func TestFormatValidationErrorIgnoresOtherErrors(t *testing.T) {
	assert.Empty(t, FormatValidationError(assert.AnError))
}
