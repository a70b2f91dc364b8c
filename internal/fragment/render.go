package fragment

import (
	"fmt"
	"strings"
	"time"

	"github.com/osa911/proxydesk/internal/models"
)

// Render produces the nginx server block for a definition.
func Render(def models.ProxyDefinition, now time.Time) string {
	backend := fmt.Sprintf("%s:%d", def.BackendAddress, def.BackendPort)

	var b strings.Builder
	header := oneLine(def.Name) + " -"
	if description := oneLine(def.Description); description != "" {
		header += " " + description
	}
	fmt.Fprintf(&b, "# %s\n", header)
	fmt.Fprintf(&b, "# Created: %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "# Backend: %s\n", backend)
	if def.UseTLS {
		b.WriteString("# TLS: requested\n")
	}
	b.WriteString("\n")
	b.WriteString("server {\n")
	b.WriteString("    listen 80;\n")
	fmt.Fprintf(&b, "    server_name %s;\n", def.Hostname)
	b.WriteString("\n")
	fmt.Fprintf(&b, "    location %s {\n", def.Location())
	fmt.Fprintf(&b, "        proxy_pass http://%s;\n", backend)
	b.WriteString("        proxy_set_header Host $host;\n")
	b.WriteString("        proxy_set_header X-Real-IP $remote_addr;\n")
	b.WriteString("        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;\n")
	b.WriteString("        proxy_set_header X-Forwarded-Proto $scheme;\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
