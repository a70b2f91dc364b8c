package validation

import (
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/osa911/proxydesk/internal/models"
)

var (
	serviceNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._-]{0,99}$`)
	serverNameRegex  = regexp.MustCompile(`^[A-Za-z0-9.*_~-]+( [A-Za-z0-9.*_~-]+)*$`)
	urlPathRegex     = regexp.MustCompile(`^/[A-Za-z0-9/._~%:@!$&'()*+,=-]*$`)
	dashAfterSpace   = regexp.MustCompile(`\s-`)
)

// New returns a validator with the proxy definition tags registered.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators
func RegisterValidators(v *validator.Validate) {
	v.RegisterValidation("servicename", validateServiceName)
	v.RegisterValidation("servername", validateServerName)
	v.RegisterValidation("urlpath", validateURLPath)
	v.RegisterValidation("ipv4addr", validateIPv4Addr)
}

// validateServiceName rejects anything that could escape the fragment
// directory once turned into a file name.
func validateServiceName(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	// " -" separates the name from the description in the fragment header
	if strings.Contains(name, "..") || dashAfterSpace.MatchString(name) {
		return false
	}
	return serviceNameRegex.MatchString(name)
}

// validateServerName accepts one or more server_name tokens.
func validateServerName(fl validator.FieldLevel) bool {
	return serverNameRegex.MatchString(fl.Field().String())
}

// validateURLPath accepts a location prefix that cannot break out of the
// location block.
func validateURLPath(fl validator.FieldLevel) bool {
	return urlPathRegex.MatchString(fl.Field().String())
}

// validateIPv4Addr accepts a dotted-quad IPv4 address only. IPv4-mapped
// IPv6 forms would render an unusable proxy_pass target.
func validateIPv4Addr(fl validator.FieldLevel) bool {
	addr, err := netip.ParseAddr(fl.Field().String())
	return err == nil && addr.Is4()
}

// FormatValidationError converts validator errors into field errors keyed
// by the JSON field name.
func FormatValidationError(err error) models.FieldErrors {
	var fieldErrors models.FieldErrors
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fieldErrors
	}
	for _, e := range validationErrors {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   jsonName(e.StructField()),
			Tag:     e.Tag(),
			Message: message(e),
		})
	}
	return fieldErrors
}

var jsonNames = map[string]string{
	"Name":           "serviceName",
	"Hostname":       "aRecord",
	"BackendAddress": "ip",
	"BackendPort":    "port",
	"URLPath":        "customPath",
	"Description":    "description",
}

func jsonName(field string) string {
	if name, ok := jsonNames[field]; ok {
		return name
	}
	return field
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "ipv4addr":
		return "invalid IP address format"
	case "min", "max":
		if e.StructField() == "BackendPort" {
			return "port must be between 1 and 65535"
		}
		return fmt.Sprintf("must satisfy %s=%s", e.Tag(), e.Param())
	case "servicename":
		return "may only contain letters, digits, spaces, '.', '_' and '-', and no '-' after a space"
	case "servername":
		return "must be one or more host names separated by single spaces"
	case "urlpath":
		return "must start with '/' and contain no whitespace or ';{}'"
	default:
		return "failed " + e.Tag() + " validation"
	}
}
