package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates the Config using struct tags and custom cross-field
// rules. Returns an error with actionable, user-facing messages.
func (c *Config) Validate() error {
	for name, server := range c.Servers {
		if err := validateServerKindFields(name, server); err != nil {
			return err
		}
	}

	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	return nil
}

// validateServerKindFields enforces the discriminated union: only the
// fields valid for the declared Type may be set, and the fields required
// by that Type must be non-empty.
func validateServerKindFields(name string, s ServerSpec) error {
	switch s.Type {
	case KindStdio:
		if s.Command == "" {
			return fmt.Errorf("servers.%s: command is required for type=stdio", name)
		}
		if s.URL != "" {
			return fmt.Errorf("servers.%s: url is not valid for type=stdio", name)
		}
		if len(s.Headers) > 0 {
			return fmt.Errorf("servers.%s: headers is not valid for type=stdio", name)
		}
	case KindSSE, KindWS:
		if s.URL == "" {
			return fmt.Errorf("servers.%s: url is required for type=%s", name, s.Type)
		}
		if s.Command != "" {
			return fmt.Errorf("servers.%s: command is not valid for type=%s", name, s.Type)
		}
		if len(s.Args) > 0 {
			return fmt.Errorf("servers.%s: args is not valid for type=%s", name, s.Type)
		}
		if len(s.EnvVars) > 0 {
			return fmt.Errorf("servers.%s: env_vars is not valid for type=%s", name, s.Type)
		}
	default:
		return fmt.Errorf("servers.%s: unknown type %q", name, s.Type)
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
