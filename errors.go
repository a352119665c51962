package main

import (
	"errors"
	"strings"

	"github.com/cinevault/cinevault/internal/api"
	"github.com/cinevault/cinevault/internal/media"
)

// describeError turns an error into the message shown to the user.
func describeError(err error) string {
	var apiErr *api.Error

	switch {
	case errors.Is(err, api.ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, api.ErrSessionExpired), errors.Is(err, api.ErrUnauthenticated):
		return "session expired, run 'cinevault login'"
	case errors.Is(err, api.ErrValidation) && errors.As(err, &apiErr):
		return "the server rejected the request:\n" + formatFieldErrors(apiErr)
	case errors.Is(err, media.ErrTitleRequired):
		return "a title is required"
	case errors.Is(err, api.ErrNetwork):
		return "cannot reach the server: " + err.Error()
	default:
		return err.Error()
	}
}

// formatFieldErrors renders one "  field: message" line per problem.
func formatFieldErrors(e *api.Error) string {
	var b strings.Builder

	for _, name := range e.FieldNames() {
		for _, msg := range e.Fields[name] {
			b.WriteString("  " + name + ": " + msg + "\n")
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}
