package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common error types for the browser auth gateway
var (
	// Configuration errors
	ErrSessionMissing = errors.New("a session middleware must run before the browser auth middleware")

	// Callback (client input) errors
	ErrMissingCode      = errors.New(`a "code" query parameter was expected`)
	ErrNoFlowInProgress = errors.New("no authorization flow in progress")

	// Authorization server errors
	ErrAuthorizationDenied = errors.New("error from oauth2 server")
	ErrTokenRefreshFailed  = errors.New("token refresh failed")
	ErrMalformedResponse   = errors.New("malformed token endpoint response")

	// Security violations
	ErrSandboxViolation = errors.New("sandbox violation")
	ErrStateMismatch    = errors.New("state parameter mismatch")
	ErrCSRFInvalid      = errors.New("invalid or missing csrf token")
)

// UpstreamError is a failed call to the authorization server's token endpoint.
type UpstreamError struct {
	Op          string // e.g. "refreshing tokens on OAuth2 server"
	StatusCode  int
	ErrorCode   string // OAuth2 "error" field, if the body carried one
	Description string // OAuth2 "error_description" field
}

func (e *UpstreamError) Error() string {
	var sb strings.Builder
	if e.ErrorCode != "" {
		sb.WriteString("received oauth2 error")
		if e.Op != "" {
			sb.WriteString(" while " + e.Op)
		}
		sb.WriteString(": " + e.ErrorCode + ".")
		if e.Description != "" {
			sb.WriteString(" " + e.Description)
		}
		fmt.Fprintf(&sb, " (HTTP: %d)", e.StatusCode)
		return sb.String()
	}
	sb.WriteString("received HTTP error")
	if e.Op != "" {
		sb.WriteString(" while " + e.Op)
	}
	fmt.Fprintf(&sb, ": %d", e.StatusCode)
	return sb.String()
}

// IsSecurityViolation reports whether err indicates likely tampering.
func IsSecurityViolation(err error) bool {
	return errors.Is(err, ErrSandboxViolation) || errors.Is(err, ErrStateMismatch)
}

// HTTPStatus maps an error from the auth flow to the status returned to the browser.
func HTTPStatus(err error) int {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrSessionMissing):
		return http.StatusInternalServerError
	case errors.Is(err, ErrCSRFInvalid):
		return http.StatusForbidden
	case errors.Is(err, ErrMissingCode),
		errors.Is(err, ErrNoFlowInProgress),
		errors.Is(err, ErrAuthorizationDenied),
		errors.Is(err, ErrSandboxViolation),
		errors.Is(err, ErrStateMismatch):
		return http.StatusBadRequest
	case errors.As(err, &upstream), errors.Is(err, ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
