package devicecode

import (
	"errors"
	"fmt"
)

// ErrInvalidTenantConfig indicates the slot has no usable tenant
// configuration (missing tenant or client ID).
var ErrInvalidTenantConfig = errors.New("tenant is not configured for this slot")

// NetworkError wraps a transport-level failure reaching the authority
// (connection refused, timeout, DNS). Retryable with backoff.
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthorityError is a 4xx/5xx from the identity provider that does not map
// to a device-flow outcome (pending, slow_down, expired, denied).
type AuthorityError struct {
	StatusCode  int
	Code        string
	Description string
}

// Error implements the error interface. Descriptions from Azure AD carry
// AADSTS codes and remediation text, no secret material.
func (e *AuthorityError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("authority rejected request: %s (status %d): %s", e.Code, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("authority rejected request with status %d", e.StatusCode)
}

// RefreshError indicates the refresh-token exchange failed terminally: the
// token was revoked, expired, or the grant is otherwise invalid. The caller
// must not retry with the same refresh token; a fresh sign-in is required.
type RefreshError struct {
	Code        string
	Description string
}

// Error implements the error interface.
func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh token exchange failed: %s: %s", e.Code, e.Description)
}
