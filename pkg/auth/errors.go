package auth

import "fmt"

// AuthRequiredError indicates a slot has no currently-valid token and a
// fresh sign-in is needed. It maps to HTTP 401 and CLI exit code 2.
type AuthRequiredError struct {
	Slot   Slot
	Reason string
}

// Error implements the error interface.
func (e *AuthRequiredError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("authentication required for slot %s: %s", e.Slot, e.Reason)
	}
	return fmt.Sprintf("authentication required for slot %s", e.Slot)
}

// AuthFailedError indicates a sign-in flow ran and failed (denied, expired
// device code, authority error). It maps to CLI exit code 3.
type AuthFailedError struct {
	Slot Slot
	Err  error
}

// Error implements the error interface.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("authentication failed for slot %s: %v", e.Slot, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AuthFailedError) Unwrap() error {
	return e.Err
}

// TenantMismatchError is the security-critical failure: a token's embedded
// tenant identifier does not match the tenant configured for the slot it was
// acquired for or read from. Tokens carrying the wrong tenant are discarded,
// never persisted, and never handed to a consumer.
type TenantMismatchError struct {
	Slot     Slot
	Expected string
	Actual   string
}

// Error implements the error interface. Tenant IDs are not secrets; naming
// both sides makes the failure actionable.
func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("tenant mismatch for slot %s: token belongs to tenant %s, slot is configured for tenant %s",
		e.Slot, e.Actual, e.Expected)
}
