// Package devicecode implements the OAuth2 device-authorization grant and
// refresh-token exchange against Azure AD.
//
// The client is a thin protocol layer: it starts a flow, performs a single
// poll, and exchanges refresh tokens. It does not loop, sleep, or know which
// tenant a slot expects; pacing and tenant validation belong to the
// orchestrator. All outcomes are expressed as typed values (PollResult) or
// typed errors (NetworkError, AuthorityError, RefreshError) so callers can
// branch without string matching.
//
// Device codes are opaque and never logged; the session wraps them in
// auth.RedactedToken.
package devicecode
