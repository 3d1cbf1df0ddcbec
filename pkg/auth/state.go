package auth

// State represents the authentication state of a single tenant slot.
// It is a view derived from the presence and validity of a persisted token
// record plus any in-flight device-code session; it is never persisted
// itself.
type State int

const (
	// StateNotAuthenticated means the slot has no usable token and no
	// sign-in is in progress.
	StateNotAuthenticated State = iota

	// StateAuthenticating means a device-code session is being polled.
	StateAuthenticating

	// StateAuthenticated means the slot holds a valid token.
	StateAuthenticated

	// StateExpired means the slot's token family is no longer usable
	// (access token expired and the refresh token was rejected).
	// A fresh sign-in is required.
	StateExpired

	// StateError means the last sign-in or refresh failed in a way that
	// requires user attention (for example a tenant mismatch).
	StateError
)

// String returns the wire/display name of the state.
func (s State) String() string {
	switch s {
	case StateNotAuthenticated:
		return "not_authenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
