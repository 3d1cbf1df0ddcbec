package devicecode

import (
	"time"

	"skymap/internal/tokenstore"
	"skymap/pkg/auth"
)

// Session is an in-flight device-code flow. It lives in memory only and is
// destroyed when the flow resolves or is superseded by a new Start for the
// same slot.
type Session struct {
	// Slot is the tenant slot that owns this session.
	Slot auth.Slot

	// DeviceCode is the opaque code polled against the token endpoint.
	// Never logged, never serialized.
	DeviceCode auth.RedactedToken

	// UserCode is the short code the user enters at the verification URI.
	UserCode string

	// VerificationURI is where the user completes sign-in.
	VerificationURI string

	// Interval is the server-mandated minimum wait between polls. The
	// client must not poll faster.
	Interval time.Duration

	// ExpiresAt is the absolute session expiry. Polling past it returns
	// PollExpired without contacting the authority.
	ExpiresAt time.Time
}

// Expired reports whether the session has passed its authority-stated
// lifetime.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Prompt returns the user-facing portion of the session.
func (s *Session) Prompt(now time.Time) auth.DeviceCodePrompt {
	remaining := int(s.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return auth.DeviceCodePrompt{
		UserCode:        s.UserCode,
		VerificationURI: s.VerificationURI,
		ExpiresIn:       remaining,
		Interval:        int(s.Interval.Seconds()),
	}
}

// PollOutcome is the tagged result of a single poll.
type PollOutcome int

const (
	// PollPending means the user has not completed sign-in yet.
	PollPending PollOutcome = iota

	// PollSlowDown means the authority rate-limited the poll; the caller
	// increases its interval and retries. Not fatal.
	PollSlowDown

	// PollCompleted means tokens were issued; PollResult.Record is set.
	PollCompleted

	// PollExpired means the device code's lifetime ran out.
	PollExpired

	// PollDenied means the user declined consent.
	PollDenied
)

// String returns the outcome name.
func (o PollOutcome) String() string {
	switch o {
	case PollPending:
		return "pending"
	case PollSlowDown:
		return "slow_down"
	case PollCompleted:
		return "completed"
	case PollExpired:
		return "expired"
	case PollDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// PollResult is the outcome of one poll. Record is non-nil only for
// PollCompleted.
type PollResult struct {
	Outcome PollOutcome
	Record  *tokenstore.TokenRecord
}

// deviceAuthResponse is the wire format of the device-authorization
// endpoint.
type deviceAuthResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// tokenResponse is the wire format of the token endpoint on success.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// tokenErrorResponse is the wire format of the token endpoint on failure.
type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
