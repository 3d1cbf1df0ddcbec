package tokenstore

import (
	"time"

	"golang.org/x/oauth2"
)

// CurrentSchemaVersion tags newly written records so future format changes
// can migrate or reject old artifacts explicitly.
const CurrentSchemaVersion = 1

// TokenRecord is the durable unit: one authenticated tenant's credentials.
//
// Records are exclusively owned by the store once persisted; the
// orchestrator holds at most a transient copy after a load. Every
// successful refresh overwrites the whole record (refresh tokens rotate,
// the old one becomes invalid server-side).
type TokenRecord struct {
	// AccessToken is the opaque bearer token.
	AccessToken string `json:"accessToken"`

	// RefreshToken is the opaque rotating refresh token.
	RefreshToken string `json:"refreshToken"`

	// ExpiresAt is the absolute access-token expiry.
	ExpiresAt time.Time `json:"expiresAt"`

	// TenantID is the tenant the tokens belong to. Checked against the
	// slot's configured tenant on every read, not only on write.
	TenantID string `json:"tenantId"`

	// User is the authenticated principal identifier, display only.
	User string `json:"user"`

	// SchemaVersion is the record format version.
	SchemaVersion int `json:"schemaVersion"`
}

// ExpiresWithin reports whether the access token expires within d from now.
func (r *TokenRecord) ExpiresWithin(d time.Duration, now time.Time) bool {
	return !now.Add(d).Before(r.ExpiresAt)
}

// Expired reports whether the access token is already expired.
func (r *TokenRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// ToOAuth2Token converts the record for use with golang.org/x/oauth2
// consumers.
func (r *TokenRecord) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       r.ExpiresAt,
	}
}
