package devicecode

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// decodeJWTClaims decodes the payload of a JWT without validating the
// signature. Validation is the authority's job over TLS; we only need the
// embedded tenant and principal identifiers. Returns an empty map when the
// token is not a JWT or cannot be decoded.
func decodeJWTClaims(token string) map[string]interface{} {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return map[string]interface{}{}
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return map[string]interface{}{}
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return map[string]interface{}{}
	}
	return claims
}

// claimString returns the named claim as a string, or "".
func claimString(claims map[string]interface{}, name string) string {
	if v, ok := claims[name].(string); ok {
		return v
	}
	return ""
}

// principalFromClaims picks the best display identifier from ID-token
// claims.
func principalFromClaims(claims map[string]interface{}) string {
	for _, name := range []string{"preferred_username", "upn", "email", "sub"} {
		if v := claimString(claims, name); v != "" {
			return v
		}
	}
	return ""
}
