package devicecode

import (
	"encoding/base64"
	"testing"
)

func TestDecodeJWTClaims(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"tid":"tenant-1","preferred_username":"a@b.c"}`))
	token := header + "." + payload + ".sig"

	claims := decodeJWTClaims(token)
	if claims["tid"] != "tenant-1" {
		t.Errorf("expected tid claim, got %v", claims["tid"])
	}
	if claims["preferred_username"] != "a@b.c" {
		t.Errorf("expected preferred_username claim, got %v", claims["preferred_username"])
	}
}

func TestDecodeJWTClaims_NotAJWT(t *testing.T) {
	for _, token := range []string{"", "opaque-token", "a.!!!notbase64.c", "a." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".c"} {
		claims := decodeJWTClaims(token)
		if len(claims) != 0 {
			t.Errorf("expected empty claims for %q, got %v", token, claims)
		}
	}
}

func TestPrincipalFromClaims_Precedence(t *testing.T) {
	claims := map[string]interface{}{
		"sub":                "subject-id",
		"email":              "mail@example.com",
		"preferred_username": "user@example.com",
	}
	if got := principalFromClaims(claims); got != "user@example.com" {
		t.Errorf("expected preferred_username to win, got %q", got)
	}

	delete(claims, "preferred_username")
	if got := principalFromClaims(claims); got != "mail@example.com" {
		t.Errorf("expected email fallback, got %q", got)
	}

	if got := principalFromClaims(map[string]interface{}{}); got != "" {
		t.Errorf("expected empty principal, got %q", got)
	}
}
