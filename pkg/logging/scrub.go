package logging

import (
	"net/url"
	"strings"
)

// sensitiveParams are query/body field names whose values must never be logged.
var sensitiveParams = map[string]bool{
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"device_code":   true,
	"code":          true,
	"id_token":      true,
}

// ScrubQuery returns the request path with any sensitive query parameter
// values replaced by "[REDACTED]". The path itself is preserved so access
// logs stay useful.
func ScrubQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		// Unparseable URLs are dropped entirely rather than risk echoing
		// a token fragment.
		return "[unparseable]"
	}

	q := u.Query()
	changed := false
	for name := range q {
		if sensitiveParams[strings.ToLower(name)] {
			q.Set(name, "[REDACTED]")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.RequestURI()
}

// ScrubHeader returns a loggable form of a header value. Authorization-style
// values are fully redacted; everything else passes through.
func ScrubHeader(name, value string) string {
	switch strings.ToLower(name) {
	case "authorization", "x-skymap-csrf", "cookie", "set-cookie":
		if value == "" {
			return ""
		}
		return "[REDACTED]"
	default:
		return value
	}
}
