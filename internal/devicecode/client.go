package devicecode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"skymap/internal/config"
	"skymap/internal/tokenstore"
	"skymap/pkg/auth"
	"skymap/pkg/logging"
)

const (
	// DefaultAuthorityBase is the Azure AD authority host.
	DefaultAuthorityBase = "https://login.microsoftonline.com"

	// defaultHTTPTimeout bounds every authority call so a network stall
	// surfaces as a NetworkError rather than an indefinite hang.
	defaultHTTPTimeout = 30 * time.Second

	deviceCodeGrant = "urn:ietf:params:oauth:grant-type:device_code"
)

// loginScopes are always requested in addition to the configured scopes, so
// that a refresh token (offline_access) and principal claims (openid,
// profile) are issued.
var loginScopes = []string{"openid", "profile", "offline_access"}

// ClientConfig configures the device-code client.
type ClientConfig struct {
	// AuthorityBase overrides the authority host. Tests point this at a
	// local fake; production leaves it empty for Azure AD.
	AuthorityBase string

	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client

	// Now overrides the clock.
	Now func() time.Time
}

// Client talks to the Azure AD device-authorization and token endpoints.
type Client struct {
	authorityBase string
	httpClient    *http.Client
	now           func() time.Time
}

// NewClient creates a device-code client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		authorityBase: cfg.AuthorityBase,
		httpClient:    cfg.HTTPClient,
		now:           cfg.Now,
	}
	if c.authorityBase == "" {
		c.authorityBase = DefaultAuthorityBase
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func (c *Client) deviceCodeEndpoint(tenantID string) string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/devicecode", c.authorityBase, tenantID)
}

func (c *Client) tokenEndpoint(tenantID string) string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.authorityBase, tenantID)
}

// Start requests a new device/user code pair for the slot's tenant.
func (c *Client) Start(ctx context.Context, slot auth.Slot, tenant config.TenantConfig) (*Session, error) {
	if !tenant.Configured() {
		return nil, fmt.Errorf("%w: slot %s", ErrInvalidTenantConfig, slot)
	}

	form := url.Values{}
	form.Set("client_id", tenant.ClientID)
	form.Set("scope", strings.Join(withLoginScopes(tenant.Scopes), " "))

	body, status, err := c.postForm(ctx, c.deviceCodeEndpoint(tenant.TenantID), form, "device authorization")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, authorityErrorFrom(status, body)
	}

	var resp deviceAuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode device authorization response: %w", err)
	}
	if resp.DeviceCode == "" || resp.UserCode == "" {
		return nil, &AuthorityError{StatusCode: status, Code: "invalid_response", Description: "device authorization response missing codes"}
	}

	interval := resp.Interval
	if interval <= 0 {
		interval = 5
	}

	session := &Session{
		Slot:            slot,
		DeviceCode:      auth.NewRedactedToken(resp.DeviceCode),
		UserCode:        resp.UserCode,
		VerificationURI: resp.VerificationURI,
		Interval:        time.Duration(interval) * time.Second,
		ExpiresAt:       c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}

	logging.Info("DeviceCode", "Started device-code flow slot=%s tenant=%s user_code=%s interval=%s",
		slot, tenant.TenantID, resp.UserCode, session.Interval)
	return session, nil
}

// Poll performs a single poll of the token endpoint for the session.
// Once the session has expired, Poll returns PollExpired without contacting
// the authority.
func (c *Client) Poll(ctx context.Context, session *Session, tenant config.TenantConfig) (PollResult, error) {
	if session.Expired(c.now()) {
		return PollResult{Outcome: PollExpired}, nil
	}

	form := url.Values{}
	form.Set("grant_type", deviceCodeGrant)
	form.Set("client_id", tenant.ClientID)
	form.Set("device_code", session.DeviceCode.Value())

	body, status, err := c.postForm(ctx, c.tokenEndpoint(tenant.TenantID), form, "device-code poll")
	if err != nil {
		return PollResult{}, err
	}

	if status == http.StatusOK {
		record, err := recordFromTokenResponse(body, c.now())
		if err != nil {
			return PollResult{}, err
		}
		logging.Info("DeviceCode", "Device-code flow completed slot=%s tenant=%s", session.Slot, record.TenantID)
		return PollResult{Outcome: PollCompleted, Record: record}, nil
	}

	var errResp tokenErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return PollResult{}, &AuthorityError{StatusCode: status}
	}

	switch errResp.Error {
	case "authorization_pending":
		return PollResult{Outcome: PollPending}, nil
	case "slow_down":
		return PollResult{Outcome: PollSlowDown}, nil
	case "expired_token":
		return PollResult{Outcome: PollExpired}, nil
	case "authorization_declined", "access_denied":
		return PollResult{Outcome: PollDenied}, nil
	default:
		return PollResult{}, &AuthorityError{StatusCode: status, Code: errResp.Error, Description: errResp.ErrorDescription}
	}
}

// Refresh exchanges a refresh token for a fresh token record. An
// invalid/revoked refresh token returns a RefreshError, which is terminal
// for that token family.
func (c *Client) Refresh(ctx context.Context, tenant config.TenantConfig, refreshToken string) (*tokenstore.TokenRecord, error) {
	if !tenant.Configured() {
		return nil, ErrInvalidTenantConfig
	}
	if refreshToken == "" {
		return nil, &RefreshError{Code: "missing_refresh_token", Description: "no refresh token available"}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", tenant.ClientID)
	form.Set("refresh_token", refreshToken)
	form.Set("scope", strings.Join(withLoginScopes(tenant.Scopes), " "))

	body, status, err := c.postForm(ctx, c.tokenEndpoint(tenant.TenantID), form, "token refresh")
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		var errResp tokenErrorResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error != "" {
			switch errResp.Error {
			case "invalid_grant", "interaction_required":
				return nil, &RefreshError{Code: errResp.Error, Description: errResp.ErrorDescription}
			default:
				return nil, &AuthorityError{StatusCode: status, Code: errResp.Error, Description: errResp.ErrorDescription}
			}
		}
		return nil, &AuthorityError{StatusCode: status}
	}

	record, err := recordFromTokenResponse(body, c.now())
	if err != nil {
		return nil, err
	}
	// Azure AD rotates refresh tokens; if it ever elides the new one,
	// keep using the old token rather than stranding the slot.
	if record.RefreshToken == "" {
		record.RefreshToken = refreshToken
	}

	logging.Debug("DeviceCode", "Refreshed token tenant=%s expires=%s", record.TenantID, record.ExpiresAt.Format(time.RFC3339))
	return record, nil
}

// postForm executes a form POST and returns the body and status. Transport
// failures come back as NetworkError.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, op string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &NetworkError{Op: op, Err: err}
	}
	return body, resp.StatusCode, nil
}

// recordFromTokenResponse builds a TokenRecord from a successful token
// endpoint response, extracting tenant and principal from the JWT claims.
func recordFromTokenResponse(body []byte, now time.Time) (*tokenstore.TokenRecord, error) {
	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, &AuthorityError{StatusCode: http.StatusOK, Code: "invalid_response", Description: "token response missing access_token"}
	}

	accessClaims := decodeJWTClaims(resp.AccessToken)
	idClaims := decodeJWTClaims(resp.IDToken)

	tenantID := claimString(accessClaims, "tid")
	if tenantID == "" {
		tenantID = claimString(idClaims, "tid")
	}

	user := principalFromClaims(idClaims)
	if user == "" {
		user = principalFromClaims(accessClaims)
	}

	return &tokenstore.TokenRecord{
		AccessToken:   resp.AccessToken,
		RefreshToken:  resp.RefreshToken,
		ExpiresAt:     now.Add(time.Duration(resp.ExpiresIn) * time.Second),
		TenantID:      tenantID,
		User:          user,
		SchemaVersion: tokenstore.CurrentSchemaVersion,
	}, nil
}

func authorityErrorFrom(status int, body []byte) error {
	var errResp tokenErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &AuthorityError{StatusCode: status, Code: errResp.Error, Description: errResp.ErrorDescription}
	}
	return &AuthorityError{StatusCode: status}
}

// withLoginScopes returns the configured scopes with the OIDC/refresh
// scopes prepended, deduplicated, order stable.
func withLoginScopes(configured []string) []string {
	seen := make(map[string]bool, len(configured)+len(loginScopes))
	out := make([]string, 0, len(configured)+len(loginScopes))
	for _, s := range loginScopes {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range configured {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
