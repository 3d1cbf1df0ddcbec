package auth

import "time"

// FlowStatus reports the outcome of the most recent device-code flow for a
// slot, as surfaced by the device-code-status endpoint.
type FlowStatus string

const (
	FlowStatusNone      FlowStatus = ""
	FlowStatusPending   FlowStatus = "pending"
	FlowStatusCompleted FlowStatus = "completed"
	FlowStatusExpired   FlowStatus = "expired"
	FlowStatusDenied    FlowStatus = "denied"
	FlowStatusError     FlowStatus = "error"
)

// SlotStatus describes the observable authentication state of one slot.
// It never carries token material.
type SlotStatus struct {
	// Slot is the slot this status describes.
	Slot Slot `json:"slot"`

	// State is the current state machine state ("authenticated", ...).
	State string `json:"state"`

	// FlowStatus is set while/after a device-code flow ran for this slot.
	FlowStatus FlowStatus `json:"flowStatus,omitempty"`

	// User is the authenticated principal, for display only.
	User string `json:"user,omitempty"`

	// TenantID is the tenant the slot's token belongs to.
	TenantID string `json:"tenantId,omitempty"`

	// ExpiresAt is when the current access token expires.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`

	// Error names the failure category when State is "error" or "expired".
	// It never echoes secret values.
	Error string `json:"error,omitempty"`
}

// CapabilityFlags are the feature gates derived from the two slot states.
type CapabilityFlags struct {
	// ScanningEnabled is true when the source slot is authenticated.
	ScanningEnabled bool `json:"scanningEnabled"`

	// DeploymentEnabled is true when both slots are authenticated.
	DeploymentEnabled bool `json:"deploymentEnabled"`
}

// StatusResponse is the full status document: both slots plus the derived
// capability flags. This is the canonical payload of GET /api/auth/status.
type StatusResponse struct {
	Slots        []SlotStatus    `json:"slots"`
	Capabilities CapabilityFlags `json:"capabilities"`
}

// DeviceCodePrompt is what the UI needs to display for a started
// device-code flow. The device code itself is deliberately absent.
type DeviceCodePrompt struct {
	// UserCode is the short code the user types at the verification URI.
	UserCode string `json:"userCode"`

	// VerificationURI is where the user completes sign-in.
	VerificationURI string `json:"verificationUri"`

	// ExpiresIn is the session lifetime in seconds.
	ExpiresIn int `json:"expiresIn"`

	// Interval is the server-mandated minimum seconds between polls.
	Interval int `json:"interval"`
}
