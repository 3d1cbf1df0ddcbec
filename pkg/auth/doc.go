// Package auth defines the shared authentication vocabulary used across
// skymap: the tenant slots, the per-slot state machine states, the status
// types returned by the HTTP API and CLI, the error types consumers branch
// on, and the RedactedToken wrapper that keeps bearer tokens out of logs.
//
// The package contains no behavior beyond these types. The state machine
// itself lives in internal/orchestrator.
package auth
