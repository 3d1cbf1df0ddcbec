// Package logging provides the application-wide structured logger.
//
// All skymap components log through this package rather than using log/slog
// directly, so that every entry carries a subsystem label and so that the
// handler configuration (level, output) is decided once at startup.
//
// The package also hosts the scrubbing helpers used anywhere request data is
// logged. Token material must never reach a log line; see ScrubQuery and
// the access-log middleware in internal/server.
package logging
