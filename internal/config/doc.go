// Package config loads and validates the skymap configuration.
//
// Configuration comes from a YAML file (default ~/.config/skymap/config.yaml)
// with a small set of environment variable overrides for deployment-specific
// values (listen address, storage directory, log level). The file carries the
// two tenant slot configurations and the token-lifecycle tuning knobs.
//
// Tenant identity is fixed for the process lifetime: the slot/tenant binding
// is the core security invariant of the orchestrator, so there is no config
// hot-reload.
package config
