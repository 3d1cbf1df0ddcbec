// Package orchestrator owns the two per-slot authentication state machines
// and is the only sanctioned path to a bearer token.
//
// It drives the device-code client, persists results through the token
// store, runs the background refresh scheduler, and enforces the subsystem's
// core security invariant: a token is only ever persisted or handed out if
// its embedded tenant identifier matches the tenant configured for the slot.
// The check runs at acquisition time and again on every read, so neither a
// mis-completed sign-in nor a tampered store can leak a wrong-tenant token.
//
// Concurrency model: operations on one slot are serialized through the
// slot's operation mutex; the two slots are fully independent. Refreshes are
// deduplicated per slot through singleflight, because refresh tokens rotate
// and a concurrent double-exchange would strand one caller with a dead
// token. Poll loops are generation-tagged so a superseded session's late
// result is discarded rather than resurrecting stale state.
package orchestrator
