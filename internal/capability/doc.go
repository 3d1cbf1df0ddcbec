// Package capability derives the feature gates from the two slot states.
//
// The gate is a pure function: no caching, no side effects. Consumers
// recompute it on every state-change notification from the orchestrator so
// the UI can never show a feature as enabled after a token has silently
// expired.
package capability
