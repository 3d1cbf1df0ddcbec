// Package bridge hands tokens to child tools through environment variables.
//
// This is the only sanctioned way a token leaves the process: fetched
// through the orchestrator (so tenant and expiry checks always run),
// injected into the child's environment immediately before it starts, and
// never placed on a command line, where it would be visible to every
// process on the machine.
package bridge
