// Package server exposes the authentication core to the local UI shell over
// a loopback-only HTTP API.
//
// Every state-changing request and the token read must carry the per-process
// CSRF token, fetched once from /api/auth/csrf. Access logs go through the
// scrubbing helpers so a mis-built URL can never leak token material.
package server
