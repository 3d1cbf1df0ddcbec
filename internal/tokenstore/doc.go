// Package tokenstore persists one encrypted token record per tenant slot.
//
// Each slot maps to a single file under the storage directory, written
// atomically (temp file + rename) so a crash mid-write can never corrupt the
// previous valid record. Records are sealed by the crypto envelope before
// they touch the disk; the on-disk artifact is a small JSON wrapper around
// the sealed blob, owner-readable only.
//
// Writes take a per-slot advisory file lock in addition to the in-process
// mutex, so a second skymap process cannot interleave writes to the same
// slot. Corrupted or undecryptable records are reported, not auto-deleted:
// the artifact stays on disk as forensic evidence while the slot is treated
// as not authenticated.
package tokenstore
