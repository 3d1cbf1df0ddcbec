package crypto

import "errors"

var (
	// ErrKeyUnavailable indicates the envelope key could not be obtained
	// from the key provider (locked keychain, missing backend).
	ErrKeyUnavailable = errors.New("envelope key unavailable")

	// ErrIntegrity indicates ciphertext failed authentication: it was
	// tampered with, truncated, or sealed under a different key. GCM
	// guarantees this is detected deterministically rather than silently
	// yielding garbage plaintext.
	ErrIntegrity = errors.New("ciphertext integrity check failed")
)
