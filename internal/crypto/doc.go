// Package crypto provides the symmetric envelope protecting persisted token
// records at rest (AES-256-GCM) and the key providers that source the
// envelope key.
//
// The envelope knows nothing about tokens or tenants; it seals and opens
// arbitrary byte payloads. The production key lives in the OS keychain via
// the keyring provider and is never written to disk in plaintext or logged.
// Tests inject a fixed key through StaticKeyProvider.
package crypto
