package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"skymap/pkg/logging"
)

// KeySize is the envelope key length: 32 bytes for AES-256.
const KeySize = 32

const (
	keyringService = "skymap"
	// keyringEntry names the keychain item holding the envelope key.
	// It is a key name, not a credential value.
	keyringEntry = "envelope-key" // #nosec G101
)

// KeyProvider supplies the symmetric key for the envelope. The returned key
// must be exactly KeySize bytes.
type KeyProvider interface {
	Key() ([]byte, error)
}

// KeyringKeyProvider sources the envelope key from the OS-backed secret
// store (Keychain, Credential Manager, Secret Service). On first use it
// generates a fresh random key and stores it there; the key never touches
// the filesystem in plaintext.
type KeyringKeyProvider struct {
	service string
	entry   string
}

// NewKeyringKeyProvider creates the production key provider.
func NewKeyringKeyProvider() *KeyringKeyProvider {
	return &KeyringKeyProvider{service: keyringService, entry: keyringEntry}
}

// Key returns the stored envelope key, generating and persisting one if the
// keychain has no entry yet. Any keyring failure is reported as
// ErrKeyUnavailable so callers can distinguish it from tampered ciphertext.
func (p *KeyringKeyProvider) Key() ([]byte, error) {
	encoded, err := keyring.Get(p.service, p.entry)
	if err == nil {
		key, decErr := base64.StdEncoding.DecodeString(encoded)
		if decErr != nil || len(key) != KeySize {
			return nil, fmt.Errorf("%w: stored key entry is malformed", ErrKeyUnavailable)
		}
		return key, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}

	// First run: mint a key and persist it to the keychain.
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: failed to generate key: %v", ErrKeyUnavailable, err)
	}
	if err := keyring.Set(p.service, p.entry, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("%w: failed to store generated key: %v", ErrKeyUnavailable, err)
	}

	logging.Info("Crypto", "Generated new envelope key in OS keychain (service=%s)", p.service)
	return key, nil
}

// StaticKeyProvider returns a fixed key. Test use only.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a provider around the given key.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// Key returns the fixed key.
func (p *StaticKeyProvider) Key() ([]byte, error) {
	if len(p.key) != KeySize {
		return nil, fmt.Errorf("%w: static key must be %d bytes, got %d", ErrKeyUnavailable, KeySize, len(p.key))
	}
	return p.key, nil
}
