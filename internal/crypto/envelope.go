package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// Envelope seals and opens byte payloads with AES-256-GCM. A fresh random
// nonce is generated per Encrypt call and stored alongside the ciphertext
// (as a prefix of the sealed blob).
type Envelope struct {
	aead cipher.AEAD
}

// NewEnvelope derives the cipher from the provider's key. The key is held
// only inside the AEAD state for the process lifetime.
func NewEnvelope(provider KeyProvider) (*Envelope, error) {
	key, err := provider.Key()
	if err != nil {
		return nil, err
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrKeyUnavailable, KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}

	return &Envelope{aead: aead}, nil
}

// Encrypt seals plaintext and returns nonce||ciphertext.
func (e *Envelope) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a sealed blob produced by Encrypt. Tampered, truncated, or
// wrong-key ciphertext fails with ErrIntegrity.
func (e *Envelope) Decrypt(sealed []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(sealed) < nonceSize+e.aead.Overhead() {
		return nil, fmt.Errorf("%w: sealed payload too short", ErrIntegrity)
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return plaintext, nil
}
