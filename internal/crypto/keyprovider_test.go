package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringKeyProvider_GeneratesOnFirstUse(t *testing.T) {
	keyring.MockInit()

	p := NewKeyringKeyProvider()
	key, err := p.Key()
	require.NoError(t, err)
	assert.Len(t, key, KeySize)

	// Second call returns the same key, not a fresh one.
	again, err := p.Key()
	require.NoError(t, err)
	assert.Equal(t, key, again)
}

func TestKeyringKeyProvider_MalformedEntry(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set(keyringService, keyringEntry, "not base64!!"))

	_, err := NewKeyringKeyProvider().Key()
	require.ErrorIs(t, err, ErrKeyUnavailable)
}

func TestStaticKeyProvider(t *testing.T) {
	key := testKey(0x07)
	got, err := NewStaticKeyProvider(key).Key()
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = NewStaticKeyProvider([]byte("tiny")).Key()
	require.ErrorIs(t, err, ErrKeyUnavailable)
}
