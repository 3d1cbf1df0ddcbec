package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = b
	}
	return key
}

func newTestEnvelope(t *testing.T, b byte) *Envelope {
	t.Helper()
	env, err := NewEnvelope(NewStaticKeyProvider(testKey(b)))
	require.NoError(t, err)
	return env
}

func TestEnvelope_RoundTrip(t *testing.T) {
	env := newTestEnvelope(t, 0x42)

	payloads := [][]byte{
		[]byte("hello"),
		[]byte(""),
		[]byte(`{"accessToken":"abc","refreshToken":"def"}`),
		bytes.Repeat([]byte{0xff}, 4096),
	}
	for _, plaintext := range payloads {
		sealed, err := env.Encrypt(plaintext)
		require.NoError(t, err)

		opened, err := env.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	}
}

func TestEnvelope_NonceFreshPerCall(t *testing.T) {
	env := newTestEnvelope(t, 0x42)

	a, err := env.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	b, err := env.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "two seals of the same plaintext must differ")
}

func TestEnvelope_TamperingDetected(t *testing.T) {
	env := newTestEnvelope(t, 0x42)

	sealed, err := env.Encrypt([]byte("sensitive record"))
	require.NoError(t, err)

	// Flipping any single bit must fail with ErrIntegrity, never return
	// different-but-valid-looking plaintext.
	for i := 0; i < len(sealed); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := make([]byte, len(sealed))
			copy(tampered, sealed)
			tampered[i] ^= 1 << bit

			_, err := env.Decrypt(tampered)
			require.Error(t, err, "byte %d bit %d", i, bit)
			require.ErrorIs(t, err, ErrIntegrity, "byte %d bit %d", i, bit)
		}
	}
}

func TestEnvelope_WrongKeyFailsDeterministically(t *testing.T) {
	sealed, err := newTestEnvelope(t, 0x01).Encrypt([]byte("record"))
	require.NoError(t, err)

	_, err = newTestEnvelope(t, 0x02).Decrypt(sealed)
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestEnvelope_TruncatedCiphertext(t *testing.T) {
	env := newTestEnvelope(t, 0x42)

	_, err := env.Decrypt(nil)
	require.ErrorIs(t, err, ErrIntegrity)

	_, err = env.Decrypt([]byte{0x01, 0x02, 0x03})
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestEnvelope_IntegrityDistinctFromKeyUnavailable(t *testing.T) {
	env := newTestEnvelope(t, 0x42)

	_, err := env.Decrypt([]byte("garbage that is long enough to look sealed"))
	require.ErrorIs(t, err, ErrIntegrity)
	assert.False(t, errors.Is(err, ErrKeyUnavailable))
}

func TestNewEnvelope_BadKeyLength(t *testing.T) {
	_, err := NewEnvelope(NewStaticKeyProvider([]byte("short")))
	require.ErrorIs(t, err, ErrKeyUnavailable)
}
