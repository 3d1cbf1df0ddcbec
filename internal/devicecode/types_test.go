package devicecode

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymap/pkg/auth"
)

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := &Session{ExpiresAt: now.Add(15 * time.Minute)}

	assert.False(t, session.Expired(now))
	assert.False(t, session.Expired(now.Add(15*time.Minute-time.Second)))
	assert.True(t, session.Expired(now.Add(15*time.Minute)))
	assert.True(t, session.Expired(now.Add(time.Hour)))
}

func TestSession_Prompt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := &Session{
		UserCode:        "ABCD1234",
		VerificationURI: "https://microsoft.com/devicelogin",
		Interval:        5 * time.Second,
		ExpiresAt:       now.Add(10 * time.Minute),
	}

	prompt := session.Prompt(now)
	assert.Equal(t, "ABCD1234", prompt.UserCode)
	assert.Equal(t, 600, prompt.ExpiresIn)
	assert.Equal(t, 5, prompt.Interval)

	// Past expiry the remaining lifetime clamps to zero.
	assert.Equal(t, 0, session.Prompt(now.Add(time.Hour)).ExpiresIn)
}

func TestSession_DeviceCodeNeverSerializes(t *testing.T) {
	session := &Session{
		Slot:       auth.SlotSource,
		DeviceCode: auth.NewRedactedToken("secret-device-code"),
		UserCode:   "ABCD1234",
	}

	data, err := json.Marshal(session)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "secret-device-code"))
}

func TestPollOutcome_String(t *testing.T) {
	cases := map[PollOutcome]string{
		PollPending:      "pending",
		PollSlowDown:     "slow_down",
		PollCompleted:    "completed",
		PollExpired:      "expired",
		PollDenied:       "denied",
		PollOutcome(42): "unknown",
	}
	for outcome, want := range cases {
		assert.Equal(t, want, outcome.String())
	}
}
