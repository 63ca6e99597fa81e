package nep413_test

import (
	"bytes"
	"testing"

	"github.com/intear/wallet-connector-go/pkg/nep413"
	"github.com/stretchr/testify/require"
)

func TestValidateNonceLength(t *testing.T) {
	// given:
	message := nep413.Message{Message: "hi", Recipient: "r.test"}

	for _, size := range []int{0, 31, 33} {
		message.Nonce = bytes.Repeat([]byte{1}, size)

		// when:
		err := message.Validate()

		// then:
		require.ErrorIs(t, err, nep413.ErrInvalidNonce)
	}

	// and: exactly 32 bytes passes
	message.Nonce = bytes.Repeat([]byte{1}, nep413.NonceSize)
	require.NoError(t, message.Validate())
}

func TestCanonicalWireShape(t *testing.T) {
	// given:
	nonce := bytes.Repeat([]byte{7}, nep413.NonceSize)
	message := nep413.Message{
		Message:     "hello",
		Nonce:       nonce,
		Recipient:   "app.near",
		CallbackURL: "https://app.test/cb",
	}

	// when:
	canonical, err := message.Canonical()

	// then:
	require.NoError(t, err)
	require.Contains(t, canonical, `"callback_url":"https://app.test/cb"`)
	require.Contains(t, canonical, `"recipient":"app.near"`)
	require.Contains(t, canonical, `"nonce":[7,7,`)
	require.NotContains(t, canonical, `"state"`)
}

func TestCanonicalWithoutCallbackEmitsNull(t *testing.T) {
	// given:
	message := nep413.Message{
		Message:   "hello",
		Nonce:     bytes.Repeat([]byte{0}, nep413.NonceSize),
		Recipient: "app.near",
		State:     "s1",
	}

	// when:
	canonical, err := message.Canonical()

	// then:
	require.NoError(t, err)
	require.Contains(t, canonical, `"callback_url":null`)
	require.Contains(t, canonical, `"state":"s1"`)
}
