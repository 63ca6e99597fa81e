// Package nep413 canonicalizes NEP-413 off-chain message payloads into the
// wire JSON the wallet signs over.
package nep413

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NonceSize is the exact NEP-413 nonce length in bytes.
const NonceSize = 32

// ErrInvalidNonce reports a nonce whose length is not exactly 32 bytes.
var ErrInvalidNonce = errors.New("nonce must be exactly 32 bytes")

// Message is a NEP-413 payload to be signed by the wallet.
type Message struct {
	Message     string
	Nonce       []byte
	Recipient   string
	CallbackURL string
	State       string
}

// wireMessage is the canonical NEP-413 JSON shape. callback_url is snake_case
// and nonce is a plain array of byte values, both fixed by the standard.
type wireMessage struct {
	Message     string  `json:"message"`
	Nonce       []int   `json:"nonce"`
	Recipient   string  `json:"recipient"`
	CallbackURL *string `json:"callback_url"`
	State       *string `json:"state,omitempty"`
}

// Validate checks the nonce length. It must pass before any key generation or
// transport side effect.
func (m *Message) Validate() error {
	if len(m.Nonce) != NonceSize {
		return fmt.Errorf("%w, got %d", ErrInvalidNonce, len(m.Nonce))
	}
	return nil
}

// MarshalJSON emits the canonical wire shape.
func (m Message) MarshalJSON() ([]byte, error) {
	nonce := make([]int, len(m.Nonce))
	for i, b := range m.Nonce {
		nonce[i] = int(b)
	}

	wire := wireMessage{
		Message:   m.Message,
		Nonce:     nonce,
		Recipient: m.Recipient,
	}
	if m.CallbackURL != "" {
		wire.CallbackURL = &m.CallbackURL
	}
	if m.State != "" {
		wire.State = &m.State
	}

	return json.Marshal(wire)
}

// Canonical returns the canonical JSON string of the message, the exact text
// embedded in handshake and sign-message payloads.
func (m Message) Canonical() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize message: %w", err)
	}
	return string(data), nil
}
