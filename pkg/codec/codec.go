// Package codec implements the text encodings used on the wallet wire:
// base58 with the "ed25519:" prefix for keys and signatures, and the base64
// form handed back to callers.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// Ed25519Prefix is the curve tag carried by every key and signature on the wire.
const Ed25519Prefix = "ed25519:"

// EncodeBase58 encodes raw bytes as base58.
func EncodeBase58(b []byte) string {
	return base58.Encode(b)
}

// DecodeBase58 decodes a base58 string. An empty input decodes to empty bytes.
func DecodeBase58(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}

	decoded := base58.Decode(s)
	if len(decoded) == 0 {
		return nil, fmt.Errorf("invalid base58 string %q", s)
	}

	return decoded, nil
}

// FormatEd25519 renders raw key or signature bytes in the wire text form
// "ed25519:<base58>".
func FormatEd25519(raw []byte) string {
	return Ed25519Prefix + EncodeBase58(raw)
}

// ParseEd25519 decodes the wire text form "ed25519:<base58>" back to raw bytes.
func ParseEd25519(s string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(s, Ed25519Prefix)
	if !ok {
		return nil, fmt.Errorf("missing %q prefix in %q", Ed25519Prefix, s)
	}

	raw, err := DecodeBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid ed25519 encoding: %w", err)
	}

	return raw, nil
}

// SignatureToBase64 converts a wallet-returned "ed25519:<base58>" signature to
// the base64 form returned to callers.
func SignatureToBase64(s string) (string, error) {
	raw, err := ParseEd25519(s)
	if err != nil {
		return "", fmt.Errorf("invalid signature: %w", err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}
