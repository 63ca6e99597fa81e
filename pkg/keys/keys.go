// Package keys holds the ephemeral session signing capability. A keypair is
// generated per connection attempt, authorized once by the wallet, and then
// used to sign every request payload for the lifetime of the session.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/intear/wallet-connector-go/pkg/codec"
)

// Keypair is an Ed25519 signing keypair.
type Keypair struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// Generate creates a fresh random keypair.
func Generate() (*Keypair, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 keypair: %w", err)
	}

	return &Keypair{public: public, private: private}, nil
}

// Import restores a keypair from its exported "ed25519:<base58>" form.
func Import(exported string) (*Keypair, error) {
	raw, err := codec.ParseEd25519(exported)
	if err != nil {
		return nil, fmt.Errorf("invalid private key encoding: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length %d", len(raw))
	}

	private := ed25519.PrivateKey(raw)
	return &Keypair{
		public:  private.Public().(ed25519.PublicKey),
		private: private,
	}, nil
}

// Export serializes the private key as "ed25519:<base58>" for persistence.
func (k *Keypair) Export() string {
	return codec.FormatEd25519(k.private)
}

// PublicKeyString returns the public key in the wire form "ed25519:<base58>".
func (k *Keypair) PublicKeyString() string {
	return codec.FormatEd25519(k.public)
}

// Sign signs the SHA-256 digest of data and returns the signature in the wire
// form "ed25519:<base58>".
func (k *Keypair) Sign(data []byte) string {
	digest := sha256.Sum256(data)
	return codec.FormatEd25519(ed25519.Sign(k.private, digest[:]))
}

// Verify checks a wire-form signature against the keypair's public key over
// the SHA-256 digest of data.
func (k *Keypair) Verify(data []byte, signature string) bool {
	return VerifyWith(k.PublicKeyString(), data, signature)
}

// VerifyWith checks a wire-form signature against a wire-form public key over
// the SHA-256 digest of data.
func VerifyWith(publicKey string, data []byte, signature string) bool {
	rawKey, err := codec.ParseEd25519(publicKey)
	if err != nil || len(rawKey) != ed25519.PublicKeySize {
		return false
	}

	rawSig, err := codec.ParseEd25519(signature)
	if err != nil || len(rawSig) != ed25519.SignatureSize {
		return false
	}

	digest := sha256.Sum256(data)
	return ed25519.Verify(ed25519.PublicKey(rawKey), digest[:], rawSig)
}

// SignatureBase builds the exact byte sequence signed for every wallet
// request: the decimal nonce, a pipe, and the serialized message.
func SignatureBase(nonce int64, message string) []byte {
	return []byte(strconv.FormatInt(nonce, 10) + "|" + message)
}
