// Package storage defines the key-value persistence capability the connector
// keeps session material in, plus two small implementations: an in-memory
// store and a JSON-file store.
package storage

// Keys under which session material is persisted. The account id is always
// written last and read first: its absence means "no session" regardless of
// what else is present.
const (
	KeyAccountID  = "_intear_wallet_connected_account"
	KeyPrivateKey = "_intear_wallet_private_key"
	KeyWalletURL  = "_intear_wallet_wallet_url"
	KeyBridgeURL  = "_intear_wallet_bridge_url"
)

// SessionKeys lists every key a session occupies, in removal order: the
// account id goes first so a concurrent reader sees "logged out" before any
// other part of the record disappears, mirroring how establishment writes it
// last.
var SessionKeys = []string{KeyAccountID, KeyPrivateKey, KeyWalletURL, KeyBridgeURL}

// Store is a pluggable persistence backend. Values are opaque strings.
// Get reports ok=false for an absent key; Remove of an absent key is not an
// error.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}
