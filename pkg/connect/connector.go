// Package connect establishes and drives wallet sessions. A Connector owns at
// most one session; RequestConnection performs the challenge/response
// handshake with the wallet and yields an Account handle that signs NEP-413
// messages and transaction batches with the session's ephemeral key.
package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/intear/wallet-connector-go/pkg/internal/logging"
	"github.com/intear/wallet-connector-go/pkg/keys"
	"github.com/intear/wallet-connector-go/pkg/storage"
	"github.com/intear/wallet-connector-go/pkg/transport"
	"github.com/intear/wallet-connector-go/pkg/transport/browserwindow"
)

// Defaults applied when a connection request leaves them unset.
const (
	DefaultWalletURL = "https://wallet.intear.tech"
	DefaultBridgeURL = "wss://bridge.intear.tech"
	DefaultNetworkID = "mainnet"
)

// NativeWalletURL selects the native-app transport when passed as the wallet
// URL of a connection request.
const NativeWalletURL = transport.NativeWalletURL

// challengeVersion tags the sign-in envelope format.
const challengeVersion = "V2"

// Rejection texts the wallet uses when the user declines.
const (
	rejectedConnection   = "User rejected the connection"
	rejectedSignature    = "User rejected the signature"
	rejectedTransactions = "User rejected the transactions"
)

var (
	// ErrAlreadyConnected reports a connection request while a session is live.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrNotConnected reports a disconnect with no live session.
	ErrNotConnected = errors.New("not connected")
	// ErrDisconnected reports an operation on a dead account handle.
	ErrDisconnected = errors.New("account is disconnected")
	// ErrKeyNotFound reports a missing persisted session key. This means the
	// session state is desynchronized, not merely logged out.
	ErrKeyNotFound = errors.New("private key not found")
)

// Connector drives sessions against one wallet. It is not safe for
// concurrent flows: exactly one connection or signing flow may be pending at
// a time, and serializing calls is the caller's responsibility.
type Connector struct {
	store  storage.Store
	runner transport.Runner
	logger *slog.Logger
	origin string

	walletURL string
	bridgeURL string
	account   *Account
}

// Option customizes a Connector.
type Option func(*Connector)

// WithRunner replaces the transport. Tests use this to observe flows.
func WithRunner(runner transport.Runner) Option {
	return func(c *Connector) {
		c.runner = runner
	}
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connector) {
		c.logger = logger
	}
}

// WithOrigin sets the application origin carried in every challenge. The
// wallet displays it to the user and binds the session key to it.
func WithOrigin(origin string) Option {
	return func(c *Connector) {
		c.origin = origin
	}
}

// LoadSession creates a Connector rehydrated from the store. Absent session
// fields mean no active session and are never an error; only the account id
// is read eagerly, the private key stays in the store until a signing
// operation needs it.
func LoadSession(store storage.Store, opts ...Option) (*Connector, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}

	c := &Connector{store: store, origin: "http://localhost"}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.Child(c.logger, "connector")

	if c.runner == nil {
		opener := browserwindow.New(browserwindow.WithLogger(c.logger))
		dispatcher, err := transport.NewDispatcher(opener, transport.WithLogger(c.logger))
		if err != nil {
			return nil, err
		}
		c.runner = dispatcher
	}

	accountID, ok, err := store.Get(storage.KeyAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read persisted session: %w", err)
	}
	if !ok {
		return c, nil
	}

	c.walletURL, _, err = store.Get(storage.KeyWalletURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read persisted session: %w", err)
	}
	c.bridgeURL, _, err = store.Get(storage.KeyBridgeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read persisted session: %w", err)
	}

	c.account = &Account{accountID: accountID, owner: c}
	c.logger.Debug("session restored", slog.String("account", accountID))

	return c, nil
}

// Account returns the live account handle, or nil when no session is active.
func (c *Connector) Account() *Account {
	if c.account == nil || c.account.disconnected {
		return nil
	}
	return c.account
}

// Disconnect tears the current session down: the handle is dead afterwards
// and all persisted session keys are removed. Every key removal is attempted
// even if an earlier one fails.
func (c *Connector) Disconnect() error {
	if c.account == nil || c.account.disconnected {
		return ErrNotConnected
	}

	c.account.disconnected = true
	c.account = nil
	c.walletURL = ""
	c.bridgeURL = ""

	var errs []error
	for _, key := range storage.SessionKeys {
		if err := c.store.Remove(key); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", key, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.logger.Debug("session cleared")
	return nil
}

// disconnect implements the account handle's delegation.
func (c *Connector) disconnect() error {
	return c.Disconnect()
}

func normalizeWalletURL(walletURL string) string {
	if walletURL == NativeWalletURL {
		return walletURL
	}
	return strings.TrimSuffix(walletURL, "/")
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// signWith loads the persisted ephemeral key and signs message with a fresh
// millisecond nonce, yielding everything a request payload embeds.
func (c *Connector) signWith(message string) (publicKey, signature string, nonce int64, err error) {
	exported, ok, err := c.store.Get(storage.KeyPrivateKey)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to read private key: %w", err)
	}
	if !ok {
		return "", "", 0, ErrKeyNotFound
	}

	keypair, err := keys.Import(exported)
	if err != nil {
		return "", "", 0, fmt.Errorf("persisted private key is unusable: %w", err)
	}

	nonce = nowMillis()
	signature = keypair.Sign(keys.SignatureBase(nonce, message))
	return keypair.PublicKeyString(), signature, nonce, nil
}

// run dispatches one flow against the current session's endpoints. The
// (nil, nil) sentinel propagates untouched.
func (c *Connector) run(ctx context.Context, method string, sendType transport.MessageType, payload any, successType transport.MessageType, rejection string) (json.RawMessage, error) {
	return c.runner.Run(ctx, transport.Flow{
		Method:      method,
		WalletURL:   c.walletURL,
		BridgeURL:   c.bridgeURL,
		SendType:    sendType,
		Payload:     payload,
		SuccessType: successType,
		IsRejection: func(message string) bool {
			return message == rejection
		},
	})
}
