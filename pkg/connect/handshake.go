package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/intear/wallet-connector-go/pkg/codec"
	"github.com/intear/wallet-connector-go/pkg/keys"
	"github.com/intear/wallet-connector-go/pkg/nep413"
	"github.com/intear/wallet-connector-go/pkg/storage"
	"github.com/intear/wallet-connector-go/pkg/transport"
)

// ConnectionOptions parameterize one connection request. Nil fields take the
// package defaults.
type ConnectionOptions struct {
	NetworkID *string
	WalletURL *string
	BridgeURL *string
	// MessageToSign, when set, is a NEP-413 message the wallet signs as part
	// of approving the connection.
	MessageToSign *nep413.Message
}

// ConnectionResult is a successful handshake: the live account handle and,
// when requested, the wallet-signed NEP-413 message.
type ConnectionResult struct {
	Account       *Account
	SignedMessage *SignedMessage
}

// SignedMessage is a wallet signature over a NEP-413 message. Signature is
// base64, re-encoded from the wallet's base58 wire form.
type SignedMessage struct {
	AccountID string
	PublicKey string
	Signature string
	State     string
}

// signInPayload is the challenge envelope sent to the wallet.
type signInPayload struct {
	PublicKey    string `json:"publicKey"`
	NetworkID    string `json:"networkId"`
	Nonce        int64  `json:"nonce"`
	Message      string `json:"message"`
	Signature    string `json:"signature"`
	Version      string `json:"version"`
	ActualOrigin string `json:"actualOrigin"`
}

// challengeMessage is the JSON-serialized body of the challenge's message
// field.
type challengeMessage struct {
	Origin        string          `json:"origin"`
	MessageToSign *nep413.Message `json:"messageToSign,omitempty"`
}

type wireSignedMessage struct {
	AccountID string  `json:"accountId"`
	PublicKey string  `json:"publicKey"`
	Signature string  `json:"signature"`
	State     *string `json:"state,omitempty"`
}

type connectedResponse struct {
	Accounts []struct {
		AccountID string `json:"accountId"`
	} `json:"accounts"`
	WalletURL     string             `json:"walletUrl"`
	SignedMessage *wireSignedMessage `json:"signedMessage"`
}

// RequestConnection runs the connection handshake. A nil, nil return means
// the user rejected or dismissed the request; errors mean the flow could not
// run or the wallet violated the protocol. On success the ephemeral key and
// session endpoints are persisted, account id last, so a concurrent reader
// sees either a complete session or none.
func (c *Connector) RequestConnection(ctx context.Context, opts ConnectionOptions) (*ConnectionResult, error) {
	if c.account != nil && !c.account.disconnected {
		return nil, ErrAlreadyConnected
	}
	if opts.MessageToSign != nil {
		if err := opts.MessageToSign.Validate(); err != nil {
			return nil, err
		}
	}

	networkID := stringOr(opts.NetworkID, DefaultNetworkID)
	requestedWalletURL := normalizeWalletURL(stringOr(opts.WalletURL, DefaultWalletURL))
	bridgeURL := stringOr(opts.BridgeURL, DefaultBridgeURL)

	keypair, err := keys.Generate()
	if err != nil {
		return nil, err
	}

	message, err := json.Marshal(challengeMessage{
		Origin:        c.origin,
		MessageToSign: opts.MessageToSign,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize challenge message: %w", err)
	}

	nonce := nowMillis()
	payload := signInPayload{
		PublicKey:    keypair.PublicKeyString(),
		NetworkID:    networkID,
		Nonce:        nonce,
		Message:      string(message),
		Signature:    keypair.Sign(keys.SignatureBase(nonce, string(message))),
		Version:      challengeVersion,
		ActualOrigin: c.origin,
	}

	c.logger.Debug("requesting connection",
		slog.String("wallet", requestedWalletURL),
		slog.String("network", networkID))

	raw, err := c.runner.Run(ctx, transport.Flow{
		Method:      "connect",
		WalletURL:   requestedWalletURL,
		BridgeURL:   bridgeURL,
		SendType:    transport.TypeSignIn,
		Payload:     payload,
		SuccessType: transport.TypeConnected,
		IsRejection: func(message string) bool {
			return message == rejectedConnection
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	if raw == nil {
		c.logger.Debug("connection request dismissed by user")
		return nil, nil
	}

	var response connectedResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("malformed connected response: %w", err)
	}
	if len(response.Accounts) == 0 {
		return nil, fmt.Errorf("wallet returned no accounts")
	}
	if opts.MessageToSign != nil && response.SignedMessage == nil {
		return nil, fmt.Errorf("wallet did not return the requested signed message")
	}

	var signedMessage *SignedMessage
	if response.SignedMessage != nil {
		signedMessage, err = fromWireSignedMessage(response.SignedMessage)
		if err != nil {
			return nil, err
		}
	}

	// the wallet may redirect future flows to a canonical host; the native
	// marker is kept verbatim when the caller asked for the native app
	walletURL := requestedWalletURL
	if walletURL != NativeWalletURL && response.WalletURL != "" {
		walletURL = normalizeWalletURL(response.WalletURL)
	}

	// multi-account responses are collapsed to the first entry by contract
	accountID := response.Accounts[0].AccountID

	if err := c.persistSession(keypair, walletURL, bridgeURL, accountID); err != nil {
		return nil, err
	}

	c.walletURL = walletURL
	c.bridgeURL = bridgeURL
	c.account = &Account{accountID: accountID, owner: c}

	c.logger.Info("connected", slog.String("account", accountID))
	return &ConnectionResult{Account: c.account, SignedMessage: signedMessage}, nil
}

// persistSession writes the session record. Order matters: the account id
// lands last so that a partial write never looks like a live session.
func (c *Connector) persistSession(keypair *keys.Keypair, walletURL, bridgeURL, accountID string) error {
	writes := []struct {
		key   string
		value string
	}{
		{storage.KeyPrivateKey, keypair.Export()},
		{storage.KeyWalletURL, walletURL},
		{storage.KeyBridgeURL, bridgeURL},
		{storage.KeyAccountID, accountID},
	}

	for _, write := range writes {
		if err := c.store.Set(write.key, write.value); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}
	}
	return nil
}

func fromWireSignedMessage(wire *wireSignedMessage) (*SignedMessage, error) {
	signature, err := codec.SignatureToBase64(wire.Signature)
	if err != nil {
		return nil, fmt.Errorf("wallet returned a malformed signature: %w", err)
	}

	signed := &SignedMessage{
		AccountID: wire.AccountID,
		PublicKey: wire.PublicKey,
		Signature: signature,
	}
	if wire.State != nil {
		signed.State = *wire.State
	}
	return signed, nil
}

func stringOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}
