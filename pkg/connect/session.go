package connect

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/intear/wallet-connector-go/pkg/neartx"
	"github.com/intear/wallet-connector-go/pkg/nep413"
	"github.com/intear/wallet-connector-go/pkg/transport"
)

// signMessagePayload carries a NEP-413 signing request. Message holds the
// canonical NEP-413 JSON as a string; the outer signature authorizes the
// request with the session key, it is not the NEP-413 signature itself.
type signMessagePayload struct {
	Message   string `json:"message"`
	AccountID string `json:"accountId"`
	PublicKey string `json:"publicKey"`
	Nonce     int64  `json:"nonce"`
	Signature string `json:"signature"`
}

type signedResponse struct {
	Signature *wireSignedMessage `json:"signature"`
}

// sendTransactionsPayload carries a transaction batch, serialized verbatim as
// a JSON array string.
type sendTransactionsPayload struct {
	AccountID    string `json:"accountId"`
	PublicKey    string `json:"publicKey"`
	Nonce        int64  `json:"nonce"`
	Signature    string `json:"signature"`
	Transactions string `json:"transactions"`
}

type sentResponse struct {
	Outcomes []neartx.Outcome `json:"outcomes"`
}

func (c *Connector) signMessage(ctx context.Context, message nep413.Message) (*SignedMessage, error) {
	canonical, err := message.Canonical()
	if err != nil {
		return nil, err
	}

	publicKey, signature, nonce, err := c.signWith(canonical)
	if err != nil {
		return nil, err
	}

	payload := signMessagePayload{
		Message:   canonical,
		AccountID: c.account.accountID,
		PublicKey: publicKey,
		Nonce:     nonce,
		Signature: signature,
	}

	raw, err := c.run(ctx, "sign-message", transport.TypeSignMessage, payload, transport.TypeSigned, rejectedSignature)
	if err != nil {
		return nil, fmt.Errorf("message signing failed: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var response signedResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("malformed signed response: %w", err)
	}
	if response.Signature == nil {
		return nil, fmt.Errorf("wallet did not return a signature")
	}

	return fromWireSignedMessage(response.Signature)
}

func (c *Connector) sendTransactions(ctx context.Context, transactions []neartx.Transaction) (*neartx.Outcomes, error) {
	serialized, err := neartx.Serialize(transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transactions: %w", err)
	}

	publicKey, signature, nonce, err := c.signWith(serialized)
	if err != nil {
		return nil, err
	}

	payload := sendTransactionsPayload{
		AccountID:    c.account.accountID,
		PublicKey:    publicKey,
		Nonce:        nonce,
		Signature:    signature,
		Transactions: serialized,
	}

	raw, err := c.run(ctx, "send-transactions", transport.TypeSignAndSendTransactions, payload, transport.TypeSent, rejectedTransactions)
	if err != nil {
		return nil, fmt.Errorf("transaction submission failed: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var response sentResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("malformed sent response: %w", err)
	}
	if response.Outcomes == nil {
		return nil, fmt.Errorf("wallet did not return execution outcomes")
	}

	return &neartx.Outcomes{Outcomes: response.Outcomes}, nil
}
