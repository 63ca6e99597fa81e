package connect

import (
	"context"

	"github.com/intear/wallet-connector-go/pkg/neartx"
	"github.com/intear/wallet-connector-go/pkg/nep413"
)

// sessionOps is the capability an account handle borrows from its owning
// connector. The handle delegates, it does not own.
type sessionOps interface {
	signMessage(ctx context.Context, message nep413.Message) (*SignedMessage, error)
	sendTransactions(ctx context.Context, transactions []neartx.Transaction) (*neartx.Outcomes, error)
	disconnect() error
}

// Account is the caller's view of one active session. Once disconnected it is
// permanently dead; a new handle comes from a fresh RequestConnection.
type Account struct {
	accountID    string
	disconnected bool
	owner        sessionOps
}

// AccountID returns the connected account identifier.
func (a *Account) AccountID() string {
	return a.accountID
}

// SignMessage asks the wallet to sign a NEP-413 message. A nil, nil return
// means the user declined or dismissed the request.
func (a *Account) SignMessage(ctx context.Context, message nep413.Message) (*SignedMessage, error) {
	if a.disconnected {
		return nil, ErrDisconnected
	}
	if err := message.Validate(); err != nil {
		return nil, err
	}

	return a.owner.signMessage(ctx, message)
}

// SendTransactions asks the wallet to sign and submit a transaction batch.
// Outcomes come back in input order. A nil, nil return means the user
// declined or dismissed the request.
func (a *Account) SendTransactions(ctx context.Context, transactions []neartx.Transaction) (*neartx.Outcomes, error) {
	if a.disconnected {
		return nil, ErrDisconnected
	}

	return a.owner.sendTransactions(ctx, transactions)
}

// Disconnect tears down the session this handle belongs to.
func (a *Account) Disconnect() error {
	if a.disconnected {
		return ErrNotConnected
	}

	return a.owner.disconnect()
}
