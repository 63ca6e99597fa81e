// Package transport carries protocol flows between the application and the
// wallet. Two interchangeable strategies exist: a popup-style window exchange
// and a WebSocket bridge handoff to a native app. Both share one message
// vocabulary and one settlement discipline: each flow produces exactly one of
// a result, a nil cancellation sentinel, or an error.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/intear/wallet-connector-go/pkg/internal/logging"
)

// NativeWalletURL is the reserved wallet endpoint marker selecting the
// native-app strategy instead of a hosted web wallet.
const NativeWalletURL = "intear://"

// MessageType tags every protocol frame exchanged with the wallet.
type MessageType string

// Frame types understood by both strategies.
const (
	TypeReady  MessageType = "ready"
	TypeError  MessageType = "error"
	TypeLogout MessageType = "logout"

	TypeSignIn                  MessageType = "signIn"
	TypeSignMessage             MessageType = "signMessage"
	TypeSignAndSendTransactions MessageType = "signAndSendTransactions"

	TypeConnected MessageType = "connected"
	TypeSigned    MessageType = "signed"
	TypeSent      MessageType = "sent"
)

// ErrPopupBlocked reports that the wallet window could not be opened at all,
// typically a popup blocker. This is a hard failure, not a cancellation.
var ErrPopupBlocked = errors.New("wallet window could not be opened")

// WalletError carries the message text of an {type:"error"} frame that did
// not match the flow's rejection predicate.
type WalletError struct {
	Message string
}

func (e *WalletError) Error() string {
	return "wallet error: " + e.Message
}

// Envelope is the outbound frame shape for every app-to-wallet payload.
type Envelope struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

// Flow describes one protocol exchange: where to reach the wallet, what to
// send once the channel is ready, and which frame type settles it.
type Flow struct {
	// Method is the wallet path (popup) or deep-link method (native).
	Method string
	// WalletURL is the wallet endpoint, or NativeWalletURL for the native app.
	WalletURL string
	// BridgeURL is the WebSocket session broker, used only by the native strategy.
	BridgeURL string

	SendType    MessageType
	Payload     any
	SuccessType MessageType

	// IsRejection reports whether an error frame's message means the user
	// declined, which settles the flow with the nil sentinel instead of an
	// error.
	IsRejection func(message string) bool
}

// Runner executes flows. The (nil, nil) return is the cancellation sentinel:
// the user closed the wallet surface or the channel went idle without a
// terminal frame.
type Runner interface {
	Run(ctx context.Context, flow Flow) (json.RawMessage, error)
}

// Dispatcher is the production Runner. It selects a strategy per flow based
// on the wallet endpoint.
type Dispatcher struct {
	opener       Opener
	logger       *slog.Logger
	pollInterval time.Duration
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithPollInterval overrides the window-closure poll interval.
func WithPollInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.pollInterval = interval
	}
}

// NewDispatcher creates a Dispatcher using the given window opener.
func NewDispatcher(opener Opener, opts ...DispatcherOption) (*Dispatcher, error) {
	if opener == nil {
		return nil, errors.New("opener is required")
	}

	d := &Dispatcher{
		opener:       opener,
		pollInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.Child(d.logger, "transport")

	return d, nil
}

// Run executes one flow and settles it exactly once.
func (d *Dispatcher) Run(ctx context.Context, flow Flow) (json.RawMessage, error) {
	if flow.WalletURL == NativeWalletURL {
		return d.runNative(ctx, flow)
	}
	return d.runPopup(ctx, flow)
}

// frameOutcome classifies one inbound protocol frame.
type frameOutcome int

const (
	frameIgnored frameOutcome = iota
	frameReady
	frameSettled
)

type inboundFrame struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// classifyFrame applies the shared ready/success/error sequencing to one
// frame. A settled outcome with nil result and nil error is the cancellation
// sentinel.
func (d *Dispatcher) classifyFrame(flow Flow, data []byte) (frameOutcome, json.RawMessage, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		d.logger.Debug("ignoring unparseable frame", logging.Error(err))
		return frameIgnored, nil, nil
	}

	switch frame.Type {
	case TypeReady:
		return frameReady, nil, nil
	case flow.SuccessType:
		return frameSettled, json.RawMessage(data), nil
	case TypeError:
		if flow.IsRejection != nil && flow.IsRejection(frame.Message) {
			d.logger.Debug("user rejected the request")
			return frameSettled, nil, nil
		}
		return frameSettled, nil, &WalletError{Message: frame.Message}
	case TypeLogout:
		return frameSettled, nil, nil
	default:
		d.logger.Debug("ignoring frame with unexpected type", slog.String("type", string(frame.Type)))
		return frameIgnored, nil, nil
	}
}

func (e *Envelope) marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize outbound message: %w", err)
	}
	return data, nil
}
