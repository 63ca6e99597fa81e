package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// runPopup drives a flow through an interactive wallet window. The window is
// opened at <walletURL>/<method>; inbound messages from any other origin are
// dropped before any parsing. The window is polled for closure so that a user
// dismissing it settles the flow with the cancellation sentinel.
func (d *Dispatcher) runPopup(ctx context.Context, flow Flow) (json.RawMessage, error) {
	walletURL := strings.TrimSuffix(flow.WalletURL, "/")
	walletOrigin, err := originOf(walletURL)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet URL %q: %w", flow.WalletURL, err)
	}

	window, err := d.opener.Open(walletURL + "/" + flow.Method)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPopupBlocked, err)
	}
	defer window.Close()

	d.logger.Debug("opened wallet window",
		slog.String("method", flow.Method),
		slog.String("origin", walletOrigin))

	poll := time.NewTicker(d.pollInterval)
	defer poll.Stop()

	sent := false
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-poll.C:
			if window.Closed() {
				d.logger.Debug("wallet window closed by user")
				return nil, nil
			}

		case inbound, ok := <-window.Messages():
			if !ok {
				return nil, nil
			}
			if inbound.Origin != walletOrigin {
				d.logger.Debug("dropping message from foreign origin",
					slog.String("origin", inbound.Origin))
				continue
			}

			outcome, result, err := d.classifyFrame(flow, inbound.Data)
			switch outcome {
			case frameReady:
				// the wallet page may announce readiness more than once,
				// e.g. after a reload; the payload still goes out exactly once
				if sent {
					d.logger.Debug("ignoring repeated ready announcement")
					continue
				}
				if err := d.postPayload(window, flow); err != nil {
					return nil, err
				}
				sent = true
			case frameSettled:
				return result, err
			}
		}
	}
}

func (d *Dispatcher) postPayload(window Window, flow Flow) error {
	envelope := Envelope{Type: flow.SendType, Data: flow.Payload}
	data, err := envelope.marshal()
	if err != nil {
		return err
	}

	if err := window.Post(data); err != nil {
		return fmt.Errorf("failed to deliver payload to wallet window: %w", err)
	}

	d.logger.Debug("payload sent to wallet window", slog.String("type", string(flow.SendType)))
	return nil
}

// originOf reduces a wallet URL to its scheme://host origin for the exact
// comparison applied to every inbound message.
func originOf(walletURL string) (string, error) {
	parsed, err := url.Parse(walletURL)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("not an absolute URL")
	}

	return parsed.Scheme + "://" + parsed.Host, nil
}
