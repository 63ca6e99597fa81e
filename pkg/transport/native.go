package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// sessionCreatePath is the bridge endpoint that allocates a wallet session.
const sessionCreatePath = "/api/session/create"

type sessionFrame struct {
	SessionID string `json:"session_id"`
}

// isExpectedClosure reports whether a read error is the peer closing the
// socket deliberately, which counts as the user not responding.
func isExpectedClosure(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

// runNative drives a flow through the WebSocket bridge and a deep link into
// the native app. The bridge frames a session id first; the payload is sent
// back over the same socket and the app is activated with
// intear://<method>?session_id=<id>. All terminal frames arrive on the
// socket. A socket that closes without a terminal frame settles the flow with
// the cancellation sentinel; there is deliberately no other timeout, so
// callers that want one bound ctx.
func (d *Dispatcher) runNative(ctx context.Context, flow Flow) (json.RawMessage, error) {
	if flow.BridgeURL == "" {
		return nil, errors.New("bridge URL is required for the native wallet")
	}

	bridgeURL := strings.TrimSuffix(flow.BridgeURL, "/") + sessionCreatePath
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, bridgeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bridge %s: %w", bridgeURL, err)
	}
	defer conn.Close()

	d.logger.Debug("connected to bridge", slog.String("url", bridgeURL))

	done := make(chan struct{})
	defer close(done)

	frames := make(chan []byte)
	readFailed := make(chan error, 1)
	go func() {
		defer close(frames)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readFailed <- err
				return
			}
			select {
			case frames <- data:
			case <-done:
				return
			}
		}
	}()

	sessionStarted := false
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case data, ok := <-frames:
			if !ok {
				// an orderly close means the app never answered; anything
				// else is a broken channel, not a user decision
				readErr := <-readFailed
				if isExpectedClosure(readErr) {
					d.logger.Debug("bridge socket closed without a terminal frame")
					return nil, nil
				}
				return nil, fmt.Errorf("bridge connection lost: %w", readErr)
			}

			if !sessionStarted {
				var session sessionFrame
				if json.Unmarshal(data, &session) == nil && session.SessionID != "" {
					sessionStarted = true
					if err := d.startNativeSession(conn, flow, session.SessionID); err != nil {
						return nil, err
					}
					continue
				}
			}

			outcome, result, err := d.classifyFrame(flow, data)
			if outcome == frameSettled {
				return result, err
			}
		}
	}
}

// startNativeSession sends the payload over the socket and fires the app
// deep link. The deep link is an activation signal only; losing it is not
// fatal to an app already listening on the session.
func (d *Dispatcher) startNativeSession(conn *websocket.Conn, flow Flow, sessionID string) error {
	envelope := Envelope{Type: flow.SendType, Data: flow.Payload}
	data, err := envelope.marshal()
	if err != nil {
		return err
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send payload to bridge: %w", err)
	}

	deepLink := NativeWalletURL + flow.Method + "?session_id=" + url.QueryEscape(sessionID)
	if err := d.opener.Launch(deepLink); err != nil {
		d.logger.Warn("failed to launch native app deep link", slog.String("url", deepLink))
	}

	d.logger.Debug("native session started", slog.String("session_id", sessionID))
	return nil
}
