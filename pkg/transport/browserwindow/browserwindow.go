// Package browserwindow is the production transport.Opener for environments
// without an embedding webview: it opens the wallet in the system browser and
// relays protocol messages through a short-lived loopback HTTP endpoint. The
// wallet page posts frames to the relay and polls it for outbound payloads;
// dropping the relay connection counts as closing the window.
package browserwindow

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/intear/wallet-connector-go/pkg/internal/logging"
	"github.com/intear/wallet-connector-go/pkg/transport"
)

// relayParam is the query parameter telling the wallet page where to reach
// the relay.
const relayParam = "relay"

// LaunchFunc opens a URL with the user's default handler.
type LaunchFunc func(url string) error

// Opener opens wallet surfaces through the system browser.
type Opener struct {
	logger *slog.Logger
	launch LaunchFunc
}

// Option customizes an Opener.
type Option func(*Opener)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Opener) {
		o.logger = logger
	}
}

// WithLaunchFunc replaces the system-browser launch command. Embedders with
// their own webview or tests substitute the launcher here.
func WithLaunchFunc(launch LaunchFunc) Option {
	return func(o *Opener) {
		o.launch = launch
	}
}

// New creates an Opener.
func New(opts ...Option) *Opener {
	o := &Opener{}
	for _, opt := range opts {
		opt(o)
	}
	if o.launch == nil {
		o.launch = systemLaunch
	}
	o.logger = logging.Child(o.logger, "browserwindow")

	return o
}

// Open starts a loopback relay, then opens the wallet URL in the browser with
// the relay address appended. Returns an error if the browser could not be
// started, which the transport maps to its popup-blocked failure.
func (o *Opener) Open(target string) (transport.Window, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start relay listener: %w", err)
	}

	window := &relayWindow{
		logger:   o.logger,
		token:    uuid.NewString(),
		messages: make(chan transport.Inbound, 16),
	}
	window.server = &http.Server{Handler: window.handler()}
	go func() {
		_ = window.server.Serve(listener)
	}()

	relayURL := fmt.Sprintf("http://%s/relay/%s", listener.Addr(), window.token)
	separator := "?"
	if strings.Contains(target, "?") {
		separator = "&"
	}

	if err := o.launch(target + separator + relayParam + "=" + relayURL); err != nil {
		window.Close()
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}

	o.logger.Debug("wallet opened in browser", slog.String("relay", relayURL))
	return window, nil
}

// Launch fires a URL at the default system handler without waiting for a
// response. Used for native-app deep links.
func (o *Opener) Launch(target string) error {
	return o.launch(target)
}

func systemLaunch(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	return cmd.Start()
}

// relayWindow is one loopback relay session.
type relayWindow struct {
	logger *slog.Logger
	token  string
	server *http.Server

	mu       sync.Mutex
	outbox   [][]byte
	closed   bool
	shutdown sync.Once
	messages chan transport.Inbound
}

func (w *relayWindow) handler() http.Handler {
	mux := http.NewServeMux()
	prefix := "/relay/" + w.token
	mux.HandleFunc("POST "+prefix+"/message", w.handleMessage)
	mux.HandleFunc("GET "+prefix+"/outbox", w.handleOutbox)
	mux.HandleFunc("POST "+prefix+"/close", w.handleClose)
	return mux
}

func (w *relayWindow) handleMessage(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(rw, "unreadable body", http.StatusBadRequest)
		return
	}

	inbound := transport.Inbound{Origin: r.Header.Get("Origin"), Data: body}

	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		http.Error(rw, "window closed", http.StatusGone)
		return
	}

	select {
	case w.messages <- inbound:
		rw.WriteHeader(http.StatusAccepted)
	default:
		w.logger.Warn("relay inbox full, dropping frame")
		http.Error(rw, "inbox full", http.StatusTooManyRequests)
	}
}

func (w *relayWindow) handleOutbox(rw http.ResponseWriter, r *http.Request) {
	w.mu.Lock()
	pending := w.outbox
	w.outbox = nil
	w.mu.Unlock()

	frames := make([]json.RawMessage, len(pending))
	for i, frame := range pending {
		frames[i] = json.RawMessage(frame)
	}

	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(frames); err != nil {
		w.logger.Warn("failed to serve outbox", logging.Error(err))
	}
}

func (w *relayWindow) handleClose(rw http.ResponseWriter, r *http.Request) {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	rw.WriteHeader(http.StatusNoContent)
}

func (w *relayWindow) Post(message []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("window is closed")
	}

	w.outbox = append(w.outbox, message)
	return nil
}

func (w *relayWindow) Messages() <-chan transport.Inbound {
	return w.messages
}

func (w *relayWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *relayWindow) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	// the wallet page may have marked the window closed already; the listener
	// still has to go away exactly once
	w.shutdown.Do(func() {
		_ = w.server.Close()
	})
}
