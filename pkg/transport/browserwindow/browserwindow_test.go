package browserwindow_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/go-softwarelab/common/pkg/slogx"
	"github.com/intear/wallet-connector-go/pkg/transport"
	"github.com/intear/wallet-connector-go/pkg/transport/browserwindow"
	"github.com/stretchr/testify/require"
)

// openForTest opens a window with the browser launch captured instead of
// executed, and returns the relay base URL the wallet page would be given.
func openForTest(t *testing.T) (transport.Window, string) {
	var launched string
	opener := browserwindow.New(
		browserwindow.WithLogger(slogx.NewTestLogger(t)),
		browserwindow.WithLaunchFunc(func(u string) error {
			launched = u
			return nil
		}),
	)

	window, err := opener.Open("https://wallet.test/connect")
	require.NoError(t, err)
	t.Cleanup(window.Close)

	parsed, err := url.Parse(launched)
	require.NoError(t, err)
	relayURL := parsed.Query().Get("relay")
	require.NotEmpty(t, relayURL)

	return window, relayURL
}

func TestRelayDeliversInboundMessages(t *testing.T) {
	// given:
	window, relayURL := openForTest(t)

	// when: the wallet page posts a frame
	request, err := http.NewRequest(http.MethodPost, relayURL+"/message", bytes.NewBufferString(`{"type":"ready"}`))
	require.NoError(t, err)
	request.Header.Set("Origin", "https://wallet.test")
	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusAccepted, response.StatusCode)

	// then:
	select {
	case inbound := <-window.Messages():
		require.Equal(t, "https://wallet.test", inbound.Origin)
		require.JSONEq(t, `{"type":"ready"}`, string(inbound.Data))
	case <-time.After(time.Second):
		t.Fatal("no inbound message relayed")
	}
}

func TestRelayServesOutbox(t *testing.T) {
	// given:
	window, relayURL := openForTest(t)
	require.NoError(t, window.Post([]byte(`{"type":"signIn","data":{}}`)))

	// when: the wallet page polls the outbox
	response, err := http.Get(relayURL + "/outbox")
	require.NoError(t, err)
	defer response.Body.Close()

	var frames []json.RawMessage
	require.NoError(t, json.NewDecoder(response.Body).Decode(&frames))

	// then: frames are handed over once
	require.Len(t, frames, 1)
	require.Contains(t, string(frames[0]), "signIn")

	second, err := http.Get(relayURL + "/outbox")
	require.NoError(t, err)
	defer second.Body.Close()
	require.NoError(t, json.NewDecoder(second.Body).Decode(&frames))
	require.Empty(t, frames)
}

func TestRelayCloseMarksWindowClosed(t *testing.T) {
	// given:
	window, relayURL := openForTest(t)
	require.False(t, window.Closed())

	// when: the wallet page reports the window closing
	response, err := http.Post(relayURL+"/close", "application/json", nil)
	require.NoError(t, err)
	defer response.Body.Close()

	// then:
	require.True(t, window.Closed())
	require.Error(t, window.Post([]byte(`{}`)))
}

func TestOpenFailsWhenBrowserCannotStart(t *testing.T) {
	// given:
	opener := browserwindow.New(browserwindow.WithLaunchFunc(func(string) error {
		return http.ErrHandlerTimeout
	}))

	// when:
	_, err := opener.Open("https://wallet.test/connect")

	// then:
	require.Error(t, err)
}
