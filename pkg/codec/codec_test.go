package codec_test

import (
	"encoding/base64"
	"testing"

	"github.com/intear/wallet-connector-go/pkg/codec"
	"github.com/stretchr/testify/require"
)

func TestBase58RoundTrip(t *testing.T) {
	cases := map[string][]byte{
		"empty":            {},
		"single zero":      {0},
		"zero prefixed":    {0, 0, 1, 2, 3},
		"all zeros":        {0, 0, 0, 0},
		"typical key size": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32},
		"high bytes":       {255, 254, 0, 128},
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			// when:
			encoded := codec.EncodeBase58(input)
			decoded, err := codec.DecodeBase58(encoded)

			// then:
			require.NoError(t, err)
			require.Equal(t, input, decoded)
		})
	}
}

func TestDecodeBase58InvalidCharacters(t *testing.T) {
	// when:
	_, err := codec.DecodeBase58("0OIl")

	// then:
	require.Error(t, err)
}

func TestFormatParseEd25519(t *testing.T) {
	// given:
	raw := []byte{9, 8, 7, 6, 5}

	// when:
	formatted := codec.FormatEd25519(raw)

	// then:
	require.True(t, len(formatted) > len(codec.Ed25519Prefix))

	// when:
	parsed, err := codec.ParseEd25519(formatted)

	// then:
	require.NoError(t, err)
	require.Equal(t, raw, parsed)
}

func TestParseEd25519RequiresPrefix(t *testing.T) {
	// when:
	_, err := codec.ParseEd25519("3mJr7AoUXx2Wqd")

	// then:
	require.Error(t, err)
}

func TestSignatureToBase64(t *testing.T) {
	// given:
	raw := []byte{1, 2, 3, 4}
	wire := codec.FormatEd25519(raw)

	// when:
	b64, err := codec.SignatureToBase64(wire)

	// then:
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)
}

func TestSignatureToBase64RejectsBarePayload(t *testing.T) {
	// when:
	_, err := codec.SignatureToBase64("not-a-signature")

	// then:
	require.Error(t, err)
}
