package jwk

import (
	"encoding/json"
	"testing"

	"github.com/storacha/go-didauth/principal"
	"github.com/storacha/go-didauth/principal/factory"
	"github.com/storacha/go-didauth/testing/helpers"
	"github.com/stretchr/testify/require"
)

func TestRawAndStructuredVerifyIdentically(t *testing.T) {
	for _, alg := range []principal.Algorithm{principal.Ed25519, principal.ES256K, principal.ES256, principal.RS256} {
		t.Run(alg.String(), func(t *testing.T) {
			p := helpers.Must(factory.Lookup(alg))
			pub, priv, err := p.GenerateKeyPair()
			require.NoError(t, err)

			key, err := FromPublicKey(alg, pub)
			require.NoError(t, err)

			data, err := json.Marshal(key)
			require.NoError(t, err)
			var decoded JWK
			require.NoError(t, json.Unmarshal(data, &decoded))

			gotAlg, raw, err := decoded.PublicKey()
			require.NoError(t, err)
			require.Equal(t, alg, gotAlg)
			require.Equal(t, pub, raw)

			msg := []byte("structured")
			sig := helpers.Must(p.Sign(msg, priv))
			require.Equal(t, p.Verify(msg, sig, pub), p.Verify(msg, sig, raw))
			require.True(t, p.Verify(msg, sig, raw))
		})
	}
}

func TestRejectsUnknownKeys(t *testing.T) {
	_, _, err := JWK{Kty: "oct"}.PublicKey()
	require.ErrorIs(t, err, principal.ErrUnsupportedAlgorithm)

	_, _, err = JWK{Kty: "EC", Crv: "P-521", X: "AA", Y: "AA"}.PublicKey()
	require.Error(t, err)

	_, _, err = JWK{Kty: "OKP", Crv: "Ed25519", X: "!!"}.PublicKey()
	require.Error(t, err)

	_, err = FromPublicKey(principal.Ed25519, []byte{1, 2, 3})
	require.Error(t, err)
}
